package jsonschema

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/goccy/go-json"
)

// Rat wraps a big.Rat so numeric constraint keywords (minimum, maximum,
// exclusiveMinimum, exclusiveMaximum, multipleOf) round-trip through the
// schema model without the precision loss a float64 would introduce.
// The allOf-flatten pass compares bounds across branches to decide which
// side is tighter (§ schemamerge.go); a float64 comparison on values like
// 0.1 can disagree with the JSON text the author wrote, silently
// recording the wrong branch as dropped. Exactness here is what lets the
// converter's tightening decisions match what a human reading the raw
// schema text would expect.
type Rat struct {
	*big.Rat
}

// NewRat builds a Rat from a decoded JSON number or numeric string. It
// returns nil (not an error) on failure, matching the pattern every
// caller in this package already uses: a nil *Rat is simply "constraint
// absent" to the rest of the converter.
func NewRat(value interface{}) *Rat {
	r, err := parseRat(value)
	if err != nil {
		return nil
	}
	return &Rat{r}
}

func parseRat(value interface{}) (*big.Rat, error) {
	var literal string
	switch v := value.(type) {
	case float64, float32, int, int64, int32, int16, int8, uint, uint64, uint32, uint16, uint8:
		literal = fmt.Sprint(v)
	case string:
		literal = v
	default:
		return nil, ErrUnsupportedTypeForRat
	}

	rat := new(big.Rat)
	if _, ok := rat.SetString(literal); !ok {
		return nil, ErrFailedToConvertToRat
	}
	return rat, nil
}

// UnmarshalJSON decodes whatever the wire sent (a JSON number, or a
// numeric string from a schema author working around float precision)
// into the exact rational.
func (r *Rat) UnmarshalJSON(data []byte) error {
	var decoded interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	rat, err := parseRat(decoded)
	if err != nil {
		return err
	}
	r.Rat = rat
	return nil
}

// MarshalJSON emits the rational as a bare JSON number whenever FormatRat
// renders it exactly, falling back to a quoted "num/den" string for the
// rare constraint value it can't (e.g. a multipleOf of 1/3).
func (r *Rat) MarshalJSON() ([]byte, error) {
	formatted := FormatRat(r)
	if exact, ok := new(big.Rat).SetString(formatted); !ok || exact.Cmp(r.Rat) != 0 {
		return json.Marshal(r.RatString())
	}
	return []byte(formatted), nil
}

// FormatRat renders a Rat the way it would have appeared in the source
// schema: a plain integer when it is one, otherwise a trimmed decimal.
func FormatRat(r *Rat) string {
	if r == nil {
		return "null"
	}
	if r.IsInt() {
		return r.Num().String()
	}

	decimal := strings.TrimRight(r.FloatString(10), "0")
	decimal = strings.TrimRight(decimal, ".")
	if decimal == "" {
		return "0"
	}
	return decimal
}
