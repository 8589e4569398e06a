package extract

import (
	"math"
	"strconv"
	"strings"

	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/jsonpath"
)

// Extract walks p inside doc and coerces the located value to t.
func Extract(doc ir.Value, p jsonpath.Path, t ir.ExtractionType) ir.Value {
	v, ok := Walk(doc, p)
	if !ok {
		return ir.Null{}
	}
	return Coerce(v, t)
}

// ExtractArrayOfObjects walks p inside doc for an operator that treats the
// located value as an array of objects.
func ExtractArrayOfObjects(doc ir.Value, p jsonpath.Path) ir.Value {
	v, ok := Walk(doc, p)
	if !ok {
		return ir.Null{}
	}
	return CoerceArrayOfObjects(v)
}

// Cast applies the same conversion table as Coerce. It backs RETURNING and
// CAST over already extracted values.
func Cast(v ir.Value, t ir.ExtractionType) ir.Value {
	return Coerce(v, t)
}

// Coerce converts v to t, yielding ir.Null when no conversion exists.
func Coerce(v ir.Value, t ir.ExtractionType) ir.Value {
	if ir.IsNull(v) {
		return ir.Null{}
	}
	switch t {
	case ir.StringType:
		return toString(v)
	case ir.LongType:
		return toLong(v)
	case ir.DoubleType:
		return toDouble(v)
	case ir.LongArrayType, ir.DoubleArrayType, ir.StringArrayType:
		return toArray(v, t.ElementType())
	case ir.ObjectType, ir.Unknown:
		return v
	}
	return ir.Null{}
}

// CoerceArrayOfObjects keeps arrays unchanged and wraps any other non-null
// value into a one element array.
func CoerceArrayOfObjects(v ir.Value) ir.Value {
	switch val := v.(type) {
	case nil, ir.Null:
		return ir.Null{}
	case ir.Array:
		return val
	default:
		return ir.Array{v}
	}
}

func toString(v ir.Value) ir.Value {
	switch val := v.(type) {
	case ir.String:
		return val
	case ir.Long:
		return ir.String(strconv.FormatInt(int64(val), 10))
	case ir.Double:
		return ir.String(ir.FormatDouble(float64(val)))
	case ir.Bool:
		if val {
			return ir.String("true")
		}
		return ir.String("false")
	}
	return ir.Null{}
}

func toLong(v ir.Value) ir.Value {
	switch val := v.(type) {
	case ir.Long:
		return val
	case ir.Double:
		return truncate(float64(val))
	case ir.Bool:
		if val {
			return ir.Long(1)
		}
		return ir.Long(0)
	case ir.String:
		s := strings.TrimSpace(string(val))
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return ir.Long(n)
		}
		if f, ok := parseFloat(s); ok {
			return truncate(f)
		}
	}
	return ir.Null{}
}

func toDouble(v ir.Value) ir.Value {
	switch val := v.(type) {
	case ir.Double:
		return val
	case ir.Long:
		return ir.Double(float64(val))
	case ir.Bool:
		if val {
			return ir.Double(1)
		}
		return ir.Double(0)
	case ir.String:
		if f, ok := parseFloat(strings.TrimSpace(string(val))); ok {
			return ir.Double(f)
		}
	}
	return ir.Null{}
}

func toArray(v ir.Value, elem ir.ExtractionType) ir.Value {
	switch val := v.(type) {
	case ir.Array:
		out := make(ir.Array, len(val))
		for i, item := range val {
			out[i] = toScalar(item, elem)
		}
		return out
	case ir.Object:
		return ir.Null{}
	default:
		return ir.Array{toScalar(v, elem)}
	}
}

func toScalar(v ir.Value, t ir.ExtractionType) ir.Value {
	switch v.(type) {
	case ir.Array, ir.Object:
		return ir.Null{}
	}
	return Coerce(v, t)
}

// truncate converts toward zero; values without an int64 form are null.
func truncate(f float64) ir.Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ir.Null{}
	}
	t := math.Trunc(f)
	if t < math.MinInt64 || t >= math.MaxInt64 {
		return ir.Null{}
	}
	return ir.Long(int64(t))
}

// parseFloat accepts decimal and scientific notation but not the Inf/NaN
// spellings strconv would otherwise allow.
func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	switch c := s[len(s)-1]; {
	case c >= '0' && c <= '9', c == '.':
	default:
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
