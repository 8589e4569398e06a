package store

import (
	"github.com/roach88/nestq/internal/ir"
)

// IsJSONType reports whether values of t travel through SQLite as JSON text.
func IsJSONType(t ir.ExtractionType) bool {
	return t == ir.ObjectType || t.IsArray()
}

// ToSQL converts a value to a SQLite parameter or function result.
// With asJSON every non-null value becomes compact JSON text, so a stored
// string "hello" is distinguishable from a stored object.
func ToSQL(v ir.Value, asJSON bool) any {
	if ir.IsNull(v) {
		return nil
	}
	if asJSON {
		return ir.JSONText(v)
	}
	switch val := v.(type) {
	case ir.String:
		return string(val)
	case ir.Long:
		return int64(val)
	case ir.Double:
		return float64(val)
	case ir.Bool:
		if val {
			return int64(1)
		}
		return int64(0)
	}
	// Arrays and objects only have a JSON form.
	return ir.JSONText(v)
}

// FromSQL converts a SQLite value back to a value. Text is decoded as JSON
// when isJSON is set; text that is not valid JSON stays a string.
func FromSQL(v any, isJSON bool) ir.Value {
	switch val := v.(type) {
	case nil:
		return ir.Null{}
	case int64:
		return ir.Long(val)
	case int:
		return ir.Long(int64(val))
	case float64:
		return ir.Double(val)
	case bool:
		if val {
			return ir.Long(1)
		}
		return ir.Long(0)
	case []byte:
		// User functions receive SQL NULL as a nil slice.
		if val == nil {
			return ir.Null{}
		}
		return FromSQL(string(val), isJSON)
	case string:
		if isJSON {
			if decoded, err := ir.ParseJSON([]byte(val)); err == nil {
				return decoded
			}
		}
		return ir.String(val)
	}
	return ir.Null{}
}
