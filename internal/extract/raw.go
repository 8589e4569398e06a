package extract

import (
	"github.com/tidwall/gjson"

	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/jsonpath"
)

// ExtractRaw evaluates an operator directly against stored JSON text without
// decoding the whole document. Only the located value is materialized.
// Invalid JSON behaves like an absent value.
func ExtractRaw(raw []byte, p jsonpath.Path, t ir.ExtractionType, arrayOfObjects bool) ir.Value {
	res, ok := WalkRaw(raw, p)
	if !ok {
		return ir.Null{}
	}
	v := ResultValue(res)
	if arrayOfObjects {
		return CoerceArrayOfObjects(v)
	}
	return Coerce(v, t)
}

// WalkRaw follows p through JSON text one component at a time.
func WalkRaw(raw []byte, p jsonpath.Path) (gjson.Result, bool) {
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, false
	}
	cur := gjson.ParseBytes(raw)
	for i := 0; i < p.Len(); i++ {
		c := p.At(i)
		switch c.Kind {
		case jsonpath.KeyComponent:
			if !cur.IsObject() {
				return gjson.Result{}, false
			}
			var found gjson.Result
			var ok bool
			cur.ForEach(func(key, value gjson.Result) bool {
				// Last duplicate wins, matching encoding/json.
				if key.Str == c.Key {
					found, ok = value, true
				}
				return true
			})
			if !ok {
				return gjson.Result{}, false
			}
			cur = found
		case jsonpath.IndexComponent:
			if !cur.IsArray() {
				return gjson.Result{}, false
			}
			items := cur.Array()
			idx, ok := ResolveIndex(len(items), c.Index)
			if !ok {
				return gjson.Result{}, false
			}
			cur = items[idx]
		}
	}
	return cur, cur.Exists()
}

// ResultValue converts a located gjson result into a Value.
func ResultValue(res gjson.Result) ir.Value {
	switch res.Type {
	case gjson.Null:
		return ir.Null{}
	case gjson.True:
		return ir.Bool(true)
	case gjson.False:
		return ir.Bool(false)
	case gjson.String:
		return ir.String(res.Str)
	case gjson.Number, gjson.JSON:
		v, err := ir.ParseJSON([]byte(res.Raw))
		if err != nil {
			return ir.Null{}
		}
		return v
	}
	return ir.Null{}
}

// DecodeRaw decodes stored JSON text, treating invalid text as null.
func DecodeRaw(raw []byte) ir.Value {
	if len(raw) == 0 {
		return ir.Null{}
	}
	v, err := ir.ParseJSON(raw)
	if err != nil {
		return ir.Null{}
	}
	return v
}
