package ir

import (
	"fmt"
	"strings"
)

// ExtractionType is the closed set of concrete types an extraction operator
// can be fixed at.
type ExtractionType int

const (
	Unknown ExtractionType = iota
	LongType
	DoubleType
	StringType
	LongArrayType
	DoubleArrayType
	StringArrayType
	ObjectType
)

var typeNames = [...]string{
	Unknown:         "UNKNOWN",
	LongType:        "LONG",
	DoubleType:      "DOUBLE",
	StringType:      "STRING",
	LongArrayType:   "ARRAY<LONG>",
	DoubleArrayType: "ARRAY<DOUBLE>",
	StringArrayType: "ARRAY<STRING>",
	ObjectType:      "COMPLEX<json>",
}

// String returns the native type name, e.g. LONG or ARRAY<STRING>.
func (t ExtractionType) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("ExtractionType(%d)", int(t))
	}
	return typeNames[t]
}

// MarshalText renders the native type name for JSON and YAML encoding.
func (t ExtractionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts any name understood by ParseExtractionType.
func (t *ExtractionType) UnmarshalText(b []byte) error {
	parsed, err := ParseExtractionType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// IsArray reports whether t is one of the array types.
func (t ExtractionType) IsArray() bool {
	return t == LongArrayType || t == DoubleArrayType || t == StringArrayType
}

// IsScalar reports whether t is LONG, DOUBLE or STRING.
func (t ExtractionType) IsScalar() bool {
	return t == LongType || t == DoubleType || t == StringType
}

// IsNumeric reports whether t is LONG or DOUBLE.
func (t ExtractionType) IsNumeric() bool {
	return t == LongType || t == DoubleType
}

// ElementType returns the element type of an array type, or t itself.
func (t ExtractionType) ElementType() ExtractionType {
	switch t {
	case LongArrayType:
		return LongType
	case DoubleArrayType:
		return DoubleType
	case StringArrayType:
		return StringType
	}
	return t
}

// ArrayOf returns the array type for a scalar element type.
// Non-scalar inputs are returned unchanged.
func ArrayOf(t ExtractionType) ExtractionType {
	switch t {
	case LongType:
		return LongArrayType
	case DoubleType:
		return DoubleArrayType
	case StringType:
		return StringArrayType
	}
	return t
}

// ParseExtractionType parses a native type name or a SQL type name.
func ParseExtractionType(s string) (ExtractionType, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range typeNames {
		if strings.EqualFold(n, name) {
			return ExtractionType(i), nil
		}
	}

	if elem, ok := strings.CutSuffix(name, " ARRAY"); ok {
		t, err := ParseExtractionType(elem)
		if err != nil || !t.IsScalar() {
			return Unknown, fmt.Errorf("unsupported array type %q", s)
		}
		return ArrayOf(t), nil
	}
	if strings.HasPrefix(name, "ARRAY<") && strings.HasSuffix(name, ">") {
		t, err := ParseExtractionType(name[len("ARRAY<") : len(name)-1])
		if err != nil || !t.IsScalar() {
			return Unknown, fmt.Errorf("unsupported array type %q", s)
		}
		return ArrayOf(t), nil
	}

	switch name {
	case "BIGINT", "INTEGER", "INT", "SMALLINT", "TINYINT", "BOOLEAN":
		return LongType, nil
	case "FLOAT", "REAL", "DECIMAL", "NUMERIC":
		return DoubleType, nil
	case "VARCHAR", "CHAR", "TEXT":
		return StringType, nil
	case "JSON", "NESTED", "COMPLEX<JSON>":
		return ObjectType, nil
	}
	return Unknown, fmt.Errorf("unknown type %q", s)
}

// Join returns the least restrictive type both a and b coerce to.
//
//	equal         => same
//	Unknown       => the other side
//	Long, Double  => Double
//	scalar,String => String
//	arrays        => array of the joined element
//	array, scalar => array of the joined element
//	any, Object   => Object
func Join(a, b ExtractionType) ExtractionType {
	switch {
	case a == b:
		return a
	case a == Unknown:
		return b
	case b == Unknown:
		return a
	case a == ObjectType || b == ObjectType:
		return ObjectType
	case a.IsArray() || b.IsArray():
		return ArrayOf(joinScalar(a.ElementType(), b.ElementType()))
	}
	return joinScalar(a, b)
}

func joinScalar(a, b ExtractionType) ExtractionType {
	if a == b {
		return a
	}
	if a == StringType || b == StringType {
		return StringType
	}
	return DoubleType
}

// TypeOf returns the type a stored value naturally reports.
// Booleans report LONG; arrays report the array of their joined element
// type, arrays holding objects or nested arrays report COMPLEX<json>.
func TypeOf(v Value) ExtractionType {
	switch val := v.(type) {
	case nil, Null:
		return Unknown
	case String:
		return StringType
	case Long, Bool:
		return LongType
	case Double:
		return DoubleType
	case Object:
		return ObjectType
	case Array:
		elem := Unknown
		for _, item := range val {
			t := TypeOf(item)
			if t == ObjectType || t.IsArray() {
				return ObjectType
			}
			elem = Join(elem, t)
		}
		if elem == Unknown {
			// Arrays of nulls or empty arrays still report an array.
			return StringArrayType
		}
		return ArrayOf(elem)
	}
	return Unknown
}

// TypeSet is a set of concrete extraction types observed at one path.
// The zero value is the empty set.
type TypeSet uint16

// NewTypeSet builds a set from the given types; Unknown is ignored.
func NewTypeSet(types ...ExtractionType) TypeSet {
	var s TypeSet
	for _, t := range types {
		s = s.Add(t)
	}
	return s
}

// Add returns s with t included. Adding Unknown is a no-op.
func (s TypeSet) Add(t ExtractionType) TypeSet {
	if t == Unknown {
		return s
	}
	return s | 1<<uint(t)
}

// Union returns the union of both sets.
func (s TypeSet) Union(o TypeSet) TypeSet {
	return s | o
}

// Has reports whether t is in the set.
func (s TypeSet) Has(t ExtractionType) bool {
	return s&(1<<uint(t)) != 0
}

// Len returns the number of distinct types.
func (s TypeSet) Len() int {
	return len(s.Types())
}

// Single returns the only type in the set.
func (s TypeSet) Single() (ExtractionType, bool) {
	types := s.Types()
	if len(types) != 1 {
		return Unknown, false
	}
	return types[0], true
}

// Types returns the members in enum order.
func (s TypeSet) Types() []ExtractionType {
	var out []ExtractionType
	for t := LongType; t <= ObjectType; t++ {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

// Join folds every member through Join.
func (s TypeSet) Join() ExtractionType {
	out := Unknown
	for _, t := range s.Types() {
		out = Join(out, t)
	}
	return out
}

// String renders the set as VARIANT<A,B> or the single member.
func (s TypeSet) String() string {
	types := s.Types()
	switch len(types) {
	case 0:
		return Unknown.String()
	case 1:
		return types[0].String()
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return "VARIANT<" + strings.Join(names, ",") + ">"
}
