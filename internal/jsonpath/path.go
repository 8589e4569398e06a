package jsonpath

import (
	"strconv"
	"strings"
)

// ComponentKind discriminates the two kinds of path step.
type ComponentKind int

const (
	// KeyComponent selects an object field by name.
	KeyComponent ComponentKind = iota
	// IndexComponent selects an array element; negative values count from the end.
	IndexComponent
)

// Component is a single step of a Path.
type Component struct {
	Kind  ComponentKind
	Key   string
	Index int
}

// Key returns a field step.
func Key(name string) Component {
	return Component{Kind: KeyComponent, Key: name}
}

// Index returns an array element step.
func Index(i int) Component {
	return Component{Kind: IndexComponent, Index: i}
}

// Path is an immutable parsed path expression rooted at '$'.
// The zero value is the root path.
type Path struct {
	components []Component
}

// Root returns the path addressing the whole value.
func Root() Path {
	return Path{}
}

// Parse parses a path string.
//
// Parsing is referentially transparent: the same input always yields an equal
// Path or the same error message.
func Parse(path string) (Path, error) {
	if path == "" || path[0] != '$' {
		return Path{}, errMissingRoot(path)
	}
	if path == "$" || path == "$." {
		return Path{}, nil
	}

	var comps []Component
	i := 1
	for i < len(path) {
		switch path[i] {
		case '.':
			i++
			if i >= len(path) {
				return Path{}, errSyntax(path, "unexpected end after '.'")
			}
			if path[i] == '.' {
				return Path{}, errSyntax(path, "recursive descent is not supported")
			}
			if path[i] == '[' {
				return Path{}, errSyntax(path, "unexpected '[' after '.' at position %d", i)
			}
			start := i
			for i < len(path) && path[i] != '.' && path[i] != '[' {
				i++
			}
			key := path[start:i]
			if key == "*" {
				return Path{}, errSyntax(path, "wildcards are not supported")
			}
			comps = append(comps, Key(key))
		case '[':
			c, n, err := parseBracket(path, i)
			if err != nil {
				return Path{}, err
			}
			comps = append(comps, c)
			i += n
		default:
			return Path{}, errSyntax(path, "unexpected character '%c' at position %d", path[i], i)
		}
	}
	return Path{components: comps}, nil
}

// MustParse is like Parse but panics on error.
// Use only in tests or with constant paths.
func MustParse(path string) Path {
	p, err := Parse(path)
	if err != nil {
		panic(err)
	}
	return p
}

// parseBracket parses a bracket step starting at path[start] == '['.
// Returns the component and the number of bytes consumed.
func parseBracket(path string, start int) (Component, int, error) {
	i := start + 1
	if i >= len(path) {
		return Component{}, 0, errSyntax(path, "unclosed '['")
	}

	if q := path[i]; q == '\'' || q == '"' {
		var sb strings.Builder
		i++
		for {
			if i >= len(path) {
				return Component{}, 0, errSyntax(path, "unterminated quoted key")
			}
			c := path[i]
			if c == '\\' && i+1 < len(path) {
				sb.WriteByte(path[i+1])
				i += 2
				continue
			}
			if c == q {
				break
			}
			sb.WriteByte(c)
			i++
		}
		i++ // closing quote
		if i >= len(path) || path[i] != ']' {
			return Component{}, 0, errSyntax(path, "expected ']' after quoted key")
		}
		return Key(sb.String()), i + 1 - start, nil
	}

	end := strings.IndexByte(path[i:], ']')
	if end < 0 {
		return Component{}, 0, errSyntax(path, "unclosed '['")
	}
	inner := strings.TrimSpace(path[i : i+end])
	if inner == "*" {
		return Component{}, 0, errSyntax(path, "wildcards are not supported")
	}
	if strings.ContainsAny(inner, ":,?") {
		return Component{}, 0, errSyntax(path, "slices, unions and filters are not supported")
	}
	idx, err := strconv.Atoi(inner)
	if err != nil {
		return Component{}, 0, errSyntax(path, "array index [%s] is not an integer", inner)
	}
	return Index(idx), i + end + 1 - start, nil
}

// Components returns a copy of the path's steps.
func (p Path) Components() []Component {
	out := make([]Component, len(p.components))
	copy(out, p.components)
	return out
}

// Len returns the number of steps.
func (p Path) Len() int {
	return len(p.components)
}

// At returns the i-th step.
func (p Path) At(i int) Component {
	return p.components[i]
}

// IsRoot reports whether the path addresses the whole value.
func (p Path) IsRoot() bool {
	return len(p.components) == 0
}

// HasNegativeIndex reports whether any step counts from the end of an array.
func (p Path) HasNegativeIndex() bool {
	for _, c := range p.components {
		if c.Kind == IndexComponent && c.Index < 0 {
			return true
		}
	}
	return false
}

// Child returns a new path with a field step appended.
func (p Path) Child(key string) Path {
	return p.with(Key(key))
}

// Element returns a new path with an array step appended.
func (p Path) Element(i int) Path {
	return p.with(Index(i))
}

func (p Path) with(c Component) Path {
	comps := make([]Component, len(p.components), len(p.components)+1)
	copy(comps, p.components)
	return Path{components: append(comps, c)}
}

// Equal reports whether both paths have the same component sequence.
func (p Path) Equal(o Path) bool {
	if len(p.components) != len(o.components) {
		return false
	}
	for i, c := range p.components {
		if c != o.components[i] {
			return false
		}
	}
	return true
}

// String renders the normalized form of the path.
// Parse(p.String()) is always equal to p.
func (p Path) String() string {
	var sb strings.Builder
	sb.WriteByte('$')
	for _, c := range p.components {
		switch c.Kind {
		case KeyComponent:
			if isPlainKey(c.Key) {
				sb.WriteByte('.')
				sb.WriteString(c.Key)
				continue
			}
			sb.WriteString("['")
			for i := 0; i < len(c.Key); i++ {
				if c.Key[i] == '\'' || c.Key[i] == '\\' {
					sb.WriteByte('\\')
				}
				sb.WriteByte(c.Key[i])
			}
			sb.WriteString("']")
		case IndexComponent:
			sb.WriteByte('[')
			sb.WriteString(strconv.Itoa(c.Index))
			sb.WriteByte(']')
		}
	}
	return sb.String()
}

func isPlainKey(key string) bool {
	if key == "" || key == "*" {
		return false
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}
