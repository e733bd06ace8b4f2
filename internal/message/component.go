package message

import "strings"

// Component is a hierarchical topic tag such as "database/backup".
//
// It is parsed by splitting on '/' and dropping empty segments, so
// "a//b/" and "a/b" are the same component. A Component is immutable.
type Component struct {
	parts []string
}

func ParseComponent(s string) Component {
	raw := strings.Split(s, "/")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p == "" {
			continue
		}
		parts = append(parts, p)
	}
	return Component{parts: parts}
}

// NewComponent is a convenience for ParseComponent returning a pointer,
// which is how optional components are carried around.
func NewComponent(s string) *Component {
	c := ParseComponent(s)
	return &c
}

// Parts returns a copy of the path segments.
func (c Component) Parts() []string { return append([]string(nil), c.parts...) }

func (c Component) Len() int { return len(c.parts) }

// IsChildOf reports whether c sits at or below parent in the hierarchy.
// Segments are compared whole: "ab" is not a child of "a".
func (c Component) IsChildOf(parent Component) bool {
	if len(parent.parts) > len(c.parts) {
		return false
	}
	for i, p := range parent.parts {
		if c.parts[i] != p {
			return false
		}
	}
	return true
}

func (c Component) Equal(o Component) bool {
	return len(c.parts) == len(o.parts) && c.IsChildOf(o)
}

func (c Component) String() string { return strings.Join(c.parts, "/") }

func (c Component) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Component) UnmarshalText(b []byte) error {
	*c = ParseComponent(string(b))
	return nil
}
