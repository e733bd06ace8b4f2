package message

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestParseComponentDropsEmptySegments(t *testing.T) {
	tests := []struct {
		in   string
		want string
		n    int
	}{
		{"database/backup", "database/backup", 2},
		{"/database//backup/", "database/backup", 2},
		{"", "", 0},
		{"///", "", 0},
		{"a", "a", 1},
	}
	for _, tt := range tests {
		c := ParseComponent(tt.in)
		if c.String() != tt.want || c.Len() != tt.n {
			t.Fatalf("ParseComponent(%q) = %q (%d parts), want %q (%d)", tt.in, c.String(), c.Len(), tt.want, tt.n)
		}
	}
}

func TestComponentIsChildOf(t *testing.T) {
	tests := []struct {
		name   string
		child  string
		parent string
		want   bool
	}{
		{"self", "a/b", "a/b", true},
		{"deeper", "a/b/c", "a/b", true},
		{"root", "root/sub/block", "root", true},
		{"parent trailing slash", "root/sub/block", "root/sub/", true},
		{"shallower", "a/b", "a/b/c", false},
		{"no partial segment", "ab", "a", false},
		{"sibling", "database/uptime", "database/backup", false},
		{"unrelated", "scraperpi", "scraperpi/services", false},
		{"empty parent", "anything/at/all", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseComponent(tt.child).IsChildOf(ParseComponent(tt.parent))
			if got != tt.want {
				t.Fatalf("%q.IsChildOf(%q) = %v, want %v", tt.child, tt.parent, got, tt.want)
			}
		})
	}
}

func TestComponentTextRoundTrip(t *testing.T) {
	var c Component
	if err := c.UnmarshalText([]byte("db//backup")); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	b, _ := c.MarshalText()
	if string(b) != "db/backup" {
		t.Fatalf("marshal = %q", b)
	}
}

func TestComponentProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	segments := gen.SliceOf(gen.Identifier())

	properties.Property("is_child_of is reflexive", prop.ForAll(
		func(parts []string) bool {
			c := ParseComponent(strings.Join(parts, "/"))
			return c.IsChildOf(c)
		},
		segments,
	))

	properties.Property("extending a component yields a child, never a parent", prop.ForAll(
		func(base []string, extra string) bool {
			parent := ParseComponent(strings.Join(base, "/"))
			child := ParseComponent(strings.Join(append(append([]string(nil), base...), extra), "/"))
			return child.IsChildOf(parent) && !parent.IsChildOf(child)
		},
		segments,
		gen.Identifier(),
	))

	properties.Property("appending characters to a segment breaks the relation", prop.ForAll(
		func(seg, suffix string) bool {
			return !ParseComponent(seg + suffix).IsChildOf(ParseComponent(seg))
		},
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
