package message

import (
	"os"
	"strings"
)

// Author identifies who produced a message: the host name followed by
// any caller-supplied parts, e.g. "web01/backup/cron".
type Author struct {
	parts []string
}

var hostname = func() string {
	h, err := os.Hostname()
	if err != nil || strings.TrimSpace(h) == "" {
		return "?"
	}
	return h
}

// BaseAuthor is the host name alone ("?" if it cannot be determined).
func BaseAuthor() Author {
	return Author{parts: []string{hostname()}}
}

// ParseAuthor prefixes the host name to the '/'-separated parts of s.
func ParseAuthor(s string) Author {
	a := BaseAuthor()
	return a.Extend(s)
}

// Extend returns a copy of a with the '/'-separated parts of s appended.
func (a Author) Extend(s string) Author {
	out := Author{parts: append([]string(nil), a.parts...)}
	for _, p := range strings.Split(s, "/") {
		if p != "" {
			out.parts = append(out.parts, p)
		}
	}
	return out
}

func (a Author) IsZero() bool { return len(a.parts) == 0 }

func (a Author) String() string { return strings.Join(a.parts, "/") }
