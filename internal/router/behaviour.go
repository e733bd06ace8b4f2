package router

import (
	"fmt"
	"strings"
)

// RoutingBehaviour controls when a destination is sent messages and whether
// it receives failure reports.
type RoutingBehaviour uint8

const (
	// Additive destinations are sent every matching message. This is the default.
	Additive RoutingBehaviour = iota
	// Root destinations are sent every matching message plus every failure
	// report. Typically a local log file, something unlikely to fail.
	Root
	// Drain destinations only receive messages that no Additive destination
	// accepted. Useful to catch otherwise unsorted messages.
	Drain
)

// AlwaysSendMessages reports whether the destination takes part in the primary pass.
func (b RoutingBehaviour) AlwaysSendMessages() bool {
	switch b {
	case Root, Additive:
		return true
	default:
		return false
	}
}

// AlwaysReceivesErrors reports whether the destination is an escalation target.
func (b RoutingBehaviour) AlwaysReceivesErrors() bool { return b == Root }

func (b RoutingBehaviour) String() string {
	switch b {
	case Additive:
		return "additive"
	case Root:
		return "root"
	case Drain:
		return "drain"
	default:
		return fmt.Sprintf("behaviour(%d)", uint8(b))
	}
}

// ParseBehaviour accepts "root", "drain" and "additive" in any case.
// An empty string yields the default (Additive).
func ParseBehaviour(s string) (RoutingBehaviour, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "additive":
		return Additive, nil
	case "root":
		return Root, nil
	case "drain":
		return Drain, nil
	default:
		return Additive, fmt.Errorf("unknown routing type %q", s)
	}
}

func (b RoutingBehaviour) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

func (b *RoutingBehaviour) UnmarshalText(p []byte) error {
	v, err := ParseBehaviour(string(p))
	if err != nil {
		return err
	}
	*b = v
	return nil
}
