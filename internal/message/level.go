package message

import (
	"fmt"
	"strings"
)

// Level is a message severity.
//
// The numeric value of each constant is its priority, so the usual
// comparison operators order levels correctly. Values are assigned
// explicitly (not with iota) so new levels can be slotted in between.
type Level uint8

const (
	Info      Level = 1
	SelfInfo  Level = 2
	Warn      Level = 3
	Error     Level = 4
	SelfError Level = 5
)

// MinLevel is the lowest known level; open-ended range filters start here.
func MinLevel() Level { return Info }

// MaxLevel is the highest known level; open-ended range filters end here.
func MaxLevel() Level { return SelfError }

// Levels lists every known level in priority order.
func Levels() []Level { return []Level{Info, SelfInfo, Warn, Error, SelfError} }

// Priority returns the ordering key of the level.
func (l Level) Priority() int { return int(l) }

// Compare returns -1, 0 or +1 depending on whether l is lower, equal or higher than o.
func (l Level) Compare(o Level) int {
	switch {
	case l.Priority() < o.Priority():
		return -1
	case l.Priority() > o.Priority():
		return 1
	default:
		return 0
	}
}

func (l Level) Valid() bool {
	switch l {
	case Info, SelfInfo, Warn, Error, SelfError:
		return true
	default:
		return false
	}
}

func (l Level) String() string {
	switch l {
	case Info:
		return "Info"
	case SelfInfo:
		return "SelfInfo"
	case Warn:
		return "Warn"
	case Error:
		return "Error"
	case SelfError:
		return "SelfError"
	default:
		return fmt.Sprintf("Level(%d)", uint8(l))
	}
}

// ParseLevel accepts level names case-insensitively; "self_error",
// "self-error" and "selferror" are equivalent.
func ParseLevel(s string) (Level, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer("_", "", "-", "").Replace(k)
	switch k {
	case "info":
		return Info, nil
	case "selfinfo":
		return SelfInfo, nil
	case "warn", "warning":
		return Warn, nil
	case "error":
		return Error, nil
	case "selferror":
		return SelfError, nil
	default:
		return 0, fmt.Errorf("unknown level %q", s)
	}
}

func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid level %d", uint8(l))
	}
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	v, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}
