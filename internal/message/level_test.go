package message

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestLevelOrdering(t *testing.T) {
	order := []Level{Info, Warn, Error, SelfError}
	for i := 1; i < len(order); i++ {
		lo, hi := order[i-1], order[i]
		if !(lo < hi) || !(lo <= hi) || hi < lo || hi <= lo || lo == hi {
			t.Fatalf("%v should be strictly below %v", lo, hi)
		}
		if lo.Compare(hi) != -1 || hi.Compare(lo) != 1 {
			t.Fatalf("Compare(%v, %v) inconsistent", lo, hi)
		}
	}
	if !(Info < SelfInfo && SelfInfo < Warn) {
		t.Fatalf("SelfInfo must sit between Info and Warn")
	}
	if MinLevel() != Info || MaxLevel() != SelfError {
		t.Fatalf("min/max = %v/%v", MinLevel(), MaxLevel())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"info":       Info,
		"INFO":       Info,
		"warning":    Warn,
		"Warn":       Warn,
		"error":      Error,
		"self_error": SelfError,
		"SelfError":  SelfError,
		"self-info":  SelfInfo,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("fatal"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestLevelPriorityProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	levels := gen.OneConstOf(Info, SelfInfo, Warn, Error, SelfError)

	properties.Property("comparison operators agree with priority", prop.ForAll(
		func(a, b Level) bool {
			pa, pb := a.Priority(), b.Priority()
			return (a < b) == (pa < pb) &&
				(a <= b) == (pa <= pb) &&
				(a > b) == (pa > pb) &&
				(a == b) == (pa == pb)
		},
		levels, levels,
	))

	properties.Property("every level lies within [min, max]", prop.ForAll(
		func(l Level) bool {
			return MinLevel() <= l && l <= MaxLevel()
		},
		levels,
	))

	properties.TestingRun(t)
}
