package signals

import (
	"errors"
	"fmt"
	"testing"
)

func TestSortEventsVisionFirstOnTies(t *testing.T) {
	events := []SignalEvent{
		{Timestamp: 5, Category: CategoryReaction},
		{Timestamp: 5, Category: CategoryVisionKill},
		{Timestamp: 1, Category: CategoryPause},
		{Timestamp: 5, Category: CategoryVisionHeadshot},
	}

	SortEvents(events)

	want := []Category{CategoryPause, CategoryVisionHeadshot, CategoryVisionKill, CategoryReaction}
	for i, c := range want {
		if events[i].Category != c {
			t.Errorf("position %d: expected %s, got %s", i, c, events[i].Category)
		}
	}
}

func TestIntervalOverlaps(t *testing.T) {
	a := Interval{Start: 0, End: 30}

	if !a.Overlaps(Interval{Start: 29, End: 40}) {
		t.Error("expected overlap for intervals sharing one second")
	}
	if a.Overlaps(Interval{Start: 30, End: 60}) {
		t.Error("touching intervals must not overlap")
	}
	if !a.Contains(0) || a.Contains(30) {
		t.Error("Contains must be half-open")
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories {
		got, err := ParseCategory(string(c))
		if err != nil || got != c {
			t.Errorf("ParseCategory(%q) = %q, %v", c, got, err)
		}
	}
	if _, err := ParseCategory("laugh"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestStageOf(t *testing.T) {
	err := fmt.Errorf("run: %w", &MalformedSignalError{Stage: StageDebouncer, Reason: "bad"})

	stage, ok := StageOf(err)
	if !ok || stage != StageDebouncer {
		t.Errorf("expected debouncer stage, got %q (%v)", stage, ok)
	}
	if !errors.Is(err, ErrMalformedSignal) {
		t.Error("expected errors.Is to match ErrMalformedSignal")
	}

	cfgErr := &ConfigurationError{Stage: StageConfig, Field: "window.length", Reason: "must be positive"}
	if !errors.Is(cfgErr, ErrConfiguration) {
		t.Error("expected errors.Is to match ErrConfiguration")
	}
	if _, ok := StageOf(errors.New("plain")); ok {
		t.Error("plain errors carry no stage")
	}
}

func TestNarrativeChainHelpers(t *testing.T) {
	chain := NarrativeChain{Events: []SignalEvent{
		{Category: CategoryVisionKill},
		{Category: CategoryVisionHeadshot, Unconfirmed: true},
		{Category: CategoryReaction},
	}}

	if chain.KillCount() != 2 {
		t.Errorf("expected 2 kills, got %d", chain.KillCount())
	}
	if chain.HasHeadshot() {
		t.Error("unconfirmed headshots do not count")
	}
}
