package curate

import (
	"math"
	"testing"

	"github.com/keagan/slopcannon/internal/config"
	"github.com/keagan/slopcannon/internal/signals"
	"github.com/rs/zerolog"
)

func newWindowCurator(length, stride float64, target int) *WindowCurator {
	return NewWindowCurator(zerolog.Nop(), config.WindowConfig{
		Length:            length,
		Stride:            stride,
		TargetClips:       target,
		CooccurrenceBonus: 1.5,
	})
}

func TestEmptyStreamYieldsNoCandidates(t *testing.T) {
	w := newWindowCurator(30, 1, 5)

	got := w.Curate(nil, 600)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", got)
	}
}

func TestCooccurrenceWindowWins(t *testing.T) {
	w := newWindowCurator(30, 1, 5)
	events := []signals.SignalEvent{
		{Timestamp: 10, Category: signals.CategoryExclamation, Strength: 0.8},
		{Timestamp: 12, Category: signals.CategoryVolumeSpike, Strength: 0.6},
		{Timestamp: 80, Category: signals.CategoryKeyword, Strength: 1.0},
	}

	got := w.Curate(events, 120)
	if len(got) != 2 {
		t.Fatalf("expected 2 selected windows, got %d", len(got))
	}

	best := got[0]
	if math.Abs(best.Score-2.1) > 1e-9 {
		t.Errorf("expected score 2.1, got %v", best.Score)
	}
	if best.Interval.Start != 0 || best.Interval.End != 30 {
		t.Errorf("expected window [0,30), got %v", best.Interval)
	}
	if len(best.Events) != 2 {
		t.Errorf("expected 2 contributing events, got %d", len(best.Events))
	}
	if got[1].Score != 1.0 {
		t.Errorf("expected competing window score 1.0, got %v", got[1].Score)
	}
}

func TestSelectedWindowsNeverOverlap(t *testing.T) {
	w := newWindowCurator(20, 0.5, 0)
	var events []signals.SignalEvent
	cats := []signals.Category{signals.CategoryQuestion, signals.CategoryKeyword, signals.CategoryPause}
	for i := 0; i < 60; i++ {
		events = append(events, signals.SignalEvent{
			Timestamp: float64(i*7%300) + 0.25,
			Category:  cats[i%len(cats)],
			Strength:  float64(i%5+1) / 5,
		})
	}
	signals.SortEvents(events)

	got := w.Curate(events, 300)
	if len(got) == 0 {
		t.Fatal("expected candidates")
	}
	for i := range got {
		for j := i + 1; j < len(got); j++ {
			if got[i].Interval.Overlaps(got[j].Interval) {
				t.Errorf("windows %v and %v overlap", got[i].Interval, got[j].Interval)
			}
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("candidates not ranked at %d", i)
		}
	}
}

func TestTargetClipCount(t *testing.T) {
	w := newWindowCurator(10, 10, 2)
	var events []signals.SignalEvent
	for i := 0; i < 10; i++ {
		events = append(events, signals.SignalEvent{Timestamp: float64(i*10 + 1), Category: signals.CategoryKeyword, Strength: 0.4})
	}

	got := w.Curate(events, 100)
	if len(got) != 2 {
		t.Fatalf("expected 2 clips, got %d", len(got))
	}
	// all windows tie, so the earliest ones win
	if got[0].Interval.Start != 0 || got[1].Interval.Start != 10 {
		t.Errorf("expected earliest windows on ties, got %v and %v", got[0].Interval, got[1].Interval)
	}
}

func TestShortTimelineUsesSingleWindow(t *testing.T) {
	w := newWindowCurator(30, 1, 5)
	events := []signals.SignalEvent{{Timestamp: 3, Category: signals.CategoryQuestion, Strength: 0.5}}

	got := w.Curate(events, 12)
	if len(got) != 1 {
		t.Fatalf("expected one window, got %d", len(got))
	}
	if got[0].Interval.End != 12 {
		t.Errorf("expected window clamped to media end, got %v", got[0].Interval)
	}
}

func TestWindowCuratorDeterministic(t *testing.T) {
	w := newWindowCurator(15, 1, 3)
	events := []signals.SignalEvent{
		{Timestamp: 5, Category: signals.CategoryQuestion, Strength: 0.5},
		{Timestamp: 21, Category: signals.CategoryExclamation, Strength: 0.8},
		{Timestamp: 22, Category: signals.CategoryPause, Strength: 0.2},
		{Timestamp: 48, Category: signals.CategoryVolumeSpike, Strength: 0.6},
	}

	a := w.Curate(events, 60)
	b := w.Curate(events, 60)
	if len(a) != len(b) {
		t.Fatal("runs differ in length")
	}
	for i := range a {
		if a[i].Interval != b[i].Interval || a[i].Score != b[i].Score {
			t.Errorf("candidate %d differs", i)
		}
	}
}

func TestEventAtTimelineEndIsCounted(t *testing.T) {
	w := newWindowCurator(30, 1, 0)
	events := []signals.SignalEvent{
		{Timestamp: 10, Category: signals.CategoryExclamation, Strength: 0.8},
		{Timestamp: 100, Category: signals.CategoryVolumeSpike, Strength: 0.6},
	}

	got := w.Curate(events, 0)
	if len(got) != 2 {
		t.Fatalf("expected 2 selected windows, got %d: %+v", len(got), got)
	}
	last := got[1]
	if last.Interval.Start != 70 || last.Interval.End != 100 {
		t.Errorf("expected closing window [70,100], got %v", last.Interval)
	}
	if len(last.Events) != 1 || last.Events[0].Timestamp != 100 {
		t.Errorf("event at the timeline end missing from %+v", last.Events)
	}

	// an inner window keeps its end exclusive
	inner := w.Windows([]signals.SignalEvent{
		{Timestamp: 30, Category: signals.CategoryQuestion, Strength: 1},
		{Timestamp: 60, Category: signals.CategoryQuestion, Strength: 1},
	}, 90)
	for _, c := range inner {
		if c.Interval.Start == 0 && len(c.Events) != 0 {
			t.Errorf("[0,30) must not take the event at 30: %+v", c.Events)
		}
	}
}

func TestRankedKeepsOverlappingWindows(t *testing.T) {
	w := newWindowCurator(30, 10, 1)
	events := []signals.SignalEvent{
		{Timestamp: 25, Category: signals.CategoryExclamation, Strength: 1},
		{Timestamp: 35, Category: signals.CategoryQuestion, Strength: 0.5},
	}

	ranked := w.Ranked(events, 60)
	if len(ranked) != 4 {
		t.Fatalf("expected every occupied window, got %+v", ranked)
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Fatalf("windows out of order at %d: %+v", i, ranked)
		}
	}
	if ranked[0].Interval.Start != 10 {
		t.Errorf("expected [10,40] first, got %v", ranked[0].Interval)
	}
	if len(w.Ranked(nil, 60)) != 0 {
		t.Error("expected no windows without events")
	}
}
