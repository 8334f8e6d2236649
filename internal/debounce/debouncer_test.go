package debounce

import (
	"errors"
	"math"
	"testing"

	"github.com/keagan/slopcannon/internal/config"
	"github.com/keagan/slopcannon/internal/signals"
	"github.com/rs/zerolog"
)

func newTestDebouncer() *Debouncer {
	return New(zerolog.Nop(), config.DefaultCuration().Debounce)
}

func burst(kind signals.DetectionKind, from, count int, score float64) []signals.RawDetection {
	out := make([]signals.RawDetection, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, signals.RawDetection{FrameIndex: from + i, MatchScore: score, Kind: kind})
	}
	return out
}

func TestBurstCollapsesToOneEvent(t *testing.T) {
	d := newTestDebouncer()

	events, err := d.Debounce(burst(signals.DetectionKill, 90, 12, 0.9))
	if err != nil {
		t.Fatalf("Debounce failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Timestamp != 3.0 {
		t.Errorf("expected event at start frame time 3.0s, got %v", events[0].Timestamp)
	}
	if events[0].Category != signals.CategoryVisionKill {
		t.Errorf("expected vision kill, got %s", events[0].Category)
	}
}

func TestSplitBurstsCollapseToTwoEvents(t *testing.T) {
	d := newTestDebouncer()
	dets := append(burst(signals.DetectionKill, 0, 6, 0.9), burst(signals.DetectionKill, 6+15+5, 6, 0.95)...)

	events, err := d.Debounce(dets)
	if err != nil {
		t.Fatalf("Debounce failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[1].Strength != 0.95 {
		t.Errorf("expected peak score as strength, got %v", events[1].Strength)
	}
}

func TestGapEqualToWindowStaysOneEvent(t *testing.T) {
	d := newTestDebouncer()
	dets := []signals.RawDetection{
		{FrameIndex: 10, MatchScore: 0.9, Kind: signals.DetectionKill},
		{FrameIndex: 25, MatchScore: 0.9, Kind: signals.DetectionKill},
	}

	events, err := d.Debounce(dets)
	if err != nil {
		t.Fatalf("Debounce failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("gap equal to the window must not split, got %d events", len(events))
	}
	if math.Abs(events[0].Duration-0.5) > 1e-9 {
		t.Errorf("expected 0.5s duration, got %v", events[0].Duration)
	}
}

func TestBelowThresholdIgnored(t *testing.T) {
	d := newTestDebouncer()
	dets := []signals.RawDetection{
		{FrameIndex: 1, MatchScore: 0.5, Kind: signals.DetectionKill},
		{FrameIndex: 2, MatchScore: 0.84, Kind: signals.DetectionKill},
	}

	events, err := d.Debounce(dets)
	if err != nil {
		t.Fatalf("Debounce failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %+v", events)
	}
}

func TestHeadshotQualification(t *testing.T) {
	d := newTestDebouncer()
	var dets []signals.RawDetection
	// interleave per frame: kill frames 300-309, headshot frames 303-306
	for f := 300; f < 310; f++ {
		dets = append(dets, signals.RawDetection{FrameIndex: f, MatchScore: 0.9, Kind: signals.DetectionKill})
		if f >= 303 && f <= 306 {
			dets = append(dets, signals.RawDetection{FrameIndex: f, MatchScore: 0.97, Kind: signals.DetectionHeadshot})
		}
	}
	// lone headshot far from any kill
	dets = append(dets, burst(signals.DetectionHeadshot, 900, 3, 0.9)...)

	events, err := d.Debounce(dets)
	if err != nil {
		t.Fatalf("Debounce failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected confirmed headshot plus lone headshot, got %+v", events)
	}

	confirmed := events[0]
	if confirmed.Category != signals.CategoryVisionHeadshot || confirmed.Unconfirmed {
		t.Errorf("expected confirmed headshot, got %+v", confirmed)
	}
	if confirmed.Timestamp != 10.0 {
		t.Errorf("expected merged event at kill start 10.0s, got %v", confirmed.Timestamp)
	}
	if confirmed.Strength != 0.97 {
		t.Errorf("expected merged peak strength 0.97, got %v", confirmed.Strength)
	}

	lone := events[1]
	if !lone.Unconfirmed {
		t.Error("expected lone headshot to be unconfirmed")
	}
	if math.Abs(lone.Strength-0.45) > 1e-9 {
		t.Errorf("expected reduced strength 0.45, got %v", lone.Strength)
	}
}

func TestNonMonotonicFramesRejected(t *testing.T) {
	d := newTestDebouncer()
	dets := []signals.RawDetection{
		{FrameIndex: 5, MatchScore: 0.9, Kind: signals.DetectionKill},
		{FrameIndex: 5, MatchScore: 0.9, Kind: signals.DetectionKill},
	}

	_, err := d.Debounce(dets)
	var mErr *signals.MalformedSignalError
	if !errors.As(err, &mErr) {
		t.Fatalf("expected MalformedSignalError, got %v", err)
	}
	if mErr.Stage != signals.StageDebouncer || mErr.Index != 1 {
		t.Errorf("unexpected error detail: %+v", mErr)
	}
}

func TestKindsTrackedIndependently(t *testing.T) {
	d := newTestDebouncer()
	dets := []signals.RawDetection{
		{FrameIndex: 10, MatchScore: 0.9, Kind: signals.DetectionKill},
		{FrameIndex: 8, MatchScore: 0.9, Kind: signals.DetectionHeadshot},
	}

	if _, err := d.Debounce(dets); err != nil {
		t.Fatalf("frames only need to increase within a kind: %v", err)
	}
}

func TestDeterministic(t *testing.T) {
	d := newTestDebouncer()
	dets := append(burst(signals.DetectionKill, 0, 20, 0.9), burst(signals.DetectionHeadshot, 400, 5, 0.9)...)

	a, _ := d.Debounce(dets)
	b, _ := d.Debounce(dets)
	if len(a) != len(b) {
		t.Fatal("runs differ in length")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("event %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}
