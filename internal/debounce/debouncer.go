package debounce

import (
	"fmt"
	"math"

	"github.com/keagan/slopcannon/internal/config"
	"github.com/keagan/slopcannon/internal/logging"
	"github.com/keagan/slopcannon/internal/signals"
	"github.com/rs/zerolog"
)

// Debouncer collapses bursts of per-frame detections into discrete events
type Debouncer struct {
	logger zerolog.Logger
	cfg    config.DebounceConfig
}

// New creates a debouncer
func New(logger zerolog.Logger, cfg config.DebounceConfig) *Debouncer {
	return &Debouncer{
		logger: logging.ForStage(logger, signals.StageDebouncer),
		cfg:    cfg,
	}
}

// span is one closed run of positive detections
type span struct {
	kind       signals.DetectionKind
	startFrame int
	lastFrame  int
	peakScore  float64
}

// run is the rolling state for a single detection kind
type run struct {
	active     bool
	startFrame int
	lastFrame  int
	peakScore  float64

	seen      bool
	prevFrame int
}

// observe feeds one positive detection into the run and returns the span
// it closed, if any.
func (r *run) observe(kind signals.DetectionKind, frame int, score float64, window int) (span, bool) {
	var closed span
	didClose := false

	if r.active && frame-r.lastFrame > window {
		closed = r.close(kind)
		didClose = true
	}

	if !r.active {
		r.active = true
		r.startFrame = frame
		r.lastFrame = frame
		r.peakScore = score
		return closed, didClose
	}

	r.lastFrame = frame
	if score > r.peakScore {
		r.peakScore = score
	}
	return closed, didClose
}

func (r *run) close(kind signals.DetectionKind) span {
	s := span{kind: kind, startFrame: r.startFrame, lastFrame: r.lastFrame, peakScore: r.peakScore}
	r.active = false
	return s
}

// Debounce converts raw detections into kill and headshot events. Frames
// must be strictly increasing within each kind.
func (d *Debouncer) Debounce(detections []signals.RawDetection) ([]signals.SignalEvent, error) {
	runs := map[signals.DetectionKind]*run{
		signals.DetectionKill:     {},
		signals.DetectionHeadshot: {},
	}
	var kills, headshots []span

	collect := func(s span) {
		if s.kind == signals.DetectionKill {
			kills = append(kills, s)
		} else {
			headshots = append(headshots, s)
		}
	}

	positives := 0
	for i, det := range detections {
		r, ok := runs[det.Kind]
		if !ok {
			return nil, malformed(i, fmt.Sprintf("unknown detection kind %q", det.Kind))
		}
		if det.FrameIndex < 0 {
			return nil, malformed(i, fmt.Sprintf("negative frame index %d", det.FrameIndex))
		}
		if math.IsNaN(det.MatchScore) {
			return nil, malformed(i, "NaN match score")
		}
		if r.seen && det.FrameIndex <= r.prevFrame {
			return nil, malformed(i, fmt.Sprintf("%s frame %d not after %d", det.Kind, det.FrameIndex, r.prevFrame))
		}
		r.seen = true
		r.prevFrame = det.FrameIndex

		if det.MatchScore < d.cfg.MatchThreshold {
			continue
		}
		positives++

		if s, closed := r.observe(det.Kind, det.FrameIndex, det.MatchScore, d.cfg.WindowFrames); closed {
			collect(s)
		}
	}

	// flush runs still open at stream end
	for _, kind := range []signals.DetectionKind{signals.DetectionKill, signals.DetectionHeadshot} {
		if r := runs[kind]; r.active {
			collect(r.close(kind))
		}
	}

	events := d.qualify(kills, headshots)
	signals.SortEvents(events)

	d.logger.Debug().
		Int("detections", len(detections)).
		Int("positive", positives).
		Int("kills", len(kills)).
		Int("headshots", len(headshots)).
		Int("events", len(events)).
		Msg("detections debounced")

	return events, nil
}

// qualify pairs each headshot with the nearest kill inside the tolerance
// window. A paired headshot absorbs its kill; an unpaired one is kept at
// reduced strength and flagged unconfirmed.
func (d *Debouncer) qualify(kills, headshots []span) []signals.SignalEvent {
	absorbed := make([]bool, len(kills))
	events := make([]signals.SignalEvent, 0, len(kills)+len(headshots))

	for _, h := range headshots {
		ht := d.frameTime(h.startFrame)
		best := -1
		bestGap := math.Inf(1)
		for i, k := range kills {
			if absorbed[i] {
				continue
			}
			gap := math.Abs(d.frameTime(k.startFrame) - ht)
			if gap <= d.cfg.HeadshotTolerance && gap < bestGap {
				best = i
				bestGap = gap
			}
		}

		if best < 0 {
			ev := d.event(h, signals.CategoryVisionHeadshot)
			ev.Strength = signals.Clamp01(ev.Strength * d.cfg.UnconfirmedScale)
			ev.Unconfirmed = true
			events = append(events, ev)
			continue
		}

		absorbed[best] = true
		k := kills[best]
		merged := span{
			kind:       signals.DetectionHeadshot,
			startFrame: minInt(h.startFrame, k.startFrame),
			lastFrame:  maxInt(h.lastFrame, k.lastFrame),
			peakScore:  math.Max(h.peakScore, k.peakScore),
		}
		events = append(events, d.event(merged, signals.CategoryVisionHeadshot))
	}

	for i, k := range kills {
		if !absorbed[i] {
			events = append(events, d.event(k, signals.CategoryVisionKill))
		}
	}

	return events
}

func (d *Debouncer) event(s span, category signals.Category) signals.SignalEvent {
	start := d.frameTime(s.startFrame)
	return signals.SignalEvent{
		Timestamp: start,
		Duration:  d.frameTime(s.lastFrame) - start,
		Category:  category,
		Strength:  signals.Clamp01(s.peakScore),
	}
}

func (d *Debouncer) frameTime(frame int) float64 {
	return float64(frame) / d.cfg.FrameRate
}

func malformed(index int, reason string) error {
	return &signals.MalformedSignalError{
		Stage:  signals.StageDebouncer,
		Stream: "detections",
		Index:  index,
		Reason: reason,
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
