package refine

import (
	"fmt"
	"math"

	"github.com/keagan/slopcannon/internal/config"
	"github.com/keagan/slopcannon/internal/logging"
	"github.com/keagan/slopcannon/internal/signals"
	"github.com/keagan/slopcannon/internal/transcript"
	"github.com/rs/zerolog"
)

// Refiner snaps raw intervals to natural speech boundaries
type Refiner struct {
	logger zerolog.Logger
	cfg    config.RefineConfig
}

// New creates a refiner
func New(logger zerolog.Logger, cfg config.RefineConfig) *Refiner {
	return &Refiner{
		logger: logging.ForStage(logger, signals.StageRefiner),
		cfg:    cfg,
	}
}

// Refine widens iv so it does not cut an utterance in half. Without
// boundaries a fixed symmetric padding is applied instead. The result is at
// least MinClipLength long where the media allows, at most MaxClipLength,
// and clamped to [0, duration]. A duration <= 0 leaves the end unclamped.
func (r *Refiner) Refine(iv signals.Interval, boundaries *transcript.Boundaries, duration float64) (signals.Interval, error) {
	if !iv.Valid() || math.IsNaN(iv.Start) || math.IsNaN(iv.End) {
		return signals.Interval{}, &signals.MalformedSignalError{
			Stage:  signals.StageRefiner,
			Reason: fmt.Sprintf("invalid interval %v", iv),
		}
	}

	out := iv
	if boundaries.Empty() {
		out.Start -= r.cfg.FallbackPadding
		out.End += r.cfg.FallbackPadding
	} else {
		out = r.snap(out, boundaries)
	}

	out = r.clamp(out, duration)
	out = r.ensureMinimum(out, duration)

	if out.Duration() > r.cfg.MaxClipLength {
		out.End = out.Start + r.cfg.MaxClipLength
	}

	r.logger.Debug().
		Float64("start", iv.Start).
		Float64("end", iv.End).
		Float64("refined_start", out.Start).
		Float64("refined_end", out.End).
		Msg("interval refined")

	return out, nil
}

// snap moves a start inside an utterance back to the utterance start and an
// end inside an utterance forward to the utterance end, each only when the
// move fits within MaxExtension. Edges already on a boundary or in a gap
// stay put.
func (r *Refiner) snap(iv signals.Interval, b *transcript.Boundaries) signals.Interval {
	if seg, ok := b.Containing(iv.Start); ok && iv.Start-seg.Start <= r.cfg.MaxExtension {
		iv.Start = seg.Start
	}
	if seg, ok := b.Containing(iv.End); ok && seg.End-iv.End <= r.cfg.MaxExtension {
		iv.End = seg.End
	}
	return iv
}

func (r *Refiner) clamp(iv signals.Interval, duration float64) signals.Interval {
	if iv.Start < 0 {
		iv.Start = 0
	}
	if duration > 0 && iv.End > duration {
		iv.End = duration
	}
	return iv
}

// ensureMinimum grows both sides evenly until MinClipLength is reached. Any
// growth blocked by a media bound spills onto the other side.
func (r *Refiner) ensureMinimum(iv signals.Interval, duration float64) signals.Interval {
	missing := r.cfg.MinClipLength - iv.Duration()
	if missing <= 0 {
		return iv
	}

	half := missing / 2
	iv.Start -= half
	iv.End += half

	if iv.Start < 0 {
		iv.End -= iv.Start
		iv.Start = 0
	}
	if duration > 0 && iv.End > duration {
		iv.Start -= iv.End - duration
		iv.End = duration
		if iv.Start < 0 {
			// media shorter than the minimum
			iv.Start = 0
		}
	}
	return iv
}
