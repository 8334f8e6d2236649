package pipeline

import (
	"context"
	"fmt"

	"github.com/keagan/slopcannon/internal/clips"
	"github.com/keagan/slopcannon/internal/config"
	"github.com/keagan/slopcannon/internal/curate"
	"github.com/keagan/slopcannon/internal/debounce"
	"github.com/keagan/slopcannon/internal/normalize"
	"github.com/keagan/slopcannon/internal/overlays"
	"github.com/keagan/slopcannon/internal/refine"
	"github.com/keagan/slopcannon/internal/scoring"
	"github.com/keagan/slopcannon/internal/signals"
	"github.com/keagan/slopcannon/internal/transcript"
	"github.com/rs/zerolog"
)

// Pipeline orchestrates one curation run from raw signals to ranked clips
type Pipeline struct {
	logger  zerolog.Logger
	cfg     config.CurationConfig
	scorer  *scoring.Scorer
	refiner *refine.Refiner
}

// New validates cfg and creates a pipeline instance
func New(logger zerolog.Logger, cfg config.CurationConfig) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	overrides, err := cfg.WeightTable()
	if err != nil {
		return nil, err
	}
	scorer, err := scoring.NewScorer(scoring.Merge(scoring.DefaultWeights(cfg.Mode), overrides))
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		logger:  logger.With().Str("component", "pipeline").Logger(),
		cfg:     cfg,
		scorer:  scorer,
		refiner: refine.New(logger, cfg.Refine),
	}, nil
}

// Mode reports the curation strategy in use
func (p *Pipeline) Mode() signals.Mode {
	return p.cfg.Mode
}

// Run executes every stage on in. A non-nil error is always fatal;
// sparse input yields a valid result carrying warnings instead.
func (p *Pipeline) Run(ctx context.Context, in *Input) (*Result, error) {
	if in == nil {
		in = &Input{}
	}

	p.logger.Info().
		Str("mode", string(p.cfg.Mode)).
		Str("media", in.Media).
		Msg("starting curation pipeline")

	// Stage 1: collapse raw detections
	vision := append([]signals.SignalEvent(nil), in.Vision...)
	dcfg := p.cfg.Debounce
	if p.cfg.Mode == signals.ModeSpecialized && in.FPS > 0 {
		dcfg.FrameRate = in.FPS
		if err := p.checkFrameRate(dcfg); err != nil {
			return nil, err
		}
	}
	if p.cfg.Mode == signals.ModeSpecialized && len(in.Detections) > 0 {
		debounced, err := debounce.New(p.logger, dcfg).Debounce(in.Detections)
		if err != nil {
			return nil, err
		}
		vision = append(vision, debounced...)
		signals.SortEvents(vision)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("curation cancelled: %w", err)
	}

	// Stage 2: normalize every stream into one ordered event list
	normalizer := normalize.New(p.logger, p.cfg.Normalize)
	ninput := normalize.Input{
		Words:         in.Words,
		Segments:      in.Segments,
		Loudness:      in.Loudness,
		Silences:      in.Silences,
		Vision:        vision,
		EmitReactions: p.cfg.Mode == signals.ModeSpecialized,
	}
	events, segments, err := normalizer.Process(ninput)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("curation cancelled: %w", err)
	}

	// Stage 3: weight
	scored := p.scorer.Apply(events)
	duration := timelineLength(in.Duration, scored)

	result := &Result{
		Mode:     p.cfg.Mode,
		Duration: duration,
		Events:   scored,
		Clips:    make([]*clips.Clip, 0),
	}
	if w := p.densityWarning(scored, duration); w != nil {
		p.logger.Warn().Err(w).Msg("sparse signal stream")
		result.Warnings = append(result.Warnings, w)
	}

	// Stage 4: curate, stage 5: refine
	boundaries := transcript.NewBoundaries(segments)
	switch p.cfg.Mode {
	case signals.ModeSpecialized:
		result.Chains = curate.NewNarrativeCurator(p.logger, p.cfg.Narrative).Curate(scored, in.Duration)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("curation cancelled: %w", err)
		}
		if err := p.chainClips(result, boundaries, in.Duration); err != nil {
			return nil, err
		}
	default:
		ranked := curate.NewWindowCurator(p.logger, p.cfg.Window).Ranked(scored, in.Duration)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("curation cancelled: %w", err)
		}
		if err := p.windowClips(result, ranked, boundaries, in.Duration); err != nil {
			return nil, err
		}
	}

	p.logger.Info().
		Int("events", len(result.Events)).
		Int("candidates", len(result.Candidates)).
		Int("chains", len(result.Chains)).
		Int("clips", len(result.Clips)).
		Int("warnings", len(result.Warnings)).
		Msg("curation pipeline complete")

	return result, nil
}

// windowClips walks the ranked windows best first, skipping any that
// overlap a window already taken, until TargetClips clips exist. A refined
// interval that would reach into an accepted clip falls back to its raw
// window; when even that collides the next-ranked window takes its place.
// Accepted windows are recorded as the result's candidates.
func (p *Pipeline) windowClips(result *Result, ranked []signals.ScoredCandidate, b *transcript.Boundaries, duration float64) error {
	target := p.cfg.Window.TargetClips
	result.Candidates = make([]signals.ScoredCandidate, 0)

	var taken, accepted []signals.Interval
	for _, c := range ranked {
		if target > 0 && len(result.Clips) >= target {
			break
		}
		if overlapsAny(c.Interval, taken) {
			continue
		}

		iv, err := p.refiner.Refine(c.Interval, b, duration)
		if err != nil {
			return err
		}
		if overlapsAny(iv, accepted) {
			iv = c.Interval
			if overlapsAny(iv, accepted) {
				p.logger.Debug().Stringer("interval", c.Interval).Msg("window collides after refinement, trying next")
				continue
			}
		}
		taken = append(taken, c.Interval)
		accepted = append(accepted, iv)
		result.Candidates = append(result.Candidates, c)

		clip := clips.New(p.cfg.Mode, len(result.Clips)+1, iv, c.Score)
		clip.Events = c.Events
		clip.Hints = overlays.ForCandidate(c)
		clip.Metadata["window_start"] = c.Interval.Start
		clip.Metadata["window_end"] = c.Interval.End
		result.Clips = append(result.Clips, clip)
	}

	p.logger.Debug().
		Int("windows", len(ranked)).
		Int("selected", len(result.Candidates)).
		Msg("windows selected")
	return nil
}

// chainClips refines every chain. Narratives may overlap, so no
// exclusivity is enforced.
func (p *Pipeline) chainClips(result *Result, b *transcript.Boundaries, duration float64) error {
	for _, chain := range result.Chains {
		iv, err := p.refiner.Refine(chain.Interval, b, duration)
		if err != nil {
			return err
		}

		clip := clips.New(p.cfg.Mode, len(result.Clips)+1, iv, chain.Score)
		clip.Pattern = chain.Pattern
		clip.Events = chain.Events
		clip.Hints = overlays.ForChain(chain)
		clip.Metadata["kills"] = chain.KillCount()
		clip.Metadata["headshot"] = chain.HasHeadshot()
		result.Clips = append(result.Clips, clip)
	}
	return nil
}

// checkFrameRate re-validates the debounce window once the media frame rate
// has replaced the configured one
func (p *Pipeline) checkFrameRate(dcfg config.DebounceConfig) error {
	window := dcfg.WindowSeconds()
	if dcfg.FrameRate > 0 && window < p.cfg.Narrative.ChainWindow {
		return nil
	}
	return &signals.ConfigurationError{
		Stage: signals.StageDebouncer,
		Field: "debounce.frame_rate",
		Reason: fmt.Sprintf("debounce window %.3fs at %.3f fps must be shorter than chain window %.3fs",
			window, dcfg.FrameRate, p.cfg.Narrative.ChainWindow),
	}
}

// densityWarning fires when events per minute fall below MinDensity
func (p *Pipeline) densityWarning(events []signals.SignalEvent, duration float64) *signals.InsufficientSignalWarning {
	density := 0.0
	if duration > 0 {
		density = float64(len(events)) / (duration / 60)
	}
	if len(events) > 0 && density >= p.cfg.MinDensity {
		return nil
	}
	return &signals.InsufficientSignalWarning{
		Stage:    signals.StageScorer,
		Events:   len(events),
		Duration: duration,
		Density:  density,
	}
}

// timelineLength is the media duration, or the last event end when unknown
func timelineLength(duration float64, events []signals.SignalEvent) float64 {
	if duration > 0 {
		return duration
	}
	for _, e := range events {
		if e.End() > duration {
			duration = e.End()
		}
	}
	return duration
}

func overlapsAny(iv signals.Interval, others []signals.Interval) bool {
	for _, o := range others {
		if iv.Overlaps(o) {
			return true
		}
	}
	return false
}
