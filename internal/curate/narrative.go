package curate

import (
	"math"
	"sort"

	"github.com/keagan/slopcannon/internal/config"
	"github.com/keagan/slopcannon/internal/logging"
	"github.com/keagan/slopcannon/internal/signals"
	"github.com/rs/zerolog"
)

// NarrativeCurator finds multi-kill and reaction-kill chains in a gameplay
// event stream. Chains are not filtered for overlap: a kill may belong to
// one multi-kill and still anchor a reaction-kill.
type NarrativeCurator struct {
	logger zerolog.Logger
	cfg    config.NarrativeConfig
}

// NewNarrativeCurator creates a narrative curator
func NewNarrativeCurator(logger zerolog.Logger, cfg config.NarrativeConfig) *NarrativeCurator {
	return &NarrativeCurator{
		logger: logging.ForStage(logger, signals.StageCurator).With().Str("curator", "narrative").Logger(),
		cfg:    cfg,
	}
}

// Curate returns every detected chain ranked by score
func (n *NarrativeCurator) Curate(events []signals.SignalEvent, duration float64) []signals.NarrativeChain {
	chains := make([]signals.NarrativeChain, 0)

	multi := n.multiKills(events, duration)
	reaction := n.reactionKills(events, duration)
	chains = append(chains, multi...)
	chains = append(chains, reaction...)

	RankChains(chains)

	n.logger.Debug().
		Int("events", len(events)).
		Int("multi_kill", len(multi)).
		Int("reaction_kill", len(reaction)).
		Msg("narratives curated")

	return chains
}

// MultiKillScore is base × length^growth, so long chains outscore the sum
// of shorter ones
func (n *NarrativeCurator) MultiKillScore(length int) float64 {
	return n.cfg.BaseKillScore * math.Pow(float64(length), n.cfg.GrowthExponent)
}

// ReactionKillScore is base × reaction strength, boosted for a confirmed
// headshot
func (n *NarrativeCurator) ReactionKillScore(kill, reaction signals.SignalEvent) float64 {
	score := n.cfg.BaseKillScore * reaction.Strength
	if kill.Category == signals.CategoryVisionHeadshot && !kill.Unconfirmed {
		score *= n.cfg.HeadshotBonus
	}
	return score
}

// multiKills partitions kills into maximal runs whose consecutive gaps are
// below the chain window. Each kill joins at most one run.
func (n *NarrativeCurator) multiKills(events []signals.SignalEvent, duration float64) []signals.NarrativeChain {
	var chains []signals.NarrativeChain
	var run []signals.SignalEvent

	closeRun := func() {
		if len(run) >= 2 {
			members := make([]signals.SignalEvent, len(run))
			copy(members, run)
			chains = append(chains, signals.NarrativeChain{
				Events:   members,
				Pattern:  signals.PatternMultiKill,
				Score:    n.MultiKillScore(len(members)),
				Interval: n.interval(members, duration),
			})
		}
		run = run[:0]
	}

	for _, e := range events {
		if !e.Category.IsKill() {
			continue
		}
		if len(run) > 0 && e.Timestamp-run[len(run)-1].Timestamp >= n.cfg.ChainWindow {
			closeRun()
		}
		run = append(run, e)
	}
	closeRun()

	return chains
}

// reactionKills pairs each kill with the first qualifying reaction inside
// the reaction window
func (n *NarrativeCurator) reactionKills(events []signals.SignalEvent, duration float64) []signals.NarrativeChain {
	var chains []signals.NarrativeChain

	for i, kill := range events {
		if !kill.Category.IsKill() {
			continue
		}
		for j := i + 1; j < len(events); j++ {
			next := events[j]
			dt := next.Timestamp - kill.Timestamp
			if dt > n.cfg.ReactionWindow {
				break
			}
			if next.Category != signals.CategoryReaction || dt < 0 {
				continue
			}
			if next.Strength <= n.cfg.MinReactionStrength {
				continue
			}
			members := []signals.SignalEvent{kill, next}
			chains = append(chains, signals.NarrativeChain{
				Events:   members,
				Pattern:  signals.PatternReactionKill,
				Score:    n.ReactionKillScore(kill, next),
				Interval: n.interval(members, duration),
			})
			break
		}
	}

	return chains
}

// interval spans the chain plus fixed padding, clamped to the media
func (n *NarrativeCurator) interval(members []signals.SignalEvent, duration float64) signals.Interval {
	start := members[0].Timestamp
	end := members[0].End()
	for _, e := range members[1:] {
		if e.Timestamp < start {
			start = e.Timestamp
		}
		if e.End() > end {
			end = e.End()
		}
	}

	iv := signals.Interval{
		Start: math.Max(0, start-n.cfg.PrePadding),
		End:   end + n.cfg.PostPadding,
	}
	if duration > 0 && iv.End > duration && duration > iv.Start {
		iv.End = duration
	}
	if !iv.Valid() {
		iv.End = iv.Start + math.Max(n.cfg.PostPadding, 1)
	}
	return iv
}

// RankChains sorts chains by score, then start, then pattern
func RankChains(chains []signals.NarrativeChain) {
	sort.SliceStable(chains, func(i, j int) bool {
		a, b := chains[i], chains[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Interval.Start != b.Interval.Start {
			return a.Interval.Start < b.Interval.Start
		}
		return a.Pattern == signals.PatternMultiKill && b.Pattern != signals.PatternMultiKill
	})
}
