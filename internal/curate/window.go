// Package curate selects clip-worthy intervals from a scored signal stream.
//
// WindowCurator handles general content with sliding-window density scoring
// and strict non-overlap selection. NarrativeCurator handles gameplay,
// searching for multi-kill and reaction-kill patterns whose intervals may
// overlap.
package curate

import (
	"sort"

	"github.com/keagan/slopcannon/internal/config"
	"github.com/keagan/slopcannon/internal/logging"
	"github.com/keagan/slopcannon/internal/signals"
	"github.com/rs/zerolog"
)

// WindowCurator scores fixed-length windows and picks the best
// non-overlapping ones
type WindowCurator struct {
	logger zerolog.Logger
	cfg    config.WindowConfig
}

// NewWindowCurator creates a window curator
func NewWindowCurator(logger zerolog.Logger, cfg config.WindowConfig) *WindowCurator {
	return &WindowCurator{
		logger: logging.ForStage(logger, signals.StageCurator).With().Str("curator", "window").Logger(),
		cfg:    cfg,
	}
}

// Curate returns selected candidates ranked by score. Events must already
// carry weighted strengths and be sorted. duration is the media length in
// seconds; zero means unknown.
func (w *WindowCurator) Curate(events []signals.SignalEvent, duration float64) []signals.ScoredCandidate {
	if len(events) == 0 {
		w.logger.Debug().Msg("no signals, no candidates")
		return []signals.ScoredCandidate{}
	}

	candidates := w.Windows(events, duration)
	selected := SelectNonOverlapping(candidates, w.cfg.TargetClips)

	w.logger.Debug().
		Int("events", len(events)).
		Int("windows", len(candidates)).
		Int("selected", len(selected)).
		Msg("windows curated")

	return selected
}

// Windows scores every window position that contains at least one event.
// Membership is start <= t < end, except that the last window also takes
// events at exactly the timeline end.
func (w *WindowCurator) Windows(events []signals.SignalEvent, duration float64) []signals.ScoredCandidate {
	end := duration
	for _, e := range events {
		if e.End() > end {
			end = e.End()
		}
	}

	var positions []signals.Interval
	if end <= w.cfg.Length {
		// timeline shorter than one window
		single := signals.Interval{Start: 0, End: w.cfg.Length}
		if duration > 0 {
			single.End = end
		}
		positions = []signals.Interval{single}
	} else {
		for i := 0; ; i++ {
			start := float64(i) * w.cfg.Stride
			if start+w.cfg.Length > end {
				break
			}
			positions = append(positions, signals.Interval{Start: start, End: start + w.cfg.Length})
		}
		// cover the tail when the stride does not land on it
		last := positions[len(positions)-1]
		if last.End < end {
			positions = append(positions, signals.Interval{Start: end - w.cfg.Length, End: end})
		}
	}

	candidates := make([]signals.ScoredCandidate, 0, len(positions))
	lo := 0
	for _, iv := range positions {
		for lo < len(events) && events[lo].Timestamp < iv.Start {
			lo++
		}
		// the window reaching the timeline end is closed so a point event
		// sitting exactly on the end still lands somewhere
		closed := iv.End >= end
		var members []signals.SignalEvent
		for i := lo; i < len(events); i++ {
			t := events[i].Timestamp
			if t > iv.End || (t == iv.End && !closed) {
				break
			}
			members = append(members, events[i])
		}
		if len(members) == 0 {
			continue
		}
		candidates = append(candidates, signals.ScoredCandidate{
			Interval: iv,
			Score:    w.score(members),
			Events:   members,
		})
	}

	return candidates
}

// score sums strengths and applies the co-occurrence bonus when two or more
// distinct categories are present
func (w *WindowCurator) score(members []signals.SignalEvent) float64 {
	var sum float64
	distinct := make(map[signals.Category]struct{}, 4)
	for _, e := range members {
		sum += e.Strength
		distinct[e.Category] = struct{}{}
	}
	if len(distinct) >= 2 {
		sum *= w.cfg.CooccurrenceBonus
	}
	return sum
}

// SelectNonOverlapping greedily keeps the highest-scoring candidates and
// discards anything overlapping an already kept one. Equal scores prefer the
// earlier start. limit <= 0 means no limit.
func SelectNonOverlapping(candidates []signals.ScoredCandidate, limit int) []signals.ScoredCandidate {
	ranked := RankCandidates(candidates)

	selected := make([]signals.ScoredCandidate, 0)
	for _, c := range ranked {
		if limit > 0 && len(selected) >= limit {
			break
		}
		overlaps := false
		for _, s := range selected {
			if c.Interval.Overlaps(s.Interval) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			selected = append(selected, c)
		}
	}
	return selected
}

// RankCandidates returns a copy ordered by score desc, then start asc
func RankCandidates(candidates []signals.ScoredCandidate) []signals.ScoredCandidate {
	ranked := make([]signals.ScoredCandidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Interval.Start < ranked[j].Interval.Start
	})
	return ranked
}

// Ranked returns every scored window, best first, without any overlap
// filtering. Callers that adjust intervals after selection use it to pull
// replacements when an adjusted interval collides.
func (w *WindowCurator) Ranked(events []signals.SignalEvent, duration float64) []signals.ScoredCandidate {
	if len(events) == 0 {
		return []signals.ScoredCandidate{}
	}
	return RankCandidates(w.Windows(events, duration))
}
