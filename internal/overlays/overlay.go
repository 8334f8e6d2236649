package overlays

import (
	"fmt"
	"sort"

	"github.com/keagan/slopcannon/internal/signals"
)

// Kind is the effect a hint asks the renderer for
type Kind string

const (
	KindText       Kind = "text"
	KindSlowMotion Kind = "slow_motion"
	KindCaption    Kind = "caption"
)

// Hint tells the renderer what to overlay and when, in source seconds
type Hint struct {
	Kind  Kind    `json:"kind" yaml:"kind"`
	Text  string  `json:"text,omitempty" yaml:"text,omitempty"`
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

// slow-motion hints cover this much time around a headshot
const slowMotionSpan = 1.0

// ForChain derives hints from a narrative chain: a banner for the pattern
// and a slow-motion hint around every confirmed headshot
func ForChain(chain signals.NarrativeChain) []Hint {
	var hints []Hint

	switch chain.Pattern {
	case signals.PatternMultiKill:
		text := "MULTI-KILL!"
		if n := chain.KillCount(); n > 2 {
			text = fmt.Sprintf("MULTI-KILL! x%d", n)
		}
		last := chain.Events[len(chain.Events)-1]
		hints = append(hints, Hint{Kind: KindText, Text: text, Start: last.Timestamp, End: chain.Interval.End})
	case signals.PatternReactionKill:
		first := chain.Events[0]
		hints = append(hints, Hint{Kind: KindText, Text: "REACTION!", Start: first.Timestamp, End: chain.Interval.End})
	}

	for _, e := range chain.Events {
		if e.Category == signals.CategoryVisionHeadshot && !e.Unconfirmed {
			hints = append(hints, Hint{
				Kind:  KindSlowMotion,
				Start: clampStart(e.Timestamp-slowMotionSpan/2, chain.Interval.Start),
				End:   e.Timestamp + slowMotionSpan/2,
			})
		}
	}

	return hints
}

// ForCandidate captions a window with its strongest text event
func ForCandidate(candidate signals.ScoredCandidate) []Hint {
	best := -1
	for i, e := range candidate.Events {
		if e.SourceText == "" {
			continue
		}
		if best < 0 || e.Strength > candidate.Events[best].Strength {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	e := candidate.Events[best]
	return []Hint{{Kind: KindCaption, Text: e.SourceText, Start: e.Timestamp, End: e.End()}}
}

func clampStart(t, floor float64) float64 {
	if t < floor {
		return floor
	}
	return t
}

// Registry manages available overlay presets
type Registry struct {
	overlays map[string]string
}

// NewRegistry creates a new overlay registry
func NewRegistry() *Registry {
	r := &Registry{
		overlays: make(map[string]string),
	}
	r.Register(MultiKillBanner, "builtin:multi_kill")
	r.Register(ReactionBanner, "builtin:reaction")
	r.Register(SlowMotion, "builtin:slow_motion")
	return r
}

// Register adds an overlay to the registry
func (r *Registry) Register(name, path string) {
	r.overlays[name] = path
}

// Get retrieves an overlay path by name
func (r *Registry) Get(name string) (string, bool) {
	path, ok := r.overlays[name]
	return path, ok
}

// List returns all registered overlays in name order
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.overlays))
	for name := range r.overlays {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Presets the renderer ships with
var (
	MultiKillBanner = "multi_kill_banner"
	ReactionBanner  = "reaction_banner"
	SlowMotion      = "slow_motion"
)
