package signals

import (
	"fmt"
	"sort"
)

// Category classifies a signal event
type Category string

const (
	CategoryQuestion       Category = "question"
	CategoryKeyword        Category = "keyword"
	CategoryExclamation    Category = "exclamation"
	CategoryVolumeSpike    Category = "volume_spike"
	CategoryPause          Category = "pause"
	CategoryVisionKill     Category = "vision_kill"
	CategoryVisionHeadshot Category = "vision_headshot"
	CategoryReaction       Category = "reaction"
)

// Categories lists every known category in declaration order
var Categories = []Category{
	CategoryQuestion,
	CategoryKeyword,
	CategoryExclamation,
	CategoryVolumeSpike,
	CategoryPause,
	CategoryVisionKill,
	CategoryVisionHeadshot,
	CategoryReaction,
}

// ParseCategory resolves a category name
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown signal category %q", s)
}

// IsVision reports whether the category comes from the vision collaborator
func (c Category) IsVision() bool {
	return c == CategoryVisionKill || c == CategoryVisionHeadshot
}

// IsKill reports whether the category marks a kill (headshots are kills too)
func (c Category) IsKill() bool {
	return c.IsVision()
}

// Priority orders categories that share a timestamp. Vision events sort
// first since they are already deduplicated.
func (c Category) Priority() int {
	switch c {
	case CategoryVisionHeadshot:
		return 0
	case CategoryVisionKill:
		return 1
	case CategoryReaction:
		return 2
	case CategoryVolumeSpike:
		return 3
	case CategoryExclamation:
		return 4
	case CategoryQuestion:
		return 5
	case CategoryKeyword:
		return 6
	case CategoryPause:
		return 7
	default:
		return 8
	}
}

// SignalEvent is a timestamped, categorized unit of evidence that a moment
// may be engaging. Values are never mutated after construction.
type SignalEvent struct {
	Timestamp   float64  `json:"timestamp" yaml:"timestamp"`
	Duration    float64  `json:"duration" yaml:"duration"`
	Category    Category `json:"category" yaml:"category"`
	Strength    float64  `json:"strength" yaml:"strength"`
	SourceText  string   `json:"source_text,omitempty" yaml:"source_text,omitempty"`
	Unconfirmed bool     `json:"unconfirmed,omitempty" yaml:"unconfirmed,omitempty"`
}

// End returns the time the event stops
func (e SignalEvent) End() float64 {
	return e.Timestamp + e.Duration
}

// WithStrength returns a copy of the event carrying a new strength
func (e SignalEvent) WithStrength(s float64) SignalEvent {
	e.Strength = s
	return e
}

// Less is the canonical event order: timestamp, then category priority,
// then category name.
func Less(a, b SignalEvent) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	if pa, pb := a.Category.Priority(), b.Category.Priority(); pa != pb {
		return pa < pb
	}
	return a.Category < b.Category
}

// SortEvents sorts events in place into canonical order
func SortEvents(events []SignalEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return Less(events[i], events[j])
	})
}

// DetectionKind is the icon a raw vision detection matched
type DetectionKind string

const (
	DetectionKill     DetectionKind = "kill"
	DetectionHeadshot DetectionKind = "headshot"
)

// RawDetection is one per-frame template match before debouncing
type RawDetection struct {
	FrameIndex int           `json:"frame_index" yaml:"frame_index"`
	MatchScore float64       `json:"match_score" yaml:"match_score"`
	Kind       DetectionKind `json:"kind" yaml:"kind"`
}

// Interval is a candidate or final clip window in seconds
type Interval struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

// Duration returns End-Start
func (iv Interval) Duration() float64 {
	return iv.End - iv.Start
}

// Valid reports whether End > Start
func (iv Interval) Valid() bool {
	return iv.End > iv.Start
}

// Overlaps reports whether two intervals share any time. Touching
// endpoints do not count.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

// Contains reports whether t lies in [Start, End)
func (iv Interval) Contains(t float64) bool {
	return t >= iv.Start && t < iv.End
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%.3f, %.3f)", iv.Start, iv.End)
}

// ScoredCandidate is a window chosen by the window curator
type ScoredCandidate struct {
	Interval Interval      `json:"interval"`
	Score    float64       `json:"score"`
	Events   []SignalEvent `json:"contributing_events"`
}

// Pattern identifies a narrative shape
type Pattern string

const (
	PatternMultiKill    Pattern = "multi_kill"
	PatternReactionKill Pattern = "reaction_kill"
)

// NarrativeChain is an ordered group of related events forming a pattern
type NarrativeChain struct {
	Events   []SignalEvent `json:"events"`
	Pattern  Pattern       `json:"pattern"`
	Score    float64       `json:"score"`
	Interval Interval      `json:"interval"`
}

// HasHeadshot reports whether any confirmed headshot contributes to the chain
func (c NarrativeChain) HasHeadshot() bool {
	for _, e := range c.Events {
		if e.Category == CategoryVisionHeadshot && !e.Unconfirmed {
			return true
		}
	}
	return false
}

// KillCount returns the number of kill events in the chain
func (c NarrativeChain) KillCount() int {
	n := 0
	for _, e := range c.Events {
		if e.Category.IsKill() {
			n++
		}
	}
	return n
}

// Mode selects the curation strategy
type Mode string

const (
	ModeGeneral     Mode = "general"
	ModeSpecialized Mode = "specialized"
)

// ParseMode resolves a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeGeneral, ModeSpecialized:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown curation mode %q", s)
}

// Clamp01 limits v to [0, 1]
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
