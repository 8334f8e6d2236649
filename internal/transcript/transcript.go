package transcript

import (
	"fmt"
	"sort"
	"strings"

	"github.com/keagan/slopcannon/internal/signals"
)

// Word is one timestamped token from the transcription collaborator
type Word struct {
	Word       string  `json:"word" yaml:"word"`
	Start      float64 `json:"start" yaml:"start"`
	End        float64 `json:"end" yaml:"end"`
	Confidence float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
}

// Segment is a sentence or utterance span
type Segment struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
	Text  string  `json:"text" yaml:"text"`
	Words []Word  `json:"words,omitempty" yaml:"words,omitempty"`
}

// ValidateWords checks that words are in start order with non-negative spans
func ValidateWords(words []Word) error {
	for i, w := range words {
		if w.End < w.Start {
			return malformed("words", i, fmt.Sprintf("end %.3f before start %.3f", w.End, w.Start))
		}
		if i > 0 && w.Start < words[i-1].Start {
			return malformed("words", i, fmt.Sprintf("start %.3f before previous %.3f", w.Start, words[i-1].Start))
		}
	}
	return nil
}

// ValidateSegments checks that segments are in start order with positive spans
func ValidateSegments(segments []Segment) error {
	for i, s := range segments {
		if s.End < s.Start {
			return malformed("segments", i, fmt.Sprintf("end %.3f before start %.3f", s.End, s.Start))
		}
		if i > 0 && s.Start < segments[i-1].Start {
			return malformed("segments", i, fmt.Sprintf("start %.3f before previous %.3f", s.Start, segments[i-1].Start))
		}
	}
	return nil
}

// Utterances groups words into sentences. A sentence ends on a pause longer
// than gap or after sentence-final punctuation.
func Utterances(words []Word, gap float64) []Segment {
	var segments []Segment
	var current *Segment

	flush := func() {
		if current != nil {
			segments = append(segments, *current)
			current = nil
		}
	}

	for _, w := range words {
		token := strings.TrimSpace(w.Word)
		if token == "" {
			continue
		}

		if current != nil && w.Start-current.End > gap {
			flush()
		}

		if current == nil {
			current = &Segment{Start: w.Start, End: w.End, Text: token}
		} else {
			current.End = w.End
			current.Text += " " + token
		}
		current.Words = append(current.Words, w)

		if endsSentence(token) {
			flush()
		}
	}
	flush()

	return segments
}

func endsSentence(token string) bool {
	return strings.HasSuffix(token, ".") || strings.HasSuffix(token, "?") || strings.HasSuffix(token, "!")
}

// Boundaries indexes utterance spans for snapping clip edges
type Boundaries struct {
	segments []Segment
}

// NewBoundaries builds a boundary index. Zero-length segments are dropped.
func NewBoundaries(segments []Segment) *Boundaries {
	kept := make([]Segment, 0, len(segments))
	for _, s := range segments {
		if s.End > s.Start {
			kept = append(kept, Segment{Start: s.Start, End: s.End, Text: s.Text})
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })
	return &Boundaries{segments: kept}
}

// Empty reports whether there is no usable boundary
func (b *Boundaries) Empty() bool {
	return b == nil || len(b.segments) == 0
}

// Len returns the number of utterances
func (b *Boundaries) Len() int {
	if b == nil {
		return 0
	}
	return len(b.segments)
}

// Containing returns the utterance strictly containing t, i.e.
// Start < t < End. Points on an edge are already boundaries.
func (b *Boundaries) Containing(t float64) (Segment, bool) {
	if b.Empty() {
		return Segment{}, false
	}
	// segments starting at or after t cannot contain it
	n := sort.Search(len(b.segments), func(i int) bool { return b.segments[i].Start >= t })
	for i := n - 1; i >= 0; i-- {
		if s := b.segments[i]; t < s.End {
			return s, true
		}
	}
	return Segment{}, false
}

// Segments returns a copy of the indexed utterances
func (b *Boundaries) Segments() []Segment {
	if b == nil {
		return nil
	}
	out := make([]Segment, len(b.segments))
	copy(out, b.segments)
	return out
}

func malformed(stream string, index int, reason string) error {
	return &signals.MalformedSignalError{
		Stage:  signals.StageNormalizer,
		Stream: stream,
		Index:  index,
		Reason: reason,
	}
}
