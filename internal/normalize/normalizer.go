// Package normalize turns collaborator output (transcript words, loudness
// envelope, silence spans and debounced vision events) into one
// time-ordered signal stream.
package normalize

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/keagan/slopcannon/internal/config"
	"github.com/keagan/slopcannon/internal/logging"
	"github.com/keagan/slopcannon/internal/signals"
	"github.com/keagan/slopcannon/internal/transcript"
	"github.com/rs/zerolog"
)

// LoudnessSample is one point of the loudness envelope. Level is linear
// amplitude, typically RMS in [0, 1].
type LoudnessSample struct {
	Time  float64 `json:"time" yaml:"time"`
	Level float64 `json:"level" yaml:"level"`
}

// Silence is a silent span reported by the audio collaborator
type Silence struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

// Input bundles the pre-sorted collaborator streams for one video
type Input struct {
	Words    []transcript.Word
	Segments []transcript.Segment
	Loudness []LoudnessSample
	Silences []Silence
	Vision   []signals.SignalEvent

	// EmitReactions derives Reaction events from volume spikes and
	// exclamations for the narrative curator.
	EmitReactions bool
}

// Normalizer is the SignalNormalizer stage
type Normalizer struct {
	logger        zerolog.Logger
	cfg           config.NormalizeConfig
	keywords      []string
	questionWords map[string]struct{}
}

// New creates a normalizer
func New(logger zerolog.Logger, cfg config.NormalizeConfig) *Normalizer {
	n := &Normalizer{
		logger:        logging.ForStage(logger, signals.StageNormalizer),
		cfg:           cfg,
		questionWords: make(map[string]struct{}, len(cfg.QuestionWords)),
	}
	for _, kw := range cfg.Keywords {
		kw = strings.ToLower(strings.Trim(kw, "?!.,"))
		if kw != "" {
			n.keywords = append(n.keywords, kw)
		}
	}
	for _, q := range cfg.QuestionWords {
		n.questionWords[strings.ToLower(q)] = struct{}{}
	}
	return n
}

// Normalize merges every input stream into one sorted event list
func (n *Normalizer) Normalize(in Input) ([]signals.SignalEvent, error) {
	events, _, err := n.Process(in)
	return events, err
}

// Process is Normalize that also returns the utterances the text events
// were built from
func (n *Normalizer) Process(in Input) ([]signals.SignalEvent, []transcript.Segment, error) {
	segments, err := n.Segments(in)
	if err != nil {
		return nil, nil, err
	}

	var events []signals.SignalEvent

	textEvents := n.textEvents(segments)
	events = append(events, textEvents...)

	spikes, err := n.volumeSpikes(in.Loudness)
	if err != nil {
		return nil, nil, err
	}
	events = append(events, spikes...)

	pauses, err := n.pauses(in.Silences, in.Loudness)
	if err != nil {
		return nil, nil, err
	}
	events = append(events, pauses...)

	if in.EmitReactions {
		events = append(events, reactions(textEvents, spikes)...)
	}

	if err := validateVision(in.Vision); err != nil {
		return nil, nil, err
	}
	events = append(events, in.Vision...)

	signals.SortEvents(events)

	n.logger.Debug().
		Int("segments", len(segments)).
		Int("text", len(textEvents)).
		Int("spikes", len(spikes)).
		Int("pauses", len(pauses)).
		Int("vision", len(in.Vision)).
		Int("total", len(events)).
		Msg("signals normalized")

	return events, segments, nil
}

// Segments returns the utterances the text stream is built from: explicit
// segments when given, otherwise words grouped on pauses and sentence ends
func (n *Normalizer) Segments(in Input) ([]transcript.Segment, error) {
	if len(in.Segments) > 0 {
		if err := transcript.ValidateSegments(in.Segments); err != nil {
			return nil, err
		}
		return in.Segments, nil
	}
	if err := transcript.ValidateWords(in.Words); err != nil {
		return nil, err
	}
	return transcript.Utterances(in.Words, n.cfg.UtteranceGap), nil
}

func (n *Normalizer) textEvents(segments []transcript.Segment) []signals.SignalEvent {
	var events []signals.SignalEvent

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		lower := strings.ToLower(text)
		tokens := tokenize(lower)

		base := signals.SignalEvent{
			Timestamp:  seg.Start,
			Duration:   seg.End - seg.Start,
			Strength:   1.0,
			SourceText: text,
		}

		if n.isQuestion(lower, tokens) {
			ev := base
			ev.Category = signals.CategoryQuestion
			events = append(events, ev)
		}

		present := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			present[tok] = struct{}{}
		}
		for _, kw := range n.keywords {
			if _, ok := present[kw]; ok {
				ev := base
				ev.Category = signals.CategoryKeyword
				events = append(events, ev)
			}
		}

		if strings.Contains(lower, "!") {
			ev := base
			ev.Category = signals.CategoryExclamation
			events = append(events, ev)
		}
	}

	return events
}

func (n *Normalizer) isQuestion(lower string, tokens []string) bool {
	if strings.HasSuffix(lower, "?") {
		return true
	}
	if len(tokens) == 0 {
		return false
	}
	_, ok := n.questionWords[tokens[0]]
	return ok
}

// tokenize lowercases and strips punctuation, keeping word characters and
// apostrophes
func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '_')
	})
}

// volumeSpikes marks samples whose level exceeds the trailing rolling mean
// by more than SpikeStddevs standard deviations. Adjacent spiking samples
// form one event.
func (n *Normalizer) volumeSpikes(samples []LoudnessSample) ([]signals.SignalEvent, error) {
	if err := validateLoudness(samples); err != nil {
		return nil, err
	}

	var events []signals.SignalEvent
	k := n.cfg.SpikeStddevs

	var sum, sumSq float64
	lo := 0

	inSpike := false
	var spikeStart, spikeEnd, peakZ float64

	closeSpike := func() {
		if inSpike {
			events = append(events, signals.SignalEvent{
				Timestamp: spikeStart,
				Duration:  spikeEnd - spikeStart,
				Category:  signals.CategoryVolumeSpike,
				Strength:  signals.Clamp01(peakZ / (2 * k)),
			})
			inSpike = false
		}
	}

	for i, s := range samples {
		for lo < i && samples[lo].Time < s.Time-n.cfg.SpikeWindow {
			sum -= samples[lo].Level
			sumSq -= samples[lo].Level * samples[lo].Level
			lo++
		}

		count := float64(i - lo)
		spiking := false
		var z float64
		if count >= 2 {
			mean := sum / count
			variance := sumSq/count - mean*mean
			std := math.Sqrt(math.Max(variance, 0))
			if std < 1e-9 {
				std = 1e-9
			}
			z = (s.Level - mean) / std
			spiking = z > k
		}

		if spiking {
			if !inSpike {
				inSpike = true
				spikeStart = s.Time
				peakZ = z
			}
			spikeEnd = s.Time
			if z > peakZ {
				peakZ = z
			}
		} else {
			closeSpike()
		}

		sum += s.Level
		sumSq += s.Level * s.Level
	}
	closeSpike()

	return events, nil
}

// pauses converts silence spans into Pause events. Explicit silences from
// the collaborator win over spans derived from the loudness envelope.
func (n *Normalizer) pauses(silences []Silence, samples []LoudnessSample) ([]signals.SignalEvent, error) {
	spans := silences
	if len(spans) == 0 {
		spans = silentSpans(samples, n.cfg.SilenceLevel)
	} else if err := validateSilences(spans); err != nil {
		return nil, err
	}

	var events []signals.SignalEvent
	for _, sp := range spans {
		if sp.End-sp.Start < n.cfg.MinPause || sp.End <= sp.Start {
			continue
		}
		events = append(events, signals.SignalEvent{
			Timestamp: sp.Start,
			Duration:  sp.End - sp.Start,
			Category:  signals.CategoryPause,
			Strength:  1.0,
		})
	}
	return events, nil
}

func silentSpans(samples []LoudnessSample, level float64) []Silence {
	var spans []Silence
	start := -1
	for i, s := range samples {
		if s.Level < level {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			spans = append(spans, Silence{Start: samples[start].Time, End: s.Time})
			start = -1
		}
	}
	if start >= 0 {
		spans = append(spans, Silence{Start: samples[start].Time, End: samples[len(samples)-1].Time})
	}
	return spans
}

func reactions(text, spikes []signals.SignalEvent) []signals.SignalEvent {
	var out []signals.SignalEvent
	for _, e := range text {
		if e.Category == signals.CategoryExclamation {
			r := e
			r.Category = signals.CategoryReaction
			out = append(out, r)
		}
	}
	for _, e := range spikes {
		r := e
		r.Category = signals.CategoryReaction
		out = append(out, r)
	}
	return out
}

func validateLoudness(samples []LoudnessSample) error {
	for i, s := range samples {
		if math.IsNaN(s.Level) || math.IsNaN(s.Time) {
			return malformed("loudness", i, "NaN sample")
		}
		if i > 0 && s.Time < samples[i-1].Time {
			return malformed("loudness", i, fmt.Sprintf("time %.3f before previous %.3f", s.Time, samples[i-1].Time))
		}
	}
	return nil
}

func validateSilences(spans []Silence) error {
	for i, s := range spans {
		if s.End < s.Start {
			return malformed("silences", i, fmt.Sprintf("end %.3f before start %.3f", s.End, s.Start))
		}
		if i > 0 && s.Start < spans[i-1].Start {
			return malformed("silences", i, fmt.Sprintf("start %.3f before previous %.3f", s.Start, spans[i-1].Start))
		}
	}
	return nil
}

func validateVision(events []signals.SignalEvent) error {
	for i, e := range events {
		if !e.Category.IsVision() {
			return malformed("vision", i, fmt.Sprintf("unexpected category %s", e.Category))
		}
		if i > 0 && e.Timestamp < events[i-1].Timestamp {
			return malformed("vision", i, fmt.Sprintf("timestamp %.3f before previous %.3f", e.Timestamp, events[i-1].Timestamp))
		}
	}
	return nil
}

func malformed(stream string, index int, reason string) error {
	return &signals.MalformedSignalError{
		Stage:  signals.StageNormalizer,
		Stream: stream,
		Index:  index,
		Reason: reason,
	}
}
