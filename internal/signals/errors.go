package signals

import (
	"errors"
	"fmt"
)

// Stage names the engine component that raised an error
type Stage string

const (
	StageConfig     Stage = "config"
	StageNormalizer Stage = "normalizer"
	StageDebouncer  Stage = "debouncer"
	StageScorer     Stage = "scorer"
	StageCurator    Stage = "curator"
	StageRefiner    Stage = "refiner"
)

var (
	ErrMalformedSignal    = errors.New("malformed signal")
	ErrConfiguration      = errors.New("invalid configuration")
	ErrInsufficientSignal = errors.New("insufficient signal")
)

// MalformedSignalError reports an input stream that is out of order or
// otherwise unusable. It aborts the run.
type MalformedSignalError struct {
	Stage  Stage
	Stream string
	Index  int
	Reason string
}

func (e *MalformedSignalError) Error() string {
	if e.Stream == "" {
		return fmt.Sprintf("%s: malformed signal: %s", e.Stage, e.Reason)
	}
	return fmt.Sprintf("%s: malformed %s stream at index %d: %s", e.Stage, e.Stream, e.Index, e.Reason)
}

func (e *MalformedSignalError) Unwrap() error { return ErrMalformedSignal }

// ConfigurationError reports an invalid parameter. Values are never clamped.
type ConfigurationError struct {
	Stage  Stage
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: invalid configuration %s: %s", e.Stage, e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// InsufficientSignalWarning is returned alongside a valid, possibly empty,
// result when the stream is too sparse to curate from.
type InsufficientSignalWarning struct {
	Stage    Stage
	Events   int
	Duration float64
	Density  float64
}

func (w *InsufficientSignalWarning) Error() string {
	return fmt.Sprintf("%s: insufficient signal: %d events over %.1fs (%.2f/min)",
		w.Stage, w.Events, w.Duration, w.Density)
}

func (w *InsufficientSignalWarning) Unwrap() error { return ErrInsufficientSignal }

// StageOf extracts the stage from any engine error in the chain
func StageOf(err error) (Stage, bool) {
	var m *MalformedSignalError
	if errors.As(err, &m) {
		return m.Stage, true
	}
	var c *ConfigurationError
	if errors.As(err, &c) {
		return c.Stage, true
	}
	var w *InsufficientSignalWarning
	if errors.As(err, &w) {
		return w.Stage, true
	}
	return "", false
}
