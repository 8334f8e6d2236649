package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/keagan/slopcannon/internal/normalize"
)

// envelopeSampleRate is the rate audio is resampled to before measuring RMS
const envelopeSampleRate = 8000

// DefaultAnalysisOptions mirrors the config defaults
func DefaultAnalysisOptions() AnalysisOptions {
	return AnalysisOptions{
		WindowMs:   100,
		SilenceDB:  -35,
		MinSilence: 1.0,
	}
}

// DetectSilence finds silent spans in an audio or video file
func (e *Executor) DetectSilence(ctx context.Context, input string, noiseThreshold float64, minDuration float64) ([]normalize.Silence, error) {
	e.logger.Info().
		Str("input", input).
		Float64("noise_threshold", noiseThreshold).
		Float64("min_duration", minDuration).
		Msg("detecting silence")

	output, err := e.runAnalysis(ctx, "silence detection", []string{
		"-i", input,
		"-vn",
		"-af", fmt.Sprintf("silencedetect=noise=%.6fdB:d=%.6f", noiseThreshold, minDuration),
		"-f", "null",
		"-",
	})
	if err != nil {
		return nil, err
	}

	return parseSilenceOutput(output), nil
}

// parseSilenceOutput extracts silence spans from ffmpeg output
func parseSilenceOutput(output string) []normalize.Silence {
	var spans []normalize.Silence
	var currentStart float64

	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "silence_start:") {
			parts := strings.Split(line, "silence_start:")
			if len(parts) == 2 {
				currentStart, _ = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			}
		} else if strings.Contains(line, "silence_end:") {
			parts := strings.Split(line, "silence_end:")
			if len(parts) != 2 {
				continue
			}
			fields := strings.Fields(strings.TrimSpace(parts[1]))
			if len(fields) == 0 {
				continue
			}
			end, err := strconv.ParseFloat(fields[0], 64)
			if err != nil {
				continue
			}
			// silencedetect can report a slightly negative start at t=0
			spans = append(spans, normalize.Silence{Start: math.Max(currentStart, 0), End: end})
		}
	}

	return spans
}

// LoudnessEnvelope measures RMS level over consecutive windows of windowMs
// and returns linear amplitudes in [0, 1], one sample per window
func (e *Executor) LoudnessEnvelope(ctx context.Context, input string, windowMs int) ([]normalize.LoudnessSample, error) {
	if windowMs <= 0 {
		return nil, fmt.Errorf("window must be positive, got %dms", windowMs)
	}

	e.logger.Info().
		Str("input", input).
		Int("window_ms", windowMs).
		Msg("measuring loudness envelope")

	samples := envelopeSampleRate * windowMs / 1000
	filter := fmt.Sprintf(
		"aresample=%d,asetnsamples=n=%d:p=0,astats=metadata=1:reset=1,ametadata=print:key=lavfi.astats.Overall.RMS_level",
		envelopeSampleRate, samples,
	)

	output, err := e.runAnalysis(ctx, "loudness envelope", []string{
		"-i", input,
		"-vn",
		"-af", filter,
		"-f", "null",
		"-",
	})
	if err != nil {
		return nil, err
	}

	return parseEnvelopeOutput(output), nil
}

// parseEnvelopeOutput pairs each ametadata pts_time line with the RMS level
// that follows it. Levels are dBFS; -inf maps to zero.
func parseEnvelopeOutput(output string) []normalize.LoudnessSample {
	var out []normalize.LoudnessSample
	current := math.NaN()

	for _, line := range strings.Split(output, "\n") {
		if i := strings.Index(line, "pts_time:"); i >= 0 {
			fields := strings.Fields(line[i+len("pts_time:"):])
			if len(fields) == 0 {
				continue
			}
			if t, err := strconv.ParseFloat(fields[0], 64); err == nil {
				current = t
			}
			continue
		}

		i := strings.Index(line, "RMS_level=")
		if i < 0 || math.IsNaN(current) {
			continue
		}
		value := strings.TrimSpace(line[i+len("RMS_level="):])

		level := 0.0
		if db, err := strconv.ParseFloat(value, 64); err == nil && !math.IsInf(db, 0) {
			level = math.Min(math.Pow(10, db/20), 1)
		}
		out = append(out, normalize.LoudnessSample{Time: current, Level: level})
		current = math.NaN()
	}

	return out
}

// Features is the audio side of a collaborator bundle
type Features struct {
	Info     *VideoInfo
	Loudness []normalize.LoudnessSample
	Silences []normalize.Silence
}

// Analyze probes input and extracts the loudness envelope and silences
func (e *Executor) Analyze(ctx context.Context, input string, opts AnalysisOptions) (*Features, error) {
	info, err := e.ProbeVideo(ctx, input)
	if err != nil {
		return nil, err
	}

	features := &Features{Info: info}
	if !info.HasAudio {
		e.logger.Warn().Str("input", input).Msg("no audio stream, skipping audio analysis")
		return features, nil
	}

	if features.Loudness, err = e.LoudnessEnvelope(ctx, input, opts.WindowMs); err != nil {
		return nil, err
	}
	if features.Silences, err = e.DetectSilence(ctx, input, opts.SilenceDB, opts.MinSilence); err != nil {
		return nil, err
	}

	return features, nil
}

// runAnalysis runs a null-output ffmpeg pass and returns its stderr
func (e *Executor) runAnalysis(ctx context.Context, what string, args []string) (string, error) {
	var stderrBuf bytes.Buffer
	var mu sync.Mutex

	opts := RunOptions{
		Args: args,
		LogHandler: func(line string) {
			mu.Lock()
			stderrBuf.WriteString(line + "\n")
			mu.Unlock()
		},
	}

	err := e.Run(ctx, opts)

	mu.Lock()
	output := stderrBuf.String()
	mu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// null muxer quirks are harmless
		if !strings.Contains(err.Error(), "Conversion failed") &&
			!strings.Contains(err.Error(), "Invalid return value") &&
			!strings.Contains(err.Error(), "Output file is empty") {
			return "", fmt.Errorf("%s failed: %w", what, err)
		}
	}

	if output == "" {
		return "", fmt.Errorf("%s produced no output", what)
	}

	return output, nil
}
