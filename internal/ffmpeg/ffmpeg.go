package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/keagan/slopcannon/internal/config"
	"github.com/rs/zerolog"
)

// Executor runs ffmpeg and ffprobe for media analysis
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	threads     int
}

// New creates a new ffmpeg executor. Binary paths from cfg are resolved
// through PATH; empty paths fall back to "ffmpeg" and "ffprobe".
func New(logger zerolog.Logger, cfg config.FFmpegConfig) (*Executor, error) {
	ffmpegPath, err := exec.LookPath(orDefault(cfg.BinaryPath, "ffmpeg"))
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	ffprobePath, err := exec.LookPath(orDefault(cfg.ProbePath, "ffprobe"))
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	return &Executor{
		logger:      logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		threads:     cfg.Threads,
	}, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Run executes ffmpeg with the given arguments, handing every output line
// to opts.LogHandler
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	if len(opts.Args) == 0 {
		return fmt.Errorf("no arguments provided")
	}

	args := e.buildArgs(opts.Args)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	// filter output (silencedetect, ametadata) arrives on stderr
	go func() {
		defer wg.Done()
		streamLines(stderr, opts.LogHandler)
	}()

	go func() {
		defer wg.Done()
		streamLines(stdout, opts.LogHandler)
	}()

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() == context.Canceled {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg execution failed: %w", err)
	}

	e.logger.Debug().Msg("ffmpeg execution completed")
	return nil
}

// buildArgs puts the global flags, threads included, ahead of the caller's
func (e *Executor) buildArgs(args []string) []string {
	out := []string{"-y", "-hide_banner", "-loglevel", "info"}
	if e.threads > 0 {
		out = append(out, "-threads", fmt.Sprintf("%d", e.threads))
	}
	return append(out, args...)
}

// streamLines drains r, passing each line to handler when one is set
func streamLines(r io.Reader, handler func(string)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if handler != nil {
			handler(scanner.Text())
		}
	}
}
