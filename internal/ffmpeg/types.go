package ffmpeg

import "time"

// VideoInfo contains metadata about a media file
type VideoInfo struct {
	FilePath   string
	Duration   time.Duration
	Width      int
	Height     int
	FPS        float64
	Bitrate    int64
	VideoCodec string
	HasAudio   bool
	AudioCodec string
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args       []string
	LogHandler func(line string)
}

// AnalysisOptions tunes audio feature extraction
type AnalysisOptions struct {
	// WindowMs is the loudness envelope resolution
	WindowMs int
	// SilenceDB is the silencedetect noise floor
	SilenceDB float64
	// MinSilence is the shortest silence reported, in seconds
	MinSilence float64
}
