package clips

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/keagan/slopcannon/internal/overlays"
	"github.com/keagan/slopcannon/internal/signals"
)

// clipNamespace scopes deterministic clip IDs
var clipNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/keagan/slopcannon/clips"))

// Clip represents a curated video segment handed to the renderer
type Clip struct {
	ID       string                 `json:"id"`
	Rank     int                    `json:"rank"`
	Start    time.Duration          `json:"start"`
	End      time.Duration          `json:"end"`
	Duration time.Duration          `json:"duration"`
	Score    float64                `json:"score"`
	Pattern  signals.Pattern        `json:"pattern,omitempty"`
	Events   []signals.SignalEvent  `json:"events"`
	Hints    []overlays.Hint        `json:"hints,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// New builds a clip from a refined interval. The ID depends only on mode,
// rank and interval, so identical runs produce identical IDs.
func New(mode signals.Mode, rank int, iv signals.Interval, score float64) *Clip {
	start := seconds(iv.Start)
	end := seconds(iv.End)
	return &Clip{
		ID:       ClipID(mode, rank, iv),
		Rank:     rank,
		Start:    start,
		End:      end,
		Duration: end - start,
		Score:    score,
		Metadata: make(map[string]interface{}),
	}
}

// ClipID derives the deterministic identifier for a clip
func ClipID(mode signals.Mode, rank int, iv signals.Interval) string {
	name := fmt.Sprintf("%s/%d/%.3f-%.3f", mode, rank, iv.Start, iv.End)
	return uuid.NewSHA1(clipNamespace, []byte(name)).String()
}

// Interval returns the clip bounds in seconds
func (c *Clip) Interval() signals.Interval {
	return signals.Interval{Start: c.Start.Seconds(), End: c.End.Seconds()}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second)).Round(time.Millisecond)
}

// Manager holds the ranked clips of one run
type Manager struct {
	clips []*Clip
}

// NewManager creates a new clip manager
func NewManager() *Manager {
	return &Manager{
		clips: make([]*Clip, 0),
	}
}

// Add appends a clip in rank order
func (m *Manager) Add(clip *Clip) {
	m.clips = append(m.clips, clip)
}

// Get retrieves a clip by ID
func (m *Manager) Get(id string) *Clip {
	for _, clip := range m.clips {
		if clip.ID == id {
			return clip
		}
	}
	return nil
}

// All returns all clips
func (m *Manager) All() []*Clip {
	return m.clips
}

// Top returns at most n clips, best first
func (m *Manager) Top(n int) []*Clip {
	if n <= 0 || n >= len(m.clips) {
		return m.clips
	}
	return m.clips[:n]
}

// Manifest is the renderer-facing description of a curation run
type Manifest struct {
	Source string       `json:"source,omitempty"`
	Mode   signals.Mode `json:"mode"`
	Clips  []*Clip      `json:"clips"`
}

// Manifest snapshots the managed clips
func (m *Manager) Manifest(source string, mode signals.Mode) *Manifest {
	return &Manifest{Source: source, Mode: mode, Clips: m.clips}
}

// Write stores the manifest as indented JSON
func (mf *Manifest) Write(path string) error {
	data, err := json.MarshalIndent(mf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by Write
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var mf Manifest
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &mf, nil
}
