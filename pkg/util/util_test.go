package util

import (
	"path/filepath"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00.000"},
		{7250 * time.Millisecond, "00:00:07.250"},
		{82 * time.Second, "00:01:22.000"},
		{time.Hour + 2*time.Minute + 3500*time.Millisecond, "01:02:03.500"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseFrameRate(t *testing.T) {
	if got := ParseFrameRate("60/1"); got != 60 {
		t.Errorf("expected 60, got %v", got)
	}
	for _, bad := range []string{"", "30", "30/0", "x/1"} {
		if got := ParseFrameRate(bad); got != 0 {
			t.Errorf("ParseFrameRate(%q) = %v, want 0", bad, got)
		}
	}
}

func TestResolveRelative(t *testing.T) {
	base := filepath.Join("bundles", "match.yaml")
	if got := ResolveRelative(base, "match.mp4"); got != filepath.Join("bundles", "match.mp4") {
		t.Errorf("unexpected relative resolution %q", got)
	}
	abs := filepath.Join(string(filepath.Separator), "media", "match.mp4")
	if got := ResolveRelative(base, abs); got != abs {
		t.Errorf("absolute path changed to %q", got)
	}
	if ResolveRelative(base, "") != "" {
		t.Error("empty path must stay empty")
	}
}

func TestEnsureDirAndFileExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if FileExists(dir) {
		t.Fatal("directory should not exist yet")
	}
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}
	if !FileExists(dir) {
		t.Error("expected directory to exist")
	}
}
