package main

import (
	"strings"
	"testing"

	"github.com/keagan/slopcannon/internal/clips"
	"github.com/keagan/slopcannon/internal/config"
	"github.com/keagan/slopcannon/internal/signals"
)

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"Category", "Weight"}, [][]string{{"reaction", "0.60"}, {"kill"}}, []columnAlignment{alignLeft, alignRight})

	for _, want := range []string{"Category", "reaction", "0.60", "kill"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in table:\n%s", want, out)
		}
	}
	if strings.Contains(out, "<nil>") {
		t.Errorf("short rows must render blank cells:\n%s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("expected empty output without headers")
	}
}

func TestClipRows(t *testing.T) {
	window := clips.New(signals.ModeGeneral, 1, signals.Interval{Start: 9, End: 22}, 1.95)
	chain := clips.New(signals.ModeSpecialized, 2, signals.Interval{Start: 7.25, End: 17.25}, 51.962)
	chain.Pattern = signals.PatternMultiKill

	rows := clipRows([]*clips.Clip{window, chain})
	if rows[0][1] != "00:00:09.000" || rows[0][5] != "window" {
		t.Errorf("unexpected window row %v", rows[0])
	}
	if rows[1][4] != "51.962" || rows[1][5] != "multi_kill" || len(rows[1][6]) != 8 {
		t.Errorf("unexpected chain row %v", rows[1])
	}
}

func TestAnalysisOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.FFmpeg.RMSWindowMs = 50

	opts := analysisOptions(cfg)
	if opts.WindowMs != 50 || opts.SilenceDB != -35 || opts.MinSilence != 1.0 {
		t.Errorf("unexpected options %+v", opts)
	}
}
