package cli

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/halftone/pkg/graph"
	"github.com/matzehuels/halftone/pkg/raster"
	"github.com/matzehuels/halftone/pkg/transform"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"true", true},
		{"false", false},
		{"42", 42.0},
		{"1", 1.0},
		{"-0.5", -0.5},
		{`["#000000","#ffffff"]`, []any{"#000000", "#ffffff"}},
		{`{"a":1}`, map[string]any{"a": 1.0}},
		{"#000000, #ffffff", []any{"#000000", "#ffffff"}},
		{"gameBoyOriginal", "gameBoyOriginal"},
		{"[not json", "[not json"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, parseValue(tt.in)); diff != "" {
				t.Errorf("parseValue(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestParseParams(t *testing.T) {
	got, err := parseParams([]string{"palette=gameBoyOriginal", " threshold = 128 ", "serpentine=true"})
	if err != nil {
		t.Fatalf("parseParams: %v", err)
	}
	want := graph.Params{"palette": "gameBoyOriginal", "threshold": 128.0, "serpentine": true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseParams mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range []string{"novalue", "=1", " =x"} {
		if _, err := parseParams([]string{bad}); err == nil {
			t.Errorf("parseParams(%q) succeeded, want error", bad)
		}
	}
}

func TestParseStep(t *testing.T) {
	tests := []struct {
		in      string
		want    graph.Step
		wantErr bool
	}{
		{"floydSteinberg", graph.Step{Algorithm: "floydSteinberg"}, false},
		{"threshold:threshold=100", graph.Step{Algorithm: "threshold", Params: graph.Params{"threshold": 100.0}}, false},
		{"bloom:intensity=2:radius=3", graph.Step{Algorithm: "bloom", Params: graph.Params{"intensity": 2.0, "radius": 3.0}}, false},
		{":x=1", graph.Step{}, true},
		{"bloom:bad", graph.Step{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseStep(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseStep(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("parseStep(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestDefaultOutput(t *testing.T) {
	tests := []struct {
		input  string
		format raster.Format
		want   string
	}{
		{"photo.jpg", raster.FormatPNG, "photo-halftone.png"},
		{"dir/photo.png", raster.FormatJPEG, "dir/photo-halftone.jpg"},
		{"noext", raster.FormatGIF, "noext-halftone.gif"},
	}
	for _, tt := range tests {
		if got := defaultOutput(tt.input, tt.format); got != tt.want {
			t.Errorf("defaultOutput(%q, %q) = %q, want %q", tt.input, tt.format, got, tt.want)
		}
	}
}

func TestFrameName(t *testing.T) {
	tests := []struct {
		i, n   int
		format raster.Format
		want   string
	}{
		{0, 24, raster.FormatPNG, "frame_0000.png"},
		{23, 24, raster.FormatPNG, "frame_0023.png"},
		{7, 20000, raster.FormatJPEG, "frame_00007.jpg"},
	}
	for _, tt := range tests {
		if got := frameName(tt.i, tt.n, tt.format); got != tt.want {
			t.Errorf("frameName(%d, %d, %q) = %q, want %q", tt.i, tt.n, tt.format, got, tt.want)
		}
	}
}

func TestFrameCount(t *testing.T) {
	tests := []struct {
		name    string
		opts    framesOpts
		want    int
		wantErr bool
	}{
		{"explicit count", framesOpts{count: 5, duration: 2, fps: 12}, 5, false},
		{"duration times fps", framesOpts{duration: 2, fps: 12}, 24, false},
		{"at least one", framesOpts{duration: 0.01, fps: 1}, 1, false},
		{"negative count", framesOpts{count: -1}, 0, true},
		{"zero fps", framesOpts{duration: 2}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.opts.frameCount()
			if (err != nil) != tt.wantErr {
				t.Fatalf("frameCount() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("frameCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestApplyDefaultPalette(t *testing.T) {
	g := graph.Chain(
		graph.Step{Algorithm: "floydSteinberg"},
		graph.Step{Algorithm: "bayerOrdered4x4", Params: graph.Params{"palette": "commodore64"}},
		graph.Step{Algorithm: "atkinson", Params: graph.Params{"colors": []any{"#000000", "#ffffff"}}},
		graph.Step{Algorithm: "bloom"},
	)
	applyDefaultPalette(g, transform.Default(), "gameBoyOriginal")

	want := map[string]any{
		"floydSteinberg":  "gameBoyOriginal",
		"bayerOrdered4x4": "commodore64",
		"atkinson":        nil,
		"bloom":           nil,
	}
	for _, n := range g.NodesOfKind(graph.KindEffect) {
		if got := n.Params["palette"]; got != want[n.Algorithm] {
			t.Errorf("%s palette = %v, want %v", n.Algorithm, got, want[n.Algorithm])
		}
	}
}

func TestApplyDefaultPaletteEmpty(t *testing.T) {
	g := graph.Chain(graph.Step{Algorithm: "floydSteinberg"})
	applyDefaultPalette(g, transform.Default(), "")
	for _, n := range g.NodesOfKind(graph.KindEffect) {
		if _, ok := n.Params["palette"]; ok {
			t.Errorf("palette set without a default: %v", n.Params)
		}
	}
}

func TestFilterInfos(t *testing.T) {
	infos := []transform.Info{
		{Key: "floydSteinberg", Family: transform.FamilyDiffusion, Description: "Floyd-Steinberg error diffusion"},
		{Key: "bayerOrdered4x4", Family: transform.FamilyOrdered, Description: "4x4 Bayer matrix"},
		{Key: "bloom", Family: transform.FamilyPost, Description: "Glow around highlights"},
	}
	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"floydSteinberg", "bayerOrdered4x4", "bloom"}},
		{"FLOYD", []string{"floydSteinberg"}},
		{"ordered", []string{"bayerOrdered4x4"}},
		{"glow", []string{"bloom"}},
		{"zzz", nil},
	}
	for _, tt := range tests {
		var got []string
		for _, info := range filterInfos(infos, tt.query) {
			got = append(got, info.Key)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("filterInfos(%q) mismatch (-want +got):\n%s", tt.query, diff)
		}
	}
}

func TestAlgorithmListModel(t *testing.T) {
	infos := []transform.Info{
		{Key: "floydSteinberg", Family: transform.FamilyDiffusion},
		{Key: "atkinson", Family: transform.FamilyDiffusion},
		{Key: "bloom", Family: transform.FamilyPost},
	}
	var m tea.Model = NewAlgorithmListModel(infos)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if got := m.(AlgorithmListModel).Cursor; got != 2 {
		t.Fatalf("cursor = %d, want 2 (clamped)", got)
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("atk")})
	lm := m.(AlgorithmListModel)
	if lm.Cursor != 0 || len(lm.Visible) != 1 || lm.Visible[0].Key != "atkinson" {
		t.Fatalf("after filter: cursor %d, visible %v", lm.Cursor, lm.Visible)
	}

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Error("enter should quit")
	}
	if sel := m.(AlgorithmListModel).Selected; sel == nil || sel.Key != "atkinson" {
		t.Errorf("selected = %v, want atkinson", sel)
	}
}

func TestAlgorithmListModelBackspaceAndEmpty(t *testing.T) {
	var m tea.Model = NewAlgorithmListModel([]transform.Info{{Key: "bloom"}})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || m.(AlgorithmListModel).Selected != nil {
		t.Fatal("enter on an empty list should do nothing")
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	if got := len(m.(AlgorithmListModel).Visible); got != 1 {
		t.Errorf("visible after backspace = %d, want 1", got)
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Error("esc should quit")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("abcdefghij", 5); got != "abcd…" {
		t.Errorf("truncate(abcdefghij, 5) = %q, want abcd…", got)
	}
}
