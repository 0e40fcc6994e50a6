package overlay

import (
	"context"
	"image"
	"testing"

	herrors "github.com/matzehuels/halftone/pkg/errors"
	"github.com/matzehuels/halftone/pkg/fonts"
	"github.com/matzehuels/halftone/pkg/graph"
	"github.com/matzehuels/halftone/pkg/pipeline"
	"github.com/matzehuels/halftone/pkg/raster"
	"github.com/matzehuels/halftone/pkg/transform"
)

func TestTextDrawsInsideRegion(t *testing.T) {
	src := raster.Filled(64, 32, 0, 0, 0, 255)
	region := image.Rect(0, 0, 32, 32)
	out, err := NewText().Apply(context.Background(), src, region, transform.Params{"text": "Hi", "size": 20})
	if err != nil {
		t.Fatal(err)
	}

	var inside int
	for y := range out.Height {
		for x := range out.Width {
			r, _, _, _ := out.RGBA(x, y)
			if r == 0 {
				continue
			}
			if x >= 32 {
				t.Fatalf("pixel (%d,%d) drawn outside the region", x, y)
			}
			inside++
		}
	}
	if inside == 0 {
		t.Error("no text pixels drawn")
	}
}

func TestTextAlignAndStroke(t *testing.T) {
	tests := []transform.Params{
		{"text": "left", "align": "left", "posX": 0},
		{"text": "right", "align": "right", "posX": 100},
		{"text": "two\nlines", "strokeWidth": 2, "strokeColor": "#ff0000"},
		{"text": "mono", "font": "mono"},
		{"text": "bold", "font": "bold", "size": 16},
	}
	for _, p := range tests {
		src := raster.Filled(80, 40, 0, 0, 0, 255)
		out, err := NewText().Apply(context.Background(), src, image.Rect(0, 0, 80, 40), p)
		if err != nil {
			t.Fatalf("%v: %v", p, err)
		}
		if out.Equal(raster.Filled(80, 40, 0, 0, 0, 255)) {
			t.Errorf("%v: nothing drawn", p)
		}
	}
}

func TestTextWithFont(t *testing.T) {
	f, err := fonts.Lookup("mono")
	if err != nil {
		t.Fatal(err)
	}
	region := image.Rect(0, 0, 80, 40)
	draw := func(tx *Text, p transform.Params) *raster.Buffer {
		out, err := tx.Apply(context.Background(), raster.Filled(80, 40, 0, 0, 0, 255), region, p)
		if err != nil {
			t.Fatal(err)
		}
		return out
	}

	mono := draw(NewTextWithFont(f), transform.Params{"text": "iii"})
	if !mono.Equal(draw(NewText(), transform.Params{"text": "iii", "font": "mono"})) {
		t.Error("NewTextWithFont(mono) differs from font=mono")
	}
	if mono.Equal(draw(NewTextWithFont(f), transform.Params{"text": "iii", "font": "regular"})) {
		t.Error("a node's font parameter should override the adapter font")
	}
}

func TestTextParameterErrors(t *testing.T) {
	tests := []transform.Params{
		{},
		{"text": "   "},
		{"text": "x", "size": 1},
		{"text": "x", "align": "justify"},
		{"text": "x", "color": "not-a-color"},
		{"text": "x", "font": "comicSans"},
	}
	for _, p := range tests {
		_, err := NewText().Apply(context.Background(), raster.New(4, 4), image.Rect(0, 0, 4, 4), p)
		if !herrors.Is(err, herrors.ErrCodeInvalidParameter) {
			t.Errorf("Apply(%v) = %v, want %s", p, err, herrors.ErrCodeInvalidParameter)
		}
	}
}

// halves returns a w×h buffer: left half gray level left, right half right.
func halves(w, h int, left, right uint8) *raster.Buffer {
	b := raster.New(w, h)
	for y := range h {
		for x := range w {
			v := left
			if x >= w/2 {
				v = right
			}
			b.SetRGBA(x, y, v, v, v, 255)
		}
	}
	return b
}

func TestBackgroundHardCut(t *testing.T) {
	src := halves(16, 4, 240, 40)
	src.SetRGBA(12, 1, 40, 40, 40, 90)
	whole := image.Rect(0, 0, 16, 4)

	out, err := NewBackground(nil).Apply(context.Background(), src, whole, transform.Params{"background": "#ff0000"})
	if err != nil {
		t.Fatal(err)
	}
	if r, g, b, _ := out.RGBA(2, 2); r != 240 || g != 240 || b != 240 {
		t.Errorf("subject pixel = (%d,%d,%d), want unchanged", r, g, b)
	}
	if r, g, b, _ := out.RGBA(13, 2); r != 255 || g != 0 || b != 0 {
		t.Errorf("background pixel = (%d,%d,%d), want red", r, g, b)
	}
	if _, _, _, a := out.RGBA(12, 1); a != 90 {
		t.Errorf("alpha = %d, want 90", a)
	}
}

func TestBackgroundInvert(t *testing.T) {
	src := halves(8, 2, 240, 40)
	out, err := NewBackground(nil).Apply(context.Background(), src, image.Rect(0, 0, 8, 2), transform.Params{"invert": true})
	if err != nil {
		t.Fatal(err)
	}
	if r, _, _, _ := out.RGBA(0, 0); r != 0 {
		t.Errorf("bright pixel = %d, want removed", r)
	}
	if r, _, _, _ := out.RGBA(7, 0); r != 40 {
		t.Errorf("dark pixel = %d, want kept", r)
	}
}

func TestBackgroundFeatherFades(t *testing.T) {
	src := halves(32, 8, 250, 100)
	out, err := NewBackground(nil).Apply(context.Background(), src, image.Rect(0, 0, 32, 8), transform.Params{"feather": 4})
	if err != nil {
		t.Fatal(err)
	}
	r, _, _, _ := out.RGBA(31, 4)
	if r == 0 || r >= 100 {
		t.Errorf("feathered background pixel = %d, want strictly between 0 and 100", r)
	}
}

func TestBackgroundRegion(t *testing.T) {
	src := halves(8, 2, 240, 40)
	out, err := NewBackground(nil).Apply(context.Background(), src, image.Rect(6, 0, 7, 2), nil)
	if err != nil {
		t.Fatal(err)
	}
	if r, _, _, _ := out.RGBA(6, 0); r != 0 {
		t.Errorf("pixel in region = %d, want removed", r)
	}
	if r, _, _, _ := out.RGBA(7, 0); r != 40 {
		t.Errorf("pixel outside region = %d, want kept", r)
	}
}

func TestMaskCache(t *testing.T) {
	masks := NewMaskCache(0)
	bg := NewBackground(masks)
	region := image.Rect(0, 0, 8, 2)
	ctx := context.Background()

	for range 2 {
		if _, err := bg.Apply(ctx, halves(8, 2, 240, 40), region, transform.Params{"feather": 2}); err != nil {
			t.Fatal(err)
		}
	}
	if hits, misses := masks.Stats(); hits != 1 || misses != 1 {
		t.Errorf("Stats() = %d hits, %d misses; want 1, 1", hits, misses)
	}

	if _, err := bg.Apply(ctx, halves(8, 2, 240, 40), region, transform.Params{"feather": 3}); err != nil {
		t.Fatal(err)
	}
	if _, err := bg.Apply(ctx, halves(8, 2, 200, 40), region, transform.Params{"feather": 2}); err != nil {
		t.Fatal(err)
	}
	if masks.Len() != 3 {
		t.Errorf("Len() = %d, want 3", masks.Len())
	}

	masks.Clear()
	if masks.Len() != 0 {
		t.Error("Clear left entries")
	}
}

func TestMaskCacheEvicts(t *testing.T) {
	masks := NewMaskCache(1)
	masks.Put("a", &Mask{})
	masks.Put("b", &Mask{})
	if _, ok := masks.Get("a"); ok {
		t.Error("oldest mask not evicted")
	}
	if _, ok := masks.Get("b"); !ok {
		t.Error("newest mask missing")
	}
}

func TestMaskKey(t *testing.T) {
	got := MaskKey("abcdef0123456789ffff", 4, 3, 128, 5, false)
	if want := "abcdef0123456789_4x3_s128_f5"; got != want {
		t.Errorf("MaskKey() = %q, want %q", got, want)
	}
	if got := MaskKey("ab", 1, 1, 0, 0, true); got != "ab_1x1_s0_f0_inv" {
		t.Errorf("MaskKey(invert) = %q", got)
	}
}

func TestAdaptersInPipeline(t *testing.T) {
	exec := pipeline.NewExecutor(nil, nil, NewText(), NewBackground(NewMaskCache(4)))
	g := graph.Chain(
		graph.Step{Algorithm: BackgroundKey, Params: graph.Params{"sensitivity": 100}},
		graph.Step{Algorithm: TextKey, Params: graph.Params{"text": "ok", "size": 12, "y": 0, "height": 16}},
	)
	if err := exec.Validate(g); err != nil {
		t.Fatal(err)
	}
	src := halves(48, 32, 220, 30)
	out, err := exec.Execute(context.Background(), g, src)
	if err != nil {
		t.Fatal(err)
	}
	if out.Width != 48 || out.Height != 32 {
		t.Errorf("output is %dx%d", out.Width, out.Height)
	}
	if r, _, _, _ := out.RGBA(40, 30); r != 0 {
		t.Errorf("background below the text band = %d, want removed", r)
	}
}

func TestInfosListAdapters(t *testing.T) {
	exec := pipeline.NewExecutor(nil, nil, NewText(), NewBackground(nil))
	infos := exec.Infos()
	n := len(infos)
	if n < 2 || infos[n-2].Key != BackgroundKey || infos[n-1].Key != TextKey {
		t.Fatalf("adapters not listed last in key order: %v", infos[max(0, n-2):])
	}
	if infos[n-1].Family != transform.FamilyAdapter || len(infos[n-1].Params) == 0 {
		t.Errorf("text adapter info = %+v", infos[n-1])
	}
}
