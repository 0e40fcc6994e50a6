package pipeline

import (
	"testing"

	"github.com/matzehuels/halftone/pkg/raster"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  raster.Format
		wantErr bool
	}{
		{"png", false},
		{"jpeg", false},
		{"gif", false},
		{"bmp", false},
		{"tiff", false},
		{"svg", true},
		{"PNG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	tests := []struct {
		name       string
		opts       Options
		wantFormat raster.Format
		wantErr    bool
	}{
		{"defaults", Options{}, DefaultFormat, false},
		{"explicit format", Options{Format: raster.FormatGIF}, raster.FormatGIF, false},
		{"max side at limit", Options{MaxSide: MaxSideLimit}, DefaultFormat, false},
		{"bad format", Options{Format: "webp"}, "", true},
		{"negative max side", Options{MaxSide: -1}, "", true},
		{"max side over limit", Options{MaxSide: MaxSideLimit + 1}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			err := opts.ValidateAndSetDefaults()
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if opts.Format != tt.wantFormat {
				t.Errorf("Format = %q, want %q", opts.Format, tt.wantFormat)
			}
			if opts.Logger == nil {
				t.Error("Logger not defaulted")
			}
		})
	}
}

func TestOptionsIdempotent(t *testing.T) {
	opts := Options{}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	logger := opts.Logger
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.Logger != logger {
		t.Error("second call replaced the logger")
	}
}

func TestArtifactKeyOpts(t *testing.T) {
	opts := Options{Format: raster.FormatJPEG, MaxSide: 512, Smooth: true}
	k := opts.ArtifactKeyOpts()
	if k.Format != "jpeg" || k.MaxSide != 512 || !k.Smooth {
		t.Errorf("ArtifactKeyOpts() = %+v", k)
	}
}
