package palette

import (
	"sort"

	"github.com/matzehuels/halftone/pkg/errors"
)

// Preset is a named, built-in palette.
type Preset struct {
	Key    string
	Name   string
	Colors Palette
}

var presets = map[string]Preset{
	"commodore64": {"commodore64", "Commodore 64", Palette{
		{0, 0, 0}, {255, 255, 255}, {136, 58, 58}, {112, 228, 228},
		{158, 58, 158}, {112, 158, 112}, {58, 58, 196}, {228, 228, 112},
		{196, 112, 58}, {112, 70, 58}, {228, 112, 112}, {58, 58, 58},
		{112, 112, 112}, {196, 196, 196}, {112, 228, 112}, {58, 158, 228},
		{196, 112, 196},
	}},
	"gameBoyOriginal": {"gameBoyOriginal", "Game Boy (Original)", Palette{
		{15, 56, 15}, {48, 98, 48}, {139, 172, 15}, {155, 188, 15},
	}},
	"gameBoyColor": {"gameBoyColor", "Game Boy Color", Palette{
		{0, 0, 0}, {255, 255, 255}, {15, 56, 15}, {48, 98, 48},
		{139, 172, 15}, {155, 188, 15}, {196, 58, 58}, {58, 112, 196},
	}},
	"nes": {"nes", "NES", Palette{
		{0, 0, 0}, {255, 255, 255}, {124, 124, 124}, {58, 58, 58},
		{196, 58, 58}, {255, 112, 112}, {112, 58, 58}, {58, 196, 58},
		{112, 228, 112}, {58, 112, 58}, {58, 58, 196}, {112, 112, 255},
		{58, 58, 112}, {196, 196, 58}, {255, 255, 112}, {112, 112, 58},
		{196, 58, 196}, {255, 112, 255}, {112, 58, 112},
	}},
	"amiga": {"amiga", "Amiga OCS", Palette{
		{0, 0, 0}, {255, 255, 255}, {136, 58, 58}, {112, 228, 228},
		{158, 58, 158}, {112, 158, 112}, {58, 58, 196}, {228, 228, 112},
		{196, 112, 58}, {112, 70, 58}, {228, 112, 112}, {58, 58, 58},
		{112, 112, 112}, {196, 196, 196}, {112, 228, 112}, {58, 158, 228},
		{196, 112, 196}, {255, 196, 112}, {255, 228, 112}, {112, 228, 196},
		{196, 196, 112}, {196, 112, 112}, {112, 112, 196}, {196, 112, 196},
		{112, 196, 112}, {196, 196, 196}, {228, 228, 228}, {255, 255, 255},
	}},
	"atari2600": {"atari2600", "Atari 2600", Palette{
		{0, 0, 0}, {255, 255, 255}, {112, 58, 58}, {58, 112, 58},
		{58, 58, 112}, {196, 196, 58}, {196, 58, 196}, {58, 196, 196},
		{196, 112, 58}, {112, 196, 58}, {58, 112, 196}, {196, 58, 112},
	}},
	"zxSpectrum": {"zxSpectrum", "ZX Spectrum", Palette{
		{0, 0, 0}, {0, 0, 196}, {196, 0, 0}, {196, 0, 196},
		{0, 196, 0}, {0, 196, 196}, {196, 196, 0}, {196, 196, 196},
		{0, 0, 0}, {0, 0, 255}, {255, 0, 0}, {255, 0, 255},
		{0, 255, 0}, {0, 255, 255}, {255, 255, 0}, {255, 255, 255},
	}},
	"masterSystem": {"masterSystem", "Master System", Palette{
		{0, 0, 0}, {255, 255, 255}, {112, 58, 58}, {58, 112, 58},
		{58, 58, 112}, {196, 196, 58}, {196, 58, 196}, {58, 196, 196},
		{196, 112, 58}, {112, 196, 58}, {58, 112, 196}, {196, 58, 112},
		{196, 196, 196}, {112, 112, 112}, {58, 58, 58},
	}},
	"pcEngine": {"pcEngine", "PC Engine", Palette{
		{0, 0, 0}, {255, 255, 255}, {196, 58, 58}, {58, 196, 58},
		{58, 58, 196}, {196, 196, 58}, {196, 58, 196}, {58, 196, 196},
		{196, 112, 58}, {112, 196, 58}, {58, 112, 196}, {196, 58, 112},
		{158, 158, 158}, {112, 112, 112}, {228, 228, 228},
	}},
}

// Lookup returns the preset palette registered under key. The returned
// palette is a copy and may be modified freely.
func Lookup(key string) (Palette, error) {
	p, ok := presets[key]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownPalette, "unknown palette %q", key)
	}
	return p.Colors.Clone(), nil
}

// Presets lists all built-in presets sorted by key.
func Presets() []Preset {
	out := make([]Preset, 0, len(presets))
	for _, p := range presets {
		out = append(out, Preset{Key: p.Key, Name: p.Name, Colors: p.Colors.Clone()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Keys lists the preset keys in sorted order.
func Keys() []string {
	ps := Presets()
	keys := make([]string, len(ps))
	for i, p := range ps {
		keys[i] = p.Key
	}
	return keys
}
