// Package transform is the halftone pixel transform library.
//
// Every transform is a pure [Func]: it reads a [raster.Buffer] and a set of
// node-local [Params] and returns a new buffer of the same size. No
// transform mutates its input or touches shared state, so transforms may
// run concurrently on independent buffers.
//
// # Families
//
//   - Error diffusion ([Diffuse]): luminance is quantized pixel by pixel and
//     the residual is pushed onto unvisited neighbors according to a
//     [Kernel]. Floyd-Steinberg, Jarvis-Judice-Ninke, Stucki, Burkes, the
//     Sierra variants and Atkinson differ only in their kernel tables.
//   - Ordered dithering ([Ordered], [BayerMatrix], [RandomOrdered]):
//     position-dependent thresholds from a Bayer matrix or a seeded noise
//     tile.
//   - Threshold maps: radial, angular, diamond and wave threshold fields.
//   - Tone ([Contrast], [Midtones], [Highlights], [LuminanceThreshold]).
//   - Palette quantization ([PaletteRamp], [PaletteNearest]). Diffusion and
//     ordered transforms also accept a palette, which makes them dither in
//     palette space.
//   - Post effects ([Bloom], hsv, crt, pixelate) and glitches (dataMosh,
//     pixelSort, chromaticAberration, digitalCorruption).
//
// # Registry
//
// Transforms are selected by stable string key through a [Registry]:
//
//	reg := transform.Default()
//	out, err := reg.Apply("floydSteinberg", src, transform.Params{"palette": "gameBoyOriginal"})
//
// Malformed parameters fail with an INVALID_PARAMETER error from
// [github.com/matzehuels/halftone/pkg/errors]; transforms never fail on a
// valid buffer, including empty and 1×1 buffers.
package transform
