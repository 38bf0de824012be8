// Package g726 provides random-access reading, writing and conversion of
// G.726 ADPCM compressed WAV files.
//
// The package implements the ITU-T G.726 adaptive predictor/quantizer in
// pure Go for all four rates (2/3/4/5 bits per coded sample, 16-40 kbps at
// 8 kHz), plus an IMA ADPCM fallback variant. GetDuration reads only the
// container header, and ReadSegment decodes an arbitrary time range by
// replaying decoder state from the start of the data chunk.
//
// Beside the path-based API (GetDuration, ReadSegment, WriteFile, Convert),
// Decoder and Encoder expose streaming access over io.ReadSeeker and
// io.WriteSeeker, including the uncompressed WAV formats (PCM integer,
// IEEE float, A-law, mu-law) used by the conversion pipeline.
package g726
