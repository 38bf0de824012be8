package g726

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
)

// GetDuration returns the duration of the wav file at path using only its
// container header. The data chunk payload is never read, so the cost is
// independent of the file length.
func GetDuration(path string) (time.Duration, error) {
	hdr, err := ParseHeader(path)
	if err != nil {
		return 0, err
	}

	return hdr.Duration(), nil
}

// ReadSegment decodes the [start, start+duration) window of the wav file at
// path into a normalized buffer. A duration of 0 reads to the end of the
// stream, and a window extending past the end is truncated to the available
// samples. start at or past the end of the stream is an error.
//
// For G.726 streams the decoder state at start depends on every prior
// codeword, so the full prefix is decoded and discarded before the window
// is collected. IMA streams skip whole blocks instead.
func ReadSegment(path string, start, duration time.Duration) (*audio.Float32Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}

		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	d := NewDecoder(f)

	d.ReadInfo()

	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedHeader, err)
	}

	totalFrames, err := d.frameCount()
	if err != nil {
		return nil, err
	}

	startFrame := frameCountForDuration(start, d.SampleRate)
	if startFrame < 0 {
		startFrame = 0
	}

	if uint64(startFrame) >= totalFrames {
		return nil, fmt.Errorf("%w: start %v is at frame %d of a %d frame stream",
			ErrSeekOutOfRange, start, startFrame, totalFrames)
	}

	numFrames := int(totalFrames) - startFrame
	if duration > 0 {
		want := frameCountForDuration(duration, d.SampleRate)
		if want < numFrames {
			numFrames = want
		}
	}

	return d.DecodeSegment(startFrame, numFrames)
}

// frameCount returns the per-channel frame count of the decoder's stream.
func (d *Decoder) frameCount() (uint64, error) {
	if err := d.FwdToPCM(); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrMalformedHeader, err)
	}

	variant := d.Variant()

	if variant != VariantNone && d.CompressedSamples > 0 {
		return uint64(d.CompressedSamples), nil
	}

	dataLen := uint64(d.PCMSize)

	switch {
	case variant == VariantIMAADPCM:
		blockAlign := uint64(d.FmtChunk.BlockAlign)
		if blockAlign == 0 {
			blockAlign = imaBlockAlign
		}

		frames := (dataLen / blockAlign) * ((blockAlign-imaBlockHeaderSize)*2 + 1)
		if rest := dataLen % blockAlign; rest > imaBlockHeaderSize {
			frames += (rest-imaBlockHeaderSize)*2 + 1
		}

		return frames, nil
	case variant != VariantNone:
		return dataLen * 8 / uint64(variant.Bits()), nil
	default:
		frameSize := uint64(bytesPerSample(int(d.BitDepth))) * uint64(d.NumChans)
		if frameSize == 0 {
			return 0, fmt.Errorf("%w: zero frame size", ErrMalformedHeader)
		}

		return dataLen / frameSize, nil
	}
}
