package g726

import (
	"fmt"

	"github.com/go-audio/audio"
)

// Resample converts a mono buffer to targetRate using linear
// interpolation. Returns the input untouched when the rate already matches.
func Resample(buf *audio.Float32Buffer, targetRate int) (*audio.Float32Buffer, error) {
	if buf == nil {
		return nil, fmt.Errorf("%w: nil buffer", ErrResample)
	}

	if targetRate <= 0 {
		return nil, fmt.Errorf("%w: invalid target rate %d", ErrResample, targetRate)
	}

	if buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: source rate unknown", ErrResample)
	}

	if buf.Format.NumChannels > 1 {
		return nil, fmt.Errorf("%w: multichannel input, downmix first", ErrResample)
	}

	srcRate := buf.Format.SampleRate
	if srcRate == targetRate {
		return buf, nil
	}

	if len(buf.Data) == 0 {
		return &audio.Float32Buffer{
			Data:           nil,
			Format:         &audio.Format{NumChannels: 1, SampleRate: targetRate},
			SourceBitDepth: buf.SourceBitDepth,
		}, nil
	}

	outLen := int(int64(len(buf.Data)) * int64(targetRate) / int64(srcRate))
	if outLen < 1 {
		outLen = 1
	}

	out := make([]float32, outLen)
	ratio := float64(srcRate) / float64(targetRate)

	for i := range out {
		pos := float64(i) * ratio

		left := int(pos)
		if left >= len(buf.Data)-1 {
			out[i] = buf.Data[len(buf.Data)-1]
			continue
		}

		frac := float32(pos - float64(left))
		out[i] = buf.Data[left]*(1-frac) + buf.Data[left+1]*frac
	}

	return &audio.Float32Buffer{
		Data:           out,
		Format:         &audio.Format{NumChannels: 1, SampleRate: targetRate},
		SourceBitDepth: buf.SourceBitDepth,
	}, nil
}
