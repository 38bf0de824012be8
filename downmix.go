package g726

import (
	"fmt"

	"github.com/go-audio/audio"
)

// EnsureMono returns a single channel version of buf, averaging the
// channels of interleaved multichannel data. Mono input is returned as is.
func EnsureMono(buf *audio.Float32Buffer) (*audio.Float32Buffer, error) {
	if buf == nil {
		return nil, errNilBuffer
	}

	numChans := 1
	if buf.Format != nil {
		numChans = buf.Format.NumChannels
	}

	if numChans <= 0 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedRank, numChans)
	}

	if numChans == 1 {
		return buf, nil
	}

	if len(buf.Data)%numChans != 0 {
		return nil, fmt.Errorf("%w: %d samples do not interleave %d channels",
			ErrUnsupportedRank, len(buf.Data), numChans)
	}

	frames := len(buf.Data) / numChans
	mono := make([]float32, frames)

	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < numChans; ch++ {
			sum += buf.Data[i*numChans+ch]
		}

		mono[i] = sum / float32(numChans)
	}

	format := &audio.Format{NumChannels: 1}
	if buf.Format != nil {
		format.SampleRate = buf.Format.SampleRate
	}

	return &audio.Float32Buffer{
		Data:           mono,
		Format:         format,
		SourceBitDepth: buf.SourceBitDepth,
	}, nil
}
