package g726

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
)

// LoadAudio reads the audio file at path into a normalized buffer,
// dispatching on the file extension. WAV files go through this package's
// decoder (including compressed payloads), AIFF files through the aiff
// package. A targetRate above 0 resamples the result and mono collapses
// multichannel data to a single averaged channel.
func LoadAudio(path string, targetRate int, mono bool) (*audio.Float32Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}

		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var buf *audio.Float32Buffer

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		buf, err = loadWav(f)
	case ".aif", ".aiff", ".aifc":
		buf, err = loadAiff(f)
	default:
		return nil, fmt.Errorf("%w: unsupported extension %q", ErrLoad, filepath.Ext(path))
	}

	if err != nil {
		return nil, err
	}

	if mono {
		buf, err = EnsureMono(buf)
		if err != nil {
			return nil, err
		}
	}

	if targetRate > 0 && buf.Format != nil && buf.Format.SampleRate != targetRate {
		if buf.Format.NumChannels > 1 {
			return nil, fmt.Errorf("%w: resampling multichannel audio, pass mono", ErrResample)
		}

		buf, err = Resample(buf, targetRate)
		if err != nil {
			return nil, err
		}
	}

	return buf, nil
}

func loadWav(f *os.File) (*audio.Float32Buffer, error) {
	d := NewDecoder(f)

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrLoad, err)
	}

	return buf, nil
}

func loadAiff(f *os.File) (*audio.Float32Buffer, error) {
	d := aiff.NewDecoder(f)

	intBuf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrLoad, err)
	}

	bitDepth := int(d.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}

	buf := &audio.Float32Buffer{
		Data:           make([]float32, len(intBuf.Data)),
		Format:         intBuf.Format,
		SourceBitDepth: bitDepth,
	}

	for i, v := range intBuf.Data {
		buf.Data[i] = normalizePCMInt(v, bitDepth)
	}

	return buf, nil
}
