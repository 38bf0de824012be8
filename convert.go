package g726

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
)

// ConvertOptions control the Convert and ConvertFile pipeline.
type ConvertOptions struct {
	// SampleRate resamples the input when above 0.
	SampleRate int
	// BitsPerSample selects the codec variant, 2 to 5 bits per sample.
	// Defaults to 2 (16 kbit/s at 8 kHz).
	BitsPerSample int
	// Mono collapses multichannel input to a single averaged channel.
	// Compressed output is mono only, so this mostly matters for stereo
	// input.
	Mono bool
	// Resolver picks the codec variant for BitsPerSample. The package
	// default resolves every rate to its G.726 variant.
	Resolver *Resolver
}

func (o ConvertOptions) withDefaults() ConvertOptions {
	if o.BitsPerSample == 0 {
		o.BitsPerSample = 2
	}

	if o.Resolver == nil {
		o.Resolver = defaultResolver
	}

	return o
}

// WriteFile encodes buf into a compressed wav file at path. The codec
// variant is resolved from bitsPerSample through the package default
// resolver; when no codec supports the rate exactly, the stream falls back
// to IMA ADPCM.
func WriteFile(path string, buf *audio.Float32Buffer, sampleRate, bitsPerSample int) (err error) {
	return writeFileWith(defaultResolver, path, buf, sampleRate, bitsPerSample)
}

func writeFileWith(resolver *Resolver, path string, buf *audio.Float32Buffer, sampleRate, bitsPerSample int) (err error) {
	if buf == nil {
		return errNilBuffer
	}

	variant, _, err := resolver.Resolve(bitsPerSample)
	if err != nil {
		return err
	}

	if sampleRate <= 0 {
		if buf.Format == nil || buf.Format.SampleRate <= 0 {
			return fmt.Errorf("%w: sample rate unknown", ErrUnsupportedVariant)
		}

		sampleRate = buf.Format.SampleRate
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	defer func() {
		closeErr := f.Close()
		if err == nil && closeErr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, closeErr)
		}
	}()

	e := NewVariantEncoder(f, sampleRate, variant)

	err = e.Write(buf)
	if err != nil {
		return err
	}

	return e.Close()
}

// Convert runs buf through the conversion pipeline (downmix, resample,
// encode) and writes the result to outPath.
func Convert(buf *audio.Float32Buffer, outPath string, opts ConvertOptions) error {
	if buf == nil {
		return errNilBuffer
	}

	opts = opts.withDefaults()

	var err error

	if opts.Mono || (buf.Format != nil && buf.Format.NumChannels > 1) {
		buf, err = EnsureMono(buf)
		if err != nil {
			return err
		}
	}

	if opts.SampleRate > 0 {
		buf, err = Resample(buf, opts.SampleRate)
		if err != nil {
			return err
		}
	}

	sampleRate := opts.SampleRate
	if sampleRate <= 0 && buf.Format != nil {
		sampleRate = buf.Format.SampleRate
	}

	return writeFileWith(opts.Resolver, outPath, buf, sampleRate, opts.BitsPerSample)
}

// ConvertFile loads the audio file at inPath and converts it to a
// compressed wav file at outPath.
func ConvertFile(inPath, outPath string, opts ConvertOptions) error {
	opts = opts.withDefaults()

	buf, err := LoadAudio(inPath, 0, opts.Mono)
	if err != nil {
		return err
	}

	return Convert(buf, outPath, opts)
}
