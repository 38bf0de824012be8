package g726

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
)

// writePCMWav writes an uncompressed 16-bit file for the byte format paths.
func writePCMWav(t *testing.T, data []float32, sampleRate, numChans int) string {
	t.Helper()

	outPath := filepath.Join(t.TempDir(), "pcm.wav")

	f, err := os.Create(outPath)
	if err != nil {
		t.Fatal(err)
	}

	e := NewEncoder(f, sampleRate, 16, numChans, wavFormatPCM)

	buf := &audio.Float32Buffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: numChans, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}

	if err := e.Write(buf); err != nil {
		t.Fatal(err)
	}

	if err := e.Close(); err != nil {
		t.Fatal(err)
	}

	f.Close()

	return outPath
}

func TestDecoderFullPCMBuffer(t *testing.T) {
	in := genSine(4000, 440, 8000, 0.5)
	path := writePCMWav(t, in, 8000, 1)

	buf := decodeAll(t, path)

	if len(buf.Data) != len(in) {
		t.Fatalf("expected %d samples, got %d", len(in), len(buf.Data))
	}

	for i := range buf.Data {
		if !float32ApproxEqual(buf.Data[i], in[i], 1e-4) {
			t.Fatalf("sample %d is %f, want %f", i, buf.Data[i], in[i])
		}
	}
}

func TestDecoderVariant(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
		want CodecVariant
	}{
		{"pcm", func(t *testing.T) string {
			return writePCMWav(t, make([]float32, 100), 8000, 1)
		}, VariantNone},
		{"g726", func(t *testing.T) string {
			return writeVariantWav(t, make([]float32, 100), 8000, VariantG726_40)
		}, VariantG726_40},
		{"ima", func(t *testing.T) string {
			return writeVariantWav(t, make([]float32, 100), 8000, VariantIMAADPCM)
		}, VariantIMAADPCM},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := os.Open(tt.path(t))
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()

			d := NewDecoder(f)
			d.ReadInfo()

			if err := d.Err(); err != nil {
				t.Fatal(err)
			}

			if got := d.Variant(); got != tt.want {
				t.Fatalf("variant %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDecoderDecodeSegmentPCM(t *testing.T) {
	in := genSine(8000, 440, 8000, 0.5)
	path := writePCMWav(t, in, 8000, 1)

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	seg, err := NewDecoder(f).DecodeSegment(2000, 1000)
	if err != nil {
		t.Fatal(err)
	}

	if len(seg.Data) != 1000 {
		t.Fatalf("expected 1000 samples, got %d", len(seg.Data))
	}

	for i := range seg.Data {
		if !float32ApproxEqual(seg.Data[i], in[2000+i], 1e-4) {
			t.Fatalf("sample %d is %f, want %f", i, seg.Data[i], in[2000+i])
		}
	}
}

func TestDecoderDecodeSegmentStereoPCM(t *testing.T) {
	numFrames := 1000

	data := make([]float32, numFrames*2)
	for i := 0; i < numFrames; i++ {
		data[i*2] = 0.25
		data[i*2+1] = -0.25
	}

	path := writePCMWav(t, data, 44100, 2)

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	seg, err := NewDecoder(f).DecodeSegment(100, 200)
	if err != nil {
		t.Fatal(err)
	}

	// frames are whole, so the sample count is a channel multiple
	if len(seg.Data) != 400 {
		t.Fatalf("expected 400 samples, got %d", len(seg.Data))
	}

	for i := 0; i < len(seg.Data); i += 2 {
		if !float32ApproxEqual(seg.Data[i], 0.25, 1e-4) || !float32ApproxEqual(seg.Data[i+1], -0.25, 1e-4) {
			t.Fatalf("frame %d decoded to (%f, %f)", i/2, seg.Data[i], seg.Data[i+1])
		}
	}
}

func TestDecoderDuration(t *testing.T) {
	path := writeVariantWav(t, make([]float32, 16000), 8000, VariantG726_16)

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	d := NewDecoder(f)
	if err := d.FwdToPCM(); err != nil {
		t.Fatal(err)
	}

	dur, err := d.Duration()
	if err != nil {
		t.Fatal(err)
	}

	if dur != 2*time.Second {
		t.Fatalf("duration %s, want 2s", dur)
	}
}

func TestDecoderPCMBufferStreaming(t *testing.T) {
	in := genSine(4000, 440, 8000, 0.5)
	path := writeVariantWav(t, in, 8000, VariantG726_32)

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	d := NewDecoder(f)

	var got []float32

	buf := &audio.Float32Buffer{Data: make([]float32, 1024)}

	for {
		n, err := d.PCMBuffer(buf)
		if err != nil {
			t.Fatal(err)
		}

		got = append(got, buf.Data[:n]...)

		if n < len(buf.Data) {
			break
		}
	}

	if len(got) != len(in) {
		t.Fatalf("streamed %d samples, want %d", len(got), len(in))
	}

	full := decodeAll(t, path)
	for i := range got {
		if got[i] != full.Data[i] {
			t.Fatalf("streamed sample %d is %f, full decode has %f", i, got[i], full.Data[i])
		}
	}
}

func TestDecoderIsValidFile(t *testing.T) {
	path := writeVariantWav(t, make([]float32, 8000), 8000, VariantG726_32)

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if !NewDecoder(f).IsValidFile() {
		t.Fatal("expected a valid file")
	}
}

func TestDecoderDurationNil(t *testing.T) {
	var d *Decoder

	if _, err := d.Duration(); !errors.Is(err, ErrDurationNilPointer) {
		t.Fatalf("expected ErrDurationNilPointer, got %v", err)
	}
}
