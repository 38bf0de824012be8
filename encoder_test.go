package g726

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
)

func TestEncoder_WriteFrame_PCM(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		format   int
		value    float32
	}{
		{"8bit PCM", 8, wavFormatPCM, 0.5},
		{"16bit PCM", 16, wavFormatPCM, 0.5},
		{"24bit PCM", 24, wavFormatPCM, -0.25},
		{"32bit PCM", 32, wavFormatPCM, 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outPath := filepath.Join(t.TempDir(), "out.wav")

			f, err := os.Create(outPath)
			if err != nil {
				t.Fatal(err)
			}

			enc := NewEncoder(f, 44100, tt.bitDepth, 1, tt.format)
			for n := 0; n < 100; n++ {
				err := enc.WriteFrame(tt.value)
				if err != nil {
					t.Fatalf("WriteFrame failed: %v", err)
				}
			}

			if err := enc.Close(); err != nil {
				t.Fatal(err)
			}

			f.Close()

			verify, err := os.Open(outPath)
			if err != nil {
				t.Fatal(err)
			}
			defer verify.Close()

			dec := NewDecoder(verify)
			if !dec.IsValidFile() {
				t.Fatal("output should be a valid wav file")
			}
		})
	}
}

func TestEncoder_WriteFrame_Float(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		value    any
	}{
		{"float32 32bit", 32, float32(0.5)},
		{"float32 64bit", 64, float32(-0.25)},
		{"float64 32bit", 32, float64(0.75)},
		{"float64 64bit", 64, float64(-0.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outPath := filepath.Join(t.TempDir(), "out.wav")

			f, err := os.Create(outPath)
			if err != nil {
				t.Fatal(err)
			}

			enc := NewEncoder(f, 44100, tt.bitDepth, 1, wavFormatIEEEFloat)
			for n := 0; n < 100; n++ {
				err := enc.WriteFrame(tt.value)
				if err != nil {
					t.Fatalf("WriteFrame failed: %v", err)
				}
			}

			if err := enc.Close(); err != nil {
				t.Fatal(err)
			}

			f.Close()

			verify, err := os.Open(outPath)
			if err != nil {
				t.Fatal(err)
			}
			defer verify.Close()

			dec := NewDecoder(verify)
			if !dec.IsValidFile() {
				t.Fatal("output should be a valid wav file")
			}
		})
	}
}

func TestEncoder_WriteFrame_G711(t *testing.T) {
	tests := []struct {
		name   string
		format int
	}{
		{"alaw", wavFormatALaw},
		{"mulaw", wavFormatMuLaw},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outPath := filepath.Join(t.TempDir(), "out.wav")

			f, err := os.Create(outPath)
			if err != nil {
				t.Fatal(err)
			}

			enc := NewEncoder(f, 8000, 8, 1, tt.format)
			for n := 0; n < 100; n++ {
				err := enc.WriteFrame(float32(0.3))
				if err != nil {
					t.Fatalf("WriteFrame failed: %v", err)
				}
			}

			if err := enc.Close(); err != nil {
				t.Fatal(err)
			}

			f.Close()

			verify, err := os.Open(outPath)
			if err != nil {
				t.Fatal(err)
			}
			defer verify.Close()

			dec := NewDecoder(verify)
			if !dec.IsValidFile() {
				t.Fatal("output should be a valid wav file")
			}
		})
	}
}

func TestEncoder_WriteFrame_ADPCM(t *testing.T) {
	variants := append(allG726Variants, VariantIMAADPCM)

	for _, variant := range variants {
		t.Run(variant.String(), func(t *testing.T) {
			outPath := filepath.Join(t.TempDir(), "out.wav")

			f, err := os.Create(outPath)
			if err != nil {
				t.Fatal(err)
			}

			enc := NewVariantEncoder(f, 8000, variant)

			numFrames := 1000
			for _, v := range genSine(numFrames, 440, 8000, 0.5) {
				if err := enc.WriteFrame(v); err != nil {
					t.Fatalf("WriteFrame failed: %v", err)
				}
			}

			if err := enc.Close(); err != nil {
				t.Fatal(err)
			}

			f.Close()

			buf := decodeAll(t, outPath)
			if len(buf.Data) != numFrames {
				t.Fatalf("expected %d decoded frames, got %d", numFrames, len(buf.Data))
			}
		})
	}
}

func TestEncoder_ADPCM_RejectsMultichannel(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "out.wav")

	f, err := os.Create(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := NewVariantEncoder(f, 8000, VariantG726_32)

	buf := &audio.Float32Buffer{
		Data:   make([]float32, 200),
		Format: &audio.Format{NumChannels: 2, SampleRate: 8000},
	}

	if err := enc.Write(buf); !errors.Is(err, errUnsupportedChannelCount) {
		t.Fatalf("expected a channel count error, got %v", err)
	}
}

func TestEncoder_ADPCM_DataChunkSize(t *testing.T) {
	tests := []struct {
		variant   CodecVariant
		numFrames int
		wantBytes int
	}{
		// 4000 codewords at 2 bits pack into 1000 bytes
		{VariantG726_16, 4000, 1000},
		// 4001 codewords at 3 bits need a padded final byte
		{VariantG726_24, 4001, 1501},
		{VariantG726_32, 4000, 2000},
		{VariantG726_40, 4000, 2500},
		// 1010 frames span two 505 sample IMA blocks exactly
		{VariantIMAADPCM, 1010, 2 * imaBlockAlign},
	}

	for _, tt := range tests {
		t.Run(tt.variant.String(), func(t *testing.T) {
			outPath := filepath.Join(t.TempDir(), "out.wav")

			f, err := os.Create(outPath)
			if err != nil {
				t.Fatal(err)
			}

			enc := NewVariantEncoder(f, 8000, tt.variant)

			buf := &audio.Float32Buffer{
				Data:   make([]float32, tt.numFrames),
				Format: &audio.Format{NumChannels: 1, SampleRate: 8000},
			}

			if err := enc.Write(buf); err != nil {
				t.Fatal(err)
			}

			if err := enc.Close(); err != nil {
				t.Fatal(err)
			}

			f.Close()

			hdr, err := ParseHeader(outPath)
			if err != nil {
				t.Fatal(err)
			}

			if hdr.DataLength != uint64(tt.wantBytes) {
				t.Fatalf("data chunk of %d bytes, want %d", hdr.DataLength, tt.wantBytes)
			}

			if hdr.FactFrames != uint32(tt.numFrames) {
				t.Fatalf("fact frames %d, want %d", hdr.FactFrames, tt.numFrames)
			}
		})
	}
}

func TestEncoder_Write_MultipleBuffers(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "multi_write.wav")

	f, err := os.Create(outPath)
	if err != nil {
		t.Fatal(err)
	}

	enc := NewEncoder(f, 44100, 16, 1, wavFormatPCM)
	format := &audio.Format{NumChannels: 1, SampleRate: 44100}

	// Write two separate buffers
	for n := 0; n < 2; n++ {
		buf := &audio.Float32Buffer{
			Data:           []float32{0.1, 0.2, 0.3, -0.1, -0.2, -0.3},
			Format:         format,
			SourceBitDepth: 16,
		}

		err := enc.Write(buf)
		if err != nil {
			t.Fatal(err)
		}
	}

	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}

	f.Close()

	verify, err := os.Open(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer verify.Close()

	dec := NewDecoder(verify)

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatal(err)
	}

	if len(pcm.Data) != 12 {
		t.Fatalf("expected 12 samples, got %d", len(pcm.Data))
	}
}

func TestEncoder_Close_NilEncoder(t *testing.T) {
	var e *Encoder

	err := e.Close()
	if err != nil {
		t.Fatalf("Close on nil encoder should return nil, got %v", err)
	}
}

func TestEncoder_Close_NilWriter(t *testing.T) {
	e := &Encoder{}

	err := e.Close()
	if err != nil {
		t.Fatalf("Close with nil writer should return nil, got %v", err)
	}
}

func TestEncoder_AddBuffer_Nil(t *testing.T) {
	var buf bytes.Buffer

	e := NewEncoder(nopWriteSeeker{&buf}, 44100, 16, 1, wavFormatPCM)

	err := e.addBuffer(nil)
	if err == nil {
		t.Fatal("addBuffer(nil) should return error")
	}
}

// nopWriteSeeker wraps a bytes.Buffer to satisfy io.WriteSeeker.
type nopWriteSeeker struct {
	buf *bytes.Buffer
}

func (n nopWriteSeeker) Write(p []byte) (int, error) {
	written, err := n.buf.Write(p)
	if err != nil {
		return written, fmt.Errorf("buffer write failed: %w", err)
	}

	return written, nil
}

func (n nopWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	return 0, nil
}
