package g726

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseHeaderG726(t *testing.T) {
	for _, variant := range allG726Variants {
		t.Run(variant.String(), func(t *testing.T) {
			numSamples := 16000
			path := writeVariantWav(t, make([]float32, numSamples), 8000, variant)

			hdr, err := ParseHeader(path)
			if err != nil {
				t.Fatal(err)
			}

			if hdr.Variant != variant {
				t.Fatalf("variant %s, want %s", hdr.Variant, variant)
			}

			if hdr.SampleRate != 8000 {
				t.Fatalf("sample rate %d, want 8000", hdr.SampleRate)
			}

			if hdr.NumChannels != 1 {
				t.Fatalf("channels %d, want 1", hdr.NumChannels)
			}

			if hdr.BitsPerSample != uint16(variant.Bits()) {
				t.Fatalf("bits per sample %d, want %d", hdr.BitsPerSample, variant.Bits())
			}

			if hdr.TotalFrames != uint64(numSamples) {
				t.Fatalf("total frames %d, want %d", hdr.TotalFrames, numSamples)
			}

			if hdr.FactFrames != uint32(numSamples) {
				t.Fatalf("fact frames %d, want %d", hdr.FactFrames, numSamples)
			}

			if hdr.Duration() != 2*time.Second {
				t.Fatalf("duration %s, want 2s", hdr.Duration())
			}
		})
	}
}

func TestParseHeaderIMA(t *testing.T) {
	numSamples := 8000
	path := writeVariantWav(t, make([]float32, numSamples), 8000, VariantIMAADPCM)

	hdr, err := ParseHeader(path)
	if err != nil {
		t.Fatal(err)
	}

	if hdr.Variant != VariantIMAADPCM {
		t.Fatalf("variant %s, want %s", hdr.Variant, VariantIMAADPCM)
	}

	if hdr.BlockAlign != imaBlockAlign {
		t.Fatalf("block align %d, want %d", hdr.BlockAlign, imaBlockAlign)
	}

	if hdr.TotalFrames != uint64(numSamples) {
		t.Fatalf("total frames %d, want %d", hdr.TotalFrames, numSamples)
	}
}

func TestParseHeaderFileNotFound(t *testing.T) {
	_, err := ParseHeader(filepath.Join(t.TempDir(), "missing.wav"))
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestParseHeaderMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("this is not a wav file at all, not even close")},
		{"riff only", []byte("RIFF\x24\x00\x00\x00WAVE")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.wav")
			if err := os.WriteFile(path, tt.data, 0o644); err != nil {
				t.Fatal(err)
			}

			_, err := ParseHeader(path)
			if !errors.Is(err, ErrMalformedHeader) {
				t.Fatalf("expected ErrMalformedHeader, got %v", err)
			}
		})
	}
}

func TestParseHeaderTruncatedData(t *testing.T) {
	path := writeVariantWav(t, make([]float32, 8000), 8000, VariantG726_32)

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// cut the file short so the data chunk claims more bytes than exist
	cut := filepath.Join(t.TempDir(), "cut.wav")
	if err := os.WriteFile(cut, raw[:len(raw)-100], 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = ParseHeader(cut)
	if !errors.Is(err, ErrMalformedHeader) {
		t.Fatalf("expected ErrMalformedHeader, got %v", err)
	}
}

func TestDurationForFrames(t *testing.T) {
	tests := []struct {
		frames uint64
		rate   uint32
		want   time.Duration
	}{
		{80000, 8000, 10 * time.Second},
		{8000, 8000, time.Second},
		{4000, 8000, 500 * time.Millisecond},
		{0, 8000, 0},
		{44100, 44100, time.Second},
	}

	for _, tt := range tests {
		if got := durationForFrames(tt.frames, tt.rate); got != tt.want {
			t.Errorf("durationForFrames(%d, %d) = %s, want %s", tt.frames, tt.rate, got, tt.want)
		}
	}
}

func TestFrameCountForDuration(t *testing.T) {
	tests := []struct {
		dur  time.Duration
		rate uint32
		want int
	}{
		{10 * time.Second, 8000, 80000},
		{2 * time.Second, 8000, 16000},
		{500 * time.Millisecond, 8000, 4000},
		{0, 8000, 0},
	}

	for _, tt := range tests {
		if got := frameCountForDuration(tt.dur, tt.rate); got != tt.want {
			t.Errorf("frameCountForDuration(%s, %d) = %d, want %d", tt.dur, tt.rate, got, tt.want)
		}
	}
}
