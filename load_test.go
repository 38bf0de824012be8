package g726

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
)

func writeAiffFixture(t *testing.T, data []float32, sampleRate int) string {
	t.Helper()

	outPath := filepath.Join(t.TempDir(), "in.aif")

	f, err := os.Create(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	e := aiff.NewEncoder(f, sampleRate, 16, 1)

	intBuf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, len(data)),
	}

	for i, v := range data {
		intBuf.Data[i] = int(float32ToPCMInt32(v, 16))
	}

	if err := e.Write(intBuf); err != nil {
		t.Fatal(err)
	}

	if err := e.Close(); err != nil {
		t.Fatal(err)
	}

	return outPath
}

func TestLoadAudioWav(t *testing.T) {
	in := genSine(4000, 440, 8000, 0.5)
	path := writePCMWav(t, in, 8000, 1)

	buf, err := LoadAudio(path, 0, false)
	if err != nil {
		t.Fatal(err)
	}

	if len(buf.Data) != len(in) {
		t.Fatalf("expected %d samples, got %d", len(in), len(buf.Data))
	}
}

func TestLoadAudioCompressedWav(t *testing.T) {
	path := writeVariantWav(t, genSine(4000, 440, 8000, 0.5), 8000, VariantG726_32)

	buf, err := LoadAudio(path, 0, false)
	if err != nil {
		t.Fatal(err)
	}

	if len(buf.Data) != 4000 {
		t.Fatalf("expected 4000 samples, got %d", len(buf.Data))
	}
}

func TestLoadAudioAiff(t *testing.T) {
	in := genSine(4000, 440, 8000, 0.5)
	path := writeAiffFixture(t, in, 8000)

	buf, err := LoadAudio(path, 0, false)
	if err != nil {
		t.Fatal(err)
	}

	if len(buf.Data) != len(in) {
		t.Fatalf("expected %d samples, got %d", len(in), len(buf.Data))
	}

	for i := range buf.Data {
		if !float32ApproxEqual(buf.Data[i], in[i], 1e-3) {
			t.Fatalf("sample %d is %f, want about %f", i, buf.Data[i], in[i])
		}
	}
}

func TestLoadAudioResampleAndMono(t *testing.T) {
	numFrames := 16000

	data := make([]float32, numFrames*2)
	for i := 0; i < numFrames; i++ {
		data[i*2] = 0.4
		data[i*2+1] = 0.2
	}

	path := writePCMWav(t, data, 16000, 2)

	buf, err := LoadAudio(path, 8000, true)
	if err != nil {
		t.Fatal(err)
	}

	if buf.Format.NumChannels != 1 {
		t.Fatalf("channels %d, want 1", buf.Format.NumChannels)
	}

	if buf.Format.SampleRate != 8000 {
		t.Fatalf("sample rate %d, want 8000", buf.Format.SampleRate)
	}

	if len(buf.Data) != 8000 {
		t.Fatalf("expected 8000 samples, got %d", len(buf.Data))
	}

	for i, v := range buf.Data {
		if !float32ApproxEqual(v, 0.3, 1e-3) {
			t.Fatalf("sample %d is %f, want 0.3", i, v)
		}
	}
}

func TestLoadAudioUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadAudio(path, 0, false)
	if !errors.Is(err, ErrLoad) {
		t.Fatalf("expected ErrLoad, got %v", err)
	}
}

func TestLoadAudioFileNotFound(t *testing.T) {
	_, err := LoadAudio(filepath.Join(t.TempDir(), "missing.wav"), 0, false)
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}
