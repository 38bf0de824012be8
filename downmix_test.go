package g726

import (
	"errors"
	"testing"

	"github.com/go-audio/audio"
)

func TestEnsureMonoStereo(t *testing.T) {
	numFrames := 1000

	data := make([]float32, numFrames*2)
	for i := 0; i < numFrames; i++ {
		data[i*2] = 0.5
		data[i*2+1] = -0.25
	}

	buf := &audio.Float32Buffer{
		Data:   data,
		Format: &audio.Format{NumChannels: 2, SampleRate: 8000},
	}

	mono, err := EnsureMono(buf)
	if err != nil {
		t.Fatal(err)
	}

	if len(mono.Data) != numFrames {
		t.Fatalf("expected %d frames, got %d", numFrames, len(mono.Data))
	}

	if mono.Format.NumChannels != 1 {
		t.Fatalf("expected 1 channel, got %d", mono.Format.NumChannels)
	}

	if mono.Format.SampleRate != 8000 {
		t.Fatalf("sample rate %d, want 8000", mono.Format.SampleRate)
	}

	for i, v := range mono.Data {
		if !float32ApproxEqual(v, 0.125, 1e-6) {
			t.Fatalf("frame %d averaged to %f, want 0.125", i, v)
		}
	}
}

func TestEnsureMonoPassThrough(t *testing.T) {
	buf := &audio.Float32Buffer{
		Data:   []float32{0.1, 0.2, 0.3},
		Format: &audio.Format{NumChannels: 1, SampleRate: 8000},
	}

	mono, err := EnsureMono(buf)
	if err != nil {
		t.Fatal(err)
	}

	if mono != buf {
		t.Fatal("mono input should be returned unchanged")
	}
}

func TestEnsureMonoBadShape(t *testing.T) {
	tests := []struct {
		name     string
		data     []float32
		numChans int
	}{
		{"zero channels", []float32{0.1, 0.2}, 0},
		{"negative channels", []float32{0.1, 0.2}, -1},
		{"ragged interleave", []float32{0.1, 0.2, 0.3}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &audio.Float32Buffer{
				Data:   tt.data,
				Format: &audio.Format{NumChannels: tt.numChans, SampleRate: 8000},
			}

			_, err := EnsureMono(buf)
			if !errors.Is(err, ErrUnsupportedRank) {
				t.Fatalf("expected ErrUnsupportedRank, got %v", err)
			}
		})
	}
}

func TestEnsureMonoNil(t *testing.T) {
	if _, err := EnsureMono(nil); err == nil {
		t.Fatal("expected an error for a nil buffer")
	}
}
