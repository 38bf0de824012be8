package g726

import (
	"math"
	"testing"
)

func TestIMABlockRoundTrip(t *testing.T) {
	samples := make([]int16, imaSamplesPerBlock)
	for i := range samples {
		samples[i] = int16(8000 * math.Sin(float64(i)/8000*440*2*math.Pi))
	}

	var carry imaState

	block := encodeIMABlock(samples, &carry)
	if len(block) != imaBlockAlign {
		t.Fatalf("expected a %d byte block, got %d", imaBlockAlign, len(block))
	}

	decoded, err := decodeIMABlock(block, imaSamplesPerBlock)
	if err != nil {
		t.Fatal(err)
	}

	if len(decoded) != imaSamplesPerBlock {
		t.Fatalf("expected %d samples, got %d", imaSamplesPerBlock, len(decoded))
	}

	// the first sample is stored verbatim in the block header
	if decoded[0] != samples[0] {
		t.Fatalf("predictor seed %d does not match first sample %d", decoded[0], samples[0])
	}

	for i := range decoded {
		diff := int(decoded[i]) - int(samples[i])
		if diff < 0 {
			diff = -diff
		}

		if diff > 2000 {
			t.Fatalf("sample %d decoded to %d, want about %d", i, decoded[i], samples[i])
		}
	}
}

func TestIMAShortBlockPadding(t *testing.T) {
	samples := []int16{100, 200, 300}

	var carry imaState

	block := encodeIMABlock(samples, &carry)
	if len(block) != imaBlockAlign {
		t.Fatalf("short input still encodes a full %d byte block, got %d", imaBlockAlign, len(block))
	}

	// a want below capacity truncates the decode
	decoded, err := decodeIMABlock(block, len(samples))
	if err != nil {
		t.Fatal(err)
	}

	if len(decoded) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(decoded))
	}
}

func TestIMABlocksDecodeIndependently(t *testing.T) {
	first := make([]int16, imaSamplesPerBlock)
	second := make([]int16, imaSamplesPerBlock)

	for i := range first {
		first[i] = int16(12000 * math.Sin(float64(i)/8000*440*2*math.Pi))
		second[i] = int16(6000 * math.Sin(float64(i)/8000*880*2*math.Pi))
	}

	var carry imaState

	encodeIMABlock(first, &carry)
	blockTwo := encodeIMABlock(second, &carry)

	// decoding the second block must not need the first block's samples
	decoded, err := decodeIMABlock(blockTwo, imaSamplesPerBlock)
	if err != nil {
		t.Fatal(err)
	}

	if decoded[0] != second[0] {
		t.Fatalf("block seed %d does not match first sample %d", decoded[0], second[0])
	}
}

func TestIMADecodeTruncatedBlock(t *testing.T) {
	if _, err := decodeIMABlock([]byte{1, 2}, 10); err == nil {
		t.Fatal("expected an error for a block shorter than its header")
	}
}

func TestClampStepIndex(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-5, 0},
		{0, 0},
		{44, 44},
		{88, 88},
		{120, 88},
	}

	for _, tt := range tests {
		if got := clampStepIndex(tt.in); got != tt.want {
			t.Errorf("clampStepIndex(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
