package g726

// IMA (DVI4) ADPCM block codec, the universal fallback variant. Unlike
// G.726, IMA WAV data is block structured: every block starts with a
// predictor seed and step index, so blocks decode independently and seeking
// only replays within the target block.

import (
	"encoding/binary"
	"fmt"
)

const (
	// imaBlockAlign is the data block size this package writes for mono
	// streams. 256 bytes carry a 4 byte header plus 504 nibbles.
	imaBlockAlign      = 256
	imaBlockHeaderSize = 4
	imaSamplesPerBlock = (imaBlockAlign-imaBlockHeaderSize)*2 + 1
	imaStepIndexMax    = 88
)

var imaStepTable = [89]int{
	7, 8, 9, 10, 11, 12, 13, 14, 16, 17,
	19, 21, 23, 25, 28, 31, 34, 37, 41, 45,
	50, 55, 60, 66, 73, 80, 88, 97, 107, 118,
	130, 143, 157, 173, 190, 209, 230, 253, 279, 307,
	337, 371, 408, 449, 494, 544, 598, 658, 724, 796,
	876, 963, 1060, 1166, 1282, 1411, 1552, 1707, 1878, 2066,
	2272, 2499, 2749, 3024, 3327, 3660, 4026, 4428, 4871, 5358,
	5894, 6484, 7132, 7845, 8630, 9493, 10442, 11487, 12635, 13899,
	15289, 16818, 18500, 20350, 22385, 24623, 27086, 29794, 32767,
}

var imaIndexTable = [16]int{
	-1, -1, -1, -1, 2, 4, 6, 8,
	-1, -1, -1, -1, 2, 4, 6, 8,
}

func clampStepIndex(i int) int {
	if i < 0 {
		return 0
	}

	if i > imaStepIndexMax {
		return imaStepIndexMax
	}

	return i
}

// imaState is the per-block predictor state.
type imaState struct {
	predictor int16
	stepIndex int
}

// encodeNibble quantizes one sample against the current predictor and
// advances the state the same way the decoder will.
func (s *imaState) encodeNibble(sample int16) uint8 {
	step := imaStepTable[s.stepIndex]

	diff := int(sample) - int(s.predictor)

	var nibble int
	if diff < 0 {
		nibble = 8
		diff = -diff
	}

	vpdiff := step >> 3

	if diff >= step {
		nibble |= 4
		diff -= step
		vpdiff += step
	}

	if diff >= step>>1 {
		nibble |= 2
		diff -= step >> 1
		vpdiff += step >> 1
	}

	if diff >= step>>2 {
		nibble |= 1
		vpdiff += step >> 2
	}

	pred := int(s.predictor)
	if nibble&8 != 0 {
		pred -= vpdiff
	} else {
		pred += vpdiff
	}

	s.predictor = clampInt16(pred)
	s.stepIndex = clampStepIndex(s.stepIndex + imaIndexTable[nibble])

	return uint8(nibble)
}

// decodeNibble reconstructs one sample from a codeword.
func (s *imaState) decodeNibble(nibble uint8) int16 {
	step := imaStepTable[s.stepIndex]

	diff := step >> 3
	if nibble&4 != 0 {
		diff += step
	}

	if nibble&2 != 0 {
		diff += step >> 1
	}

	if nibble&1 != 0 {
		diff += step >> 2
	}

	pred := int(s.predictor)
	if nibble&8 != 0 {
		pred -= diff
	} else {
		pred += diff
	}

	s.predictor = clampInt16(pred)
	s.stepIndex = clampStepIndex(s.stepIndex + imaIndexTable[nibble])

	return s.predictor
}

// encodeIMABlock encodes up to imaSamplesPerBlock mono samples into a
// imaBlockAlign sized block. Short final blocks are padded by repeating the
// last sample; the fact chunk keeps the padding out of the decoded length.
func encodeIMABlock(samples []int16, carry *imaState) []byte {
	block := make([]byte, imaBlockAlign)

	var first int16
	if len(samples) > 0 {
		first = samples[0]
	}

	carry.predictor = first

	binary.LittleEndian.PutUint16(block[0:2], uint16(carry.predictor))
	block[2] = byte(carry.stepIndex)
	block[3] = 0

	last := first
	if len(samples) > 0 {
		last = samples[len(samples)-1]
	}

	sampleAt := func(i int) int16 {
		if i < len(samples) {
			return samples[i]
		}

		return last
	}

	out := block[imaBlockHeaderSize:]

	for i := 1; i < imaSamplesPerBlock; i++ {
		nibble := carry.encodeNibble(sampleAt(i))

		pos := (i - 1) / 2
		if (i-1)%2 == 0 {
			out[pos] = nibble & 0x0F
		} else {
			out[pos] |= (nibble & 0x0F) << 4
		}
	}

	return block
}

// decodeIMABlock decodes one block into at most want samples.
func decodeIMABlock(block []byte, want int) ([]int16, error) {
	if len(block) < imaBlockHeaderSize {
		return nil, fmt.Errorf("%w: IMA block of %d bytes", ErrMalformedHeader, len(block))
	}

	state := imaState{
		predictor: int16(binary.LittleEndian.Uint16(block[0:2])),
		stepIndex: clampStepIndex(int(block[2])),
	}

	capacity := (len(block)-imaBlockHeaderSize)*2 + 1
	if want > capacity {
		want = capacity
	}

	out := make([]int16, 0, want)
	out = append(out, state.predictor)

	data := block[imaBlockHeaderSize:]
	for i := 0; len(out) < want && i < len(data)*2; i++ {
		nibble := data[i/2]
		if i%2 == 1 {
			nibble >>= 4
		}

		out = append(out, state.decodeNibble(nibble&0x0F))
	}

	return out, nil
}
