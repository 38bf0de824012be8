package g726

// Streaming glue between the codec cores and the WAV container. An
// adpcmReader turns a packed data chunk into normalized float32 samples, an
// adpcmWriter packs samples into the chunk payload. Both carry the codec
// state across calls, so skipping means decoding and discarding.

import (
	"errors"
	"fmt"
	"io"
)

type adpcmReader struct {
	variant CodecVariant

	// G.726
	br    *bitReader
	state *g726State
	tab   *g726Tables

	// IMA
	r          io.Reader
	blockAlign int
	block      []int16
	blockPos   int

	delivered int
	// total caps the decoded frame count, 0 means until the chunk ends.
	total int
}

func newADPCMReader(r io.Reader, variant CodecVariant, blockAlign, total int) (*adpcmReader, error) {
	switch variant {
	case VariantG726_16, VariantG726_24, VariantG726_32, VariantG726_40:
		tab, err := tablesForVariant(variant)
		if err != nil {
			return nil, err
		}

		return &adpcmReader{
			variant: variant,
			br:      newBitReader(r),
			state:   newG726State(),
			tab:     tab,
			total:   total,
		}, nil
	case VariantIMAADPCM:
		if blockAlign < imaBlockHeaderSize+1 {
			blockAlign = imaBlockAlign
		}

		return &adpcmReader{
			variant:    variant,
			r:          r,
			blockAlign: blockAlign,
			total:      total,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", errVariantWithoutTables, variant)
	}
}

// remaining returns how many frames may still be delivered, or -1 when the
// stream length is unknown.
func (a *adpcmReader) remaining() int {
	if a.total <= 0 {
		return -1
	}

	return a.total - a.delivered
}

// next decodes a single sample. Returns io.EOF once the stream is
// exhausted.
func (a *adpcmReader) next() (int16, error) {
	if a.total > 0 && a.delivered >= a.total {
		return 0, io.EOF
	}

	if a.variant == VariantIMAADPCM {
		sample, err := a.nextIMA()
		if err != nil {
			return 0, err
		}

		a.delivered++

		return sample, nil
	}

	code, err := a.br.readBits(uint(a.tab.bits))
	if err != nil {
		return 0, err
	}

	a.delivered++

	return a.state.decode(code, a.tab), nil
}

func (a *adpcmReader) nextIMA() (int16, error) {
	if a.blockPos >= len(a.block) {
		err := a.loadIMABlock()
		if err != nil {
			return 0, err
		}
	}

	sample := a.block[a.blockPos]
	a.blockPos++

	return sample, nil
}

func (a *adpcmReader) loadIMABlock() error {
	raw := make([]byte, a.blockAlign)

	n, err := io.ReadFull(a.r, raw)
	if n == 0 {
		return io.EOF
	}

	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("failed to read IMA block: %w", err)
	}

	samplesPerBlock := (a.blockAlign-imaBlockHeaderSize)*2 + 1

	block, err := decodeIMABlock(raw[:n], samplesPerBlock)
	if err != nil {
		return err
	}

	a.block = block
	a.blockPos = 0

	return nil
}

// skip advances the stream by n frames. G.726 state is path dependent, so
// skipped samples are still decoded; IMA blocks are independent, so whole
// blocks are skipped without decoding.
func (a *adpcmReader) skip(n int) error {
	if a.variant == VariantIMAADPCM {
		samplesPerBlock := (a.blockAlign-imaBlockHeaderSize)*2 + 1

		for n >= samplesPerBlock && a.blockPos >= len(a.block) {
			err := a.discardIMABlock()
			if err != nil {
				return err
			}

			n -= samplesPerBlock
			a.delivered += samplesPerBlock
		}
	}

	for k := 0; k < n; k++ {
		_, err := a.next()
		if err != nil {
			return err
		}
	}

	return nil
}

func (a *adpcmReader) discardIMABlock() error {
	_, err := io.CopyN(io.Discard, a.r, int64(a.blockAlign))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}

		return fmt.Errorf("failed to skip IMA block: %w", err)
	}

	return nil
}

// readSamples fills out with normalized samples, returning the count
// delivered. A short count without error means the stream ended.
func (a *adpcmReader) readSamples(out []float32) (int, error) {
	for i := range out {
		sample, err := a.next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return i, nil
			}

			return i, err
		}

		out[i] = normalizePCMInt(int(sample), 16)
	}

	return len(out), nil
}

type adpcmWriter struct {
	variant CodecVariant
	w       io.Writer

	// G.726
	bw    *bitWriter
	state *g726State
	tab   *g726Tables

	// IMA
	pending []int16
	carry   imaState

	frames int
}

func newADPCMWriter(w io.Writer, variant CodecVariant) (*adpcmWriter, error) {
	aw := &adpcmWriter{variant: variant, w: w}

	switch variant {
	case VariantG726_16, VariantG726_24, VariantG726_32, VariantG726_40:
		tab, err := tablesForVariant(variant)
		if err != nil {
			return nil, err
		}

		aw.bw = newBitWriter(w)
		aw.state = newG726State()
		aw.tab = tab
	case VariantIMAADPCM:
		aw.pending = make([]int16, 0, imaSamplesPerBlock)
	default:
		return nil, fmt.Errorf("%w: %s", errVariantWithoutTables, variant)
	}

	return aw, nil
}

func (aw *adpcmWriter) writeSample(sample int16) error {
	aw.frames++

	if aw.variant == VariantIMAADPCM {
		aw.pending = append(aw.pending, sample)
		if len(aw.pending) < imaSamplesPerBlock {
			return nil
		}

		return aw.flushIMABlock()
	}

	code := aw.state.encode(sample, aw.tab)

	return aw.bw.writeBits(code, uint(aw.tab.bits))
}

func (aw *adpcmWriter) flushIMABlock() error {
	block := encodeIMABlock(aw.pending, &aw.carry)
	aw.pending = aw.pending[:0]

	_, err := aw.w.Write(block)
	if err != nil {
		return fmt.Errorf("failed to write IMA block: %w", err)
	}

	return nil
}

// finish pads and flushes any partial trailing unit.
func (aw *adpcmWriter) finish() error {
	if aw.variant == VariantIMAADPCM {
		if len(aw.pending) == 0 {
			return nil
		}

		return aw.flushIMABlock()
	}

	return aw.bw.flush()
}
