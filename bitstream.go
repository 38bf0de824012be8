package g726

// LSB-first codeword packing. G.726 codewords are 2 to 5 bits wide, so the
// 3- and 5-bit rates straddle byte boundaries. The reader and writer keep a
// shift register accumulator, filling from the low end the same way the
// WAV49 GSM layout packs its fields.

import (
	"errors"
	"fmt"
	"io"
)

// bitReader reads fixed-width codewords LSB-first from a byte stream.
type bitReader struct {
	r   io.Reader
	acc uint32
	n   uint
	buf [1]byte
}

func newBitReader(r io.Reader) *bitReader {
	return &bitReader{r: r}
}

// readBits returns the next codeword of the given width. io.EOF is returned
// only on a codeword boundary; a stream ending mid-codeword reports
// errShortADPCMStream.
func (br *bitReader) readBits(width uint) (int, error) {
	if width == 0 || width > 8 {
		return 0, fmt.Errorf("%w: %d", errInvalidADPCMCodeWidth, width)
	}

	for br.n < width {
		_, err := io.ReadFull(br.r, br.buf[:])
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				if br.n == 0 {
					return 0, io.EOF
				}

				return 0, errShortADPCMStream
			}

			return 0, fmt.Errorf("failed to read ADPCM stream: %w", err)
		}

		br.acc |= uint32(br.buf[0]) << br.n
		br.n += 8
	}

	code := int(br.acc & ((1 << width) - 1))
	br.acc >>= width
	br.n -= width

	return code, nil
}

// bitWriter packs fixed-width codewords LSB-first into a byte stream.
type bitWriter struct {
	w   io.Writer
	acc uint32
	n   uint
	// written counts payload bytes flushed to w.
	written int
}

func newBitWriter(w io.Writer) *bitWriter {
	return &bitWriter{w: w}
}

func (bw *bitWriter) writeBits(code int, width uint) error {
	if width == 0 || width > 8 {
		return fmt.Errorf("%w: %d", errInvalidADPCMCodeWidth, width)
	}

	bw.acc |= uint32(code&((1<<width)-1)) << bw.n
	bw.n += width

	for bw.n >= 8 {
		_, err := bw.w.Write([]byte{byte(bw.acc)})
		if err != nil {
			return fmt.Errorf("failed to write ADPCM stream: %w", err)
		}

		bw.acc >>= 8
		bw.n -= 8
		bw.written++
	}

	return nil
}

// flush zero-pads and emits a final partial byte, if any.
func (bw *bitWriter) flush() error {
	if bw.n == 0 {
		return nil
	}

	_, err := bw.w.Write([]byte{byte(bw.acc)})
	if err != nil {
		return fmt.Errorf("failed to flush ADPCM stream: %w", err)
	}

	bw.acc = 0
	bw.n = 0
	bw.written++

	return nil
}
