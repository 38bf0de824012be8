package g726

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/riff"
)

// CIDFact is the chunk ID for the fact chunk carrying the frame count of
// compressed streams.
var CIDFact = [4]byte{'f', 'a', 'c', 't'}

// AudioHeader is the format metadata of a WAV file, read without touching
// the data chunk payload. Immutable once parsed.
type AudioHeader struct {
	SampleRate    uint32
	NumChannels   uint16
	FormatTag     uint16
	BitsPerSample uint16
	BlockAlign    uint16
	// Variant is the ADPCM variant of the stream, VariantNone for
	// byte-addressable formats.
	Variant CodecVariant
	// TotalFrames is the per-channel sample count, taken from the fact
	// chunk when present and derived from the data size otherwise.
	TotalFrames uint64
	// FactFrames is the raw fact chunk value, 0 if the chunk was absent.
	FactFrames uint32
	DataOffset uint64
	DataLength uint64
}

// Duration returns the stream length. This is container-header arithmetic,
// independent of the file size.
func (h *AudioHeader) Duration() time.Duration {
	if h == nil {
		return 0
	}

	return durationForFrames(h.TotalFrames, h.SampleRate)
}

// ParseHeader reads the WAV container header of the file at path. Only
// chunk headers and the fmt/fact payloads are read; data chunk payloads are
// seeked past.
func ParseHeader(path string) (*AudioHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}

		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return readHeader(f)
}

func readHeader(r io.ReadSeeker) (*AudioHeader, error) {
	fileSize, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to measure file: %w", err)
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind: %w", err)
	}

	var (
		riffHdr struct {
			ID     [4]byte
			Size   uint32
			Format [4]byte
		}
		fmtChunk   *FmtChunk
		factFrames uint32
		dataOffset int64
		dataLength uint32
		seenData   bool
	)

	err = binary.Read(r, binary.LittleEndian, &riffHdr)
	if err != nil {
		return nil, fmt.Errorf("%w: missing RIFF header", ErrMalformedHeader)
	}

	if riffHdr.ID != riff.RiffID || riffHdr.Format != riff.WavFormatID {
		return nil, fmt.Errorf("%w: not a RIFF/WAVE container", ErrMalformedHeader)
	}

	for {
		var chunkHdr struct {
			ID   [4]byte
			Size uint32
		}

		err = binary.Read(r, binary.LittleEndian, &chunkHdr)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("failed to read chunk header: %w", err)
		}

		// chunks are word aligned
		skip := int64(chunkHdr.Size)
		if chunkHdr.Size%2 == 1 {
			skip++
		}

		switch chunkHdr.ID {
		case riff.FmtID:
			fmtChunk, err = readFmtChunkPayload(io.LimitReader(r, int64(chunkHdr.Size)))
			if err != nil {
				return nil, err
			}

			if chunkHdr.Size%2 == 1 {
				if _, err := r.Seek(1, io.SeekCurrent); err != nil {
					return nil, fmt.Errorf("failed to skip fmt padding: %w", err)
				}
			}
		case CIDFact:
			if chunkHdr.Size < 4 {
				return nil, fmt.Errorf("%w: fact chunk of %d bytes", ErrMalformedHeader, chunkHdr.Size)
			}

			err = binary.Read(r, binary.LittleEndian, &factFrames)
			if err != nil {
				return nil, fmt.Errorf("failed to read fact chunk: %w", err)
			}

			if _, err := r.Seek(skip-4, io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("failed to skip fact chunk tail: %w", err)
			}
		case riff.DataFormatID:
			seenData = true
			dataLength = chunkHdr.Size

			dataOffset, err = r.Seek(0, io.SeekCurrent)
			if err != nil {
				return nil, fmt.Errorf("failed to locate data chunk: %w", err)
			}

			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("failed to skip data chunk: %w", err)
			}
		default:
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("failed to skip %q chunk: %w", chunkHdr.ID, err)
			}
		}
	}

	if fmtChunk == nil {
		return nil, fmt.Errorf("%w: fmt chunk not found", ErrMalformedHeader)
	}

	if !seenData {
		return nil, fmt.Errorf("%w: data chunk not found", ErrMalformedHeader)
	}

	if dataOffset < 0 || uint64(dataOffset)+uint64(dataLength) > uint64(fileSize) {
		return nil, fmt.Errorf("%w: data chunk exceeds file size", ErrMalformedHeader)
	}

	return buildHeader(fmtChunk, factFrames, uint64(dataOffset), uint64(dataLength))
}

func readFmtChunkPayload(r io.Reader) (*FmtChunk, error) {
	chunk := &FmtChunk{}

	fields := []any{
		&chunk.FormatTag,
		&chunk.NumChannels,
		&chunk.SampleRate,
		&chunk.AvgBytesPerSec,
		&chunk.BlockAlign,
		&chunk.BitsPerSample,
	}

	for _, field := range fields {
		err := binary.Read(r, binary.LittleEndian, field)
		if err != nil {
			return nil, fmt.Errorf("%w: truncated fmt chunk", ErrMalformedHeader)
		}
	}

	var extraSize uint16

	err := binary.Read(r, binary.LittleEndian, &extraSize)
	if err != nil {
		// 16 byte fmt chunk without the extension size field
		return chunk, nil
	}

	chunk.ExtraData = make([]byte, extraSize)
	if extraSize > 0 {
		_, err := io.ReadFull(r, chunk.ExtraData)
		if err != nil {
			return nil, fmt.Errorf("%w: truncated fmt extension", ErrMalformedHeader)
		}
	}

	if chunk.FormatTag == wavFormatExtensible && extraSize >= 22 {
		ext := &FmtExtensible{}
		ext.ValidBitsPerSample = binary.LittleEndian.Uint16(chunk.ExtraData[0:2])
		ext.ChannelMask = binary.LittleEndian.Uint32(chunk.ExtraData[2:6])
		copy(ext.SubFormat[:], chunk.ExtraData[6:22])

		if len(chunk.ExtraData) > 22 {
			ext.ExtraData = append(ext.ExtraData, chunk.ExtraData[22:]...)
		}

		chunk.Extensible = ext
	}

	return chunk, nil
}

func buildHeader(fmtChunk *FmtChunk, factFrames uint32, dataOffset, dataLength uint64) (*AudioHeader, error) {
	formatTag := fmtChunk.EffectiveFormatTag()
	if !isKnownFormat(formatTag) {
		return nil, fmt.Errorf("%w: format tag %d", ErrMalformedHeader, formatTag)
	}

	if fmtChunk.NumChannels < 1 {
		return nil, fmt.Errorf("%w: %d channels", ErrMalformedHeader, fmtChunk.NumChannels)
	}

	if fmtChunk.SampleRate == 0 {
		return nil, fmt.Errorf("%w: zero sample rate", ErrMalformedHeader)
	}

	variant, err := variantForFormat(formatTag, fmtChunk.BitsPerSample)
	if err != nil {
		return nil, err
	}

	hdr := &AudioHeader{
		SampleRate:    fmtChunk.SampleRate,
		NumChannels:   fmtChunk.NumChannels,
		FormatTag:     formatTag,
		BitsPerSample: fmtChunk.BitsPerSample,
		BlockAlign:    fmtChunk.BlockAlign,
		Variant:       variant,
		FactFrames:    factFrames,
		DataOffset:    dataOffset,
		DataLength:    dataLength,
	}

	hdr.TotalFrames = totalFrames(hdr)

	return hdr, nil
}

// totalFrames derives the per-channel frame count. The fact chunk wins for
// compressed streams since the packed payload may carry padding.
func totalFrames(hdr *AudioHeader) uint64 {
	if isCompressedFormat(hdr.FormatTag) && hdr.FactFrames > 0 {
		return uint64(hdr.FactFrames)
	}

	switch {
	case hdr.Variant == VariantIMAADPCM:
		blockAlign := uint64(hdr.BlockAlign)
		if blockAlign == 0 {
			blockAlign = imaBlockAlign
		}

		fullBlocks := hdr.DataLength / blockAlign

		frames := fullBlocks * ((blockAlign-imaBlockHeaderSize)*2 + 1)
		if rest := hdr.DataLength % blockAlign; rest > imaBlockHeaderSize {
			frames += (rest-imaBlockHeaderSize)*2 + 1
		}

		return frames
	case hdr.Variant != VariantNone:
		return hdr.DataLength * 8 / uint64(hdr.Variant.Bits())
	default:
		blockAlign := uint64(hdr.BlockAlign)
		if blockAlign == 0 {
			blockAlign = uint64(bytesPerSample(int(hdr.BitsPerSample))) * uint64(hdr.NumChannels)
		}

		return hdr.DataLength / blockAlign
	}
}
