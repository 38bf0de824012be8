package g726

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/riff"
)

// Encoder encodes LPCM data into a wav container, either as one of the
// byte-addressable formats or compressed through an ADPCM variant.
type Encoder struct {
	w   io.WriteSeeker
	buf *bytes.Buffer

	SampleRate int
	BitDepth   int
	NumChans   int

	// WavAudioFormat is the WAVE format tag written to the fmt chunk. PCM =
	// 1, values other than 1 indicate some form of compression.
	WavAudioFormat int
	// FmtChunk optionally controls fmt chunk serialization, including
	// WAVE_FORMAT_EXTENSIBLE fields.
	FmtChunk *FmtChunk

	WrittenBytes int

	variant         CodecVariant
	adpcmEnc        *adpcmWriter
	frames          int
	dataBytes       int
	pcmChunkStarted bool
	pcmChunkSizePos int
	factFramesPos   int
	wroteHeader     bool
}

var (
	errAlreadyWroteHdr = errors.New("already wrote header")
	errNilEncoder      = errors.New("can't write a nil encoder")
	errNilWriter       = errors.New("can't write to a nil writer")
)

// NewEncoder creates a new encoder to create a new wav file.
// Don't forget to add Frames to the encoder before writing.
func NewEncoder(w io.WriteSeeker, sampleRate, bitDepth, numChans, audioFormat int) *Encoder {
	e := &Encoder{
		w:              w,
		buf:            bytes.NewBuffer(nil),
		SampleRate:     sampleRate,
		BitDepth:       bitDepth,
		NumChans:       numChans,
		WavAudioFormat: audioFormat,
	}

	if variant, err := variantForFormat(uint16(audioFormat), uint16(bitDepth)); err == nil {
		e.variant = variant
	}

	return e
}

// NewVariantEncoder creates an encoder producing an ADPCM compressed wav
// file for the given codec variant. ADPCM streams are single channel.
func NewVariantEncoder(w io.WriteSeeker, sampleRate int, variant CodecVariant) *Encoder {
	e := NewEncoder(w, sampleRate, variant.Bits(), 1, int(variant.formatTag()))
	e.variant = variant

	return e
}

// AddLE serializes and adds the passed value using little endian.
func (e *Encoder) AddLE(src any) error {
	e.WrittenBytes += binary.Size(src)

	err := binary.Write(e.w, binary.LittleEndian, src)
	if err != nil {
		return fmt.Errorf("failed to write little endian: %w", err)
	}

	return nil
}

// AddBE serializes and adds the passed value using big endian.
func (e *Encoder) AddBE(src any) error {
	e.WrittenBytes += binary.Size(src)

	err := binary.Write(e.w, binary.BigEndian, src)
	if err != nil {
		return fmt.Errorf("failed to write big endian: %w", err)
	}

	return nil
}

// dataChunkWriter counts payload bytes flowing into the data chunk.
type dataChunkWriter struct {
	e *Encoder
}

func (dw dataChunkWriter) Write(p []byte) (int, error) {
	n, err := dw.e.w.Write(p)
	dw.e.WrittenBytes += n
	dw.e.dataBytes += n

	if err != nil {
		return n, fmt.Errorf("failed to write data chunk payload: %w", err)
	}

	return n, nil
}

func (e *Encoder) effectiveAudioFormat() int {
	if e.FmtChunk != nil {
		return int(e.FmtChunk.EffectiveFormatTag())
	}

	return e.WavAudioFormat
}

func (e *Encoder) effectiveBlockAlign() int {
	if e.variant == VariantIMAADPCM {
		return imaBlockAlign
	}

	if e.variant != VariantNone {
		// G.726 codewords have no block structure
		return 1
	}

	return e.NumChans * bytesPerSample(e.BitDepth)
}

func (e *Encoder) avgBytesPerSec() int {
	switch {
	case e.variant == VariantIMAADPCM:
		return e.SampleRate * imaBlockAlign / imaSamplesPerBlock
	case e.variant != VariantNone:
		return e.SampleRate * e.variant.Bits() / 8
	default:
		return e.SampleRate * e.effectiveBlockAlign()
	}
}

func (e *Encoder) buildFmtChunkForWrite() *FmtChunk {
	chunk := &FmtChunk{
		FormatTag:      uint16(e.WavAudioFormat),
		NumChannels:    uint16(e.NumChans),
		SampleRate:     uint32(e.SampleRate),
		AvgBytesPerSec: uint32(e.avgBytesPerSec()),
		BlockAlign:     uint16(e.effectiveBlockAlign()),
		BitsPerSample:  uint16(e.BitDepth),
	}

	if e.FmtChunk != nil {
		chunk = e.FmtChunk.Clone()
		chunk.NumChannels = uint16(e.NumChans)
		chunk.SampleRate = uint32(e.SampleRate)
		chunk.BlockAlign = uint16(e.effectiveBlockAlign())
		chunk.BitsPerSample = uint16(e.BitDepth)
		chunk.AvgBytesPerSec = uint32(e.avgBytesPerSec())
	}

	if e.variant == VariantIMAADPCM {
		// cbSize extension carrying wSamplesPerBlock
		chunk.ExtraData = []byte{
			byte(imaSamplesPerBlock & 0xFF),
			byte(imaSamplesPerBlock >> 8),
		}
	}

	if chunk.FormatTag == wavFormatExtensible && chunk.Extensible == nil {
		chunk.Extensible = &FmtExtensible{
			ValidBitsPerSample: uint16(e.BitDepth),
			SubFormat:          makeSubFormatGUID(uint16(e.effectiveAudioFormat())),
		}
	}

	return chunk
}

func (e *Encoder) writeHeader() error {
	if e.wroteHeader {
		return errAlreadyWroteHdr
	}

	e.wroteHeader = true
	if e == nil {
		return errNilEncoder
	}

	if e.w == nil {
		return errNilWriter
	}

	if e.WrittenBytes > 0 {
		return nil
	}

	// riff ID
	err := e.AddLE(riff.RiffID)
	if err != nil {
		return err
	}
	// file size uint32, to update later on.
	err = e.AddLE(uint32(4294967295))
	if err != nil {
		return err
	}
	// wave headers
	err = e.AddLE(riff.WavFormatID)
	if err != nil {
		return err
	}
	// form
	err = e.AddLE(riff.FmtID)
	if err != nil {
		return err
	}

	err = e.writeFmtChunk()
	if err != nil {
		return err
	}

	if e.variant != VariantNone {
		return e.writeFactChunk()
	}

	return nil
}

func (e *Encoder) writeFmtChunk() error {
	chunk := e.buildFmtChunkForWrite()

	needsExtensible := chunk.FormatTag == wavFormatExtensible && chunk.Extensible != nil

	switch {
	case needsExtensible:
		extraLen := 22 + len(chunk.Extensible.ExtraData)

		err := e.AddLE(uint32(16 + 2 + extraLen))
		if err != nil {
			return err
		}
	case len(chunk.ExtraData) > 0:
		err := e.AddLE(uint32(16 + 2 + len(chunk.ExtraData)))
		if err != nil {
			return err
		}
	default:
		err := e.AddLE(uint32(16))
		if err != nil {
			return err
		}
	}

	err := e.AddLE(chunk.FormatTag)
	if err != nil {
		return err
	}

	err = e.AddLE(chunk.NumChannels)
	if err != nil {
		return fmt.Errorf("error encoding the number of channels: %w", err)
	}

	err = e.AddLE(chunk.SampleRate)
	if err != nil {
		return fmt.Errorf("error encoding the sample rate: %w", err)
	}

	err = e.AddLE(chunk.AvgBytesPerSec)
	if err != nil {
		return fmt.Errorf("error encoding the avg bytes per sec: %w", err)
	}

	err = e.AddLE(chunk.BlockAlign)
	if err != nil {
		return err
	}

	err = e.AddLE(chunk.BitsPerSample)
	if err != nil {
		return fmt.Errorf("error encoding bits per sample: %w", err)
	}

	if needsExtensible {
		return e.writeFmtExtensible(chunk.Extensible)
	}

	if len(chunk.ExtraData) > 0 {
		err = e.AddLE(uint16(len(chunk.ExtraData)))
		if err != nil {
			return fmt.Errorf("error encoding fmt extension length: %w", err)
		}

		err = e.AddLE(chunk.ExtraData)
		if err != nil {
			return fmt.Errorf("error encoding fmt extension data: %w", err)
		}
	}

	return nil
}

func (e *Encoder) writeFmtExtensible(ext *FmtExtensible) error {
	extraLen := uint16(22 + len(ext.ExtraData))

	err := e.AddLE(extraLen)
	if err != nil {
		return fmt.Errorf("error encoding fmt extension length: %w", err)
	}

	err = e.AddLE(ext.ValidBitsPerSample)
	if err != nil {
		return fmt.Errorf("error encoding valid bits per sample: %w", err)
	}

	err = e.AddLE(ext.ChannelMask)
	if err != nil {
		return fmt.Errorf("error encoding channel mask: %w", err)
	}

	err = e.AddLE(ext.SubFormat)
	if err != nil {
		return fmt.Errorf("error encoding sub format: %w", err)
	}

	if len(ext.ExtraData) > 0 {
		n, err := e.w.Write(ext.ExtraData)
		e.WrittenBytes += n

		if err != nil {
			return fmt.Errorf("error encoding extensible extra data: %w", err)
		}
	}

	return nil
}

// writeFactChunk emits the fact chunk with a frame count placeholder that
// Close patches once the stream length is known. Compressed formats need it
// because the packed data size alone overstates the sample count.
func (e *Encoder) writeFactChunk() error {
	err := e.AddLE(CIDFact)
	if err != nil {
		return fmt.Errorf("failed to write the fact chunk ID: %w", err)
	}

	err = e.AddLE(uint32(4))
	if err != nil {
		return fmt.Errorf("failed to write the fact chunk size: %w", err)
	}

	e.factFramesPos = e.WrittenBytes

	err = e.AddLE(uint32(4294967295))
	if err != nil {
		return fmt.Errorf("failed to write the fact chunk frame count: %w", err)
	}

	return nil
}

func (e *Encoder) startPCMChunk() error {
	if e.pcmChunkStarted {
		return nil
	}

	// sound header
	err := e.AddLE(riff.DataFormatID)
	if err != nil {
		return fmt.Errorf("error encoding sound header: %w", err)
	}

	e.pcmChunkStarted = true

	// write a temporary chunksize
	e.pcmChunkSizePos = e.WrittenBytes

	err = e.AddLE(uint32(4294967295))
	if err != nil {
		return fmt.Errorf("%w when writing wav data chunk size header", err)
	}

	if e.variant != VariantNone && e.adpcmEnc == nil {
		e.adpcmEnc, err = newADPCMWriter(dataChunkWriter{e}, e.variant)
		if err != nil {
			return err
		}
	}

	return nil
}

// Write encodes and writes the passed buffer to the underlying writer.
// Don't forget to Close() the encoder or the file won't be valid.
func (e *Encoder) Write(buf *audio.Float32Buffer) error {
	if !e.wroteHeader {
		err := e.writeHeader()
		if err != nil {
			return err
		}
	}

	err := e.startPCMChunk()
	if err != nil {
		return err
	}

	if e.variant != VariantNone {
		return e.addADPCMBuffer(buf)
	}

	return e.addBuffer(buf)
}

// WriteFrame writes a single frame of data to the underlying writer.
func (e *Encoder) WriteFrame(value any) error {
	if !e.wroteHeader {
		err := e.writeHeader()
		if err != nil {
			return err
		}
	}

	err := e.startPCMChunk()
	if err != nil {
		return err
	}

	switch val := value.(type) {
	case float32:
		return e.writeFloatFrame(val)
	case float64:
		if e.effectiveAudioFormat() == wavFormatIEEEFloat {
			e.frames++

			switch e.BitDepth {
			case 32:
				return e.AddLE(clampFloat32(float32(val), -1, 1))
			case 64:
				return e.AddLE(clampFloat64(val, -1, 1))
			default:
				return fmt.Errorf("%w: %d", errEncUnsupportedFloatBitDepth, e.BitDepth)
			}
		}

		return e.WriteFrame(float32(val))
	default:
		e.frames++

		return e.AddLE(value)
	}
}

func (e *Encoder) writeFloatFrame(val float32) error {
	e.frames++

	if e.variant != VariantNone {
		return e.adpcmEnc.writeSample(int16(float32ToPCMInt32(val, 16)))
	}

	audioFormat := e.effectiveAudioFormat()

	if audioFormat == wavFormatIEEEFloat {
		switch e.BitDepth {
		case 32:
			return e.AddLE(clampFloat32(val, -1, 1))
		case 64:
			return e.AddLE(clampFloat64(float64(val), -1, 1))
		default:
			return fmt.Errorf("%w: %d", errEncUnsupportedFloatBitDepth, e.BitDepth)
		}
	}

	if audioFormat == wavFormatALaw {
		if e.BitDepth != 8 {
			return fmt.Errorf("%w: %d", errUnsupportedALawBitDepth, e.BitDepth)
		}

		return e.AddLE(encodeALawSample(int16(float32ToPCMInt32(val, 16))))
	}

	if audioFormat == wavFormatMuLaw {
		if e.BitDepth != 8 {
			return fmt.Errorf("%w: %d", errUnsupportedMuLawBitDepth, e.BitDepth)
		}

		return e.AddLE(encodeMuLawSample(int16(float32ToPCMInt32(val, 16))))
	}

	if audioFormat != wavFormatPCM {
		return fmt.Errorf("%w: %d", errUnsupportedWavFormat, audioFormat)
	}

	switch e.BitDepth {
	case 8:
		return e.AddLE(float32ToPCMUint8(val))
	case 16:
		return e.AddLE(int16(float32ToPCMInt32(val, 16)))
	case 24:
		return e.AddLE(audio.Int32toInt24LEBytes(float32ToPCMInt32(val, 24)))
	case 32:
		return e.AddLE(float32ToPCMInt32(val, 32))
	default:
		return fmt.Errorf("%w: %d", errUnsupportedFrameBitSize, e.BitDepth)
	}
}

// addADPCMBuffer compresses a buffer through the codec engine. ADPCM
// streams are single channel; downmix first (see EnsureMono).
func (e *Encoder) addADPCMBuffer(buf *audio.Float32Buffer) error {
	if buf == nil {
		return errNilBuffer
	}

	if buf.Format != nil && buf.Format.NumChannels > 1 {
		return fmt.Errorf("%w: %s supports mono only, got %d channels",
			errUnsupportedChannelCount, e.variant, buf.Format.NumChannels)
	}

	for _, val := range buf.Data {
		err := e.adpcmEnc.writeSample(int16(float32ToPCMInt32(val, 16)))
		if err != nil {
			return err
		}
	}

	e.frames += len(buf.Data)

	return nil
}

func (e *Encoder) addBuffer(buf *audio.Float32Buffer) error {
	if buf == nil {
		return errNilBuffer
	}

	frameCount := buf.NumFrames()
	audioFormat := e.effectiveAudioFormat()

	// buffer the samples so we don't do too many small writes
	var err error

	for i := 0; i < frameCount; i++ {
		for j := 0; j < buf.Format.NumChannels; j++ {
			val := buf.Data[i*buf.Format.NumChannels+j]

			if audioFormat == wavFormatIEEEFloat {
				switch e.BitDepth {
				case 32:
					err = binary.Write(e.buf, binary.LittleEndian, clampFloat32(val, -1, 1))
				case 64:
					err = binary.Write(e.buf, binary.LittleEndian, clampFloat64(float64(val), -1, 1))
				default:
					return fmt.Errorf("%w: %d", errEncUnsupportedFloatBitDepth, e.BitDepth)
				}

				if err != nil {
					return fmt.Errorf("failed to write float sample: %w", err)
				}

				continue
			}

			if audioFormat == wavFormatALaw {
				if e.BitDepth != 8 {
					return fmt.Errorf("%w: %d", errUnsupportedALawBitDepth, e.BitDepth)
				}

				err := e.buf.WriteByte(encodeALawSample(int16(float32ToPCMInt32(val, 16))))
				if err != nil {
					return fmt.Errorf("failed to write A-law sample: %w", err)
				}

				continue
			}

			if audioFormat == wavFormatMuLaw {
				if e.BitDepth != 8 {
					return fmt.Errorf("%w: %d", errUnsupportedMuLawBitDepth, e.BitDepth)
				}

				err := e.buf.WriteByte(encodeMuLawSample(int16(float32ToPCMInt32(val, 16))))
				if err != nil {
					return fmt.Errorf("failed to write mu-law sample: %w", err)
				}

				continue
			}

			if audioFormat != wavFormatPCM {
				return fmt.Errorf("%w: %d", errUnsupportedWavFormat, audioFormat)
			}

			switch e.BitDepth {
			case 8:
				err = binary.Write(e.buf, binary.LittleEndian, float32ToPCMUint8(val))
			case 16:
				err = binary.Write(e.buf, binary.LittleEndian, int16(float32ToPCMInt32(val, 16)))
			case 24:
				err = binary.Write(e.buf, binary.LittleEndian, audio.Int32toInt24LEBytes(float32ToPCMInt32(val, 24)))
			case 32:
				err = binary.Write(e.buf, binary.LittleEndian, float32ToPCMInt32(val, 32))
			default:
				return fmt.Errorf("%w: %d", errUnsupportedFrameBitSize, e.BitDepth)
			}

			if err != nil {
				return fmt.Errorf("failed to write %d-bit sample: %w", e.BitDepth, err)
			}
		}

		e.frames++
	}

	if n, err := e.w.Write(e.buf.Bytes()); err != nil {
		e.WrittenBytes += n
		return fmt.Errorf("failed to write buffer: %w", err)
	}

	e.WrittenBytes += e.buf.Len()
	e.buf.Reset()

	return nil
}

// Close flushes the content to disk and patches the header sizes.
// Note that the underlying writer is NOT being closed.
func (e *Encoder) Close() error {
	if e == nil || e.w == nil {
		return nil
	}

	if e.adpcmEnc != nil {
		err := e.adpcmEnc.finish()
		if err != nil {
			return fmt.Errorf("failed to flush ADPCM stream: %w", err)
		}
	}

	// go back and write total size in header
	if _, err := e.w.Seek(4, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to file size position: %w", err)
	}

	err := e.AddLE(uint32(e.WrittenBytes) - 8)
	if err != nil {
		return fmt.Errorf("%w when writing the total written bytes", err)
	}

	// patch the fact chunk with the real frame count
	if e.factFramesPos > 0 {
		if _, err := e.w.Seek(int64(e.factFramesPos), io.SeekStart); err != nil {
			return fmt.Errorf("failed to seek to fact chunk position: %w", err)
		}

		err := e.AddLE(uint32(e.frames))
		if err != nil {
			return fmt.Errorf("%w when writing the fact chunk frame count", err)
		}
	}

	// rewrite the audio chunk length header
	if e.pcmChunkSizePos > 0 {
		if _, err := e.w.Seek(int64(e.pcmChunkSizePos), io.SeekStart); err != nil {
			return fmt.Errorf("failed to seek to PCM chunk size position: %w", err)
		}

		chunksize := uint32(e.dataBytes)
		if e.variant == VariantNone {
			chunksize = uint32((e.BitDepth / 8) * e.NumChans * e.frames)
		}

		err := e.AddLE(chunksize)
		if err != nil {
			return fmt.Errorf("%w when writing wav data chunk size header", err)
		}
	}

	// jump back to the end of the file.
	if _, err := e.w.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end of file: %w", err)
	}

	if f, ok := e.w.(*os.File); ok {
		return f.Sync()
	}

	return nil
}
