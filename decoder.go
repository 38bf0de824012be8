package g726

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/riff"
)

// ErrPCMChunkNotFound indicates a bad audio file without data.
var ErrPCMChunkNotFound = errors.New("PCM chunk not found in audio file")

// ErrDurationNilPointer is returned when calculating duration on a nil decoder.
var ErrDurationNilPointer = errors.New("can't calculate the duration of a nil pointer")

// Decoder handles the decoding of wav files, including the G.726 and IMA
// ADPCM compressed payloads this package is built around.
type Decoder struct {
	r      io.ReadSeeker
	parser *riff.Parser

	NumChans   uint16
	BitDepth   uint16
	SampleRate uint32

	AvgBytesPerSec uint32
	WavAudioFormat uint16
	FmtChunk       *FmtChunk

	err             error
	PCMSize         int
	pcmDataAccessed bool
	// PCMChunk is available so we can use the LimitReader.
	PCMChunk *riff.Chunk
	// CompressedSamples stores the fact chunk frame count for compressed
	// formats; it bounds decoding so trailing padding is never delivered.
	CompressedSamples uint32

	adpcmDec *adpcmReader
}

// NewDecoder creates a decoder for the passed wav reader.
// Note that the reader doesn't get rewinded as the container is processed.
func NewDecoder(r io.ReadSeeker) *Decoder {
	return &Decoder{
		r:      r,
		parser: riff.New(r),
	}
}

// Rewind allows the decoder to be rewound to the beginning of the PCM data.
// This is useful if you want to keep on decoding the same file in a loop.
func (d *Decoder) Rewind() error {
	_, err := d.r.Seek(0, io.SeekStart)
	if err != nil {
		return fmt.Errorf("failed to seek back to the start: %w", err)
	}

	// the riff parser is read only, a fresh one is needed
	d.parser = riff.New(d.r)
	d.pcmDataAccessed = false
	d.PCMChunk = nil
	d.err = nil
	d.NumChans = 0
	d.CompressedSamples = 0
	d.FmtChunk = nil
	d.adpcmDec = nil

	err = d.FwdToPCM()
	if err != nil {
		return fmt.Errorf("failed to seek to the PCM data: %w", err)
	}

	return nil
}

// SampleBitDepth returns the bit depth encoding of each coded sample.
func (d *Decoder) SampleBitDepth() int32 {
	if d == nil {
		return 0
	}

	return int32(d.BitDepth)
}

// PCMLen returns the total number of bytes in the PCM data chunk.
func (d *Decoder) PCMLen() int64 {
	if d == nil {
		return 0
	}

	return int64(d.PCMSize)
}

// Err returns the first non-EOF error that was encountered by the Decoder.
func (d *Decoder) Err() error {
	if errors.Is(d.err, io.EOF) {
		return nil
	}

	return d.err
}

// EOF returns positively if the underlying reader reached the end of file.
func (d *Decoder) EOF() bool {
	if d == nil || errors.Is(d.err, io.EOF) {
		return true
	}

	return false
}

// IsValidFile verifies that the file is valid/readable.
func (d *Decoder) IsValidFile() bool {
	d.err = d.readHeaders()
	if d.err != nil {
		return false
	}

	if d.NumChans < 1 {
		return false
	}

	if !isKnownFormat(d.WavAudioFormat) {
		return false
	}

	dur, err := d.Duration()
	if err != nil || dur <= 0 {
		return false
	}

	return true
}

// ReadInfo reads the underlying reader until the fmt header is parsed.
// This method is safe to call multiple times.
func (d *Decoder) ReadInfo() {
	d.err = d.readHeaders()
}

// Variant returns the ADPCM variant of the stream, VariantNone for
// byte-addressable formats.
func (d *Decoder) Variant() CodecVariant {
	if d == nil {
		return VariantNone
	}

	variant, err := variantForFormat(d.WavAudioFormat, d.BitDepth)
	if err != nil {
		return VariantNone
	}

	return variant
}

// FwdToPCM forwards the underlying reader until the start of the PCM chunk.
// If the PCM chunk was already read, no data will be found (you need to rewind).
func (d *Decoder) FwdToPCM() error {
	if d == nil {
		return ErrPCMDataNotFound
	}

	d.err = d.readHeaders()
	if d.err != nil {
		return d.err
	}

	var chunk *riff.Chunk
	for d.err == nil {
		chunk, d.err = d.NextChunk()
		if d.err != nil {
			return d.err
		}

		if chunk.ID == riff.DataFormatID {
			d.PCMSize = chunk.Size
			d.PCMChunk = chunk

			break
		}

		if chunk.ID == CIDFact {
			err := d.readFactChunk(chunk)
			if err != nil {
				d.err = err
				return d.err
			}

			continue
		}

		chunk.Drain()
	}

	if chunk == nil {
		return ErrPCMDataNotFound
	}

	d.pcmDataAccessed = true

	return nil
}

// ErrPCMDataNotFound is returned when the PCM data chunk is not found.
var ErrPCMDataNotFound = errors.New("PCM data not found")

func (d *Decoder) readFactChunk(chunk *riff.Chunk) error {
	err := chunk.ReadLE(&d.CompressedSamples)
	if err != nil {
		return fmt.Errorf("failed to read fact chunk: %w", err)
	}

	chunk.Drain()

	return nil
}

// WasPCMAccessed returns positively if the PCM data was previously accessed.
func (d *Decoder) WasPCMAccessed() bool {
	if d == nil {
		return false
	}

	return d.pcmDataAccessed
}

// FullPCMBuffer decodes the entire data chunk into memory.
// Consider using PCMBuffer() for streaming access.
func (d *Decoder) FullPCMBuffer() (*audio.Float32Buffer, error) {
	if !d.WasPCMAccessed() {
		err := d.FwdToPCM()
		if err != nil {
			return nil, d.err
		}
	}

	if d.PCMChunk == nil {
		return nil, ErrPCMChunkNotFound
	}

	format := &audio.Format{
		NumChannels: int(d.NumChans),
		SampleRate:  int(d.SampleRate),
	}

	if variant := d.Variant(); variant != VariantNone {
		return d.decodeADPCMBuffer(format, variant)
	}

	return d.decodePCMBuffer(format)
}

// PCMBuffer populates the passed PCM buffer.
func (d *Decoder) PCMBuffer(buf *audio.Float32Buffer) (n int, err error) {
	if buf == nil {
		return 0, nil
	}

	if !d.pcmDataAccessed {
		err := d.FwdToPCM()
		if err != nil {
			return 0, d.err
		}
	}

	if d.PCMChunk == nil {
		return 0, ErrPCMChunkNotFound
	}

	format := &audio.Format{
		NumChannels: int(d.NumChans),
		SampleRate:  int(d.SampleRate),
	}

	buf.SourceBitDepth = int(d.BitDepth)

	if variant := d.Variant(); variant != VariantNone {
		if d.adpcmDec == nil {
			d.adpcmDec, err = newADPCMReader(d.PCMChunk.R, variant, int(d.FmtChunk.BlockAlign), int(d.CompressedSamples))
			if err != nil {
				return 0, err
			}
		}

		buf.SourceBitDepth = 16
		buf.Format = format

		return d.adpcmDec.readSamples(buf.Data)
	}

	decodeF, err := sampleDecodeFloat32Func(int(d.BitDepth), d.WavAudioFormat)
	if err != nil {
		return 0, fmt.Errorf("could not get sample decode func: %w", err)
	}

	bPerSample := bytesPerSample(int(d.BitDepth))
	sampleBuf := make([]byte, bPerSample)

	for n = 0; n < len(buf.Data); n++ {
		buf.Data[n], err = decodeF(d.PCMChunk, sampleBuf)
		if err != nil {
			break
		}
	}

	buf.Format = format

	if errors.Is(err, io.EOF) {
		err = nil
	}

	return n, err
}

// DecodeSegment decodes numFrames frames starting at startFrame. For G.726
// the decoder state is replayed from the chunk start, for IMA ADPCM whole
// blocks are skipped, and byte-addressable formats skip directly.
func (d *Decoder) DecodeSegment(startFrame, numFrames int) (*audio.Float32Buffer, error) {
	if !d.WasPCMAccessed() {
		err := d.FwdToPCM()
		if err != nil {
			return nil, d.err
		}
	}

	if d.PCMChunk == nil {
		return nil, ErrPCMChunkNotFound
	}

	format := &audio.Format{
		NumChannels: int(d.NumChans),
		SampleRate:  int(d.SampleRate),
	}

	if variant := d.Variant(); variant != VariantNone {
		reader, err := newADPCMReader(d.PCMChunk.R, variant, int(d.FmtChunk.BlockAlign), int(d.CompressedSamples))
		if err != nil {
			return nil, err
		}

		err = reader.skip(startFrame)
		if err != nil {
			return nil, fmt.Errorf("failed to replay ADPCM state to frame %d: %w", startFrame, err)
		}

		buf := &audio.Float32Buffer{
			Data:           make([]float32, numFrames),
			Format:         format,
			SourceBitDepth: 16,
		}

		n, err := reader.readSamples(buf.Data)
		if err != nil {
			return nil, err
		}

		buf.Data = buf.Data[:n]

		return buf, nil
	}

	bPerFrame := bytesPerSample(int(d.BitDepth)) * int(d.NumChans)

	_, err := io.CopyN(io.Discard, d.PCMChunk, int64(startFrame)*int64(bPerFrame))
	if err != nil {
		return nil, fmt.Errorf("failed to skip to frame %d: %w", startFrame, err)
	}

	decodeF, err := sampleDecodeFloat32Func(int(d.BitDepth), d.WavAudioFormat)
	if err != nil {
		return nil, fmt.Errorf("could not get sample decode func: %w", err)
	}

	buf := &audio.Float32Buffer{
		Data:           make([]float32, numFrames*int(d.NumChans)),
		Format:         format,
		SourceBitDepth: int(d.BitDepth),
	}

	sampleBuf := make([]byte, bytesPerSample(int(d.BitDepth)))

	n := 0
	for ; n < len(buf.Data); n++ {
		buf.Data[n], err = decodeF(d.PCMChunk, sampleBuf)
		if err != nil {
			break
		}
	}

	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	buf.Data = buf.Data[:n-n%int(d.NumChans)]

	return buf, nil
}

// Format returns the audio format of the decoded content.
func (d *Decoder) Format() *audio.Format {
	if d == nil {
		return nil
	}

	return &audio.Format{
		NumChannels: int(d.NumChans),
		SampleRate:  int(d.SampleRate),
	}
}

// NextChunk returns the next available chunk.
func (d *Decoder) NextChunk() (*riff.Chunk, error) {
	if d.err = d.readHeaders(); d.err != nil {
		d.err = fmt.Errorf("failed to read header: %w", d.err)
		return nil, d.err
	}

	var (
		id   [4]byte
		size uint32
	)

	id, size, d.err = d.parser.IDnSize()
	if d.err != nil {
		d.err = fmt.Errorf("error reading chunk header: %w", d.err)
		return nil, d.err
	}

	// all RIFF chunks (including WAVE "data" chunks) must be word aligned.
	// If the data uses an odd number of bytes, a padding byte with a value
	// of zero is placed at the end of the sample data; the chunk header's
	// size does not include this byte.
	if size%2 == 1 {
		size++
	}

	chnk := &riff.Chunk{
		ID:   id,
		Size: int(size),
		R:    io.LimitReader(d.r, int64(size)),
	}

	return chnk, d.err
}

// Duration returns the time duration for the current audio container. For
// compressed formats the fact chunk frame count is used.
func (d *Decoder) Duration() (time.Duration, error) {
	if d == nil || d.parser == nil {
		return 0, ErrDurationNilPointer
	}

	if d.Variant() != VariantNone && d.CompressedSamples > 0 {
		return durationForFrames(uint64(d.CompressedSamples), d.SampleRate), nil
	}

	dur, err := d.parser.Duration()
	if err != nil {
		return 0, fmt.Errorf("failed to get duration: %w", err)
	}

	return dur, nil
}

// String implements the Stringer interface.
func (d *Decoder) String() string {
	return d.parser.String()
}

func (d *Decoder) decodeADPCMBuffer(format *audio.Format, variant CodecVariant) (*audio.Float32Buffer, error) {
	reader, err := newADPCMReader(d.PCMChunk.R, variant, int(d.FmtChunk.BlockAlign), int(d.CompressedSamples))
	if err != nil {
		return nil, err
	}

	chunkSize := 4096

	buf := &audio.Float32Buffer{
		Data:           make([]float32, 0, chunkSize),
		Format:         format,
		SourceBitDepth: 16,
	}

	tmp := make([]float32, chunkSize)

	for {
		n, err := reader.readSamples(tmp)
		buf.Data = append(buf.Data, tmp[:n]...)

		if err != nil {
			return nil, err
		}

		if n < len(tmp) {
			break
		}
	}

	return buf, nil
}

func (d *Decoder) decodePCMBuffer(format *audio.Format) (*audio.Float32Buffer, error) {
	buf := &audio.Float32Buffer{
		Data:           make([]float32, 4096),
		Format:         format,
		SourceBitDepth: int(d.BitDepth),
	}

	bPerSample := bytesPerSample(int(d.BitDepth))
	sampleBufData := make([]byte, bPerSample)

	decodeF, err := sampleDecodeFloat32Func(int(d.BitDepth), d.WavAudioFormat)
	if err != nil {
		return nil, fmt.Errorf("could not get sample decode func: %w", err)
	}

	i := 0
	for err == nil {
		buf.Data[i], err = decodeF(d.PCMChunk, sampleBufData)
		if err != nil {
			break
		}

		i++
		if i == len(buf.Data) {
			buf.Data = append(buf.Data, make([]float32, 4096)...)
		}
	}

	buf.Data = buf.Data[:i]

	if errors.Is(err, io.EOF) {
		err = nil
	}

	return buf, err
}

// readHeaders is safe to call multiple times.
func (d *Decoder) readHeaders() error {
	if d == nil || d.NumChans > 0 {
		return nil
	}

	id, size, err := d.parser.IDnSize()
	if err != nil {
		return fmt.Errorf("failed to read chunk ID and size: %w", err)
	}

	d.parser.ID = id
	if d.parser.ID != riff.RiffID {
		return fmt.Errorf("%s: %w", d.parser.ID, riff.ErrFmtNotSupported)
	}

	d.parser.Size = size

	err = binary.Read(d.r, binary.BigEndian, &d.parser.Format)
	if err != nil {
		return fmt.Errorf("failed to read format: %w", err)
	}

	var chunk *riff.Chunk

	for err == nil {
		chunk, err = d.parser.NextChunk()
		if err != nil {
			break
		}

		if chunk.ID == riff.FmtID {
			return d.processFmtChunk(chunk)
		}

		if chunk.ID == CIDFact {
			readErr := d.readFactChunk(chunk)
			if readErr != nil {
				return readErr
			}

			continue
		}

		chunk.Drain()
	}

	return err
}

func (d *Decoder) processFmtChunk(chunk *riff.Chunk) error {
	fmtChunk, err := decodeWavHeaderChunk(chunk, d.parser)
	if err != nil {
		return fmt.Errorf("failed to decode fmt chunk: %w", err)
	}

	d.FmtChunk = fmtChunk
	d.NumChans = d.parser.NumChannels
	d.BitDepth = d.parser.BitsPerSample
	d.SampleRate = d.parser.SampleRate
	d.WavAudioFormat = d.parser.WavAudioFormat
	d.AvgBytesPerSec = d.parser.AvgBytesPerSec

	return nil
}

var errNilChunkOrParser = errors.New("nil chunk/parser pointer")

func decodeWavHeaderChunk(chunk *riff.Chunk, parser *riff.Parser) (*FmtChunk, error) {
	if chunk == nil || parser == nil {
		return nil, errNilChunkOrParser
	}

	fmtChunk := &FmtChunk{}

	fields := []struct {
		name string
		dst  any
	}{
		{"wav format", &fmtChunk.FormatTag},
		{"channels", &fmtChunk.NumChannels},
		{"sample rate", &fmtChunk.SampleRate},
		{"avg bytes/sec", &fmtChunk.AvgBytesPerSec},
		{"block align", &fmtChunk.BlockAlign},
		{"bit depth", &fmtChunk.BitsPerSample},
	}

	for _, field := range fields {
		err := chunk.ReadLE(field.dst)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", field.name, err)
		}
	}

	parser.NumChannels = fmtChunk.NumChannels
	parser.SampleRate = fmtChunk.SampleRate
	parser.AvgBytesPerSec = fmtChunk.AvgBytesPerSec
	parser.BlockAlign = fmtChunk.BlockAlign
	parser.BitsPerSample = fmtChunk.BitsPerSample
	parser.WavAudioFormat = fmtChunk.FormatTag

	if chunk.Size <= 16 {
		return fmtChunk, nil
	}

	var extraSize uint16

	err := chunk.ReadLE(&extraSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read fmt extension size: %w", err)
	}

	fmtChunk.ExtraData = make([]byte, extraSize)
	if extraSize > 0 {
		err := chunk.ReadLE(&fmtChunk.ExtraData)
		if err != nil {
			return nil, fmt.Errorf("failed to read fmt extension data: %w", err)
		}
	}

	if fmtChunk.FormatTag != wavFormatExtensible || extraSize < 22 {
		chunk.Drain()

		return fmtChunk, nil
	}

	ext := &FmtExtensible{}
	ext.ValidBitsPerSample = binary.LittleEndian.Uint16(fmtChunk.ExtraData[0:2])
	ext.ChannelMask = binary.LittleEndian.Uint32(fmtChunk.ExtraData[2:6])
	copy(ext.SubFormat[:], fmtChunk.ExtraData[6:22])

	if len(fmtChunk.ExtraData) > 22 {
		ext.ExtraData = append(ext.ExtraData, fmtChunk.ExtraData[22:]...)
	}

	fmtChunk.Extensible = ext
	parser.WavAudioFormat = fmtChunk.EffectiveFormatTag()

	chunk.Drain()

	return fmtChunk, nil
}

// sampleDecodeFunc returns a function that can be used to convert
// a byte range into an int value based on the amount of bits used per sample.
// Note that 8bit samples are unsigned, all other values are signed.
func sampleDecodeFunc(bitsPerSample int) (func(io.Reader, []byte) (int, error), error) {
	// NOTE: WAV PCM data is stored using little-endian
	switch {
	case bitsPerSample == 8:
		// 8bit values are unsigned
		return func(r io.Reader, buf []byte) (int, error) {
			_, err := r.Read(buf[:1])
			return int(buf[0]), err
		}, nil
	case bitsPerSample > 8 && bitsPerSample <= 16:
		return func(r io.Reader, buf []byte) (int, error) {
			_, err := r.Read(buf[:2])
			return int(int16(binary.LittleEndian.Uint16(buf[:2]))), err
		}, nil
	case bitsPerSample > 16 && bitsPerSample <= 24:
		return func(r io.Reader, buf []byte) (int, error) {
			_, err := r.Read(buf[:3])
			if err != nil {
				return 0, fmt.Errorf("failed to read 24-bit sample: %w", err)
			}

			return int(audio.Int24LETo32(buf[:3])), nil
		}, nil
	case bitsPerSample > 24 && bitsPerSample <= 32:
		return func(r io.Reader, buf []byte) (int, error) {
			_, err := r.Read(buf[:4])
			return int(int32(binary.LittleEndian.Uint32(buf[:4]))), err
		}, nil
	default:
		return nil, fmt.Errorf("%w: %d", errUnhandledByteDepth, bitsPerSample)
	}
}

// sampleDecodeFloat32Func returns a function that can be used to convert
// a byte range into a normalized float32 value.
func sampleDecodeFloat32Func(bitsPerSample int, wavFormat uint16) (func(io.Reader, []byte) (float32, error), error) {
	if wavFormat == wavFormatIEEEFloat {
		switch bitsPerSample {
		case 32:
			return func(r io.Reader, buf []byte) (float32, error) {
				_, err := r.Read(buf[:4])
				if err != nil {
					return 0, fmt.Errorf("failed to read 32-bit float sample: %w", err)
				}

				value := math.Float32frombits(binary.LittleEndian.Uint32(buf[:4]))

				return clampFloat32(value, -1, 1), nil
			}, nil
		case 64:
			return func(r io.Reader, buf []byte) (float32, error) {
				_, err := r.Read(buf[:8])
				if err != nil {
					return 0, fmt.Errorf("failed to read 64-bit float sample: %w", err)
				}

				value := math.Float64frombits(binary.LittleEndian.Uint64(buf[:8]))

				return clampFloat32(float32(value), -1, 1), nil
			}, nil
		default:
			return nil, fmt.Errorf("%w: %d", errUnhandledFloatBitDepth, bitsPerSample)
		}
	}

	if wavFormat == wavFormatALaw {
		if bitsPerSample != 8 {
			return nil, fmt.Errorf("%w: %d", errUnsupportedALawBitDepth, bitsPerSample)
		}

		return func(r io.Reader, buf []byte) (float32, error) {
			_, err := r.Read(buf[:1])
			if err != nil {
				return 0, fmt.Errorf("failed to read A-law sample: %w", err)
			}

			return normalizePCMInt(int(decodeALawSample(buf[0])), 16), nil
		}, nil
	}

	if wavFormat == wavFormatMuLaw {
		if bitsPerSample != 8 {
			return nil, fmt.Errorf("%w: %d", errUnsupportedMuLawBitDepth, bitsPerSample)
		}

		return func(r io.Reader, buf []byte) (float32, error) {
			_, err := r.Read(buf[:1])
			if err != nil {
				return 0, fmt.Errorf("failed to read mu-law sample: %w", err)
			}

			return normalizePCMInt(int(decodeMuLawSample(buf[0])), 16), nil
		}, nil
	}

	if wavFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: %d", errUnsupportedWavFormat, wavFormat)
	}

	decodeInt, err := sampleDecodeFunc(bitsPerSample)
	if err != nil {
		return nil, fmt.Errorf("failed to create int decoder: %w", err)
	}

	storageBitsPerSample := bytesPerSample(bitsPerSample) * 8

	return func(r io.Reader, buf []byte) (float32, error) {
		value, err := decodeInt(r, buf)
		if err != nil {
			return 0, fmt.Errorf("failed to decode int sample: %w", err)
		}

		return normalizePCMInt(value, storageBitsPerSample), nil
	}, nil
}
