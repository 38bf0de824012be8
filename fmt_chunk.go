package g726

import "encoding/binary"

// WAV format tags handled by this package.
const (
	wavFormatPCM        = 0x0001
	wavFormatIEEEFloat  = 0x0003
	wavFormatALaw       = 0x0006
	wavFormatMuLaw      = 0x0007
	wavFormatIMAADPCM   = 0x0011
	wavFormatG721ADPCM  = 0x0040
	wavFormatG726ADPCM  = 0x0045
	wavFormatExtensible = 0xFFFE
)

var ksSubFormatGUIDTail = [12]byte{
	0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71,
}

// FmtChunk stores the parsed WAV fmt chunk, including extensible metadata.
type FmtChunk struct {
	FormatTag      uint16
	NumChannels    uint16
	SampleRate     uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
	ExtraData      []byte
	Extensible     *FmtExtensible
}

// FmtExtensible stores WAVE_FORMAT_EXTENSIBLE extra fields.
type FmtExtensible struct {
	ValidBitsPerSample uint16
	ChannelMask        uint32
	SubFormat          [16]byte
	ExtraData          []byte
}

func (f *FmtChunk) Clone() *FmtChunk {
	if f == nil {
		return nil
	}

	out := *f

	out.ExtraData = append([]byte(nil), f.ExtraData...)
	if f.Extensible != nil {
		ext := *f.Extensible
		ext.ExtraData = append([]byte(nil), f.Extensible.ExtraData...)
		out.Extensible = &ext
	}

	return &out
}

// EffectiveFormatTag resolves the codec tag, unwrapping extensible headers.
func (f *FmtChunk) EffectiveFormatTag() uint16 {
	if f == nil {
		return 0
	}

	if f.FormatTag == wavFormatExtensible && f.Extensible != nil {
		return binary.LittleEndian.Uint16(f.Extensible.SubFormat[:2])
	}

	return f.FormatTag
}

func makeSubFormatGUID(formatTag uint16) [16]byte {
	var guid [16]byte

	binary.LittleEndian.PutUint32(guid[:4], uint32(formatTag))
	copy(guid[4:], ksSubFormatGUIDTail[:])

	return guid
}

// isCompressedFormat reports whether a format tag needs a fact chunk and
// frame-count based duration math instead of block-align arithmetic.
func isCompressedFormat(formatTag uint16) bool {
	switch formatTag {
	case wavFormatIMAADPCM, wavFormatG721ADPCM, wavFormatG726ADPCM:
		return true
	default:
		return false
	}
}

func isKnownFormat(formatTag uint16) bool {
	switch formatTag {
	case wavFormatPCM, wavFormatIEEEFloat, wavFormatALaw, wavFormatMuLaw:
		return true
	default:
		return isCompressedFormat(formatTag)
	}
}
