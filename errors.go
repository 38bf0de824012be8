package g726

import "errors"

var (
	// ErrFileNotFound is returned when the input path does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrMalformedHeader is returned when the container is missing required
	// chunks or carries a codec tag this package cannot decode.
	ErrMalformedHeader = errors.New("malformed wav header")
	// ErrUnsupportedVariant is returned when a requested bit depth has no
	// resolvable codec variant.
	ErrUnsupportedVariant = errors.New("unsupported codec variant")
	// ErrNoCodecAvailable is returned when neither a G.726 variant nor the
	// IMA ADPCM fallback is available.
	ErrNoCodecAvailable = errors.New("no ADPCM codec available")
	// ErrSeekOutOfRange is returned when a segment start lies at or beyond
	// the end of the stream.
	ErrSeekOutOfRange = errors.New("seek out of range")
	// ErrUnsupportedRank is returned when a buffer has an invalid shape for
	// downmixing.
	ErrUnsupportedRank = errors.New("unsupported buffer shape")
	// ErrResample wraps failures of the rate converter.
	ErrResample = errors.New("resample failed")
	// ErrLoad wraps failures of the generic audio loader.
	ErrLoad = errors.New("audio load failed")

	errNilBuffer                   = errors.New("can't add a nil buffer")
	errUnsupportedWavFormat        = errors.New("unsupported wav format")
	errUnsupportedALawBitDepth     = errors.New("unsupported A-law bit depth")
	errUnsupportedMuLawBitDepth    = errors.New("unsupported mu-law bit depth")
	errUnsupportedChannelCount     = errors.New("unsupported channel count")
	errUnhandledByteDepth          = errors.New("unhandled byte depth")
	errUnhandledFloatBitDepth      = errors.New("unhandled float bit depth")
	errUnsupportedFrameBitSize     = errors.New("can't add frames of bit size")
	errInvalidADPCMCodeWidth       = errors.New("invalid ADPCM code width")
	errShortADPCMStream            = errors.New("ADPCM stream ended mid-codeword")
	errVariantWithoutTables        = errors.New("codec variant has no quantizer tables")
	errEncUnsupportedFloatBitDepth = errors.New("unsupported float bit depth")
)
