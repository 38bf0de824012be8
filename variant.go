package g726

import (
	"fmt"
	"sync"
)

// CodecVariant identifies a concrete ADPCM encoding.
type CodecVariant uint8

const (
	// VariantNone is the zero value and never a valid resolution result.
	VariantNone CodecVariant = iota
	// VariantG726_16 is G.726 at 2 bits per sample (16 kbps at 8 kHz).
	VariantG726_16
	// VariantG726_24 is G.726 at 3 bits per sample (24 kbps at 8 kHz).
	VariantG726_24
	// VariantG726_32 is G.726 at 4 bits per sample (32 kbps at 8 kHz).
	VariantG726_32
	// VariantG726_40 is G.726 at 5 bits per sample (40 kbps at 8 kHz).
	VariantG726_40
	// VariantIMAADPCM is the universal 4-bit fallback variant.
	VariantIMAADPCM
)

// validBitDepths lists the bit depths Resolve accepts, in error-message order.
var validBitDepths = []int{2, 3, 4, 5}

// Bits returns the codeword width in bits per coded sample.
func (v CodecVariant) Bits() int {
	switch v {
	case VariantG726_16:
		return 2
	case VariantG726_24:
		return 3
	case VariantG726_32, VariantIMAADPCM:
		return 4
	case VariantG726_40:
		return 5
	default:
		return 0
	}
}

// BitRate returns the nominal bit rate at the given sample rate. The G.726
// rate names assume 8 kHz; the rate scales linearly with the sample rate.
func (v CodecVariant) BitRate(sampleRate int) int {
	return v.Bits() * sampleRate
}

func (v CodecVariant) String() string {
	switch v {
	case VariantG726_16:
		return "G726_16"
	case VariantG726_24:
		return "G726_24"
	case VariantG726_32:
		return "G726_32"
	case VariantG726_40:
		return "G726_40"
	case VariantIMAADPCM:
		return "IMA_ADPCM"
	default:
		return "none"
	}
}

func (v CodecVariant) formatTag() uint16 {
	switch v {
	case VariantG726_16, VariantG726_24, VariantG726_32, VariantG726_40:
		return wavFormatG726ADPCM
	case VariantIMAADPCM:
		return wavFormatIMAADPCM
	default:
		return 0
	}
}

// variantForFormat maps a fmt chunk to the ADPCM variant it encodes, or
// VariantNone for byte-addressable formats.
func variantForFormat(formatTag uint16, bitsPerSample uint16) (CodecVariant, error) {
	switch formatTag {
	case wavFormatG721ADPCM:
		// vendor alias of the 4-bit rate
		return VariantG726_32, nil
	case wavFormatIMAADPCM:
		return VariantIMAADPCM, nil
	case wavFormatG726ADPCM:
		switch bitsPerSample {
		case 2:
			return VariantG726_16, nil
		case 3:
			return VariantG726_24, nil
		case 4:
			return VariantG726_32, nil
		case 5:
			return VariantG726_40, nil
		default:
			return VariantNone, fmt.Errorf("%w: G.726 with %d bits per sample", ErrMalformedHeader, bitsPerSample)
		}
	default:
		return VariantNone, nil
	}
}

// variantCandidates holds the priority candidate list per requested bit
// depth. Each depth has one exact-rate G.726 variant; the vendor G.721 tag
// is an alias of the 4-bit variant on read, not a separate candidate.
var variantCandidates = map[int][]CodecVariant{
	2: {VariantG726_16},
	3: {VariantG726_24},
	4: {VariantG726_32},
	5: {VariantG726_40},
}

// Resolver maps requested bit depths to concrete codec variants. The
// supported set is probed once and results are cached per bit depth for the
// lifetime of the resolver; resolving the same depth concurrently is
// idempotent. The zero value is not usable, call NewResolver.
type Resolver struct {
	mu        sync.Mutex
	supported map[CodecVariant]bool
	cache     map[int]CodecVariant
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithSupportedVariants restricts the resolver to the given variants. The
// default resolver supports every variant this package implements.
func WithSupportedVariants(variants ...CodecVariant) ResolverOption {
	return func(r *Resolver) {
		r.supported = make(map[CodecVariant]bool, len(variants))
		for _, v := range variants {
			r.supported[v] = true
		}
	}
}

// NewResolver creates a resolver over the package's built-in codec set.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		supported: map[CodecVariant]bool{
			VariantG726_16:  true,
			VariantG726_24:  true,
			VariantG726_32:  true,
			VariantG726_40:  true,
			VariantIMAADPCM: true,
		},
		cache: make(map[int]CodecVariant),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve returns the codec variant for the requested bit depth. exact is
// false when no same-rate variant was available and the resolver fell back
// to IMA ADPCM, which degrades the compression ratio but keeps writes
// working. Resolve fails with ErrUnsupportedVariant for bit depths outside
// {2,3,4,5} and with ErrNoCodecAvailable when even the fallback is disabled.
func (r *Resolver) Resolve(bits int) (variant CodecVariant, exact bool, err error) {
	candidates, ok := variantCandidates[bits]
	if !ok {
		return VariantNone, false, fmt.Errorf("%w: %d bits per sample, choose one of %v", ErrUnsupportedVariant, bits, validBitDepths)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.cache[bits]; ok {
		return cached, cached != VariantIMAADPCM, nil
	}

	for _, candidate := range candidates {
		if r.supported[candidate] {
			r.cache[bits] = candidate
			return candidate, true, nil
		}
	}

	if r.supported[VariantIMAADPCM] {
		r.cache[bits] = VariantIMAADPCM
		return VariantIMAADPCM, false, nil
	}

	return VariantNone, false, fmt.Errorf("%w: no variant for %d bits per sample and IMA fallback disabled", ErrNoCodecAvailable, bits)
}

// defaultResolver backs the package-level convenience API.
var defaultResolver = NewResolver()
