package g726

// ITU-T G.726 ADPCM codec, all four rates (16/24/32/40 kbps at 8 kHz,
// i.e. 2/3/4/5 bits per coded sample). Pure Go port following the classic
// CCITT G.72x reference structure (Sun Microsystems public domain code).
//
// The predictor has two poles and six zeros; the quantizer scale factor is a
// blend of a fast (yu) and a slow (yl) term steered by the speed control ap.
// Every decoded or encoded sample mutates this state, which is why seeking
// into a stream requires replay from a known anchor.

import "fmt"

// g726State is the full adaptation state of ITU-T G.726. The zero value is
// not a valid reset state, use newG726State or reset.
type g726State struct {
	yl  int      // locked (slow) scale factor, 19 bits
	yu  int16    // unlocked (fast) scale factor, 13 bits
	dms int16    // short term average of the F weights
	dml int16    // long term average of the F weights
	ap  int16    // speed control parameter
	a   [2]int16 // pole predictor coefficients
	b   [6]int16 // zero predictor coefficients
	pk  [2]int16 // signs of the two previous dq+sez
	dq  [6]int16 // previous quantized differences, floating point format
	sr  [2]int16 // previous reconstructed signals, floating point format
	td  int16    // tone detect flag
}

func newG726State() *g726State {
	s := &g726State{}
	s.reset()

	return s
}

// reset restores the standard initial decoder/encoder state.
func (s *g726State) reset() {
	s.yl = 34816
	s.yu = 544
	s.dms = 0
	s.dml = 0
	s.ap = 0
	s.td = 0

	for i := range s.a {
		s.a[i] = 0
		s.pk[i] = 0
		s.sr[i] = 32
	}

	for i := range s.b {
		s.b[i] = 0
		s.dq[i] = 32
	}
}

// g726Tables holds the per-rate quantizer tables. witab entries are stored
// pre-scaled (the reference scales the 32 kbps table by 32 at the call
// site); fitab entries feed the dms/dml averages directly.
type g726Tables struct {
	bits    int
	signBit int
	qtab    []int16
	dqlntab []int16
	witab   []int32
	fitab   []int16
}

var (
	g726Tables16 = &g726Tables{
		bits:    2,
		signBit: 0x02,
		qtab:    []int16{261},
		dqlntab: []int16{116, 365, 365, 116},
		witab:   []int32{-704, 14048, 14048, -704},
		fitab:   []int16{0, 0xE00, 0xE00, 0},
	}

	g726Tables24 = &g726Tables{
		bits:    3,
		signBit: 0x04,
		qtab:    []int16{8, 218, 331},
		dqlntab: []int16{-2048, 135, 273, 373, 373, 273, 135, -2048},
		witab:   []int32{-128, 960, 4384, 18624, 18624, 4384, 960, -128},
		fitab:   []int16{0, 0x200, 0x400, 0xE00, 0xE00, 0x400, 0x200, 0},
	}

	g726Tables32 = &g726Tables{
		bits:    4,
		signBit: 0x08,
		qtab:    []int16{-124, 80, 178, 246, 300, 349, 396},
		dqlntab: []int16{
			-2048, 4, 135, 213, 273, 323, 373, 425,
			425, 373, 323, 273, 213, 135, 4, -2048,
		},
		witab: []int32{
			-384, 576, 1312, 2048, 3584, 6336, 11360, 35904,
			35904, 11360, 6336, 3584, 2048, 1312, 576, -384,
		},
		fitab: []int16{
			0, 0, 0, 0x200, 0x200, 0x200, 0x600, 0xE00,
			0xE00, 0x600, 0x200, 0x200, 0x200, 0, 0, 0,
		},
	}

	g726Tables40 = &g726Tables{
		bits:    5,
		signBit: 0x10,
		qtab: []int16{
			-122, -16, 67, 138, 197, 249, 297, 338,
			377, 412, 444, 474, 501, 527, 552,
		},
		dqlntab: []int16{
			-2048, -66, 28, 104, 169, 224, 274, 318,
			358, 395, 429, 459, 488, 514, 539, 566,
			566, 539, 514, 488, 459, 429, 395, 358,
			318, 274, 224, 169, 104, 28, -66, -2048,
		},
		witab: []int32{
			448, 448, 768, 1248, 1280, 1312, 1856, 3200,
			4512, 5728, 7008, 8960, 11456, 14080, 16928, 22272,
			22272, 16928, 14080, 11456, 8960, 7008, 5728, 4512,
			3200, 1856, 1312, 1280, 1248, 768, 448, 448,
		},
		fitab: []int16{
			0, 0, 0, 0, 0, 0x200, 0x200, 0x200,
			0x200, 0x200, 0x400, 0x600, 0x800, 0xA00, 0xC00, 0xC00,
			0xC00, 0xA00, 0x800, 0x600, 0x400, 0x200, 0x200, 0x200,
			0x200, 0x200, 0, 0, 0, 0, 0, 0,
		},
	}
)

// tablesForVariant returns the quantizer tables for a G.726 variant.
func tablesForVariant(v CodecVariant) (*g726Tables, error) {
	switch v {
	case VariantG726_16:
		return g726Tables16, nil
	case VariantG726_24:
		return g726Tables24, nil
	case VariantG726_32:
		return g726Tables32, nil
	case VariantG726_40:
		return g726Tables40, nil
	default:
		return nil, fmt.Errorf("%w: %s", errVariantWithoutTables, v)
	}
}

var power2 = [15]int16{
	1, 2, 4, 8, 0x10, 0x20, 0x40, 0x80,
	0x100, 0x200, 0x400, 0x800, 0x1000, 0x2000, 0x4000,
}

// quan returns the index of the first table entry greater than val.
func quan(val int, table []int16) int {
	for i, v := range table {
		if val < int(v) {
			return i
		}
	}

	return len(table)
}

// fmult multiplies a predictor coefficient with a signal value stored in the
// codec's floating point format (4-bit exponent, 6-bit mantissa).
func fmult(an, srn int) int {
	anmag := an
	if an <= 0 {
		anmag = (-an) & 0x1FFF
	}

	anexp := quan(anmag, power2[:]) - 6

	anmant := 32
	if anmag != 0 {
		if anexp >= 0 {
			anmant = anmag >> uint(anexp)
		} else {
			anmant = anmag << uint(-anexp)
		}
	}

	wanexp := anexp + ((srn >> 6) & 0xF) - 13
	wanmant := (anmant*(srn&0x3F) + 0x30) >> 4

	var out int
	if wanexp >= 0 {
		out = (wanmant << uint(wanexp)) & 0x7FFF
	} else {
		out = wanmant >> uint(-wanexp)
	}

	if (an ^ srn) < 0 {
		return -out
	}

	return out
}

// predictorZero computes the sixth order zero predictor contribution sezi.
func (s *g726State) predictorZero() int {
	sezi := fmult(int(s.b[0])>>2, int(s.dq[0]))
	for i := 1; i < 6; i++ {
		sezi += fmult(int(s.b[i])>>2, int(s.dq[i]))
	}

	return sezi
}

// predictorPole computes the second order pole predictor contribution.
func (s *g726State) predictorPole() int {
	return fmult(int(s.a[1])>>2, int(s.sr[1])) + fmult(int(s.a[0])>>2, int(s.sr[0]))
}

// stepSize blends the fast and slow quantizer scale factors.
func (s *g726State) stepSize() int {
	if s.ap >= 256 {
		return int(s.yu)
	}

	y := s.yl >> 6

	dif := int(s.yu) - y
	al := int(s.ap) >> 2

	if dif > 0 {
		y += (dif * al) >> 6
	} else if dif < 0 {
		y += (dif*al + 0x3F) >> 6
	}

	return y
}

// quantize maps a prediction difference d onto a codeword given the current
// scale factor y. The all-zeros positive codeword is remapped per the 1988
// revision of the recommendation.
func quantize(d, y int, table []int16) int {
	dqm := d
	if dqm < 0 {
		dqm = -dqm
	}

	exp := quan(dqm>>1, power2[:])
	mant := ((dqm << 7) >> uint(exp)) & 0x7F
	dln := (exp << 7) + mant - (y >> 2)

	size := len(table)

	i := quan(dln, table)
	if d < 0 {
		i = (size << 1) + 1 - i
	} else if i == 0 {
		i = (size << 1) + 1
	}

	return i
}

// reconstruct computes the quantized difference signal from the log domain
// value dqln. Negative results carry the magnitude in the low bits below
// -0x8000, matching the reference arithmetic.
func reconstruct(sign bool, dqln, y int) int {
	dql := dqln + (y >> 2)
	if dql < 0 {
		if sign {
			return -0x8000
		}

		return 0
	}

	dex := (dql >> 7) & 15
	dqt := 128 + (dql & 127)
	dq := (dqt << 7) >> uint(14 - dex)

	if sign {
		return dq - 0x8000
	}

	return dq
}

// update runs the predictor and scale factor adaptation shared by encoder
// and decoder. Both sides call it with identical arguments, which is what
// keeps them in lockstep.
func (s *g726State) update(codeBits, y, wi, fi, dq, sr, dqsez int) {
	pk0 := 0
	if dqsez < 0 {
		pk0 = 1
	}

	mag := dq & 0x7FFF

	// Tone and transition detector thresholds from the locked scale factor.
	ylint := s.yl >> 15
	ylfrac := (s.yl >> 10) & 0x1F
	thr1 := (32 + ylfrac) << uint(ylint)

	thr2 := thr1
	if ylint > 9 {
		thr2 = 31 << 10
	}

	dqthr := (thr2 + (thr2 >> 1)) >> 1

	tr := false
	if s.td != 0 && mag > dqthr {
		tr = true
	}

	// Quantizer scale factor adaptation.
	yu := y + ((wi - y) >> 5)
	if yu < 544 {
		yu = 544
	} else if yu > 5120 {
		yu = 5120
	}

	s.yu = int16(yu)
	s.yl += yu + ((-s.yl) >> 6)

	var a2p int

	if tr {
		s.a[0] = 0
		s.a[1] = 0

		for i := range s.b {
			s.b[i] = 0
		}
	} else {
		pks1 := pk0 ^ int(s.pk[0])

		a2p = int(s.a[1]) - (int(s.a[1]) >> 7)
		if dqsez != 0 {
			fa1 := int(s.a[0])
			if pks1 == 0 {
				fa1 = -fa1
			}

			if fa1 < -8191 {
				a2p -= 0x100
			} else if fa1 > 8191 {
				a2p += 0xFF
			} else {
				a2p += fa1 >> 5
			}

			if pk0^int(s.pk[1]) != 0 {
				if a2p <= -12160 {
					a2p = -12288
				} else if a2p >= 12416 {
					a2p = 12288
				} else {
					a2p -= 0x80
				}
			} else if a2p <= -12416 {
				a2p = -12288
			} else if a2p >= 12160 {
				a2p = 12288
			} else {
				a2p += 0x80
			}
		}

		s.a[1] = int16(a2p)

		a1 := int(s.a[0])
		a1 -= a1 >> 8

		if dqsez != 0 {
			if pks1 == 0 {
				a1 += 192
			} else {
				a1 -= 192
			}
		}

		a1ul := 15360 - a2p
		if a1 < -a1ul {
			a1 = -a1ul
		} else if a1 > a1ul {
			a1 = a1ul
		}

		s.a[0] = int16(a1)

		for i := range s.b {
			bi := int(s.b[i])
			if codeBits == 5 {
				bi -= bi >> 9
			} else {
				bi -= bi >> 8
			}

			if mag != 0 {
				if (dq ^ int(s.dq[i])) >= 0 {
					bi += 128
				} else {
					bi -= 128
				}
			}

			s.b[i] = int16(bi)
		}
	}

	// Shift the quantized difference history, storing dq in the floating
	// point format fmult expects.
	for i := 5; i > 0; i-- {
		s.dq[i] = s.dq[i-1]
	}

	if mag == 0 {
		if dq >= 0 {
			s.dq[0] = 0x20
		} else {
			s.dq[0] = 0x20 - 0x400
		}
	} else {
		exp := quan(mag, power2[:])

		v := (exp << 6) + ((mag << 6) >> uint(exp))
		if dq < 0 {
			v -= 0x400
		}

		s.dq[0] = int16(v)
	}

	s.sr[1] = s.sr[0]

	switch {
	case sr == 0:
		s.sr[0] = 0x20
	case sr > 0:
		exp := quan(sr, power2[:])
		s.sr[0] = int16((exp << 6) + ((sr << 6) >> uint(exp)))
	case sr > -32768:
		srmag := -sr
		exp := quan(srmag, power2[:])
		s.sr[0] = int16((exp<<6)+((srmag<<6)>>uint(exp)) - 0x400)
	default:
		s.sr[0] = 0x20 - 0x400
	}

	s.pk[1] = s.pk[0]
	s.pk[0] = int16(pk0)

	if tr {
		s.td = 0
	} else if a2p < -11776 {
		s.td = 1
	} else {
		s.td = 0
	}

	s.dms += int16((fi - int(s.dms)) >> 5)
	s.dml += int16(((fi << 2) - int(s.dml)) >> 7)

	diff := (int(s.dms) << 2) - int(s.dml)
	if diff < 0 {
		diff = -diff
	}

	switch {
	case tr:
		s.ap = 256
	case y < 1536, s.td == 1, diff >= int(s.dml)>>3:
		s.ap += int16((0x200 - int(s.ap)) >> 4)
	default:
		s.ap += int16((-int(s.ap)) >> 4)
	}
}

// decode consumes one codeword and produces one 16-bit linear PCM sample,
// advancing the adaptation state.
func (s *g726State) decode(code int, tab *g726Tables) int16 {
	code &= (1 << uint(tab.bits)) - 1

	sezi := s.predictorZero()
	sez := sezi >> 1
	se := (sezi + s.predictorPole()) >> 1

	y := s.stepSize()

	dq := reconstruct(code&tab.signBit != 0, int(tab.dqlntab[code]), y)

	var sr int
	if dq < 0 {
		sr = se - (dq & 0x3FFF)
	} else {
		sr = se + dq
	}

	dqsez := sr - se + sez

	s.update(tab.bits, y, int(tab.witab[code]), int(tab.fitab[code]), dq, sr, dqsez)

	// internal linear range is 14 bits
	return clampInt16(sr << 2)
}

// encode consumes one 16-bit linear PCM sample and produces one codeword,
// running the identical adaptation the decoder will.
func (s *g726State) encode(pcm int16, tab *g726Tables) int {
	sl := int(pcm) >> 2

	sezi := s.predictorZero()
	sez := sezi >> 1
	se := (sezi + s.predictorPole()) >> 1

	d := sl - se

	y := s.stepSize()

	code := quantize(d, y, tab.qtab)
	if tab.bits == 2 && code == 3 && d >= 0 {
		// the single-entry quantizer only yields three levels, recover the
		// positive zero region codeword
		code = 0
	}

	dq := reconstruct(code&tab.signBit != 0, int(tab.dqlntab[code]), y)

	var sr int
	if dq < 0 {
		sr = se - (dq & 0x3FFF)
	} else {
		sr = se + dq
	}

	dqsez := sr - se + sez

	s.update(tab.bits, y, int(tab.witab[code]), int(tab.fitab[code]), dq, sr, dqsez)

	return code
}
