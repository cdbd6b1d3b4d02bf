package value

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

// CoercionID is the fixed closed set of literal coercions IcyDB supports
// (spec §4.4, §9: "do not introduce caller-provided coercion closures").
type CoercionID byte

const (
	CoercionStrict CoercionID = iota
	CoercionNumericWiden
	CoercionTextCasefold
)

func (c CoercionID) String() string {
	switch c {
	case CoercionStrict:
		return "Strict"
	case CoercionNumericWiden:
		return "NumericWiden"
	case CoercionTextCasefold:
		return "TextCasefold"
	default:
		return "Unknown"
	}
}

// EncodeComponent converts v into canonical bytes whose lexicographic order
// matches CanonicalCmp within v's declared type (spec §4.3). coercion only
// affects Text components (TextCasefold lower-cases before encoding); all
// other kinds ignore it, since Strict/NumericWiden only change predicate
// literal matching, not the stored index bytes.
func EncodeComponent(v Value, coercion CoercionID) ([]byte, error) {
	switch v.Kind {
	case KindNull, KindUnit:
		return nil, nil
	case KindBool:
		if v.Bool {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case KindUint:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], v.Uint)
		return b[:], nil
	case KindInt:
		return encodeSignedFixed(v.Int, 8), nil
	case KindUint128:
		return encodeUnsignedBig(v.Big, 16), nil
	case KindInt128:
		return encodeSignedBig(v.Big, 16), nil
	case KindUintBig:
		return encodeUnsignedVar(v.Big), nil
	case KindIntBig:
		// Arbitrary precision: length-prefixed sign-flipped magnitude so
		// shorter-magnitude positives still sort after any negative and
		// same-length magnitudes compare bytewise (spec §4.3: big-endian,
		// sign-flipped MSB for signed types, generalized to variable width
		// via a length prefix that itself flips on sign so negatives with
		// more bytes still sort below positives with fewer).
		return encodeSignedBig(v.Big, 0), nil
	case KindFloat32:
		f := v.Float32
		if f == 0 {
			f = 0 // -0 encodes as +0, which CanonicalCmp treats as equal
		}
		return encodeFloat32Bits(float32bits(f)), nil
	case KindFloat64:
		f := v.Float64
		if f == 0 {
			f = 0
		}
		return encodeFloat64Bits(float64bits(f)), nil
	case KindDecimal:
		return encodeDecimalComponent(v.Decimal), nil
	case KindText:
		s := v.Text
		if coercion == CoercionTextCasefold {
			s = strings.Map(unicode.ToLower, s)
		}
		return []byte(s), nil
	case KindBlob:
		return v.Blob, nil
	case KindPrincipal:
		return v.Principal, nil
	case KindSubaccount:
		return v.Subaccount[:], nil
	case KindUlid:
		return v.Ulid[:], nil
	case KindDate:
		return encodeSignedFixed(int64(v.Date), 4), nil
	case KindTimestamp:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], v.Timestamp)
		return b[:], nil
	case KindDuration:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], v.Duration)
		return b[:], nil
	case KindEnum:
		// path not in ordering (spec §4.3).
		return []byte(v.Enum.Variant), nil
	case KindAccount:
		out := make([]byte, 0, len(v.Account.Owner)+1+32)
		out = append(out, v.Account.Owner...)
		if v.Account.Subaccount != nil {
			out = append(out, 1)
			out = append(out, v.Account.Subaccount[:]...)
		} else {
			out = append(out, 0)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("value: kind %s is not indexable", v.Kind)
	}
}

// encodeSignedFixed packs a signed integer into a fixed-width big-endian
// buffer with the MSB flipped, so bytewise comparison matches signed
// numeric comparison (spec §4.3).
func encodeSignedFixed(v int64, width int) []byte {
	b := make([]byte, width)
	u := uint64(v)
	switch width {
	case 4:
		binary.BigEndian.PutUint32(b, uint32(u))
	case 8:
		binary.BigEndian.PutUint64(b, u)
	}
	b[0] ^= 0x80
	return b
}

// encodeFloat64Bits and encodeFloat32Bits flip the sign bit for
// non-negative floats and invert all bits for negative floats, the standard
// trick making IEEE-754 bit patterns sort the same as the floats they
// represent under unsigned bytewise comparison.
func encodeFloat64Bits(bits uint64) []byte {
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, bits)
	return out
}

func encodeFloat32Bits(bits uint32) []byte {
	if bits&(1<<31) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 31
	}
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, bits)
	return out
}

func encodeUnsignedBig(v *big.Int, width int) []byte {
	out := make([]byte, width)
	if v == nil {
		return out
	}
	b := v.Bytes()
	if len(b) > width {
		b = b[len(b)-width:]
	}
	copy(out[width-len(b):], b)
	return out
}

// encodeUnsignedVar encodes an arbitrary-precision non-negative integer as
// a 4-byte big-endian length prefix followed by its big-endian magnitude.
// Comparing the length prefix first makes a shorter (smaller) magnitude
// always sort before a longer one; equal lengths then compare the
// fixed-length magnitudes bytewise, which already matches numeric order.
func encodeUnsignedVar(v *big.Int) []byte {
	if v == nil {
		v = big.NewInt(0)
	}
	mag := v.Bytes()
	out := make([]byte, 4, 4+len(mag))
	binary.BigEndian.PutUint32(out, uint32(len(mag)))
	return append(out, mag...)
}

func encodeSignedBig(v *big.Int, width int) []byte {
	if v == nil {
		v = big.NewInt(0)
	}
	neg := v.Sign() < 0
	mag := new(big.Int).Abs(v)
	magBytes := mag.Bytes()
	if width == 0 {
		// variable-width path (IntBig): 4-byte length prefix, sign-flipped
		// so negatives sort before positives, and longer negatives sort
		// before shorter ones (more negative magnitude with a flipped
		// length byte orders correctly since width is inverted too).
		lenPrefix := make([]byte, 4)
		binary.BigEndian.PutUint32(lenPrefix, uint32(len(magBytes)))
		if neg {
			for i := range lenPrefix {
				lenPrefix[i] = ^lenPrefix[i]
			}
			for i := range magBytes {
				magBytes[i] = ^magBytes[i]
			}
		}
		out := make([]byte, 0, 5+len(magBytes))
		sign := byte(1)
		if neg {
			sign = 0
		}
		out = append(out, sign)
		out = append(out, lenPrefix...)
		out = append(out, magBytes...)
		return out
	}
	fixed := make([]byte, width)
	if len(magBytes) > width {
		magBytes = magBytes[len(magBytes)-width:]
	}
	copy(fixed[width-len(magBytes):], magBytes)
	if neg {
		// two's complement: invert the magnitude, then add one.
		for i := range fixed {
			fixed[i] = ^fixed[i]
		}
		for i := width - 1; i >= 0; i-- {
			fixed[i]++
			if fixed[i] != 0 {
				break
			}
		}
	}
	fixed[0] ^= 0x80
	return fixed
}

// encodeDecimalComponent orders by normalized numeric value, independent of
// how the value was originally scaled (e.g. "1.50" and "1.5" encode
// identically, and sort correctly against "2"). It uses the standard
// order-preserving decimal scheme: reduce the mantissa to drop trailing
// zero digits, express the result as a decimal-point-free digit string plus
// a base-10 exponent (value = 0.d1d2...dn * 10^exponent), then encode
// [sign][exponent, order-preserving signed][digit bytes]. For a fixed
// exponent, two digit strings compare correctly byte-for-byte because every
// digit is non-negative: a shorter string is always numerically <= any
// extension of it. Negative values bit-flip every subsequent byte so the
// whole ordering reverses relative to the positive case, and end with a
// 0xFF terminator so a shorter digit string sorts after its extensions.
func encodeDecimalComponent(d Decimal) []byte {
	m := d.Mantissa
	if m == nil {
		m = big.NewInt(0)
	}
	mag := new(big.Int).Abs(m)
	scale := d.Scale

	if mag.Sign() == 0 {
		return []byte{1} // zero: sign marker alone, strictly between neg(0) and pos(2)
	}
	neg := d.Sign < 0

	// strip trailing zero decimal digits, shrinking scale to match, so
	// "1.50" and "1.5" reduce to the same (digits, scale) pair.
	ten := big.NewInt(10)
	for scale > 0 {
		q, r := new(big.Int), new(big.Int)
		q.QuoRem(mag, ten, r)
		if r.Sign() != 0 {
			break
		}
		mag = q
		scale--
	}
	digits := mag.String()
	exponent := int64(len(digits)) - int64(scale)

	out := make([]byte, 0, 1+8+len(digits))
	if neg {
		out = append(out, 0)
	} else {
		out = append(out, 2)
	}
	expBytes := encodeSignedFixed(exponent, 8)
	digitBytes := []byte(digits)
	if neg {
		for i := range expBytes {
			expBytes[i] = ^expBytes[i]
		}
		for i := range digitBytes {
			digitBytes[i] = ^digitBytes[i]
		}
		// a terminator above every inverted digit makes a shorter negative
		// digit string (e.g. -1) sort after its extensions (e.g. -1.5).
		digitBytes = append(digitBytes, 0xFF)
	}
	out = append(out, expBytes...)
	out = append(out, digitBytes...)
	return out
}
