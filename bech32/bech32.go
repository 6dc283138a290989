// Package bech32 implements the bech32 checksummed base32 format used by
// LNURLs and BOLT11 invoices.
//
// Unlike segwit addresses, LNURLs routinely exceed 90 characters, so decoding
// applies no overall length limit.
package bech32

import (
	"errors"
	"fmt"
	"strings"
)

const (
	charset        = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"
	separator      = '1'
	checksumLength = 6
)

var (
	// ErrMalformedEncoding is returned for any input that is not a valid
	// bech32 string.
	ErrMalformedEncoding = errors.New("malformed bech32 encoding")
	// ErrInvalidPadding is returned by strict bit conversion when the input
	// carries leftover or non-zero padding bits.
	ErrInvalidPadding = errors.New("invalid bech32 padding")
)

var generator = [5]uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}

var charsetRev = func() [128]int8 {
	var rev [128]int8
	for i := range rev {
		rev[i] = -1
	}
	for i := 0; i < len(charset); i++ {
		rev[charset[i]] = int8(i)
	}

	return rev
}()

func polymod(values []byte) uint32 {
	chk := uint32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 == 1 {
				chk ^= generator[i]
			}
		}
	}

	return chk
}

func hrpExpand(hrp string) []byte {
	out := make([]byte, 0, len(hrp)*2+1)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]>>5)
	}
	out = append(out, 0)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]&31)
	}

	return out
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedEncoding, fmt.Sprintf(format, args...))
}

// Decode splits a bech32 string into its human-readable part and its 5-bit
// data values, verifying the checksum. The returned data excludes the
// checksum. Upper-case input is accepted; mixed case is not.
func Decode(input string) (string, []byte, error) {
	if input == "" {
		return "", nil, malformed("empty string")
	}

	lower := strings.ToLower(input)
	if input != lower && input != strings.ToUpper(input) {
		return "", nil, malformed("mixed case")
	}
	input = lower

	pos := strings.LastIndexByte(input, separator)
	if pos < 0 {
		return "", nil, malformed("missing separator")
	}

	hrp, dataPart := input[:pos], input[pos+1:]
	if len(hrp) < 1 {
		return "", nil, malformed("empty human-readable part")
	}
	if len(dataPart) < checksumLength {
		return "", nil, malformed("data part shorter than checksum")
	}

	for i := 0; i < len(hrp); i++ {
		if hrp[i] < 33 || hrp[i] > 126 {
			return "", nil, malformed("invalid character %q in human-readable part", hrp[i])
		}
	}

	data := make([]byte, len(dataPart))
	for i := 0; i < len(dataPart); i++ {
		c := dataPart[i]
		if c >= 128 || charsetRev[c] < 0 {
			return "", nil, malformed("invalid character %q in data part", c)
		}
		data[i] = byte(charsetRev[c])
	}

	if polymod(append(hrpExpand(hrp), data...)) != 1 {
		return "", nil, malformed("checksum mismatch")
	}

	return hrp, data[:len(data)-checksumLength], nil
}

// Encode builds a lower-case bech32 string from a human-readable part and
// 5-bit data values.
func Encode(hrp string, data []byte) (string, error) {
	if hrp == "" {
		return "", malformed("empty human-readable part")
	}
	if hrp != strings.ToLower(hrp) && hrp != strings.ToUpper(hrp) {
		return "", malformed("mixed case human-readable part")
	}
	hrp = strings.ToLower(hrp)

	var sb strings.Builder
	sb.Grow(len(hrp) + 1 + len(data) + checksumLength)
	sb.WriteString(hrp)
	sb.WriteByte(separator)
	for _, v := range data {
		if int(v) >= len(charset) {
			return "", malformed("data value %d does not fit in 5 bits", v)
		}
		sb.WriteByte(charset[v])
	}
	for _, v := range checksum(hrp, data) {
		sb.WriteByte(charset[v])
	}

	return sb.String(), nil
}

func checksum(hrp string, data []byte) []byte {
	values := append(hrpExpand(hrp), data...)
	values = append(values, make([]byte, checksumLength)...)
	mod := polymod(values) ^ 1

	out := make([]byte, checksumLength)
	for i := range out {
		out[i] = byte((mod >> uint(5*(5-i))) & 31)
	}

	return out
}

// ConvertBits regroups a sequence of fromBits-wide values into toBits-wide
// values. With pad set a trailing short group is zero-padded on its low bits.
// Without it, leftover bits must be fewer than fromBits and all zero.
func ConvertBits(data []byte, fromBits, toBits uint8, pad bool) ([]byte, error) {
	if fromBits < 1 || fromBits > 8 || toBits < 1 || toBits > 8 {
		return nil, malformed("invalid bit group sizes %d -> %d", fromBits, toBits)
	}

	var acc uint32
	var bits uint8
	maxv := uint32(1)<<toBits - 1
	maxAcc := uint32(1)<<(fromBits+toBits-1) - 1

	out := make([]byte, 0, len(data)*int(fromBits)/int(toBits)+1)
	for _, v := range data {
		if uint32(v)>>fromBits != 0 {
			return nil, malformed("value %d does not fit in %d bits", v, fromBits)
		}
		acc = (acc<<fromBits | uint32(v)) & maxAcc
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			out = append(out, byte(acc>>bits&maxv))
		}
	}

	switch {
	case pad:
		if bits > 0 {
			out = append(out, byte(acc<<(toBits-bits)&maxv))
		}
	case bits >= fromBits:
		return nil, fmt.Errorf("%w: %d leftover bits", ErrInvalidPadding, bits)
	case acc<<(toBits-bits)&maxv != 0:
		return nil, fmt.Errorf("%w: non-zero padding bits", ErrInvalidPadding)
	}

	return out, nil
}
