// Package bcio implements the compact binary wire format for a module:
// the custom variable-length integer encoding, the writer and reader
// that round-trip a *bytecode.Module, and a content-hash-keyed disk
// cache of verified modules.
package bcio

import (
	"fmt"

	"fortio.org/safecast"

	"hlbc/internal/diagx"
)

// vintMax is the largest magnitude vint can represent. Magnitudes at or
// above it are unrepresentable and rejected as a writer overflow.
const vintMax = 0x20000000

// EncodeVint appends i's variable-length encoding to dst and returns the
// extended slice. Negative values have no 1-byte form; their magnitude
// thresholds mirror the positive ones above 1 byte (|i|<0x2000 for the
// 2-byte form, |i|<vintMax for the 4-byte form). A literal boundary that places
// |i|==0x2000 in the 2-byte negative form while the corresponding
// positive value 0x2000 takes the 4-byte form would make -0x2000
// indistinguishable from 0 on the wire; treating the thresholds
// symmetrically keeps encode and decode inverses of each other at every
// magnitude.
func EncodeVint(dst []byte, i int32) ([]byte, error) {
	if i >= 0 {
		switch {
		case i < 0x80:
			return append(dst, byte(i)), nil
		case i < 0x2000:
			return append(dst, byte(i>>8)|0x80, byte(i&0xFF)), nil
		case i < vintMax:
			return append(dst, byte(i>>24)|0xC0, byte((i>>16)&0xFF), byte((i>>8)&0xFF), byte(i&0xFF)), nil
		default:
			return nil, diagx.New(diagx.WriterOverflow, fmt.Sprintf("vint: magnitude %d exceeds %#x", i, vintMax))
		}
	}
	mag := -int64(i)
	switch {
	case mag < 0x2000:
		m := safecast.MustConvert[int32](mag)
		return append(dst, byte(m>>8)|0xA0, byte(m&0xFF)), nil
	case mag < vintMax:
		m := safecast.MustConvert[int32](mag)
		return append(dst, byte(m>>24)|0xE0, byte((m>>16)&0xFF), byte((m>>8)&0xFF), byte(m&0xFF)), nil
	default:
		return nil, diagx.New(diagx.WriterOverflow, fmt.Sprintf("vint: magnitude %d exceeds %#x", mag, vintMax))
	}
}

// DecodeVint reads one vint from the front of src, returning the decoded
// value and the number of bytes consumed.
func DecodeVint(src []byte) (int32, int, error) {
	if len(src) == 0 {
		return 0, 0, diagx.New(diagx.InternalInvariant, "vint: empty input")
	}
	b0 := src[0]
	switch {
	case b0 < 0x80:
		return int32(b0), 1, nil
	case b0 < 0xA0:
		if len(src) < 2 {
			return 0, 0, shortRead("vint", 2, len(src))
		}
		hi := int32(b0 & 0x1F)
		return hi<<8 | int32(src[1]), 2, nil
	case b0 < 0xC0:
		if len(src) < 2 {
			return 0, 0, shortRead("vint", 2, len(src))
		}
		hi := int32(b0 & 0x1F)
		return -(hi<<8 | int32(src[1])), 2, nil
	case b0 < 0xE0:
		if len(src) < 4 {
			return 0, 0, shortRead("vint", 4, len(src))
		}
		hi := int32(b0 & 0x1F)
		return hi<<24 | int32(src[1])<<16 | int32(src[2])<<8 | int32(src[3]), 4, nil
	default:
		if len(src) < 4 {
			return 0, 0, shortRead("vint", 4, len(src))
		}
		hi := int32(b0 & 0x1F)
		mag := hi<<24 | int32(src[1])<<16 | int32(src[2])<<8 | int32(src[3])
		return -mag, 4, nil
	}
}

func shortRead(what string, want, got int) error {
	return diagx.New(diagx.InternalInvariant, fmt.Sprintf("%s: need %d bytes, have %d", what, want, got))
}
