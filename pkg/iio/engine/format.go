package engine

import (
	"encoding/binary"
	"fmt"
)

// DataFormat describes how one channel's samples are laid out in buffer
// memory.
type DataFormat struct {
	Length       uint // storage bits per element
	Bits         uint // valid bits per element
	Shift        uint // right shift applied after load
	Signed       bool
	FullyDefined bool // all Length bits are meaningful
	BigEndian    bool
	WithScale    bool
	Scale        float64
	Repeat       uint
}

// ElementLength is the byte size of one repeated element.
func (f DataFormat) ElementLength() int {
	return int(f.Length / 8)
}

// ByteLength is the byte size of one sample of the channel, counting all
// repeated elements.
func (f DataFormat) ByteLength() int {
	return f.ElementLength() * f.repeat()
}

func (f DataFormat) repeat() int {
	if f.Repeat == 0 {
		return 1
	}
	return int(f.Repeat)
}

func (f DataFormat) String() string {
	endian, sign := "le", "u"
	if f.BigEndian {
		endian = "be"
	}
	if f.Signed {
		sign = "s"
	}
	if f.FullyDefined {
		sign = string(sign[0] - 'a' + 'A')
	}
	s := fmt.Sprintf("%s:%s%d/%d", endian, sign, f.Bits, f.Length)
	if f.repeat() > 1 {
		s += fmt.Sprintf("X%d", f.repeat())
	}
	return s + fmt.Sprintf(">>%d", f.Shift)
}

var hostBigEndian = binary.NativeEndian.Uint16([]byte{0x00, 0x01}) == 0x0001

// Convert turns one hardware sample in src into host layout in dst. Both
// slices must hold at least ByteLength bytes. Elements wider than eight bytes
// are only byte swapped.
func (f DataFormat) Convert(dst, src []byte) {
	n := f.ElementLength()
	if n == 0 {
		return
	}
	for i := 0; i < f.repeat(); i++ {
		s, d := src[i*n:(i+1)*n], dst[i*n:(i+1)*n]
		if n > 8 {
			copyOrdered(d, s, f.BigEndian != hostBigEndian)
			continue
		}
		v := loadUint(s, f.BigEndian)
		v >>= f.Shift
		if !f.FullyDefined {
			if f.Signed {
				v = signExtend(v, f.Bits)
			} else {
				v = maskBits(v, f.Bits)
			}
		}
		storeUint(d, v, hostBigEndian)
	}
}

// ConvertInverse turns one host-layout sample in src into hardware layout in
// dst.
func (f DataFormat) ConvertInverse(dst, src []byte) {
	n := f.ElementLength()
	if n == 0 {
		return
	}
	for i := 0; i < f.repeat(); i++ {
		s, d := src[i*n:(i+1)*n], dst[i*n:(i+1)*n]
		if n > 8 {
			copyOrdered(d, s, f.BigEndian != hostBigEndian)
			continue
		}
		v := loadUint(s, hostBigEndian)
		if !f.FullyDefined {
			v = maskBits(v, f.Bits)
		}
		v <<= f.Shift
		storeUint(d, v, f.BigEndian)
	}
}

// ReadChannel copies one channel out of multiplexed buffer memory. data is
// the buffer memory, first the offset of the channel's first sample and step
// the row size. It stops at the end of data or dst and returns the bytes
// written to dst.
func ReadChannel(f DataFormat, data []byte, first, step int, dst []byte, raw bool) int {
	n := f.ByteLength()
	if n == 0 || step <= 0 || first < 0 {
		return 0
	}
	written := 0
	for off := first; off+n <= len(data) && written+n <= len(dst); off += step {
		if raw {
			copy(dst[written:written+n], data[off:off+n])
		} else {
			f.Convert(dst[written:written+n], data[off:off+n])
		}
		written += n
	}
	return written
}

// WriteChannel is the inverse of ReadChannel and returns the bytes consumed
// from src.
func WriteChannel(f DataFormat, data []byte, first, step int, src []byte, raw bool) int {
	n := f.ByteLength()
	if n == 0 || step <= 0 || first < 0 {
		return 0
	}
	read := 0
	for off := first; off+n <= len(data) && read+n <= len(src); off += step {
		if raw {
			copy(data[off:off+n], src[read:read+n])
		} else {
			f.ConvertInverse(data[off:off+n], src[read:read+n])
		}
		read += n
	}
	return read
}

func loadUint(b []byte, bigEndian bool) uint64 {
	var v uint64
	if bigEndian {
		for _, c := range b {
			v = v<<8 | uint64(c)
		}
		return v
	}
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func storeUint(b []byte, v uint64, bigEndian bool) {
	if bigEndian {
		for i := len(b) - 1; i >= 0; i-- {
			b[i] = byte(v)
			v >>= 8
		}
		return
	}
	for i := range b {
		b[i] = byte(v)
		v >>= 8
	}
}

func copyOrdered(dst, src []byte, swap bool) {
	if !swap {
		copy(dst, src)
		return
	}
	for i := range src {
		dst[len(src)-1-i] = src[i]
	}
}

func maskBits(v uint64, bits uint) uint64 {
	if bits == 0 || bits >= 64 {
		return v
	}
	return v & (1<<bits - 1)
}

func signExtend(v uint64, bits uint) uint64 {
	if bits == 0 || bits >= 64 {
		return v
	}
	v = maskBits(v, bits)
	if v&(1<<(bits-1)) != 0 {
		v |= ^uint64(0) << bits
	}
	return v
}
