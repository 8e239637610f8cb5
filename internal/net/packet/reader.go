package packet

import (
	"math"

	"github.com/arenasync/server/internal/geom"
)

// ReadBits reads an n-bit unsigned value written by WriteBits.
func (s *Stream) ReadBits(n int) uint32 {
	checkWidth(n)
	if s.err != nil {
		return 0
	}
	if n > s.BitsLeft() {
		s.fail(ErrShortRead)
		s.bit = len(s.buf) * 8
		return 0
	}
	var v uint32
	for i := 0; i < n; {
		idx := s.bit >> 3
		off := s.bit & 7
		take := 8 - off
		if take > n-i {
			take = n - i
		}
		mask := byte(uint32(1)<<uint(take) - 1)
		v |= uint32((s.buf[idx]>>uint(off))&mask) << uint(i)
		s.bit += take
		i += take
	}
	return v
}

func (s *Stream) ReadBool() bool { return s.ReadBits(1) == 1 }

func (s *Stream) ReadUint8() uint8   { return uint8(s.ReadBits(8)) }
func (s *Stream) ReadUint16() uint16 { return uint16(s.ReadBits(16)) }
func (s *Stream) ReadUint32() uint32 { return s.ReadBits(32) }
func (s *Stream) ReadInt8() int8     { return int8(uint8(s.ReadBits(8))) }
func (s *Stream) ReadInt16() int16   { return int16(uint16(s.ReadBits(16))) }
func (s *Stream) ReadInt32() int32   { return int32(s.ReadBits(32)) }

// ReadFloat inverts WriteFloat.
func (s *Stream) ReadFloat(min, max float64, bits int) float64 {
	checkWidth(bits)
	if bits == 0 {
		return min
	}
	rng := float64(uint64(1)<<uint(bits) - 1)
	return min + (max-min)*float64(s.ReadBits(bits))/rng
}

func (s *Stream) ReadVec(minX, minY, maxX, maxY float64, bits int) geom.Vec2 {
	x := s.ReadFloat(minX, maxX, bits)
	y := s.ReadFloat(minY, maxY, bits)
	return geom.Vec2{X: x, Y: y}
}

// ReadUnitVec inverts WriteUnitVec.
func (s *Stream) ReadUnitVec(bits int) geom.Vec2 {
	return geom.FromAngle(s.ReadFloat(0, 2*math.Pi, bits))
}

func (s *Stream) ReadGameType() string {
	return s.readType(s.mustTypes().Game)
}

func (s *Stream) ReadMapType() string {
	return s.readType(s.mustTypes().Map)
}

func (s *Stream) readType(v *Vocabulary) string {
	code := s.ReadBits(v.Bits())
	name, ok := v.Name(code)
	if !ok {
		s.fail(ErrInvalidTypeCode)
		return ""
	}
	return name
}

// ReadAlignToNextByte skips the padding written by WriteAlignToNextByte.
func (s *Stream) ReadAlignToNextByte() {
	if off := s.bit & 7; off != 0 {
		s.ReadBits(8 - off)
	}
}

// ReadString reads a string written by WriteString with the same maxLen.
func (s *Stream) ReadString(maxLen int) string {
	b := make([]byte, 0, maxLen)
	for i := 0; i < maxLen; i++ {
		c := s.ReadUint8()
		if c == 0 {
			break
		}
		b = append(b, c)
	}
	return string(b)
}

// ReadBytes reads n bytes from an aligned cursor. The result is a copy.
func (s *Stream) ReadBytes(n int) []byte {
	if s.bit&7 != 0 {
		panic("packet: ReadBytes on unaligned stream")
	}
	if s.err != nil {
		return nil
	}
	if n < 0 || n*8 > s.BitsLeft() {
		s.fail(ErrShortRead)
		s.bit = len(s.buf) * 8
		return nil
	}
	start := s.bit >> 3
	out := make([]byte, n)
	copy(out, s.buf[start:start+n])
	s.bit += n * 8
	return out
}
