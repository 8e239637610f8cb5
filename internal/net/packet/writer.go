package packet

import (
	"fmt"
	"math"

	"github.com/arenasync/server/internal/geom"
)

// WriteBits writes the low n bits of v.
func (s *Stream) WriteBits(v uint32, n int) {
	checkWidth(n)
	if n < 32 && v>>uint(n) != 0 {
		panic(fmt.Sprintf("packet: value %d does not fit in %d bits", v, n))
	}
	for i := 0; i < n; {
		idx := s.bit >> 3
		if idx >= len(s.buf) {
			s.buf = append(s.buf, 0)
		}
		off := s.bit & 7
		take := 8 - off
		if take > n-i {
			take = n - i
		}
		mask := uint32(1)<<uint(take) - 1
		s.buf[idx] |= byte(((v >> uint(i)) & mask) << uint(off))
		s.bit += take
		i += take
	}
}

func (s *Stream) WriteBool(v bool) {
	if v {
		s.WriteBits(1, 1)
	} else {
		s.WriteBits(0, 1)
	}
}

func (s *Stream) WriteUint8(v uint8)   { s.WriteBits(uint32(v), 8) }
func (s *Stream) WriteUint16(v uint16) { s.WriteBits(uint32(v), 16) }
func (s *Stream) WriteUint32(v uint32) { s.WriteBits(v, 32) }
func (s *Stream) WriteInt8(v int8)     { s.WriteBits(uint32(uint8(v)), 8) }
func (s *Stream) WriteInt16(v int16)   { s.WriteBits(uint32(uint16(v)), 16) }
func (s *Stream) WriteInt32(v int32)   { s.WriteBits(uint32(v), 32) }

// WriteFloat linearly quantizes v, clamped to [min, max], into bits unsigned
// bits. The decoded value is within (max-min)/(2^bits-1) of the clamped input.
func (s *Stream) WriteFloat(v, min, max float64, bits int) {
	checkWidth(bits)
	if bits == 0 {
		return
	}
	rng := float64(uint64(1)<<uint(bits) - 1)
	if math.IsNaN(v) {
		v = min
	}
	x := math.Max(min, math.Min(max, v))
	t := (x - min) / (max - min)
	s.WriteBits(uint32(math.Round(t*rng)), bits)
}

// WriteVec writes both components of v with WriteFloat.
func (s *Stream) WriteVec(v geom.Vec2, minX, minY, maxX, maxY float64, bits int) {
	s.WriteFloat(v.X, minX, maxX, bits)
	s.WriteFloat(v.Y, minY, maxY, bits)
}

// WriteUnitVec encodes a direction as one quantized angle in [0, 2π).
func (s *Stream) WriteUnitVec(v geom.Vec2, bits int) {
	a := math.Atan2(v.Y, v.X)
	if a < 0 {
		a += 2 * math.Pi
	}
	s.WriteFloat(a, 0, 2*math.Pi, bits)
}

// WriteGameType writes the code of an item/loot type name. Unknown names
// encode as the "none" sentinel.
func (s *Stream) WriteGameType(name string) {
	s.writeType(s.mustTypes().Game, name)
}

// WriteMapType writes the code of a map object type name.
func (s *Stream) WriteMapType(name string) {
	s.writeType(s.mustTypes().Map, name)
}

func (s *Stream) writeType(v *Vocabulary, name string) {
	code, _ := v.Code(name)
	s.WriteBits(code, v.Bits())
}

// WriteAlignToNextByte zero-pads to the next byte boundary.
func (s *Stream) WriteAlignToNextByte() {
	if off := s.bit & 7; off != 0 {
		s.WriteBits(0, 8-off)
	}
}

// WriteString writes at most maxLen ASCII bytes, null terminated when
// shorter than maxLen. Non-ASCII input is folded first.
func (s *Stream) WriteString(str string, maxLen int) {
	b := foldASCII(str)
	if len(b) > maxLen {
		b = b[:maxLen]
	}
	for _, c := range b {
		s.WriteUint8(c)
	}
	if len(b) < maxLen {
		s.WriteUint8(0)
	}
}

// WriteBytes appends a byte-aligned blob. The cursor must be aligned.
func (s *Stream) WriteBytes(b []byte) {
	if s.bit&7 != 0 {
		panic("packet: WriteBytes on unaligned stream")
	}
	s.buf = append(s.buf, b...)
	s.bit += len(b) * 8
}

func (s *Stream) mustTypes() *Types {
	if s.types == nil {
		panic("packet: stream has no type vocabularies")
	}
	return s.types
}
