package packet

import (
	"errors"
	"math"
	"testing"

	"github.com/arenasync/server/internal/geom"
)

func testTypes() *Types {
	return NewTypes(
		[]string{"9mm", "ak47", "bandage", "m870", "12gauge", "ak47"},
		[]string{"tree_01", "crate_01", "house_01"},
	)
}

func TestWriteBits_PacksLSBFirst(t *testing.T) {
	s := NewStream(4, nil)
	s.WriteBits(0b101, 3)
	s.WriteBits(0b11, 2)
	if got := s.Bytes(); len(got) != 1 || got[0] != 0x1d {
		t.Fatalf("expected [0x1d], got=%x", got)
	}
	s.WriteBits(0x1ff, 9)
	if s.BitIndex() != 14 || s.Len() != 2 {
		t.Fatalf("cursor after 14 bits: bit=%d len=%d", s.BitIndex(), s.Len())
	}
}

func TestReadBits_RoundTripWidths(t *testing.T) {
	s := NewStream(64, nil)
	vals := []struct {
		v uint32
		n int
	}{
		{0, 0}, {1, 1}, {5, 3}, {0x7f, 7}, {0xabc, 12}, {0xffff, 16},
		{0x12345, 17}, {0xdeadbeef, 32}, {3, 2},
	}
	for _, tc := range vals {
		s.WriteBits(tc.v, tc.n)
	}
	r := NewReader(s.Bytes(), nil)
	for _, tc := range vals {
		if got := r.ReadBits(tc.n); got != tc.v {
			t.Fatalf("ReadBits(%d): expected %#x, got=%#x", tc.n, tc.v, got)
		}
	}
	if r.Err() != nil {
		t.Fatalf("unexpected err: %v", r.Err())
	}
}

func TestIntegers_RoundTrip(t *testing.T) {
	s := NewStream(32, nil)
	s.WriteBool(true)
	s.WriteUint8(200)
	s.WriteUint16(60000)
	s.WriteUint32(4000000000)
	s.WriteInt8(-5)
	s.WriteInt16(-30000)
	s.WriteInt32(-2000000000)

	r := NewReader(s.Bytes(), nil)
	if !r.ReadBool() {
		t.Fatal("bool")
	}
	if got := r.ReadUint8(); got != 200 {
		t.Fatalf("uint8 got=%d", got)
	}
	if got := r.ReadUint16(); got != 60000 {
		t.Fatalf("uint16 got=%d", got)
	}
	if got := r.ReadUint32(); got != 4000000000 {
		t.Fatalf("uint32 got=%d", got)
	}
	if got := r.ReadInt8(); got != -5 {
		t.Fatalf("int8 got=%d", got)
	}
	if got := r.ReadInt16(); got != -30000 {
		t.Fatalf("int16 got=%d", got)
	}
	if got := r.ReadInt32(); got != -2000000000 {
		t.Fatalf("int32 got=%d", got)
	}
}

func TestWriteBits_PanicsOnOverflow(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for value wider than field")
		}
	}()
	NewStream(4, nil).WriteBits(8, 3)
}

func TestFloat_QuantizationWithinHalfStep(t *testing.T) {
	const min, max = -10.0, 30.0
	for _, bits := range []int{4, 8, 12, 16} {
		step := (max - min) / float64(uint64(1)<<uint(bits)-1)
		for _, v := range []float64{-10, -3.3, 0, 0.5, 17.77, 29.99, 30} {
			s := NewStream(8, nil)
			s.WriteFloat(v, min, max, bits)
			got := NewReader(s.Bytes(), nil).ReadFloat(min, max, bits)
			if math.Abs(got-v) > step/2+1e-9 {
				t.Fatalf("bits=%d v=%v got=%v step=%v", bits, v, got, step)
			}
		}
	}
}

func TestFloat_ClampsOutOfRange(t *testing.T) {
	s := NewStream(8, nil)
	s.WriteFloat(-50, 0, 1, 8)
	s.WriteFloat(50, 0, 1, 8)
	s.WriteFloat(math.NaN(), 0, 1, 8)
	r := NewReader(s.Bytes(), nil)
	if got := r.ReadFloat(0, 1, 8); got != 0 {
		t.Fatalf("low clamp got=%v", got)
	}
	if got := r.ReadFloat(0, 1, 8); got != 1 {
		t.Fatalf("high clamp got=%v", got)
	}
	if got := r.ReadFloat(0, 1, 8); got != 0 {
		t.Fatalf("NaN got=%v", got)
	}
}

func TestUnitVec_RoundTrip(t *testing.T) {
	for _, a := range []float64{0, 0.7, math.Pi / 2, math.Pi, 4, 2*math.Pi - 0.01} {
		v := geom.FromAngle(a)
		s := NewStream(4, nil)
		s.WriteUnitVec(v, 10)
		got := NewReader(s.Bytes(), nil).ReadUnitVec(10)
		if got.Sub(v).Length() > 0.01 {
			t.Fatalf("angle %v: expected %v, got=%v", a, v, got)
		}
	}
}

func TestVocabulary_CodesAndWidth(t *testing.T) {
	types := testTypes()
	// "" + 5 unique names = 6 entries -> 3 bits.
	if types.Game.Len() != 6 || types.Game.Bits() != 3 {
		t.Fatalf("game vocab len=%d bits=%d", types.Game.Len(), types.Game.Bits())
	}
	// "" + 3 names = 4 entries -> 2 bits.
	if types.Map.Bits() != 2 {
		t.Fatalf("map vocab bits=%d", types.Map.Bits())
	}
	if c, ok := types.Game.Code(""); !ok || c != 0 {
		t.Fatalf("sentinel code=%d ok=%v", c, ok)
	}
	if _, ok := types.Game.Code("unknown"); ok {
		t.Fatal("unknown name should not resolve")
	}
}

func TestGameType_RoundTripAndSentinel(t *testing.T) {
	types := testTypes()
	s := NewStream(8, types)
	s.WriteGameType("m870")
	s.WriteGameType("not_a_type")
	s.WriteMapType("house_01")

	r := NewReader(s.Bytes(), types)
	if got := r.ReadGameType(); got != "m870" {
		t.Fatalf("expected m870, got=%q", got)
	}
	if got := r.ReadGameType(); got != "" {
		t.Fatalf("unknown name should decode as sentinel, got=%q", got)
	}
	if got := r.ReadMapType(); got != "house_01" {
		t.Fatalf("expected house_01, got=%q", got)
	}
}

func TestReadMapType_InvalidCodeIsSticky(t *testing.T) {
	types := NewTypes(nil, []string{"a", "b", "c", "d", "e"}) // 6 entries, 3 bits
	s := NewStream(2, types)
	s.WriteBits(7, 3)
	r := NewReader(s.Bytes(), types)
	if got := r.ReadMapType(); got != "" {
		t.Fatalf("got=%q", got)
	}
	if !errors.Is(r.Err(), ErrInvalidTypeCode) {
		t.Fatalf("expected ErrInvalidTypeCode, got=%v", r.Err())
	}
}

func TestString_TerminatorAndTruncation(t *testing.T) {
	s := NewStream(64, nil)
	s.WriteString("bob", 16)
	s.WriteString("abcdefghijklmnopqrstuvwxyz", 16)
	s.WriteString("Jöse", 16)

	r := NewReader(s.Bytes(), nil)
	if got := r.ReadString(16); got != "bob" {
		t.Fatalf("got=%q", got)
	}
	if got := r.ReadString(16); got != "abcdefghijklmnop" {
		t.Fatalf("truncation got=%q", got)
	}
	if got := r.ReadString(16); got != "Jose" {
		t.Fatalf("fold got=%q", got)
	}
	if r.Err() != nil {
		t.Fatalf("unexpected err: %v", r.Err())
	}
}

func TestAlign_BothSidesAgree(t *testing.T) {
	s := NewStream(8, nil)
	s.WriteBits(1, 3)
	s.WriteAlignToNextByte()
	s.WriteAlignToNextByte()
	s.WriteUint8(0xaa)
	if s.Len() != 2 {
		t.Fatalf("expected 2 bytes, got=%d", s.Len())
	}
	r := NewReader(s.Bytes(), nil)
	r.ReadBits(3)
	r.ReadAlignToNextByte()
	if got := r.ReadUint8(); got != 0xaa {
		t.Fatalf("got=%#x", got)
	}
}

func TestBytes_RoundTripAndCopy(t *testing.T) {
	s := NewStream(8, nil)
	s.WriteUint8(1)
	s.WriteBytes([]byte{9, 8, 7})
	data := s.Bytes()
	r := NewReader(data, nil)
	r.ReadUint8()
	got := r.ReadBytes(3)
	data[1] = 0
	if got[0] != 9 || got[1] != 8 || got[2] != 7 {
		t.Fatalf("got=%v", got)
	}
}

func TestRead_ShortInputIsStickyAndZero(t *testing.T) {
	r := NewReader([]byte{0xff}, nil)
	if got := r.ReadUint16(); got != 0 {
		t.Fatalf("short read should yield 0, got=%d", got)
	}
	if !errors.Is(r.Err(), ErrShortRead) {
		t.Fatalf("expected ErrShortRead, got=%v", r.Err())
	}
	if got := r.ReadBits(1); got != 0 {
		t.Fatalf("read after failure should yield 0, got=%d", got)
	}
	if r.ReadBytes(1) != nil {
		t.Fatal("ReadBytes after failure should be nil")
	}
}

func TestReset_KeepsCapacity(t *testing.T) {
	s := NewStream(128, nil)
	for i := 0; i < 100; i++ {
		s.WriteUint8(uint8(i))
	}
	c := s.Cap()
	s.Reset()
	if s.Len() != 0 || s.BitIndex() != 0 || s.Cap() != c {
		t.Fatalf("after reset len=%d bit=%d cap=%d (want cap %d)", s.Len(), s.BitIndex(), s.Cap(), c)
	}
}
