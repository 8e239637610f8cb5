package packet

import (
	"bytes"
	"fmt"
	"io"

	"github.com/arenasync/server/internal/geom"
	"github.com/pierrec/lz4/v4"
)

// MapPlace is one minimap marker: a static map object and where it stands.
type MapPlace struct {
	Type string
	Pos  geom.Vec2
	Ori  uint8
}

// MapMsg describes the static map once per connection. The places list is
// bit-packed, then lz4 compressed and appended as a byte-aligned blob.
type MapMsg struct {
	Name   string
	Seed   uint32
	Width  uint16
	Height uint16
	Places []MapPlace
}

// maxMapBlob caps the decompressed places blob a client will accept.
const maxMapBlob = 1 << 20

func (m *MapMsg) Serialize(s *Stream) {
	s.WriteString(m.Name, MapNameMaxLen)
	s.WriteUint32(m.Seed)
	s.WriteUint16(m.Width)
	s.WriteUint16(m.Height)

	inner := NewStream(len(m.Places)*6+4, s.Types())
	inner.WriteUint16(uint16(len(m.Places)))
	for _, p := range m.Places {
		inner.WriteMapType(p.Type)
		inner.WriteVec(p.Pos, 0, 0, MapMaxDim, MapMaxDim, PosBits)
		inner.WriteBits(uint32(p.Ori&3), 2)
	}
	inner.WriteAlignToNextByte()

	blob, err := compressBlob(inner.Bytes())
	if err != nil {
		// lz4 into a memory buffer cannot fail short of a library bug.
		panic(fmt.Sprintf("packet: compress map blob: %v", err))
	}
	s.WriteAlignToNextByte()
	s.WriteUint32(uint32(len(blob)))
	s.WriteBytes(blob)
}

func (m *MapMsg) Deserialize(s *Stream) {
	m.Name = s.ReadString(MapNameMaxLen)
	m.Seed = s.ReadUint32()
	m.Width = s.ReadUint16()
	m.Height = s.ReadUint16()
	s.ReadAlignToNextByte()
	n := s.ReadUint32()
	if s.Err() != nil {
		return
	}
	if int(n) > s.BitsLeft()/8 {
		s.fail(ErrShortRead)
		return
	}
	raw, err := decompressBlob(s.ReadBytes(int(n)))
	if err != nil {
		s.fail(fmt.Errorf("packet: map blob: %w", err))
		return
	}
	inner := NewReader(raw, s.Types())
	count := int(inner.ReadUint16())
	m.Places = m.Places[:0]
	for i := 0; i < count && inner.Err() == nil; i++ {
		var p MapPlace
		p.Type = inner.ReadMapType()
		p.Pos = inner.ReadVec(0, 0, MapMaxDim, MapMaxDim, PosBits)
		p.Ori = uint8(inner.ReadBits(2))
		m.Places = append(m.Places, p)
	}
	if err := inner.Err(); err != nil {
		s.fail(err)
	}
}

func compressBlob(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressBlob(src []byte) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(src))
	out, err := io.ReadAll(io.LimitReader(zr, maxMapBlob+1))
	if err != nil {
		return nil, err
	}
	if len(out) > maxMapBlob {
		return nil, fmt.Errorf("decompressed size exceeds %d bytes", maxMapBlob)
	}
	return out, nil
}
