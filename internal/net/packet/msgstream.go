package packet

import "fmt"

// MsgType is the leading one-byte tag of every framed message.
type MsgType uint8

const (
	MsgNone       MsgType = 0
	MsgJoin       MsgType = 1
	MsgDisconnect MsgType = 2
	MsgInput      MsgType = 3
	MsgJoined     MsgType = 5
	MsgUpdate     MsgType = 6
	MsgKill       MsgType = 7
	MsgMap        MsgType = 10
	MsgResync     MsgType = 22
)

func (t MsgType) String() string {
	switch t {
	case MsgNone:
		return "None"
	case MsgJoin:
		return "Join"
	case MsgDisconnect:
		return "Disconnect"
	case MsgInput:
		return "Input"
	case MsgJoined:
		return "Joined"
	case MsgUpdate:
		return "Update"
	case MsgKill:
		return "Kill"
	case MsgMap:
		return "Map"
	case MsgResync:
		return "Resync"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// Serializer writes a message payload (without the tag).
type Serializer interface {
	Serialize(s *Stream)
}

// Msg is a message that can be both written and read.
type Msg interface {
	Serializer
	Deserialize(s *Stream)
}

// MsgStream frames typed messages on top of a Stream. A single MsgStream is
// reused for a whole tick so every message produced in that tick goes out in
// one network write; Reset rewinds it for the next tick.
type MsgStream struct {
	stream *Stream
}

func NewMsgStream(capacity int, types *Types) *MsgStream {
	return &MsgStream{stream: NewStream(capacity, types)}
}

// NewMsgReader wraps received bytes for dispatch.
func NewMsgReader(data []byte, types *Types) *MsgStream {
	return &MsgStream{stream: NewReader(data, types)}
}

// Stream exposes the underlying bit stream, positioned after the last tag
// read when used for decoding.
func (m *MsgStream) Stream() *Stream { return m.stream }

// SerializeMsg writes the tag, the payload, then pads to a byte boundary so
// the next message starts aligned.
func (m *MsgStream) SerializeMsg(t MsgType, msg Serializer) {
	m.stream.WriteAlignToNextByte()
	m.stream.WriteUint8(uint8(t))
	msg.Serialize(m.stream)
	m.stream.WriteAlignToNextByte()
}

// DeserializeMsgType reads only the tag; the caller dispatches and decodes
// the rest. Returns MsgNone when the stream is exhausted.
func (m *MsgStream) DeserializeMsgType() MsgType {
	m.stream.ReadAlignToNextByte()
	if m.stream.BitsLeft() < 8 {
		return MsgNone
	}
	return MsgType(m.stream.ReadUint8())
}

// Next advances to the next message in a batch. ok is false once the batch
// is exhausted or a previous read failed.
func (m *MsgStream) Next() (MsgType, bool) {
	if m.stream.Err() != nil {
		return MsgNone, false
	}
	t := m.DeserializeMsgType()
	return t, t != MsgNone
}

// Bytes returns the framed buffer. It is only valid until the next Reset.
func (m *MsgStream) Bytes() []byte { return m.stream.Bytes() }

func (m *MsgStream) Len() int { return m.stream.Len() }

// Reset rewinds the cursor without reallocating.
func (m *MsgStream) Reset() { m.stream.Reset() }
