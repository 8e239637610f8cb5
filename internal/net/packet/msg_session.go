package packet

// JoinMsg is the first message a client sends.
type JoinMsg struct {
	Protocol uint16
	Name     string
}

func (m *JoinMsg) Serialize(s *Stream) {
	s.WriteUint16(m.Protocol)
	s.WriteString(m.Name, PlayerNameMaxLen)
}

func (m *JoinMsg) Deserialize(s *Stream) {
	m.Protocol = s.ReadUint16()
	m.Name = s.ReadString(PlayerNameMaxLen)
}

// JoinedMsg tells a client which object it controls.
type JoinedMsg struct {
	PlayerID uint16
	TickRate uint8
}

func (m *JoinedMsg) Serialize(s *Stream) {
	s.WriteUint16(m.PlayerID)
	s.WriteUint8(m.TickRate)
}

func (m *JoinedMsg) Deserialize(s *Stream) {
	m.PlayerID = s.ReadUint16()
	m.TickRate = s.ReadUint8()
}

// DisconnectMsg is sent before the server closes a connection.
type DisconnectMsg struct {
	Reason string
}

func (m *DisconnectMsg) Serialize(s *Stream) {
	s.WriteString(m.Reason, ReasonMaxLen)
}

func (m *DisconnectMsg) Deserialize(s *Stream) {
	m.Reason = s.ReadString(ReasonMaxLen)
}

// ResyncMsg asks the server to resend every live object as a full record.
// It has no payload.
type ResyncMsg struct{}

func (*ResyncMsg) Serialize(*Stream)   {}
func (*ResyncMsg) Deserialize(*Stream) {}
