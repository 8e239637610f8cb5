package packet

// KillMsg announces a player being downed or killed.
type KillMsg struct {
	DamageType     uint8
	ItemSourceType string
	MapSourceType  string
	TargetID       uint16
	KillerID       uint16
	KillCreditID   uint16
	KillerKills    uint8
	Downed         bool
	Killed         bool
}

func (m *KillMsg) Serialize(s *Stream) {
	s.WriteUint8(m.DamageType)
	s.WriteGameType(m.ItemSourceType)
	s.WriteMapType(m.MapSourceType)
	s.WriteUint16(m.TargetID)
	s.WriteUint16(m.KillerID)
	s.WriteUint16(m.KillCreditID)
	s.WriteUint8(m.KillerKills)
	s.WriteBool(m.Downed)
	s.WriteBool(m.Killed)
	s.WriteAlignToNextByte()
}

func (m *KillMsg) Deserialize(s *Stream) {
	m.DamageType = s.ReadUint8()
	m.ItemSourceType = s.ReadGameType()
	m.MapSourceType = s.ReadMapType()
	m.TargetID = s.ReadUint16()
	m.KillerID = s.ReadUint16()
	m.KillCreditID = s.ReadUint16()
	m.KillerKills = s.ReadUint8()
	m.Downed = s.ReadBool()
	m.Killed = s.ReadBool()
	s.ReadAlignToNextByte()
}

// Damage types carried by KillMsg.DamageType.
const (
	DamagePlayer uint8 = iota
	DamageBleeding
	DamageGas
	DamageAirdrop
	DamageAirstrike
)
