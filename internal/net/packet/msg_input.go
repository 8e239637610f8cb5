package packet

import "github.com/arenasync/server/internal/geom"

// InputMsg is the per-frame client control state.
type InputMsg struct {
	Seq             uint8
	MoveLeft        bool
	MoveRight       bool
	MoveUp          bool
	MoveDown        bool
	ShootStart      bool
	ShootHold       bool
	Portrait        bool
	TouchMoveActive bool
	TouchMoveDir    geom.Vec2
	TouchMoveLen    uint8
	ToMouseDir      geom.Vec2
	ToMouseLen      float64
	Inputs          []uint8
	UseItem         string
}

func NewInputMsg() *InputMsg {
	return &InputMsg{
		TouchMoveDir: geom.Vec2{X: 1},
		TouchMoveLen: 255,
		ToMouseDir:   geom.Vec2{X: 1},
	}
}

// AddInput queues an action code; duplicates and codes beyond MaxInputs are
// dropped.
func (m *InputMsg) AddInput(code uint8) {
	if len(m.Inputs) >= MaxInputs {
		return
	}
	for _, c := range m.Inputs {
		if c == code {
			return
		}
	}
	m.Inputs = append(m.Inputs, code)
}

func (m *InputMsg) Serialize(s *Stream) {
	s.WriteUint8(m.Seq)
	s.WriteBool(m.MoveLeft)
	s.WriteBool(m.MoveRight)
	s.WriteBool(m.MoveUp)
	s.WriteBool(m.MoveDown)
	s.WriteBool(m.ShootStart)
	s.WriteBool(m.ShootHold)

	s.WriteBool(m.Portrait)
	s.WriteBool(m.TouchMoveActive)
	if m.TouchMoveActive {
		s.WriteUnitVec(m.TouchMoveDir, 8)
		s.WriteUint8(m.TouchMoveLen)
	}
	s.WriteUnitVec(m.ToMouseDir, 10)
	s.WriteFloat(m.ToMouseLen, 0, MouseMaxDist, 8)

	n := len(m.Inputs)
	if n > MaxInputs {
		n = MaxInputs
	}
	s.WriteBits(uint32(n), 4)
	for _, c := range m.Inputs[:n] {
		s.WriteUint8(c)
	}

	s.WriteGameType(m.UseItem)

	s.WriteBits(0, 6)
}

func (m *InputMsg) Deserialize(s *Stream) {
	m.Seq = s.ReadUint8()
	m.MoveLeft = s.ReadBool()
	m.MoveRight = s.ReadBool()
	m.MoveUp = s.ReadBool()
	m.MoveDown = s.ReadBool()
	m.ShootStart = s.ReadBool()
	m.ShootHold = s.ReadBool()

	m.Portrait = s.ReadBool()
	m.TouchMoveActive = s.ReadBool()
	if m.TouchMoveActive {
		m.TouchMoveDir = s.ReadUnitVec(8)
		m.TouchMoveLen = s.ReadUint8()
	}
	m.ToMouseDir = s.ReadUnitVec(10)
	m.ToMouseLen = s.ReadFloat(0, MouseMaxDist, 8)

	n := int(s.ReadBits(4))
	m.Inputs = m.Inputs[:0]
	for i := 0; i < n; i++ {
		m.Inputs = append(m.Inputs, s.ReadUint8())
	}

	m.UseItem = s.ReadGameType()

	s.ReadBits(6)
}

// MoveDir returns the unnormalized movement vector from the key flags, or
// the touch direction when touch movement is active.
func (m *InputMsg) MoveDir() geom.Vec2 {
	if m.TouchMoveActive {
		return m.TouchMoveDir.Mul(float64(m.TouchMoveLen) / 255)
	}
	var d geom.Vec2
	if m.MoveLeft {
		d.X--
	}
	if m.MoveRight {
		d.X++
	}
	if m.MoveUp {
		d.Y++
	}
	if m.MoveDown {
		d.Y--
	}
	return d
}
