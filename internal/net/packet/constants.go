package packet

// Protocol constants shared by every message layout.
const (
	ProtocolVersion = 78

	// MouseMaxDist bounds Input.ToMouseLen.
	MouseMaxDist = 64.0

	// Positions are quantized over [0, MapMaxDim] on both axes.
	MapMaxDim = 1024.0
	PosBits   = 16

	PlayerNameMaxLen = 16
	MapNameMaxLen    = 24
	ReasonMaxLen     = 32

	// MaxInputs is the most action codes one Input carries.
	MaxInputs = 7
)
