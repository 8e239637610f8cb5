package event

// Match events. IDs are world object ids (uint16 on the wire).

type PlayerJoined struct {
	PlayerID  uint16
	SessionID uint64
	Name      string
}

type PlayerLeft struct {
	PlayerID  uint16
	SessionID uint64
}

type PlayerKilled struct {
	TargetID    uint16
	KillerID    uint16
	DamageType  uint8
	ItemSource  string
	TargetName  string
	KillerName  string
	KillerKills uint8
	Tick        uint64
}

type LootDropped struct {
	LootID uint16
	Type   string
	Count  int
}
