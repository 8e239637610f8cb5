package world

// KindRegistrar is implemented by Register and Replica.
type KindRegistrar interface {
	RegisterKind(kind Kind, newPayload PayloadFactory)
}

// RegisterKinds installs the payload factory of every replicated kind.
func RegisterKinds(r KindRegistrar) {
	r.RegisterKind(KindPlayer, NewPlayer)
	r.RegisterKind(KindObstacle, NewObstacle)
	r.RegisterKind(KindLoot, NewLoot)
	r.RegisterKind(KindBuilding, NewBuilding)
	r.RegisterKind(KindSmoke, NewSmoke)
}
