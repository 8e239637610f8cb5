package data

import "github.com/arenasync/server/internal/net/packet"

// BuildTypes derives the wire vocabularies from the loaded definitions.
// Server and client must load the same files to agree on codes.
func BuildTypes(defs *DefTable, m *MapDef) *packet.Types {
	return packet.NewTypes(defs.Names(), m.MapTypeNames())
}
