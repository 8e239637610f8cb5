package packet

import (
	"math/bits"
	"sort"
)

// Vocabulary is a closed set of type names shared by server and client.
// Code 0 is reserved for "none"/invalid; names get codes 1..N-1 in sorted
// order, so both sides derive identical codes from the same definitions.
type Vocabulary struct {
	names []string
	codes map[string]uint32
	bits  int
}

// NewVocabulary builds a vocabulary from names. Duplicates and the empty
// name are ignored.
func NewVocabulary(names []string) *Vocabulary {
	uniq := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n != "" {
			uniq[n] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(uniq)+1)
	for n := range uniq {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)
	sorted = append([]string{""}, sorted...)

	v := &Vocabulary{
		names: sorted,
		codes: make(map[string]uint32, len(sorted)),
		bits:  bits.Len(uint(len(sorted) - 1)), // ceil(log2(N))
	}
	for i, n := range sorted {
		v.codes[n] = uint32(i)
	}
	return v
}

// Code returns the wire code for name; unknown names map to the sentinel.
func (v *Vocabulary) Code(name string) (uint32, bool) {
	c, ok := v.codes[name]
	return c, ok
}

// Name returns the name for a wire code. Code 0 yields "".
func (v *Vocabulary) Name(code uint32) (string, bool) {
	if int(code) >= len(v.names) {
		return "", false
	}
	return v.names[code], true
}

// Bits is the field width used for this vocabulary.
func (v *Vocabulary) Bits() int { return v.bits }

// Len includes the sentinel.
func (v *Vocabulary) Len() int { return len(v.names) }

// Types bundles the two vocabularies the protocol encodes: game object
// (items, loot) types and map object (obstacle, building) types.
type Types struct {
	Game *Vocabulary
	Map  *Vocabulary
}

func NewTypes(gameTypes, mapTypes []string) *Types {
	return &Types{
		Game: NewVocabulary(gameTypes),
		Map:  NewVocabulary(mapTypes),
	}
}
