package packet

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldASCII converts UTF-8 to the 7-bit ASCII the string fields carry.
// Accents are stripped ("Jöse" -> "Jose"); anything still outside printable
// ASCII becomes '?'.
func foldASCII(s string) []byte {
	allASCII := true
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] >= 0x7f {
			allASCII = false
			break
		}
	}
	if allASCII {
		return []byte(s)
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	out := make([]byte, 0, len(folded))
	for _, r := range folded {
		if r < 0x20 || r >= 0x7f {
			out = append(out, '?')
			continue
		}
		out = append(out, byte(r))
	}
	return out
}
