package grid

import (
	"unicode"

	"github.com/rivo/uniseg"
)

// Glyph is a single display glyph: exactly one grapheme cluster with no
// control characters. Use NewGlyph to build one from untrusted input.
type Glyph string

// Blank fills every cell that no triple covers.
const Blank Glyph = " "

// NewGlyph validates s as a single display glyph.
func NewGlyph(s string) (Glyph, error) {
	if err := validateGlyph(s); err != nil {
		return "", err
	}
	return Glyph(s), nil
}

// Valid reports whether g holds exactly one printable grapheme cluster.
func (g Glyph) Valid() bool {
	return validateGlyph(string(g)) == nil
}

func (g Glyph) String() string {
	return string(g)
}

// validateGlyph returns an *InvalidCharacterError with Index -1 on failure.
func validateGlyph(s string) error {
	n := uniseg.GraphemeClusterCount(s)
	if n != 1 {
		return &InvalidCharacterError{Index: -1, Value: s, Glyphs: n}
	}
	for _, r := range s {
		// Control runes break row layout.
		if unicode.IsControl(r) {
			return &InvalidCharacterError{Index: -1, Value: s, Glyphs: n}
		}
	}
	return nil
}
