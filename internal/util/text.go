// Package util provides text and filename helpers shared by the store and the
// lookup collaborators.
package util

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// typography folds smart punctuation and letters that do not decompose.
var typography = strings.NewReplacer(
	"‘", "'", "’", "'", "‚", "'", "′", "'",
	"“", `"`, "”", `"`, "„", `"`, "″", `"`,
	"–", "-", "—", "-", "−", "-",
	"…", "...",
	" ", " ",
	"ß", "ss", "Æ", "AE", "æ", "ae", "Œ", "OE", "œ", "oe",
	"Ø", "O", "ø", "o", "Đ", "D", "đ", "d", "Ł", "L", "ł", "l", "Þ", "Th", "þ", "th",
)

// SanitizeText folds typographic punctuation and transliterates accented
// Latin letters to ASCII so titles render on the display font.
//
//	"Björk – Début"  → "Bjork - Debut"
//	"“Heroes”"       → "\"Heroes\""
func SanitizeText(s string) string {
	s = typography.Replace(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFKD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SanitizeFilename maps an identifier to a name safe on FAT filesystems.
// Spaces become underscores, path separators and colons become dashes, and
// characters reserved by FAT are dropped.
func SanitizeFilename(s string) string {
	s = SanitizeText(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case r == '/' || r == '\\' || r == ':':
			b.WriteByte('-')
		case strings.ContainsRune(`*?"<>|'`, r):
		case r < 0x20 || r > unicode.MaxASCII:
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// TrackFileName returns the zero-padded sidecar name for a track number.
func TrackFileName(trackNo int) string {
	return fmt.Sprintf("%02d.json", trackNo)
}
