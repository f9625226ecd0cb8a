package util

import (
	"regexp"
	"strings"
)

var (
	genreSeparatorRe = regexp.MustCompile(`[\s_/&+]+`)
	genreDropRe      = regexp.MustCompile(`[^a-z0-9-]`)
	genreDashesRe    = regexp.MustCompile(`-+`)
)

// GenreKey reduces a genre label to the key used to group and filter by
// genre, so spelling variants land together:
//
//	"Hip Hop"       → "hip-hop"
//	"hip-hop"       → "hip-hop"
//	"Rock & Roll"   → "rock-roll"
//	"Música Latina" → "musica-latina"
func GenreKey(genre string) string {
	s := strings.ToLower(strings.TrimSpace(SanitizeText(genre)))
	s = genreSeparatorRe.ReplaceAllString(s, "-")
	s = genreDropRe.ReplaceAllString(s, "")
	s = genreDashesRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
