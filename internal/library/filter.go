package library

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/listenupapp/librarian/internal/domain"
	"github.com/listenupapp/librarian/internal/util"
)

// Field selects which text fields a filter query searches.
type Field int

// Query fields.
const (
	FieldAll Field = iota
	FieldTitle
	FieldCreator
	FieldGenre
)

// maxFuzzyDistance bounds how many characters a query may leave out of a
// field and still match it.
const maxFuzzyDistance = 2

// Filter narrows navigation to matching items. The zero Filter matches
// everything and is inactive.
type Filter struct {
	Query         string
	Field         Field
	Genre         string // matched by util.GenreKey
	Decade        int    // first year of the decade; 0 for any
	FavoritesOnly bool
}

// Active reports whether f restricts anything.
func (f Filter) Active() bool {
	return strings.TrimSpace(f.Query) != "" || f.Genre != "" || f.Decade != 0 || f.FavoritesOnly
}

// Match reports whether the indexed fields of e satisfy f.
func (f Filter) Match(e domain.IndexEntry) bool {
	if f.FavoritesOnly && !e.Favorite {
		return false
	}
	if f.Decade != 0 && e.Year/10*10 != f.Decade {
		return false
	}
	if f.Genre != "" && util.GenreKey(e.Genre) != util.GenreKey(f.Genre) {
		return false
	}
	q := strings.TrimSpace(f.Query)
	if q == "" {
		return true
	}
	switch f.Field {
	case FieldTitle:
		return matchText(q, e.Title)
	case FieldCreator:
		return matchText(q, e.Creator)
	case FieldGenre:
		return matchText(q, e.Genre)
	default:
		return matchText(q, e.Title) || matchText(q, e.Creator) || matchText(q, e.Genre)
	}
}

// matchText matches a case- and accent-insensitive substring, or a close
// fuzzy match of the whole field.
func matchText(query, field string) bool {
	if field == "" {
		return false
	}
	if strings.Contains(fold(field), fold(query)) {
		return true
	}
	d := fuzzy.RankMatchNormalizedFold(query, field)
	return d >= 0 && d <= maxFuzzyDistance
}

func fold(s string) string {
	return strings.ToLower(util.SanitizeText(s))
}
