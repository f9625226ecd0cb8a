package domain

import "slices"

// DefaultGenre is assigned when a record carries no genre.
const DefaultGenre = "Unknown"

// Record is implemented by *Disc and *Book. Kind-specific behavior lives on
// the variants; callers switch on Kind only where layout differs.
type Record interface {
	Kind() Kind
	Identifier() string
	SetIdentifier(id string)
	// Code is the barcode for discs and the ISBN for books.
	Code() string
	Positions() []int
	// Loaded reports whether the full detail file has been read.
	Loaded() bool
	View() ItemView
	Apply(v ItemView)
	Summary() IndexEntry
	Clone() Record
}

// New returns an empty record of the given kind.
func New(kind Kind) Record {
	if kind == KindBook {
		return &Book{Genre: DefaultGenre}
	}
	return &Disc{Genre: DefaultGenre}
}

// FromView builds a record of the given kind from a uniform view.
func FromView(kind Kind, v ItemView) Record {
	rec := New(kind)
	rec.Apply(v)
	return rec
}

// FromSummary builds a partially hydrated record from an index entry.
func FromSummary(kind Kind, e IndexEntry) Record {
	positions := slices.Clone(e.ShelfPositions)
	switch kind {
	case KindBook:
		return &Book{
			ID:             e.ID,
			Title:          e.Title,
			Author:         e.Creator,
			Genre:          orDefaultGenre(e.Genre),
			Year:           e.Year,
			CoverFile:      e.CoverFile,
			Favorite:       e.Favorite,
			ShelfPositions: positions,
			PageCount:      e.MetaInt,
			ISBN:           e.MetaString,
		}
	default:
		return &Disc{
			ID:             e.ID,
			Title:          e.Title,
			Artist:         e.Creator,
			Genre:          orDefaultGenre(e.Genre),
			Year:           e.Year,
			CoverFile:      e.CoverFile,
			Favorite:       e.Favorite,
			ShelfPositions: positions,
			TrackCount:     e.MetaInt,
			Barcode:        e.MetaString,
		}
	}
}

// FirstPosition returns the lowest-indexed shelf position, or -1.
func FirstPosition(r Record) int {
	p := r.Positions()
	if len(p) == 0 {
		return -1
	}
	return p[0]
}

func orDefaultGenre(g string) string {
	if g == "" {
		return DefaultGenre
	}
	return g
}
