package domain

import "slices"

// IndexEntry is one line of a compact index file. It carries only what the
// browse screen needs; notes, URLs and sidecar references stay in the detail
// file. Keys are abbreviated to keep the index small on the card.
type IndexEntry struct {
	ID             string `json:"id"`
	Title          string `json:"t"`
	Creator        string `json:"a"`
	CoverFile      string `json:"c"`
	Year           int    `json:"y"`
	Genre          string `json:"g"`
	Favorite       bool   `json:"f"`
	MetaInt        int    `json:"mi"`
	MetaString     string `json:"ms"`
	ShelfPositions []int  `json:"l"`
}

// Equal reports whether two entries carry the same values.
func (e IndexEntry) Equal(o IndexEntry) bool {
	return e.ID == o.ID &&
		e.Title == o.Title &&
		e.Creator == o.Creator &&
		e.CoverFile == o.CoverFile &&
		e.Year == o.Year &&
		e.Genre == o.Genre &&
		e.Favorite == o.Favorite &&
		e.MetaInt == o.MetaInt &&
		e.MetaString == o.MetaString &&
		slices.Equal(e.ShelfPositions, o.ShelfPositions)
}
