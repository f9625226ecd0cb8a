package domain

import "slices"

// Disc is a compact disc on the shelf.
type Disc struct {
	ID              string `json:"uniqueID"`
	Title           string `json:"title"`
	Artist          string `json:"artist"`
	Genre           string `json:"genre"`
	Year            int    `json:"year"`
	ShelfPositions  []int  `json:"ledIndices"`
	CoverURL        string `json:"coverUrl"`
	CoverFile       string `json:"coverFile"`
	CoverHash       string `json:"coverHash,omitempty"`
	Favorite        bool   `json:"favorite"`
	Notes           string `json:"notes"`
	Barcode         string `json:"barcode"`
	ReleaseID       string `json:"releaseMbid"`
	TrackCount      int    `json:"trackCount"`
	TotalDurationMs int64  `json:"totalDurationMs"`
	DetailsLoaded   bool   `json:"-"`
}

func (d *Disc) Kind() Kind { return KindDisc }
func (d *Disc) Identifier() string { return d.ID }
func (d *Disc) SetIdentifier(id string) { d.ID = id }
func (d *Disc) Code() string { return d.Barcode }
func (d *Disc) Positions() []int { return d.ShelfPositions }
func (d *Disc) Loaded() bool { return d.DetailsLoaded }

// View projects the disc onto the uniform view.
func (d *Disc) View() ItemView {
	return ItemView{
		Kind:            KindDisc,
		ID:              d.ID,
		Title:           d.Title,
		Creator:         d.Artist,
		Genre:           d.Genre,
		Year:            d.Year,
		ShelfPositions:  slices.Clone(d.ShelfPositions),
		CoverURL:        d.CoverURL,
		CoverFile:       d.CoverFile,
		CoverHash:       d.CoverHash,
		Favorite:        d.Favorite,
		Notes:           d.Notes,
		Code:            d.Barcode,
		ReleaseID:       d.ReleaseID,
		TrackCount:      d.TrackCount,
		TotalDurationMs: d.TotalDurationMs,
		DetailsLoaded:   d.DetailsLoaded,
	}
}

// Apply copies every disc-relevant field of v onto d.
func (d *Disc) Apply(v ItemView) {
	d.ID = v.ID
	d.Title = v.Title
	d.Artist = v.Creator
	d.Genre = orDefaultGenre(v.Genre)
	d.Year = v.Year
	d.ShelfPositions = slices.Clone(v.ShelfPositions)
	d.CoverURL = v.CoverURL
	d.CoverFile = v.CoverFile
	d.CoverHash = v.CoverHash
	d.Favorite = v.Favorite
	d.Notes = v.Notes
	d.Barcode = v.Code
	d.ReleaseID = v.ReleaseID
	d.TrackCount = v.TrackCount
	d.TotalDurationMs = v.TotalDurationMs
	d.DetailsLoaded = v.DetailsLoaded
}

// Summary returns the compact index entry for d.
func (d *Disc) Summary() IndexEntry {
	return IndexEntry{
		ID:             d.ID,
		Title:          d.Title,
		Creator:        d.Artist,
		CoverFile:      d.CoverFile,
		Year:           d.Year,
		Genre:          d.Genre,
		Favorite:       d.Favorite,
		ShelfPositions: slices.Clone(d.ShelfPositions),
		MetaInt:        d.TrackCount,
		MetaString:     d.Barcode,
	}
}

// Clone returns a deep copy.
func (d *Disc) Clone() Record {
	c := *d
	c.ShelfPositions = slices.Clone(d.ShelfPositions)
	return &c
}
