package domain

import "slices"

// Book is a printed book on the shelf.
type Book struct {
	ID             string `json:"uniqueID"`
	Title          string `json:"title"`
	Author         string `json:"author"`
	Genre          string `json:"genre"`
	Year           int    `json:"year"`
	ShelfPositions []int  `json:"ledIndices"`
	CoverURL       string `json:"coverUrl"`
	CoverFile      string `json:"coverFile"`
	CoverHash      string `json:"coverHash,omitempty"`
	Favorite       bool   `json:"favorite"`
	Notes          string `json:"notes"`
	ISBN           string `json:"isbn"`
	Publisher      string `json:"publisher"`
	PageCount      int    `json:"pageCount"`
	CurrentPage    int    `json:"currentPage"`
	DetailsLoaded  bool   `json:"-"`
}

func (b *Book) Kind() Kind { return KindBook }
func (b *Book) Identifier() string { return b.ID }
func (b *Book) SetIdentifier(id string) { b.ID = id }
func (b *Book) Code() string { return b.ISBN }
func (b *Book) Positions() []int { return b.ShelfPositions }
func (b *Book) Loaded() bool { return b.DetailsLoaded }

// View projects the book onto the uniform view.
func (b *Book) View() ItemView {
	return ItemView{
		Kind:           KindBook,
		ID:             b.ID,
		Title:          b.Title,
		Creator:        b.Author,
		Genre:          b.Genre,
		Year:           b.Year,
		ShelfPositions: slices.Clone(b.ShelfPositions),
		CoverURL:       b.CoverURL,
		CoverFile:      b.CoverFile,
		CoverHash:      b.CoverHash,
		Favorite:       b.Favorite,
		Notes:          b.Notes,
		Code:           b.ISBN,
		Publisher:      b.Publisher,
		PageCount:      b.PageCount,
		CurrentPage:    b.CurrentPage,
		DetailsLoaded:  b.DetailsLoaded,
	}
}

// Apply copies every book-relevant field of v onto b.
func (b *Book) Apply(v ItemView) {
	b.ID = v.ID
	b.Title = v.Title
	b.Author = v.Creator
	b.Genre = orDefaultGenre(v.Genre)
	b.Year = v.Year
	b.ShelfPositions = slices.Clone(v.ShelfPositions)
	b.CoverURL = v.CoverURL
	b.CoverFile = v.CoverFile
	b.CoverHash = v.CoverHash
	b.Favorite = v.Favorite
	b.Notes = v.Notes
	b.ISBN = v.Code
	b.Publisher = v.Publisher
	b.PageCount = v.PageCount
	b.CurrentPage = v.CurrentPage
	b.DetailsLoaded = v.DetailsLoaded
}

// Summary returns the compact index entry for b.
func (b *Book) Summary() IndexEntry {
	return IndexEntry{
		ID:             b.ID,
		Title:          b.Title,
		Creator:        b.Author,
		CoverFile:      b.CoverFile,
		Year:           b.Year,
		Genre:          b.Genre,
		Favorite:       b.Favorite,
		ShelfPositions: slices.Clone(b.ShelfPositions),
		MetaInt:        b.PageCount,
		MetaString:     b.ISBN,
	}
}

// Clone returns a deep copy.
func (b *Book) Clone() Record {
	c := *b
	c.ShelfPositions = slices.Clone(b.ShelfPositions)
	return &c
}
