package library

import (
	"fmt"

	"github.com/listenupapp/librarian/internal/config"
	"github.com/listenupapp/librarian/internal/domain"
	"github.com/listenupapp/librarian/internal/store"
	"github.com/listenupapp/librarian/internal/util"
)

// KindDescriptor carries everything that differs between the two kinds
// outside the record types themselves.
type KindDescriptor struct {
	Kind          domain.Kind
	Name          string
	NamePlural    string
	ShortName     string
	CreatorLabel  string
	CodeLabel     string
	IndexFile     string
	DetailDir     string
	FilePrefix    string
	MediaTerm     string
	ExtraInfoKey  string
	ExtraInfoUnit string
	HasTrackList  bool
	ShelfStart    int
	ThemeColor    string
}

// CoverFileName returns the canonical cover file name for a record id.
func (d KindDescriptor) CoverFileName(id string) string {
	return d.FilePrefix + util.SanitizeFilename(id) + ".jpg"
}

// ExtraInfo renders the kind-specific summary line of v.
//
//	disc: "BC: 0602537347841 | Trk: 13 | 74 min"
//	book: "ISBN: 9780441013593 | Progress: 37 / 412 Pages"
func (d KindDescriptor) ExtraInfo(v domain.ItemView) string {
	if d.Kind == domain.KindBook {
		if v.CurrentPage > 0 {
			return fmt.Sprintf("%s: %s | Progress: %d / %d %s",
				d.ExtraInfoKey, v.Code, v.CurrentPage, v.PageCount, d.ExtraInfoUnit)
		}
		return fmt.Sprintf("%s: %s | %s: %d", d.ExtraInfoKey, v.Code, d.ExtraInfoUnit, v.PageCount)
	}
	return fmt.Sprintf("%s: %s | Trk: %d | %d %s",
		d.ExtraInfoKey, v.Code, v.TrackCount, v.TotalDurationMs/60000, d.ExtraInfoUnit)
}

// Registry holds exactly one descriptor per kind.
type Registry struct {
	descriptors [len(domain.Kinds)]KindDescriptor
}

// NewRegistry builds the registry from the shelf settings.
func NewRegistry(shelf config.ShelfConfig) *Registry {
	r := &Registry{}
	r.descriptors[domain.KindDisc] = KindDescriptor{
		Kind:          domain.KindDisc,
		Name:          "CD",
		NamePlural:    "CDs",
		ShortName:     "CD",
		CreatorLabel:  "Artist",
		CodeLabel:     "Barcode",
		IndexFile:     store.IndexPath(domain.KindDisc),
		DetailDir:     store.DetailDir(domain.KindDisc),
		FilePrefix:    "cd_",
		MediaTerm:     "Album",
		ExtraInfoKey:  "BC",
		ExtraInfoUnit: "min",
		HasTrackList:  true,
		ShelfStart:    shelf.DiscStart,
		ThemeColor:    shelf.DiscTheme,
	}
	r.descriptors[domain.KindBook] = KindDescriptor{
		Kind:          domain.KindBook,
		Name:          "Book",
		NamePlural:    "Books",
		ShortName:     "Book",
		CreatorLabel:  "Author",
		CodeLabel:     "ISBN",
		IndexFile:     store.IndexPath(domain.KindBook),
		DetailDir:     store.DetailDir(domain.KindBook),
		FilePrefix:    "book_",
		MediaTerm:     "Book",
		ExtraInfoKey:  "ISBN",
		ExtraInfoUnit: "Pages",
		HasTrackList:  false,
		ShelfStart:    shelf.BookStart,
		ThemeColor:    shelf.BookTheme,
	}
	return r
}

// Get returns the descriptor of kind.
func (r *Registry) Get(kind domain.Kind) KindDescriptor {
	return r.descriptors[kind]
}
