package store

import (
	"io"
	"strconv"

	"github.com/buger/jsonparser"
	jsoniter "github.com/json-iterator/go"

	"github.com/listenupapp/librarian/internal/domain"
	"github.com/listenupapp/librarian/internal/errors"
)

var jsonAPI = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            false,
	ValidateJsonRawMessage: false,
	CaseSensitive:          true,
}.Froze()

// bookDetail keeps the legacy artist key older shelves wrote for books.
type bookDetail struct {
	*domain.Book
	Artist string `json:"artist"`
}

func encodeDetail(w io.Writer, rec domain.Record) error {
	var v any = rec
	if b, ok := rec.(*domain.Book); ok {
		v = bookDetail{Book: b, Artist: b.Author}
	}
	return jsonAPI.NewEncoder(w).Encode(v)
}

// decodeDetail reads a detail file field by field. Missing, unknown and
// mistyped fields keep their defaults; only a non-object document fails.
func decodeDetail(kind domain.Kind, data []byte) (domain.Record, error) {
	var rec domain.Record
	var err error
	if kind == domain.KindBook {
		rec, err = decodeBook(data)
	} else {
		rec, err = decodeDisc(data)
	}
	if err != nil {
		return nil, errors.Decodef(err, "decode %s detail", kind)
	}
	return rec, nil
}

func decodeDisc(data []byte) (*domain.Disc, error) {
	d := &domain.Disc{Genre: domain.DefaultGenre, DetailsLoaded: true}
	err := jsonparser.ObjectEach(data, func(key, value []byte, t jsonparser.ValueType, _ int) error {
		switch string(key) {
		case "uniqueID":
			d.ID = asString(value, t, d.ID)
		case "title":
			d.Title = asString(value, t, d.Title)
		case "artist":
			d.Artist = asString(value, t, d.Artist)
		case "genre":
			d.Genre = asString(value, t, d.Genre)
		case "year":
			d.Year = asInt(value, t, d.Year)
		case "ledIndices":
			d.ShelfPositions = asInts(value, t)
		case "coverUrl":
			d.CoverURL = asString(value, t, d.CoverURL)
		case "coverFile":
			d.CoverFile = asString(value, t, d.CoverFile)
		case "coverHash":
			d.CoverHash = asString(value, t, d.CoverHash)
		case "favorite":
			d.Favorite = asBool(value, t, d.Favorite)
		case "notes":
			d.Notes = asString(value, t, d.Notes)
		case "barcode":
			d.Barcode = asString(value, t, d.Barcode)
		case "releaseMbid":
			d.ReleaseID = asString(value, t, d.ReleaseID)
		case "trackCount":
			d.TrackCount = asInt(value, t, d.TrackCount)
		case "totalDurationMs":
			d.TotalDurationMs = int64(asInt(value, t, int(d.TotalDurationMs)))
		}
		return nil
	})
	if d.Genre == "" {
		d.Genre = domain.DefaultGenre
	}
	return d, err
}

func decodeBook(data []byte) (*domain.Book, error) {
	b := &domain.Book{Genre: domain.DefaultGenre, DetailsLoaded: true}
	var legacyArtist string
	err := jsonparser.ObjectEach(data, func(key, value []byte, t jsonparser.ValueType, _ int) error {
		switch string(key) {
		case "uniqueID":
			b.ID = asString(value, t, b.ID)
		case "title":
			b.Title = asString(value, t, b.Title)
		case "author":
			b.Author = asString(value, t, b.Author)
		case "artist":
			legacyArtist = asString(value, t, legacyArtist)
		case "genre":
			b.Genre = asString(value, t, b.Genre)
		case "year":
			b.Year = asInt(value, t, b.Year)
		case "ledIndices":
			b.ShelfPositions = asInts(value, t)
		case "coverUrl":
			b.CoverURL = asString(value, t, b.CoverURL)
		case "coverFile":
			b.CoverFile = asString(value, t, b.CoverFile)
		case "coverHash":
			b.CoverHash = asString(value, t, b.CoverHash)
		case "favorite":
			b.Favorite = asBool(value, t, b.Favorite)
		case "notes":
			b.Notes = asString(value, t, b.Notes)
		case "isbn":
			b.ISBN = asString(value, t, b.ISBN)
		case "publisher":
			b.Publisher = asString(value, t, b.Publisher)
		case "pageCount":
			b.PageCount = asInt(value, t, b.PageCount)
		case "currentPage":
			b.CurrentPage = asInt(value, t, b.CurrentPage)
		}
		return nil
	})
	if b.Author == "" {
		b.Author = legacyArtist
	}
	if b.Genre == "" {
		b.Genre = domain.DefaultGenre
	}
	return b, err
}

// decodeEntry parses one compact index line. Lines written before items
// carried identifiers have no id; they are kept with an empty one.
func decodeEntry(line []byte) (domain.IndexEntry, error) {
	var e domain.IndexEntry
	err := jsonparser.ObjectEach(line, func(key, value []byte, t jsonparser.ValueType, _ int) error {
		switch string(key) {
		case "id":
			e.ID = asString(value, t, "")
		case "t":
			e.Title = asString(value, t, "")
		case "a":
			e.Creator = asString(value, t, "")
		case "c":
			e.CoverFile = asString(value, t, "")
		case "y":
			e.Year = asInt(value, t, 0)
		case "g":
			e.Genre = asString(value, t, "")
		case "f":
			e.Favorite = asBool(value, t, false)
		case "mi":
			e.MetaInt = asInt(value, t, 0)
		case "ms":
			e.MetaString = asString(value, t, "")
		case "l":
			e.ShelfPositions = asInts(value, t)
		}
		return nil
	})
	return e, err
}

func asString(value []byte, t jsonparser.ValueType, def string) string {
	switch t {
	case jsonparser.String:
		if s, err := jsonparser.ParseString(value); err == nil {
			return s
		}
	case jsonparser.Number:
		return string(value)
	}
	return def
}

func asInt(value []byte, t jsonparser.ValueType, def int) int {
	switch t {
	case jsonparser.Number:
		if n, err := jsonparser.ParseInt(value); err == nil {
			return int(n)
		}
		if f, err := jsonparser.ParseFloat(value); err == nil {
			return int(f)
		}
	case jsonparser.String:
		if n, err := strconv.Atoi(string(value)); err == nil {
			return n
		}
	}
	return def
}

func asBool(value []byte, t jsonparser.ValueType, def bool) bool {
	switch t {
	case jsonparser.Boolean:
		if b, err := jsonparser.ParseBoolean(value); err == nil {
			return b
		}
	case jsonparser.Number:
		return string(value) != "0"
	}
	return def
}

func asInts(value []byte, t jsonparser.ValueType) []int {
	if t != jsonparser.Array {
		return nil
	}
	var out []int
	_, _ = jsonparser.ArrayEach(value, func(v []byte, vt jsonparser.ValueType, _ int, _ error) {
		if vt == jsonparser.Number {
			if n, err := jsonparser.ParseInt(v); err == nil && n >= 0 {
				out = append(out, int(n))
			}
		}
	})
	return out
}
