package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromView_MapsCreatorAndCodePerKind(t *testing.T) {
	v := ItemView{
		ID:             "9780441013593",
		Title:          "Dune",
		Creator:        "Frank Herbert",
		Year:           1965,
		ShelfPositions: []int{4, 5},
		Code:           "9780441013593",
		PageCount:      412,
	}

	book, ok := FromView(KindBook, v).(*Book)
	require.True(t, ok)
	assert.Equal(t, "Frank Herbert", book.Author)
	assert.Equal(t, "9780441013593", book.ISBN)
	assert.Equal(t, 412, book.PageCount)
	assert.Equal(t, DefaultGenre, book.Genre)

	disc, ok := FromView(KindDisc, v).(*Disc)
	require.True(t, ok)
	assert.Equal(t, "Frank Herbert", disc.Artist)
	assert.Equal(t, "9780441013593", disc.Barcode)
	assert.Zero(t, disc.TrackCount)
}

func TestView_DoesNotAliasPositions(t *testing.T) {
	d := &Disc{ID: "a", ShelfPositions: []int{1, 2}}
	v := d.View()
	v.ShelfPositions[0] = 99

	assert.Equal(t, []int{1, 2}, d.ShelfPositions)

	c := d.Clone().(*Disc)
	c.ShelfPositions[1] = 42
	assert.Equal(t, []int{1, 2}, d.ShelfPositions)
}

func TestSummary_RoundTripsThroughFromSummary(t *testing.T) {
	disc := &Disc{
		ID: "0602537", Title: "Random Access Memories", Artist: "Daft Punk",
		Genre: "Electronic", Year: 2013, CoverFile: "cd_0602537.jpg",
		Favorite: true, ShelfPositions: []int{7}, TrackCount: 13, Barcode: "0602537",
		Notes: "signed", CoverURL: "https://example.com/c.jpg", DetailsLoaded: true,
	}

	rebuilt := FromSummary(KindDisc, disc.Summary()).(*Disc)

	assert.Equal(t, disc.Summary(), rebuilt.Summary())
	assert.False(t, rebuilt.Loaded())
	assert.Empty(t, rebuilt.Notes)
	assert.Empty(t, rebuilt.CoverURL)
}

func TestFirstPosition(t *testing.T) {
	assert.Equal(t, -1, FirstPosition(&Book{}))
	assert.Equal(t, 3, FirstPosition(&Book{ShelfPositions: []int{3, 4}}))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("cd")
	require.NoError(t, err)
	assert.Equal(t, KindDisc, k)
	assert.Equal(t, KindBook, k.Other())

	_, err = ParseKind("vinyl")
	assert.Error(t, err)
}

func TestLyricsMetadata_Transitions(t *testing.T) {
	now := time.Unix(1700000000, 0)

	var m LyricsMetadata
	assert.False(t, m.Resolved())

	m.MarkMissing("no provider", now)
	assert.True(t, m.Resolved())
	assert.Equal(t, LyricsMissing, m.Status)
	assert.Equal(t, now.Unix(), m.LastTriedAt)

	m.MarkCached("/lyrics/r1/01.json", "en", now)
	assert.Equal(t, LyricsCached, m.Status)
	assert.Empty(t, m.Error)
	assert.Equal(t, now.Unix(), m.FetchedAt)
}
