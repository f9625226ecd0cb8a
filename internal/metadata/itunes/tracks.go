package itunes

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/listenupapp/librarian/internal/domain"
	"github.com/listenupapp/librarian/internal/errors"
	"github.com/listenupapp/librarian/internal/util"
)

// trackLimit covers multi-disc box sets.
const trackLimit = 200

// FetchTrackList looks up the songs of an album by its collection id and
// returns them as a track list keyed by that id. Tracks are ordered by disc
// then track number and numbered from 1 across discs.
func (c *Client) FetchTrackList(ctx context.Context, releaseID string) (*domain.TrackList, error) {
	id, err := strconv.ParseInt(releaseID, 10, 64)
	if err != nil || id <= 0 {
		return nil, errors.Validationf("%q is not an iTunes collection id", releaseID)
	}
	params := url.Values{}
	params.Set("id", releaseID)
	params.Set("entity", "song")
	params.Set("limit", strconv.Itoa(trackLimit))

	resp, err := c.get(ctx, "/lookup", params)
	if err != nil {
		return nil, err
	}

	tl := &domain.TrackList{ReleaseID: releaseID, FetchedAt: time.Now().Unix()}
	var songs []*result
	for i := range resp.Results {
		r := &resp.Results[i]
		switch r.WrapperType {
		case "collection":
			tl.Title = util.SanitizeText(r.CollectionName)
			tl.Artist = util.SanitizeText(r.ArtistName)
		case "track":
			if r.Kind == "" || r.Kind == "song" {
				songs = append(songs, r)
			}
		}
	}
	if len(songs) == 0 {
		return nil, errors.NotFoundf("no tracks for collection %s", releaseID)
	}

	sort.SliceStable(songs, func(i, j int) bool {
		if songs[i].DiscNumber != songs[j].DiscNumber {
			return songs[i].DiscNumber < songs[j].DiscNumber
		}
		return songs[i].TrackNumber < songs[j].TrackNumber
	})
	tl.Tracks = make([]domain.Track, len(songs))
	for i, r := range songs {
		tl.Tracks[i] = domain.Track{
			Number:     i + 1,
			Title:      util.SanitizeText(r.TrackName),
			DurationMs: r.TrackTimeMillis,
			Lyrics:     domain.LyricsMetadata{Status: domain.LyricsUnchecked},
		}
		if r.TrackID > 0 {
			tl.Tracks[i].RecordingID = strconv.FormatInt(r.TrackID, 10)
		}
	}
	if tl.Artist == "" {
		tl.Artist = util.SanitizeText(songs[0].ArtistName)
	}
	c.logger.Debug("iTunes track list", "collection", releaseID, "tracks", len(tl.Tracks))
	return tl, nil
}
