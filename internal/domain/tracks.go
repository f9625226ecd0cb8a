package domain

import (
	"fmt"
	"time"
)

// LyricsStatus is the per-track lyrics lookup state.
type LyricsStatus string

// Lyrics states. A track moves from unchecked to cached or missing and only
// leaves those states on a forced retry.
const (
	LyricsUnchecked LyricsStatus = "unchecked"
	LyricsCached    LyricsStatus = "cached"
	LyricsMissing   LyricsStatus = "missing"
)

// LyricsMetadata tracks lyrics state for one track.
type LyricsMetadata struct {
	Status      LyricsStatus `json:"status"`
	Path        string       `json:"path,omitempty"`
	FetchedAt   int64        `json:"fetchedAt,omitempty"`
	LastTriedAt int64        `json:"lastTriedAt,omitempty"`
	Lang        string       `json:"lang,omitempty"`
	Error       string       `json:"error,omitempty"`
	OffsetMs    int          `json:"offset,omitempty"`
}

// Resolved reports whether a lookup already produced a final answer.
func (m LyricsMetadata) Resolved() bool {
	return m.Status == LyricsCached || m.Status == LyricsMissing
}

// MarkCached records a successful fetch stored at path.
func (m *LyricsMetadata) MarkCached(path, lang string, at time.Time) {
	m.Status = LyricsCached
	m.Path = path
	m.Lang = lang
	m.FetchedAt = at.Unix()
	m.LastTriedAt = at.Unix()
	m.Error = ""
}

// MarkMissing records that no provider had lyrics for the track.
func (m *LyricsMetadata) MarkMissing(reason string, at time.Time) {
	m.Status = LyricsMissing
	m.LastTriedAt = at.Unix()
	m.Error = reason
}

// Track is one entry of a release's track list.
type Track struct {
	Number      int            `json:"trackNo"`
	Title       string         `json:"title"`
	DurationMs  int64          `json:"durationMs"`
	RecordingID string         `json:"recordingMbid"`
	Favorite    bool           `json:"isFavoriteTrack"`
	Lyrics      LyricsMetadata `json:"lyrics"`
}

// TrackList is the sidecar listing the tracks of one release.
type TrackList struct {
	ReleaseID string  `json:"releaseMbid"`
	Title     string  `json:"cdTitle"`
	Artist    string  `json:"cdArtist"`
	FetchedAt int64   `json:"fetchedAt"`
	Tracks    []Track `json:"tracks"`
}

// TotalDurationMs sums the track durations.
func (tl *TrackList) TotalDurationMs() int64 {
	var total int64
	for _, t := range tl.Tracks {
		total += t.DurationMs
	}
	return total
}

// Lyrics is the sidecar holding the text of one track's lyrics.
type Lyrics struct {
	Lang      string `json:"lang"`
	FetchedAt int64  `json:"fetchedAt"`
	Text      string `json:"text"`
}

// LyricsResult is the outcome of one per-track lyrics request.
type LyricsResult int

// Lyrics request outcomes.
const (
	LyricsAlreadyCached LyricsResult = iota
	LyricsFetchedNow
	LyricsNotFound
	LyricsError
)

func (r LyricsResult) String() string {
	switch r {
	case LyricsAlreadyCached:
		return "already_cached"
	case LyricsFetchedNow:
		return "fetched_now"
	case LyricsNotFound:
		return "not_found"
	case LyricsError:
		return "error"
	default:
		return fmt.Sprintf("lyrics_result(%d)", int(r))
	}
}
