// Package itunes looks up albums and books in the Apple iTunes Search API
// and resolves their cover artwork.
package itunes

// maxResponseSize caps a response body.
const maxResponseSize = 4 << 20

// response is the raw iTunes API response.
type response struct {
	ResultCount int      `json:"resultCount"`
	Results     []result `json:"results"`
}

// result is a single result of a search or lookup. Albums are described by
// the collection fields, ebooks by the track fields.
type result struct {
	WrapperType      string   `json:"wrapperType"`
	Kind             string   `json:"kind"`
	CollectionType   string   `json:"collectionType"`
	CollectionID     int64    `json:"collectionId"`
	CollectionName   string   `json:"collectionName"`
	TrackID          int64    `json:"trackId,omitempty"`
	TrackName        string   `json:"trackName"`
	TrackNumber      int      `json:"trackNumber,omitempty"`
	DiscNumber       int      `json:"discNumber,omitempty"`
	TrackTimeMillis  int64    `json:"trackTimeMillis,omitempty"`
	ArtistName       string   `json:"artistName"`
	ArtworkURL60     string   `json:"artworkUrl60"`
	ArtworkURL100    string   `json:"artworkUrl100"`
	TrackCount       int      `json:"trackCount,omitempty"`
	ReleaseDate      string   `json:"releaseDate,omitempty"`
	PrimaryGenreName string   `json:"primaryGenreName,omitempty"`
	Genres           []string `json:"genres,omitempty"`
	Description      string   `json:"description,omitempty"`
}

// artwork returns the best artwork URL of r scaled to CoverSize.
func (r *result) artwork() string {
	u := r.ArtworkURL100
	if u == "" {
		u = r.ArtworkURL60
	}
	return CoverURL(u)
}

// title returns the collection name for albums and the track name for
// ebooks.
func (r *result) title() string {
	if r.CollectionName != "" && r.Kind != "ebook" {
		return r.CollectionName
	}
	return r.TrackName
}

// genre returns the primary genre, falling back to the first listed.
func (r *result) genre() string {
	if r.PrimaryGenreName != "" {
		return r.PrimaryGenreName
	}
	if len(r.Genres) > 0 {
		return r.Genres[0]
	}
	return ""
}

// year parses the leading year of the release date.
func (r *result) year() int {
	if len(r.ReleaseDate) < 4 {
		return 0
	}
	y := 0
	for _, ch := range r.ReleaseDate[:4] {
		if ch < '0' || ch > '9' {
			return 0
		}
		y = y*10 + int(ch-'0')
	}
	return y
}
