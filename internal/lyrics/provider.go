// Package lyrics fetches song lyrics for the tracks of a release and records
// the per-track lookup state in the release's track list sidecar.
package lyrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/buger/jsonparser"

	"github.com/listenupapp/librarian/internal/errors"
)

// maxResponseSize caps a provider response body.
const maxResponseSize = 1 << 20

// Query identifies the track whose lyrics are wanted.
type Query struct {
	Artist     string
	Title      string
	Album      string
	DurationMs int64
}

// Provider is one lyrics source. Fetch returns a not-found error when the
// source answered but has no lyrics for the track.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, q Query) (string, error)
}

// Default provider endpoints.
const (
	OVHBaseURL    = "https://api.lyrics.ovh"
	LRCLIBBaseURL = "https://lrclib.net"
)

// OVH queries lyrics.ovh by artist and title.
type OVH struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client
}

// Name implements Provider.
func (p *OVH) Name() string { return "lyrics.ovh" }

// Fetch implements Provider.
func (p *OVH) Fetch(ctx context.Context, q Query) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/%s/%s", p.BaseURL, url.PathEscape(q.Artist), url.PathEscape(q.Title))
	body, err := get(ctx, p.Client, endpoint, p.UserAgent)
	if err != nil {
		return "", err
	}
	text, err := jsonparser.GetString(body, "lyrics")
	if err != nil || text == "" {
		return "", errors.NotFoundf("lyrics.ovh has no lyrics for %q", q.Title)
	}
	return text, nil
}

// LRCLIB queries lrclib.net. Plain lyrics are preferred over synced ones.
type LRCLIB struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client
}

// Name implements Provider.
func (p *LRCLIB) Name() string { return "lrclib" }

// Fetch implements Provider.
func (p *LRCLIB) Fetch(ctx context.Context, q Query) (string, error) {
	params := url.Values{}
	params.Set("artist_name", q.Artist)
	params.Set("track_name", q.Title)
	if q.Album != "" {
		params.Set("album_name", q.Album)
	}
	if q.DurationMs > 0 {
		params.Set("duration", strconv.FormatInt(q.DurationMs/1000, 10))
	}
	body, err := get(ctx, p.Client, p.BaseURL+"/api/get?"+params.Encode(), p.UserAgent)
	if err != nil {
		return "", err
	}

	for _, key := range []string{"plainLyrics", "syncedLyrics"} {
		value, typ, _, err := jsonparser.Get(body, key)
		if err != nil || typ != jsonparser.String {
			continue
		}
		text, err := jsonparser.ParseString(value)
		if err == nil && text != "" {
			return text, nil
		}
	}
	return "", errors.NotFoundf("lrclib has no lyrics for %q", q.Title)
}

// get performs a GET and returns the body of a 200 response. A 404 is a
// not-found answer; other statuses and transport failures are network
// errors.
func get(ctx context.Context, client *http.Client, endpoint, userAgent string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "create request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(err, errors.CodeCanceled, "lyrics request")
		}
		return nil, errors.Network(err, "lyrics request")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, errors.NotFound("no lyrics")
	default:
		return nil, errors.Network(fmt.Errorf("status %d", resp.StatusCode), "lyrics request")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Network(err, "read lyrics response")
	}
	return body, nil
}
