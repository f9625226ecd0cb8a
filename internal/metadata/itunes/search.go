package itunes

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/listenupapp/librarian/internal/domain"
	"github.com/listenupapp/librarian/internal/errors"
	"github.com/listenupapp/librarian/internal/util"
)

const searchLimit = 10

// media returns the search media and entity for kind.
func media(kind domain.Kind) (string, string) {
	if kind == domain.KindBook {
		return "ebook", "ebook"
	}
	return "music", "album"
}

// ResolveCoverURL searches for an item by creator and title and returns the
// artwork URL of the best match: the first result whose artist matches the
// creator, else the first result with artwork.
func (c *Client) ResolveCoverURL(ctx context.Context, kind domain.Kind, creator, title string) (string, error) {
	term := strings.TrimSpace(strings.TrimSpace(creator) + " " + strings.TrimSpace(title))
	if term == "" {
		return "", errors.Validation("cover search needs a creator or a title")
	}
	m, entity := media(kind)
	params := url.Values{}
	params.Set("term", term)
	params.Set("media", m)
	params.Set("entity", entity)
	params.Set("limit", strconv.Itoa(searchLimit))

	resp, err := c.get(ctx, "/search", params)
	if err != nil {
		return "", err
	}
	c.logger.Debug("iTunes search results", "term", term, "count", resp.ResultCount)

	want := fold(creator)
	fallback := ""
	for i := range resp.Results {
		r := &resp.Results[i]
		art := r.artwork()
		if art == "" {
			continue
		}
		if want != "" && strings.Contains(fold(r.ArtistName), want) {
			return art, nil
		}
		if fallback == "" {
			fallback = art
		}
	}
	if fallback == "" {
		return "", errors.NotFoundf("no cover for %q", term)
	}
	return fallback, nil
}

// LookupByCode looks an item up by barcode (UPC/EAN) or ISBN and returns a
// record carrying the code as identifier and the looked-up fields.
func (c *Client) LookupByCode(ctx context.Context, kind domain.Kind, code string) (domain.Record, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.Validation("empty code")
	}
	params := url.Values{}
	if kind == domain.KindBook {
		params.Set("isbn", code)
	} else {
		params.Set("upc", code)
		params.Set("entity", "album")
	}

	resp, err := c.get(ctx, "/lookup", params)
	if err != nil {
		return nil, err
	}
	for i := range resp.Results {
		r := &resp.Results[i]
		if kind == domain.KindDisc && r.WrapperType != "collection" {
			continue
		}
		return toRecord(kind, code, r), nil
	}
	return nil, errors.NotFoundf("no %s with code %s", kind, code)
}

func toRecord(kind domain.Kind, code string, r *result) domain.Record {
	title := util.SanitizeText(r.title())
	creator := util.SanitizeText(r.ArtistName)
	if kind == domain.KindBook {
		return &domain.Book{
			ID:       code,
			ISBN:     code,
			Title:    title,
			Author:   creator,
			Genre:    r.genre(),
			Year:     r.year(),
			CoverURL: r.artwork(),
		}
	}
	releaseID := ""
	if r.CollectionID > 0 {
		releaseID = strconv.FormatInt(r.CollectionID, 10)
	}
	return &domain.Disc{
		ReleaseID:  releaseID,
		ID:         code,
		Barcode:    code,
		Title:      title,
		Artist:     creator,
		Genre:      r.genre(),
		Year:       r.year(),
		TrackCount: r.TrackCount,
		CoverURL:   r.artwork(),
	}
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(util.SanitizeText(s)))
}
