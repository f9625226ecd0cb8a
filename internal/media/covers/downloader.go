// Package covers provides cover image downloading and processing.
//
// The display decodes baseline JPEG only, so every download is decoded,
// fitted to the cover area and re-encoded before it reaches the card.
package covers

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/listenupapp/librarian/internal/errors"
)

// Defaults for Options fields left zero.
const (
	// DefaultMaxEdge is the cover area of the display in pixels.
	DefaultMaxEdge = 320
	// DefaultMaxBytes limits download size to prevent memory exhaustion.
	DefaultMaxBytes = 10 * 1024 * 1024
	// DefaultQuality is the JPEG quality of stored covers.
	DefaultQuality = 85
	// downloadTimeout is the maximum time for a cover download.
	downloadTimeout = 30 * time.Second
)

// Writer stores a file atomically; the card device implements it.
type Writer interface {
	WriteAtomic(ctx context.Context, path string, write func(w io.Writer) error) error
}

// Options configures a Downloader.
type Options struct {
	MaxEdge   int
	MaxBytes  int64
	Quality   int
	UserAgent string
}

// Result describes a stored cover.
type Result struct {
	Path   string
	Format string // format of the downloaded image
	Width  int    // stored width
	Height int    // stored height
	Size   int64  // stored bytes
	// Hash is a BlurHash placeholder of the cover.
	Hash string
}

// Downloader handles cover image downloads.
type Downloader struct {
	httpClient *http.Client
	dev        Writer
	opts       Options
	logger     *slog.Logger
}

// NewDownloader creates a new cover downloader writing through dev.
func NewDownloader(dev Writer, opts Options, logger *slog.Logger) *Downloader {
	if opts.MaxEdge <= 0 {
		opts.MaxEdge = DefaultMaxEdge
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultQuality
	}
	return &Downloader{
		httpClient: &http.Client{Timeout: downloadTimeout},
		dev:        dev,
		opts:       opts,
		logger:     logger,
	}
}

// Download fetches the image at url and stores it at dest on the card. No
// lock is held while the image is fetched; the bus lock is taken only for
// the final write.
func (d *Downloader) Download(ctx context.Context, url, dest string) (*Result, error) {
	if url == "" || dest == "" {
		return nil, errors.Validation("cover download needs a URL and a destination")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, errors.Validationf("unsupported cover URL %q", url)
	}

	data, err := d.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Decodef(err, "decode cover from %s", url)
	}
	img = fit(img, d.opts.MaxEdge)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: d.opts.Quality}); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "encode cover")
	}

	hash, err := Placeholder(img)
	if err != nil {
		d.logger.Warn("failed to compute cover placeholder", "url", url, "error", err)
	}

	if err := d.dev.WriteAtomic(ctx, dest, func(w io.Writer) error {
		_, err := w.Write(buf.Bytes())
		return err
	}); err != nil {
		return nil, err
	}

	b := img.Bounds()
	res := &Result{
		Path:   dest,
		Format: format,
		Width:  b.Dx(),
		Height: b.Dy(),
		Size:   int64(buf.Len()),
		Hash:   hash,
	}
	d.logger.Info("downloaded cover",
		"dest", dest,
		"format", format,
		"size", res.Size,
		"width", res.Width,
		"height", res.Height,
	)
	return res, nil
}

// statusError maps a failed response to a coded error. Client errors are
// final, except timeouts and throttling which are worth a retry.
func statusError(status int, url string) error {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return errors.Network(fmt.Errorf("status %d", status), "download cover")
	case status >= 400 && status < 500:
		return errors.NotFoundf("cover %s: status %d", url, status)
	default:
		return errors.Network(fmt.Errorf("status %d", status), "download cover")
	}
}

func (d *Downloader) fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Validationf("bad cover URL %q", url)
	}
	if d.opts.UserAgent != "" {
		req.Header.Set("User-Agent", d.opts.UserAgent)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, errors.Network(err, "download cover")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, url)
	}

	// Read one byte past the limit to tell a full read from a truncated one.
	data, err := io.ReadAll(io.LimitReader(resp.Body, d.opts.MaxBytes+1))
	if err != nil {
		return nil, errors.Network(err, "read cover")
	}
	if int64(len(data)) > d.opts.MaxBytes {
		return nil, errors.Validationf("cover larger than %d bytes", d.opts.MaxBytes)
	}
	if len(data) == 0 {
		return nil, errors.Decodef(io.ErrUnexpectedEOF, "empty cover from %s", url)
	}
	return data, nil
}

// fit scales img down so its longer edge is at most maxEdge, keeping the
// aspect ratio. Smaller images are returned unchanged.
func fit(img image.Image, maxEdge int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxEdge && h <= maxEdge {
		return img
	}
	if w >= h {
		h = max(h*maxEdge/w, 1)
		w = maxEdge
	} else {
		w = max(w*maxEdge/h, 1)
		h = maxEdge
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
