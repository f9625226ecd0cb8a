package covers

import (
	"fmt"
	"image"

	"github.com/bbrks/go-blurhash"
	"golang.org/x/image/draw"
)

// blurHashSize is the target size for BlurHash computation.
// BlurHash doesn't need high resolution - a small thumbnail produces nearly identical results.
const blurHashSize = 32

// Placeholder computes the BlurHash of img with 4x3 components, about 20-30
// characters. The display paints it while the real cover decodes.
func Placeholder(img image.Image) (string, error) {
	hash, err := blurhash.Encode(4, 3, thumbnail(img))
	if err != nil {
		return "", fmt.Errorf("encode blurhash: %w", err)
	}
	return hash, nil
}

// thumbnail shrinks img to at most blurHashSize on its longer edge.
func thumbnail(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= blurHashSize && b.Dy() <= blurHashSize {
		return img
	}
	w, h := blurHashSize, blurHashSize
	if b.Dx() > b.Dy() {
		h = max(b.Dy()*blurHashSize/b.Dx(), 1)
	} else {
		w = max(b.Dx()*blurHashSize/b.Dy(), 1)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
