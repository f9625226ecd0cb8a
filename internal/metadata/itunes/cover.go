package itunes

import (
	"regexp"
)

// CoverSize is the artwork size we request from iTunes. It matches the
// cover area of the display; iTunes scales down from its master.
const CoverSize = "600x600bb.jpg"

// sizePattern matches iTunes artwork size patterns like "100x100bb.jpg"
var sizePattern = regexp.MustCompile(`/\d+x\d+bb\.(?:jpg|png|webp)$`)

// CoverURL transforms an iTunes artwork URL to request CoverSize.
func CoverURL(url string) string {
	if url == "" {
		return ""
	}
	return sizePattern.ReplaceAllString(url, "/"+CoverSize)
}
