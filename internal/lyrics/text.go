package lyrics

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/listenupapp/librarian/internal/util"
)

var (
	// lrcTag matches a leading LRC timestamp such as "[01:02.34] ".
	lrcTag     = regexp.MustCompile(`(?m)^(?:\[\d{1,2}:\d{2}(?:[.:]\d{1,3})?\]\s?)+`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// Clean turns provider text into what the display renders: entities
// decoded, synced timestamps stripped, typography folded and blank runs
// collapsed.
func Clean(text string) string {
	text = html.UnescapeString(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = lrcTag.ReplaceAllString(text, "")
	text = util.SanitizeText(text)
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
