package store

import (
	"path"
	"strings"

	"github.com/listenupapp/librarian/internal/domain"
	"github.com/listenupapp/librarian/internal/util"
)

// Card layout.
const (
	DBDir     = "/db"
	TracksDir = "/tracks"
	LyricsDir = "/lyrics"
	CoversDir = "/covers"
	detailExt = ".json"
	discDir   = DBDir + "/cds"
	bookDir   = DBDir + "/books"
	discIndex = DBDir + "/cd_index.jsonl"
	bookIndex = DBDir + "/book_index.jsonl"
)

// DetailDir returns the directory holding detail files of kind.
func DetailDir(kind domain.Kind) string {
	if kind == domain.KindBook {
		return bookDir
	}
	return discDir
}

// DetailPath returns the detail file path for id.
func DetailPath(kind domain.Kind, id string) string {
	return DetailDir(kind) + "/" + util.SanitizeFilename(id) + detailExt
}

// IndexPath returns the compact index path of kind.
func IndexPath(kind domain.Kind) string {
	if kind == domain.KindBook {
		return bookIndex
	}
	return discIndex
}

// TrackListPath returns the track list sidecar path of a release.
func TrackListPath(releaseID string) string {
	return TracksDir + "/" + util.SanitizeFilename(releaseID) + detailExt
}

// LyricsPath returns the lyrics sidecar path of one track.
func LyricsPath(releaseID string, trackNo int) string {
	return LyricsDir + "/" + util.SanitizeFilename(releaseID) + "/" + util.TrackFileName(trackNo)
}

// CoverPath returns the path of a cover image file name.
func CoverPath(name string) string {
	return CoversDir + "/" + name
}

// resolveLyricsPath turns a stored lyrics reference into candidate paths.
// Relative references live under the lyrics directory; older track lists
// stored them relative to the card root, which is tried second.
func resolveLyricsPath(ref string) []string {
	if strings.HasPrefix(ref, "/") {
		return []string{path.Clean(ref)}
	}
	return []string{path.Join(LyricsDir, ref), path.Join("/", ref)}
}
