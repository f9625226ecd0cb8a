// Package id generates identifiers for records and jobs.
package id

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// alphabet avoids characters that SanitizeFilename would rewrite, so a
// generated identifier is also its own file name.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const randomLength = 8

// Generate creates an identifier for a record that has neither a barcode nor
// an ISBN. Format: <unix-seconds>-<nanoid>, e.g. "1700000000-V1StGXR8".
// The time prefix keeps generated ids roughly ordered by creation.
func Generate(now time.Time) (string, error) {
	suffix, err := gonanoid.Generate(alphabet, randomLength)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return strconv.FormatInt(now.Unix(), 10) + "-" + suffix, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(now time.Time) string {
	id, err := Generate(now)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// Job returns a new background job identifier.
func Job() string {
	return uuid.NewString()
}
