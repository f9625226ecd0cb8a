// Package main provides a tool to seed a card with a demo shelf.
//
// It writes discs and books with track lists so navigation, bulk sync and
// lyrics scans can be tried without scanning real media.
//
// Usage:
//
//	LIBRARIAN_ROOT=/tmp/card go run ./cmd/seed
//	LIBRARIAN_ROOT=/tmp/card go run ./cmd/seed --discs 60 --books 20 --wipe
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/listenupapp/librarian/internal/device"
	"github.com/listenupapp/librarian/internal/domain"
	"github.com/listenupapp/librarian/internal/id"
	"github.com/listenupapp/librarian/internal/lock"
	"github.com/listenupapp/librarian/internal/logger"
	"github.com/listenupapp/librarian/internal/store"
)

var (
	discCount = flag.Int("discs", 30, "Number of discs to create")
	bookCount = flag.Int("books", 10, "Number of books to create")
	wipe      = flag.Bool("wipe", false, "Remove existing records first")
)

var (
	artists = []string{"Nirvana", "Björk", "Miles Davis", "Daft Punk", "Portishead", "Radiohead", "Nina Simone"}
	authors = []string{"Ursula K. Le Guin", "Frank Herbert", "Octavia E. Butler", "Italo Calvino"}
	genres  = []string{"Rock", "Jazz", "Électro", "Trip-Hop", "Soul"}
	words   = []string{"Blue", "Night", "Garden", "Signal", "River", "Glass", "Echo", "Paper", "Moon"}
)

func main() {
	flag.Parse()

	root := os.Getenv("LIBRARIAN_ROOT")
	if root == "" {
		root = os.ExpandEnv("$HOME/Librarian/card")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		log.Fatalf("Failed to create card root: %v", err)
	}

	fmt.Printf("Seeding card at: %s\n", root)

	dev := device.NewOS(root, lock.New(lock.NameBus, 5*time.Second), 10*time.Second, logger.Discard())
	s := store.New(dev, logger.Discard())
	ctx := context.Background()

	for _, kind := range domain.Kinds {
		if *wipe {
			if err := s.Wipe(ctx, kind); err != nil {
				log.Fatalf("Failed to wipe %s: %v", kind, err)
			}
			continue
		}
		if err := s.LoadIndex(ctx, kind); err != nil {
			log.Fatalf("Failed to load %s index: %v", kind, err)
		}
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	position := len(s.Index(domain.KindDisc)) + len(s.Index(domain.KindBook))

	for i := range *discCount {
		d := &domain.Disc{
			ID:             id.MustGenerate(time.Now()),
			Title:          title(rng),
			Artist:         pick(rng, artists),
			Genre:          pick(rng, genres),
			Year:           1960 + rng.Intn(64),
			ShelfPositions: []int{position},
			Favorite:       i%7 == 0,
			ReleaseID:      fmt.Sprintf("seed-release-%04d", i),
			DetailsLoaded:  true,
		}
		tl := trackList(rng, d)
		d.TrackCount = len(tl.Tracks)
		d.TotalDurationMs = tl.TotalDurationMs()

		if err := s.SaveTrackList(ctx, tl); err != nil {
			log.Fatalf("Failed to save track list: %v", err)
		}
		if err := s.Save(ctx, d, "", true); err != nil {
			log.Fatalf("Failed to save disc: %v", err)
		}
		position++
	}

	for i := range *bookCount {
		pages := 120 + rng.Intn(600)
		b := &domain.Book{
			ID:             fmt.Sprintf("978%010d", rng.Int63n(1e10)),
			Title:          title(rng),
			Author:         pick(rng, authors),
			Genre:          pick(rng, genres),
			Year:           1950 + rng.Intn(74),
			ShelfPositions: []int{position},
			Favorite:       i%5 == 0,
			PageCount:      pages,
			CurrentPage:    rng.Intn(pages),
			DetailsLoaded:  true,
		}
		b.ISBN = b.ID
		if err := s.Save(ctx, b, "", true); err != nil {
			log.Fatalf("Failed to save book: %v", err)
		}
		position++
	}

	for _, kind := range domain.Kinds {
		if err := s.RewriteIndex(ctx, kind); err != nil {
			log.Fatalf("Failed to write %s index: %v", kind, err)
		}
	}

	fmt.Printf("Created %d discs and %d books\n", *discCount, *bookCount)
	fmt.Printf("Shelf now has %d discs and %d books\n", len(s.Index(domain.KindDisc)), len(s.Index(domain.KindBook)))
}

func pick(rng *rand.Rand, from []string) string {
	return from[rng.Intn(len(from))]
}

func title(rng *rand.Rand) string {
	return pick(rng, words) + " " + pick(rng, words)
}

func trackList(rng *rand.Rand, d *domain.Disc) *domain.TrackList {
	tl := &domain.TrackList{
		ReleaseID: d.ReleaseID,
		Title:     d.Title,
		Artist:    d.Artist,
		FetchedAt: time.Now().Unix(),
	}
	for n := range 6 + rng.Intn(8) {
		tl.Tracks = append(tl.Tracks, domain.Track{
			Number:     n + 1,
			Title:      title(rng),
			DurationMs: int64(120+rng.Intn(300)) * 1000,
			Lyrics:     domain.LyricsMetadata{Status: domain.LyricsUnchecked},
		})
	}
	return tl
}
