// Package main inspects the record store on a card: it loads both indexes,
// reads every detail file and reports entries whose index fields disagree
// with their detail file. It never writes; temp files of interrupted writes
// are reported and left for the librarian to recover.
//
// Usage:
//
//	LIBRARIAN_ROOT=/media/card go run ./cmd/dbinspect
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"time"

	"github.com/listenupapp/librarian/internal/device"
	"github.com/listenupapp/librarian/internal/domain"
	"github.com/listenupapp/librarian/internal/lock"
	"github.com/listenupapp/librarian/internal/logger"
	"github.com/listenupapp/librarian/internal/store"
)

func main() {
	root := os.Getenv("LIBRARIAN_ROOT")
	if root == "" {
		root = os.ExpandEnv("$HOME/Librarian/card")
	}

	dev := device.NewOS(root, lock.New(lock.NameBus, 5*time.Second), 10*time.Second, logger.Discard())
	s := store.NewReadOnly(dev, logger.Discard())
	ctx := context.Background()

	fmt.Println("=== Card Inspection ===")
	fmt.Printf("Root: %s\n\n", root)

	problems := 0
	pending, err := s.PendingWrites(ctx)
	if err != nil {
		log.Fatalf("Failed to list temp files: %v", err)
	}
	for _, p := range pending {
		fmt.Printf("  interrupted write: %s\n", p)
	}
	problems += len(pending)

	for _, kind := range domain.Kinds {
		if err := s.LoadIndex(ctx, kind); err != nil {
			log.Fatalf("Failed to load %s index: %v", kind, err)
		}
		entries := s.Index(kind)

		missing := 0
		mismatched := 0
		withCover := 0
		withoutID := 0
		for i, e := range entries {
			if e.CoverFile != "" {
				withCover++
			}
			if e.ID == "" {
				// Assigned on first hydrate; there is no detail file yet.
				withoutID++
				fmt.Printf("  [%s] #%d %q: no identifier\n", kind, i, e.Title)
				continue
			}
			rec, err := s.LoadDetail(ctx, kind, e.ID)
			if err != nil {
				missing++
				fmt.Printf("  [%s] %s: no detail file (%v)\n", kind, e.ID, err)
				continue
			}
			if diff := compare(e, rec.Summary()); diff != "" {
				mismatched++
				fmt.Printf("  [%s] %s: %s differs\n", kind, e.ID, diff)
			}
		}
		problems += missing + mismatched

		fmt.Printf("%s\n", kind)
		fmt.Printf("  Entries:          %d\n", len(entries))
		fmt.Printf("  With cover file:  %d\n", withCover)
		fmt.Printf("  Without id:       %d\n", withoutID)
		fmt.Printf("  Missing details:  %d\n", missing)
		fmt.Printf("  Mismatched:       %d\n\n", mismatched)
	}

	if problems > 0 {
		fmt.Printf("Found %d problems\n", problems)
		os.Exit(1)
	}
	fmt.Println("Index and detail files agree")
}

// compare returns the name of the first summary field that differs.
func compare(a, b domain.IndexEntry) string {
	switch {
	case a.Title != b.Title:
		return "title"
	case a.Creator != b.Creator:
		return "creator"
	case a.CoverFile != b.CoverFile:
		return "cover"
	case a.Year != b.Year:
		return "year"
	case a.Genre != b.Genre:
		return "genre"
	case a.Favorite != b.Favorite:
		return "favorite"
	case !slices.Equal(a.ShelfPositions, b.ShelfPositions):
		return "shelf positions"
	default:
		return ""
	}
}
