// Package domain contains the catalog entities of the shelf librarian: discs,
// books, their compact index summaries, track lists and background jobs.
package domain

import "fmt"

// Kind tags which of the two catalog variants a record belongs to.
type Kind uint8

// Catalog kinds.
const (
	KindDisc Kind = iota
	KindBook
)

// Kinds lists every catalog kind in registry order.
var Kinds = [...]Kind{KindDisc, KindBook}

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindDisc:
		return "disc"
	case KindBook:
		return "book"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Other returns the opposite kind.
func (k Kind) Other() Kind {
	if k == KindDisc {
		return KindBook
	}
	return KindDisc
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindDisc || k == KindBook
}

// ParseKind parses "disc"/"cd" or "book".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "disc", "cd":
		return KindDisc, nil
	case "book":
		return KindBook, nil
	default:
		return 0, fmt.Errorf("unknown kind %q", s)
	}
}
