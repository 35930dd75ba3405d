// Package deck is the boundary to the externally-owned deck store. Rooms
// hold deck ids as references; contents are read once at match start to
// mint card instances.
package deck

import (
	"context"
	"sync"

	"github.com/spindown/spindown-server-go/internal/errs"
)

// Entry is one card line in a deck list.
type Entry struct {
	CatalogID string
	Count     int
}

// Deck is the minimal view of an external deck record.
type Deck struct {
	ID           string
	OwnerID      string
	Name         string
	CommanderIDs []string
	Cards        []Entry
}

// Resolver validates and fetches deck records.
type Resolver interface {
	// Get returns the deck, or a NotFound error when the deck does not
	// exist or does not belong to ownerID.
	Get(ctx context.Context, deckID, ownerID string) (Deck, error)
}

// StaticResolver is a map-backed resolver for tests and local deployments.
type StaticResolver struct {
	mu    sync.RWMutex
	decks map[string]Deck
}

// NewStaticResolver creates an empty static resolver.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{decks: make(map[string]Deck)}
}

// Put stores or replaces a deck record.
func (r *StaticResolver) Put(d Deck) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decks[d.ID] = d
}

// Get implements Resolver.
func (r *StaticResolver) Get(_ context.Context, deckID, ownerID string) (Deck, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.decks[deckID]
	if !ok || d.OwnerID != ownerID {
		return Deck{}, errs.NotFound("deck not found or does not belong to you")
	}
	return d, nil
}

// Size returns the number of card copies in the main deck.
func (d Deck) Size() int {
	total := 0
	for _, e := range d.Cards {
		total += e.Count
	}
	return total
}
