// Package catalog is the read-only boundary to the external card catalog.
// Lookups decorate snapshots with display metadata; the state machines
// never depend on the catalog being reachable.
package catalog

import (
	"context"
	"sync"
)

// Card holds display metadata for one catalog entry.
type Card struct {
	CatalogID  string `json:"catalog_id"`
	Name       string `json:"name"`
	ManaCost   string `json:"mana_cost,omitempty"`
	TypeLine   string `json:"type_line,omitempty"`
	OracleText string `json:"oracle_text,omitempty"`
	Power      string `json:"power,omitempty"`
	Toughness  string `json:"toughness,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
}

// Resolver looks up card metadata by catalog identifier.
type Resolver interface {
	Lookup(ctx context.Context, catalogID string) (Card, bool)
}

// StaticResolver serves lookups from an in-memory map.
type StaticResolver struct {
	mu    sync.RWMutex
	cards map[string]Card
}

// NewStaticResolver creates an empty static resolver.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{cards: make(map[string]Card)}
}

// Put stores or replaces a card entry.
func (r *StaticResolver) Put(card Card) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards[card.CatalogID] = card
}

// Lookup implements Resolver.
func (r *StaticResolver) Lookup(_ context.Context, catalogID string) (Card, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	card, ok := r.cards[catalogID]
	return card, ok
}
