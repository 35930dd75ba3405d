// Package identity maps opaque actor tokens to stable participant ids.
// Token issuance lives in the external auth service; this package only
// defines the lookup boundary the server depends on.
package identity

import (
	"context"
	"sync"

	"github.com/spindown/spindown-server-go/internal/errs"
)

// Participant is the stable identity behind an actor token.
type Participant struct {
	ID   string
	Name string
}

// Resolver resolves an opaque token to a participant.
type Resolver interface {
	Resolve(ctx context.Context, token string) (Participant, error)
}

// StaticResolver is a map-backed resolver for tests and local deployments.
type StaticResolver struct {
	mu     sync.RWMutex
	tokens map[string]Participant
}

// NewStaticResolver creates an empty static resolver.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{tokens: make(map[string]Participant)}
}

// Register associates a token with a participant, replacing any prior entry.
func (r *StaticResolver) Register(token string, p Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = p
}

// Resolve implements Resolver.
func (r *StaticResolver) Resolve(_ context.Context, token string) (Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.tokens[token]
	if !ok {
		return Participant{}, errs.Permission("unknown actor token")
	}
	return p, nil
}
