// internal/pool/store.go
package pool

import (
	"context"
	"sort"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

// Store persists pool records. Implementations return copies; callers never
// share a *Pool with the store.
type Store interface {
	Create(ctx context.Context, p *Pool) error
	Get(ctx context.Context, token solana.PublicKey) (*Pool, error)
	Save(ctx context.Context, p *Pool) error
	List(ctx context.Context) ([]*Pool, error)
}

// MemoryStore is a map-backed Store.
type MemoryStore struct {
	mu    sync.RWMutex
	pools map[solana.PublicKey]*Pool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pools: make(map[solana.PublicKey]*Pool)}
}

func (s *MemoryStore) Create(_ context.Context, p *Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pools[p.Token]; ok {
		return errorsmod.Wrapf(types.ErrDuplicateTokenNotAllowed, "token %s", p.Token)
	}
	s.pools[p.Token] = p.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token solana.PublicKey) (*Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pools[token]
	if !ok {
		return nil, errorsmod.Wrapf(types.ErrPoolNotFound, "token %s", token)
	}
	return p.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, p *Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pools[p.Token]; !ok {
		return errorsmod.Wrapf(types.ErrPoolNotFound, "token %s", p.Token)
	}
	s.pools[p.Token] = p.Clone()
	return nil
}

// List returns pools ordered by creation time.
func (s *MemoryStore) List(_ context.Context) ([]*Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Pool, 0, len(s.pools))
	for _, p := range s.pools {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Token.String() < out[j].Token.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
