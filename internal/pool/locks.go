// internal/pool/locks.go
package pool

import (
	"sync"

	"github.com/gagliardetto/solana-go"
)

// keyedMutex serializes operations per pool. Entries are reference counted and
// dropped when the last holder releases.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[solana.PublicKey]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[solana.PublicKey]*refMutex)}
}

// Lock blocks until key is free and returns its unlock func.
func (k *keyedMutex) Lock(key solana.PublicKey) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
