package ui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// Throttler coalesces pool updates per token so a burst of trades turns into
// at most one UI message per token per interval.
type Throttler struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[string]time.Time
	pending  map[string]PoolUpdateMsg
	outputCh chan<- tea.Msg
	logger   *zap.Logger

	sent    uint64
	dropped uint64
}

// NewThrottler creates a throttler writing to outputCh.
func NewThrottler(interval time.Duration, outputCh chan<- tea.Msg, logger *zap.Logger) *Throttler {
	return &Throttler{
		interval: interval,
		last:     make(map[string]time.Time),
		pending:  make(map[string]PoolUpdateMsg),
		outputCh: outputCh,
		logger:   logger,
	}
}

// Send delivers u now if the token's interval has elapsed, otherwise keeps it pending.
func (t *Throttler) Send(u PoolUpdateMsg) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.pending[u.Token]; ok {
		u = prev.merge(u)
	}

	now := time.Now()
	if now.Sub(t.last[u.Token]) < t.interval {
		t.pending[u.Token] = u
		t.dropped++
		return
	}
	t.emit(now, u)
}

// emit must be called with mu held.
func (t *Throttler) emit(now time.Time, u PoolUpdateMsg) {
	select {
	case t.outputCh <- u:
		t.last[u.Token] = now
		t.sent++
		delete(t.pending, u.Token)
	default:
		t.pending[u.Token] = u
		t.dropped++
		t.logger.Debug("UI channel full, pool update kept pending", zap.String("token", u.Token))
	}
}

// FlushPending sends pending updates whose interval has elapsed.
func (t *Throttler) FlushPending() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for token, u := range t.pending {
		if now.Sub(t.last[token]) >= t.interval {
			t.emit(now, u)
		}
	}
}

// GetStats returns statistics about the throttler's operation.
func (t *Throttler) GetStats() (sent, dropped uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sent, t.dropped
}

// HasPending reports whether any token has an unsent update.
func (t *Throttler) HasPending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending) > 0
}
