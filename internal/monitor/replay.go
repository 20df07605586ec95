// internal/monitor/replay.go
package monitor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ReplayStats summarizes a replayed log.
type ReplayStats struct {
	Lines      int
	Trades     int
	Charts     int
	Malformed  int
	MarketCaps map[string]uint64 // последний CHART_DATA по токену
}

// Replay rebuilds candles from TRANSACTION_INFO lines. Lines without a leading
// timestamp are stamped with clock().
func Replay(ctx context.Context, r io.Reader, candles *CandleTracker, clock func() time.Time) (ReplayStats, error) {
	if clock == nil {
		clock = time.Now
	}
	stats := ReplayStats{MarketCaps: make(map[string]uint64)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Lines++

		rec, err := ParseLine(scanner.Text())
		switch {
		case errors.Is(err, ErrNoRecord):
			continue
		case err != nil:
			stats.Malformed++
			continue
		}

		ts := rec.Time
		if ts.IsZero() {
			ts = clock()
		}

		switch {
		case rec.Tx != nil:
			stats.Trades++
			if rec.Tx.TokenAmount == 0 {
				continue
			}
			price := ExecutionPrice(rec.Tx.SolAmount, rec.Tx.TokenAmount).InexactFloat64()
			candles.Update(rec.Tx.Token, ts, price, rec.Tx.SolAmount)
		case rec.Chart != nil:
			stats.Charts++
			stats.MarketCaps[rec.Chart.Token] = rec.Chart.MCap
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read log: %w", err)
	}
	return stats, nil
}
