// internal/monitor/recorder.go
package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/events"
	"github.com/rovshanmuradov/curve-launchpad/internal/logger"
)

// Recorder is the bus subscriber that feeds trade history, candles and the
// activity log with TRANSACTION_INFO / CHART_DATA lines.
type Recorder struct {
	history  *TradeHistory
	candles  *CandleTracker
	activity *logger.ActivityWriter
	logger   *zap.Logger
	subs     []events.Subscription
}

// NewRecorder wires the sinks; history and activity may be nil.
func NewRecorder(history *TradeHistory, candles *CandleTracker, activity *logger.ActivityWriter, log *zap.Logger) *Recorder {
	return &Recorder{
		history:  history,
		candles:  candles,
		activity: activity,
		logger:   log.Named("recorder"),
	}
}

// Register subscribes the recorder to trade and market-cap events.
func (r *Recorder) Register(bus *events.Bus) {
	r.subs = append(r.subs,
		bus.Subscribe(events.TradeExecuted, events.Typed(r.onTrade)),
		bus.Subscribe(events.MarketCapUpdated, events.Typed(r.onMarketCap)),
	)
}

// Close unsubscribes from the bus.
func (r *Recorder) Close() {
	for _, s := range r.subs {
		s.Unsubscribe()
	}
	r.subs = nil
}

func (r *Recorder) onTrade(_ context.Context, e *events.TradeExecutedEvent) error {
	trade := TradeFromEvent(e)
	if r.history != nil {
		if err := r.history.LogTrade(trade); err != nil {
			return err
		}
	}

	if trade.TokenAmount > 0 {
		if closed, ok := r.candles.Update(trade.Token, trade.Timestamp, trade.Price.InexactFloat64(), trade.BaseAmount); ok {
			r.logger.Debug("Candle closed",
				zap.String("token", closed.Token),
				zap.Int64("t", closed.Time),
				zap.Float64("close", closed.Close))
		}
	}

	return r.emit(e.Timestamp(), FormatTransactionInfo(e))
}

func (r *Recorder) onMarketCap(_ context.Context, e *events.MarketCapUpdatedEvent) error {
	return r.emit(e.Timestamp(), FormatChartData(e))
}

func (r *Recorder) emit(ts time.Time, line string) error {
	r.logger.Info(line)
	if r.activity == nil {
		return nil
	}
	return r.activity.WriteLine(ts.UTC().Format(time.RFC3339Nano) + " " + line)
}
