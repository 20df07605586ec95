// internal/monitor/candles.go
package monitor

import (
	"sort"
	"sync"
	"time"
)

// CandleInterval is the width of one OHLC bucket.
const CandleInterval = 30 * time.Second

// Candle is one OHLC bucket of trade prices for a token.
type Candle struct {
	Token  string
	Time   int64 // начало интервала, unix seconds
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume uint64 // lamports
	Trades int
}

// BucketStart returns floor(ts/30)*30 in unix seconds.
func BucketStart(ts time.Time) int64 {
	width := int64(CandleInterval / time.Second)
	sec := ts.Unix()
	bucket := sec / width * width
	if sec < 0 && sec%width != 0 {
		bucket -= width
	}
	return bucket
}

// CandleTracker keeps the open candle per token and the list of closed ones.
// Обновление с более ранним интервалом, чем текущая свеча, вливается в текущую свечу.
type CandleTracker struct {
	mu        sync.RWMutex
	current   map[string]*Candle
	completed map[string][]Candle
	maxClosed int
	onClose   func(Candle)
}

// NewCandleTracker keeps at most maxClosed finished candles per token (0 = unlimited).
func NewCandleTracker(maxClosed int) *CandleTracker {
	return &CandleTracker{
		current:   make(map[string]*Candle),
		completed: make(map[string][]Candle),
		maxClosed: maxClosed,
	}
}

// OnClose registers a callback fired (outside the lock) for every finished candle.
func (ct *CandleTracker) OnClose(fn func(Candle)) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.onClose = fn
}

// Update applies a price point and returns the candle it closed, if any.
func (ct *CandleTracker) Update(token string, ts time.Time, price float64, volume uint64) (Candle, bool) {
	bucket := BucketStart(ts)

	ct.mu.Lock()
	cur, ok := ct.current[token]
	var (
		closed    Candle
		hasClosed bool
	)
	switch {
	case !ok:
		ct.current[token] = newCandle(token, bucket, price, volume)
	case bucket > cur.Time:
		closed, hasClosed = *cur, true
		ct.appendClosed(closed)
		ct.current[token] = newCandle(token, bucket, price, volume)
	default:
		cur.High = max(cur.High, price)
		cur.Low = min(cur.Low, price)
		cur.Close = price
		cur.Volume += volume
		cur.Trades++
	}
	onClose := ct.onClose
	ct.mu.Unlock()

	if hasClosed && onClose != nil {
		onClose(closed)
	}
	return closed, hasClosed
}

func newCandle(token string, bucket int64, price float64, volume uint64) *Candle {
	return &Candle{
		Token:  token,
		Time:   bucket,
		Open:   price,
		High:   price,
		Low:    price,
		Close:  price,
		Volume: volume,
		Trades: 1,
	}
}

func (ct *CandleTracker) appendClosed(c Candle) {
	list := append(ct.completed[c.Token], c)
	if ct.maxClosed > 0 && len(list) > ct.maxClosed {
		list = list[len(list)-ct.maxClosed:]
	}
	ct.completed[c.Token] = list
}

// Current returns the open candle of a token.
func (ct *CandleTracker) Current(token string) (Candle, bool) {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	c, ok := ct.current[token]
	if !ok {
		return Candle{}, false
	}
	return *c, true
}

// History returns closed candles followed by the open one.
func (ct *CandleTracker) History(token string) []Candle {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	out := append([]Candle(nil), ct.completed[token]...)
	if c, ok := ct.current[token]; ok {
		out = append(out, *c)
	}
	return out
}

// Tokens lists tracked tokens in lexical order.
func (ct *CandleTracker) Tokens() []string {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	tokens := make([]string, 0, len(ct.current))
	for t := range ct.current {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return tokens
}
