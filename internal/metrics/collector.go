// internal/metrics/collector.go
package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rovshanmuradov/curve-launchpad/internal/events"
)

// MetricType представляет тип метрики
type MetricType string

const (
	TradeCounterType      MetricType = "trade_counter"
	TradeVolumeType       MetricType = "trade_volume"
	FeeCounterType        MetricType = "fee_counter"
	ReserveBaseType       MetricType = "reserve_base"
	ReserveTokenType      MetricType = "reserve_token"
	MarketCapType         MetricType = "market_cap"
	MigrationStageType    MetricType = "migration_stage"
	HarvestedFeesType     MetricType = "harvested_fees"
	OperationDurationType MetricType = "operation_duration"
	BusPendingType        MetricType = "bus_pending"
	BusDroppedType        MetricType = "bus_dropped"
)

const namespace = "curve_launchpad"

// Collector управляет набором метрик лаунчпада
type Collector struct {
	metrics  sync.Map
	registry *prometheus.Registry
	subs     []events.Subscription
}

// NewCollector создает коллектор со своим собственным реестром
func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}
	c.initializeMetrics()
	return c
}

func (c *Collector) initializeMetrics() {
	metricsMap := map[MetricType]prometheus.Collector{
		TradeCounterType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Committed bonding-curve trades",
		}, []string{"side"}),
		TradeVolumeType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trade_volume_lamports_total",
			Help:      "Base currency moved by trades, in lamports",
		}, []string{"side"}),
		FeeCounterType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fees_lamports_total",
			Help:      "Trade fees collected, in lamports",
		}, []string{"recipient"}),
		ReserveBaseType: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_reserve_base_lamports",
			Help:      "Real base reserve of a pool",
		}, []string{"token"}),
		ReserveTokenType: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_reserve_token_units",
			Help:      "Token reserve of a pool",
		}, []string{"token"}),
		MarketCapType: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_market_cap_lamports",
			Help:      "Last CHART_DATA market cap of a pool",
		}, []string{"token"}),
		MigrationStageType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migration_stages_total",
			Help:      "Migration stages reached",
		}, []string{"stage"}),
		HarvestedFeesType: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "harvested_fees_lamports_total",
			Help:      "Fees harvested from locked venue liquidity",
		}),
		OperationDurationType: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of engine operations",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}, []string{"op", "status"}),
		BusPendingType: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_bus_pending",
			Help:      "Events queued on the bus",
		}),
		BusDroppedType: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_bus_dropped",
			Help:      "Events dropped because the bus buffer was full",
		}),
	}

	for metricType, metric := range metricsMap {
		c.metrics.Store(metricType, metric)
		c.registry.MustRegister(metric)
	}
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns the /metrics HTTP handler.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Reset сбрасывает все метрики (полезно для тестирования)
func (c *Collector) Reset() {
	c.metrics.Range(func(_, value interface{}) bool {
		switch m := value.(type) {
		case *prometheus.CounterVec:
			m.Reset()
		case *prometheus.GaugeVec:
			m.Reset()
		case *prometheus.HistogramVec:
			m.Reset()
		}
		return true
	})
}

func (c *Collector) counterVec(t MetricType) *prometheus.CounterVec {
	m, _ := c.metrics.Load(t)
	v, _ := m.(*prometheus.CounterVec)
	return v
}

func (c *Collector) gaugeVec(t MetricType) *prometheus.GaugeVec {
	m, _ := c.metrics.Load(t)
	v, _ := m.(*prometheus.GaugeVec)
	return v
}

func (c *Collector) gauge(t MetricType) prometheus.Gauge {
	m, _ := c.metrics.Load(t)
	v, _ := m.(prometheus.Gauge)
	return v
}

// Measure records the duration of f under op, with status success/failed.
func (c *Collector) Measure(op string, f func() error) error {
	start := time.Now()
	err := f()
	status := "success"
	if err != nil {
		status = "failed"
	}
	if m, ok := c.metrics.Load(OperationDurationType); ok {
		m.(*prometheus.HistogramVec).WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	}
	return err
}

// UpdateBusStats copies bus counters into gauges.
func (c *Collector) UpdateBusStats(s events.Stats) {
	c.gauge(BusPendingType).Set(float64(s.Pending))
	c.gauge(BusDroppedType).Set(float64(s.Dropped))
}

// Register subscribes the collector to every event on the bus.
func (c *Collector) Register(bus *events.Bus) {
	c.subs = append(c.subs, bus.Subscribe(events.AllEvents, events.HandlerFunc(c.handle)))
}

// Close unsubscribes from the bus.
func (c *Collector) Close() {
	for _, s := range c.subs {
		s.Unsubscribe()
	}
	c.subs = nil
}

func (c *Collector) handle(_ context.Context, event events.Event) error {
	switch e := event.(type) {
	case *events.TradeExecutedEvent:
		side := string(e.Side)
		c.counterVec(TradeCounterType).WithLabelValues(side).Inc()
		c.counterVec(TradeVolumeType).WithLabelValues(side).Add(float64(e.BaseAmount))
		c.counterVec(FeeCounterType).WithLabelValues("platform").Add(float64(e.PlatformFee))
		c.counterVec(FeeCounterType).WithLabelValues("creator").Add(float64(e.CreatorFee))
		c.setReserves(e.Token.String(), e.ReserveBase, e.ReserveToken)
	case *events.PoolFundedEvent:
		c.setReserves(e.Token.String(), e.ReserveBase, e.ReserveToken)
	case *events.MarketCapUpdatedEvent:
		c.gaugeVec(MarketCapType).WithLabelValues(e.Token.String()).Set(float64(e.MarketCap))
	case *events.MigrationStagedEvent:
		c.counterVec(MigrationStageType).WithLabelValues(e.Stage).Inc()
	case *events.PoolMigratedEvent:
		c.setReserves(e.Token.String(), 0, 0)
	case *events.FeesHarvestedEvent:
		if m, ok := c.metrics.Load(HarvestedFeesType); ok {
			m.(prometheus.Counter).Add(float64(e.Amount))
		}
	}
	return nil
}

func (c *Collector) setReserves(token string, base, tokens uint64) {
	c.gaugeVec(ReserveBaseType).WithLabelValues(token).Set(float64(base))
	c.gaugeVec(ReserveTokenType).WithLabelValues(token).Set(float64(tokens))
}
