// internal/metrics/collector.go
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rovshanmuradov/memesniper/internal/events"
)

const namespace = "memesniper"

// Collector owns the pipeline metrics and the registry they live in. A
// private registry keeps tests independent of each other.
type Collector struct {
	registry *prometheus.Registry

	postsProcessed  prometheus.Counter
	signals         *prometheus.CounterVec
	tradesPlaced    *prometheus.CounterVec
	tradeRejections *prometheus.CounterVec
	takeProfits     prometheus.Counter
	openOrders      prometheus.Gauge
	whaleEvents     *prometheus.CounterVec
	published       *prometheus.CounterVec
	dropped         *prometheus.CounterVec
	wsClients       prometheus.Gauge
}

// NewCollector creates a collector with every metric registered.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		postsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_processed_total",
			Help:      "Posts run through signal extraction",
		}),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_total",
			Help:      "Extracted signals by whether they were actionable",
		}, []string{"actionable"}),
		tradesPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_placed_total",
			Help:      "Simulated orders placed by origin",
		}, []string{"source"}),
		tradeRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trade_rejections_total",
			Help:      "Orders refused before placement",
		}, []string{"reason"}),
		takeProfits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "take_profits_total",
			Help:      "Orders that reached their take-profit target",
		}),
		openOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_orders",
			Help:      "Orders still active below their target",
		}),
		whaleEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "whale_events_total",
			Help:      "Synthetic whale events by side",
		}, []string{"type"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_published_total",
			Help:      "Messages published per topic",
		}, []string{"topic"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_dropped_total",
			Help:      "Messages dropped on full subscriber queues",
		}, []string{"topic", "subscriber"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected websocket clients",
		}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.postsProcessed,
		c.signals,
		c.tradesPlaced,
		c.tradeRejections,
		c.takeProfits,
		c.openOrders,
		c.whaleEvents,
		c.published,
		c.dropped,
		c.wsClients,
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) RecordSignal(actionable bool) {
	c.postsProcessed.Inc()
	label := "false"
	if actionable {
		label = "true"
	}
	c.signals.WithLabelValues(label).Inc()
}

func (c *Collector) RecordTradePlaced(source string) {
	c.tradesPlaced.WithLabelValues(source).Inc()
}

func (c *Collector) RecordTradeRejected(reason string) {
	c.tradeRejections.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordTakeProfit() {
	c.takeProfits.Inc()
}

func (c *Collector) SetOpenOrders(n int) {
	c.openOrders.Set(float64(n))
}

func (c *Collector) RecordWhaleEvent(side string) {
	c.whaleEvents.WithLabelValues(side).Inc()
}

func (c *Collector) WebsocketConnected()    { c.wsClients.Inc() }
func (c *Collector) WebsocketDisconnected() { c.wsClients.Dec() }

// Published implements events.Observer.
func (c *Collector) Published(topic events.Topic) {
	c.published.WithLabelValues(string(topic)).Inc()
}

// Dropped implements events.Observer. Subscriber names carry a per-client
// suffix after ':' (e.g. "ws:10.0.0.1"); only the prefix becomes a label.
func (c *Collector) Dropped(topic events.Topic, subscriber string) {
	c.dropped.WithLabelValues(string(topic), subscriberKind(subscriber)).Inc()
}

func subscriberKind(name string) string {
	kind, _, _ := strings.Cut(name, ":")
	return kind
}
