package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Load outcomes recorded by ObserveLoad.
const (
	LoadOK        = "ok"
	LoadEmpty     = "empty"
	LoadMalformed = "malformed"
	LoadError     = "error"
)

// CartMetrics records cart mutations and their persistence writes.
// A nil *CartMetrics is a valid no-op recorder.
type CartMetrics struct {
	mutations     *prometheus.CounterVec
	writes        *prometheus.CounterVec
	writeDuration prometheus.Histogram
	loads         *prometheus.CounterVec
	items         prometheus.Gauge
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Committed cart mutations by operation.",
	}, []string{"op"})
	writes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_persist_writes_total",
		Help: "Cart persistence writes by result.",
	}, []string{"result"})
	writeDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cart_persist_write_seconds",
		Help:    "Duration of cart persistence writes in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	loads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_load_total",
		Help: "Initial cart loads by outcome.",
	}, []string{"result"})
	items := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cart_items",
		Help: "Distinct line items currently in the cart.",
	})
	reg.MustRegister(mutations, writes, writeDuration, loads, items)
	return &CartMetrics{
		mutations:     mutations,
		writes:        writes,
		writeDuration: writeDuration,
		loads:         loads,
		items:         items,
	}
}

// IncMutation counts a committed mutation.
func (c *CartMetrics) IncMutation(op string) {
	if c == nil || c.mutations == nil {
		return
	}
	c.mutations.WithLabelValues(normalizeLabel(op)).Inc()
}

// ObserveWrite records one persistence write.
func (c *CartMetrics) ObserveWrite(duration time.Duration, err error) {
	if c == nil || c.writes == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.writes.WithLabelValues(result).Inc()
	c.writeDuration.Observe(duration.Seconds())
}

// ObserveLoad records how the initial load ended.
func (c *CartMetrics) ObserveLoad(result string) {
	if c == nil || c.loads == nil {
		return
	}
	c.loads.WithLabelValues(normalizeLabel(result)).Inc()
}

// SetItems publishes the current number of line items.
func (c *CartMetrics) SetItems(n int) {
	if c == nil || c.items == nil {
		return
	}
	c.items.Set(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
