package cart

import (
	"context"
	"testing"

	"github.com/angelmondragon/marketplace-cart/pkg/kv"
	"github.com/angelmondragon/marketplace-cart/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRecordsMetrics(t *testing.T) {
	mem := kv.NewMemory()
	require.NoError(t, mem.Set(context.Background(), StorageKey, "garbage"))
	reg := prometheus.NewRegistry()
	s := openStore(t, mem, func(p *Params) { p.Metrics = metrics.NewCartMetrics(reg) })
	ctx := context.Background()

	_, err := s.AddToCart(ctx, shirt)
	require.NoError(t, err)
	_, err = s.Increment(ctx, "missing")
	require.NoError(t, err)
	require.NoError(t, s.Flush(ctx))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.Equal(t, 1.0, counterValue(mfs, "cart_mutations_total", "op", "add"))
	assert.Equal(t, 0.0, counterValue(mfs, "cart_mutations_total", "op", "increment"))
	assert.Equal(t, 1.0, counterValue(mfs, "cart_persist_writes_total", "result", "ok"))
	assert.Equal(t, 1.0, counterValue(mfs, "cart_load_total", "result", metrics.LoadMalformed))
}

func counterValue(mfs []*dto.MetricFamily, name, label, value string) float64 {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
