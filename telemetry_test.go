package corescan

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestScanMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	db, err := Compile(parsePatterns(t, "1:/ab/"), ModeBlock, WithMeterProvider(mp))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer db.Free()
	s := mustScratch(t, db)
	scanBlock(t, db, s, "abab")
	_ = db.Scan([]byte("ab"), s, func(uint32, uint64, uint64, any) Action { return Stop }, nil)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					totals[m.Name] += dp.Value
				}
			}
		}
	}
	want := map[string]int64{
		"corescan.scans":      2,
		"corescan.bytes":      6,
		"corescan.matches":    3,
		"corescan.terminated": 1,
	}
	for name, v := range want {
		if totals[name] != v {
			t.Errorf("%s = %d, want %d", name, totals[name], v)
		}
	}
}
