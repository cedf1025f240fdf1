package otel

import (
	"context"
	"sync"
	"testing"

	portalAuth "github.com/MrEthical07/portalAuth"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot portalAuth.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() portalAuth.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := portalAuth.MetricsSnapshot{
		Counters:   make(map[portalAuth.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[portalAuth.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("portalauth-test")

	src := &fakeSource{
		snapshot: portalAuth.MetricsSnapshot{
			Counters: map[portalAuth.MetricID]uint64{
				portalAuth.MetricLoginSuccess: 3,
			},
			Histograms: map[portalAuth.MetricID][]uint64{
				portalAuth.MetricGatewayLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(rm.ScopeMetrics) == 0 {
		t.Fatal("expected collected metrics, got none")
	}

	values := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				values[m.Name] = data.DataPoints[0].Value
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					name := m.Name
					if le, ok := dp.Attributes.Value("le"); ok {
						name += "{le=" + le.AsString() + "}"
					}
					values[name] = dp.Value
				}
			}
		}
	}
	if values["portal_auth_login_success_total"] != 3 {
		t.Fatalf("expected 3 logins, got %d", values["portal_auth_login_success_total"])
	}
	if got := values["portal_auth_gateway_latency_seconds_bucket{le=0.005}"]; got != 1 {
		t.Fatalf("expected 1 sample under 5ms, got %d", got)
	}
	if got := values["portal_auth_gateway_latency_seconds_bucket{le=+Inf}"]; got != 8 {
		t.Fatalf("expected 8 cumulative samples, got %d", got)
	}
	if got := values["portal_auth_gateway_latency_seconds_count"]; got != 8 {
		t.Fatalf("expected sample count 8, got %d", got)
	}
	if values["portal_auth_audit_dropped_total"] != 1 {
		t.Fatalf("expected 1 dropped event, got %d", values["portal_auth_audit_dropped_total"])
	}
	if _, ok := values["portal_auth_logout_total"]; ok {
		t.Fatal("expected counters absent from the snapshot to be skipped")
	}
}

func TestExporterRejectsNilSource(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("portalauth-test")

	if _, err := NewOTelExporterFromSource(meter, nil); err == nil {
		t.Fatal("expected error for nil source")
	}
	if _, err := NewOTelExporter(meter, nil); err == nil {
		t.Fatal("expected error for nil manager")
	}
	if _, err := NewOTelExporterFromSource(nil, &fakeSource{}); err == nil {
		t.Fatal("expected error for nil meter")
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("portalauth-test")

	src := &fakeSource{
		snapshot: portalAuth.MetricsSnapshot{
			Counters: map[portalAuth.MetricID]uint64{
				portalAuth.MetricLoginSuccess: 1,
			},
			Histograms: map[portalAuth.MetricID][]uint64{
				portalAuth.MetricGatewayLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[portalAuth.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
