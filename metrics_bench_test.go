package portalAuth

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/portalAuth/gateway"
	"github.com/MrEthical07/portalAuth/permission"
)

func BenchmarkMetricsInc(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricLoginSuccess)
	}
}

func BenchmarkMetricsIncDisabled(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricLoginSuccess)
	}
}

var mixedHotMetricIDs = [...]MetricID{
	MetricAccessAdmitted,
	MetricAccessRedirected,
	MetricLoginSuccess,
	MetricRestoreSuccess,
}

func BenchmarkMetricsIncMixedParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		idx := 0
		for pb.Next() {
			m.Inc(mixedHotMetricIDs[idx])
			idx++
			if idx == len(mixedHotMetricIDs) {
				idx = 0
			}
		}
	})
}

func BenchmarkMetricsObserveLatencyParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	d := 12 * time.Millisecond
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Observe(MetricGatewayLatency, d)
		}
	})
}

// Admit runs on every protected navigation.
func BenchmarkManagerAdmit(b *testing.B) {
	gw := newFakeGateway()
	gw.login = func(context.Context, string, string) gateway.LoginResult {
		return loginOK("u1", permission.RoleManager, "t")
	}
	m, err := New().WithConfig(testConfig()).WithGateway(gw).Build()
	if err != nil {
		b.Fatalf("Build failed: %v", err)
	}
	defer m.Close()
	if _, err := m.Login(context.Background(), "mgr", "pw"); err != nil {
		b.Fatalf("login failed: %v", err)
	}

	required := []Role{permission.RoleHR, permission.RoleManager}
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if !m.Admit(required...).Admitted() {
			b.Fatal("expected admit")
		}
	}
}
