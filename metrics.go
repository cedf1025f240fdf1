package portalAuth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one in-process counter.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginNetworkFailure
	MetricLoginMalformedResponse
	// MetricLoginTokenMissing counts logins where the provider issued no bearer.
	MetricLoginTokenMissing
	MetricLoginSuperseded
	MetricLogout
	MetricRestoreSuccess
	MetricRestoreEmpty
	// MetricRestoreCorrupt counts persisted sessions cleared as corrupt.
	MetricRestoreCorrupt
	MetricRestoreBackendFailure
	MetricRestoreTokenMissing
	MetricRestoreTokenExpired
	MetricUserUpdated
	MetricSessionStoreFailure
	MetricOTPRequest
	MetricOTPRequestFailure
	MetricOTPRequestRateLimited
	MetricOTPVerifySuccess
	MetricOTPVerifyFailure
	MetricOTPAttemptsExceeded
	MetricOTPExpired
	MetricPasswordChangeSuccess
	MetricPasswordChangeFailure
	MetricPasswordChangeNotVerified
	MetricAccessAdmitted
	MetricAccessRedirected
	MetricOperationInFlight
	// MetricGatewayLatency is the only histogram: identity-provider round trips.
	MetricGatewayLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

// latencyBounds are the inclusive upper bounds of the first seven buckets;
// the eighth bucket takes everything slower.
var latencyBounds = [histBucketCount - 1]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

// counterSlot keeps each counter on its own cache line so hot counters
// touched by concurrent logins and guard checks do not false-share.
type counterSlot struct {
	n atomic.Uint64
	_ [cacheLineSize - 8]byte
}

type latencyHistogram struct {
	buckets [histBucketCount]atomic.Uint64
	sum     atomic.Int64
}

// Metrics holds lock-free counters and the gateway latency histogram.
// A nil or disabled Metrics ignores every call.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]counterSlot
	gateway       latencyHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters. Histogram buckets
// are non-cumulative; HistogramSums holds the total observed time per
// histogram.
type MetricsSnapshot struct {
	Counters      map[MetricID]uint64
	Histograms    map[MetricID][]uint64
	HistogramSums map[MetricID]time.Duration
}

// NewMetrics returns a Metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id. Histogram ids are ignored.
func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= MetricGatewayLatency {
		return
	}
	m.counters[id].n.Add(1)
}

// Observe records one identity-provider round trip. Only
// [MetricGatewayLatency] is a histogram; other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricGatewayLatency {
		return
	}
	if d < 0 {
		d = 0
	}
	m.gateway.buckets[bucketIndex(d)].Add(1)
	m.gateway.sum.Add(int64(d))
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= MetricGatewayLatency {
		return 0
	}
	return m.counters[id].n.Load()
}

// Snapshot copies every counter. A disabled Metrics yields empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:      map[MetricID]uint64{},
		Histograms:    map[MetricID][]uint64{},
		HistogramSums: map[MetricID]time.Duration{},
	}
	if !m.Enabled() {
		return s
	}

	for id := MetricID(0); id < MetricGatewayLatency; id++ {
		s.Counters[id] = m.counters[id].n.Load()
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = m.gateway.buckets[i].Load()
		}
		s.Histograms[MetricGatewayLatency] = buckets
		s.HistogramSums[MetricGatewayLatency] = time.Duration(m.gateway.sum.Load())
	}
	return s
}

func bucketIndex(d time.Duration) int {
	for i, bound := range latencyBounds {
		if d <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
