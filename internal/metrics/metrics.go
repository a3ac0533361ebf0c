// Package metrics provides application-level metrics collection using
// atomic counters.
package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics holds application metrics using atomic counters for thread safety.
type Metrics struct {
	// Oracle (explorer) metrics
	oracleCallsTotal   atomic.Int64
	oracleErrorsTotal  atomic.Int64
	oracleLatencyNanos atomic.Int64
	oracleAddresses    atomic.Int64

	// Derivation metrics
	derivationsTotal atomic.Int64
	derivationErrors atomic.Int64
	deviceCalls      atomic.Int64

	// Discovery metrics
	discoveriesTotal  atomic.Int64
	discoveriesErrors atomic.Int64

	// Activity cache metrics
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
}

// Global is the global metrics instance.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = &Metrics{}

// RecordOracleCall records one oracle request covering n addresses.
func (m *Metrics) RecordOracleCall(n int, duration time.Duration, err error) {
	m.oracleCallsTotal.Add(1)
	m.oracleAddresses.Add(int64(n))
	m.oracleLatencyNanos.Add(duration.Nanoseconds())

	if err != nil {
		m.oracleErrorsTotal.Add(1)
	}
}

// RecordDerivation records a local address derivation.
func (m *Metrics) RecordDerivation(err error) {
	m.derivationsTotal.Add(1)
	if err != nil {
		m.derivationErrors.Add(1)
	}
}

// RecordDeviceCall records a round-trip to a hardware device.
func (m *Metrics) RecordDeviceCall(err error) {
	m.deviceCalls.Add(1)
	m.RecordDerivation(err)
}

// RecordDiscovery records a completed discovery run.
func (m *Metrics) RecordDiscovery(err error) {
	m.discoveriesTotal.Add(1)
	if err != nil {
		m.discoveriesErrors.Add(1)
	}
}

// RecordCacheHit records a cache hit.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Add(1)
}

// RecordCacheMiss records a cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Add(1)
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	OracleCallsTotal   int64 `json:"oracle_calls_total"`
	OracleErrorsTotal  int64 `json:"oracle_errors_total"`
	OracleLatencyNanos int64 `json:"oracle_latency_nanos"`
	OracleAddresses    int64 `json:"oracle_addresses"`
	DerivationsTotal   int64 `json:"derivations_total"`
	DerivationErrors   int64 `json:"derivation_errors"`
	DeviceCalls        int64 `json:"device_calls"`
	DiscoveriesTotal   int64 `json:"discoveries_total"`
	DiscoveriesErrors  int64 `json:"discoveries_errors"`
	CacheHits          int64 `json:"cache_hits"`
	CacheMisses        int64 `json:"cache_misses"`
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		OracleCallsTotal:   m.oracleCallsTotal.Load(),
		OracleErrorsTotal:  m.oracleErrorsTotal.Load(),
		OracleLatencyNanos: m.oracleLatencyNanos.Load(),
		OracleAddresses:    m.oracleAddresses.Load(),
		DerivationsTotal:   m.derivationsTotal.Load(),
		DerivationErrors:   m.derivationErrors.Load(),
		DeviceCalls:        m.deviceCalls.Load(),
		DiscoveriesTotal:   m.discoveriesTotal.Load(),
		DiscoveriesErrors:  m.discoveriesErrors.Load(),
		CacheHits:          m.cacheHits.Load(),
		CacheMisses:        m.cacheMisses.Load(),
	}
}

// OracleLatencyAvgMs returns the average oracle latency in milliseconds.
// Returns 0 if no calls have been made.
func (m *Metrics) OracleLatencyAvgMs() float64 {
	calls := m.oracleCallsTotal.Load()
	if calls == 0 {
		return 0
	}
	return float64(m.oracleLatencyNanos.Load()) / float64(calls) / 1e6
}

// CacheHitRate returns the cache hit rate as a percentage (0-100).
func (m *Metrics) CacheHitRate() float64 {
	hits := m.cacheHits.Load()
	total := hits + m.cacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// Reset resets all metrics to zero.
func (m *Metrics) Reset() {
	m.oracleCallsTotal.Store(0)
	m.oracleErrorsTotal.Store(0)
	m.oracleLatencyNanos.Store(0)
	m.oracleAddresses.Store(0)
	m.derivationsTotal.Store(0)
	m.derivationErrors.Store(0)
	m.deviceCalls.Store(0)
	m.discoveriesTotal.Store(0)
	m.discoveriesErrors.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
}
