// Package metrics provides Prometheus metrics for mdbmgo
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the storage engine
type Metrics struct {
	// keyed-operation metrics
	OpsTotal    *prometheus.CounterVec
	OpDuration  *prometheus.HistogramVec
	OpsInFlight prometheus.Gauge

	// database shape metrics
	DbSizeBytes   prometheus.Gauge
	DbPageCount   prometheus.Gauge
	DbDirShift    prometheus.Gauge
	DbRecordCount prometheus.Gauge

	// split/grow metrics
	SplitsTotal      prometheus.Counter
	ShakesTotal      prometheus.Counter
	DirGrowthsTotal  prometheus.Counter
	DbFullTotal      prometheus.Counter

	// large-object metrics
	LargeObjectsTotal  prometheus.Counter
	LargeObjectBytes   prometheus.Counter

	// cache overlay metrics
	CacheEvictionsTotal *prometheus.CounterVec
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter

	// locking subsystem metrics
	LockWaitSeconds  *prometheus.HistogramVec
	LockContention   *prometheus.CounterVec
	OwnerDiedTotal   prometheus.Counter

	ServerUptimeSeconds prometheus.Gauge
	ServerStartTime     time.Time
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	m := &Metrics{
		ServerStartTime: time.Now(),
	}

	m.OpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mdbm_ops_total",
			Help: "Total number of keyed operations (store/fetch/delete)",
		},
		[]string{"op", "status"},
	)

	m.OpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mdbm_op_duration_seconds",
			Help:    "Duration of keyed operations in seconds",
			Buckets: []float64{.000001, .000005, .00001, .00005, .0001, .0005, .001, .01, .1},
		},
		[]string{"op"},
	)

	m.OpsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mdbm_ops_in_flight",
			Help: "Number of keyed operations currently in progress",
		},
	)

	m.DbSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mdbm_db_size_bytes",
			Help: "Current database file size in bytes",
		},
	)

	m.DbPageCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mdbm_db_page_count",
			Help: "Current number of pages in the database file",
		},
	)

	m.DbDirShift = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mdbm_db_dir_shift",
			Help: "Current directory depth (bits of hash used for the directory)",
		},
	)

	m.DbRecordCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mdbm_db_record_count",
			Help: "Current number of live entries",
		},
	)

	m.SplitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mdbm_splits_total",
			Help: "Total number of page splits performed",
		},
	)

	m.ShakesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mdbm_shakes_total",
			Help: "Total number of shake callback invocations",
		},
	)

	m.DirGrowthsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mdbm_directory_growths_total",
			Help: "Total number of directory depth increases",
		},
	)

	m.DbFullTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mdbm_db_full_total",
			Help: "Total number of stores that failed with DbFull",
		},
	)

	m.LargeObjectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mdbm_large_objects_total",
			Help: "Total number of large-object chunks allocated",
		},
	)

	m.LargeObjectBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mdbm_large_object_bytes_total",
			Help: "Total bytes stored in large-object chunks",
		},
	)

	m.CacheEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mdbm_cache_evictions_total",
			Help: "Total number of entries evicted, by policy",
		},
		[]string{"policy"},
	)

	m.CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mdbm_cache_hits_total",
			Help: "Total number of fetches satisfied from the mapped database",
		},
	)

	m.CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mdbm_cache_misses_total",
			Help: "Total number of fetches that fell through to the backing store",
		},
	)

	m.LockWaitSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mdbm_lock_wait_seconds",
			Help:    "Time spent waiting to acquire the database lock",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	m.LockContention = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mdbm_lock_contention_total",
			Help: "Total number of lock acquisitions that had to wait",
		},
		[]string{"mode"},
	)

	m.OwnerDiedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mdbm_owner_died_total",
			Help: "Total number of times a dead lock holder was recovered from",
		},
	)

	m.ServerUptimeSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mdbm_process_uptime_seconds",
			Help: "Time since this process's metrics registry was created",
		},
	)

	go m.updateUptime()

	return m
}

// updateUptime periodically updates the process uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.ServerUptimeSeconds.Set(time.Since(m.ServerStartTime).Seconds())
	}
}

// RecordOp records a keyed operation with its status
func (m *Metrics) RecordOp(op string, status string, duration time.Duration) {
	m.OpsTotal.WithLabelValues(op, status).Inc()
	m.OpDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// UpdateDbStats updates the database shape gauges
func (m *Metrics) UpdateDbStats(sizeBytes int64, pageCount int64, dirShift int64, recordCount int64) {
	m.DbSizeBytes.Set(float64(sizeBytes))
	m.DbPageCount.Set(float64(pageCount))
	m.DbDirShift.Set(float64(dirShift))
	m.DbRecordCount.Set(float64(recordCount))
}

// RecordLockWait records time spent waiting for a lock of the given mode
func (m *Metrics) RecordLockWait(mode string, waited time.Duration) {
	m.LockWaitSeconds.WithLabelValues(mode).Observe(waited.Seconds())
	if waited > 0 {
		m.LockContention.WithLabelValues(mode).Inc()
	}
}
