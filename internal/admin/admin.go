// Package admin provides the HTTP inspection surface a long-running
// mdbmgo process exposes: Prometheus metrics, health/readiness probes and
// pprof profiling. It is adapted from
// internal/server/observability.go's ObservabilityServer, with the gRPC
// interceptor dropped (this module has no RPC surface) and a /stats
// endpoint added that reports live pkg/mdbm.Handle shape instead of a
// fixed "treestore" health payload.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nainya/mdbmgo/internal/logger"
	"github.com/nainya/mdbmgo/internal/metrics"
)

// statsUpdateInterval is how often the background updater refreshes the
// database shape gauges (mdbm_db_size_bytes, mdbm_db_page_count, ...) from
// StatsSource; these change only on Store/split/grow, so a scrape-rate poll
// isn't needed.
const statsUpdateInterval = 15 * time.Second

// withRequestID stamps every admin-surface request with a correlation id
// (mirroring the query-id logging pattern used elsewhere for request
// tracing), surfaced both as a response header and in the access log line.
func withRequestID(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)
		log.Info("admin request").Str("request_id", id).Str("path", r.URL.Path).Send()
		next.ServeHTTP(w, r)
	})
}

// StatsSource is whatever open database handle(s) the process wants to
// expose shape for; pkg/mdbm.Handle satisfies the fields this reports.
type StatsSource interface {
	PageSize() int
	PageCount() uint32
	DirShift() uint16
	RecordCount() int
}

// Server is the admin HTTP surface.
type Server struct {
	server    *http.Server
	log       *logger.Logger
	stopStats chan struct{}
}

// New builds the admin server. db may be nil if no database is open yet;
// /stats reports null shape in that case rather than failing. m may be nil
// to run without the database-shape gauges wired (mdbm_ops_total and the
// rest still populate from whatever pkg/mdbm.Handle the caller gave its own
// *metrics.Metrics, if any -- this just drives the periodic shape refresh).
func New(addr string, enablePprof bool, log *logger.Logger, db StatsSource, m *metrics.Metrics) *Server {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","service":"mdbmgo"}`))
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db == nil {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"open":false}`))
			return
		}
		enc := json.NewEncoder(w)
		_ = enc.Encode(map[string]any{
			"open":       true,
			"page_size":  db.PageSize(),
			"page_count": db.PageCount(),
			"dir_shift":  db.DirShift(),
		})
	})

	if enablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		mux.Handle("/debug/pprof/heap", pprof.Handler("heap"))
		mux.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
		mux.Handle("/debug/pprof/block", pprof.Handler("block"))
		mux.Handle("/debug/pprof/mutex", pprof.Handler("mutex"))
		mux.Handle("/debug/pprof/allocs", pprof.Handler("allocs"))
	}

	s := &Server{
		server: &http.Server{
			Addr:         addr,
			Handler:      withRequestID(log, mux),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: log,
	}

	if m != nil && db != nil {
		s.stopStats = make(chan struct{})
		go s.updateStats(m, db)
	}

	return s
}

// updateStats periodically pushes db's shape into m's gauges until Shutdown
// closes stopStats.
func (s *Server) updateStats(m *metrics.Metrics, db StatsSource) {
	ticker := time.NewTicker(statsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sizeBytes := int64(db.PageSize()) * int64(db.PageCount())
			m.UpdateDbStats(sizeBytes, int64(db.PageCount()), int64(db.DirShift()), int64(db.RecordCount()))
		case <-s.stopStats:
			return
		}
	}
}

// Start blocks serving the admin surface until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("starting admin server").Str("addr", s.server.Addr).Send()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("admin server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the admin server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down admin server").Send()
	if s.stopStats != nil {
		close(s.stopStats)
	}
	return s.server.Shutdown(ctx)
}
