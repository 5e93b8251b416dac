package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/cosmos/cosmos-sdk/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paw-chain/aggregator/x/aggregator/types"
)

var (
	startTime = time.Now()

	healthCheckTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paw_aggregator_health_check_total",
			Help: "Total number of health check requests",
		},
		[]string{"endpoint", "status"},
	)

	feedFresh = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "paw_aggregator_feed_fresh",
			Help: "1 if the latest answer is younger than the round timeout, 0 otherwise",
		},
	)
)

// FeedChecker exposes the aggregator state the health endpoints report on.
type FeedChecker interface {
	LatestRound() (types.Round, bool)
	Now() time.Time
	Timeout() time.Duration
}

// BasicHealthResponse is the response for /health
type BasicHealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// FeedHealthResponse is the response for /health/feed
type FeedHealthResponse struct {
	Status         string `json:"status"`
	LatestRound    uint64 `json:"latest_round"`
	Answer         string `json:"answer,omitempty"`
	UpdatedAt      uint64 `json:"updated_at,omitempty"`
	AgeSeconds     int64  `json:"age_seconds"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
	Version        string `json:"version"`
	MemoryMB       uint64 `json:"memory_mb"`
	Goroutines     int    `json:"goroutines"`
	TimeoutSeconds int64  `json:"timeout_seconds"`
}

// Server serves Prometheus metrics and feed health over HTTP.
type Server struct {
	server *http.Server
	feed   FeedChecker
}

// NewServer builds the metrics and health server without starting it.
func NewServer(port int, feed FeedChecker) *Server {
	s := &Server{feed: feed}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", s.withHealthMetrics("health", s.handleBasicHealth))
	mux.HandleFunc("/health/feed", s.withHealthMetrics("feed", s.handleFeed))

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	return s
}

// Start serves in the background. Errors after startup are reported to errf.
func (s *Server) Start(errf func(error)) {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errf(fmt.Errorf("metrics server: %w", err))
		}
	}()
}

// Handler returns the server's request router.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) withHealthMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)
		healthCheckTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", rw.statusCode)).Inc()
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// handleBasicHealth returns 200 while the process is alive
func (s *Server) handleBasicHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, BasicHealthResponse{
		Status:    "ok",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// handleFeed returns 200 when the latest answer is fresh, 503 when there is
// no answer yet or it is older than the round timeout.
func (s *Server) handleFeed(w http.ResponseWriter, _ *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	resp := FeedHealthResponse{
		Status:         "no_answer",
		UptimeSeconds:  int64(time.Since(startTime).Seconds()),
		Version:        versionString(),
		MemoryMB:       m.Alloc / 1024 / 1024,
		Goroutines:     runtime.NumGoroutine(),
		TimeoutSeconds: int64(s.feed.Timeout().Seconds()),
	}

	code := http.StatusServiceUnavailable
	if round, ok := s.feed.LatestRound(); ok {
		resp.LatestRound = round.RoundID
		resp.UpdatedAt = round.UpdatedAt
		if round.Answer != nil {
			resp.Answer = round.Answer.String()
		}
		resp.AgeSeconds = s.feed.Now().Unix() - int64(round.UpdatedAt)
		resp.Status = "stale"
		if resp.AgeSeconds <= resp.TimeoutSeconds {
			resp.Status = "fresh"
			code = http.StatusOK
		}
	}

	if code == http.StatusOK {
		feedFresh.Set(1)
	} else {
		feedFresh.Set(0)
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func versionString() string {
	if version.Version != "" {
		return version.Version
	}
	return "dev"
}
