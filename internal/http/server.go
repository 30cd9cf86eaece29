// Package http exposes the budgeting services as a JSON REST API.
package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"spry/internal/cache"
	"spry/internal/log"
	"spry/internal/middleware/ratelimit"
	"spry/internal/middleware/security"
	"spry/internal/middleware/trace"
	"spry/internal/services"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Addr               string
	APIPrefix          string
	RateLimitPerMinute int
	CacheCleanup       time.Duration
}

type Server struct {
	http.Server

	svc      *services.Services
	verifier TokenVerifier
	db       Pinger

	detector *security.Detector
	tracer   *trace.Middleware
	limiter  *ratelimit.Limiter
	caches   *cache.Manager

	shutdownOnce sync.Once
}

func NewServer(opts Options, svc *services.Services, verifier TokenVerifier, db Pinger) *Server {
	prefix := "/" + strings.Trim(opts.APIPrefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	if opts.CacheCleanup <= 0 {
		opts.CacheCleanup = time.Minute
	}

	detector := security.NewDetector()
	s := &Server{
		svc:      svc,
		verifier: verifier,
		db:       db,
		detector: detector,
		tracer:   trace.NewMiddleware(detector.ExtractClientIP),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		caches:   cache.NewManager(),
	}
	s.caches.Register(svc.Metrics.Cache())
	s.caches.StartCleanup(opts.CacheCleanup)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /statz", s.handleStats)

	route := func(pattern string, h http.HandlerFunc) {
		method, path, _ := strings.Cut(pattern, " ")
		mux.HandleFunc(method+" "+prefix+path, requireUser(s.verifier, h))
	}
	route("GET /entries", s.handleListEntries)
	route("POST /entries", s.handleCreateEntry)
	route("PUT /entries/{id}", s.handleUpdateEntry)
	route("DELETE /entries/{id}", s.handleDeleteEntry)

	route("GET /goals", s.handleListGoals)
	route("POST /goals", s.handleCreateGoal)
	route("PUT /goals/{id}", s.handleUpdateGoal)
	route("DELETE /goals/{id}", s.handleDeleteGoal)

	route("GET /budget", s.handleGetBudget)
	route("PUT /budget", s.handleSubmitBudget)
	route("DELETE /budget", s.handleDeleteBudget)
	route("POST /budget/rotate", s.handleRotateBudget)
	route("GET /budget/breakdown", s.handleBreakdown)

	route("GET /summary", s.handleSummary)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(detector.ExtractClientIP, ratelimit.MutatingOnly, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, detector.ExtractClientIP(r))
		writeErrorMessage(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
	})(handler)
	handler = log.RequestMiddleware(log.Default(), trace.RequestID)(handler)
	handler = detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

type statsResponse struct {
	Requests           int64 `json:"requests"`
	ServerErrors       int64 `json:"server_errors"`
	AvgResponseMicros  int64 `json:"avg_response_us"`
	RateLimited        int64 `json:"rate_limited"`
	RateLimitClients   int64 `json:"rate_limit_clients"`
	SuspiciousRequests int64 `json:"suspicious_requests"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	rl := s.limiter.GetMetrics()
	writeJSON(w, http.StatusOK, statsResponse{
		Requests:           tm.TotalRequests,
		ServerErrors:       tm.ServerErrors,
		AvgResponseMicros:  tm.AverageResponseTime,
		RateLimited:        rl.Rejected,
		RateLimitClients:   rl.ClientCount,
		SuspiciousRequests: s.detector.GetMetrics().SuspiciousRequests,
	})
}

// Shutdown stops background cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
