package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"tally/internal/cache"
	"tally/internal/log"
	"tally/internal/middleware/ratelimit"
	"tally/internal/middleware/security"
	"tally/internal/middleware/trace"
	"tally/internal/report"
	"tally/internal/services"
)

const (
	summaryCacheSize = 100
	summaryCacheTTL  = 5 * time.Minute
	historyMax       = 500
)

// SummaryCache holds month summaries keyed by "YYYY-MM".
type SummaryCache = cache.LRUCache[report.MonthSummary]

// NewSummaryCache creates the cache the server reads month summaries from.
// Register its Purge as a ledger change hook so mutations invalidate it.
func NewSummaryCache() *SummaryCache {
	return cache.NewLRUCache[report.MonthSummary](summaryCacheSize, summaryCacheTTL)
}

// ReadinessCheck reports whether the server's dependencies can serve
// requests.
type ReadinessCheck func(ctx context.Context) error

// Config configures a Server.
type Config struct {
	Addr               string
	Currency           string
	RateLimitPerMinute int
	// TrustedProxies are CIDRs, beyond the private ranges, whose
	// X-Forwarded-For headers are believed.
	TrustedProxies []string
	// Summaries is shared with the ledger's change hook. A private cache is
	// created when nil, which is only safe when nothing else mutates the
	// ledger.
	Summaries *SummaryCache
	Ready     ReadinessCheck
	Logger    *log.Logger
	Now       func() time.Time
}

type Server struct {
	http.Server
	ledger    *services.LedgerService
	currency  string
	summaries *SummaryCache
	ready     ReadinessCheck
	now       func() time.Time
	logger    *log.Logger

	limiter      *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware
	cacheManager *cache.Manager
	shutdownOnce sync.Once
}

// NewServer wires the JSON API over the ledger service.
func NewServer(ledger *services.LedgerService, cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.Config{Component: log.ComponentHTTP})
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Currency == "" {
		cfg.Currency = "AED"
	}
	if cfg.Summaries == nil {
		cfg.Summaries = NewSummaryCache()
	}

	detector := security.NewDetector()
	for _, cidr := range cfg.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	s := &Server{
		ledger:       ledger,
		currency:     cfg.Currency,
		summaries:    cfg.Summaries,
		ready:        cfg.Ready,
		now:          cfg.Now,
		logger:       cfg.Logger,
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		detector:     detector,
		cacheManager: cache.NewManager(cfg.Logger.WithComponent(log.ComponentCache)),
	}
	s.tracer = trace.NewMiddleware(cfg.Logger, s.detector.ExtractClientIP)
	s.cacheManager.Register(s.summaries)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	api := http.NewServeMux()
	s.registerDebtRoutes(api)
	s.registerTransactionRoutes(api)
	s.registerBalanceRoutes(api)
	s.registerReportRoutes(api)
	mux.Handle("/api/", s.limiter.Middleware(s.detector.ExtractClientIP, onRateLimit)(api))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.tracer.Middleware(s.detector.Middleware(headers.Middleware(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s, nil
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		traffic, limits, threats := s.tracer.GetMetrics(), s.limiter.GetMetrics(), s.detector.GetMetrics()
		s.logger.Info("HTTP server stopping",
			"requests", traffic.TotalRequests,
			"avg_response_us", traffic.AverageResponseTime,
			"rate_limited", limits.TotalHits,
			"suspicious", threats.SuspiciousRequests,
			"blocked", threats.BlockedRequests)
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, try again later").Write(w)
}

// fail logs err at the level its kind deserves and writes the mapped
// response.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.FromContext(r.Context())
	fields := log.NewFields().WithError(err).ToSlice()
	if log.IsClientError(err) {
		logger.DebugContext(r.Context(), "Request rejected", fields...)
	} else {
		logger.ErrorContext(r.Context(), "Request failed", fields...)
	}
	FromError(err).Write(w)
}

func badRequest(w http.ResponseWriter, err error) {
	BadRequestError(err.Error()).Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "not_ready", "not ready").Write(w)
			return
		}
	}
	NewResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}
