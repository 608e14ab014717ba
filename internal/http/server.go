package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"cashbook/internal/auth"
	"cashbook/internal/cache"
	"cashbook/internal/categories"
	"cashbook/internal/core"
	"cashbook/internal/ledger"
	"cashbook/internal/log"
	"cashbook/internal/metrics"
	"cashbook/internal/middleware/ratelimit"
	"cashbook/internal/middleware/security"
	"cashbook/internal/middleware/trace"
	"cashbook/internal/summary"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the HTTP server.
type Deps struct {
	Service        *ledger.Service
	Aggregator     *summary.Aggregator
	Categories     *categories.Registry
	Store          Pinger
	Currency       core.CurrencyFormat
	Metrics        *metrics.Metrics
	Users          auth.Users
	Logger         *log.Logger
	RateLimit      ratelimit.Config
	MaxUploadBytes int64
	TrustedProxies []string
	Now            func() time.Time
}

type Server struct {
	http.Server
	svc       *ledger.Service
	agg       *summary.Aggregator
	registry  *categories.Registry
	store     Pinger
	currency  core.CurrencyFormat
	metrics   *metrics.Metrics
	limiter   *ratelimit.Limiter
	caches    *cache.Manager
	maxUpload int64
	now       func() time.Time
	stopOnce  sync.Once
}

// publicPaths skip authentication and rate limiting.
var publicPaths = []string{"/healthz", "/readyz", "/metrics"}

func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Service == nil || deps.Aggregator == nil || deps.Categories == nil {
		return nil, errors.New("http server: service, aggregator and categories are required")
	}
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 10 << 20
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.RateLimit.RequestsPerSecond <= 0 {
		deps.RateLimit = ratelimit.DefaultConfig()
	}

	s := &Server{
		svc:       deps.Service,
		agg:       deps.Aggregator,
		registry:  deps.Categories,
		store:     deps.Store,
		currency:  deps.Currency,
		metrics:   deps.Metrics,
		limiter:   ratelimit.NewLimiter(deps.RateLimit),
		caches:    cache.NewManager(),
		maxUpload: deps.MaxUploadBytes,
		now:       deps.Now,
	}
	if s.currency.Symbol == "" {
		s.currency = core.FormatPtBR
	}
	s.caches.Register("categories", s.registry.Cache())
	s.caches.StartCleanup(10 * time.Minute)

	detector := security.NewDetector()
	for _, cidr := range deps.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			s.Stop()
			return nil, fmt.Errorf("http server: trusted proxy %q: %w", cidr, err)
		}
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = auth.BasicAuth(deps.Users, "cashbook", publicPaths...)(handler)
	handler = s.limitAPI(detector.ExtractClientIP, handler)
	handler = detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(deps.Logger, detector.ExtractClientIP, s.metrics).WithRouter(mux).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /api/categories", s.handleCategories)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleReplaceTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("GET /api/transactions/{id}/attachment", s.handleAttachment)
	mux.HandleFunc("POST /api/attachments/extract", s.handleExtract)

	mux.HandleFunc("GET /api/reports/balance", s.handleBalance)
	mux.HandleFunc("GET /api/reports/categories", s.handleCategoryReport)
	mux.HandleFunc("GET /api/reports/monthly", s.handleMonthly)
	mux.HandleFunc("GET /api/reports/detailed", s.handleDetailed)
	mux.HandleFunc("GET /api/reports/realtime", s.handleRealtime)
	mux.HandleFunc("GET /api/reports/export/{format}", s.handleExport)

	mux.HandleFunc("POST /api/imports", s.handleImport)
}

// limitAPI rate limits everything except the public probes.
func (s *Server) limitAPI(extractIP func(*http.Request) string, next http.Handler) http.Handler {
	limited := s.limiter.Middleware(extractIP, func(w http.ResponseWriter, r *http.Request) {
		s.metrics.RateLimited()
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	})(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			limited.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeError maps err to a JSON response and logs server-side failures.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp, internal := errorFor(err)
	if internal {
		log.FromContext(r.Context()).Failure(r.Context(), "Request failed", err,
			log.ErrorTypeInternal, log.ComponentHTTP, op, nil)
	}
	resp.Write(w)
}

// Stop releases background workers. Shutdown calls it as well.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.limiter.Stop()
		s.caches.Stop()
	})
}

// Shutdown drains in-flight requests, then stops background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Server.Shutdown(ctx)
	s.Stop()
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "store unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}
