package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budget/internal/log"
	"budget/internal/metrics"
	"budget/internal/middleware/ratelimit"
	"budget/internal/middleware/security"
	"budget/internal/middleware/trace"
	"budget/internal/ports"
	"budget/internal/reporting"
)

// DefaultReportTimeout bounds the storage work behind one report request.
const DefaultReportTimeout = 7 * time.Second

// Dependencies are the collaborators the server routes to.
type Dependencies struct {
	// Ledger serves writes and direct reads. Writes must invalidate Reports.
	Ledger ports.Ledger
	// Reports feeds the reporting engine, usually a cached lister.
	Reports ports.TransactionLister
	// Ready reports storage health for /readyz. Nil means always ready.
	Ready   func(ctx context.Context) error
	Metrics *metrics.Metrics
	Logger  *log.Logger
}

// Options tune server behavior. Zero values select defaults.
type Options struct {
	RateLimitPerMinute  int
	DisableRateLimit    bool
	RecommendationsTopN int
	ReportTimeout       time.Duration
}

type Server struct {
	http.Server

	ledger        ports.Ledger
	engine        *reporting.Engine
	ready         func(ctx context.Context) error
	metrics       *metrics.Metrics
	logger        *log.Logger
	structured    *log.StructuredLogger
	rateLimiter   *ratelimit.Limiter
	topN          int
	reportTimeout time.Duration
	started       time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Dependencies, opts Options) *Server {
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}
	if deps.Reports == nil {
		deps.Reports = deps.Ledger
	}
	if opts.RecommendationsTopN <= 0 {
		opts.RecommendationsTopN = reporting.DefaultTopN
	}
	if opts.ReportTimeout <= 0 {
		opts.ReportTimeout = DefaultReportTimeout
	}

	s := &Server{
		ledger:        deps.Ledger,
		engine:        reporting.NewEngine(deps.Reports),
		ready:         deps.Ready,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		structured:    log.NewStructuredLogger(deps.Logger),
		topN:          opts.RecommendationsTopN,
		reportTimeout: opts.ReportTimeout,
		started:       time.Now(),
	}
	if !opts.DisableRateLimit {
		s.rateLimiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute})
	}

	mux := http.NewServeMux()
	s.routes(mux)

	detector := security.NewDetector(s.suspicionObserver())
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(deps.Logger, detector.ExtractClientIP, s.requestObserver())

	var handler http.Handler = mux
	if s.rateLimiter != nil {
		handler = s.limitMutations(detector.ExtractClientIP, handler)
	}
	handler = headers.Middleware(handler)
	handler = detector.Middleware(handler)
	handler = tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, trace.Route(h))
	}

	handle("GET /healthz", s.handleHealth)
	handle("GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", trace.Route(s.metrics.Handler()))
	}

	handle("POST /api/budgets", s.handleCreateBudget)
	handle("GET /api/budgets", s.handleListBudgets)
	handle("GET /api/budgets/{id}", s.handleGetBudget)

	handle("POST /api/budgets/{id}/categories", s.handleCreateCategory)
	handle("GET /api/budgets/{id}/categories", s.handleListCategories)
	handle("DELETE /api/budgets/{id}/categories/{categoryID}", s.handleDeleteCategory)

	handle("POST /api/budgets/{id}/transactions", s.handleCreateTransaction)
	handle("GET /api/budgets/{id}/transactions", s.handleListTransactions)
	handle("DELETE /api/budgets/{id}/transactions/{txID}", s.handleDeleteTransaction)

	handle("GET /api/budgets/{id}/reports/kpis", s.handleKPIs)
	handle("GET /api/budgets/{id}/reports/categories", s.handleCategoryReport)
	handle("GET /api/budgets/{id}/reports/recommendations", s.handleRecommendations)
	handle("POST /api/budgets/{id}/reports/what-if", s.handleWhatIf)
	handle("GET /api/budgets/{id}/reports/csv", s.handleCSV)
}

// limitMutations applies the rate limiter to state-changing methods only.
func (s *Server) limitMutations(extractIP func(*http.Request) string, next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(extractIP, func(w http.ResponseWriter, r *http.Request) {
		if s.metrics != nil {
			s.metrics.RateLimited()
		}
		log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(),
			"Rate limit exceeded",
			log.FieldClientIP, extractIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	})(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			limited.ServeHTTP(w, r)
		}
	})
}

// requestObserver avoids a typed-nil interface when metrics are disabled.
func (s *Server) requestObserver() trace.RequestObserver {
	if s.metrics == nil {
		return nil
	}
	return s.metrics
}

func (s *Server) suspicionObserver() security.SuspicionObserver {
	if s.metrics == nil {
		return nil
	}
	return s.metrics
}

// RateLimiter exposes the limiter for gauges. Nil when disabled.
func (s *Server) RateLimiter() *ratelimit.Limiter {
	return s.rateLimiter
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
