package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/middleware/metrics"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/middleware/trace"
	"bilancio/internal/services"
	appweb "bilancio/web"
)

const (
	summaryCacheSize  = 120
	expensesCacheSize = 120
	cacheCleanupEvery = time.Minute
	readHeaderTimeout = 5 * time.Second
)

// Config carries the tunables of the HTTP layer.
type Config struct {
	Addr               string
	RateLimitPerMinute int
	CacheTTL           time.Duration
	Logger             *log.Logger
}

// Services are the operations the handlers call into. Ready backs /readyz
// and may be nil.
type Services struct {
	Income   *services.IncomeService
	Expenses *services.ExpenseService
	Summary  *services.SummaryService
	Ready    func(context.Context) error
}

type Server struct {
	http.Server
	logger    *log.Logger
	templates *template.Template
	svc       Services

	rateLimiter *ratelimit.Limiter
	metrics     *metrics.Metrics

	// Period-keyed read caches, invalidated by every write to the period
	summaryCache  *cache.Loader[core.Summary]
	expensesCache *cache.Loader[[]core.Expense]
	cacheManager  *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server.
func NewServer(cfg Config, svc Services) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	s := &Server{
		logger:        logger.WithComponent(log.ComponentHTTP),
		svc:           svc,
		rateLimiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		metrics:       metrics.New(),
		summaryCache:  cache.NewLoader(cache.NewLRUCache[core.Summary](summaryCacheSize, cfg.CacheTTL)),
		expensesCache: cache.NewLoader(cache.NewLRUCache[[]core.Expense](expensesCacheSize, cfg.CacheTTL)),
		cacheManager:  cache.NewManager(),
	}
	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.expensesCache)
	s.cacheManager.StartCleanup(cacheCleanupEvery)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("POST /api/income", s.handleSaveIncome)
	mux.HandleFunc("GET /api/income/{year}/{month}", s.handleGetIncome)
	mux.HandleFunc("POST /api/expense", s.handleCreateExpense)
	mux.HandleFunc("DELETE /api/expense/{id}", s.handleDeleteExpense)
	mux.HandleFunc("GET /api/expenses/{year}/{month}", s.handleListExpenses)
	mux.HandleFunc("GET /api/summary/{year}/{month}", s.handleSummary)
	mux.HandleFunc("GET /api/export/{year}/{month}", s.handleExport)
}

// middleware wraps the mux, outermost first: tracing and request logging,
// security headers, write rate limiting, then metrics. Metrics sits right
// on the mux so it can read the matched route pattern.
func (s *Server) middleware(mux http.Handler) http.Handler {
	tracer := trace.NewMiddleware(s.logger, extractClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.rateLimiter.Middleware(extractClientIP, s.onRateLimited, http.MethodPost, http.MethodDelete)

	return tracer.Middleware(headers.Middleware(limit(s.metrics.Middleware(mux))))
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	s.metrics.RateLimited()
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, extractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	TooManyRequestsError(ratelimit.RetryAfterSeconds(retryAfter)).Write(w)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func (s *Server) invalidatePeriod(p core.Period) {
	key := cacheKey(p)
	s.summaryCache.Invalidate(key)
	s.expensesCache.Invalidate(key)
}

func (s *Server) getSummary(ctx context.Context, p core.Period) (core.Summary, error) {
	// Joined callers share this load, so it must outlive the first request.
	loadCtx := context.WithoutCancel(ctx)
	v, hit, err := s.summaryCache.Get(cacheKey(p), func() (core.Summary, error) {
		return s.svc.Summary.Summary(loadCtx, p)
	})
	s.recordCache("summary", hit, err)
	return v, err
}

func (s *Server) getExpenses(ctx context.Context, p core.Period) ([]core.Expense, error) {
	loadCtx := context.WithoutCancel(ctx)
	v, hit, err := s.expensesCache.Get(cacheKey(p), func() ([]core.Expense, error) {
		return s.svc.Expenses.ListExpenses(loadCtx, p)
	})
	s.recordCache("expenses", hit, err)
	return v, err
}

func (s *Server) recordCache(name string, hit bool, err error) {
	switch {
	case err != nil:
	case hit:
		s.metrics.CacheHit(name)
	default:
		s.metrics.CacheMiss(name)
	}
}
