package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"spendtracker/internal/cache"
	"spendtracker/internal/core"
	"spendtracker/internal/log"
	"spendtracker/internal/middleware/ratelimit"
	"spendtracker/internal/middleware/security"
	"spendtracker/internal/middleware/trace"
	"spendtracker/internal/services"
	appweb "spendtracker/web"
)

// Ledger is what the web surface needs from the ledger service.
type Ledger interface {
	AddExpense(ctx context.Context, name string, category core.Category, amount core.Money) (core.Entry, error)
	RemoveExpense(ctx context.Context, id int64) (core.Entry, bool, error)
	Snapshot(ctx context.Context) (services.Snapshot, error)
}

// EventStats is implemented by publishers that count deliveries.
type EventStats interface {
	Sent() int64
	Dropped() int64
}

type Options struct {
	Addr               string
	Currency           string
	RateLimitPerMinute int
	ReportCacheTTL     time.Duration
	ShutdownTimeout    time.Duration
	Logger             *log.Logger

	// Ready reports backend health for /readyz. Nil means always ready.
	Ready func(context.Context) error
	// Events is optional; when set its counters appear in /metrics.
	Events EventStats
}

type Server struct {
	http.Server
	templates *template.Template
	ledger    Ledger
	currency  string
	logger    *log.Logger

	detector     *security.Detector
	limiter      *ratelimit.Limiter
	tracer       *trace.Middleware
	reports      *cache.LRUCache[[]byte]
	cacheManager *cache.Manager

	ready           func(context.Context) error
	events          EventStats
	shutdownTimeout time.Duration
	now             func() time.Time

	metrics appMetrics
}

type appMetrics struct {
	expensesAdded      atomic.Int64
	expensesRemoved    atomic.Int64
	validationFailures atomic.Int64
}

// NewServer parses the embedded templates and wires routes and middleware.
func NewServer(opts Options, ledger Ledger) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Currency == "" {
		opts.Currency = "₹"
	}
	if opts.ReportCacheTTL <= 0 {
		opts.ReportCacheTTL = 10 * time.Minute
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	t, err := template.New("").ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	detector := security.NewDetector()
	s := &Server{
		templates:       t,
		ledger:          ledger,
		currency:        opts.Currency,
		logger:          opts.Logger.WithComponent(log.ComponentHTTP),
		detector:        detector,
		limiter:         ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:          trace.NewMiddleware(detector.ExtractClientIP),
		reports:         cache.NewLRUCache[[]byte](16, opts.ReportCacheTTL),
		ready:           opts.Ready,
		events:          opts.Events,
		shutdownTimeout: opts.ShutdownTimeout,
		now:             time.Now,
	}
	s.cacheManager = cache.NewManager(s.reports)

	mux := http.NewServeMux()
	if err := s.routes(mux); err != nil {
		return nil, err
	}

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.chain(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) error {
	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("mount static assets: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /expenses", s.handleCreateExpense)
	mux.HandleFunc("DELETE /expenses/{id}", s.handleDeleteExpense)
	mux.HandleFunc("POST /expenses/{id}/delete", s.handleDeleteExpense)

	mux.HandleFunc("GET /ui/expenses", s.handleExpensesTable)
	mux.HandleFunc("GET /ui/summary", s.handleSummary)

	mux.HandleFunc("GET /api/expenses", s.handleAPIExpenses)
	mux.HandleFunc("GET /api/totals", s.handleAPITotals)
	mux.HandleFunc("GET /api/series", s.handleAPISeries)

	mux.HandleFunc("GET /export/expenses.csv", s.handleExportCSV)
	mux.HandleFunc("GET /export/report.pdf", s.handleExportPDF)
	return nil
}

// chain wraps the mux, outermost first: logger, trace, detection, headers,
// rate limit on mutating methods.
func (s *Server) chain(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		TooManyRequestsError("Too many requests. Please try again in a minute.").Write(w)
	}, http.MethodPost, http.MethodDelete)(next)

	h := security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(limited)
	h = s.detector.Middleware(h)
	h = s.tracer.Middleware(h)
	return log.Middleware(s.logger)(h)
}

// Run serves until ctx is cancelled, then shuts down gracefully. Background
// sweepers for the rate limiter and report cache share its lifetime.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.limiter.Run(gctx) })
	g.Go(func() error { return s.cacheManager.Run(gctx, time.Minute) })
	g.Go(func() error {
		s.logger.InfoContext(gctx, "HTTP server listening", "addr", s.Addr)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		s.logger.Info("Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
		return s.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
