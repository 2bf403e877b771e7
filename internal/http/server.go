package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"lawnledger/internal/cache"
	"lawnledger/internal/core"
	"lawnledger/internal/ledger"
	applog "lawnledger/internal/log"
	"lawnledger/internal/services"
)

const (
	defaultViewCacheSize = 64
	defaultViewCacheTTL  = 5 * time.Minute
	maxHistoryLimit      = 1000
)

// Options tunes a Server. Zero values pick the defaults.
type Options struct {
	HistoryLimit      int
	ViewCacheSize     int
	ViewCacheTTL      time.Duration
	RequestsPerMinute int
	// Ready backs /readyz; nil means always ready.
	Ready  func(context.Context) error
	Logger *applog.Logger
}

// ViewResponse is the body of GET /api/view: the derived view plus the
// calendar entries for the transactions in range.
type ViewResponse struct {
	Range  ledger.Range  `json:"range"`
	Filter ledger.Filter `json:"filter"`
	core.View
	Events  []core.CalendarEvent `json:"events"`
	Version uint64               `json:"version"`
}

type Server struct {
	http.Server
	svc         *services.LedgerService
	logger      *applog.Logger
	rateLimiter *rateLimiter
	metrics     *securityMetrics

	// Views are keyed by range, filter and ledger version, so a mutation
	// never serves a stale entry.
	viewCache    *cache.LRUCache[ViewResponse]
	cacheManager *cache.Manager

	historyLimit int
	ready        func(context.Context) error
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, svc *services.LedgerService, opts Options) *Server {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = ledger.DefaultHistoryLimit
	}
	if opts.ViewCacheSize <= 0 {
		opts.ViewCacheSize = defaultViewCacheSize
	}
	if opts.ViewCacheTTL <= 0 {
		opts.ViewCacheTTL = defaultViewCacheTTL
	}
	if opts.Logger == nil {
		opts.Logger = applog.FromContext(context.Background())
	}

	s := &Server{
		svc:          svc,
		logger:       opts.Logger.WithComponent(applog.ComponentHTTP),
		rateLimiter:  newRateLimiter(opts.RequestsPerMinute),
		metrics:      &securityMetrics{},
		viewCache:    cache.NewLRUCache[ViewResponse](opts.ViewCacheSize, opts.ViewCacheTTL),
		cacheManager: cache.NewManager(),
		historyLimit: opts.HistoryLimit,
		ready:        opts.Ready,
	}
	s.cacheManager.Register(s.viewCache)
	s.cacheManager.StartCleanup(opts.ViewCacheTTL)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(applog.Middleware(s.logger))
	r.Use(applog.RequestIDMiddleware(requestID))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(s.requestLogger)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no such route").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimit)

		r.Get("/capabilities", s.handleCapabilities)
		r.Get("/stats", s.handleStats)

		// Transactions
		r.Get("/transactions", s.handleListTransactions)
		r.Post("/transactions", s.handleCreateTransaction)
		r.Get("/transactions/{id}", s.handleGetTransaction)
		r.Put("/transactions/{id}", s.handleUpdateTransaction)
		r.Delete("/transactions/{id}", s.handleDeleteTransaction)
		r.Get("/history", s.handleHistory)

		// Templates
		r.Get("/templates", s.handleListTemplates)
		r.Post("/templates", s.handleAddTemplate)
		r.Delete("/templates", s.handleRemoveTemplate)
		r.Post("/templates/use", s.handleUseTemplate)

		r.Post("/voice", s.handleVoice)
		r.Get("/view", s.handleView)
	})

	return r
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	// Ensure shutdown logic runs only once
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
