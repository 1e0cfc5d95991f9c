// Package httpapi wires the HTTP surface of the ledger service.
// It keeps handlers thin, delegating business rules to the service layer.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/unrolled/secure"

	"github.com/refuelos/ledger/internal/service/account"
	"github.com/refuelos/ledger/internal/service/journal"
	"github.com/refuelos/ledger/internal/service/report"
)

// IdempotencyStore binds Idempotency-Key values to created entries. A key is
// claimed for a pre-assigned entry id before the entry is written, so
// concurrent requests with one key agree on a single owner.
type IdempotencyStore interface {
	ClaimIdempotencyKey(ctx context.Context, key string, entryID uuid.UUID) (owner uuid.UUID, claimed bool, err error)
	ReleaseIdempotencyKey(ctx context.Context, key string, entryID uuid.UUID) error
}

// ReadinessChecker is implemented by backing stores that can report health.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// Deps are the services and stores the API delegates to.
type Deps struct {
	Accounts    account.Service
	Journal     journal.Service
	Reports     report.Service
	Idempotency IdempotencyStore
	// Ready is probed by /readyz.
	Ready  []ReadinessChecker
	Logger *slog.Logger
}

// Options tune the middleware chain.
type Options struct {
	JWTSecret          string
	JWTIssuer          string
	JWTAudience        string
	RateLimitPerMinute int
	// Currency labels amounts in spreadsheet exports.
	Currency   string
	Production bool
}

// Server wires handlers and middleware using Chi.
type Server struct {
	accounts account.Service
	journal  journal.Service
	reports  report.Service
	idem     IdempotencyStore
	ready    []ReadinessChecker
	validate *validator.Validate
	opts     Options
	log      *slog.Logger
	rt       *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
func New(d Deps, opts Options) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Currency == "" {
		opts.Currency = "BDT"
	}
	s := &Server{
		accounts: d.Accounts,
		journal:  d.Journal,
		reports:  d.Reports,
		idem:     d.Idempotency,
		ready:    d.Ready,
		validate: newValidator(),
		opts:     opts,
		log:      logger,
		rt:       chi.NewRouter(),
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
	sec := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        s.opts.Production,
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:      !s.opts.Production,
	})

	s.rt.Use(chimw.RequestID)
	s.rt.Use(chimw.RealIP)
	s.rt.Use(requestLogger(s.log))
	s.rt.Use(metricsMiddleware)
	s.rt.Use(recoverer(s.log))
	s.rt.Use(sec.Handler)

	// Health and metrics (unversioned, never authenticated)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Handle("/metrics", metricsHandler())

	s.rt.Route("/v1", func(v chi.Router) {
		if s.opts.RateLimitPerMinute > 0 {
			v.Use(httprate.Limit(s.opts.RateLimitPerMinute, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					writeErr(w, http.StatusTooManyRequests, "rate limit exceeded", "rate_limited")
				}),
			))
		}
		v.Get("/dictionary/chart", s.getChartDictionary)

		v.Group(func(p chi.Router) {
			if auth := s.authJWT(); auth != nil {
				p.Use(auth)
			}
			// Accounts
			p.Get("/accounts", s.listAccounts)
			p.With(s.validatePostAccount()).Post("/accounts", s.postAccount)
			p.Get("/accounts/{id}", s.getAccount)
			p.Patch("/accounts/{id}", s.updateAccount)
			p.Delete("/accounts/{id}", s.deleteAccount)
			// Entries
			p.With(s.validateListEntries()).Get("/entries", s.listEntries)
			p.With(s.validateEntryBody()).Post("/entries", s.postEntry)
			p.With(s.validateEntryBody()).Post("/entries/validate", s.validateEntry)
			p.Post("/entries/preview", s.previewEntry)
			p.Get("/entries/{id}", s.getEntry)
			p.With(s.validateEntryBody()).Put("/entries/{id}", s.putEntry)
			p.Delete("/entries/{id}", s.deleteEntry)
			// Reports
			p.With(s.validatePeriod()).Get("/reports/trial-balance", s.trialBalance)
			p.With(s.validateAsOf()).Get("/reports/balance-sheet", s.balanceSheet)
			p.With(s.validatePeriod()).Get("/reports/profit-and-loss", s.profitAndLoss)
		})
	})
}
