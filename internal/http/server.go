// Package httpserver exposes the catalog, rating, search and identity operations over HTTP.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/cinerate/internal/catalog"
	"github.com/Clark-Hu/cinerate/internal/config"
	"github.com/Clark-Hu/cinerate/internal/domain"
	"github.com/Clark-Hu/cinerate/internal/identity"
	"github.com/Clark-Hu/cinerate/internal/logging"
	"github.com/Clark-Hu/cinerate/internal/metrics"
	"github.com/Clark-Hu/cinerate/internal/omdb"
	"github.com/Clark-Hu/cinerate/internal/repository"
)

// HealthChecker reports whether the backing database is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// MovieService is the movie store as seen by the handlers.
type MovieService interface {
	List(ctx context.Context, q catalog.MovieQuery) (repository.MovieListResult, error)
	Create(ctx context.Context, caller domain.Principal, in catalog.MovieInput) (domain.Movie, error)
	Get(ctx context.Context, id string) (domain.MovieDetail, error)
	Update(ctx context.Context, caller domain.Principal, id string, in catalog.MovieInput, partial bool) (domain.Movie, error)
	Delete(ctx context.Context, caller domain.Principal, id string) error
	Authorize(ctx context.Context, caller domain.Principal, id string) error
}

// RatingService is the rating service as seen by the handlers.
type RatingService interface {
	Submit(ctx context.Context, caller domain.Principal, movieID string, in catalog.RatingInput) (domain.Rating, bool, error)
	ListForMovie(ctx context.Context, movieID string) ([]domain.Rating, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Rating, error)
	CheckTarget(ctx context.Context, caller domain.Principal, movieID string) error
}

// SearchGateway looks movies up in the external catalogue.
type SearchGateway interface {
	Search(ctx context.Context, query string) (omdb.Result, error)
}

// IdentityProvider registers users, logs them in and vouches for bearer tokens.
type IdentityProvider interface {
	Register(ctx context.Context, in identity.RegisterInput) (domain.User, identity.TokenPair, error)
	Login(ctx context.Context, username, password string) (domain.User, identity.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (identity.TokenPair, error)
	ParseAccess(token string) (domain.Principal, error)
}

// Deps groups the collaborators the handlers call.
type Deps struct {
	Health   HealthChecker
	Movies   MovieService
	Ratings  RatingService
	Search   SearchGateway
	Identity IdentityProvider
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg      config.Config
	health   HealthChecker
	movies   MovieService
	ratings  RatingService
	search   SearchGateway
	identity IdentityProvider
	logger   zerolog.Logger
	router   chi.Router
	httpSrv  *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, deps Deps, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		health:   deps.Health,
		movies:   deps.Movies,
		ratings:  deps.Ratings,
		search:   deps.Search,
		identity: deps.Identity,
		logger:   logger.With().Str("component", "http").Logger(),
		router:   chi.NewRouter(),
	}
	s.useMiddleware()
	s.registerRoutes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) useMiddleware() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	if s.cfg.SentryDSN != "" && sentry.CurrentHub().Client() != nil {
		r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}
	r.Use(metrics.Instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Origins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Location", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.StripSlashes)
	r.Use(s.authenticate)
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Method(http.MethodGet, "/metrics", metrics.Handler())

	s.router.Route("/auth", func(r chi.Router) {
		if s.cfg.AuthRateLimit > 0 {
			r.Use(httprate.LimitByIP(s.cfg.AuthRateLimit, time.Minute))
		}
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)
	})

	s.router.Route("/movies", func(r chi.Router) {
		r.Get("/", s.handleListMovies)
		r.Post("/", s.handleCreateMovie)
		r.Get("/search-imdb", s.handleSearchIMDB)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetMovie)
			r.Put("/", s.handleReplaceMovie)
			r.Patch("/", s.handlePatchMovie)
			r.Delete("/", s.handleDeleteMovie)
			r.Get("/ratings", s.handleListMovieRatings)
			r.Post("/ratings", s.handleSubmitRating)
		})
	})

	s.router.Get("/users/{id}/ratings", s.handleListUserRatings)
}

// Start boots the HTTP server and blocks until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpSrv.Addr).Msg("http server listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.health.HealthCheck(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("health check failed")
		s.respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
