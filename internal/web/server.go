package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/justestif/spotify-stats/internal/config"
	"github.com/justestif/spotify-stats/internal/spotify"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Config   *config.Config
	Logger   *logrus.Logger
	StaticFS fs.FS

	// HTTPClient is used for accounts, proxy and API calls. Optional.
	HTTPClient *http.Client
	// Clients overrides how dashboard clients are built. Optional.
	Clients ClientFactory
}

// Server is the HTTP server for the web application.
type Server struct {
	router    chi.Router
	server    *http.Server
	logger    *logrus.Logger
	handlers  *Handlers
	dashboard *Dashboard
	proxy     *Proxy
	cors      corsPolicy
}

// NewServer creates a new web server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Config == nil {
		return nil, errors.New("config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	secure := strings.HasPrefix(cfg.Config.RedirectURL, "https://")
	sessions := NewSessionStore(secure)
	cors := corsPolicy{allowed: cfg.Config.CORSAllowedOrigins}

	var transport http.RoundTripper
	if cfg.HTTPClient != nil {
		transport = cfg.HTTPClient.Transport
	}

	factory := cfg.Clients
	if factory == nil {
		factory = defaultClientFactory(cfg.Config, cfg.HTTPClient, logger)
	}

	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger,
		handlers:  NewHandlers(cfg.Config, sessions, cfg.HTTPClient, logger),
		dashboard: NewDashboard(factory, sessions, cfg.Config.PublicOrigin()+proxyPrefix+"/", cfg.Config.EnableRecommendations, logger),
		proxy:     NewProxy(cfg.Config.APIBaseURL, cors, transport, logger),
		cors:      cors,
	}

	s.setupMiddleware()
	s.setupRoutes(cfg.StaticFS)

	var handler http.Handler = s.router
	if cfg.Config.SentryDSN != "" {
		handler = sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle(handler)
	}

	s.server = &http.Server{
		Addr:         cfg.Config.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.cors.preflight)
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes(staticFS fs.FS) {
	// OAuth edge; handlers check the method themselves.
	s.router.HandleFunc("/login", s.handlers.Login)
	s.router.HandleFunc("/spotify-callback", s.handlers.Callback)
	s.router.HandleFunc("/refresh-token", s.handlers.RefreshToken)
	s.router.HandleFunc("/api/set-tokens", s.handlers.SetTokens)
	s.router.HandleFunc("/api/get-tokens", s.handlers.GetTokens)
	s.router.HandleFunc("/api/feature-flags", s.handlers.FeatureFlags)

	s.router.Handle(proxyPrefix, s.proxy)
	s.router.Handle(proxyPrefix+"/*", s.proxy)

	// Dashboard API
	s.router.Get("/api/top/artists", s.dashboard.TopArtists)
	s.router.Get("/api/top/tracks", s.dashboard.TopTracks)
	s.router.Get("/api/genre-seeds", s.dashboard.GenreSeeds)
	s.router.Post("/api/playlists", s.dashboard.CreatePlaylist)
	s.router.Post("/api/recommendations", s.dashboard.Recommendations)

	if staticFS != nil {
		s.router.NotFound(staticHandler(staticFS))
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Infof("Starting server at http://%s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and handles graceful shutdown on interrupt signals.
func (s *Server) Run() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
		s.logger.Info("Shutting down server...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("Server stopped")
	return nil
}

// defaultClientFactory builds live clients, or one shared mock client when
// mock data is enabled.
func defaultClientFactory(cfg *config.Config, httpClient *http.Client, logger logrus.FieldLogger) ClientFactory {
	if cfg.UseMockData {
		mock := spotify.NewCaching(spotify.NewMock())
		return func(string, string) (spotify.TopListsClient, error) {
			return mock, nil
		}
	}
	return func(accessToken, proxyBaseURL string) (spotify.TopListsClient, error) {
		client, err := spotify.New(accessToken, spotify.Options{
			DirectBaseURL: cfg.APIBaseURL,
			ProxyBaseURL:  proxyBaseURL,
			HTTPClient:    httpClient,
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		return spotify.NewCaching(client), nil
	}
}

// staticHandler serves embedded assets, falling back to index.html so
// client-side routes resolve.
func staticHandler(staticFS fs.FS) http.HandlerFunc {
	files := http.FileServer(http.FS(staticFS))
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name == "" {
			name = "index.html"
		}
		if _, err := fs.Stat(staticFS, name); err != nil {
			http.ServeFileFS(w, r, staticFS, "index.html")
			return
		}
		files.ServeHTTP(w, r)
	}
}

// requestLogger logs one line per request with chi's request id.
func requestLogger(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.WithFields(logrus.Fields{
				"component":  "http",
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"duration":   time.Since(start).String(),
			}).Info("request")
		})
	}
}
