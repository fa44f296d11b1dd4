package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"cadenza/internal/auth"
	"cadenza/internal/catalog"
	"cadenza/internal/config"
	"cadenza/internal/media"
	"cadenza/internal/ngrok"
	"cadenza/internal/player"

	"github.com/sirupsen/logrus"
)

// CatalogServer is the HTTP front of the catalog
type CatalogServer struct {
	config       *config.Config
	catalog      *catalog.Service
	auth         *auth.Service
	media        *media.LocalStorage
	player       *player.StateManager
	ngrokService *ngrok.Service
	loginLimiter *ipRateLimiter
	logger       *logrus.Logger

	handler    http.Handler
	httpServer *http.Server
}

// Dependencies groups the services the server routes to
type Dependencies struct {
	Catalog *catalog.Service
	Auth    *auth.Service
	Media   *media.LocalStorage
	Player  *player.StateManager
	Ngrok   *ngrok.Service
}

// NewCatalogServer creates a new server instance
func NewCatalogServer(cfg *config.Config, deps Dependencies, logger *logrus.Logger) *CatalogServer {
	if logger == nil {
		logger = logrus.New()
	}

	cs := &CatalogServer{
		config:       cfg,
		catalog:      deps.Catalog,
		auth:         deps.Auth,
		media:        deps.Media,
		player:       deps.Player,
		ngrokService: deps.Ngrok,
		loginLimiter: newIPRateLimiter(cfg.Auth.LoginRatePerMinute, cfg.Auth.LoginBurst),
		logger:       logger,
	}
	cs.handler = cs.setupRoutes()
	return cs
}

// Handler returns the routed handler with middleware applied
func (cs *CatalogServer) Handler() http.Handler {
	return cs.handler
}

func (cs *CatalogServer) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", cs.handleHome)
	mux.HandleFunc("GET /health", cs.handleHealthCheck)
	mux.Handle("GET "+cs.media.Prefix()+"/", cs.media.Handler())

	// Albums
	mux.HandleFunc("POST /api/albums", cs.handleCreateAlbum)
	mux.HandleFunc("GET /api/albums", cs.handleGetAlbums)
	mux.HandleFunc("GET /api/albums/{id}", cs.handleGetAlbum)
	mux.HandleFunc("POST /api/albums/{id}/recompute", cs.handleRecomputeAlbum)

	// Songs
	mux.HandleFunc("POST /api/songs", cs.handleCreateSong)
	mux.HandleFunc("GET /api/songs", cs.handleGetSongs)
	mux.HandleFunc("GET /api/songs/{id}", cs.handleGetSong)
	mux.HandleFunc("GET /api/songs/{id}/stream", cs.handleStreamSong)
	mux.HandleFunc("PUT /api/songs/{id}", cs.handleUpdateSong)
	mux.HandleFunc("DELETE /api/songs/{id}", cs.handleDeleteSong)

	// Categories
	mux.HandleFunc("GET /api/categories", cs.handleGetCategories)
	mux.HandleFunc("GET /api/categories/{id}", cs.handleGetCategory)

	// Auth
	mux.Handle("POST /api/auth/register", cs.loginLimitMiddleware(http.HandlerFunc(cs.handleRegister)))
	mux.Handle("POST /api/auth/login", cs.loginLimitMiddleware(http.HandlerFunc(cs.handleLogin)))
	mux.Handle("GET /api/auth/user", cs.requireAuth(cs.handleGetUser))

	// Playlists
	mux.Handle("POST /api/playlists", cs.requireAuth(cs.handleCreatePlaylist))
	mux.Handle("GET /api/playlists/user", cs.requireAuth(cs.handleGetUserPlaylists))
	mux.Handle("GET /api/playlists/{id}", cs.requireAuth(cs.handleGetPlaylist))
	mux.Handle("POST /api/playlists/add-song", cs.requireAuth(cs.handleAddSongToPlaylist))
	mux.Handle("DELETE /api/playlists/{playlistId}/songs/{songId}", cs.requireAuth(cs.handleRemoveSongFromPlaylist))
	mux.Handle("PUT /api/playlists/{id}", cs.requireAuth(cs.handleUpdatePlaylist))
	mux.Handle("DELETE /api/playlists/{id}", cs.requireAuth(cs.handleDeletePlaylist))

	// Player
	mux.Handle("GET /api/player", cs.requireAuth(cs.handleGetPlayerState))
	mux.Handle("POST /api/player/actions", cs.requireAuth(cs.handlePlayerAction))

	var handler http.Handler = mux
	handler = cs.requestLoggingMiddleware(handler)
	handler = cs.corsMiddleware(handler)
	handler = cs.panicRecoveryMiddleware(handler)
	return handler
}

// Start serves HTTP until the listener fails or Shutdown is called. The
// tunnel, when configured, is opened once the listener is up.
func (cs *CatalogServer) Start(ctx context.Context) error {
	cs.httpServer = &http.Server{
		Addr:         cs.config.GetAddress(),
		Handler:      cs.handler,
		ReadTimeout:  time.Duration(cs.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cs.config.Server.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- cs.httpServer.ListenAndServe()
	}()

	cs.logger.WithField("address", cs.config.GetAddress()).Info("Cadenza server listening")

	if cs.ngrokService != nil {
		if err := cs.ngrokService.StartTunnel(ctx, "http://"+cs.localAddress()); err != nil {
			cs.logger.WithError(err).Warn("Could not start ngrok tunnel")
		}
	}

	err := <-errCh
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// localAddress is the address the tunnel forwards to
func (cs *CatalogServer) localAddress() string {
	host := cs.config.Server.Host
	if host == "0.0.0.0" || host == "" {
		host = "127.0.0.1"
	}
	return host + ":" + cs.config.Server.Port
}

// Shutdown gracefully shuts down the server
func (cs *CatalogServer) Shutdown(ctx context.Context) error {
	cs.logger.Info("Shutting down catalog server")

	if err := cs.ngrokService.Stop(); err != nil {
		cs.logger.WithError(err).Warn("Failed to stop ngrok tunnel")
	}
	cs.loginLimiter.Close()

	if cs.httpServer == nil {
		return nil
	}
	return cs.httpServer.Shutdown(ctx)
}
