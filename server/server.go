package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TuneBox/cache"
	"TuneBox/config"
	"TuneBox/core/audio"
	"TuneBox/core/auth"
	"TuneBox/core/catalog"
	"TuneBox/core/playlist"
	"TuneBox/db"
	"TuneBox/logger"
	"TuneBox/repository"
	"TuneBox/storage"

	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
)

// NewRouter wires every route and wraps them in CORS, logging and recovery.
func NewRouter(h *APIHandler) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", h.HealthHandler).Methods(http.MethodGet)

	// 曲库
	router.HandleFunc("/api/Music/songs", h.GetSongsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/Music/songs/search", h.SearchSongsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/Music/songs/{id}", h.GetSongHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/Music/songs", h.AdminMiddleware(h.UploadSongHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/Music/songs/{id}", h.AdminMiddleware(h.DeleteSongHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/Music/genres", h.GetGenresHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/Music/genres/{name}/songs", h.GetSongsByGenreHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/Music/genres/{name}", h.AdminMiddleware(h.DeleteGenreHandler)).Methods(http.MethodDelete)

	// 歌单
	router.HandleFunc("/api/Playlists", h.AuthMiddleware(h.CreatePlaylistHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/Playlists/users/{userId}/playlists", h.GetUserPlaylistsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/Playlists/{id}", h.GetPlaylistHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/Playlists/{id}", h.AuthMiddleware(h.RenamePlaylistHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/Playlists/{id}", h.AuthMiddleware(h.DeletePlaylistHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/Playlists/{id}/songs/{songId}", h.AuthMiddleware(h.AddSongToPlaylistHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/Playlists/{id}/songs/{songId}", h.AuthMiddleware(h.RemoveSongFromPlaylistHandler)).Methods(http.MethodDelete)

	// 用户认证
	router.HandleFunc("/api/Users/Register", h.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/Users/SignIn", h.SignInHandler).Methods(http.MethodPost)

	router.Handle("/audio/mp3/{file}", NewStaticHandler(h.store)).Methods(http.MethodGet, http.MethodHead)

	// Frontend UI serving
	if h.cfg.WebDir != "" {
		if info, err := os.Stat(h.cfg.WebDir); err == nil && info.IsDir() {
			router.PathPrefix("/").Handler(http.FileServer(http.Dir(h.cfg.WebDir)))
		}
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Range"},
		ExposedHeaders:   []string{"Content-Length", "Content-Range", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           86400,
	})

	return recoveryMiddleware(loggingMiddleware(corsHandler(router)))
}

// App holds the long-lived resources behind the HTTP server.
type App struct {
	Handler http.Handler
	closers []func() error
}

// Close releases database and Redis connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build connects to the database, audio store and optional Redis, then
// assembles the services and router.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{}

	gdb, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, func() error { return db.Close(gdb) })

	if err := db.Migrate(gdb); err != nil {
		app.Close()
		return nil, err
	}

	store, err := storage.New(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize audio store: %w", err)
	}

	prober, err := audio.NewProber(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		redisClient, err = cache.ConnectRedis(ctx, cfg)
		if err != nil {
			// 没有 Redis 时退化为进程内限流
			logger.Warn("[Server] Redis 不可用，使用进程内限流", logger.ErrorField(err))
		} else {
			app.closers = append(app.closers, redisClient.Close)
		}
	}

	userRepo := repository.NewGormUserRepository(gdb)
	genreRepo := repository.NewGormGenreRepository(gdb)
	songRepo := repository.NewGormSongRepository(gdb)
	playlistRepo := repository.NewGormPlaylistRepository(gdb)

	authService := auth.NewService(
		userRepo,
		auth.NewHasher(cfg.PBKDF2Iterations),
		auth.NewTokenIssuer(cfg.JWTKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL),
		cache.NewSignInLimiter(cfg, redisClient),
	)
	catalogService := catalog.NewService(genreRepo, songRepo, store, prober)
	playlistService := playlist.NewService(playlistRepo, songRepo)

	app.Handler = NewRouter(NewAPIHandler(cfg, authService, catalogService, playlistService, store))
	return app, nil
}

// Start initializes and starts the HTTP server, blocking until SIGINT or SIGTERM.
func Start(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	// 设置服务器超时，上传接口需要更长的读超时
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.UploadTimeout,
		WriteTimeout:      cfg.UploadTimeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("[Server] 服务启动", logger.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("[Server] Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("[Server] Server stopped")
	return nil
}
