package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/slangdex/internal/catalog"
	"github.com/prperemyshlev/slangdex/internal/config"
	"github.com/prperemyshlev/slangdex/internal/handler"
	"github.com/prperemyshlev/slangdex/internal/repository"
	"github.com/prperemyshlev/slangdex/internal/service"
	"github.com/prperemyshlev/slangdex/internal/session"
	"github.com/prperemyshlev/slangdex/internal/utils"
	"github.com/prperemyshlev/slangdex/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const (
	shutdownTimeout      = 5 * time.Second
	tokenCleanupInterval = time.Hour
)

type App struct {
	infra   Infrastructure
	config  *config.Config
	repos   *repository.Repositories
	session *session.Manager
	router  *gin.Engine
	server  *http.Server
}

type handlers struct {
	auth      *handler.AuthHandler
	session   *handler.SessionHandler
	profile   *handler.ProfileHandler
	words     *handler.WordHandler
	community *handler.CommunityHandler
	quizzes   *handler.QuizHandler
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	logger := infra.Logger()
	clock := infra.Clock()
	repos := repository.NewRepositories(infra.Postgres())

	jwtManager := utils.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry.Duration,
		cfg.JWT.RefreshTokenExpiry.Duration,
		clock,
	)

	revocations := service.NewTokenRevocationList(infra.Redis())
	rateLimiter := service.NewRateLimiter(infra.Redis(), clock)
	healthChecker := NewHealthChecker(infra)

	identityService := service.NewIdentityService(
		repos.User,
		repos.Token,
		jwtManager,
		revocations,
		rateLimiter,
		service.IdentityOptions{
			AllowPasswordSignup: cfg.Session.AllowPasswordSignup,
			AllowAnonymous:      cfg.Session.AllowAnonymous,
			BCryptCost:          cfg.Security.BCryptCost,
			LoginAttempts:       cfg.Security.RateLimitRequests,
			LoginWindow:         cfg.Security.RateLimitWindow.Duration,
		},
		clock,
		logger.Named("identity"),
	)
	profileService := service.NewProfileService(infra.Documents(), logger.Named("profiles"))

	placeholders, err := catalog.PlaceholderWords(clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to load placeholder words: %w", err)
	}
	var index service.WordIndex
	if cfg.Search.Enabled {
		index = repos.Word
	}
	searchService := service.NewSearchService(index, placeholders, service.SearchOptions{
		DefaultLimit:      cfg.Search.DefaultLimit,
		ResultLimit:       cfg.Search.ResultLimit,
		SynthesizeMissing: cfg.Search.SynthesizeMissing,
	}, clock, logger.Named("search"))

	seed, err := catalog.Community()
	if err != nil {
		return nil, fmt.Errorf("failed to load community seed: %w", err)
	}
	communityService, err := service.NewCommunityService(seed, service.CommunityOptions{
		PostsPerMinute: cfg.Community.PostsPerMinute,
		PostBurst:      cfg.Community.PostBurst,
		MaxPostLength:  cfg.Community.MaxPostLength,
	}, clock, logger.Named("community"))
	if err != nil {
		return nil, err
	}

	quizzes, err := catalog.Quizzes()
	if err != nil {
		return nil, fmt.Errorf("failed to load quizzes: %w", err)
	}
	quizService := service.NewQuizService(quizzes)

	manager := session.NewManager(identityService, profileService, infra.Blobs(), session.Options{
		RetryUnit:  cfg.Session.RetryUnit.Duration,
		MaxRetries: cfg.Session.MaxRetries,
		Clock:      clock,
		Logger:     logger,
	})

	h := handlers{
		auth:      handler.NewAuthHandler(manager, identityService, cfg.Env == "production"),
		session:   handler.NewSessionHandler(manager),
		profile:   handler.NewProfileHandler(manager, profileService, searchService, cfg.Blob.MaxUploadSize, logger),
		words:     handler.NewWordHandler(searchService, manager, cfg.Search.DefaultLimit, logger),
		community: handler.NewCommunityHandler(communityService, manager),
		quizzes:   handler.NewQuizHandler(quizService),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("slangdex"))
	router.Use(handler.LoggerMiddleware(logger))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, h, handler.AuthMiddleware(identityService, manager), rateLimiter, healthChecker, infra.MetricsHandler(), logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:   infra,
		config:  cfg,
		repos:   repos,
		session: manager,
		router:  router,
		server:  srv,
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	h handlers,
	requireAuth gin.HandlerFunc,
	rateLimiter *service.RateLimiter,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
	logger *zap.Logger,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)
	router.Static("/media", cfg.Blob.Root)

	limit := handler.RateLimitMiddleware(rateLimiter, cfg.Security.RateLimitRequests,
		cfg.Security.RateLimitWindow.Duration, handler.IPBasedKey, logger)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", limit, h.auth.Register)
			auth.POST("/login", limit, h.auth.Login)
			auth.POST("/guest", limit, h.auth.Guest)
			auth.POST("/refresh", h.auth.Refresh)
			auth.POST("/logout", requireAuth, h.auth.Logout)
		}

		api.GET("/session", h.session.Get)
		api.GET("/session/events", h.session.Events)

		words := api.Group("/words")
		{
			words.GET("", h.words.Search)
			words.GET("/trending", h.words.Trending)
			words.GET("/:id", h.words.Get)
		}

		me := api.Group("/me", requireAuth)
		{
			me.GET("", h.profile.GetMe)
			me.PATCH("", h.profile.UpdateMe)
			me.PATCH("/settings", h.profile.UpdateSettings)
			me.POST("/photo", h.profile.UploadPhoto)
			me.GET("/favorites", h.profile.Favorites)
			me.PUT("/favorites/:wordId", h.profile.AddFavorite)
			me.DELETE("/favorites/:wordId", h.profile.RemoveFavorite)
			me.GET("/recents", h.profile.Recents)
		}

		community := api.Group("/community")
		{
			community.GET("/posts", h.community.ListPosts)
			community.POST("/posts", requireAuth, h.community.CreatePost)
			community.POST("/posts/:id/like", requireAuth, h.community.ToggleLike)
			community.GET("/topics", h.community.Topics)
		}

		quizzes := api.Group("/quizzes")
		{
			quizzes.GET("", h.quizzes.List)
			quizzes.GET("/featured", h.quizzes.Featured)
			quizzes.GET("/:id", h.quizzes.Get)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
			zap.String("store_backend", a.config.StoreBackend),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go a.cleanupTokens(cleanupCtx)

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

// cleanupTokens periodically deletes expired refresh tokens
func (a *App) cleanupTokens(ctx context.Context) {
	ticker := a.infra.Clock().NewTicker(tokenCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			n, err := a.repos.Token.DeleteExpired(ctx)
			if err != nil {
				a.infra.Logger().Warn("failed to delete expired refresh tokens", zap.Error(err))
				continue
			}
			if n > 0 {
				a.infra.Logger().Info("deleted expired refresh tokens", zap.Int64("count", n))
			}
		}
	}
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// SSE streams only end once the session manager is closed
	a.session.Close()
	serverErr := a.server.Shutdown(ctx)

	err := errors.Join(serverErr, a.infra.Shutdown(ctx))
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
