package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/manobala/peer-chat/internal/cache"
	"github.com/manobala/peer-chat/internal/config"
	"github.com/manobala/peer-chat/internal/domain"
	"github.com/manobala/peer-chat/internal/handler"
	"github.com/manobala/peer-chat/internal/hub"
	"github.com/manobala/peer-chat/internal/membership"
	"github.com/manobala/peer-chat/internal/metrics"
	"github.com/manobala/peer-chat/internal/repository"
	"github.com/manobala/peer-chat/internal/seed"
	"github.com/manobala/peer-chat/internal/service"
	"github.com/manobala/peer-chat/pkg/database"
	"github.com/manobala/peer-chat/pkg/jwt"
	pkglog "github.com/manobala/peer-chat/pkg/log"
	"github.com/manobala/peer-chat/pkg/middleware"
	"github.com/manobala/peer-chat/pkg/pubsub"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	if cfg.Log.ServiceName == "" {
		cfg.Log.ServiceName = "peer-chat"
	}
	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	// Connect to database using GORM
	db, err := database.New(cfg.Database.ToDatabaseConfig(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db, domain.Models()...); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database migration completed")

	forumRepo := repository.NewGormForumRepository(db)
	chatRepo := repository.NewGormExpertChatRepository(db, cfg.Chat.PreviewLength)
	directory := repository.NewGormUserDirectory(db)

	// Redis cache is optional
	var appCache cache.Cache = cache.NopCache{}
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(cfg.Redis, "peerchat")
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, running without cache")
		} else {
			appCache = redisCache
			logger.Info().Str("addr", cfg.Redis.Address).Msg("redis cache connected")
		}
	}
	defer appCache.Close()

	if _, err := seed.Rooms(context.Background(), forumRepo, appCache); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed rooms")
	}

	publisher, err := pubsub.NewPublisher(cfg.Events)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create event publisher")
	}
	defer publisher.Close()

	// Hub
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracker := membership.NewTracker()
	wsHub := hub.NewHub(cfg.WebSocket, cfg.Poll, tracker)
	go wsHub.Run(ctx)

	forumSvc := service.NewForumService(forumRepo, directory, appCache, tracker, wsHub, publisher, cfg.Cache, cfg.Chat)
	chatSvc := service.NewExpertChatService(chatRepo, directory, appCache, wsHub, publisher, cfg.Cache, cfg.Chat)
	gatewaySvc := service.NewGatewayService(forumRepo, chatRepo, directory, appCache, tracker, wsHub, cfg.Cache, cfg.Chat)

	verifier, err := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, 0)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create token verifier")
	}
	authMiddleware := middleware.NewAuthMiddleware(verifier)
	dispatcher := handler.NewIntentDispatcher(gatewaySvc)

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))
	r.Use(metrics.GinMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": wsHub.ClientCount()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.NewHandler(forumSvc, chatSvc, authMiddleware).RegisterRoutes(r)
	handler.NewWSHandler(wsHub, gatewaySvc, dispatcher, authMiddleware, cfg.WebSocket, cfg.CORS.AllowedOrigins).RegisterRoutes(r)
	handler.NewPollHandler(wsHub, gatewaySvc, dispatcher, authMiddleware, cfg.WebSocket, cfg.Poll).RegisterRoutes(r)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Length", "X-Request-ID"},
		MaxAge:           300,
		AllowCredentials: true,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Str("events", cfg.Events.Driver).Msg("peer-chat starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("server forced to shutdown")
	}
	cancel()

	logger.Info().Msg("peer-chat stopped")
}
