package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mossy-p/room-signaling/config"
	"github.com/mossy-p/room-signaling/internal/handlers"
	"github.com/mossy-p/room-signaling/internal/middleware"
	"github.com/mossy-p/room-signaling/internal/redis"
	"github.com/mossy-p/room-signaling/internal/signaling"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg := config.Load()
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []signaling.Option

	// Mirror presence to Redis when configured
	if cfg.Redis.Host != "" {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Str("module", "main").Err(err).Msg("failed to connect to Redis")
		}
		defer client.Close()

		presence := redis.NewPresence(client, cfg.Redis.TTL)
		go presence.Run(ctx)
		opts = append(opts, signaling.WithPresence(presence))
		log.Info().Str("module", "main").Str("addr", cfg.Redis.Host+":"+cfg.Redis.Port).Msg("Redis presence mirror enabled")
	}

	registry := signaling.NewRegistry(opts...)
	go registry.LogStatus(ctx, cfg.StatusInterval)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: newRouter(cfg, registry),
	}

	go func() {
		log.Info().Str("module", "main").Str("port", cfg.Port).Msg("starting signaling server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Str("module", "main").Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Str("module", "main").Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Str("module", "main").Err(err).Msg("server shutdown failed")
	}
	for _, room := range registry.Rooms() {
		room.Close()
	}
}

func newRouter(cfg *config.Config, registry *signaling.Registry) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Global CORS middleware (runs before routing)
	router.Use(handlers.OriginFilter(cfg.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/auth/login", handlers.Login(cfg.JWTSecret, handlers.Operator{
			Username: cfg.Operator.Username,
			Password: cfg.Operator.Password,
		}))
		apiGroup.GET("/rooms", handlers.ListRooms(registry))
		apiGroup.GET("/rooms/:roomId", handlers.GetRoom(registry))
		apiGroup.DELETE("/rooms/:roomId", middleware.JWTAuth(cfg.JWTSecret), handlers.DeleteRoom(registry))
	}

	// roomId and peerId are read from the query string
	router.GET("/ws", handlers.HandleSignaling(registry, cfg.MaxMessageSize))

	return router
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
