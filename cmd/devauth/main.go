package main

import (
	"context"
	"log"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fitlink/devauth/adapters/events"
	"github.com/fitlink/devauth/adapters/store"
	"github.com/fitlink/devauth/adapters/tokenizer"
	"github.com/fitlink/devauth/internal/config"
	"github.com/fitlink/devauth/service"
	transport "github.com/fitlink/devauth/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: redisClient},
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		logger.Fatal("failed to create event publisher", zap.Error(err))
	}

	tok, err := tokenizer.NewJWTTokenizerWithAlgorithm(
		cfg.Auth.JWTSecret, cfg.Auth.JWTAlgorithm, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	if err != nil {
		logger.Fatal("invalid token configuration", zap.Error(err))
	}

	authService := service.NewAuthService(
		service.Config{
			HMACSecret:  cfg.Auth.HMACSecret,
			DriftWindow: time.Duration(cfg.Auth.DriftSeconds) * time.Second,
			NonceTTL:    time.Duration(cfg.Auth.NonceTTLSeconds) * time.Second,
		},
		store.NewRedisStore(redisClient, logger),
		tok,
		events.NewWatermillPublisher(publisher),
		logger,
	)

	opts := transport.RouterOptions{
		EnforceAccessToken: cfg.Auth.EnforceAccessToken,
		Redis:              redisClient,
	}
	if cfg.RateLimit.Enabled {
		opts.AuthPerMinute = cfg.RateLimit.AuthPerMinute
	}

	router := transport.SetupRouter(authService, logger, opts)

	logger.Info("starting server",
		zap.String("addr", cfg.Server.Addr()),
		zap.Bool("enforce_access_token", cfg.Auth.EnforceAccessToken),
	)
	if err := router.Run(cfg.Server.Addr()); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
