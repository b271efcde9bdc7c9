package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	echoapi "github.com/edustack/authserver/api/echo"
	"github.com/edustack/authserver/cache"
	redisstore "github.com/edustack/authserver/cache/redis"
	"github.com/edustack/authserver/config"
	"github.com/edustack/authserver/internal/auth"
	"github.com/edustack/authserver/log"
	"github.com/edustack/authserver/mongodb"
	"github.com/edustack/authserver/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
	}
	appLogger := log.NewZerologAdapter(logLevel, cfg.LogPretty)

	ctx := context.Background()
	appLogger.Info(ctx, "Starting authorization server", map[string]any{
		"http_port":     cfg.HTTPPort,
		"mongo_db_name": cfg.MongoDBName,
		"redis_enabled": cfg.RedisAddr != "",
		"log_level":     cfg.LogLevel,
	})

	// --- Storage ---
	mongoClient, err := mongodb.Connect(ctx, cfg.MongoURI)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to connect to MongoDB", err)
	}
	db := mongoClient.Database(cfg.MongoDBName)

	userRepo := mongodb.NewUserRepository(db)
	clientRepo := mongodb.NewClientRepository(db)
	codeRepo := mongodb.NewAuthCodeRepository(db)
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		appLogger.Fatal(ctx, "Failed to create user indexes", err)
	}
	if err := codeRepo.EnsureIndexes(ctx); err != nil {
		appLogger.Fatal(ctx, "Failed to create auth code indexes", err)
	}

	// --- Blacklist and pending stores, Redis when configured ---
	var (
		blacklist   cache.TokenBlacklist
		pendingRepo cache.PendingAuthorizationStore
	)
	if cfg.RedisAddr != "" {
		redisClient := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			appLogger.Fatal(ctx, "Failed to connect to Redis", err)
		}
		blacklist = redisstore.NewTokenBlacklist(redisClient)
		pendingRepo = redisstore.NewPendingAuthorizationStore(redisClient)
		defer redisClient.Close()
	} else {
		blacklist = cache.NewMemoryTokenBlacklist()
		pendingRepo = cache.NewMemoryPendingAuthorizationStore()
	}
	defer blacklist.Close()
	defer pendingRepo.Close()

	// --- Services ---
	passwordHasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	jwtService := services.NewJWTService(cfg.JWTSecretKey, cfg.Issuer, blacklist)
	authService := services.NewAuthService(userRepo, passwordHasher)
	codeService := services.NewAuthCodeService(codeRepo)
	authzService := services.NewAuthorizationService(clientRepo, pendingRepo, codeService)
	tokenService := services.NewTokenService(clientRepo, userRepo, codeService, jwtService, passwordHasher)

	// --- HTTP server ---
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	oauthAPI := echoapi.NewOAuth2API(authService, authzService, tokenService, jwtService,
		func(ctx context.Context) error { return mongodb.Ping(ctx, mongoClient) })
	oauthAPI.RegisterRoutes(e)

	go func() {
		appLogger.Info(ctx, "HTTP server listening", map[string]any{"port": cfg.HTTPPort})
		if err := e.Start(":" + cfg.HTTPPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal(ctx, "Failed to start HTTP server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info(ctx, "Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "HTTP server shutdown error", err)
	}
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "Error closing MongoDB connection", err)
	}

	appLogger.Info(shutdownCtx, "Server gracefully stopped")
}
