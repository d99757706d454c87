package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tuition-notify/internal/app"
	"github.com/tuition-notify/internal/config"
	jwtinfra "github.com/tuition-notify/internal/infrastructure/jwt"
	"github.com/tuition-notify/internal/pkg/logger"
	transporthttp "github.com/tuition-notify/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	zl, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	a, err := app.New(context.Background(), cfg, zl, app.Options{Bootstrap: true})
	if err != nil {
		zl.Fatal("wiring failed", zap.Error(err))
	}
	defer a.Close()

	// Bearer auth is optional; without a key file the push endpoint is rate limited only.
	jwtProvider, err := jwtinfra.NewOptionalProvider(cfg)
	if err != nil {
		zl.Fatal("JWT public key", zap.Error(err))
	}
	if jwtProvider == nil {
		zl.Warn("no JWT public key, push endpoint is unauthenticated", zap.String("path", cfg.JWTPublicKeyPath))
	}

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Notifications: a.Notifications,
		JWTProvider:   jwtProvider,
		Log:           zl,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("server starting", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("forced shutdown", zap.Error(err))
	}
	zl.Info("server stopped")
}
