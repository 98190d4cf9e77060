// Package main runs the development vault server: the authorization code
// endpoints and the bearer-protected encrypted object store, backed by
// PostgreSQL.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/SecureNotes/internal/config"
	"github.com/atinyakov/SecureNotes/internal/db"
	"github.com/atinyakov/SecureNotes/internal/logger"
	"github.com/atinyakov/SecureNotes/internal/middleware"
	"github.com/atinyakov/SecureNotes/internal/repository"
	"github.com/atinyakov/SecureNotes/internal/server/handler/http"
	"github.com/atinyakov/SecureNotes/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const (
	tokenTTL        = 24 * time.Hour
	cleanupInterval = time.Hour
	codeRetention   = 24 * time.Hour
	shutdownTimeout = 10 * time.Second
)

func main() {
	options := config.Parse()

	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	postgresDB, err := db.InitPostgres(ctx, options.DatabaseDSN, zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	db.StartAuthCodeCleaner(ctx, postgresDB, cleanupInterval, codeRetention, zapLogger)

	authRepo := repository.NewPostgresAuthRepository(postgresDB)
	objectRepo := repository.NewPostgresObjectRepository(postgresDB)

	issuer := middleware.NewTokenIssuer(options.JWTSecret, tokenTTL)
	authService := service.NewAuthService(authRepo, issuer, options.AppTokens)
	objectService := service.NewObjectService(objectRepo, options.QuotaBytes)

	authHandler := &http.AuthHandler{AuthService: authService, Log: zapLogger}
	objectHandler := &http.ObjectHandler{Service: objectService, Log: zapLogger}

	router := http.NewRouter(authHandler, objectHandler, issuer.TokenAuth, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if options.TLSEnabled() {
			cert, err := tls.LoadX509KeyPair(options.TLSCert, options.TLSKey)
			if err != nil {
				errCh <- fmt.Errorf("load server TLS cert/key: %w", err)
				return
			}
			server.TLSConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}
			zapLogger.Info("starting HTTPS server", zap.String("addr", options.Port))
			errCh <- server.ListenAndServeTLS("", "")
			return
		}
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Port))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		zapLogger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}
