// Command devserver runs the in-memory retail backend for local development.
// It serves the REST API under /api and notifications on /ws/notifications/.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/eshaffer321/retail-go/internal/devserver"
	"github.com/eshaffer321/retail-go/internal/logging"
)

func main() {
	_ = godotenv.Load()

	addr := flag.String("addr", ":8000", "Listen address")
	accessTTL := flag.Duration("access-ttl", devserver.DefaultAccessTTL, "Access token lifetime")
	refreshTTL := flag.Duration("refresh-ttl", devserver.DefaultRefreshTTL, "Refresh token lifetime")
	notify := flag.Bool("notify", true, "Push a notification whenever a resource is created")
	logLevel := flag.String("log-level", "info", "Log level")
	debug := flag.Bool("debug", false, "Run gin in debug mode")
	flag.Parse()

	logger, err := logging.New(os.Stderr, *logLevel, false)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	if !*debug {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := devserver.New(devserver.Options{
		Secret:         []byte(os.Getenv("DEVSERVER_SECRET")),
		AccessTTL:      *accessTTL,
		RefreshTTL:     *refreshTTL,
		NotifyOnCreate: *notify,
		Logger:         logger,
	})

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Development server listening", "addr", *addr, "user", "admin", "password", "admin")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	srv.CloseClients(1001, "server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", "error", err)
	}
}
