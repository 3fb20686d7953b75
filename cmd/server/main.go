// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/skygrid/skygrid/internal/auth"
	"github.com/skygrid/skygrid/internal/database"
	"github.com/skygrid/skygrid/internal/handlers"
	"github.com/skygrid/skygrid/internal/middleware"
	"github.com/skygrid/skygrid/internal/store"
)

func main() {
	logger := logrus.New()
	if os.Getenv("LOG_LEVEL") == "debug" {
		logger.SetLevel(logrus.DebugLevel)
	}

	auth.Init()

	ctx := context.Background()

	// Redis is the production game store; without it games live in process
	// memory and do not survive a restart.
	var gameStore store.GameStore
	if rdb, err := store.ConnectRedis(ctx); err != nil {
		logger.Warnf("Redis unavailable (%v), falling back to in-memory game store", err)
		gameStore = store.NewMemoryStore()
	} else {
		logger.Info("Connected to Redis game store")
		gameStore = store.NewRedisStore(rdb)
	}

	// Postgres archiving of finished games is optional.
	var archiver *database.Archiver
	if os.Getenv("DATABASE_URL") != "" || os.Getenv("PG_HOST") != "" {
		pool, err := database.ConnectDB(ctx)
		if err != nil {
			logger.Warnf("Postgres unavailable (%v), game archiving disabled", err)
		} else {
			archiver = database.NewArchiver(pool)
			if err := archiver.EnsureSchema(ctx); err != nil {
				logger.Warnf("Archive schema setup failed (%v), game archiving disabled", err)
				archiver = nil
			} else {
				logger.Info("Connected to Postgres game archive")
			}
		}
	}

	gs := handlers.NewGameServer(logger, gameStore, archiver)

	mux := http.NewServeMux()
	gs.Routes(mux)

	addr := ":8080"
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		addr = v
	}
	httpServer := &http.Server{
		Addr:    addr,
		Handler: middleware.LogMiddleware(logger)(mux),
	}

	done := make(chan bool, 1)
	go gracefulShutdown(logger, gs, httpServer, done)

	logger.Infof("Server listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("http server error: %v", err)
	}

	<-done
	logger.Info("Graceful shutdown complete.")
}

// gracefulShutdown waits for SIGINT/SIGTERM, stops the game timers and
// drains the HTTP server. Games stay persisted in the store throughout.
func gracefulShutdown(logger *logrus.Logger, gs *handlers.GameServer, httpServer *http.Server, done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info("Shutdown signal received, press Ctrl+C again to force")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	gs.Shutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("HTTP server forced to shutdown with error: %v", err)
	}

	done <- true
}
