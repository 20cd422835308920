package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"gamehall/config"
	"gamehall/database"
	"gamehall/engine"
	"gamehall/repository"
	"gamehall/server"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Info("Starting gamehall...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	// Initialize unit of work factory and engine
	uowFactory := repository.NewUnitOfWorkFactory(db)
	eng := engine.New(uowFactory)

	// Start HTTP server
	srv := server.New(eng)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Periodic sweep of lapsed pending proposals. Readers already expire
	// sessions lazily; this only catches sessions nobody polls.
	go runSweeper(ctx, eng)

	log.Infof("Running in %s mode", cfg.Environment)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
	}

	// Cleanup resources
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down HTTP server")
	}

	log.Info("Closing database connection...")
	db.Close()

	log.Info("Shutdown completed")
	return nil
}

func runSweeper(ctx context.Context, eng *engine.Engine) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := eng.SweepExpired(ctx, 100)
			if err != nil {
				log.WithError(err).Error("Sweep of expired sessions failed")
				continue
			}
			if count > 0 {
				log.WithField("count", count).Info("Expired lapsed sessions")
			}
		}
	}
}
