package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docinsight/internal/bootstrap"
	httptransport "docinsight/internal/transport/http"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx)
	if err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("close resources failed: %v", err)
		}
	}()

	if app.Failover != nil {
		app.Failover.StartProbe(ctx)
	}
	startSweepers(ctx, app)

	router := httptransport.NewRouter(app)
	server := &http.Server{
		Addr:              app.Config.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	waitForShutdown(server)
}

// startSweepers runs the background expiry loops: one for idle sessions,
// one for expired file-cache entries.
func startSweepers(ctx context.Context, app *bootstrap.App) {
	sessionInterval := time.Duration(app.Config.Session.SweepIntervalMinutes) * time.Minute
	if sessionInterval <= 0 {
		sessionInterval = 10 * time.Minute
	}

	go func() {
		ticker := time.NewTicker(sessionInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := app.Sessions.SweepExpired(); n > 0 {
					log.Printf("swept %d expired sessions", n)
				}
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(sessionInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := app.FileBackend.SweepExpired(ctx)
				if err != nil {
					log.Printf("file cache sweep failed: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("swept %d expired cache entries", n)
				}
			}
		}
	}()
}

func waitForShutdown(server *http.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown failed: %v", err)
	}
}
