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

	_ "github.com/joho/godotenv/autoload"

	"space/internal/config"
	"space/internal/devserver"
	"space/internal/logger"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	fmt.Println("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		fmt.Printf("Server forced to shutdown with error: %v\n", err)
	}

	done <- true
}

func main() {
	log := logger.New()
	logger.SetDefault(log)

	port := config.GetEnvOrDefault("PORT", "5000")
	secret := config.GetEnvOrDefault("DEVSERVER_SECRET", "space-dev-secret")

	state := devserver.NewState()
	if config.GetEnvOrDefault("DEVSERVER_SEED", "") == "true" {
		seed(state)
		log.Info("seeded demo data")
	}

	srv := devserver.New(state, secret, log)

	apiServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.RegisterRoutes(),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, done)

	log.Info("dev server listening", "port", port)
	if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err.Error())
		os.Exit(1)
	}

	<-done
	log.Info("server exiting")
}

// seed creates two demo accounts and a small feed so a fresh checkout has
// something to render.
func seed(state *devserver.State) {
	alice := state.AddUser("Alice Doe", "alice", "alice@example.com", "password1", "")
	bob := state.AddUser("Bob Roe", "bob", "bob@example.com", "password2", "")

	state.AddPost(alice.ID, "First post on Space! #hello", "")
	state.AddPost(bob.ID, "Setting up my profile.", "")
}
