package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/adboardhq/auth-relay/internal/config"
	"github.com/adboardhq/auth-relay/relay"
	"github.com/adboardhq/auth-relay/server"
	"github.com/common-nighthawk/go-figure"
	"github.com/redis/go-redis/v9"
)

const janitorInterval = time.Minute

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := newRepo(ctx, c)
	if err != nil {
		return fmt.Errorf("newRepo: %w", err)
	}
	relayServer, err := server.New(c, repo)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: relayServer}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

// newRepo picks the relay session backend: Redis when an address is
// configured (multi-instance deployments, native key expiry), otherwise
// in-memory with a janitor goroutine standing in for server-side TTL.
func newRepo(ctx context.Context, c config.Config) (relay.Repo, error) {
	if addr := c.GetRedisAddr(); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		return relay.NewRedisRepo(ctx, client, relay.WithRedisSessionTTL(c.GetRelaySessionTTL()))
	}
	repo := relay.NewInMemoryRepo(relay.WithSessionTTL(c.GetRelaySessionTTL()))
	go janitor(ctx, repo)
	return repo, nil
}

func janitor(ctx context.Context, repo *relay.InMemoryRepo) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if purged := repo.PurgeExpired(); purged > 0 {
				log.Printf("Purged %d expired relay sessions\n", purged)
			}
		}
	}
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
