package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"neonpong/internal/config"
	"neonpong/internal/lobby"
)

func main() {
	if len(os.Args) == 1 {
		config.LoadConfig("")
	} else {
		config.LoadConfig(os.Args[1])
	}

	slog.SetLogLoggerLevel(slog.Level(config.Config.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("Starting neon pong broker...")
	if err := LobbyListen(ctx, config.Config.BrokerAddr); err != nil {
		slog.Error("broker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// LobbyListen serves the rendezvous broker on addr until ctx is done.
func LobbyListen(ctx context.Context, addr string) error {
	l := lobby.CreateLobby()
	srv := &http.Server{
		Addr:              addr,
		Handler:           l.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		slog.Info("broker listening", slog.String("addr", addr))
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	fmt.Println("Broker stopped")
	return nil
}
