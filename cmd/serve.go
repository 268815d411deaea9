package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shuffle-and-Sync/shufflesync-cli/internal/relay"
	"github.com/Shuffle-and-Sync/shufflesync-cli/internal/ui"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local signaling relay",
	Long: `Run a local Shuffle & Sync signaling relay for development or LAN play.

Clients join rooms against it with:
  shufflesync join <room-id> --server http://<host>:8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRelay(flagAddr)
	},
}

func runRelay(addr string) error {
	hub := relay.NewHub()
	go hub.Run()

	server := &http.Server{
		Addr:              addr,
		Handler:           relay.NewRouter(hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("signaling relay listening", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	ui.PrintSuccess("Relay listening on " + addr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sig:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&flagAddr, "addr", ":8080", "Listen address")
}
