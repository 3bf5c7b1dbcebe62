package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/peer-chess/internal/adapters/transport/relay"
	"github.com/spf13/cobra"
)

const (
	defaultPendingTTL = 2 * time.Minute
	shutdownTimeout   = 5 * time.Second
)

func newRelayCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run the relay that connects players",
	}

	cmd.AddCommand(newRelayServeCmd(app))
	return cmd
}

func newRelayServeCmd(app *app) *cobra.Command {
	var pendingTTL time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve websocket clients until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log := app.logger()
			listen := app.config.GetString(relayListenKey)
			hub := relay.NewHub(log, relay.NewMetrics(), relay.NewIntentTable(pendingTTL))

			server := &http.Server{
				Addr:              listen,
				Handler:           hub.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			serveErr := make(chan error, 1)
			go func() {
				serveErr <- server.ListenAndServe()
			}()
			log.Info("relay listening", "addr", listen)

			select {
			case err := <-serveErr:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serve relay: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			log.Info("relay shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().String("listen", defaultRelayListen, "Address the relay listens on")
	cmd.Flags().DurationVar(&pendingTTL, "pending-ttl", defaultPendingTTL, "How long an unanswered negotiation is remembered")
	_ = app.config.BindPFlag(relayListenKey, cmd.Flags().Lookup("listen"))

	return cmd
}
