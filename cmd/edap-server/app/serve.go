package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	edapapp "github.com/edap/edap-server/internal/app"
)

// gracefulTimeout bounds shutdown. Workers stop at their next cancellation
// point, so this mostly waits for in-flight portal fetches.
const gracefulTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the edap API server",
		Long: `Start the edap API server.

On startup a sync worker is restored for every stored profile before the
listener opens. SIGINT or SIGTERM stops all workers and drains requests.`,
		RunE: runServe,
	}

	cmd.Flags().String("address", "", "Address to listen on (overrides server.address)")
	if err := viper.BindPFlag("address", cmd.Flags().Lookup("address")); err != nil {
		slog.Error("Failed to bind address flag", "error", err)
	}
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	closeLog := configureLogFile(cfg.Logging)
	defer closeLog()

	opts := []edapapp.EdapAppOptions{edapapp.WithConfig(cfg)}
	if addr := viper.GetString("address"); addr != "" {
		opts = append(opts, edapapp.WithAddress(addr))
	}

	app, err := edapapp.NewEdapApp(context.WithoutCancel(ctx), opts...)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	select {
	case err = <-errCh:
		// the listener failed; release what was built
		if stopErr := app.Stop(gracefulTimeout); stopErr != nil {
			slog.Error("Shutdown after failed start", "error", stopErr)
		}
		return err
	case <-ctx.Done():
	}

	if err := app.Stop(gracefulTimeout); err != nil {
		return err
	}
	return <-errCh
}
