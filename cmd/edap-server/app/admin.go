package app

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	edapapp "github.com/edap/edap-server/internal/app"
	"github.com/edap/edap-server/internal/service"
)

// withService runs fn against a fully wired service without opening the listener
func withService(ctx context.Context, fn func(service.Service) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := edapapp.NewEdapApp(ctx, edapapp.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	defer func() { _ = app.Stop(10 * time.Second) }()

	return fn(app.Service())
}

func newCheckDevicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-devices",
		Short: "Report tokens whose push device no longer exists",
		RunE: func(cmd *cobra.Command, _ []string) error {
			autoDelete, err := cmd.Flags().GetBool("delete")
			if err != nil {
				return err
			}
			return withService(cmd.Context(), func(svc service.Service) error {
				report, err := svc.CheckInactiveDevices(cmd.Context(), autoDelete)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().Bool("delete", false, "Purge tokens with an inactive device")
	return cmd
}

func newTestUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "testuser",
		Short: "Create a synthetic account that is never synced",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd.Context(), func(svc service.Service) error {
				user, err := svc.CreateTestUser(cmd.Context())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), user)
			})
		},
	}
}
