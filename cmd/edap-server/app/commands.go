// Package app provides the entry point for the edap server application.
package app

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/edap/edap-server/internal/config"
	"github.com/edap/edap-server/internal/token"
	"github.com/edap/edap-server/internal/versions"
)

// NewRootCmd creates a new root command for the edap server.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "edap-server",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "e-Dnevnik grade mirror and push notification server",
		Long: `edap-server logs in to the school grading portal on behalf of its users,
keeps a copy of their grades, tests and absences, and pushes a notification
to their phone whenever something changes.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if viper.GetBool("debug") {
				logLevel.Set(slog.LevelDebug)
			}
		},
		Run: func(cmd *cobra.Command, _ []string) {
			// If no subcommand is provided, print help
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().String("config", "", "Path to configuration file (YAML format)")
	for _, name := range []string{"debug", "config"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			slog.Error("Error binding flag", "flag", name, "error", err)
		}
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newVersionCmd(),
		newTokenCmd(),
		newCheckDevicesCmd(),
		newTestUserCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return fmt.Errorf("error retrieving format flag: %w", err)
			}

			if format == "json" {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			slog.Info("edap-server version",
				"version", info.Version,
				"commit", info.Commit,
				"built", info.BuildDate,
				"go", info.GoVersion,
				"platform", info.Platform,
				"data_version", info.DataVersion)
			return nil
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token USERNAME",
		Short: "Print the token of a portal account",
		Long: `Print the token the server derives for a portal account. The password is
read from the first line of standard input so it stays out of shell history.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password := strings.TrimRight(line, "\r\n")
			if token.Normalize(args[0]) == "" || password == "" {
				return fmt.Errorf("username and password are required")
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), token.Derive(args[0], password))
			return err
		},
	}
}

// loadConfig loads the file named by --config
func loadConfig() (*config.Config, error) {
	path := viper.GetString("config")
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.LoadConfig(config.WithConfigPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	slog.Info("Loaded configuration", "path", path, "store", cfg.Store.GetType(), "connector", cfg.Connector.Type)
	return cfg, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
