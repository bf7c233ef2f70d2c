package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openclaw/clawgateway"
	"github.com/openclaw/clawgateway/instrumentation"
)

var (
	configPath    string
	portOverride  int
	enableMetrics bool
)

var rootCmd = &cobra.Command{
	Use:   "clawgateway",
	Short: "Authenticating reverse proxy with OAuth2 SSO",
	Long: `ClawGateway terminates SSO login against OAuth2 identity providers,
maps the authenticated identity to a role or profile, and proxies HTTP and
WebSocket traffic to the matching backend instance.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		inst, err := instrumentation.New(instrumentation.Config{
			ServiceName: "clawgateway",
			Enabled:     enableMetrics,
		})
		if err != nil {
			return fmt.Errorf("failed to set up instrumentation: %w", err)
		}

		server, err := clawgateway.NewServer(clawgateway.ServerConfig{
			ConfigPath:      configPath,
			PortOverride:    portOverride,
			Logger:          logger,
			Instrumentation: inst,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return server.Start(ctx)
	},
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to the gateway config file (required)")
	rootCmd.Flags().IntVar(&portOverride, "port", 0, "override the configured listen port")
	rootCmd.Flags().BoolVar(&enableMetrics, "metrics", false, "enable OpenTelemetry metrics")
	rootCmd.MarkFlagRequired("config")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
