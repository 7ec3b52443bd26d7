package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/greenhouse-io/irrigator/internal/daemon"
)

var (
	serveHost string
	servePort int
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "host to listen on (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the irrigation control loop and its HTTP façade",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = daemon.DefaultConfigPath()
	}

	cfg, err := daemon.LoadConfig(path)
	if err != nil {
		return err
	}

	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	d, err := daemon.New(cfg)
	if err != nil {
		return err
	}

	return d.Serve(context.Background())
}
