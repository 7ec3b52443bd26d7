// Package cli implements the irrigator command-line interface using Cobra,
// the teacher's CLI library. Each subcommand maps to an operational
// capability of the control loop (serve, status).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "irrigator",
	Short: "irrigator — Smart Irrigation Control Loop",
	Long: `irrigator drives a fleet of greenhouses: it reads soil/air telemetry,
decides whether and how much to irrigate, pulses the pump actuator, and
reports every attempt back to the data backend.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file (defaults to ~/.irrigator/config.toml)")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
