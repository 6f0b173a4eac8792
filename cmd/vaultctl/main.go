// Command vaultctl is a thin CLI over the vault server's HTTP API.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	flagAddr  string
	flagToken string
)

var rootCmd = &cobra.Command{
	Use:           "vaultctl",
	Short:         "Operate a quorum treasury vault",
	Long:          "Manage members, proposals, spending limits, and recurring payments on a running vault server.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAddr, "addr", envOr("VAULTCTL_ADDR", "http://localhost:8080"), "Vault server base URL")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", os.Getenv("VAULTCTL_TOKEN"), "Bearer token (defaults to VAULTCTL_TOKEN)")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
