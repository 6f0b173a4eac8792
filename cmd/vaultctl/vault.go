package main

import (
	"net/http"
	"strconv"

	"github.com/spf13/cobra"
)

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Vault administration and deposits",
}

var vaultDepositCmd = &cobra.Command{
	Use:   "deposit <amount>",
	Short: "Deposit funds into the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		amount, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return err
		}
		var out map[string]any
		if err := newClient().do(http.MethodPost, "/vault/deposit", map[string]int64{"amount": amount}, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var vaultStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the vault stats tuple",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		var out map[string]any
		if err := newClient().do(http.MethodGet, "/vault/stats", nil, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var vaultPauseCmd = &cobra.Command{
	Use:   "pause <true|false>",
	Short: "Toggle the global pause flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		paused, err := strconv.ParseBool(args[0])
		if err != nil {
			return err
		}
		return newClient().do(http.MethodPost, "/vault/pause", map[string]bool{"paused": paused}, nil)
	},
}

var vaultThresholdCmd = &cobra.Command{
	Use:   "threshold <n>",
	Short: "Set the global signature threshold",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		threshold, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		return newClient().do(http.MethodPut, "/vault/threshold", map[string]int{"threshold": threshold}, nil)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <tx-id>",
	Short: "Show a transaction-history record",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var out map[string]any
		if err := newClient().do(http.MethodGet, "/history/"+args[0], nil, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <principal>",
	Short: "Mint a caller-identity token",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var out map[string]any
		err := newClient().do(http.MethodPost, "/auth/token",
			map[string]string{"principal": args[0]}, &out)
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

func init() {
	vaultCmd.AddCommand(vaultDepositCmd, vaultStatsCmd, vaultPauseCmd, vaultThresholdCmd)
	rootCmd.AddCommand(vaultCmd, historyCmd, tokenCmd)
}
