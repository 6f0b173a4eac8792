package main

import (
	"net/http"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	flagDescription string
	flagExpiryDelta int64
	flagReason      string
)

var proposalsCmd = &cobra.Command{
	Use:   "proposals",
	Short: "Create, vote on, and execute withdrawal proposals",
}

var proposalCreateCmd = &cobra.Command{
	Use:   "create <recipient> <amount>",
	Short: "Open a withdrawal proposal",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		amount, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return err
		}
		var out map[string]any
		err = newClient().do(http.MethodPost, "/proposals", map[string]any{
			"recipient":    args[0],
			"amount":       amount,
			"description":  flagDescription,
			"expiry_delta": flagExpiryDelta,
		}, &out)
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

var proposalEmergencyCmd = &cobra.Command{
	Use:   "emergency <recipient> <amount>",
	Short: "Open an emergency withdrawal (admin only, raised threshold)",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		amount, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return err
		}
		var out map[string]any
		err = newClient().do(http.MethodPost, "/proposals/emergency", map[string]any{
			"recipient": args[0],
			"amount":    amount,
			"reason":    flagReason,
		}, &out)
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

var proposalShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a proposal",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var out map[string]any
		if err := newClient().do(http.MethodGet, "/proposals/"+args[0], nil, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var proposalVoteCmd = &cobra.Command{
	Use:   "vote <id> <approve|reject>",
	Short: "Cast a ballot on a proposal",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		var out map[string]any
		err := newClient().do(http.MethodPost, "/proposals/"+args[0]+"/vote",
			map[string]bool{"approve": args[1] == "approve"}, &out)
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

var proposalExecuteCmd = &cobra.Command{
	Use:   "execute <id>",
	Short: "Execute an approved proposal",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var out map[string]any
		err := newClient().do(http.MethodPost, "/proposals/"+args[0]+"/execute", nil, &out)
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

var proposalExecutableCmd = &cobra.Command{
	Use:   "executable <id>",
	Short: "Check whether a proposal could execute right now",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var out map[string]any
		if err := newClient().do(http.MethodGet, "/proposals/"+args[0]+"/executable", nil, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

func init() {
	proposalCreateCmd.Flags().StringVar(&flagDescription, "description", "", "Proposal description")
	proposalCreateCmd.Flags().Int64Var(&flagExpiryDelta, "expiry-delta", 1440, "Voting window in ticks")
	proposalEmergencyCmd.Flags().StringVar(&flagReason, "reason", "", "Reason for the emergency withdrawal")

	proposalsCmd.AddCommand(
		proposalCreateCmd,
		proposalEmergencyCmd,
		proposalShowCmd,
		proposalVoteCmd,
		proposalExecuteCmd,
		proposalExecutableCmd,
	)
	rootCmd.AddCommand(proposalsCmd)
}
