package main

import (
	"net/http"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	flagTotalPayments        int64
	flagRecurringDescription string
)

var recurringCmd = &cobra.Command{
	Use:   "recurring",
	Short: "Manage recurring payment schedules",
}

var recurringCreateCmd = &cobra.Command{
	Use:   "create <recipient> <amount> <frequency-ticks>",
	Short: "Create a payment schedule (admin only)",
	Args:  cobra.ExactArgs(3),
	RunE: func(_ *cobra.Command, args []string) error {
		amount, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return err
		}
		frequency, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return err
		}
		var out map[string]any
		err = newClient().do(http.MethodPost, "/recurring", map[string]any{
			"recipient":      args[0],
			"amount":         amount,
			"description":    flagRecurringDescription,
			"frequency":      frequency,
			"total_payments": flagTotalPayments,
		}, &out)
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

var recurringListCmd = &cobra.Command{
	Use:   "list",
	Short: "List payment schedules",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		var out map[string]any
		if err := newClient().do(http.MethodGet, "/recurring", nil, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var recurringExecuteCmd = &cobra.Command{
	Use:   "execute <id>",
	Short: "Settle one due payout",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var out map[string]any
		err := newClient().do(http.MethodPost, "/recurring/"+args[0]+"/execute", nil, &out)
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

var recurringCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a schedule (creator or admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var out map[string]any
		if err := newClient().do(http.MethodDelete, "/recurring/"+args[0], nil, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var recurringFreezeCmd = &cobra.Command{
	Use:   "freeze",
	Short: "Deactivate every active schedule (admin only)",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		var out map[string]any
		if err := newClient().do(http.MethodPost, "/recurring/freeze", nil, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

func init() {
	recurringCreateCmd.Flags().Int64Var(&flagTotalPayments, "total-payments", 1, "Number of payouts before the schedule exhausts")
	recurringCreateCmd.Flags().StringVar(&flagRecurringDescription, "description", "", "What the schedule pays for")

	recurringCmd.AddCommand(
		recurringCreateCmd,
		recurringListCmd,
		recurringExecuteCmd,
		recurringCancelCmd,
		recurringFreezeCmd,
	)
	rootCmd.AddCommand(recurringCmd)
}
