package main

import (
	"net/http"

	"github.com/spf13/cobra"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Treasury analytics queries",
}

var analyticsPeriodCmd = &cobra.Command{
	Use:   "period [bucket]",
	Short: "Show one period's aggregates (current period when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		path := "/analytics/periods/current"
		if len(args) == 1 {
			path = "/analytics/periods/" + args[0]
		}
		var out map[string]any
		if err := newClient().do(http.MethodGet, path, nil, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var analyticsBurnCmd = &cobra.Command{
	Use:   "burn-rate",
	Short: "Show the trailing-window burn rate",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		var out map[string]any
		if err := newClient().do(http.MethodGet, "/analytics/burn-rate", nil, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var analyticsHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show the treasury health score",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		var out map[string]any
		if err := newClient().do(http.MethodGet, "/analytics/health", nil, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var analyticsMemberCmd = &cobra.Command{
	Use:   "member <principal>",
	Short: "Show a member's activity summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var out map[string]any
		if err := newClient().do(http.MethodGet, "/analytics/members/"+args[0], nil, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Manage spending limits",
}

var limitsSetCmd = &cobra.Command{
	Use:   "set <principal> <daily> <monthly> <total>",
	Short: "Configure a member's spending caps (admin only)",
	Args:  cobra.ExactArgs(4),
	RunE: func(_ *cobra.Command, args []string) error {
		caps := make([]int64, 3)
		for i, raw := range args[1:] {
			n, err := parseAmount(raw)
			if err != nil {
				return err
			}
			caps[i] = n
		}
		var out map[string]any
		err := newClient().do(http.MethodPut, "/limits/"+args[0], map[string]int64{
			"daily":   caps[0],
			"monthly": caps[1],
			"total":   caps[2],
		}, &out)
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

var limitsGetCmd = &cobra.Command{
	Use:   "get <principal>",
	Short: "Show a member's spending caps and accumulators",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var out map[string]any
		if err := newClient().do(http.MethodGet, "/limits/"+args[0], nil, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var limitsRemainingCmd = &cobra.Command{
	Use:   "remaining <principal>",
	Short: "Show a member's remaining daily allowance",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var out map[string]any
		if err := newClient().do(http.MethodGet, "/limits/"+args[0]+"/remaining", nil, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

func init() {
	analyticsCmd.AddCommand(analyticsPeriodCmd, analyticsBurnCmd, analyticsHealthCmd, analyticsMemberCmd)
	limitsCmd.AddCommand(limitsSetCmd, limitsGetCmd, limitsRemainingCmd)
	rootCmd.AddCommand(analyticsCmd, limitsCmd)
}
