package main

import (
	"net/http"

	"github.com/spf13/cobra"
)

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "Manage the member registry",
}

var memberAddCmd = &cobra.Command{
	Use:   "add <principal> <role>",
	Short: "Register a member (role: admin, signer, viewer)",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		var out map[string]any
		err := newClient().do(http.MethodPost, "/members",
			map[string]string{"principal": args[0], "role": args[1]}, &out)
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

var memberGetCmd = &cobra.Command{
	Use:   "get <principal>",
	Short: "Show a member",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var out map[string]any
		if err := newClient().do(http.MethodGet, "/members/"+args[0], nil, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var memberRemoveCmd = &cobra.Command{
	Use:   "remove <principal>",
	Short: "Deactivate a member (tombstone, principal stays reserved)",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var out map[string]any
		if err := newClient().do(http.MethodDelete, "/members/"+args[0], nil, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var memberSetRoleCmd = &cobra.Command{
	Use:   "set-role <principal> <role>",
	Short: "Change a member's role",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		var out map[string]any
		err := newClient().do(http.MethodPut, "/members/"+args[0]+"/role",
			map[string]string{"role": args[1]}, &out)
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

func init() {
	membersCmd.AddCommand(memberAddCmd, memberGetCmd, memberRemoveCmd, memberSetRoleCmd)
	rootCmd.AddCommand(membersCmd)
}
