package main

import (
	"github.com/spf13/cobra"

	"github.com/vitwit/walletkit"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return render(cmd.OutOrStdout(), walletkit.GetVersion())
		},
	}
}
