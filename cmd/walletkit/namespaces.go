package main

import (
	"github.com/spf13/cobra"

	"github.com/vitwit/walletkit/catalog"
	"github.com/vitwit/walletkit/namespaces"
)

func newNamespacesCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "namespaces <chain>...",
		Short: "Build the namespaces of a wallet-originated proposal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := namespaces.ParseMode(mode)
			if err != nil {
				return err
			}
			ns, err := namespaces.BuildOutbound(args, m, catalog.DefaultTable)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), ns)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "required", "required or optional")
	return cmd
}
