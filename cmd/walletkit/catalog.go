package main

import (
	"github.com/spf13/cobra"

	"github.com/vitwit/walletkit/types"
)

type catalogView struct {
	Chains     []string         `json:"chains" yaml:"chains"`
	Namespaces types.Namespaces `json:"namespaces" yaml:"namespaces"`
}

func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print the chains, methods, events and accounts the wallet supports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := loadWallet()
			if err != nil {
				return err
			}
			c := w.Catalog()
			return render(cmd.OutOrStdout(), catalogView{
				Chains:     c.Chains(),
				Namespaces: c.Namespaces(),
			})
		},
	}
}
