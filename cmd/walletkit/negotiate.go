package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vitwit/walletkit/namespaces"
	"github.com/vitwit/walletkit/types"
	"github.com/vitwit/walletkit/utils"
)

type negotiationView struct {
	Support    types.SupportedChainsResult `json:"support" yaml:"support"`
	CanApprove bool                        `json:"canApprove" yaml:"canApprove"`
	Result     *namespaces.Result          `json:"result,omitempty" yaml:"result,omitempty"`
	Rejection  *types.Reason               `json:"rejection,omitempty" yaml:"rejection,omitempty"`
}

func newNegotiateCmd() *cobra.Command {
	var approvedOnly bool

	cmd := &cobra.Command{
		Use:   "negotiate <proposal.json|->",
		Short: "Negotiate a session proposal against the wallet config",
		Long: `negotiate reads a session proposal as JSON and prints which of its chains
are supported and the namespaces that would be approved. When the proposal
cannot be approved the rejection reason sent to the peer is printed and the
command fails. With --approved only the approved namespaces are printed, as
the JSON sent with the session approval.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			proposal, err := utils.ParseProposal(data)
			if err != nil {
				return err
			}

			w, err := loadWallet()
			if err != nil {
				return err
			}

			support := w.Resolve(proposal)
			view := negotiationView{Support: support, CanApprove: support.CanApprove()}

			result, negErr := w.Negotiate(proposal)
			if negErr != nil {
				reason := types.RejectionReason(negErr)
				view.Rejection = &reason
			} else {
				view.Result = result
			}

			if approvedOnly && negErr == nil {
				raw, err := utils.SerializeNamespaces(result.Approved)
				if err != nil {
					return fmt.Errorf("failed to encode namespaces: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
				return err
			}

			if err := render(cmd.OutOrStdout(), view); err != nil {
				return err
			}
			return negErr
		},
	}
	cmd.Flags().BoolVar(&approvedOnly, "approved", false, "print only the approved namespaces as JSON")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
