package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vitwit/walletkit/router"
	"github.com/vitwit/walletkit/utils"
)

type dispatchView struct {
	ID       int64               `json:"id" yaml:"id"`
	Topic    string              `json:"topic" yaml:"topic"`
	Outcome  string              `json:"outcome" yaml:"outcome"`
	Workflow router.WorkflowKind `json:"workflow" yaml:"workflow"`
}

func newDispatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch <request.json|->",
		Short: "Dispatch a session request against the wallet config",
		Long: `dispatch reads a session request event as JSON and handles it the way a
running wallet would. Requests answered inline (unsupported methods,
auto-responses, failed prechecks) print the JSON-RPC response sent to the
peer. Requests needing approval print the workflow that would be opened.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			req, err := utils.ParseSessionRequest(data)
			if err != nil {
				return err
			}

			w, err := loadWallet()
			if err != nil {
				return err
			}

			d := w.Dispatch(cmd.Context(), req, nil)
			if d.Response == nil {
				return render(cmd.OutOrStdout(), dispatchView{
					ID:       req.ID,
					Topic:    req.Topic,
					Outcome:  d.Outcome.Kind.String(),
					Workflow: d.Outcome.Workflow,
				})
			}

			raw, err := utils.SerializeResponse(*d.Response)
			if err != nil {
				return fmt.Errorf("failed to encode response: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return err
		},
	}
}
