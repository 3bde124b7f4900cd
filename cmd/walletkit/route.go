package main

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/vitwit/walletkit/router"
)

type routeView struct {
	Namespace string              `json:"namespace" yaml:"namespace"`
	Method    string              `json:"method" yaml:"method"`
	Outcome   string              `json:"outcome" yaml:"outcome"`
	Workflow  router.WorkflowKind `json:"workflow,omitempty" yaml:"workflow,omitempty"`
	Precheck  bool                `json:"precheck,omitempty" yaml:"precheck,omitempty"`
}

func newRouteCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "route [namespace method]",
		Short: "Show how a session request method is handled",
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			r := router.New(router.WithLogger(log))

			if !all {
				return render(cmd.OutOrStdout(), describeRoute(r, args[0], args[1]))
			}

			keys := r.Keys()
			sort.Slice(keys, func(i, j int) bool {
				return keys[i].String() < keys[j].String()
			})
			views := make([]routeView, 0, len(keys))
			for _, k := range keys {
				views = append(views, describeRoute(r, k.Namespace, k.Method))
			}
			return render(cmd.OutOrStdout(), views)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list every routed method")
	return cmd
}

func describeRoute(r *router.Router, namespace, method string) routeView {
	o := r.Route(namespace, method)
	return routeView{
		Namespace: namespace,
		Method:    method,
		Outcome:   o.Kind.String(),
		Workflow:  o.Workflow,
		Precheck:  o.Precheck != nil,
	}
}
