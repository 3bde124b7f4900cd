package namespaces

import (
	"fmt"
	"slices"
	"strings"

	"github.com/vitwit/walletkit/types"
)

// DropReason says why an optional namespace was left out of an approval.
type DropReason string

const (
	DropInvalidKey         DropReason = "invalid_key"
	DropUnknownNamespace   DropReason = "namespace_not_supported"
	DropNoSupportedChains  DropReason = "no_supported_chains"
	DropUnsupportedMethods DropReason = "unsupported_methods"
)

// Dropped describes one optional proposal entry that was not approved.
type Dropped struct {
	Key       string     `json:"key"`
	Namespace string     `json:"namespace"`
	Reason    DropReason `json:"reason"`

	// Detail lists the offending chains or methods, if any.
	Detail []string `json:"detail,omitempty"`
}

// Result is a successful negotiation.
type Result struct {
	Approved types.Namespaces `json:"approved"`
	Dropped  []Dropped        `json:"dropped,omitempty"`
}

// approval is what a single proposal entry contributes.
type approval struct {
	namespace string
	chains    []string
	methods   []string
	events    []string
}

// Reconcile negotiates a proposal against the catalog.
//
// Every required entry must name a catalog namespace, share at least one
// chain with it and request only methods it supports; otherwise the whole
// proposal fails with IncompatibleRequiredNamespace. Optional entries
// failing the same checks are dropped and reported in Result.Dropped.
// Approved chains and accounts follow catalog order and approved methods
// are the requested ones. A proposal with nothing approvable fails with
// NoSupportedNamespaces.
func Reconcile(proposal *types.Proposal, catalog Capabilities) (*Result, error) {
	if proposal == nil {
		return nil, &types.WalletError{
			Code:    types.ErrInvalidProposal,
			Message: "proposal is nil",
		}
	}

	var contributions []approval

	required := proposal.Params.RequiredNamespaces
	for _, key := range required.Keys() {
		a, drop := check(key, required[key], catalog)
		if drop != nil {
			return nil, types.NewIncompatibleRequiredNamespaceError(drop.Namespace, describe(drop))
		}
		contributions = append(contributions, a)
	}

	result := &Result{}
	optional := proposal.Params.OptionalNamespaces
	for _, key := range optional.Keys() {
		a, drop := check(key, optional[key], catalog)
		if drop != nil {
			result.Dropped = append(result.Dropped, *drop)
			continue
		}
		contributions = append(contributions, a)
	}

	if len(contributions) == 0 {
		return nil, &types.WalletError{
			Code:    types.ErrNoSupportedNamespaces,
			Message: "no requested namespace is supported",
			Data:    result.Dropped,
		}
	}

	result.Approved = merge(contributions, catalog)
	return result, nil
}

// check validates one proposal entry. It returns the entry's contribution,
// or a non-nil drop describing why it cannot be approved.
func check(key string, desc types.Namespace, catalog Capabilities) (approval, *Dropped) {
	ns, requested := keyChains(key, desc)
	if err := types.ChainID(ns + ":0").Validate(); err != nil {
		return approval{}, &Dropped{Key: key, Namespace: ns, Reason: DropInvalidKey}
	}

	supported, ok := catalog.ForNamespace(ns)
	if !ok {
		return approval{}, &Dropped{Key: key, Namespace: ns, Reason: DropUnknownNamespace}
	}

	var chains []string
	if len(requested) == 0 {
		chains = slices.Clone(supported.Chains)
	} else {
		for _, c := range supported.Chains {
			if slices.Contains(requested, c) {
				chains = append(chains, c)
			}
		}
	}
	if len(chains) == 0 {
		return approval{}, &Dropped{Key: key, Namespace: ns, Reason: DropNoSupportedChains, Detail: requested}
	}

	var missing []string
	for _, m := range desc.Methods {
		if !slices.Contains(supported.Methods, m) {
			missing = append(missing, m)
		}
	}
	if len(missing) > 0 {
		return approval{}, &Dropped{Key: key, Namespace: ns, Reason: DropUnsupportedMethods, Detail: missing}
	}

	var events []string
	for _, e := range desc.Events {
		if slices.Contains(supported.Events, e) {
			events = appendUnique(events, e)
		}
	}

	return approval{
		namespace: ns,
		chains:    chains,
		methods:   appendUnique(nil, desc.Methods...),
		events:    events,
	}, nil
}

// merge folds entry contributions into one descriptor per namespace.
func merge(contributions []approval, catalog Capabilities) types.Namespaces {
	out := make(types.Namespaces)
	for _, a := range contributions {
		desc := out[a.namespace]
		desc.Chains = appendUnique(desc.Chains, a.chains...)
		desc.Methods = appendUnique(desc.Methods, a.methods...)
		desc.Events = appendUnique(desc.Events, a.events...)
		out[a.namespace] = desc
	}

	for ns, desc := range out {
		supported, _ := catalog.ForNamespace(ns)

		ordered := make([]string, 0, len(desc.Chains))
		for _, c := range supported.Chains {
			if slices.Contains(desc.Chains, c) {
				ordered = append(ordered, c)
			}
		}
		desc.Chains = ordered

		desc.Accounts = make([]string, 0)
		for _, acc := range supported.Accounts {
			if slices.Contains(ordered, types.AccountID(acc).ChainID().String()) {
				desc.Accounts = append(desc.Accounts, acc)
			}
		}
		if desc.Methods == nil {
			desc.Methods = []string{}
		}
		if desc.Events == nil {
			desc.Events = []string{}
		}
		out[ns] = desc
	}
	return out
}

func describe(d *Dropped) string {
	switch d.Reason {
	case DropInvalidKey:
		return fmt.Sprintf("invalid namespace key %q", d.Key)
	case DropUnknownNamespace:
		return "namespace not supported by wallet"
	case DropNoSupportedChains:
		return fmt.Sprintf("none of the chains are supported: %s", strings.Join(d.Detail, ", "))
	case DropUnsupportedMethods:
		return fmt.Sprintf("unsupported methods: %s", strings.Join(d.Detail, ", "))
	default:
		return string(d.Reason)
	}
}
