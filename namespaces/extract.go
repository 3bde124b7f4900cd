// Package namespaces negotiates session namespaces between a proposal and
// the wallet's capability catalog. Every function here is pure and safe for
// concurrent use.
package namespaces

import (
	"github.com/vitwit/walletkit/types"
)

// Capabilities is the read side of the capability catalog.
type Capabilities interface {
	ForNamespace(ns string) (types.Namespace, bool)
}

// DefaultsSource resolves the default methods and events of a namespace.
type DefaultsSource interface {
	Defaults(ns string) (types.NamespaceDefaults, error)
}

// GroupByNamespace returns each namespace of chainIDs once, in first-seen
// order. Malformed ids contribute the text before their first ':'.
func GroupByNamespace(chainIDs []string) []string {
	seen := make(map[string]struct{}, len(chainIDs))
	out := make([]string, 0)
	for _, id := range chainIDs {
		ns := types.ChainID(id).Namespace()
		if _, ok := seen[ns]; ok {
			continue
		}
		seen[ns] = struct{}{}
		out = append(out, ns)
	}
	return out
}

// chainsOf returns the chain ids of chainIDs belonging to ns, in order.
func chainsOf(chainIDs []string, ns string) []string {
	out := make([]string, 0)
	for _, id := range chainIDs {
		if types.ChainID(id).Namespace() == ns {
			out = append(out, id)
		}
	}
	return out
}

// keyChains returns the namespace and the chains named by one proposal
// entry. A chain-id key names itself plus any chains listed under it.
func keyChains(key string, desc types.Namespace) (string, []string) {
	if !types.IsChainKey(key) {
		return key, desc.Chains
	}
	chains := []string{key}
	for _, c := range desc.Chains {
		if c != key {
			chains = append(chains, c)
		}
	}
	return types.ChainID(key).Namespace(), chains
}

// appendUnique appends the items of add not already in list.
func appendUnique(list []string, add ...string) []string {
	for _, item := range add {
		found := false
		for _, have := range list {
			if have == item {
				found = true
				break
			}
		}
		if !found {
			list = append(list, item)
		}
	}
	return list
}
