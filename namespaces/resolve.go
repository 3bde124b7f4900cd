package namespaces

import (
	"slices"

	"github.com/vitwit/walletkit/types"
)

// Resolve partitions every chain requested by the proposal into supported
// and unsupported. Required entries come first, keys in sorted order; bare
// namespace keys without chains expand to the catalog's chains for that
// namespace. The result is advisory and never an error.
func Resolve(proposal *types.Proposal, catalog Capabilities) types.SupportedChainsResult {
	res := types.SupportedChainsResult{
		Supported:           []string{},
		Unsupported:         []string{},
		RequiredUnsupported: []string{},
	}
	if proposal == nil {
		return res
	}

	seen := make(map[string]struct{})
	visit := func(entries types.Namespaces, required bool) {
		for _, key := range entries.Keys() {
			ns, chains := keyChains(key, entries[key])

			if len(chains) == 0 {
				supported, ok := catalog.ForNamespace(ns)
				if !ok {
					res.UnsupportedNamespaces = appendUnique(res.UnsupportedNamespaces, ns)
					if required {
						res.RequiredUnsupportedNamespaces = appendUnique(res.RequiredUnsupportedNamespaces, ns)
					}
					continue
				}
				chains = supported.Chains
			}

			for _, chain := range chains {
				ok := isSupported(ns, chain, catalog)
				if !ok && required && !slices.Contains(res.RequiredUnsupported, chain) {
					res.RequiredUnsupported = append(res.RequiredUnsupported, chain)
				}
				if _, dup := seen[chain]; dup {
					continue
				}
				seen[chain] = struct{}{}
				if ok {
					res.Supported = append(res.Supported, chain)
				} else {
					res.Unsupported = append(res.Unsupported, chain)
				}
			}
		}
	}

	visit(proposal.Params.RequiredNamespaces, true)
	visit(proposal.Params.OptionalNamespaces, false)

	return res
}

// isSupported reports whether chain belongs to the entry's namespace ns and
// is listed by the catalog. A chain listed under another namespace's key is
// never supported.
func isSupported(ns, chain string, catalog Capabilities) bool {
	if types.ChainID(chain).Namespace() != ns {
		return false
	}
	desc, ok := catalog.ForNamespace(ns)
	return ok && slices.Contains(desc.Chains, chain)
}
