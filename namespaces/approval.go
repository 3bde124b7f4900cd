package namespaces

import (
	"fmt"
	"slices"

	"github.com/vitwit/walletkit/types"
)

// CheckApproval verifies that namespaces chosen for an approval stay within
// the negotiated ones: every namespace, chain, method, event and account
// must have been negotiated, and every account must sit on an approved
// chain of its namespace.
func CheckApproval(approved, negotiated types.Namespaces) error {
	if len(approved) == 0 {
		return &types.WalletError{
			Code:    types.ErrNoSupportedNamespaces,
			Message: "approval contains no namespaces",
		}
	}

	for _, ns := range approved.Keys() {
		desc := approved[ns]
		allowed, ok := negotiated[ns]
		if !ok {
			return unsupported(types.ErrUnsupportedChains, ns, "namespace was not negotiated", nil)
		}

		if len(desc.Chains) == 0 {
			return unsupported(types.ErrUnsupportedChains, ns, "no chains approved", nil)
		}
		if extra := outside(desc.Chains, allowed.Chains); len(extra) > 0 {
			return unsupported(types.ErrUnsupportedChains, ns, "chains were not negotiated", extra)
		}
		if extra := outside(desc.Methods, allowed.Methods); len(extra) > 0 {
			return unsupported(types.ErrUnsupportedMethod, ns, "methods were not negotiated", extra)
		}
		if extra := outside(desc.Events, allowed.Events); len(extra) > 0 {
			return unsupported(types.ErrUnsupportedEvents, ns, "events were not negotiated", extra)
		}

		if len(desc.Accounts) == 0 {
			return unsupported(types.ErrUnsupportedAccounts, ns, "no accounts approved", nil)
		}
		var stray []string
		for _, acc := range desc.Accounts {
			chain := types.AccountID(acc).ChainID().String()
			if !slices.Contains(allowed.Accounts, acc) || !slices.Contains(desc.Chains, chain) {
				stray = append(stray, acc)
			}
		}
		if len(stray) > 0 {
			return unsupported(types.ErrUnsupportedAccounts, ns, "accounts were not negotiated", stray)
		}
	}
	return nil
}

func unsupported(code, ns, msg string, items []string) *types.WalletError {
	return &types.WalletError{
		Code:    code,
		Message: fmt.Sprintf("approval of %s rejected: %s %v", ns, msg, items),
		Data:    items,
	}
}

// outside returns the items of list missing from allowed.
func outside(list, allowed []string) []string {
	var out []string
	for _, v := range list {
		if !slices.Contains(allowed, v) {
			out = append(out, v)
		}
	}
	return out
}
