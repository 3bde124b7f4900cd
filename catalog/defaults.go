package catalog

import (
	"sort"

	"github.com/vitwit/walletkit/types"
)

// Table maps a namespace to its default methods and events.
type Table map[string]types.NamespaceDefaults

// Defaults returns the row for a namespace, or an UnknownNamespace error.
func (t Table) Defaults(namespace string) (types.NamespaceDefaults, error) {
	d, ok := t[namespace]
	if !ok {
		return types.NamespaceDefaults{}, types.NewUnknownNamespaceError(namespace)
	}
	return d, nil
}

// Validate checks every row once. A row without methods or with a malformed
// namespace key is a configuration error.
func (t Table) Validate() error {
	for ns, d := range t {
		if err := types.ChainID(ns + ":0").Validate(); err != nil {
			return types.NewConfigurationError("default table: invalid namespace %q", ns)
		}
		if len(d.Methods()) == 0 {
			return types.NewConfigurationError("default table: namespace %s has no methods", ns)
		}
	}
	return nil
}

// Merge returns a copy of t with rows from other added or replaced.
func (t Table) Merge(other Table) Table {
	out := make(Table, len(t)+len(other))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// DefaultTable is the built-in per-namespace default table.
var DefaultTable = Table{
	NamespaceEIP155: {
		RequiredMethods: []string{
			MethodEthSendTransaction,
			MethodPersonalSign,
		},
		OptionalMethods: []string{
			MethodEthSignTransaction,
			MethodEthSign,
			MethodEthSignTypedData,
			MethodEthSignTypedDataV3,
			MethodEthSignTypedDataV4,
			MethodGetCapabilities,
			MethodSendCalls,
			MethodGetCallsStatus,
			MethodShowCallsStatus,
			MethodGrantPermissions,
			MethodWalletCheckout,
		},
		Events: []string{EventChainChanged, EventAccountsChanged},
	},
	NamespaceCosmos: {
		RequiredMethods: []string{MethodCosmosSignDirect, MethodCosmosSignAmino},
	},
	NamespaceSolana: {
		RequiredMethods: []string{
			MethodSolanaSignTransaction,
			MethodSolanaSignMessage,
			MethodSolanaSignAndSendTransaction,
			MethodSolanaSignAllTransactions,
		},
	},
	NamespacePolkadot: {
		RequiredMethods: []string{MethodPolkadotSignTransaction, MethodPolkadotSignMessage},
	},
	NamespaceNear: {
		RequiredMethods: []string{
			MethodNearSignIn,
			MethodNearSignOut,
			MethodNearGetAccounts,
			MethodNearSignTransaction,
			MethodNearSignAndSendTransaction,
			MethodNearSignTransactions,
			MethodNearSignAndSendTransactions,
			MethodNearVerifyOwner,
			MethodNearSignMessage,
		},
		Events: []string{EventChainChanged, EventAccountsChanged},
	},
	NamespaceMvx: {
		RequiredMethods: []string{
			MethodMvxSignTransaction,
			MethodMvxSignTransactions,
			MethodMvxSignMessage,
			MethodMvxSignLoginToken,
			MethodMvxSignNativeAuthToken,
		},
	},
	NamespaceTron: {
		RequiredMethods: []string{MethodTronSignTransaction, MethodTronSignMessage},
	},
	NamespaceTezos: {
		RequiredMethods: []string{MethodTezosGetAccounts, MethodTezosSend, MethodTezosSign},
	},
	NamespaceKadena: {
		RequiredMethods: []string{MethodKadenaGetAccounts, MethodKadenaSign, MethodKadenaQuicksign},
	},
	NamespaceBip122: {
		RequiredMethods: []string{
			MethodBip122SignMessage,
			MethodBip122SendTransfer,
			MethodBip122GetAccountAddresses,
			MethodBip122SignPsbt,
		},
		Events: []string{EventBip122AddressesChange},
	},
	NamespaceSui: {
		RequiredMethods: []string{
			MethodSuiSignPersonalMessage,
			MethodSuiSignTransaction,
			MethodSuiSignAndExecuteTransaction,
		},
	},
	NamespaceStacks: {
		RequiredMethods: []string{MethodStacksTransferStx, MethodStacksSignMessage},
	},
	NamespacePartisia: {
		RequiredMethods: []string{MethodPartisiaSignMessage, MethodPartisiaSendTransaction},
	},
}

// Namespaces returns the namespaces of the table in sorted order.
func (t Table) Namespaces() []string {
	out := make([]string, 0, len(t))
	for ns := range t {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}
