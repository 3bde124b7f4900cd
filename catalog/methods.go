package catalog

// Namespaces known to the default table.
const (
	NamespaceEIP155   = "eip155"
	NamespaceCosmos   = "cosmos"
	NamespaceSolana   = "solana"
	NamespacePolkadot = "polkadot"
	NamespaceNear     = "near"
	NamespaceMvx      = "mvx"
	NamespaceTron     = "tron"
	NamespaceTezos    = "tezos"
	NamespaceKadena   = "kadena"
	NamespaceBip122   = "bip122"
	NamespaceSui      = "sui"
	NamespaceStacks   = "stacks"
	NamespacePartisia = "partisia"
)

// eip155
const (
	MethodEthSign              = "eth_sign"
	MethodPersonalSign         = "personal_sign"
	MethodEthSignTypedData     = "eth_signTypedData"
	MethodEthSignTypedDataV3   = "eth_signTypedData_v3"
	MethodEthSignTypedDataV4   = "eth_signTypedData_v4"
	MethodEthSendTransaction   = "eth_sendTransaction"
	MethodEthSignTransaction   = "eth_signTransaction"
	MethodWalletCheckout       = "wallet_checkout"
	MethodGrantPermissions     = "wallet_grantPermissions"
	MethodGetCapabilities      = "wallet_getCapabilities"
	MethodSendCalls            = "wallet_sendCalls"
	MethodGetCallsStatus       = "wallet_getCallsStatus"
	MethodShowCallsStatus      = "wallet_showCallsStatus"
	EventChainChanged          = "chainChanged"
	EventAccountsChanged       = "accountsChanged"
	EventBip122AddressesChange = "bip122_addressesChanged"
)

// cosmos
const (
	MethodCosmosSignDirect = "cosmos_signDirect"
	MethodCosmosSignAmino  = "cosmos_signAmino"
)

// solana
const (
	MethodSolanaSignTransaction        = "solana_signTransaction"
	MethodSolanaSignMessage            = "solana_signMessage"
	MethodSolanaSignAndSendTransaction = "solana_signAndSendTransaction"
	MethodSolanaSignAllTransactions    = "solana_signAllTransactions"
)

// polkadot
const (
	MethodPolkadotSignTransaction = "polkadot_signTransaction"
	MethodPolkadotSignMessage     = "polkadot_signMessage"
)

// near
const (
	MethodNearSignIn                  = "near_signIn"
	MethodNearSignOut                 = "near_signOut"
	MethodNearGetAccounts             = "near_getAccounts"
	MethodNearSignTransaction         = "near_signTransaction"
	MethodNearSignAndSendTransaction  = "near_signAndSendTransaction"
	MethodNearSignTransactions        = "near_signTransactions"
	MethodNearSignAndSendTransactions = "near_signAndSendTransactions"
	MethodNearVerifyOwner             = "near_verifyOwner"
	MethodNearSignMessage             = "near_signMessage"
)

// mvx
const (
	MethodMvxSignTransaction     = "mvx_signTransaction"
	MethodMvxSignTransactions    = "mvx_signTransactions"
	MethodMvxSignMessage         = "mvx_signMessage"
	MethodMvxSignLoginToken      = "mvx_signLoginToken"
	MethodMvxSignNativeAuthToken = "mvx_signNativeAuthToken"
)

// tron
const (
	MethodTronSignTransaction = "tron_signTransaction"
	MethodTronSignMessage     = "tron_signMessage"
)

// tezos
const (
	MethodTezosGetAccounts = "tezos_getAccounts"
	MethodTezosSend        = "tezos_send"
	MethodTezosSign        = "tezos_sign"
)

// kadena
const (
	MethodKadenaGetAccounts = "kadena_getAccounts_v1"
	MethodKadenaSign        = "kadena_sign_v1"
	MethodKadenaQuicksign   = "kadena_quicksign_v1"
)

// bip122
const (
	MethodBip122SignMessage         = "signMessage"
	MethodBip122SendTransfer        = "sendTransfer"
	MethodBip122GetAccountAddresses = "getAccountAddresses"
	MethodBip122SignPsbt            = "signPsbt"
)

// sui
const (
	MethodSuiSignPersonalMessage       = "sui_signPersonalMessage"
	MethodSuiSignTransaction           = "sui_signTransaction"
	MethodSuiSignAndExecuteTransaction = "sui_signAndExecuteTransaction"
)

// stacks
const (
	MethodStacksTransferStx = "stx_transferStx"
	MethodStacksSignMessage = "stx_signMessage"
)

// partisia
const (
	MethodPartisiaSignMessage     = "partisia_signMessage"
	MethodPartisiaSendTransaction = "partisia_sendTransaction"
)
