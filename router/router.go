// Package router maps a session request's (namespace, method) pair to the
// way it is handled: an approval workflow, an inline auto-response, or an
// unsupported-method error.
package router

import (
	"context"
	"fmt"

	"github.com/vitwit/walletkit/catalog"
	"github.com/vitwit/walletkit/logger"
	"github.com/vitwit/walletkit/metrics"
	"github.com/vitwit/walletkit/types"
)

// OutcomeKind tags a routing outcome.
type OutcomeKind int

const (
	Unsupported OutcomeKind = iota
	OpenApproval
	AutoRespond
)

func (k OutcomeKind) String() string {
	switch k {
	case OpenApproval:
		return "open_approval"
	case AutoRespond:
		return "auto_respond"
	default:
		return "unsupported"
	}
}

// WorkflowKind names the user-facing workflow a request is handed to.
type WorkflowKind string

const (
	WorkflowSessionProposal       WorkflowKind = "session_proposal"
	WorkflowSessionAuthenticate   WorkflowKind = "session_authenticate"
	WorkflowUnsupportedMethod     WorkflowKind = "unsupported_method"
	WorkflowSignMessage           WorkflowKind = "sign_message"
	WorkflowSignTypedData         WorkflowKind = "sign_typed_data"
	WorkflowSendTransaction       WorkflowKind = "send_transaction"
	WorkflowGrantPermissions      WorkflowKind = "grant_permissions"
	WorkflowSendCalls             WorkflowKind = "send_calls"
	WorkflowCheckout              WorkflowKind = "checkout"
	WorkflowSignCosmos            WorkflowKind = "sign_cosmos"
	WorkflowSignSolana            WorkflowKind = "sign_solana"
	WorkflowSignPolkadot          WorkflowKind = "sign_polkadot"
	WorkflowSignNear              WorkflowKind = "sign_near"
	WorkflowSignMultiversx        WorkflowKind = "sign_multiversx"
	WorkflowSignTron              WorkflowKind = "sign_tron"
	WorkflowSignTezos             WorkflowKind = "sign_tezos"
	WorkflowSignKadena            WorkflowKind = "sign_kadena"
	WorkflowSignBip122            WorkflowKind = "sign_bip122"
	WorkflowSendTransactionBip122 WorkflowKind = "send_transaction_bip122"
	WorkflowSignSuiMessage        WorkflowKind = "sign_sui_personal_message"
	WorkflowSignSuiTransaction    WorkflowKind = "sign_sui_transaction"
	WorkflowSignSuiAndExecute     WorkflowKind = "sign_sui_and_execute_transaction"
	WorkflowSendStacksTransfer    WorkflowKind = "send_stacks_transfer"
	WorkflowSignStacksMessage     WorkflowKind = "sign_stacks_message"
	WorkflowSignPartisia          WorkflowKind = "sign_partisia"
)

// RequestContext is everything a responder or precheck may read.
type RequestContext struct {
	Request *types.SessionRequest

	// Session is the session the request arrived on, if known.
	Session *types.Session

	Catalog *catalog.Catalog
}

// Responder computes the result of an auto-responded request. Returning a
// *types.JSONRPCError selects the error code of the response.
type Responder func(ctx context.Context, rc *RequestContext) (any, error)

// Precheck validates a request before its workflow opens. A non-nil error
// is answered instead of opening the workflow.
type Precheck func(rc *RequestContext) error

// Key identifies a route.
type Key struct {
	Namespace string
	Method    string
}

func (k Key) String() string {
	return k.Namespace + "/" + k.Method
}

// Outcome is the routing decision for one request. Workflow and Precheck
// are set for OpenApproval, Responder for AutoRespond.
type Outcome struct {
	Kind      OutcomeKind
	Workflow  WorkflowKind
	Responder Responder
	Precheck  Precheck
}

// Router is a static routing table. It is safe for concurrent use.
type Router struct {
	table       map[Key]Outcome
	callsStatus CallsStatusProvider
	logger      logger.Logger
	metrics     metrics.Recorder
}

// Option configures a Router.
type Option func(*Router)

func WithLogger(l logger.Logger) Option {
	return func(r *Router) {
		r.logger = l
	}
}

func WithMetrics(m metrics.Recorder) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

// WithCallsStatusProvider answers wallet_getCallsStatus.
func WithCallsStatusProvider(p CallsStatusProvider) Option {
	return func(r *Router) {
		r.callsStatus = p
	}
}

// WithRoute adds or replaces a single route.
func WithRoute(namespace, method string, o Outcome) Option {
	return func(r *Router) {
		r.table[Key{Namespace: namespace, Method: method}] = o
	}
}

// New builds a router over the default routing table.
func New(opts ...Option) *Router {
	r := &Router{
		logger:      logger.NoopLogger{},
		metrics:     metrics.NoopRecorder{},
		callsStatus: noCallsStatus{},
	}
	r.table = r.defaultTable()
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logger.OrNoop(r.logger)
	r.metrics = metrics.OrNoop(r.metrics)
	return r
}

// Route looks up the handling of a (namespace, method) pair. It is total:
// pairs missing from the table are Unsupported.
func (r *Router) Route(namespace, method string) Outcome {
	o, ok := r.table[Key{Namespace: namespace, Method: method}]
	if !ok {
		return Outcome{Kind: Unsupported}
	}
	return o
}

// Keys returns every routed pair.
func (r *Router) Keys() []Key {
	keys := make([]Key, 0, len(r.table))
	for k := range r.table {
		keys = append(keys, k)
	}
	return keys
}

// Validate checks that every method of every catalog namespace is routed.
func (r *Router) Validate(c *catalog.Catalog) error {
	for _, ns := range c.NamespaceOrder() {
		desc, _ := c.ForNamespace(ns)
		for _, m := range desc.Methods {
			if r.Route(ns, m).Kind == Unsupported {
				return types.NewConfigurationError("method %s of namespace %s has no route", m, ns)
			}
		}
	}
	return nil
}

func (r *Router) defaultTable() map[Key]Outcome {
	t := make(map[Key]Outcome)

	approve := func(ns string, wf WorkflowKind, check Precheck, methods ...string) {
		for _, m := range methods {
			t[Key{ns, m}] = Outcome{Kind: OpenApproval, Workflow: wf, Precheck: check}
		}
	}
	auto := func(ns, method string, fn Responder) {
		t[Key{ns, method}] = Outcome{Kind: AutoRespond, Responder: fn}
	}

	// eip155
	approve(catalog.NamespaceEIP155, WorkflowSignMessage, nil,
		catalog.MethodEthSign, catalog.MethodPersonalSign)
	approve(catalog.NamespaceEIP155, WorkflowSignTypedData, checkTypedData,
		catalog.MethodEthSignTypedData, catalog.MethodEthSignTypedDataV3, catalog.MethodEthSignTypedDataV4)
	approve(catalog.NamespaceEIP155, WorkflowSendTransaction, nil,
		catalog.MethodEthSendTransaction, catalog.MethodEthSignTransaction)
	approve(catalog.NamespaceEIP155, WorkflowGrantPermissions, nil, catalog.MethodGrantPermissions)
	approve(catalog.NamespaceEIP155, WorkflowSendCalls, checkSendCalls, catalog.MethodSendCalls)
	approve(catalog.NamespaceEIP155, WorkflowCheckout, checkCheckout, catalog.MethodWalletCheckout)
	auto(catalog.NamespaceEIP155, catalog.MethodGetCapabilities, getCapabilities)
	auto(catalog.NamespaceEIP155, catalog.MethodGetCallsStatus, r.getCallsStatus)
	auto(catalog.NamespaceEIP155, catalog.MethodShowCallsStatus, showCallsStatus)

	approve(catalog.NamespaceCosmos, WorkflowSignCosmos, nil,
		catalog.MethodCosmosSignDirect, catalog.MethodCosmosSignAmino)

	approve(catalog.NamespaceSolana, WorkflowSignSolana, nil,
		catalog.MethodSolanaSignMessage,
		catalog.MethodSolanaSignTransaction,
		catalog.MethodSolanaSignAndSendTransaction,
		catalog.MethodSolanaSignAllTransactions)

	approve(catalog.NamespacePolkadot, WorkflowSignPolkadot, nil,
		catalog.MethodPolkadotSignMessage, catalog.MethodPolkadotSignTransaction)

	approve(catalog.NamespaceNear, WorkflowSignNear, nil,
		catalog.MethodNearSignIn,
		catalog.MethodNearSignOut,
		catalog.MethodNearSignTransaction,
		catalog.MethodNearSignAndSendTransaction,
		catalog.MethodNearSignTransactions,
		catalog.MethodNearSignAndSendTransactions,
		catalog.MethodNearVerifyOwner,
		catalog.MethodNearSignMessage)
	auto(catalog.NamespaceNear, catalog.MethodNearGetAccounts, accountsResponder(func(addr string) any {
		return map[string]string{"accountId": addr}
	}))

	approve(catalog.NamespaceMvx, WorkflowSignMultiversx, nil,
		catalog.MethodMvxSignMessage,
		catalog.MethodMvxSignTransaction,
		catalog.MethodMvxSignTransactions,
		catalog.MethodMvxSignLoginToken,
		catalog.MethodMvxSignNativeAuthToken)

	approve(catalog.NamespaceTron, WorkflowSignTron, nil,
		catalog.MethodTronSignMessage, catalog.MethodTronSignTransaction)

	approve(catalog.NamespaceTezos, WorkflowSignTezos, nil,
		catalog.MethodTezosSend, catalog.MethodTezosSign)
	auto(catalog.NamespaceTezos, catalog.MethodTezosGetAccounts, accountsResponder(func(addr string) any {
		return map[string]string{"address": addr}
	}))

	approve(catalog.NamespaceKadena, WorkflowSignKadena, nil,
		catalog.MethodKadenaSign, catalog.MethodKadenaQuicksign)
	auto(catalog.NamespaceKadena, catalog.MethodKadenaGetAccounts, kadenaAccounts)

	approve(catalog.NamespaceBip122, WorkflowSignBip122, nil, catalog.MethodBip122SignMessage)
	approve(catalog.NamespaceBip122, WorkflowSendTransactionBip122, nil,
		catalog.MethodBip122SignPsbt, catalog.MethodBip122SendTransfer)
	auto(catalog.NamespaceBip122, catalog.MethodBip122GetAccountAddresses, accountsResponder(func(addr string) any {
		return map[string]string{"address": addr}
	}))

	approve(catalog.NamespaceSui, WorkflowSignSuiMessage, nil, catalog.MethodSuiSignPersonalMessage)
	approve(catalog.NamespaceSui, WorkflowSignSuiTransaction, nil, catalog.MethodSuiSignTransaction)
	approve(catalog.NamespaceSui, WorkflowSignSuiAndExecute, nil, catalog.MethodSuiSignAndExecuteTransaction)

	approve(catalog.NamespaceStacks, WorkflowSendStacksTransfer, nil, catalog.MethodStacksTransferStx)
	approve(catalog.NamespaceStacks, WorkflowSignStacksMessage, nil, catalog.MethodStacksSignMessage)

	approve(catalog.NamespacePartisia, WorkflowSignPartisia, nil,
		catalog.MethodPartisiaSignMessage, catalog.MethodPartisiaSendTransaction)

	return t
}

// UnsupportedResponse is the error answered for a method without a route.
func UnsupportedResponse(req *types.SessionRequest) types.JSONRPCResponse {
	reason := types.SdkError(types.SdkUnsupportedMethods)
	return types.FormatJSONRPCError(req.ID, reason.Code,
		fmt.Sprintf("%s %s on %s", reason.Message, req.Method(), req.Params.ChainID))
}
