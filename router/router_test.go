package router

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/walletkit/catalog"
	"github.com/vitwit/walletkit/metrics"
	"github.com/vitwit/walletkit/types"
)

const (
	evmAddr    = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
	evmSmart   = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	evmUnowned = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	nearAddr   = "alice.near"
	tezosAddr  = "tz1KjMn6Hb23eu1rNemou6ytAzzNxzvaYHyK"
	kadenaKey  = "3a9dd532d73dace195dbb64d1dba6572fb783d0fdd324685e32fbda2f89f99a6"
)

const mailTypedData = `{
	"types": {
		"EIP712Domain": [
			{"name": "name", "type": "string"},
			{"name": "version", "type": "string"},
			{"name": "chainId", "type": "uint256"},
			{"name": "verifyingContract", "type": "address"}
		],
		"Person": [
			{"name": "name", "type": "string"},
			{"name": "wallet", "type": "address"}
		],
		"Mail": [
			{"name": "from", "type": "Person"},
			{"name": "to", "type": "Person"},
			{"name": "contents", "type": "string"}
		]
	},
	"primaryType": "Mail",
	"domain": {
		"name": "Ether Mail",
		"version": "1",
		"chainId": "1",
		"verifyingContract": "0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccC"
	},
	"message": {
		"from": {"name": "Cow", "wallet": "0xCD2a3d9F938E13CD947Ec05AbC7FE734Df8DD826"},
		"to": {"name": "Bob", "wallet": "0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB"},
		"contents": "Hello, Bob!"
	}
}`

type countingRecorder struct {
	mu       sync.Mutex
	counters map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{counters: make(map[string]int)}
}

func (c *countingRecorder) IncCounter(name string, _ map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name]++
}

func (c *countingRecorder) ObserveLatency(string, time.Duration, map[string]string) {}

func (c *countingRecorder) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[name]
}

type fixedCallsStatus struct {
	status *types.CallsStatus
}

func (f fixedCallsStatus) CallsStatus(_ context.Context, id string) (*types.CallsStatus, error) {
	if id != f.status.ID {
		return nil, rpcError(types.CodeUnknownBundleID, "Unknown bundle id: %s", id)
	}
	return f.status, nil
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Build(
		[]string{"eip155:1", "eip155:8453", "near:mainnet", "tezos:mainnet", "kadena:mainnet01"},
		catalog.StaticProvider{
			catalog.NamespaceEIP155: {evmAddr},
			catalog.NamespaceNear:   {nearAddr},
			catalog.NamespaceTezos:  {tezosAddr},
			catalog.NamespaceKadena: {kadenaKey},
		},
		catalog.WithSmartAccounts(catalog.NamespaceEIP155, evmSmart),
		catalog.WithCapabilities(map[string]map[string]any{
			"eip155:8453": {"atomic": map[string]any{"status": "supported"}},
		}),
	)
	require.NoError(t, err)
	return c
}

func request(chain, method string, params any) *types.SessionRequest {
	raw, _ := json.Marshal(params)
	return &types.SessionRequest{
		ID:    42,
		Topic: "topic-1",
		Params: types.RequestParams{
			ChainID: chain,
			Request: types.RPCRequest{Method: method, Params: raw},
		},
	}
}

func dispatch(t *testing.T, r *Router, c *catalog.Catalog, req *types.SessionRequest) Dispatch {
	t.Helper()
	return r.Dispatch(context.Background(), &RequestContext{Request: req, Catalog: c})
}

func requireErrorCode(t *testing.T, d Dispatch, code int) {
	t.Helper()
	require.NotNil(t, d.Response)
	require.NotNil(t, d.Response.Error, "expected an error response")
	assert.Equal(t, code, d.Response.Error.Code, d.Response.Error.Message)
	assert.Equal(t, int64(42), d.Response.ID)
	assert.Equal(t, types.JSONRPCVersion, d.Response.JSONRPC)
}

func TestRoute_IsTotal(t *testing.T) {
	r := New()

	for _, k := range []Key{{"eip155", "eth_unknown"}, {"", ""}, {"foo", "personal_sign"}, {"solana", "personal_sign"}} {
		assert.Equal(t, Unsupported, r.Route(k.Namespace, k.Method).Kind, k.String())
	}

	o := r.Route(catalog.NamespaceEIP155, catalog.MethodPersonalSign)
	assert.Equal(t, OpenApproval, o.Kind)
	assert.Equal(t, WorkflowSignMessage, o.Workflow)

	o = r.Route(catalog.NamespaceEIP155, catalog.MethodGetCapabilities)
	assert.Equal(t, AutoRespond, o.Kind)
	assert.NotNil(t, o.Responder)

	o = r.Route(catalog.NamespaceBip122, catalog.MethodBip122SignPsbt)
	assert.Equal(t, WorkflowSendTransactionBip122, o.Workflow)
}

func TestRoute_EveryDefaultMethodIsRouted(t *testing.T) {
	r := New()
	for ns, defaults := range catalog.DefaultTable {
		for _, m := range defaults.Methods() {
			assert.NotEqual(t, Unsupported, r.Route(ns, m).Kind, "%s/%s", ns, m)
		}
	}
}

func TestValidate(t *testing.T) {
	r := New()
	require.NoError(t, r.Validate(testCatalog(t)))

	c, err := catalog.Build([]string{"eip155:1"}, catalog.StaticProvider{"eip155": {evmAddr}},
		catalog.WithTable(catalog.Table{
			"eip155": {RequiredMethods: []string{"eth_mystery"}},
		}))
	require.NoError(t, err)

	err = r.Validate(c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConfigurationError))
}

func TestWithRoute_Overrides(t *testing.T) {
	r := New(WithRoute(catalog.NamespaceEIP155, catalog.MethodPersonalSign, Outcome{Kind: Unsupported}))
	assert.Equal(t, Unsupported, r.Route(catalog.NamespaceEIP155, catalog.MethodPersonalSign).Kind)
	assert.Equal(t, OpenApproval, r.Route(catalog.NamespaceEIP155, catalog.MethodEthSign).Kind)
}

func TestOutcomeKind_String(t *testing.T) {
	assert.Equal(t, "unsupported", Unsupported.String())
	assert.Equal(t, "open_approval", OpenApproval.String())
	assert.Equal(t, "auto_respond", AutoRespond.String())
}

func TestDispatch_UnsupportedMethod(t *testing.T) {
	rec := newCountingRecorder()
	r := New(WithMetrics(rec))
	d := dispatch(t, r, testCatalog(t), request("eip155:1", "eth_mystery", []any{}))

	assert.Equal(t, Unsupported, d.Outcome.Kind)
	requireErrorCode(t, d, 5101)
	assert.Contains(t, d.Response.Error.Message, "eth_mystery")
	assert.Equal(t, 1, rec.count(metrics.RequestRouted))
	assert.Equal(t, 1, rec.count(metrics.RequestUnsupported))
}

func TestDispatch_OpenApprovalWithoutPrecheck(t *testing.T) {
	d := dispatch(t, New(), testCatalog(t),
		request("eip155:1", catalog.MethodPersonalSign, []any{"0x68656c6c6f", evmAddr}))

	assert.Equal(t, OpenApproval, d.Outcome.Kind)
	assert.Equal(t, WorkflowSignMessage, d.Outcome.Workflow)
	assert.Nil(t, d.Response)
}

func TestGetCapabilities(t *testing.T) {
	rec := newCountingRecorder()
	r := New(WithMetrics(rec))
	c := testCatalog(t)

	d := dispatch(t, r, c, request("eip155:8453", catalog.MethodGetCapabilities, []any{evmSmart}))
	require.NotNil(t, d.Response)
	require.Nil(t, d.Response.Error)
	assert.Equal(t, types.Capabilities{
		"0x2105": {"atomic": map[string]any{"status": "supported"}},
	}, d.Response.Result)
	assert.Equal(t, 1, rec.count(metrics.RequestAutoResponded))

	d = dispatch(t, r, c, request("eip155:8453", catalog.MethodGetCapabilities, []any{evmSmart, []string{"0x1"}}))
	require.Nil(t, d.Response.Error)
	assert.Equal(t, types.Capabilities{}, d.Response.Result)

	requireErrorCode(t, dispatch(t, r, c, request("eip155:1", catalog.MethodGetCapabilities, []any{})), types.CodeInvalidParams)
	requireErrorCode(t, dispatch(t, r, c, request("eip155:1", catalog.MethodGetCapabilities, []any{"nope"})), types.CodeInvalidParams)
	requireErrorCode(t, dispatch(t, r, c, request("eip155:1", catalog.MethodGetCapabilities, []any{evmUnowned})), types.CodeInvalidParams)
	requireErrorCode(t, dispatch(t, r, c, request("eip155:1", catalog.MethodGetCapabilities, map[string]any{"a": 1})), types.CodeInvalidParams)
	assert.Equal(t, 4, rec.count(metrics.HandlerError))
}

func TestGetCallsStatus(t *testing.T) {
	c := testCatalog(t)

	d := dispatch(t, New(), c, request("eip155:1", catalog.MethodGetCallsStatus, []any{"0xabc"}))
	requireErrorCode(t, d, types.CodeUnknownBundleID)

	status := &types.CallsStatus{Version: "2.0.0", ID: "0xabc", ChainID: "0x1", Status: 200, Atomic: true}
	r := New(WithCallsStatusProvider(fixedCallsStatus{status: status}))

	d = dispatch(t, r, c, request("eip155:1", catalog.MethodGetCallsStatus, []any{"0xabc"}))
	require.Nil(t, d.Response.Error)
	assert.Same(t, status, d.Response.Result)

	requireErrorCode(t, dispatch(t, r, c, request("eip155:1", catalog.MethodGetCallsStatus, []any{})), types.CodeInvalidParams)
}

func TestShowCallsStatus(t *testing.T) {
	d := dispatch(t, New(), testCatalog(t), request("eip155:1", catalog.MethodShowCallsStatus, []any{"0xabc"}))
	requireErrorCode(t, d, types.CodeInternalError)
}

func TestAccountsResponders(t *testing.T) {
	c := testCatalog(t)
	r := New()

	d := dispatch(t, r, c, request("near:mainnet", catalog.MethodNearGetAccounts, []any{}))
	require.Nil(t, d.Response.Error)
	assert.Equal(t, []any{map[string]string{"accountId": nearAddr}}, d.Response.Result)

	d = dispatch(t, r, c, request("tezos:mainnet", catalog.MethodTezosGetAccounts, nil))
	require.Nil(t, d.Response.Error)
	assert.Equal(t, []any{map[string]string{"address": tezosAddr}}, d.Response.Result)

	d = dispatch(t, r, c, request("kadena:mainnet01", catalog.MethodKadenaGetAccounts, []any{}))
	require.Nil(t, d.Response.Error)
	assert.Equal(t, map[string]any{"accounts": []kadenaAccount{{
		Account:   "k:" + kadenaKey,
		PublicKey: kadenaKey,
		KadenaAccounts: []kadenaCoinAccount{{
			Name:     "k:" + kadenaKey,
			Contract: "coin",
			Chains:   []string{"mainnet01"},
		}},
	}}}, d.Response.Result)
}

func TestAccountsResponders_PreferSessionAccounts(t *testing.T) {
	rc := &RequestContext{
		Request: request("near:mainnet", catalog.MethodNearGetAccounts, []any{}),
		Catalog: testCatalog(t),
		Session: &types.Session{
			Topic: "topic-1",
			Namespaces: types.Namespaces{
				"near": {Accounts: []string{"near:testnet:carol.near", "near:mainnet:bob.near"}},
			},
		},
	}

	d := New().Dispatch(context.Background(), rc)
	require.Nil(t, d.Response.Error)
	assert.Equal(t, []any{map[string]string{"accountId": "bob.near"}}, d.Response.Result)
}

func TestPrecheck_TypedData(t *testing.T) {
	c := testCatalog(t)
	r := New()

	d := dispatch(t, r, c, request("eip155:1", catalog.MethodEthSignTypedDataV4, []any{evmAddr, mailTypedData}))
	assert.Equal(t, WorkflowSignTypedData, d.Outcome.Workflow)
	assert.Nil(t, d.Response)

	d = dispatch(t, r, c, request("eip155:1", catalog.MethodEthSignTypedDataV3, []any{evmAddr, json.RawMessage(mailTypedData)}))
	assert.Nil(t, d.Response)

	d = dispatch(t, r, c, request("eip155:8453", catalog.MethodEthSignTypedDataV4, []any{evmAddr, mailTypedData}))
	requireErrorCode(t, d, types.CodeInvalidParams)
	assert.Contains(t, d.Response.Error.Message, "does not match")

	d = dispatch(t, r, c, request("eip155:1", catalog.MethodEthSignTypedDataV4, []any{evmAddr, "not json"}))
	requireErrorCode(t, d, types.CodeInvalidParams)

	d = dispatch(t, r, c, request("eip155:1", catalog.MethodEthSignTypedDataV4, []any{evmAddr}))
	requireErrorCode(t, d, types.CodeInvalidParams)

	legacy := []any{[]map[string]string{{"type": "string", "name": "msg", "value": "hi"}}, evmAddr}
	d = dispatch(t, r, c, request("eip155:1", catalog.MethodEthSignTypedData, legacy))
	assert.Nil(t, d.Response)
}

func TestPrecheck_SendCalls(t *testing.T) {
	c := testCatalog(t)
	r := New()

	calls := func(from, chainID string, n int) []any {
		batch := make([]map[string]string, n)
		for i := range batch {
			batch[i] = map[string]string{"to": evmAddr, "value": "0x0"}
		}
		return []any{map[string]any{
			"version":        "2.0.0",
			"from":           from,
			"chainId":        chainID,
			"atomicRequired": true,
			"calls":          batch,
		}}
	}

	d := dispatch(t, r, c, request("eip155:1", catalog.MethodSendCalls, calls(evmSmart, "0x1", 2)))
	assert.Equal(t, WorkflowSendCalls, d.Outcome.Workflow)
	assert.Nil(t, d.Response)

	requireErrorCode(t, dispatch(t, r, c, request("eip155:1", catalog.MethodSendCalls, calls(evmAddr, "0x1", 1))), types.CodeInternalError)
	requireErrorCode(t, dispatch(t, r, c, request("eip155:1", catalog.MethodSendCalls, calls(evmUnowned, "0x1", 1))), types.CodeInvalidParams)
	requireErrorCode(t, dispatch(t, r, c, request("eip155:1", catalog.MethodSendCalls, calls(evmSmart, "0x2105", 1))), types.CodeInvalidParams)
	requireErrorCode(t, dispatch(t, r, c, request("eip155:1", catalog.MethodSendCalls, calls(evmSmart, "0x1", 0))), types.CodeInvalidParams)
	requireErrorCode(t, dispatch(t, r, c, request("eip155:1", catalog.MethodSendCalls, []any{})), types.CodeInvalidParams)
}

func TestPrecheck_Checkout(t *testing.T) {
	c := testCatalog(t)
	r := New()

	order := func(payments ...map[string]string) []any {
		return []any{map[string]any{"orderId": "order-1", "acceptedPayments": payments}}
	}
	usdc := func(amount string) map[string]string {
		return map[string]string{
			"recipient": "eip155:1:" + evmAddr,
			"asset":     "eip155:1/erc20:0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
			"amount":    amount,
		}
	}

	d := dispatch(t, r, c, request("eip155:1", catalog.MethodWalletCheckout, order(usdc("0x2710"), usdc("10000"))))
	assert.Equal(t, WorkflowCheckout, d.Outcome.Workflow)
	assert.Nil(t, d.Response)

	requireErrorCode(t, dispatch(t, r, c, request("eip155:1", catalog.MethodWalletCheckout, order())), types.CodeInvalidParams)
	requireErrorCode(t, dispatch(t, r, c, request("eip155:1", catalog.MethodWalletCheckout, order(usdc("-5")))), types.CodeInvalidParams)
	requireErrorCode(t, dispatch(t, r, c, request("eip155:1", catalog.MethodWalletCheckout, []any{map[string]any{}})), types.CodeInvalidParams)
}

func TestRespond_RecoversPanics(t *testing.T) {
	rec := newCountingRecorder()
	r := New(
		WithMetrics(rec),
		WithRoute("eip155", "boom", Outcome{
			Kind: AutoRespond,
			Responder: func(context.Context, *RequestContext) (any, error) {
				panic("kaboom")
			},
		}),
		WithRoute("eip155", "boom_check", Outcome{
			Kind:     OpenApproval,
			Workflow: WorkflowSignMessage,
			Precheck: func(*RequestContext) error {
				panic("kaboom")
			},
		}),
		WithRoute("eip155", "nil_responder", Outcome{Kind: AutoRespond}),
	)
	c := testCatalog(t)

	for _, method := range []string{"boom", "boom_check", "nil_responder"} {
		d := dispatch(t, r, c, request("eip155:1", method, []any{}))
		requireErrorCode(t, d, types.CodeInternalError)
	}
	assert.Equal(t, 3, rec.count(metrics.HandlerError))
}

func TestToRPCError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"rpc error passes through", rpcError(types.CodeUnknownBundleID, "x"), types.CodeUnknownBundleID},
		{"unsupported method", types.ErrUnsupportedMethodError, 5101},
		{"invalid request", &types.WalletError{Code: types.ErrInvalidRequest, Message: "bad"}, types.CodeInvalidParams},
		{"rate limited", &types.WalletError{Code: types.ErrRateLimited, Message: "slow down"}, types.CodeLimitExceeded},
		{"user rejected", &types.WalletError{Code: types.ErrUserRejected}, 5000},
		{"other wallet error", types.NewConfigurationError("broken"), types.CodeInternalError},
		{"plain error", errors.New("boom"), types.CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, ToRPCError(tt.err).Code)
		})
	}
}
