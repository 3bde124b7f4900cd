package walletkit

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/walletkit/catalog"
	"github.com/vitwit/walletkit/events"
	"github.com/vitwit/walletkit/logger"
	"github.com/vitwit/walletkit/router"
	"github.com/vitwit/walletkit/types"
	"github.com/vitwit/walletkit/utils"
)

const (
	evmAddr    = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
	cosmosAddr = "cosmos1qypqxpq9qcrsszg2pvxq6rs0zqg3yyc5lzv7xu"
)

const testConfig = `
defaultTimeout: 5s
logLevel: error
namespaces:
  eip155:
    chains: ["eip155:1", "eip155:137"]
    addresses: ["0x742d35Cc6634C0532925a3b844Bc454e4438f44e"]
  cosmos:
    chains: ["cosmos:cosmoshub-4"]
    addresses: ["cosmos1qypqxpq9qcrsszg2pvxq6rs0zqg3yyc5lzv7xu"]
`

func newTestWallet(t *testing.T, opts ...Option) *Wallet {
	t.Helper()
	cfg, err := utils.ParseWalletConfig([]byte(testConfig))
	require.NoError(t, err)

	w, err := New(cfg, append([]Option{WithLogger(logger.NoopLogger{})}, opts...)...)
	require.NoError(t, err)
	return w
}

func evmProposal(required, optional types.Namespaces) *types.Proposal {
	return &types.Proposal{
		ID: 1,
		Params: types.ProposalParams{
			ID:                 1,
			PairingTopic:       "pairing",
			RequiredNamespaces: required,
			OptionalNamespaces: optional,
		},
	}
}

func TestNew(t *testing.T) {
	w := newTestWallet(t)

	assert.Equal(t, []string{"cosmos:cosmoshub-4", "eip155:1", "eip155:137"}, w.Catalog().Chains())
	assert.Equal(t, []string{"eip155:1:" + evmAddr, "eip155:137:" + evmAddr}, w.Catalog().Accounts(catalog.NamespaceEIP155))
	assert.Equal(t, 5*time.Second, w.timeout)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, types.ErrConfigurationError)

	tests := []struct {
		name string
		cfg  *types.WalletConfig
	}{
		{
			name: "no namespaces",
			cfg:  &types.WalletConfig{},
		},
		{
			name: "chain outside its namespace",
			cfg: &types.WalletConfig{Namespaces: map[string]types.NamespaceConfig{
				"eip155": {Chains: []string{"cosmos:cosmoshub-4"}, Addresses: []string{evmAddr}},
			}},
		},
		{
			name: "address in the wrong format",
			cfg: &types.WalletConfig{Namespaces: map[string]types.NamespaceConfig{
				"eip155": {Chains: []string{"eip155:1"}, Addresses: []string{cosmosAddr}},
			}},
		},
		{
			name: "namespace without defaults",
			cfg: &types.WalletConfig{Namespaces: map[string]types.NamespaceConfig{
				"starknet": {Chains: []string{"starknet:SN_MAIN"}, Addresses: []string{"0x01"}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, WithLogger(logger.NoopLogger{}))
			require.Error(t, err)
		})
	}
}

func TestNew_UnroutedTableMethod(t *testing.T) {
	cfg, err := utils.ParseWalletConfig([]byte(testConfig))
	require.NoError(t, err)

	custom := catalog.Table{
		catalog.NamespaceCosmos: {RequiredMethods: []string{"cosmos_getAccounts"}},
	}
	_, err = New(cfg, WithLogger(logger.NoopLogger{}), WithTable(custom))
	assert.ErrorIs(t, err, types.ErrConfigurationError)
}

func TestNew_Provider(t *testing.T) {
	other := "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	w := newTestWallet(t, WithProvider(catalog.StaticProvider{
		catalog.NamespaceEIP155: {other},
		catalog.NamespaceCosmos: {cosmosAddr},
	}))
	assert.Equal(t, []string{"eip155:1:" + other, "eip155:137:" + other}, w.Catalog().Accounts(catalog.NamespaceEIP155))
}

func TestNegotiate(t *testing.T) {
	w := newTestWallet(t)

	proposal := evmProposal(
		types.Namespaces{"eip155": {
			Chains:  []string{"eip155:1"},
			Methods: []string{catalog.MethodPersonalSign},
			Events:  []string{catalog.EventChainChanged},
		}},
		types.Namespaces{"eip155:137": {
			Methods: []string{catalog.MethodEthSendTransaction},
		}},
	)

	result, err := w.Negotiate(proposal)
	require.NoError(t, err)

	want := types.Namespaces{"eip155": {
		Chains:   []string{"eip155:1", "eip155:137"},
		Methods:  []string{catalog.MethodPersonalSign, catalog.MethodEthSendTransaction},
		Events:   []string{catalog.EventChainChanged},
		Accounts: []string{"eip155:1:" + evmAddr, "eip155:137:" + evmAddr},
	}}
	if diff := cmp.Diff(want, result.Approved); diff != "" {
		t.Errorf("approved namespaces mismatch (-want +got):\n%s", diff)
	}

	support := w.Resolve(proposal)
	assert.True(t, support.CanApprove())
	assert.Empty(t, support.Unsupported)
}

func TestNegotiate_IncompatibleRequired(t *testing.T) {
	w := newTestWallet(t)

	_, err := w.Negotiate(evmProposal(types.Namespaces{"eip155": {
		Chains:  []string{"eip155:10"},
		Methods: []string{catalog.MethodPersonalSign},
	}}, nil))
	assert.ErrorIs(t, err, types.ErrIncompatibleRequiredError)
}

func TestReload(t *testing.T) {
	w := newTestWallet(t)

	cfg, err := utils.ParseWalletConfig([]byte(`
namespaces:
  eip155:
    chains: ["eip155:8453"]
    addresses: ["0x742d35Cc6634C0532925a3b844Bc454e4438f44e"]
`))
	require.NoError(t, err)
	require.NoError(t, w.Reload(cfg))
	assert.Equal(t, []string{"eip155:8453"}, w.Catalog().Chains())

	// A failed reload keeps the current catalog.
	bad := &types.WalletConfig{Namespaces: map[string]types.NamespaceConfig{
		"starknet": {Chains: []string{"starknet:SN_MAIN"}, Addresses: []string{"0x01"}},
	}}
	require.Error(t, w.Reload(bad))
	assert.Equal(t, []string{"eip155:8453"}, w.Catalog().Chains())

	assert.Error(t, w.Reload(nil))
}

func TestBuildNamespaces(t *testing.T) {
	w := newTestWallet(t)

	required, err := w.BuildRequiredNamespaces([]string{"eip155:1", "cosmos:cosmoshub-4"})
	require.NoError(t, err)
	assert.Equal(t, []string{"cosmos", "eip155"}, required.Keys())
	assert.Equal(t, []string{catalog.MethodEthSendTransaction, catalog.MethodPersonalSign}, required["eip155"].Methods)

	optional, err := w.BuildOptionalNamespaces([]string{"eip155:1"})
	require.NoError(t, err)
	assert.Contains(t, optional["eip155"].Methods, catalog.MethodSendCalls)

	_, err = w.BuildRequiredNamespaces([]string{"starknet:SN_MAIN"})
	assert.ErrorIs(t, err, types.ErrUnknownNamespaceError)
}

func TestDispatch(t *testing.T) {
	w := newTestWallet(t)

	assert.Equal(t, router.OpenApproval, w.Route(catalog.NamespaceEIP155, catalog.MethodPersonalSign).Kind)
	assert.Equal(t, router.Unsupported, w.Route(catalog.NamespaceEIP155, "eth_mine").Kind)

	raw, _ := json.Marshal([]any{evmAddr, []string{"0x1"}})
	d := w.Dispatch(context.Background(), &types.SessionRequest{
		ID:    7,
		Topic: "topic",
		Params: types.RequestParams{
			ChainID: "eip155:1",
			Request: types.RPCRequest{Method: catalog.MethodGetCapabilities, Params: raw},
		},
	}, nil)
	require.NotNil(t, d.Response)
	assert.Nil(t, d.Response.Error)
	assert.Equal(t, int64(7), d.Response.ID)
}

type stubResponder struct {
	mu       sync.Mutex
	approved []types.Namespaces
}

func (s *stubResponder) ApproveSession(_ context.Context, _ int64, ns types.Namespaces, _ map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.approved = append(s.approved, ns)
	return nil
}

func (s *stubResponder) RejectSession(context.Context, int64, types.Reason) error { return nil }

func (s *stubResponder) RespondSessionRequest(context.Context, string, types.JSONRPCResponse) error {
	return nil
}

func (s *stubResponder) ApproveSessionAuthenticate(context.Context, int64, any) error { return nil }

func (s *stubResponder) RejectSessionAuthenticate(context.Context, int64, types.Reason) error {
	return nil
}

func TestAttachAndComplete(t *testing.T) {
	w := newTestWallet(t)
	ctx := context.Background()

	assert.ErrorIs(t, w.Init(ctx, events.NewChannelSource(1)), ErrNotAttached)
	assert.ErrorIs(t, w.Complete(ctx, "missing", events.Reject()), ErrNotAttached)
	assert.ErrorIs(t, w.Cancel(ctx, "missing"), ErrNotAttached)

	responder := &stubResponder{}
	runner := events.NewChanRunner(4)
	_, err := w.Attach(responder, runner)
	require.NoError(t, err)

	_, err = w.Attach(responder, runner)
	assert.ErrorIs(t, err, types.ErrConfigurationError)

	src := events.NewChannelSource(4)
	require.NoError(t, w.Init(ctx, src))

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- src.Run(runCtx) }()
	defer func() {
		cancel()
		<-done
	}()

	require.NoError(t, src.Publish(ctx, types.Event{
		Kind: types.EventProposal,
		Proposal: evmProposal(types.Namespaces{"eip155": {
			Chains:  []string{"eip155:1"},
			Methods: []string{catalog.MethodPersonalSign},
		}}, nil),
	}))

	var wf events.Workflow
	select {
	case wf = <-runner.Workflows():
	case <-time.After(time.Second):
		t.Fatal("proposal workflow not opened")
	}
	assert.Equal(t, router.WorkflowSessionProposal, wf.Kind)

	require.NoError(t, w.Complete(ctx, wf.ID, events.Approve(nil)))
	responder.mu.Lock()
	require.Len(t, responder.approved, 1)
	assert.Equal(t, []string{"eip155:1:" + evmAddr}, responder.approved[0]["eip155"].Accounts)
	responder.mu.Unlock()

	assert.NoError(t, w.Close(ctx))
}

func TestMetrics(t *testing.T) {
	cfg, err := utils.ParseWalletConfig([]byte(testConfig + "enableMetrics: true\n"))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	w, err := New(cfg, WithLogger(logger.NoopLogger{}), WithRegisterer(reg))
	require.NoError(t, err)

	w.Dispatch(context.Background(), &types.SessionRequest{
		ID: 1,
		Params: types.RequestParams{
			ChainID: "eip155:1",
			Request: types.RPCRequest{Method: "eth_mine"},
		},
	}, nil)

	expected := `
# HELP walletkit_events_total walletkit event counters
# TYPE walletkit_events_total counter
walletkit_events_total{namespace="eip155",type="request_routed"} 1
walletkit_events_total{namespace="eip155",type="request_unsupported"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "walletkit_events_total"))
}

func TestGetVersion(t *testing.T) {
	v := GetVersion()
	assert.Equal(t, Version, v["library_version"])
	assert.Contains(t, v["supported_namespaces"], catalog.NamespaceEIP155)
}
