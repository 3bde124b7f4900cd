// Package walletkit provides the namespace negotiation and request dispatch
// core of a multi-chain wallet speaking a WalletConnect style session
// protocol.
package walletkit

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vitwit/walletkit/catalog"
	"github.com/vitwit/walletkit/events"
	"github.com/vitwit/walletkit/logger"
	"github.com/vitwit/walletkit/metrics"
	"github.com/vitwit/walletkit/namespaces"
	"github.com/vitwit/walletkit/router"
	"github.com/vitwit/walletkit/types"
	"github.com/vitwit/walletkit/utils"
)

// ErrNotAttached is returned by event operations before Attach.
var ErrNotAttached = errors.New("wallet has no event manager attached")

// Wallet is the main struct that ties the catalog, negotiation, routing
// and session events together.
type Wallet struct {
	config   *types.WalletConfig
	catalog  atomic.Pointer[catalog.Catalog]
	router   *router.Router
	manager  atomic.Pointer[events.Manager]
	provider catalog.ChainCapabilityProvider
	table    catalog.Table

	// configProvider is set when addresses come from the config itself.
	configProvider bool

	callsStatus router.CallsStatusProvider
	registerer  prometheus.Registerer

	logger  logger.Logger
	metrics metrics.Recorder
	timeout time.Duration
}

// New creates a Wallet from cfg. The catalog is built and every catalog
// method is checked to have a route; any failure is a ConfigurationError.
func New(cfg *types.WalletConfig, opts ...Option) (*Wallet, error) {
	if cfg == nil {
		return nil, types.NewConfigurationError("wallet config is nil")
	}
	if err := utils.ValidateWalletConfig(cfg); err != nil {
		return nil, err
	}

	w := &Wallet{
		config:  cfg,
		table:   catalog.DefaultTable,
		timeout: 30 * time.Second,
	}
	if cfg.DefaultTimeout > 0 {
		w.timeout = cfg.DefaultTimeout
	}
	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logger.NewZapLogger(cfg.LogLevel)
	}
	if w.metrics == nil && cfg.EnableMetrics {
		reg := w.registerer
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		w.metrics = metrics.NewPrometheusRecorderWith(reg)
	}
	w.metrics = metrics.OrNoop(w.metrics)
	if w.provider == nil {
		w.provider = providerFromConfig(cfg)
		w.configProvider = true
	}

	routerOpts := []router.Option{router.WithLogger(w.logger), router.WithMetrics(w.metrics)}
	if w.callsStatus != nil {
		routerOpts = append(routerOpts, router.WithCallsStatusProvider(w.callsStatus))
	}
	w.router = router.New(routerOpts...)

	c, err := w.buildCatalog(cfg)
	if err != nil {
		return nil, err
	}
	w.catalog.Store(c)

	return w, nil
}

func providerFromConfig(cfg *types.WalletConfig) catalog.StaticProvider {
	p := make(catalog.StaticProvider, len(cfg.Namespaces))
	for ns, nc := range cfg.Namespaces {
		p[ns] = nc.Addresses
	}
	return p
}

func (w *Wallet) buildCatalog(cfg *types.WalletConfig) (*catalog.Catalog, error) {
	opts := []catalog.Option{
		catalog.WithTable(w.table),
		catalog.WithAccountLimit(cfg.AddressesToApprove),
		catalog.WithLogger(w.logger),
	}
	for ns, nc := range cfg.Namespaces {
		if len(nc.SmartAccounts) > 0 {
			opts = append(opts, catalog.WithSmartAccounts(ns, nc.SmartAccounts...))
		}
		if len(nc.Capabilities) > 0 {
			opts = append(opts, catalog.WithCapabilities(nc.Capabilities))
		}
	}

	c, err := catalog.Build(cfg.Chains(), w.provider, opts...)
	if err != nil {
		return nil, err
	}
	if err := w.router.Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Catalog returns the current capability catalog.
func (w *Wallet) Catalog() *catalog.Catalog {
	return w.catalog.Load()
}

// Router returns the request router.
func (w *Wallet) Router() *router.Router {
	return w.router
}

// Reload rebuilds the catalog from cfg and swaps it in. The old catalog
// stays in place when the new one fails to build.
func (w *Wallet) Reload(cfg *types.WalletConfig) error {
	if cfg == nil {
		return types.NewConfigurationError("wallet config is nil")
	}
	if err := utils.ValidateWalletConfig(cfg); err != nil {
		return err
	}
	if w.configProvider {
		w.provider = providerFromConfig(cfg)
	}

	c, err := w.buildCatalog(cfg)
	if err != nil {
		return fmt.Errorf("failed to reload catalog: %w", err)
	}
	w.catalog.Store(c)
	w.config = cfg
	if m := w.manager.Load(); m != nil {
		m.SetCatalog(c)
	}

	w.logger.Info("catalog reloaded", map[string]any{"chains": len(c.Chains())})
	return nil
}

// Negotiate reconciles a proposal against the catalog.
func (w *Wallet) Negotiate(proposal *types.Proposal) (*namespaces.Result, error) {
	start := time.Now()
	result, err := namespaces.Reconcile(proposal, w.catalog.Load())
	w.metrics.ObserveLatency(metrics.OpNegotiate, time.Since(start), nil)
	return result, err
}

// Resolve partitions the proposal's chains into supported and unsupported.
func (w *Wallet) Resolve(proposal *types.Proposal) types.SupportedChainsResult {
	return namespaces.Resolve(proposal, w.catalog.Load())
}

// Route looks up how a (namespace, method) pair is handled.
func (w *Wallet) Route(namespace, method string) router.Outcome {
	return w.router.Route(namespace, method)
}

// Dispatch routes a request and runs inline handling under the default
// timeout.
func (w *Wallet) Dispatch(ctx context.Context, req *types.SessionRequest, session *types.Session) router.Dispatch {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	return w.router.Dispatch(ctx, &router.RequestContext{
		Request: req,
		Session: session,
		Catalog: w.catalog.Load(),
	})
}

// BuildRequiredNamespaces builds the required namespaces of a
// wallet-originated proposal.
func (w *Wallet) BuildRequiredNamespaces(chainIDs []string) (types.Namespaces, error) {
	return namespaces.BuildRequired(chainIDs, w.table)
}

// BuildOptionalNamespaces builds the optional namespaces of a
// wallet-originated proposal.
func (w *Wallet) BuildOptionalNamespaces(chainIDs []string) (types.Namespaces, error) {
	return namespaces.BuildOptional(chainIDs, w.table)
}

// Attach creates the session event manager. It can be called once.
func (w *Wallet) Attach(responder events.Responder, runner events.WorkflowRunner, opts ...events.Option) (*events.Manager, error) {
	rl := w.config.RateLimit
	base := []events.Option{
		events.WithRouter(w.router),
		events.WithLogger(w.logger),
		events.WithMetrics(w.metrics),
		events.WithRateLimit(rl.RequestsPerSecond, rl.Burst, rl.IdleTTL),
	}

	m, err := events.NewManager(w.catalog.Load(), responder, runner, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	if !w.manager.CompareAndSwap(nil, m) {
		return nil, types.NewConfigurationError("event manager already attached")
	}
	return m, nil
}

// Init registers the event handlers on source.
func (w *Wallet) Init(ctx context.Context, source events.EventSource) error {
	m := w.manager.Load()
	if m == nil {
		return ErrNotAttached
	}
	return m.Init(ctx, source)
}

// Complete answers a pending workflow.
func (w *Wallet) Complete(ctx context.Context, workflowID string, d events.Decision) error {
	m := w.manager.Load()
	if m == nil {
		return ErrNotAttached
	}
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	return m.Complete(ctx, workflowID, d)
}

// Cancel rejects a pending workflow.
func (w *Wallet) Cancel(ctx context.Context, workflowID string) error {
	m := w.manager.Load()
	if m == nil {
		return ErrNotAttached
	}
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	return m.Cancel(ctx, workflowID)
}

// Close rejects every open workflow and flushes the logger.
func (w *Wallet) Close(ctx context.Context) error {
	var errs []error
	if m := w.manager.Load(); m != nil {
		errs = append(errs, m.CancelAll(ctx))
	}
	if s, ok := w.logger.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
	return errors.Join(errs...)
}

// Version information
const (
	Version         = "1.0.0"
	ProtocolVersion = 2
)

// GetVersion returns version information
func GetVersion() map[string]interface{} {
	return map[string]interface{}{
		"library_version":      Version,
		"protocol_version":     ProtocolVersion,
		"supported_namespaces": catalog.DefaultTable.Namespaces(),
	}
}
