// Package catalog describes what the wallet supports: for every configured
// namespace its chains, methods, events and accounts.
package catalog

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/vitwit/walletkit/logger"
	"github.com/vitwit/walletkit/types"
	"github.com/vitwit/walletkit/utils"
)

// ChainCapabilityProvider supplies the wallet addresses for a chain.
type ChainCapabilityProvider interface {
	Addresses(chain types.ChainID) ([]string, error)
}

// StaticProvider serves addresses per namespace from configuration.
type StaticProvider map[string][]string

func (p StaticProvider) Addresses(chain types.ChainID) ([]string, error) {
	return p[chain.Namespace()], nil
}

// Option configures Build.
type Option func(*buildConfig)

type buildConfig struct {
	table         Table
	accountLimit  int
	capabilities  map[string]map[string]any
	smartAccounts map[string][]string
	logger        logger.Logger
}

// WithTable replaces the default table.
func WithTable(t Table) Option {
	return func(c *buildConfig) {
		c.table = t
	}
}

// WithAccountLimit caps the number of addresses paired with each chain.
// Zero or negative means no cap.
func WithAccountLimit(n int) Option {
	return func(c *buildConfig) {
		c.accountLimit = n
	}
}

// WithCapabilities sets the capabilities advertised per chain id.
func WithCapabilities(caps map[string]map[string]any) Option {
	return func(c *buildConfig) {
		for chain, v := range caps {
			c.capabilities[chain] = v
		}
	}
}

// WithSmartAccounts registers smart account addresses for a namespace.
// They are listed before the provider's addresses.
func WithSmartAccounts(namespace string, addrs ...string) Option {
	return func(c *buildConfig) {
		c.smartAccounts[namespace] = append(c.smartAccounts[namespace], addrs...)
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *buildConfig) {
		c.logger = l
	}
}

// Catalog is the read-only capability set of the wallet. It is safe for
// concurrent use once built.
type Catalog struct {
	table         Table
	order         []string
	namespaces    types.Namespaces
	chains        []string
	capabilities  map[string]map[string]any
	smartAccounts map[string]struct{}
}

// Build groups chains by namespace in first-seen order and merges each
// namespace's methods and events from the table. Accounts pair every chain
// with the provider's addresses for it.
func Build(chains []string, provider ChainCapabilityProvider, opts ...Option) (*Catalog, error) {
	cfg := &buildConfig{
		table:         DefaultTable,
		capabilities:  make(map[string]map[string]any),
		smartAccounts: make(map[string][]string),
		logger:        logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.table.Validate(); err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, types.NewConfigurationError("no capability provider configured")
	}

	c := &Catalog{
		table:         cfg.table,
		namespaces:    make(types.Namespaces),
		capabilities:  make(map[string]map[string]any),
		smartAccounts: make(map[string]struct{}),
	}

	for _, raw := range chains {
		id, err := types.ParseChainID(raw)
		if err != nil {
			return nil, types.NewConfigurationError("invalid chain %q: %v", raw, err)
		}
		if slices.Contains(c.chains, raw) {
			continue
		}

		ns := id.Namespace()
		defaults, err := cfg.table.Defaults(ns)
		if err != nil {
			return nil, types.NewConfigurationError("namespace %s is not in the default table", ns)
		}

		addrs, err := c.addressesFor(id, provider, cfg)
		if err != nil {
			return nil, err
		}

		desc, ok := c.namespaces[ns]
		if !ok {
			c.order = append(c.order, ns)
			desc = types.Namespace{
				Methods: defaults.Methods(),
				Events:  append([]string{}, defaults.Events...),
			}
		}
		desc.Chains = append(desc.Chains, raw)
		for _, addr := range addrs {
			desc.Accounts = append(desc.Accounts, string(types.NewAccountID(id, addr)))
		}
		c.namespaces[ns] = desc
		c.chains = append(c.chains, raw)
	}

	for _, ns := range c.order {
		if len(c.namespaces[ns].Accounts) == 0 {
			return nil, types.NewConfigurationError("namespace %s has no accounts", ns)
		}
	}

	for chain, caps := range cfg.capabilities {
		if !slices.Contains(c.chains, chain) {
			return nil, types.NewConfigurationError("capabilities configured for unknown chain %s", chain)
		}
		c.capabilities[chain] = caps
	}

	cfg.logger.Info("capability catalog built", map[string]any{
		"namespaces": c.order,
		"chains":     len(c.chains),
	})

	return c, nil
}

func (c *Catalog) addressesFor(id types.ChainID, provider ChainCapabilityProvider, cfg *buildConfig) ([]string, error) {
	ns := id.Namespace()

	provided, err := provider.Addresses(id)
	if err != nil {
		return nil, types.NewConfigurationError("addresses for %s: %v", id, err)
	}
	if cfg.accountLimit > 0 && len(provided) > cfg.accountLimit {
		provided = provided[:cfg.accountLimit]
	}

	var addrs []string
	for _, addr := range append(append([]string{}, cfg.smartAccounts[ns]...), provided...) {
		if err := utils.ValidateAddressForNamespace(addr, ns); err != nil {
			return nil, types.NewConfigurationError("chain %s: %v", id, err)
		}
		if slices.Contains(addrs, addr) {
			continue
		}
		addrs = append(addrs, addr)
	}
	for _, addr := range cfg.smartAccounts[ns] {
		c.smartAccounts[normalizeAddress(addr)] = struct{}{}
	}
	return addrs, nil
}

// ForNamespace returns a copy of the descriptor for a namespace.
func (c *Catalog) ForNamespace(ns string) (types.Namespace, bool) {
	desc, ok := c.namespaces[ns]
	if !ok {
		return types.Namespace{}, false
	}
	return desc.Clone(), true
}

// Namespaces returns a copy of every descriptor.
func (c *Catalog) Namespaces() types.Namespaces {
	return c.namespaces.Clone()
}

// NamespaceOrder returns the namespaces in configuration order.
func (c *Catalog) NamespaceOrder() []string {
	return slices.Clone(c.order)
}

// Chains returns every chain in configuration order.
func (c *Catalog) Chains() []string {
	return slices.Clone(c.chains)
}

// SupportsChain reports whether the chain is configured.
func (c *Catalog) SupportsChain(chain string) bool {
	desc, ok := c.namespaces[types.ChainID(chain).Namespace()]
	return ok && slices.Contains(desc.Chains, chain)
}

// SupportsMethod reports whether the namespace advertises the method.
func (c *Catalog) SupportsMethod(ns, method string) bool {
	desc, ok := c.namespaces[ns]
	return ok && slices.Contains(desc.Methods, method)
}

// Accounts returns the accounts of a namespace in catalog order.
func (c *Catalog) Accounts(ns string) []string {
	return slices.Clone(c.namespaces[ns].Accounts)
}

// Defaults returns the table row for a namespace.
func (c *Catalog) Defaults(ns string) (types.NamespaceDefaults, error) {
	return c.table.Defaults(ns)
}

// Table returns the default table the catalog was built from.
func (c *Catalog) Table() Table {
	return c.table
}

// Capabilities returns the capabilities configured for a chain.
func (c *Catalog) Capabilities(chain string) map[string]any {
	return c.capabilities[chain]
}

// IsSmartAccount reports whether addr was registered as a smart account.
func (c *Catalog) IsSmartAccount(addr string) bool {
	_, ok := c.smartAccounts[normalizeAddress(addr)]
	return ok
}

// OwnsAddress reports whether any account of the namespace uses addr.
func (c *Catalog) OwnsAddress(ns, addr string) bool {
	want := normalizeAddress(addr)
	for _, acc := range c.namespaces[ns].Accounts {
		if normalizeAddress(types.AccountID(acc).Address()) == want {
			return true
		}
	}
	return false
}

// WalletCapabilities answers a capability query for an eip155 address,
// keyed by hex chain id. Only chains listed in chainIDs are included when it
// is not empty.
func (c *Catalog) WalletCapabilities(addr string, chainIDs []string) (types.Capabilities, error) {
	if !c.OwnsAddress(NamespaceEIP155, addr) {
		return nil, fmt.Errorf("unknown account %s", addr)
	}

	out := make(types.Capabilities)
	for _, chain := range c.namespaces[NamespaceEIP155].Chains {
		caps, ok := c.capabilities[chain]
		if !ok {
			continue
		}
		ref, err := strconv.ParseUint(types.ChainID(chain).Reference(), 10, 64)
		if err != nil {
			continue
		}
		key := hexutil.EncodeUint64(ref)
		if len(chainIDs) > 0 && !containsFold(chainIDs, key) {
			continue
		}
		out[key] = caps
	}
	return out, nil
}

// SessionProperties returns the session properties sent with an approval.
// "capabilities" maps every approved eip155 smart account to its
// capabilities.
func (c *Catalog) SessionProperties(approved types.Namespaces) (map[string]string, error) {
	byAccount := make(map[string]types.Capabilities)
	for _, acc := range approved[NamespaceEIP155].Accounts {
		addr := types.AccountID(acc).Address()
		if !c.IsSmartAccount(addr) {
			continue
		}
		if _, seen := byAccount[addr]; seen {
			continue
		}
		caps, err := c.WalletCapabilities(addr, nil)
		if err != nil {
			return nil, err
		}
		byAccount[addr] = caps
	}

	raw, err := json.Marshal(byAccount)
	if err != nil {
		return nil, fmt.Errorf("failed to encode capabilities: %w", err)
	}
	return map[string]string{"capabilities": string(raw)}, nil
}

// eip155 addresses compare case-insensitively.
func normalizeAddress(addr string) string {
	if strings.HasPrefix(addr, "0x") || strings.HasPrefix(addr, "0X") {
		return strings.ToLower(addr)
	}
	return addr
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
