package types

import "time"

// ExtraData contains additional free-form configuration
type ExtraData map[string]interface{}

// NamespaceConfig configures one namespace the wallet supports.
type NamespaceConfig struct {
	// Chains as full chain ids, e.g. "eip155:1".
	Chains []string `json:"chains" yaml:"chains" validate:"required,min=1,dive,required,chainid"`

	// Addresses owned by the wallet; each is paired with every chain.
	Addresses []string `json:"addresses" yaml:"addresses" validate:"dive,required"`

	// SmartAccounts are addresses able to execute batched calls.
	SmartAccounts []string `json:"smartAccounts,omitempty" yaml:"smartAccounts,omitempty"`

	// Capabilities advertised per chain id for capability queries.
	Capabilities map[string]map[string]any `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
}

// RateLimitConfig bounds session requests per topic. Zero disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64       `json:"requestsPerSecond,omitempty" yaml:"requestsPerSecond" validate:"gte=0"`
	Burst             int           `json:"burst,omitempty" yaml:"burst" validate:"gte=0"`
	IdleTTL           time.Duration `json:"idleTTL,omitempty" yaml:"idleTTL"`
}

// WalletConfig contains global configuration for the wallet core
type WalletConfig struct {
	DefaultTimeout time.Duration `json:"defaultTimeout,omitempty" yaml:"defaultTimeout"`
	LogLevel       string        `json:"logLevel,omitempty" yaml:"logLevel" validate:"omitempty,oneof=debug info warn error"`
	EnableMetrics  bool          `json:"enableMetrics,omitempty" yaml:"enableMetrics"`

	// AddressesToApprove caps the addresses paired with each chain; zero
	// means all of them.
	AddressesToApprove int `json:"addressesToApprove,omitempty" yaml:"addressesToApprove" validate:"gte=0"`

	RateLimit  RateLimitConfig            `json:"rateLimit,omitempty" yaml:"rateLimit"`
	Namespaces map[string]NamespaceConfig `json:"namespaces" yaml:"namespaces" validate:"required,min=1,dive"`
	Extra      ExtraData                  `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Chains returns every configured chain id, namespaces in sorted order.
func (c *WalletConfig) Chains() []string {
	keys := make(Namespaces, len(c.Namespaces))
	for k := range c.Namespaces {
		keys[k] = Namespace{}
	}
	var chains []string
	for _, ns := range keys.Keys() {
		chains = append(chains, c.Namespaces[ns].Chains...)
	}
	return chains
}
