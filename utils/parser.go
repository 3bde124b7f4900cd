package utils

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/vitwit/walletkit/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Register custom validators
	_ = validate.RegisterValidation("chainid", validateChainIDTag)
}

// ParseProposal parses and validates a session proposal from JSON
func ParseProposal(data []byte) (*types.Proposal, error) {
	var proposal types.Proposal

	if err := json.Unmarshal(data, &proposal); err != nil {
		return nil, &types.WalletError{
			Code:    types.ErrInvalidProposal,
			Message: fmt.Sprintf("failed to parse session proposal: %v", err),
		}
	}

	// Validate using struct tags
	if err := validate.Struct(&proposal); err != nil {
		return nil, &types.WalletError{
			Code:    types.ErrInvalidProposal,
			Message: fmt.Sprintf("validation failed: %v", err),
		}
	}

	if err := ValidateProposalNamespaces(proposal.Params.RequiredNamespaces); err != nil {
		return nil, &types.WalletError{
			Code:    types.ErrInvalidProposal,
			Message: fmt.Sprintf("invalid required namespaces: %v", err),
		}
	}
	if err := ValidateProposalNamespaces(proposal.Params.OptionalNamespaces); err != nil {
		return nil, &types.WalletError{
			Code:    types.ErrInvalidProposal,
			Message: fmt.Sprintf("invalid optional namespaces: %v", err),
		}
	}

	return &proposal, nil
}

// ValidateProposalNamespaces checks the keys and chains of a proposal
// namespace map. A key is either a namespace or a chain id; listed chains
// must belong to the key's namespace.
func ValidateProposalNamespaces(ns types.Namespaces) error {
	for _, key := range ns.Keys() {
		namespace := key
		if types.IsChainKey(key) {
			if err := ValidateChainID(key, ""); err != nil {
				return err
			}
			namespace = types.ChainID(key).Namespace()
		} else if err := types.ChainID(key + ":0").Validate(); err != nil {
			return fmt.Errorf("invalid namespace key %q", key)
		}
		for _, chain := range ns[key].Chains {
			if err := ValidateChainID(chain, namespace); err != nil {
				return err
			}
		}
	}
	return nil
}

// ParseSessionRequest parses and validates a session request event from JSON
func ParseSessionRequest(data []byte) (*types.SessionRequest, error) {
	var req types.SessionRequest

	if err := json.Unmarshal(data, &req); err != nil {
		return nil, &types.WalletError{
			Code:    types.ErrInvalidRequest,
			Message: fmt.Sprintf("failed to parse session request: %v", err),
		}
	}

	if err := validate.Struct(&req); err != nil {
		return nil, &types.WalletError{
			Code:    types.ErrInvalidRequest,
			Message: fmt.Sprintf("validation failed: %v", err),
		}
	}

	return &req, nil
}

// ValidateStruct runs the validation tags of v.
func ValidateStruct(v any) error {
	return validate.Struct(v)
}

// ParseWalletConfig parses WalletConfig from YAML or JSON
func ParseWalletConfig(data []byte) (*types.WalletConfig, error) {
	var config types.WalletConfig

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, types.NewConfigurationError("failed to parse wallet config: %v", err)
	}

	if err := ValidateWalletConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// ValidateWalletConfig checks struct tags, then that every chain belongs to
// its namespace and every address matches the namespace's format.
func ValidateWalletConfig(config *types.WalletConfig) error {
	if err := validate.Struct(config); err != nil {
		return types.NewConfigurationError("validation failed: %v", err)
	}

	for ns, nc := range config.Namespaces {
		for _, chain := range nc.Chains {
			if err := ValidateChainID(chain, ns); err != nil {
				return types.NewConfigurationError("namespace %s: %v", ns, err)
			}
		}
		for _, addr := range append(append([]string{}, nc.SmartAccounts...), nc.Addresses...) {
			if err := ValidateAddressForNamespace(addr, ns); err != nil {
				return types.NewConfigurationError("namespace %s: %v", ns, err)
			}
		}
		for chain := range nc.Capabilities {
			if err := ValidateChainID(chain, ns); err != nil {
				return types.NewConfigurationError("namespace %s capabilities: %v", ns, err)
			}
		}
	}

	return nil
}

// LoadWalletConfig reads and parses a config file.
func LoadWalletConfig(path string) (*types.WalletConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewConfigurationError("failed to read wallet config %s: %v", path, err)
	}
	return ParseWalletConfig(data)
}

// SerializeNamespaces converts approved namespaces to JSON
func SerializeNamespaces(ns types.Namespaces) ([]byte, error) {
	return json.Marshal(ns)
}

// SerializeResponse converts a JSON-RPC response to JSON
func SerializeResponse(resp types.JSONRPCResponse) ([]byte, error) {
	return json.Marshal(resp)
}

func validateChainIDTag(fl validator.FieldLevel) bool {
	return types.ChainID(fl.Field().String()).Validate() == nil
}
