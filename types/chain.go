package types

import (
	"fmt"
	"regexp"
	"strings"
)

var namespacePattern = regexp.MustCompile(`^[-a-z0-9]{3,8}$`)

// ChainID identifies a chain as "namespace:reference" (e.g. "eip155:1").
type ChainID string

// ParseChainID parses and validates a chain identifier.
func ParseChainID(s string) (ChainID, error) {
	id := ChainID(s)
	if err := id.Validate(); err != nil {
		return "", err
	}
	return id, nil
}

// Validate checks that the id has exactly one separator, a lowercase
// namespace and a non-empty reference.
func (c ChainID) Validate() error {
	if strings.Count(string(c), ":") != 1 {
		return fmt.Errorf("chain id %q must have exactly one ':' separator", string(c))
	}
	ns, ref, _ := strings.Cut(string(c), ":")
	if !namespacePattern.MatchString(ns) {
		return fmt.Errorf("chain id %q has invalid namespace %q", string(c), ns)
	}
	if ref == "" {
		return fmt.Errorf("chain id %q has empty reference", string(c))
	}
	return nil
}

// Namespace returns the part before the first ':'. An id without a
// separator is its own namespace.
func (c ChainID) Namespace() string {
	ns, _, _ := strings.Cut(string(c), ":")
	return ns
}

// Reference returns the part after the first ':'.
func (c ChainID) Reference() string {
	_, ref, _ := strings.Cut(string(c), ":")
	return ref
}

func (c ChainID) String() string {
	return string(c)
}

// IsChainKey reports whether a namespace map key is a fully qualified chain
// id rather than a bare namespace.
func IsChainKey(key string) bool {
	return strings.Contains(key, ":")
}

// AccountID identifies an account as "namespace:reference:address".
type AccountID string

// NewAccountID joins a chain id and an address.
func NewAccountID(chain ChainID, address string) AccountID {
	return AccountID(string(chain) + ":" + address)
}

// ParseAccountID parses and validates an account identifier.
func ParseAccountID(s string) (AccountID, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[2] == "" {
		return "", fmt.Errorf("account id %q must be namespace:reference:address", s)
	}
	if err := ChainID(parts[0] + ":" + parts[1]).Validate(); err != nil {
		return "", fmt.Errorf("account id %q: %w", s, err)
	}
	return AccountID(s), nil
}

// ChainID returns the chain part of the account.
func (a AccountID) ChainID() ChainID {
	parts := strings.SplitN(string(a), ":", 3)
	if len(parts) < 2 {
		return ChainID(a)
	}
	return ChainID(parts[0] + ":" + parts[1])
}

// Address returns the address part of the account.
func (a AccountID) Address() string {
	parts := strings.SplitN(string(a), ":", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

func (a AccountID) String() string {
	return string(a)
}
