package types

import (
	"errors"
	"fmt"
	"slices"
)

// Namespace describes the chains, methods, events and accounts of one
// namespace, in the shape the session protocol puts on the wire.
type Namespace struct {
	// Chains requested or approved, in order.
	Chains []string `json:"chains,omitempty" yaml:"chains,omitempty"`

	// Methods that may be called over the session.
	Methods []string `json:"methods" yaml:"methods"`

	// Events the wallet may emit over the session.
	Events []string `json:"events" yaml:"events"`

	// Accounts as "namespace:reference:address". Empty in proposals.
	Accounts []string `json:"accounts,omitempty" yaml:"accounts,omitempty"`
}

// Clone returns a deep copy of the namespace.
func (n Namespace) Clone() Namespace {
	return Namespace{
		Chains:   slices.Clone(n.Chains),
		Methods:  slices.Clone(n.Methods),
		Events:   slices.Clone(n.Events),
		Accounts: slices.Clone(n.Accounts),
	}
}

// Namespaces maps a namespace (or, in proposals, a chain id) to its descriptor.
type Namespaces map[string]Namespace

// Clone returns a deep copy of the map.
func (ns Namespaces) Clone() Namespaces {
	if ns == nil {
		return nil
	}
	out := make(Namespaces, len(ns))
	for k, v := range ns {
		out[k] = v.Clone()
	}
	return out
}

// Keys returns the map keys in sorted order.
func (ns Namespaces) Keys() []string {
	keys := make([]string, 0, len(ns))
	for k := range ns {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// NamespaceDefaults is one row of the per-namespace default table: the
// methods and events advertised for every chain of the namespace.
type NamespaceDefaults struct {
	RequiredMethods []string `json:"requiredMethods" yaml:"requiredMethods"`
	OptionalMethods []string `json:"optionalMethods" yaml:"optionalMethods"`
	Events          []string `json:"events" yaml:"events"`
}

// Methods returns required then optional methods without duplicates.
func (d NamespaceDefaults) Methods() []string {
	out := make([]string, 0, len(d.RequiredMethods)+len(d.OptionalMethods))
	for _, m := range d.RequiredMethods {
		if !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	for _, m := range d.OptionalMethods {
		if !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	return out
}

// Metadata describes the application on the other side of the session.
type Metadata struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	URL         string   `json:"url" validate:"required"`
	Icons       []string `json:"icons"`
}

// Proposer is the application originating a session proposal.
type Proposer struct {
	PublicKey string   `json:"publicKey"`
	Metadata  Metadata `json:"metadata" validate:"required"`
}

// Relay names the relay protocol used by a proposal.
type Relay struct {
	Protocol string `json:"protocol"`
	Data     string `json:"data,omitempty"`
}

// ProposalParams is the body of a session proposal.
type ProposalParams struct {
	ID                 int64      `json:"id"`
	ExpiryTimestamp    int64      `json:"expiryTimestamp,omitempty"`
	Relays             []Relay    `json:"relays,omitempty"`
	Proposer           Proposer   `json:"proposer" validate:"required"`
	RequiredNamespaces Namespaces `json:"requiredNamespaces"`
	OptionalNamespaces Namespaces `json:"optionalNamespaces"`
	PairingTopic       string     `json:"pairingTopic,omitempty"`
}

// Proposal is an inbound session proposal event.
type Proposal struct {
	ID            int64          `json:"id" validate:"required"`
	Params        ProposalParams `json:"params" validate:"required"`
	VerifyContext *VerifyContext `json:"verifyContext,omitempty"`
}

// Validation states reported by the verify API.
const (
	ValidationValid   = "VALID"
	ValidationInvalid = "INVALID"
	ValidationUnknown = "UNKNOWN"
)

// VerifyContext carries the verify API verdict for the requesting origin.
type VerifyContext struct {
	Verified struct {
		Origin     string `json:"origin"`
		Validation string `json:"validation"`
		VerifyURL  string `json:"verifyUrl"`
		IsScam     bool   `json:"isScam,omitempty"`
	} `json:"verified"`
}

// SupportedChainsResult partitions the chains requested by a proposal.
type SupportedChainsResult struct {
	Supported   []string `json:"supported"`
	Unsupported []string `json:"unsupported"`

	// RequiredUnsupported is the subset of Unsupported requested by
	// required namespaces.
	RequiredUnsupported []string `json:"requiredUnsupported"`

	// UnsupportedNamespaces lists bare namespace keys without chains that
	// are absent from the catalog and therefore could not be expanded.
	UnsupportedNamespaces []string `json:"unsupportedNamespaces,omitempty"`

	// RequiredUnsupportedNamespaces is the subset of UnsupportedNamespaces
	// requested by required namespaces.
	RequiredUnsupportedNamespaces []string `json:"requiredUnsupportedNamespaces,omitempty"`
}

// CanApprove reports whether approval should be offered to the user.
func (r SupportedChainsResult) CanApprove() bool {
	return len(r.RequiredUnsupported) == 0 &&
		len(r.RequiredUnsupportedNamespaces) == 0 &&
		len(r.Supported) > 0
}

// Session is an established session as known to the session store.
type Session struct {
	Topic      string     `json:"topic"`
	Namespaces Namespaces `json:"namespaces"`
	Peer       Metadata   `json:"peer"`
	Expiry     int64      `json:"expiry"`
}

// Reason is attached to session rejections and disconnects.
type Reason struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SDK error keys understood by the session protocol.
const (
	SdkUserRejected            = "USER_REJECTED"
	SdkUserRejectedChains      = "USER_REJECTED_CHAINS"
	SdkUserRejectedMethods     = "USER_REJECTED_METHODS"
	SdkUserRejectedEvents      = "USER_REJECTED_EVENTS"
	SdkUnsupportedChains       = "UNSUPPORTED_CHAINS"
	SdkUnsupportedMethods      = "UNSUPPORTED_METHODS"
	SdkUnsupportedEvents       = "UNSUPPORTED_EVENTS"
	SdkUnsupportedAccounts     = "UNSUPPORTED_ACCOUNTS"
	SdkUnsupportedNamespaceKey = "UNSUPPORTED_NAMESPACE_KEY"
	SdkUserDisconnected        = "USER_DISCONNECTED"
)

var sdkErrors = map[string]Reason{
	SdkUserRejected:            {Code: 5000, Message: "User rejected."},
	SdkUserRejectedChains:      {Code: 5001, Message: "User rejected chains."},
	SdkUserRejectedMethods:     {Code: 5002, Message: "User rejected methods."},
	SdkUserRejectedEvents:      {Code: 5003, Message: "User rejected events."},
	SdkUnsupportedChains:       {Code: 5100, Message: "Unsupported chains."},
	SdkUnsupportedMethods:      {Code: 5101, Message: "Unsupported methods."},
	SdkUnsupportedEvents:       {Code: 5102, Message: "Unsupported events."},
	SdkUnsupportedAccounts:     {Code: 5103, Message: "Unsupported accounts."},
	SdkUnsupportedNamespaceKey: {Code: 5104, Message: "Unsupported namespace key."},
	SdkUserDisconnected:        {Code: 6000, Message: "User disconnected."},
}

// SdkError returns the protocol reason for a key. Unknown keys map to
// USER_REJECTED.
func SdkError(key string) Reason {
	if r, ok := sdkErrors[key]; ok {
		return r
	}
	return sdkErrors[SdkUserRejected]
}

// WalletError is the error type returned across the module.
type WalletError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *WalletError) Error() string {
	return e.Message
}

// Is matches any *WalletError carrying the same code.
func (e *WalletError) Is(target error) bool {
	var t *WalletError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Error codes
const (
	ErrConfiguration                 = "CONFIGURATION_ERROR"
	ErrUnknownNamespace              = "UNKNOWN_NAMESPACE"
	ErrIncompatibleRequiredNamespace = "INCOMPATIBLE_REQUIRED_NAMESPACE"
	ErrNoSupportedNamespaces         = "NO_SUPPORTED_NAMESPACES"
	ErrUserRejected                  = "USER_REJECTED"
	ErrUnsupportedMethod             = "UNSUPPORTED_METHOD"
	ErrHandlerError                  = "HANDLER_ERROR"
	ErrInvalidProposal               = "INVALID_PROPOSAL"
	ErrInvalidRequest                = "INVALID_REQUEST"
	ErrRateLimited                   = "RATE_LIMITED"
	ErrUnsupportedChains             = "UNSUPPORTED_CHAINS"
	ErrUnsupportedEvents             = "UNSUPPORTED_EVENTS"
	ErrUnsupportedAccounts           = "UNSUPPORTED_ACCOUNTS"
)

// Sentinels for errors.Is; matching is by code only.
var (
	ErrConfigurationError         = &WalletError{Code: ErrConfiguration}
	ErrUnknownNamespaceError      = &WalletError{Code: ErrUnknownNamespace}
	ErrIncompatibleRequiredError  = &WalletError{Code: ErrIncompatibleRequiredNamespace}
	ErrNoSupportedNamespacesError = &WalletError{Code: ErrNoSupportedNamespaces}
	ErrUnsupportedMethodError     = &WalletError{Code: ErrUnsupportedMethod}
	ErrInvalidProposalError       = &WalletError{Code: ErrInvalidProposal}
	ErrInvalidRequestError        = &WalletError{Code: ErrInvalidRequest}
	ErrUnsupportedChainsError     = &WalletError{Code: ErrUnsupportedChains}
	ErrUnsupportedEventsError     = &WalletError{Code: ErrUnsupportedEvents}
	ErrUnsupportedAccountsError   = &WalletError{Code: ErrUnsupportedAccounts}
)

// NewConfigurationError reports a catalog or config problem found at startup.
func NewConfigurationError(format string, args ...any) *WalletError {
	return &WalletError{
		Code:    ErrConfiguration,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewUnknownNamespaceError reports a namespace with no default table entry.
func NewUnknownNamespaceError(namespace string) *WalletError {
	return &WalletError{
		Code:    ErrUnknownNamespace,
		Message: fmt.Sprintf("no default methods for namespace: %s", namespace),
		Data:    namespace,
	}
}

// NewIncompatibleRequiredNamespaceError reports a required namespace the
// wallet cannot satisfy.
func NewIncompatibleRequiredNamespaceError(namespace, reason string) *WalletError {
	return &WalletError{
		Code:    ErrIncompatibleRequiredNamespace,
		Message: fmt.Sprintf("required namespace %s is not supported: %s", namespace, reason),
		Data:    namespace,
	}
}

// RejectionReason maps a negotiation error to the reason sent with a
// session rejection.
func RejectionReason(err error) Reason {
	var we *WalletError
	if !errors.As(err, &we) {
		return SdkError(SdkUserRejected)
	}
	switch we.Code {
	case ErrIncompatibleRequiredNamespace, ErrNoSupportedNamespaces, ErrUnsupportedChains:
		return SdkError(SdkUnsupportedChains)
	case ErrUnsupportedMethod:
		return SdkError(SdkUnsupportedMethods)
	case ErrUnsupportedEvents:
		return SdkError(SdkUnsupportedEvents)
	case ErrUnsupportedAccounts:
		return SdkError(SdkUnsupportedAccounts)
	case ErrUnknownNamespace:
		return SdkError(SdkUnsupportedNamespaceKey)
	case ErrUserRejected:
		return SdkError(SdkUserRejectedMethods)
	default:
		return SdkError(SdkUserRejected)
	}
}
