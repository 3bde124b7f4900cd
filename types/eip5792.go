package types

// Capabilities maps a hex chain id ("0x1") to the capabilities the wallet
// advertises on that chain.
type Capabilities map[string]map[string]any

// Call is one entry of a wallet_sendCalls batch.
type Call struct {
	To    string `json:"to,omitempty"`
	Data  string `json:"data,omitempty"`
	Value string `json:"value,omitempty"`
}

// SendCallsParams is the single parameter of wallet_sendCalls.
type SendCallsParams struct {
	Version      string         `json:"version"`
	ID           string         `json:"id,omitempty"`
	From         string         `json:"from" validate:"required"`
	ChainID      string         `json:"chainId" validate:"required"`
	AtomicReq    bool           `json:"atomicRequired,omitempty"`
	Calls        []Call         `json:"calls" validate:"required,min=1"`
	Capabilities map[string]any `json:"capabilities,omitempty"`
}

// CallsStatus answers wallet_getCallsStatus.
type CallsStatus struct {
	Version  string           `json:"version"`
	ID       string           `json:"id"`
	ChainID  string           `json:"chainId"`
	Status   int              `json:"status"`
	Atomic   bool             `json:"atomic"`
	Receipts []map[string]any `json:"receipts,omitempty"`
}

// PaymentOption is one accepted payment of a wallet_checkout request.
type PaymentOption struct {
	// Recipient as an account id, e.g. "eip155:1:0xabc...".
	Recipient string `json:"recipient,omitempty"`

	// Asset as a CAIP-19 asset id.
	Asset string `json:"asset" validate:"required"`

	// Amount in the asset's smallest unit, hex ("0x...") or decimal.
	Amount string `json:"amount" validate:"required"`
}

// CheckoutRequest is the single parameter of wallet_checkout.
type CheckoutRequest struct {
	OrderID          string           `json:"orderId" validate:"required"`
	AcceptedPayments []PaymentOption  `json:"acceptedPayments,omitempty" validate:"omitempty,dive"`
	Products         []map[string]any `json:"products,omitempty"`
	Expiry           int64            `json:"expiry,omitempty"`
}
