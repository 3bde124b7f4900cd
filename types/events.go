package types

import (
	"encoding/json"
)

// EventKind names an inbound session protocol event.
type EventKind string

const (
	EventProposal     EventKind = "session_proposal"
	EventRequest      EventKind = "session_request"
	EventAuthenticate EventKind = "session_authenticate"
	EventDelete       EventKind = "session_delete"
	EventPing         EventKind = "session_ping"
)

// EventKinds lists every kind the event manager subscribes to.
var EventKinds = []EventKind{
	EventProposal,
	EventRequest,
	EventAuthenticate,
	EventDelete,
	EventPing,
}

// Event is a tagged union over the inbound event kinds. Exactly one of the
// payload pointers matching Kind is set.
type Event struct {
	Kind         EventKind
	Proposal     *Proposal
	Request      *SessionRequest
	Authenticate *AuthRequest
	Delete       *SessionDelete
	Ping         *SessionPing
}

// RPCRequest is the JSON-RPC call carried by a session request.
type RPCRequest struct {
	Method          string          `json:"method" validate:"required"`
	Params          json.RawMessage `json:"params"`
	ExpiryTimestamp int64           `json:"expiryTimestamp,omitempty"`
}

// RequestParams wraps the call with the chain it targets.
type RequestParams struct {
	Request RPCRequest `json:"request" validate:"required"`
	ChainID string     `json:"chainId" validate:"required,chainid"`
}

// SessionRequest is an inbound signed-request event.
type SessionRequest struct {
	ID            int64          `json:"id" validate:"required"`
	Topic         string         `json:"topic" validate:"required"`
	Params        RequestParams  `json:"params" validate:"required"`
	VerifyContext *VerifyContext `json:"verifyContext,omitempty"`
}

// Namespace returns the namespace of the targeted chain.
func (r *SessionRequest) Namespace() string {
	return ChainID(r.Params.ChainID).Namespace()
}

// Method returns the requested JSON-RPC method.
func (r *SessionRequest) Method() string {
	return r.Params.Request.Method
}

// AuthPayload is the message an application asks the wallet to authenticate.
type AuthPayload struct {
	Type      string   `json:"type"`
	Chains    []string `json:"chains"`
	Statement string   `json:"statement,omitempty"`
	Aud       string   `json:"aud"`
	Domain    string   `json:"domain"`
	Version   string   `json:"version"`
	Nonce     string   `json:"nonce"`
	IAT       string   `json:"iat"`
	Resources []string `json:"resources,omitempty"`
}

// AuthRequest is an inbound session authenticate event.
type AuthRequest struct {
	ID     int64  `json:"id"`
	Topic  string `json:"topic"`
	Params struct {
		Requester struct {
			PublicKey string   `json:"publicKey"`
			Metadata  Metadata `json:"metadata"`
		} `json:"requester"`
		AuthPayload     AuthPayload `json:"authPayload"`
		ExpiryTimestamp int64       `json:"expiryTimestamp"`
	} `json:"params"`
	VerifyContext *VerifyContext `json:"verifyContext,omitempty"`
}

// SessionDelete reports that the peer deleted a session.
type SessionDelete struct {
	ID    int64  `json:"id"`
	Topic string `json:"topic"`
}

// SessionPing is a liveness ping on a session.
type SessionPing struct {
	ID    int64  `json:"id"`
	Topic string `json:"topic"`
}

// JSONRPCVersion is the only protocol version emitted.
const JSONRPCVersion = "2.0"

// JSON-RPC and provider error codes used in responses.
const (
	CodeInvalidRequest   = -32600
	CodeMethodNotFound   = -32601
	CodeInvalidParams    = -32602
	CodeInternalError    = -32603
	CodeServerError      = -32000
	CodeLimitExceeded    = -32005
	CodeUnknownBundleID  = 5730
	CodeUnsupportedChain = 5710
)

// JSONRPCError is the error member of a JSON-RPC response.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *JSONRPCError) Error() string {
	return e.Message
}

// JSONRPCResponse is the reply to a session request.
type JSONRPCResponse struct {
	ID      int64         `json:"id"`
	JSONRPC string        `json:"jsonrpc"`
	Result  any           `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// IsError reports whether the response carries an error.
func (r JSONRPCResponse) IsError() bool {
	return r.Error != nil
}

// FormatJSONRPCResult builds a success response.
func FormatJSONRPCResult(id int64, result any) JSONRPCResponse {
	return JSONRPCResponse{
		ID:      id,
		JSONRPC: JSONRPCVersion,
		Result:  result,
	}
}

// FormatJSONRPCError builds an error response.
func FormatJSONRPCError(id int64, code int, message string) JSONRPCResponse {
	return JSONRPCResponse{
		ID:      id,
		JSONRPC: JSONRPCVersion,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
		},
	}
}
