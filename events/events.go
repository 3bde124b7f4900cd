// Package events binds the inbound session protocol events to namespace
// negotiation and request routing. Every event that needs a user decision
// is handed to an external workflow runner and tracked until exactly one
// protocol response has been sent for it.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/vitwit/walletkit/namespaces"
	"github.com/vitwit/walletkit/router"
	"github.com/vitwit/walletkit/types"
)

var (
	ErrWorkflowNotFound = errors.New("workflow not found or already completed")
	ErrRunnerFull       = errors.New("workflow runner queue is full")
)

// Handler processes one inbound event.
type Handler func(ctx context.Context, ev types.Event)

// EventSource delivers protocol events to the handler registered for their
// kind.
type EventSource interface {
	On(kind types.EventKind, h Handler)
}

// RunnableSource is an EventSource with its own delivery loop.
type RunnableSource interface {
	EventSource
	Run(ctx context.Context) error
}

// Responder sends protocol responses back to the peer.
type Responder interface {
	ApproveSession(ctx context.Context, proposalID int64, approved types.Namespaces, properties map[string]string) error
	RejectSession(ctx context.Context, proposalID int64, reason types.Reason) error
	RespondSessionRequest(ctx context.Context, topic string, resp types.JSONRPCResponse) error
	ApproveSessionAuthenticate(ctx context.Context, id int64, result any) error
	RejectSessionAuthenticate(ctx context.Context, id int64, reason types.Reason) error
}

// WorkflowRunner opens user-facing workflows. Submit must not block on
// user input; the outcome is reported later through Manager.Complete or
// Manager.Cancel.
type WorkflowRunner interface {
	Submit(ctx context.Context, wf Workflow) error
}

// SessionStore looks up established sessions.
type SessionStore interface {
	Get(ctx context.Context, topic string) (*types.Session, bool)
	Refresh(ctx context.Context) error
}

// Workflow is a pending hand-off to the user.
type Workflow struct {
	ID    string
	Kind  router.WorkflowKind
	Topic string

	Proposal      *types.Proposal
	Request       *types.SessionRequest
	Auth          *types.AuthRequest
	Session       *types.Session
	VerifyContext *types.VerifyContext

	// Set for session proposals.
	Support        *types.SupportedChainsResult
	Negotiation    *namespaces.Result
	NegotiationErr error

	CreatedAt time.Time
	ExpiresAt time.Time
}

// Decision is the user's answer to a workflow.
type Decision struct {
	Approve bool

	// Result is the request result, or the authentication objects of a
	// session authenticate approval.
	Result any

	// Namespaces narrows the negotiated namespaces of a proposal approval.
	// It must be a subset of them or the proposal is rejected.
	Namespaces types.Namespaces

	// Reason is sent on rejection; USER_REJECTED when zero.
	Reason types.Reason
}

// Approve is a positive decision carrying result.
func Approve(result any) Decision {
	return Decision{Approve: true, Result: result}
}

// Reject is a negative decision with the default reason.
func Reject() Decision {
	return Decision{}
}

func (d Decision) reason() types.Reason {
	if d.Reason.Code == 0 {
		return types.SdkError(types.SdkUserRejected)
	}
	return d.Reason
}
