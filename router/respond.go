package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vitwit/walletkit/metrics"
	"github.com/vitwit/walletkit/types"
)

// Dispatch is a routing decision applied to one request.
type Dispatch struct {
	Outcome Outcome

	// Response is set when the request is answered without opening a
	// workflow: unsupported methods, auto-responses and failed prechecks.
	Response *types.JSONRPCResponse
}

// Dispatch routes rc.Request and runs whatever can be done inline. The
// caller opens Outcome.Workflow when Response is nil.
func (r *Router) Dispatch(ctx context.Context, rc *RequestContext) Dispatch {
	req := rc.Request
	ns := req.Namespace()
	labels := map[string]string{"namespace": ns}

	o := r.Route(ns, req.Method())
	r.metrics.IncCounter(metrics.RequestRouted, labels)
	r.logger.Debug("request routed", map[string]any{
		"id":      req.ID,
		"topic":   req.Topic,
		"chain":   req.Params.ChainID,
		"method":  req.Method(),
		"outcome": o.Kind.String(),
	})

	switch o.Kind {
	case AutoRespond:
		resp := r.Respond(ctx, rc, o.Responder)
		return Dispatch{Outcome: o, Response: &resp}
	case OpenApproval:
		return Dispatch{Outcome: o, Response: r.RunPrecheck(rc, o)}
	default:
		r.metrics.IncCounter(metrics.RequestUnsupported, labels)
		r.logger.Warn("unsupported method", map[string]any{
			"chain":  req.Params.ChainID,
			"method": req.Method(),
		})
		resp := UnsupportedResponse(req)
		return Dispatch{Outcome: o, Response: &resp}
	}
}

// Respond runs fn and formats its reply. Errors and panics become JSON-RPC
// errors.
func (r *Router) Respond(ctx context.Context, rc *RequestContext, fn Responder) (resp types.JSONRPCResponse) {
	start := time.Now()
	labels := map[string]string{"namespace": rc.Request.Namespace()}

	defer func() {
		if rec := recover(); rec != nil {
			resp = r.fail(rc, fmt.Errorf("responder panicked: %v", rec))
		}
		r.metrics.ObserveLatency(metrics.OpRespond, time.Since(start), labels)
	}()

	if fn == nil {
		return r.fail(rc, errors.New("no responder for method"))
	}

	result, err := fn(ctx, rc)
	if err != nil {
		return r.fail(rc, err)
	}

	r.metrics.IncCounter(metrics.RequestAutoResponded, labels)
	return types.FormatJSONRPCResult(rc.Request.ID, result)
}

// RunPrecheck runs the outcome's precheck, if any. It returns the error
// response to send, or nil when the workflow may open.
func (r *Router) RunPrecheck(rc *RequestContext, o Outcome) (resp *types.JSONRPCResponse) {
	if o.Precheck == nil {
		return nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			failed := r.fail(rc, fmt.Errorf("precheck panicked: %v", rec))
			resp = &failed
		}
	}()

	if err := o.Precheck(rc); err != nil {
		failed := r.fail(rc, err)
		return &failed
	}
	return nil
}

func (r *Router) fail(rc *RequestContext, err error) types.JSONRPCResponse {
	rpcErr := ToRPCError(err)
	r.metrics.IncCounter(metrics.HandlerError, map[string]string{"namespace": rc.Request.Namespace()})
	r.logger.Error("request failed", map[string]any{
		"id":     rc.Request.ID,
		"method": rc.Request.Method(),
		"code":   rpcErr.Code,
		"error":  err,
	})
	return types.JSONRPCResponse{
		ID:      rc.Request.ID,
		JSONRPC: types.JSONRPCVersion,
		Error:   rpcErr,
	}
}

// ToRPCError maps an error to the JSON-RPC error sent to the peer.
func ToRPCError(err error) *types.JSONRPCError {
	var rpcErr *types.JSONRPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	var walletErr *types.WalletError
	if errors.As(err, &walletErr) {
		switch walletErr.Code {
		case types.ErrUnsupportedMethod:
			reason := types.SdkError(types.SdkUnsupportedMethods)
			return &types.JSONRPCError{Code: reason.Code, Message: reason.Message}
		case types.ErrInvalidRequest, types.ErrInvalidProposal:
			return &types.JSONRPCError{Code: types.CodeInvalidParams, Message: walletErr.Message}
		case types.ErrRateLimited:
			return &types.JSONRPCError{Code: types.CodeLimitExceeded, Message: walletErr.Message}
		case types.ErrUserRejected:
			reason := types.SdkError(types.SdkUserRejected)
			return &types.JSONRPCError{Code: reason.Code, Message: reason.Message}
		}
	}

	return &types.JSONRPCError{Code: types.CodeInternalError, Message: err.Error()}
}
