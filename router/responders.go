package router

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vitwit/walletkit/types"
	"github.com/vitwit/walletkit/utils"
)

// CallsStatusProvider reports the status of wallet_sendCalls bundles the
// wallet has submitted.
type CallsStatusProvider interface {
	CallsStatus(ctx context.Context, bundleID string) (*types.CallsStatus, error)
}

// noCallsStatus knows no bundles.
type noCallsStatus struct{}

func (noCallsStatus) CallsStatus(_ context.Context, bundleID string) (*types.CallsStatus, error) {
	return nil, rpcError(types.CodeUnknownBundleID, "Unknown bundle id: %s", bundleID)
}

func rpcError(code int, format string, args ...any) *types.JSONRPCError {
	return &types.JSONRPCError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// params decodes the positional params of a request.
func params(req *types.SessionRequest) ([]json.RawMessage, error) {
	var out []json.RawMessage
	if len(req.Params.Request.Params) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(req.Params.Request.Params, &out); err != nil {
		return nil, rpcError(types.CodeInvalidParams, "params must be an array: %v", err)
	}
	return out, nil
}

// wallet_getCapabilities: [address, chainIds?]
func getCapabilities(_ context.Context, rc *RequestContext) (any, error) {
	args, err := params(rc.Request)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, rpcError(types.CodeInvalidParams, "missing address")
	}

	var addr string
	if err := json.Unmarshal(args[0], &addr); err != nil || utils.ChecksumAddress(addr) == "" {
		return nil, rpcError(types.CodeInvalidParams, "invalid address")
	}

	var chainIDs []string
	if len(args) > 1 {
		if err := json.Unmarshal(args[1], &chainIDs); err != nil {
			return nil, rpcError(types.CodeInvalidParams, "chain ids must be an array of hex strings")
		}
	}

	caps, err := rc.Catalog.WalletCapabilities(addr, chainIDs)
	if err != nil {
		return nil, rpcError(types.CodeInvalidParams, "%v", err)
	}
	return caps, nil
}

// wallet_getCallsStatus: [bundleId]
func (r *Router) getCallsStatus(ctx context.Context, rc *RequestContext) (any, error) {
	args, err := params(rc.Request)
	if err != nil {
		return nil, err
	}

	var id string
	if len(args) == 0 || json.Unmarshal(args[0], &id) != nil || id == "" {
		return nil, rpcError(types.CodeInvalidParams, "missing bundle id")
	}

	status, err := r.callsStatus.CallsStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	return status, nil
}

func showCallsStatus(context.Context, *RequestContext) (any, error) {
	return nil, rpcError(types.CodeInternalError, "wallet does not show calls status")
}

// accountsResponder answers a get-accounts method with one entry per
// account on the request chain, shaped by shape.
func accountsResponder(shape func(addr string) any) Responder {
	return func(_ context.Context, rc *RequestContext) (any, error) {
		addrs := requestAccounts(rc)
		out := make([]any, 0, len(addrs))
		for _, addr := range addrs {
			out = append(out, shape(addr))
		}
		return out, nil
	}
}

type kadenaAccount struct {
	Account        string              `json:"account"`
	PublicKey      string              `json:"publicKey"`
	KadenaAccounts []kadenaCoinAccount `json:"kadenaAccounts"`
}

type kadenaCoinAccount struct {
	Name     string   `json:"name"`
	Contract string   `json:"contract"`
	Chains   []string `json:"chains"`
}

// kadena_getAccounts_v1 returns the k: account of every key on the chain.
func kadenaAccounts(_ context.Context, rc *RequestContext) (any, error) {
	ref := types.ChainID(rc.Request.Params.ChainID).Reference()

	accounts := make([]kadenaAccount, 0)
	for _, key := range requestAccounts(rc) {
		name := "k:" + key
		accounts = append(accounts, kadenaAccount{
			Account:   name,
			PublicKey: key,
			KadenaAccounts: []kadenaCoinAccount{{
				Name:     name,
				Contract: "coin",
				Chains:   []string{ref},
			}},
		})
	}
	return map[string]any{"accounts": accounts}, nil
}

// requestAccounts lists the addresses the request chain exposes: the
// session's accounts when the session is known, the catalog's otherwise.
func requestAccounts(rc *RequestContext) []string {
	chain := rc.Request.Params.ChainID
	ns := rc.Request.Namespace()

	var accounts []string
	switch {
	case rc.Session != nil:
		accounts = rc.Session.Namespaces[ns].Accounts
	case rc.Catalog != nil:
		accounts = rc.Catalog.Accounts(ns)
	}

	out := make([]string, 0, len(accounts))
	for _, acc := range accounts {
		id := types.AccountID(acc)
		if id.ChainID().String() == chain {
			out = append(out, id.Address())
		}
	}
	return out
}
