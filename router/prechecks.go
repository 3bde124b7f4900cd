package router

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/vitwit/walletkit/types"
	"github.com/vitwit/walletkit/utils"
)

// checkTypedData rejects typed data that does not decode or hash, or whose
// domain chainId differs from the request chain. Legacy v1 payloads (an
// array of fields) are left to the workflow.
func checkTypedData(rc *RequestContext) error {
	args, err := params(rc.Request)
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return rpcError(types.CodeInvalidParams, "expected [address, typedData]")
	}

	payload := args[1]
	if isArray(args[0]) {
		return nil
	}

	td, err := utils.ParseTypedData(payload)
	if err != nil {
		return rpcError(types.CodeInvalidParams, "%v", err)
	}
	if _, err := utils.TypedDataHash(td); err != nil {
		return rpcError(types.CodeInvalidParams, "%v", err)
	}

	if chainID := utils.TypedDataChainID(td); chainID != nil {
		ref, ok := new(big.Int).SetString(types.ChainID(rc.Request.Params.ChainID).Reference(), 10)
		if !ok || ref.Cmp(chainID) != 0 {
			return rpcError(types.CodeInvalidParams,
				"typed data chainId %s does not match %s", chainID, rc.Request.Params.ChainID)
		}
	}
	return nil
}

// checkSendCalls requires a well-formed batch sent from one of the wallet's
// smart accounts on the request chain.
func checkSendCalls(rc *RequestContext) error {
	var call types.SendCallsParams
	if err := singleParam(rc.Request, &call); err != nil {
		return err
	}

	if !rc.Catalog.OwnsAddress(rc.Request.Namespace(), call.From) {
		return rpcError(types.CodeInvalidParams, "unknown account %s", call.From)
	}
	if !rc.Catalog.IsSmartAccount(call.From) {
		return rpcError(types.CodeInternalError, "account %s does not support wallet_sendCalls", call.From)
	}

	chainID, err := hexutil.DecodeBig(call.ChainID)
	if err != nil {
		return rpcError(types.CodeInvalidParams, "invalid chainId %s", call.ChainID)
	}
	ref, ok := new(big.Int).SetString(types.ChainID(rc.Request.Params.ChainID).Reference(), 10)
	if !ok || ref.Cmp(chainID) != 0 {
		return rpcError(types.CodeInvalidParams, "chainId %s does not match %s", call.ChainID, rc.Request.Params.ChainID)
	}
	return nil
}

// checkCheckout requires an order with at least one accepted payment whose
// amount is a valid non-negative number.
func checkCheckout(rc *RequestContext) error {
	var order types.CheckoutRequest
	if err := singleParam(rc.Request, &order); err != nil {
		return err
	}

	if len(order.AcceptedPayments) == 0 {
		return rpcError(types.CodeInvalidParams, "checkout has no accepted payments")
	}
	for _, p := range order.AcceptedPayments {
		if _, err := utils.ValidateAmount(p.Amount); err != nil {
			return rpcError(types.CodeInvalidParams, "invalid amount for %s: %v", p.Asset, err)
		}
	}
	return nil
}

// singleParam decodes and validates the first positional param into v.
func singleParam(req *types.SessionRequest, v any) error {
	args, err := params(req)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return rpcError(types.CodeInvalidParams, "missing params")
	}
	if err := json.Unmarshal(args[0], v); err != nil {
		return rpcError(types.CodeInvalidParams, "invalid params: %v", err)
	}
	if err := utils.ValidateStruct(v); err != nil {
		return rpcError(types.CodeInvalidParams, "invalid params: %v", err)
	}
	return nil
}

func isArray(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}
