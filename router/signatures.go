package router

import (
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/walletkit/catalog"
	"github.com/vitwit/walletkit/types"
	"github.com/vitwit/walletkit/utils"
)

// VerifySignature checks that the signature a signing workflow produced for
// req recovers to the account the request names. Only eip155 message and
// typed-data methods are checked; other requests pass unchanged.
func VerifySignature(req *types.SessionRequest, result any) error {
	if req.Namespace() != catalog.NamespaceEIP155 {
		return nil
	}

	var recoverSigner func(args []json.RawMessage, sig string) (common.Address, string, error)
	switch req.Method() {
	case catalog.MethodPersonalSign:
		// [message, address]
		recoverSigner = func(args []json.RawMessage, sig string) (common.Address, string, error) {
			msg, addr := stringArg(args, 0), stringArg(args, 1)
			signer, err := utils.RecoverPersonalSigner(msg, sig)
			return signer, addr, err
		}
	case catalog.MethodEthSign:
		// [address, message]
		recoverSigner = func(args []json.RawMessage, sig string) (common.Address, string, error) {
			addr, msg := stringArg(args, 0), stringArg(args, 1)
			signer, err := utils.RecoverPersonalSigner(msg, sig)
			return signer, addr, err
		}
	case catalog.MethodEthSignTypedDataV3, catalog.MethodEthSignTypedDataV4:
		recoverSigner = func(args []json.RawMessage, sig string) (common.Address, string, error) {
			td, err := utils.ParseTypedData(args[1])
			if err != nil {
				return common.Address{}, "", err
			}
			signer, err := utils.RecoverTypedDataSigner(td, sig)
			return signer, stringArg(args, 0), err
		}
	default:
		return nil
	}

	sig, ok := result.(string)
	if !ok {
		return rpcError(types.CodeInternalError, "signature must be a hex string")
	}

	args, err := params(req)
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return rpcError(types.CodeInvalidParams, "missing params")
	}

	signer, want, err := recoverSigner(args, sig)
	if err != nil {
		return rpcError(types.CodeInternalError, "invalid signature: %v", err)
	}
	if !strings.EqualFold(signer.Hex(), want) {
		return rpcError(types.CodeInternalError, "signature was produced by %s, not %s", signer.Hex(), want)
	}
	return nil
}

func stringArg(args []json.RawMessage, i int) string {
	var s string
	if i < len(args) {
		_ = json.Unmarshal(args[i], &s)
	}
	return s
}
