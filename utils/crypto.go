package utils

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// ParseTypedData decodes an EIP-712 payload as sent in eth_signTypedData
// params: either a JSON object or a JSON string holding one.
func ParseTypedData(raw json.RawMessage) (*apitypes.TypedData, error) {
	data := []byte(raw)

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		data = []byte(encoded)
	}

	var td apitypes.TypedData
	if err := json.Unmarshal(data, &td); err != nil {
		return nil, fmt.Errorf("failed to decode typed data: %w", err)
	}
	if td.PrimaryType == "" {
		return nil, errors.New("typed data has no primaryType")
	}
	if _, ok := td.Types[td.PrimaryType]; !ok {
		return nil, fmt.Errorf("primaryType %s is not defined", td.PrimaryType)
	}
	return &td, nil
}

// TypedDataChainID returns the domain chainId, or nil when the domain has
// none.
func TypedDataChainID(td *apitypes.TypedData) *big.Int {
	if td.Domain.ChainId == nil {
		return nil
	}
	return (*big.Int)(td.Domain.ChainId)
}

// TypedDataHash computes the EIP-712 signing hash
// keccak256("\x19\x01" || domainSeparator || hashStruct(message)).
func TypedDataHash(td *apitypes.TypedData) (common.Hash, error) {
	domainSeparator, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash domain: %w", err)
	}

	messageHash, err := td.HashStruct(td.PrimaryType, td.Message)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash typed data: %w", err)
	}

	rawData := []byte(fmt.Sprintf("\x19\x01%s%s", string(domainSeparator), string(messageHash)))
	return crypto.Keccak256Hash(rawData), nil
}

// RecoverTypedDataSigner recovers the address that signed td.
func RecoverTypedDataSigner(td *apitypes.TypedData, signature string) (common.Address, error) {
	hash, err := TypedDataHash(td)
	if err != nil {
		return common.Address{}, err
	}
	return RecoverAddressFromSignature(hash.Bytes(), signature)
}

// RecoverAddressFromSignature recovers the Ethereum address from a signature
func RecoverAddressFromSignature(hash []byte, signature string) (common.Address, error) {
	sigBytes, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode signature: %w", err)
	}

	if len(sigBytes) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sigBytes))
	}

	// Wallets emit v as 27/28.
	if sigBytes[64] >= 27 {
		sigBytes[64] -= 27
	}

	pubKey, err := crypto.SigToPub(hash, sigBytes)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pubKey), nil
}

// RecoverPersonalSigner recovers the signer of a personal_sign message.
// Messages given as 0x-hex are decoded first.
func RecoverPersonalSigner(message, signature string) (common.Address, error) {
	data := []byte(message)
	if decoded, err := hexutil.Decode(message); err == nil {
		data = decoded
	}
	return RecoverAddressFromSignature(accounts.TextHash(data), signature)
}

// ChecksumAddress returns the EIP-55 form of an eip155 address, or "" when
// address is not one.
func ChecksumAddress(address string) string {
	if !common.IsHexAddress(address) {
		return ""
	}
	return common.HexToAddress(address).Hex()
}
