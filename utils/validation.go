package utils

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"

	"github.com/vitwit/walletkit/types"
)

var (
	nearAccountPattern = regexp.MustCompile(`^(([a-z\d]+[-_])*[a-z\d]+\.)*([a-z\d]+[-_])*[a-z\d]+$`)
	hexPattern         = regexp.MustCompile(`^[0-9a-fA-F]+$`)
)

// ValidateAmount checks that an amount is a non-negative integer or decimal.
// Hex amounts ("0x...") are accepted as used by wallet_checkout.
func ValidateAmount(amount string) (*decimal.Decimal, error) {
	if amount == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	var dec decimal.Decimal
	if strings.HasPrefix(amount, "0x") || strings.HasPrefix(amount, "0X") {
		n, ok := new(big.Int).SetString(amount[2:], 16)
		if !ok {
			return nil, fmt.Errorf("invalid hex amount: %s", amount)
		}
		dec = decimal.NewFromBigInt(n, 0)
	} else {
		var err error
		dec, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid amount format: %w", err)
		}
	}

	if dec.IsNegative() {
		return nil, fmt.Errorf("amount cannot be negative")
	}

	return &dec, nil
}

// ValidateChainID checks a chain id and, when namespace is not empty, that
// it belongs to that namespace.
func ValidateChainID(chainID, namespace string) error {
	id, err := types.ParseChainID(chainID)
	if err != nil {
		return err
	}
	if namespace != "" && id.Namespace() != namespace {
		return fmt.Errorf("chain %s does not belong to namespace %s", chainID, namespace)
	}
	return nil
}

// ValidateAddressForNamespace validates an address in the format used by
// the given namespace. Namespaces without a known format only require a
// non-empty address without ':'.
func ValidateAddressForNamespace(address string, namespace string) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}
	if strings.Contains(address, ":") {
		return fmt.Errorf("address %q must not contain ':'", address)
	}

	switch namespace {
	case "eip155":
		if !common.IsHexAddress(address) || !strings.HasPrefix(address, "0x") {
			return fmt.Errorf("invalid eip155 address: %s", address)
		}

	case "solana":
		if _, err := solana.PublicKeyFromBase58(address); err != nil {
			return fmt.Errorf("invalid solana address %s: %w", address, err)
		}

	case "cosmos":
		if _, _, err := bech32.Decode(address); err != nil {
			return fmt.Errorf("invalid cosmos address %s: %w", address, err)
		}

	case "mvx":
		hrp, _, err := bech32.Decode(address)
		if err != nil {
			return fmt.Errorf("invalid mvx address %s: %w", address, err)
		}
		if hrp != "erd" {
			return fmt.Errorf("mvx address must use the erd prefix, got %s", hrp)
		}

	case "bip122":
		return validateBitcoinAddress(address)

	case "tron":
		payload, err := decodeBase58Check(address)
		if err != nil {
			return fmt.Errorf("invalid tron address %s: %w", address, err)
		}
		if len(payload) != 21 || payload[0] != 0x41 {
			return fmt.Errorf("invalid tron address: %s", address)
		}

	case "tezos":
		if !hasAnyPrefix(address, "tz1", "tz2", "tz3", "tz4", "KT1") {
			return fmt.Errorf("tezos address must start with tz1, tz2, tz3, tz4 or KT1")
		}
		payload, err := decodeBase58Check(address)
		if err != nil {
			return fmt.Errorf("invalid tezos address %s: %w", address, err)
		}
		if len(payload) != 23 {
			return fmt.Errorf("invalid tezos address length: %s", address)
		}

	case "polkadot":
		// SS58: prefix + 32 byte key + 2 byte checksum
		raw, err := base58.Decode(address)
		if err != nil {
			return fmt.Errorf("invalid polkadot address %s: %w", address, err)
		}
		if len(raw) != 35 && len(raw) != 36 {
			return fmt.Errorf("invalid polkadot address length: %s", address)
		}

	case "sui":
		raw, err := hexutil.Decode(address)
		if err != nil {
			return fmt.Errorf("invalid sui address %s: %w", address, err)
		}
		if len(raw) != 32 {
			return fmt.Errorf("sui address must be 32 bytes")
		}

	case "near":
		if len(address) < 2 || len(address) > 64 || !nearAccountPattern.MatchString(address) {
			return fmt.Errorf("invalid near account id: %s", address)
		}

	case "kadena":
		if len(address) != 64 || !hexPattern.MatchString(address) {
			return fmt.Errorf("invalid kadena account: %s", address)
		}
	}

	return nil
}

// validateBitcoinAddress accepts segwit (bech32) and legacy (base58check)
// addresses.
func validateBitcoinAddress(address string) error {
	lower := strings.ToLower(address)
	if hasAnyPrefix(lower, "bc1", "tb1", "bcrt1") {
		if _, _, err := bech32.Decode(address); err != nil {
			return fmt.Errorf("invalid bip122 address %s: %w", address, err)
		}
		return nil
	}
	payload, err := decodeBase58Check(address)
	if err != nil {
		return fmt.Errorf("invalid bip122 address %s: %w", address, err)
	}
	if len(payload) != 21 {
		return fmt.Errorf("invalid bip122 address length: %s", address)
	}
	return nil
}

// decodeBase58Check decodes a base58 string carrying a 4 byte double-sha256
// checksum and returns the payload.
func decodeBase58Check(s string) ([]byte, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, err
	}
	if len(raw) < 5 {
		return nil, fmt.Errorf("too short")
	}
	payload, sum := raw[:len(raw)-4], raw[len(raw)-4:]
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	if !bytes.Equal(second[:4], sum) {
		return nil, fmt.Errorf("checksum mismatch")
	}
	return payload, nil
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
