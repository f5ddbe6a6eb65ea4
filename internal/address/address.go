// Package address validates and normalizes token contract addresses for all
// supported networks.
package address

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/crypto/sha3"

	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/domain"
)

var (
	ErrUnsupportedNetwork = errors.New("unsupported network")
	ErrInvalidAddress     = errors.New("invalid address")
)

// Validate checks raw against the network's address format and returns the
// normalized form: lowercase hex for EVM networks, the verbatim base58 string
// for Solana.
func Validate(network domain.Network, raw string) (string, error) {
	if !network.Supported() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedNetwork, network)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}

	if network.EVM() {
		return validateEVM(raw)
	}
	return validateSolana(raw)
}

func validateEVM(raw string) (string, error) {
	if !strings.HasPrefix(raw, "0x") {
		return "", fmt.Errorf("%w: missing 0x prefix", ErrInvalidAddress)
	}

	body := raw[2:]
	if len(body) != 40 {
		return "", fmt.Errorf("%w: expected 40 hex characters, got %d", ErrInvalidAddress, len(body))
	}
	if _, err := hex.DecodeString(body); err != nil {
		return "", fmt.Errorf("%w: not hexadecimal", ErrInvalidAddress)
	}

	// All-lowercase and all-uppercase addresses carry no checksum; mixed
	// case must match the EIP-55 encoding exactly.
	lower := strings.ToLower(body)
	if body != lower && body != strings.ToUpper(body) {
		if body != checksumEncode(lower) {
			return "", fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
		}
	}

	return "0x" + lower, nil
}

// checksumEncode applies EIP-55: each hex letter is uppercased when the
// corresponding nibble of keccak256(lowercase address) is >= 8.
func checksumEncode(lower string) string {
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte(lower))
	digest := hash.Sum(nil)

	encoded := []byte(lower)
	for i, c := range encoded {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			encoded[i] = c - ('a' - 'A')
		}
	}
	return string(encoded)
}

func validateSolana(raw string) (string, error) {
	if _, err := solana.PublicKeyFromBase58(raw); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	// Base58 is case-sensitive, so the address is kept verbatim.
	return raw, nil
}
