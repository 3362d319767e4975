package solana

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Address and signature sizes in bytes.
const (
	AddressSize   = 32
	SignatureSize = 64
)

// ErrInvalidAddress is wrapped by address validation failures.
var ErrInvalidAddress = errors.New("invalid address")

// DecodeAddress decodes a base58 address and checks its length.
func DecodeAddress(s string) ([]byte, error) {
	decoded, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	if len(decoded) != AddressSize {
		return nil, fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidAddress, s, len(decoded))
	}
	return decoded, nil
}

// ValidateAddress reports whether s is a well-formed base58 address.
// Mints and program derived addresses are valid even though they are off curve.
func ValidateAddress(s string) error {
	_, err := DecodeAddress(s)
	return err
}

// ValidateWallet checks that s is an address that can sign, i.e. a point on
// the ed25519 curve.
func ValidateWallet(s string) error {
	decoded, err := DecodeAddress(s)
	if err != nil {
		return err
	}
	if _, err := new(edwards25519.Point).SetBytes(decoded); err != nil {
		return fmt.Errorf("%w: %q is not on the ed25519 curve", ErrInvalidAddress, s)
	}
	return nil
}

// ValidateSignature reports whether s is a well-formed base58 transaction signature.
func ValidateSignature(s string) error {
	decoded, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("invalid signature %q: %w", s, err)
	}
	if len(decoded) != SignatureSize {
		return fmt.Errorf("invalid signature %q: decodes to %d bytes", s, len(decoded))
	}
	return nil
}
