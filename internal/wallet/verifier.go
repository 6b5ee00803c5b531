// Package wallet validates wallet addresses and signatures as a
// precondition for wallet-bound actions.
package wallet

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/chigozirigeorge/omnixec/internal/model"
)

// ErrInvalidAddress marks an address that fails the chain's format check.
var ErrInvalidAddress = errors.New("invalid address")

// Verifier checks chain-specific address formats and personal-message
// signatures.
type Verifier struct{}

func NewVerifier() *Verifier {
	return &Verifier{}
}

// ValidateAddress checks the address format for the given chain. Every
// chain in the supported set is EVM-shaped today; the exhaustive switch is
// where a non-EVM chain would diverge.
func (v *Verifier) ValidateAddress(chain model.Chain, address string) error {
	switch chain {
	case model.ChainEthereum, model.ChainPolygon, model.ChainBSC:
		if !common.IsHexAddress(address) {
			return fmt.Errorf("%w for %s: %s", ErrInvalidAddress, chain, address)
		}
		return nil
	default:
		return fmt.Errorf("unsupported chain: %s", chain)
	}
}

// VerifySignature checks that signature over message recovers address on
// the given chain. The signature is the 65-byte personal_sign output, hex
// encoded.
func (v *Verifier) VerifySignature(chain model.Chain, address, signature, message string) (bool, error) {
	if err := v.ValidateAddress(chain, address); err != nil {
		return false, err
	}
	if signature == "" {
		return false, errors.New("empty signature")
	}

	sig, err := hexutil.Decode(signature)
	if err != nil {
		return false, fmt.Errorf("failed to decode signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return false, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}

	// personal_sign wraps the recovery id as 27/28.
	if sig[crypto.RecoveryIDOffset] == 27 || sig[crypto.RecoveryIDOffset] == 28 {
		sig = bytes.Clone(sig)
		sig[crypto.RecoveryIDOffset] -= 27
	}

	hash := personalHash(message)
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return false, fmt.Errorf("failed to recover public key: %w", err)
	}

	recovered := crypto.PubkeyToAddress(*pub)
	return recovered == common.HexToAddress(address), nil
}

func personalHash(message string) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256([]byte(prefixed))
}
