// Package keypair wraps github.com/stellar/go/keypair's Ed25519 identity
// type with the convenience functions the node needs: deterministic
// generation from an optional seed, detached signing, and verification
// against a bare public key string.
package keypair

import (
	"crypto/rand"

	stellar "github.com/stellar/go/keypair"

	nodeerrors "github.com/bosnet-cast/fbanode/lib/errors"
)

// Full is the local node's own keypair: it can sign.
type Full = stellar.Full

// KP is any keypair the node can verify against, including remote peers
// known only by their address.
type KP = stellar.KP

// PublicKey is the node's address string, Ed25519-encoded via strkey.
type PublicKey = string

// Generate returns a keypair. When seed is non-nil it must be exactly 32
// bytes and generation is deterministic; otherwise a random keypair is
// produced.
func Generate(seed []byte) (*Full, error) {
	if seed == nil {
		return stellar.Random()
	}

	if len(seed) != 32 {
		return nil, nodeerrors.New(0, "seed must be 32 bytes")
	}

	var raw [32]byte
	copy(raw[:], seed)
	return stellar.FromRawSeed(raw)
}

// RandomSeed returns a fresh 32-byte seed suitable for Generate, useful for
// callers that want to persist the seed separately from the derived keys.
func RandomSeed() ([]byte, error) {
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	return seed, nil
}

// Parse resolves a bare address string into a verifiable KP.
func Parse(address string) (KP, error) {
	return stellar.Parse(address)
}

// Sign produces a detached signature over msg under full's private key.
func Sign(full *Full, msg []byte) ([]byte, error) {
	sig, err := full.Sign(msg)
	if err != nil {
		return nil, nodeerrors.ErrSignFail.Clone().SetData("reason", err.Error())
	}
	return sig, nil
}

// Verify checks a detached signature over msg under the keypair identified
// by pk. It never panics and always fails closed on a malformed address.
func Verify(pk PublicKey, msg, sig []byte) bool {
	kp, err := Parse(pk)
	if err != nil {
		return false
	}
	return kp.Verify(msg, sig) == nil
}
