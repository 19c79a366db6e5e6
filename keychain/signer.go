package keychain

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/ckb-labs/ckblab/ckbhash"
)

// RecoverableSigSize is the size of a recoverable signature: r, s and the
// recovery id.
const RecoverableSigSize = 65

// compactSigMagicOffset is the offset btcec adds to the recovery id in the
// header byte of a compact signature, for compressed keys.
const compactSigMagicOffset = 27 + 4

// ErrInvalidSignature is returned when a recoverable signature is malformed.
var ErrInvalidSignature = errors.New("invalid recoverable signature")

// DigestSigner signs 32 byte digests with a single private key.
type DigestSigner interface {
	// PubKey returns the public key of the wrapped private key.
	PubKey() *btcec.PublicKey

	// SignRecoverable signs the digest and returns a 65 byte signature
	// in the r || s || recid layout the secp256k1 lock expects.
	SignRecoverable(digest ckbhash.Hash) ([]byte, error)
}

// PrivKeyDigestSigner is a DigestSigner backed by an in-memory private key.
type PrivKeyDigestSigner struct {
	PrivKey *btcec.PrivateKey
}

// A compile time check to ensure PrivKeyDigestSigner implements the
// DigestSigner interface.
var _ DigestSigner = (*PrivKeyDigestSigner)(nil)

// NewPrivKeyDigestSigner wraps a private key.
func NewPrivKeyDigestSigner(key *btcec.PrivateKey) *PrivKeyDigestSigner {
	return &PrivKeyDigestSigner{PrivKey: key}
}

// PubKey returns the public key of the wrapped private key.
//
// NOTE: This is part of the DigestSigner interface.
func (p *PrivKeyDigestSigner) PubKey() *btcec.PublicKey {
	return p.PrivKey.PubKey()
}

// SignRecoverable signs the digest with the wrapped private key.
//
// NOTE: This is part of the DigestSigner interface.
func (p *PrivKeyDigestSigner) SignRecoverable(
	digest ckbhash.Hash) ([]byte, error) {

	return SignRecoverable(p.PrivKey, digest)
}

// SignRecoverable produces a deterministic (RFC6979) recoverable signature
// in r || s || recid form.
func SignRecoverable(key *btcec.PrivateKey, digest ckbhash.Hash) ([]byte,
	error) {

	// The compact format is header || r || s where the header encodes
	// the recovery id.
	compact := ecdsa.SignCompact(key, digest[:], true)
	if len(compact) != RecoverableSigSize {
		return nil, fmt.Errorf("unexpected compact signature size %d",
			len(compact))
	}

	sig := make([]byte, RecoverableSigSize)
	copy(sig, compact[1:])
	sig[64] = compact[0] - compactSigMagicOffset

	return sig, nil
}

// RecoverPubKey returns the public key that produced a recoverable
// signature over the digest.
func RecoverPubKey(sig []byte, digest ckbhash.Hash) (*btcec.PublicKey,
	error) {

	if len(sig) != RecoverableSigSize || sig[64] > 3 {
		return nil, ErrInvalidSignature
	}

	compact := make([]byte, RecoverableSigSize)
	compact[0] = sig[64] + compactSigMagicOffset
	copy(compact[1:], sig[:64])

	pub, _, err := ecdsa.RecoverCompact(compact, digest[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	return pub, nil
}
