package keychain

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

const (
	// BIP0044Purpose is the "purpose" value of the derivation scheme. CKB
	// wallets follow BIP44, so all keys are derived from m/44'.
	BIP0044Purpose = 44

	// CoinTypeCKB is the SLIP-0044 coin type registered for CKB.
	CoinTypeCKB = 309

	// DefaultAccount is the only account the key ring derives from.
	DefaultAccount = 0
)

var (
	// MaxKeyRangeScan is the maximum number of keys that we'll attempt to
	// scan with if a caller knows the lock arg, but not the KeyLocator of
	// a key and wishes to derive its private key.
	MaxKeyRangeScan = 1000

	// ErrCannotDerivePrivKey is returned when DerivePrivKey is unable to
	// find a private key for the given descriptor.
	ErrCannotDerivePrivKey = fmt.Errorf("unable to derive private key")
)

// KeyFamily is the BIP44 change branch a key lives on. Receiving keys and
// change keys are kept apart so the whole set can be restored from a seed.
//
// The key derivation follows the hierarchy:
//
//   - m/44'/309'/0'/keyFamily/index
type KeyFamily uint32

const (
	// KeyFamilyExternal are keys handed out as receiving addresses.
	KeyFamilyExternal KeyFamily = 0

	// KeyFamilyChange are keys that lock change cells.
	KeyFamilyChange KeyFamily = 1
)

// String returns a human readable name of the family.
func (k KeyFamily) String() string {
	switch k {
	case KeyFamilyExternal:
		return "external"
	case KeyFamilyChange:
		return "change"
	default:
		return fmt.Sprintf("family(%d)", uint32(k))
	}
}

// KeyLocator is a two-tuple that can be used to derive *any* key that has
// ever been used under the key derivation mechanisms described in this file.
type KeyLocator struct {
	// Family is the family of key being identified.
	Family KeyFamily

	// Index is the precise index of the key being identified.
	Index uint32
}

// Path returns the full BIP32 path of the key.
func (k KeyLocator) Path() string {
	return fmt.Sprintf("m/%d'/%d'/%d'/%d/%d", BIP0044Purpose, CoinTypeCKB,
		DefaultAccount, k.Family, k.Index)
}

// KeyDescriptor wraps a KeyLocator and also optionally includes a public key.
// Either the KeyLocator must be known, or the public key pointer be non-nil.
type KeyDescriptor struct {
	// KeyLocator is the internal KeyLocator of the descriptor.
	KeyLocator

	// PubKey is an optional public key that fully describes a target key.
	PubKey *btcec.PublicKey
}

// LockArg returns the secp256k1 lock arg of the descriptor's public key.
func (k KeyDescriptor) LockArg() [LockArgSize]byte {
	return LockArg(k.PubKey)
}

// KeyRing performs public derivation of the keys that lock cells.
type KeyRing interface {
	// DeriveNextKey derives the next unused key of the family.
	DeriveNextKey(keyFam KeyFamily) (KeyDescriptor, error)

	// DeriveKey derives an arbitrary key specified by the passed
	// KeyLocator.
	DeriveKey(keyLoc KeyLocator) (KeyDescriptor, error)
}

// SecretKeyRing is a KeyRing that can also derive private keys.
type SecretKeyRing interface {
	KeyRing

	// DerivePrivKey derives the private key of the descriptor. If only
	// the public key is set, the family is scanned for a match, up to
	// MaxKeyRangeScan keys.
	DerivePrivKey(keyDesc KeyDescriptor) (*btcec.PrivateKey, error)
}
