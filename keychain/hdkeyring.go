package keychain

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/tyler-smith/go-bip39"
)

// MnemonicEntropyBits is the entropy of newly generated mnemonics, which
// yields 12 words.
const MnemonicEntropyBits = 128

// NewMnemonic generates a fresh BIP39 mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(MnemonicEntropyBits)
	if err != nil {
		return "", fmt.Errorf("unable to generate entropy: %w", err)
	}

	return bip39.NewMnemonic(entropy)
}

// SeedFromMnemonic validates a mnemonic and returns its BIP39 seed.
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	return bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
}

// HDKeyRing is a SecretKeyRing deriving keys from a BIP32 seed along the
// m/44'/309'/0' account.
type HDKeyRing struct {
	account *ExtendedKey

	mu        sync.Mutex
	nextIndex map[KeyFamily]uint32
}

// A compile time check to ensure HDKeyRing implements the SecretKeyRing
// interface.
var _ SecretKeyRing = (*HDKeyRing)(nil)

// NewHDKeyRing creates a key ring from a seed.
func NewHDKeyRing(seed []byte) (*HDKeyRing, error) {
	master, err := NewMaster(seed)
	if err != nil {
		return nil, err
	}

	account, err := master.DeriveFromPath(fmt.Sprintf("m/%d'/%d'/%d'",
		BIP0044Purpose, CoinTypeCKB, DefaultAccount))
	if err != nil {
		return nil, err
	}

	return &HDKeyRing{
		account:   account,
		nextIndex: make(map[KeyFamily]uint32),
	}, nil
}

// NewHDKeyRingFromMnemonic creates a key ring from a BIP39 mnemonic.
func NewHDKeyRingFromMnemonic(mnemonic, passphrase string) (*HDKeyRing,
	error) {

	seed, err := SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}

	return NewHDKeyRing(seed)
}

func (r *HDKeyRing) derivePriv(keyLoc KeyLocator) (*btcec.PrivateKey, error) {
	branch, err := r.account.Child(uint32(keyLoc.Family))
	if err != nil {
		return nil, err
	}

	child, err := branch.Child(keyLoc.Index)
	if err != nil {
		return nil, err
	}

	return child.PrivKey(), nil
}

// DeriveNextKey derives the next key of the family.
//
// NOTE: This is part of the KeyRing interface.
func (r *HDKeyRing) DeriveNextKey(keyFam KeyFamily) (KeyDescriptor, error) {
	r.mu.Lock()
	index := r.nextIndex[keyFam]
	r.nextIndex[keyFam] = index + 1
	r.mu.Unlock()

	return r.DeriveKey(KeyLocator{Family: keyFam, Index: index})
}

// DeriveKey derives the key at the given locator.
//
// NOTE: This is part of the KeyRing interface.
func (r *HDKeyRing) DeriveKey(keyLoc KeyLocator) (KeyDescriptor, error) {
	priv, err := r.derivePriv(keyLoc)
	if err != nil {
		return KeyDescriptor{}, err
	}

	return KeyDescriptor{KeyLocator: keyLoc, PubKey: priv.PubKey()}, nil
}

// DerivePrivKey derives the private key of a descriptor. When the public key
// is set the family is scanned for it.
//
// NOTE: This is part of the SecretKeyRing interface.
func (r *HDKeyRing) DerivePrivKey(
	keyDesc KeyDescriptor) (*btcec.PrivateKey, error) {

	if keyDesc.PubKey == nil {
		return r.derivePriv(keyDesc.KeyLocator)
	}

	for i := 0; i < MaxKeyRangeScan; i++ {
		loc := KeyLocator{Family: keyDesc.Family, Index: uint32(i)}
		priv, err := r.derivePriv(loc)
		if err != nil {
			return nil, err
		}
		if priv.PubKey().IsEqual(keyDesc.PubKey) {
			return priv, nil
		}
	}

	return nil, ErrCannotDerivePrivKey
}
