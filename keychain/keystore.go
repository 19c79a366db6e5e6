package keychain

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
)

// ErrUnknownLockArg is returned when no key in a store matches a lock arg.
var ErrUnknownLockArg = errors.New("no key for lock arg")

// KeyStore holds private keys indexed by their secp256k1 lock arg so that
// the signer can find the key for every input lock of a transaction.
type KeyStore struct {
	mu   sync.RWMutex
	keys map[[LockArgSize]byte]*btcec.PrivateKey
}

// NewKeyStore creates a store holding the given keys.
func NewKeyStore(keys ...*btcec.PrivateKey) *KeyStore {
	s := &KeyStore{
		keys: make(map[[LockArgSize]byte]*btcec.PrivateKey, len(keys)),
	}
	for _, key := range keys {
		s.Add(key)
	}

	return s
}

// Add stores a key and returns its lock arg.
func (s *KeyStore) Add(key *btcec.PrivateKey) [LockArgSize]byte {
	arg := LockArg(key.PubKey())

	s.mu.Lock()
	s.keys[arg] = key
	s.mu.Unlock()

	return arg
}

// AddHex parses and stores a hex private key.
func (s *KeyStore) AddHex(privKeyHex string) ([LockArgSize]byte, error) {
	key, err := ParsePrivateKey(privKeyHex)
	if err != nil {
		return [LockArgSize]byte{}, err
	}

	return s.Add(key), nil
}

// SignerForLockArg returns a signer for the key behind a lock arg.
func (s *KeyStore) SignerForLockArg(arg []byte) (DigestSigner, error) {
	if len(arg) != LockArgSize {
		return nil, fmt.Errorf("%w: %d byte arg", ErrUnknownLockArg,
			len(arg))
	}

	var key [LockArgSize]byte
	copy(key[:], arg)

	s.mu.RLock()
	priv, ok := s.keys[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: 0x%s", ErrUnknownLockArg,
			hex.EncodeToString(arg))
	}

	return NewPrivKeyDigestSigner(priv), nil
}

// Len returns the number of keys held.
func (s *KeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.keys)
}
