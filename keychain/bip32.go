package keychain

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck
)

// HardenedKeyStart is the index at which hardened child keys start.
const HardenedKeyStart = 0x80000000

var (
	// ErrInvalidChild is returned for the rare child index whose key is
	// not a valid scalar. BIP32 says to skip to the next index.
	ErrInvalidChild = errors.New("derived child key is invalid")

	// ErrInvalidPath is returned for an unparsable derivation path.
	ErrInvalidPath = errors.New("invalid derivation path")

	masterKeySeed = []byte("Bitcoin seed")
)

// ExtendedKey is a BIP32 extended private key.
type ExtendedKey struct {
	privKey *btcec.PrivateKey

	ChainCode         [32]byte
	Depth             uint8
	ParentFingerprint [4]byte
	ChildNumber       uint32
}

// NewMaster creates the master extended key of a seed.
func NewMaster(seed []byte) (*ExtendedKey, error) {
	mac := hmac.New(sha512.New, masterKeySeed)
	_, _ = mac.Write(seed)
	i := mac.Sum(nil)

	var key btcec.ModNScalar
	if overflow := key.SetByteSlice(i[:32]); overflow || key.IsZero() {
		return nil, fmt.Errorf("seed produces an invalid master key")
	}

	ext := &ExtendedKey{privKey: btcec.PrivKeyFromScalar(&key)}
	copy(ext.ChainCode[:], i[32:])

	return ext, nil
}

// PrivKey returns the private key of the extended key.
func (k *ExtendedKey) PrivKey() *btcec.PrivateKey {
	return k.privKey
}

// PubKey returns the public key of the extended key.
func (k *ExtendedKey) PubKey() *btcec.PublicKey {
	return k.privKey.PubKey()
}

// Child derives the child at index i. Indexes at or above HardenedKeyStart
// produce hardened children.
func (k *ExtendedKey) Child(i uint32) (*ExtendedKey, error) {
	mac := hmac.New(sha512.New, k.ChainCode[:])
	if i >= HardenedKeyStart {
		_, _ = mac.Write([]byte{0x00})
		_, _ = mac.Write(k.privKey.Serialize())
	} else {
		_, _ = mac.Write(k.PubKey().SerializeCompressed())
	}

	var index [4]byte
	binary.BigEndian.PutUint32(index[:], i)
	_, _ = mac.Write(index[:])
	ilr := mac.Sum(nil)

	var tweak btcec.ModNScalar
	if overflow := tweak.SetByteSlice(ilr[:32]); overflow {
		return nil, ErrInvalidChild
	}

	childKey := new(btcec.ModNScalar).Set(&k.privKey.Key).Add(&tweak)
	if childKey.IsZero() {
		return nil, ErrInvalidChild
	}

	child := &ExtendedKey{
		privKey:           btcec.PrivKeyFromScalar(childKey),
		Depth:             k.Depth + 1,
		ParentFingerprint: k.fingerprint(),
		ChildNumber:       i,
	}
	copy(child.ChainCode[:], ilr[32:])

	return child, nil
}

// fingerprint is the first four bytes of hash160 of the public key.
func (k *ExtendedKey) fingerprint() [4]byte {
	sha := sha256.Sum256(k.PubKey().SerializeCompressed())
	hasher := ripemd160.New()
	_, _ = hasher.Write(sha[:])

	var fp [4]byte
	copy(fp[:], hasher.Sum(nil))

	return fp
}

// DeriveFromPath derives the descendant described by a path such as
// m/44'/309'/0'/0/1.
func (k *ExtendedKey) DeriveFromPath(path string) (*ExtendedKey, error) {
	indexes, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	key := k
	for _, i := range indexes {
		key, err = key.Child(i)
		if err != nil {
			return nil, err
		}
	}

	return key, nil
}

// ParsePath parses a BIP32 path. Hardened components are marked with ' or
// h.
func ParsePath(path string) ([]uint32, error) {
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] != "m" {
		return nil, fmt.Errorf("%w: %q must start with m", ErrInvalidPath,
			path)
	}

	indexes := make([]uint32, 0, len(parts)-1)
	for _, part := range parts[1:] {
		hardened := strings.HasSuffix(part, "'") ||
			strings.HasSuffix(part, "h")
		part = strings.TrimRight(part, "'h")

		i, err := strconv.ParseUint(part, 10, 32)
		if err != nil || i >= HardenedKeyStart {
			return nil, fmt.Errorf("%w: component %q", ErrInvalidPath,
				part)
		}

		index := uint32(i)
		if hardened {
			index += HardenedKeyStart
		}
		indexes = append(indexes, index)
	}

	return indexes, nil
}
