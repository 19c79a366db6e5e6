package keychain

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ckb-labs/ckblab/ckbhash"
)

// LockArgSize is the size of a secp256k1_blake160 lock arg.
const LockArgSize = ckbhash.Blake160Size

// ParsePrivateKey parses a 32 byte hex encoded private key, with or without
// the 0x prefix.
func ParsePrivateKey(s string) (*btcec.PrivateKey, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key hex: %w", err)
	}
	if len(b) != btcec.PrivKeyBytesLen {
		return nil, fmt.Errorf("invalid private key length %d, want %d",
			len(b), btcec.PrivKeyBytesLen)
	}

	var scalar btcec.ModNScalar
	if overflow := scalar.SetByteSlice(b); overflow || scalar.IsZero() {
		return nil, fmt.Errorf("private key out of range")
	}

	return btcec.PrivKeyFromScalar(&scalar), nil
}

// LockArg returns the blake160 hash of the compressed public key, the arg of
// the default secp256k1 lock.
func LockArg(pub *btcec.PublicKey) [LockArgSize]byte {
	return ckbhash.Blake160(pub.SerializeCompressed())
}

// LockArgHex returns the 0x prefixed hex lock arg of a public key.
func LockArgHex(pub *btcec.PublicKey) string {
	arg := LockArg(pub)

	return "0x" + hex.EncodeToString(arg[:])
}
