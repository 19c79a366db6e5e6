package labs

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/ckb-labs/ckblab/address"
	"github.com/ckb-labs/ckblab/chainparams"
	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
	"github.com/ckb-labs/ckblab/keychain"
)

// LockValues are the values derived from a private key on the way to an
// address.
type LockValues struct {
	PrivateKey string
	PublicKey  string
	LockArg    ckbutil.HexBytes
	LockScript *ckbwire.Script
	LockHash   ckbhash.Hash
	Address    string
}

// DeriveLockValues derives the public key, lock arg, default lock, lock
// hash and address of a hex private key.
func DeriveLockValues(privKeyHex string,
	params *chainparams.Params) (*LockValues, error) {

	key, err := keychain.ParsePrivateKey(privKeyHex)
	if err != nil {
		return nil, err
	}

	arg := keychain.LockArg(key.PubKey())
	lock := params.DefaultLock(arg[:])

	addr, err := address.Encode(lock, params.AddressPrefix)
	if err != nil {
		return nil, err
	}

	return &LockValues{
		PrivateKey: "0x" + hex.EncodeToString(key.Serialize()),
		PublicKey: "0x" + hex.EncodeToString(
			key.PubKey().SerializeCompressed(),
		),
		LockArg:    arg[:],
		LockScript: lock,
		LockHash:   lock.Hash(),
		Address:    addr,
	}, nil
}

// WriteTo prints the values one per line.
func (v *LockValues) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w, "Private Key:\t%s (32 bytes)\n"+
		"Public Key:\t%s (33 bytes)\n"+
		"Lock Arg:\t%v (20 bytes)\n"+
		"Lock Script:\t{\n"+
		"            \t  \"code_hash\": \"%v\",\n"+
		"            \t  \"hash_type\": \"%v\",\n"+
		"            \t  \"args\": \"%v\"\n"+
		"            \t}\n"+
		"Lock Hash:\t%v (32 bytes)\n"+
		"Address:\t%s (%s)\n",
		v.PrivateKey, v.PublicKey, v.LockArg, v.LockScript.CodeHash,
		v.LockScript.HashType, ckbutil.HexBytes(v.LockScript.Args),
		v.LockHash, v.Address, networkName(v.Address))

	return int64(n), err
}

func networkName(addr string) string {
	a, err := address.Decode(addr)
	if err != nil || a.Network == address.Testnet {
		return "Testnet"
	}

	return "Mainnet"
}
