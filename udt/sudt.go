// Package udt builds the type scripts and cell data of user defined tokens:
// sUDT, xUDT and the type id cells their supply tracking relies on.
package udt

import (
	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
)

// SUDTTypeScript returns the sUDT type script of the token owned by the
// lock with the given hash. The owner lock hash is the whole args.
func SUDTTypeScript(codeHash ckbhash.Hash, hashType ckbwire.HashType,
	ownerLockHash ckbhash.Hash) *ckbwire.Script {

	args := make([]byte, ckbhash.HashSize)
	copy(args, ownerLockHash[:])

	return &ckbwire.Script{
		CodeHash: codeHash,
		HashType: hashType,
		Args:     args,
	}
}

// TokenData returns the data of a token cell holding amt.
func TokenData(amt ckbutil.TokenAmount) []byte {
	return ckbutil.EncodeU128LE(amt)
}

// TokenCellCapacity returns the capacity a token cell with the given lock
// and type occupies: the cell fields plus 16 bytes of amount.
func TokenCellCapacity(lock, typeScript *ckbwire.Script) ckbutil.Capacity {
	out := ckbwire.CellOutput{Lock: *lock, Type: typeScript}

	return out.OccupiedCapacity(make([]byte, ckbutil.U128Size))
}

// TokenOutput returns a token cell of amt for lock, funded with exactly its
// occupied capacity.
func TokenOutput(lock, typeScript *ckbwire.Script,
	amt ckbutil.TokenAmount) (ckbwire.CellOutput, []byte) {

	return ckbwire.CellOutput{
		Capacity: TokenCellCapacity(lock, typeScript),
		Lock:     *lock.Copy(),
		Type:     typeScript.Copy(),
	}, TokenData(amt)
}

// CodeHash returns the data hash of a script binary, the code hash of
// scripts referencing it with a data hash type.
func CodeHash(binary []byte) ckbhash.Hash {
	return ckbhash.Blake2b256(binary)
}
