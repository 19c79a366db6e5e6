package udt

import (
	"errors"
	"fmt"

	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
)

// TypeIDCodeHash is the code hash of the built-in type id script, "TYPE_ID"
// in ASCII right aligned.
var TypeIDCodeHash = ckbhash.MustHashFromStr(
	"0x00000000000000000000000000000000000000000000000000545950455f4944",
)

// TypeIDArgs returns the unique id of a type id cell created at outputIndex
// by a transaction whose first input is firstInput.
func TypeIDArgs(firstInput *ckbwire.CellInput,
	outputIndex uint64) ckbhash.Hash {

	return ckbhash.Blake2b256(
		firstInput.Serialize(), ckbutil.EncodeU64LE(outputIndex),
	)
}

// TypeIDScript returns the type id script for a cell created at outputIndex
// by a transaction whose first input is firstInput.
func TypeIDScript(firstInput *ckbwire.CellInput,
	outputIndex uint64) *ckbwire.Script {

	id := TypeIDArgs(firstInput, outputIndex)

	return &ckbwire.Script{
		CodeHash: TypeIDCodeHash,
		HashType: ckbwire.HashTypeType,
		Args:     id[:],
	}
}

// RemainingAmountCellCapacity is the capacity of the cell tracking the
// remaining xUDT supply. It covers a 20 byte lock arg, the type id script
// and the 4 byte amount.
var RemainingAmountCellCapacity = ckbutil.CKBytes(
	8 + 32 + 1 + 20 + 32 + 1 + 32 + 4,
)

// ErrSupplyExhausted is returned when a mint exceeds the remaining supply.
var ErrSupplyExhausted = errors.New("remaining supply exhausted")

// EncodeRemainingAmount returns the data of the remaining amount cell.
func EncodeRemainingAmount(remaining uint32) []byte {
	return ckbutil.EncodeU32LE(remaining)
}

// DecodeRemainingAmount reads the remaining supply from the cell data.
func DecodeRemainingAmount(data []byte) (uint32, error) {
	if len(data) != 4 {
		return 0, fmt.Errorf("remaining amount data has %d bytes, "+
			"want 4", len(data))
	}

	return ckbutil.DecodeU32LE(data)
}

// SpendSupply returns the supply left after minting amt.
func SpendSupply(remaining uint32, amt ckbutil.TokenAmount) (uint32, error) {
	if amt.Cmp64(uint64(remaining)) > 0 {
		return 0, fmt.Errorf("%w: minting %v with %d left",
			ErrSupplyExhausted, amt, remaining)
	}

	return remaining - uint32(amt.Lo), nil
}
