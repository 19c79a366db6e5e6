// Package locks holds the custom lock scripts the labs deploy.
package locks

import (
	"errors"
	"fmt"

	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
)

// OCCLockArgsSize is the size of OCC lock args: a u64 amount and a u64
// count.
const OCCLockArgsSize = 16

// ErrInvalidOCCArgs is returned when lock args are not OCC args.
var ErrInvalidOCCArgs = errors.New("invalid OCC lock args")

// OCCLockArgs are the args of the output capacity count lock. A cell under
// this lock can only be spent by a transaction with at least Count outputs
// of exactly Amount capacity each.
type OCCLockArgs struct {
	Amount ckbutil.Capacity
	Count  uint64
}

// Encode returns the 16 byte args, both fields u64 LE.
func (a OCCLockArgs) Encode() []byte {
	b := make([]byte, 0, OCCLockArgsSize)
	b = append(b, ckbutil.EncodeU64LE(uint64(a.Amount))...)

	return append(b, ckbutil.EncodeU64LE(a.Count)...)
}

// ParseOCCLockArgs decodes OCC lock args.
func ParseOCCLockArgs(args []byte) (OCCLockArgs, error) {
	if len(args) != OCCLockArgsSize {
		return OCCLockArgs{}, fmt.Errorf("%w: %d bytes", ErrInvalidOCCArgs,
			len(args))
	}

	amount, _ := ckbutil.DecodeU64LE(args[:8])
	count, _ := ckbutil.DecodeU64LE(args[8:])

	return OCCLockArgs{Amount: ckbutil.Capacity(amount), Count: count}, nil
}

// OCCLockScript returns the OCC lock running the binary with the given data
// hash.
func OCCLockScript(codeHash ckbhash.Hash, args OCCLockArgs) *ckbwire.Script {
	return &ckbwire.Script{
		CodeHash: codeHash,
		HashType: ckbwire.HashTypeData1,
		Args:     args.Encode(),
	}
}

// Satisfied reports whether outputs contain at least Count cells holding
// exactly Amount.
func (a OCCLockArgs) Satisfied(outputs []ckbwire.CellOutput) bool {
	var matching uint64
	for i := range outputs {
		if outputs[i].Capacity == a.Amount {
			matching++
		}
	}

	return matching >= a.Count
}
