package ckbmock

import (
	"errors"

	"github.com/ckb-labs/ckblab/ckbwire"
	"github.com/ckb-labs/ckblab/locks"
	"github.com/ckb-labs/ckblab/txbuilder"
)

// ErrLockNotSatisfied is returned by VerifyOCCLock for a transaction without
// the outputs the lock asks for.
var ErrLockNotSatisfied = errors.New("lock conditions not satisfied")

// VerifyTokens checks the amounts of a sUDT or xUDT type script: outside
// owner mode a transaction may not create tokens.
func VerifyTokens(script *ckbwire.Script, s *txbuilder.Skeleton) error {
	return s.CheckTokenBalance(script)
}

// VerifyOCCLock checks an OCC lock: the transaction needs at least the
// lock's count of outputs holding exactly its amount.
func VerifyOCCLock(script *ckbwire.Script, s *txbuilder.Skeleton) error {
	args, err := locks.ParseOCCLockArgs(script.Args)
	if err != nil {
		return err
	}

	outputs := make([]ckbwire.CellOutput, len(s.Outputs))
	for i := range s.Outputs {
		outputs[i] = s.Outputs[i].CellOutput
	}
	if !args.Satisfied(outputs) {
		return ErrLockNotSatisfied
	}

	return nil
}
