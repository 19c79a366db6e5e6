package txbuilder

import (
	"bytes"
	"fmt"

	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
)

// TokenAmountOf decodes the amount held by a token cell. Only the first 16
// bytes of data are the amount, anything after them is left to extensions.
func TokenAmountOf(data []byte) (ckbutil.TokenAmount, error) {
	return ckbutil.DecodeU128LE(data)
}

func addTokens(a, b ckbutil.TokenAmount) (ckbutil.TokenAmount, error) {
	sum := a.AddWrap(b)
	if sum.Cmp(a) < 0 {
		return ckbutil.TokenAmount{}, fmt.Errorf("token amount overflow")
	}

	return sum, nil
}

// InputTokens sums the token amounts of inputs typed with typeScript.
func (s *Skeleton) InputTokens(
	typeScript *ckbwire.Script) (ckbutil.TokenAmount, error) {

	var total ckbutil.TokenAmount
	for i := range s.Inputs {
		if !s.Inputs[i].HasType(typeScript) {
			continue
		}

		amt, err := TokenAmountOf(s.Inputs[i].Data)
		if err != nil {
			return total, fmt.Errorf("input %d: %w", i, err)
		}
		if total, err = addTokens(total, amt); err != nil {
			return total, err
		}
	}

	return total, nil
}

// OutputTokens sums the token amounts of outputs typed with typeScript.
func (s *Skeleton) OutputTokens(
	typeScript *ckbwire.Script) (ckbutil.TokenAmount, error) {

	var total ckbutil.TokenAmount
	for i := range s.Outputs {
		out := &s.Outputs[i]
		if out.Type == nil || !out.Type.Equals(typeScript) {
			continue
		}

		amt, err := TokenAmountOf(out.Data)
		if err != nil {
			return total, fmt.Errorf("output %d: %w", i, err)
		}
		if total, err = addTokens(total, amt); err != nil {
			return total, err
		}
	}

	return total, nil
}

// IsOwnerMode reports whether one of the inputs is locked by the owner
// named in the first 32 bytes of the type args. The UDT scripts let such a
// transaction mint.
func (s *Skeleton) IsOwnerMode(typeScript *ckbwire.Script) bool {
	if len(typeScript.Args) < ckbhash.HashSize {
		return false
	}
	owner := typeScript.Args[:ckbhash.HashSize]

	for i := range s.Inputs {
		hash := s.Inputs[i].Output.Lock.Hash()
		if bytes.Equal(hash[:], owner) {
			return true
		}
	}

	return false
}

// CheckTokenBalance verifies outputs never carry more tokens than the inputs
// unless the owner signs, in which case any amount may be minted.
func (s *Skeleton) CheckTokenBalance(typeScript *ckbwire.Script) error {
	in, err := s.InputTokens(typeScript)
	if err != nil {
		return err
	}
	out, err := s.OutputTokens(typeScript)
	if err != nil {
		return err
	}

	if out.Cmp(in) > 0 && !s.IsOwnerMode(typeScript) {
		return &ErrTokenImbalance{
			Inputs:  in,
			Outputs: out,
			Reason:  "outputs exceed inputs without owner",
		}
	}

	return nil
}

// CheckTokenConservation verifies the outputs carry exactly the tokens of
// the inputs, as a plain transfer must.
func (s *Skeleton) CheckTokenConservation(typeScript *ckbwire.Script) error {
	in, err := s.InputTokens(typeScript)
	if err != nil {
		return err
	}
	out, err := s.OutputTokens(typeScript)
	if err != nil {
		return err
	}

	if !in.Equals(out) {
		return &ErrTokenImbalance{
			Inputs:  in,
			Outputs: out,
			Reason:  "transfer must conserve tokens",
		}
	}

	return nil
}

// AddTokenChange returns the tokens the inputs hold beyond the outputs to
// lock in a new token cell of the given capacity. It returns the index of
// the change output, or -1 when there is nothing left over.
func (s *Skeleton) AddTokenChange(typeScript, lock *ckbwire.Script,
	capacity ckbutil.Capacity) (int, error) {

	in, err := s.InputTokens(typeScript)
	if err != nil {
		return 0, err
	}
	out, err := s.OutputTokens(typeScript)
	if err != nil {
		return 0, err
	}

	if out.Cmp(in) > 0 {
		return 0, &ErrTokenImbalance{
			Inputs:  in,
			Outputs: out,
			Reason:  "no token change left",
		}
	}

	change := in.Sub(out)
	if change.IsZero() {
		return -1, nil
	}

	idx := s.AddOutput(ckbwire.CellOutput{
		Capacity: capacity,
		Lock:     *lock.Copy(),
		Type:     typeScript.Copy(),
	}, ckbutil.EncodeU128LE(change))

	log.Debugf("Added token change output %d with %v tokens", idx, change)

	return idx, nil
}

// CollectTokenCells picks cells typed with typeScript until their amounts
// reach required. The total picked is returned with the cells.
func CollectTokenCells(required ckbutil.TokenAmount,
	typeScript *ckbwire.Script, candidates []Cell) ([]Cell,
	ckbutil.TokenAmount, error) {

	var (
		total    ckbutil.TokenAmount
		selected []Cell
	)
	for i := range candidates {
		if total.Cmp(required) >= 0 {
			break
		}
		if !candidates[i].HasType(typeScript) {
			continue
		}

		amt, err := TokenAmountOf(candidates[i].Data)
		if err != nil {
			return nil, total, fmt.Errorf("cell %v: %w",
				candidates[i].OutPoint, err)
		}
		if total, err = addTokens(total, amt); err != nil {
			return nil, total, err
		}
		selected = append(selected, candidates[i])
	}

	if total.Cmp(required) < 0 {
		return nil, total, &ErrTokenImbalance{
			Inputs:  total,
			Outputs: required,
			Reason:  "not enough token cells",
		}
	}

	return selected, total, nil
}
