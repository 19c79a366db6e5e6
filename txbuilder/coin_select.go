package txbuilder

import (
	"fmt"

	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
)

// DefaultMaxFeeRatio is the default fee to total amount of outputs ratio
// that is used to sanity check the fees of a transaction.
const DefaultMaxFeeRatio float64 = 0.2

// SelectCells picks plain cells, in the given order, until their capacity
// reaches amt. If selection is unable to succeed due to insufficient
// capacity, a non-nil error is returned. The total capacity of the selected
// cells is returned so the caller can handle change and fees.
func SelectCells(amt ckbutil.Capacity, cells []Cell) (ckbutil.Capacity,
	[]Cell, error) {

	if amt == 0 {
		return 0, nil, nil
	}

	var (
		selected []Cell
		total    ckbutil.Capacity
	)
	for i := range cells {
		if !cells[i].IsPlain() {
			continue
		}

		var err error
		total, err = total.Add(cells[i].Capacity())
		if err != nil {
			return 0, nil, err
		}
		selected = append(selected, cells[i])

		if total >= amt {
			return total, selected, nil
		}
	}

	return 0, nil, &ErrInsufficientCapacity{
		Required:  amt,
		Available: total,
	}
}

// calculateFees returns for the skeleton extended with the selected cells
// two fee estimates, one calculated using a change output and one without.
func calculateFees(s *Skeleton, selected []Cell, changeLock *ckbwire.Script,
	feeEstimator FeeEstimator) (ckbutil.Capacity, ckbutil.Capacity, error) {

	trial := s.Copy()
	if err := trial.AddInputs(selected...); err != nil {
		return 0, 0, err
	}
	trial.AddDefaultWitnessPlaceholders()

	// Estimate the fee required for a transaction without a change
	// output.
	requiredFeeNoChange := feeEstimator.FeeForSize(
		trial.Build().SerializeSize(),
	)

	// Estimate the fee required for a transaction with a change output.
	// The change capacity does not affect the size.
	trial.AddOutput(ckbwire.CellOutput{Lock: *changeLock.Copy()}, nil)
	requiredFeeWithChange := feeEstimator.FeeForSize(
		trial.Build().SerializeSize(),
	)

	return requiredFeeNoChange, requiredFeeWithChange, nil
}

// sanityCheckFee checks if the specified fee amounts to what the provided
// ratio allows.
func sanityCheckFee(totalOut, fee ckbutil.Capacity,
	maxFeeRatio float64) error {

	// Sanity check the maxFeeRatio itself.
	if maxFeeRatio <= 0.00 || maxFeeRatio > 1.00 {
		return fmt.Errorf("maxFeeRatio must be between 0.00 and 1.00 "+
			"got %.2f", maxFeeRatio)
	}

	maxFee := ckbutil.Capacity(float64(totalOut) * maxFeeRatio)

	// Check that the fees do not exceed the max allowed value.
	if fee > maxFee {
		return fmt.Errorf("fee %v exceeds max fee (%v) on total "+
			"output value %v with max fee ratio of %.2f", fee,
			maxFee, totalOut, maxFeeRatio)
	}

	return nil
}

// CalculateChangeAmount calculates the change left over when totalInput is
// spent on requiredAmt of outputs. The first amount returned is the change.
// If it is non-zero a change cell of that capacity must be added. The second
// amount, if non-zero, is the total input capacity to select in another
// round because the current inputs cannot pay for the fees.
//
// A change cell needs at least minChange capacity. Unlike dust on bitcoin a
// leftover below that is not given away as fee: more capacity is selected
// instead so the leftover can form a full change cell. Only an exact match
// produces a transaction without change.
func CalculateChangeAmount(totalInput, requiredAmt, requiredFeeNoChange,
	requiredFeeWithChange, minChange ckbutil.Capacity,
	maxFeeRatio float64) (ckbutil.Capacity, ckbutil.Capacity, error) {

	// The difference between the selected amount and the amount
	// requested will be used to pay fees, and generate a change
	// output with the remaining.
	overShootAmt, ok := totalInput.SafeSub(requiredAmt)
	if !ok {
		overShootAmt = 0
	}

	var changeAmt ckbutil.Capacity

	switch {
	// If the excess amount isn't enough to pay for fees based on the
	// estimated size without using a change output, then increase the
	// requested amount by the required fee, performing another round of
	// selection.
	case overShootAmt < requiredFeeNoChange:
		return 0, requiredAmt + requiredFeeNoChange, nil

	// The inputs pay the outputs and the fee to the shannon.
	case overShootAmt == requiredFeeNoChange:
		changeAmt = 0

	// If sufficient capacity was selected to cover the fee of a change
	// output and the change cell itself, the remainder is our change.
	case overShootAmt >= requiredFeeWithChange+minChange:
		changeAmt = overShootAmt - requiredFeeWithChange

	// Otherwise the leftover is too small to live in its own cell.
	default:
		return 0, requiredAmt + requiredFeeWithChange + minChange, nil
	}

	// Sanity check the resulting output values to make sure we don't
	// burn a great part to fees.
	totalOut := requiredAmt + changeAmt

	err := sanityCheckFee(totalOut, totalInput-totalOut, maxFeeRatio)
	if err != nil {
		return 0, 0, err
	}

	return changeAmt, 0, nil
}

// SelectCapacity attempts to select enough candidate cells, including a
// change output for changeLock, to fund the skeleton's outputs at the
// estimator's fee. The selected cells and the change amount are returned;
// the skeleton itself is left untouched.
func SelectCapacity(s *Skeleton, candidates []Cell,
	changeLock *ckbwire.Script, feeEstimator FeeEstimator,
	maxFeeRatio float64) ([]Cell, ckbutil.Capacity, error) {

	existingIn, requiredAmt, err := s.capacities()
	if err != nil {
		return nil, 0, err
	}

	// Cells already spent by the skeleton are not candidates.
	available := make([]Cell, 0, len(candidates))
	for i := range candidates {
		if !s.HasInput(candidates[i].OutPoint) {
			available = append(available, candidates[i])
		}
	}

	minChange := PlainCellCapacity(changeLock)

	amtNeeded, _ := requiredAmt.SafeSub(existingIn)
	for {
		// First perform a round of selection to estimate the required
		// fee.
		totalSelected, selected, err := SelectCells(
			amtNeeded, available,
		)
		if err != nil {
			return nil, 0, err
		}

		// Obtain fee estimates both with and without using a change
		// output.
		feeNoChange, feeWithChange, err := calculateFees(
			s, selected, changeLock, feeEstimator,
		)
		if err != nil {
			return nil, 0, err
		}

		totalIn, err := existingIn.Add(totalSelected)
		if err != nil {
			return nil, 0, err
		}

		changeAmt, newAmtNeeded, err := CalculateChangeAmount(
			totalIn, requiredAmt, feeNoChange, feeWithChange,
			minChange, maxFeeRatio,
		)
		if err != nil {
			return nil, 0, err
		}

		// Need another round, the selected cells aren't enough to pay
		// for the fees.
		if newAmtNeeded != 0 {
			amtNeeded, _ = newAmtNeeded.SafeSub(existingIn)

			log.Tracef("Selected %v, need %v in total", totalIn,
				newAmtNeeded)

			continue
		}

		// Selection was successful.
		return selected, changeAmt, nil
	}
}

// Complete funds the skeleton from candidates: it adds the selected inputs,
// a change output when change is left and the default witness
// placeholders. The fee is returned.
func Complete(s *Skeleton, candidates []Cell, changeLock *ckbwire.Script,
	feeEstimator FeeEstimator, maxFeeRatio float64) (ckbutil.Capacity,
	error) {

	selected, change, err := SelectCapacity(
		s, candidates, changeLock, feeEstimator, maxFeeRatio,
	)
	if err != nil {
		return 0, err
	}

	if err := s.AddInputs(selected...); err != nil {
		return 0, err
	}
	if change > 0 {
		s.AddOutput(ckbwire.CellOutput{
			Capacity: change,
			Lock:     *changeLock.Copy(),
		}, nil)
	}
	s.AddDefaultWitnessPlaceholders()

	fee, err := s.Fee()
	if err != nil {
		return 0, err
	}

	log.Debugf("Completed transaction with %d inputs, %d outputs, "+
		"fee %v (%v)", len(s.Inputs), len(s.Outputs), fee, feeEstimator)

	return fee, nil
}

// CompleteWithFeeRate completes the skeleton paying the given fee rate on
// its final serialized size.
func CompleteWithFeeRate(s *Skeleton, candidates []Cell,
	changeLock *ckbwire.Script, rate FeeRate) (ckbutil.Capacity, error) {

	return Complete(s, candidates, changeLock, rate, DefaultMaxFeeRatio)
}
