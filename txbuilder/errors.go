package txbuilder

import (
	"errors"
	"fmt"

	"github.com/ckb-labs/ckblab/ckbutil"
)

// ErrInsufficientCapacity is returned when the available cells cannot cover
// the capacity a transaction needs.
type ErrInsufficientCapacity struct {
	Required  ckbutil.Capacity
	Available ckbutil.Capacity
}

// Error returns a human-readable string describing the error.
func (e *ErrInsufficientCapacity) Error() string {
	return fmt.Sprintf("insufficient capacity: need %v, only %v "+
		"available", e.Required, e.Available)
}

// ErrTokenImbalance is returned when the token amounts of a transaction's
// inputs and outputs do not satisfy the expected relation.
type ErrTokenImbalance struct {
	Inputs  ckbutil.TokenAmount
	Outputs ckbutil.TokenAmount
	Reason  string
}

// Error returns a human-readable string describing the error.
func (e *ErrTokenImbalance) Error() string {
	return fmt.Sprintf("token imbalance: inputs %v, outputs %v: %s",
		e.Inputs, e.Outputs, e.Reason)
}

// ErrUnderfundedOutput is returned when an output holds less capacity than
// it occupies.
type ErrUnderfundedOutput struct {
	Index    int
	Capacity ckbutil.Capacity
	Occupied ckbutil.Capacity
}

// Error returns a human-readable string describing the error.
func (e *ErrUnderfundedOutput) Error() string {
	return fmt.Sprintf("output %d holds %v but occupies %v", e.Index,
		e.Capacity, e.Occupied)
}

// ErrChangeBelowMinimum is returned when the capacity left for a change cell
// is smaller than the cell itself occupies.
type ErrChangeBelowMinimum struct {
	Change  ckbutil.Capacity
	Minimum ckbutil.Capacity
}

// Error returns a human-readable string describing the error.
func (e *ErrChangeBelowMinimum) Error() string {
	return fmt.Sprintf("change %v is below the minimum change cell "+
		"capacity %v", e.Change, e.Minimum)
}

var (
	// ErrOutputsExceedInputs is returned when outputs spend more
	// capacity than the inputs provide.
	ErrOutputsExceedInputs = errors.New("outputs exceed inputs")

	// ErrDuplicateInput is returned when the same cell is added twice.
	ErrDuplicateInput = errors.New("duplicate input")

	// ErrNoInputs is returned when a transaction without inputs is built.
	ErrNoInputs = errors.New("transaction has no inputs")
)
