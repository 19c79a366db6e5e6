package txbuilder

import (
	"fmt"

	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
)

// Skeleton is a transaction under construction. Unlike a bare
// ckbwire.Transaction it keeps the resolved input cells around, so capacity
// and token sums, lock groups and descriptions can be computed without
// asking the node again.
type Skeleton struct {
	CellDeps   []ckbwire.CellDep
	HeaderDeps []ckbhash.Hash
	Inputs     []Cell
	Outputs    []Output
	Witnesses  [][]byte
}

// NewSkeleton returns an empty skeleton.
func NewSkeleton() *Skeleton {
	return &Skeleton{}
}

// AddCellDep adds a cell dep unless an identical one is already present. It
// reports whether the dep was added.
func (s *Skeleton) AddCellDep(dep ckbwire.CellDep) bool {
	for _, d := range s.CellDeps {
		if d == dep {
			return false
		}
	}

	s.CellDeps = append(s.CellDeps, dep)

	return true
}

// AddCellDeps adds every dep with AddCellDep.
func (s *Skeleton) AddCellDeps(deps ...ckbwire.CellDep) {
	for _, dep := range deps {
		s.AddCellDep(dep)
	}
}

// HasInput reports whether the cell at op is already spent by the skeleton.
func (s *Skeleton) HasInput(op ckbwire.OutPoint) bool {
	for i := range s.Inputs {
		if s.Inputs[i].OutPoint == op {
			return true
		}
	}

	return false
}

// AddInputs appends cells as inputs. Spending the same cell twice fails
// with ErrDuplicateInput and leaves the skeleton unchanged.
func (s *Skeleton) AddInputs(cells ...Cell) error {
	seen := make(map[ckbwire.OutPoint]struct{}, len(cells))
	for i := range cells {
		op := cells[i].OutPoint
		if _, ok := seen[op]; ok || s.HasInput(op) {
			return fmt.Errorf("%w: %v", ErrDuplicateInput, op)
		}
		seen[op] = struct{}{}
	}

	s.Inputs = append(s.Inputs, cells...)

	return nil
}

// AddOutput appends an output with its data and returns its index.
func (s *Skeleton) AddOutput(out ckbwire.CellOutput, data []byte) int {
	if data == nil {
		data = []byte{}
	}
	s.Outputs = append(s.Outputs, Output{CellOutput: out, Data: data})

	return len(s.Outputs) - 1
}

// InputCapacity returns the total capacity of the inputs.
func (s *Skeleton) InputCapacity() (ckbutil.Capacity, error) {
	return SumCapacity(s.Inputs)
}

// OutputCapacity returns the total capacity of the outputs.
func (s *Skeleton) OutputCapacity() (ckbutil.Capacity, error) {
	var total ckbutil.Capacity
	for i := range s.Outputs {
		var err error
		total, err = total.Add(s.Outputs[i].Capacity)
		if err != nil {
			return 0, err
		}
	}

	return total, nil
}

func (s *Skeleton) capacities() (ckbutil.Capacity, ckbutil.Capacity, error) {
	in, err := s.InputCapacity()
	if err != nil {
		return 0, 0, err
	}
	out, err := s.OutputCapacity()
	if err != nil {
		return 0, 0, err
	}

	return in, out, nil
}

// Fee returns the capacity the transaction leaves to the miner, inputs minus
// outputs.
func (s *Skeleton) Fee() (ckbutil.Capacity, error) {
	in, out, err := s.capacities()
	if err != nil {
		return 0, err
	}

	fee, ok := in.SafeSub(out)
	if !ok {
		return 0, fmt.Errorf("%w: inputs %v, outputs %v",
			ErrOutputsExceedInputs, in, out)
	}

	return fee, nil
}

// CapacityRequired returns how much capacity still has to be collected so
// the inputs cover the outputs, the fee and a change reserve. Zero means the
// current inputs already suffice.
func (s *Skeleton) CapacityRequired(fee,
	changeReserve ckbutil.Capacity) (ckbutil.Capacity, error) {

	in, out, err := s.capacities()
	if err != nil {
		return 0, err
	}

	return CapacityRequired(in, out, fee, changeReserve)
}

// CapacityRequired returns outputs + fee + changeReserve - inputs, or zero
// when the inputs already cover it.
func CapacityRequired(inputs, outputs, fee,
	changeReserve ckbutil.Capacity) (ckbutil.Capacity, error) {

	needed, err := ckbutil.SumCapacities(outputs, fee, changeReserve)
	if err != nil {
		return 0, err
	}

	required, ok := needed.SafeSub(inputs)
	if !ok {
		return 0, nil
	}

	return required, nil
}

// CalculateChange returns the capacity left after the outputs and the fee
// are paid from the inputs.
func (s *Skeleton) CalculateChange(fee ckbutil.Capacity) (ckbutil.Capacity,
	error) {

	in, out, err := s.capacities()
	if err != nil {
		return 0, err
	}

	needed, err := out.Add(fee)
	if err != nil {
		return 0, err
	}

	change, ok := in.SafeSub(needed)
	if !ok {
		return 0, &ErrInsufficientCapacity{
			Required:  needed,
			Available: in,
		}
	}

	return change, nil
}

// AddChange appends a plain change cell for lock holding everything the
// inputs provide beyond the outputs and fee. It returns the index of the
// change output and its capacity. The change must at least cover the cell's
// own occupied capacity.
func (s *Skeleton) AddChange(lock *ckbwire.Script,
	fee ckbutil.Capacity) (int, ckbutil.Capacity, error) {

	change, err := s.CalculateChange(fee)
	if err != nil {
		return 0, 0, err
	}

	minimum := PlainCellCapacity(lock)
	if change < minimum {
		return 0, 0, &ErrChangeBelowMinimum{
			Change:  change,
			Minimum: minimum,
		}
	}

	idx := s.AddOutput(ckbwire.CellOutput{
		Capacity: change,
		Lock:     *lock.Copy(),
	}, nil)

	log.Debugf("Added change output %d with %v", idx, change)

	return idx, change, nil
}

// Build assembles the wire transaction. Inputs are spent with a zero since.
func (s *Skeleton) Build() *ckbwire.Transaction {
	tx := &ckbwire.Transaction{
		CellDeps:    append([]ckbwire.CellDep{}, s.CellDeps...),
		HeaderDeps:  append([]ckbhash.Hash{}, s.HeaderDeps...),
		Inputs:      make([]ckbwire.CellInput, len(s.Inputs)),
		Outputs:     make([]ckbwire.CellOutput, len(s.Outputs)),
		OutputsData: make([][]byte, len(s.Outputs)),
		Witnesses:   make([][]byte, len(s.Witnesses)),
	}

	for i := range s.Inputs {
		tx.Inputs[i] = ckbwire.CellInput{
			PreviousOutput: s.Inputs[i].OutPoint,
		}
	}
	for i := range s.Outputs {
		tx.Outputs[i] = s.Outputs[i].CellOutput
		tx.OutputsData[i] = s.Outputs[i].Data
	}
	copy(tx.Witnesses, s.Witnesses)

	return tx
}

// TxHash returns the hash the built transaction will have. Witnesses do not
// affect it.
func (s *Skeleton) TxHash() ckbhash.Hash {
	return s.Build().Hash()
}

// ValidateCapacity checks that every output holds at least its occupied
// capacity and that the inputs cover the outputs.
func (s *Skeleton) ValidateCapacity() error {
	if len(s.Inputs) == 0 {
		return ErrNoInputs
	}

	for i := range s.Outputs {
		occupied := s.Outputs[i].OccupiedCapacity()
		if s.Outputs[i].Capacity < occupied {
			return &ErrUnderfundedOutput{
				Index:    i,
				Capacity: s.Outputs[i].Capacity,
				Occupied: occupied,
			}
		}
	}

	_, err := s.Fee()

	return err
}

// Copy returns a deep copy of the skeleton.
func (s *Skeleton) Copy() *Skeleton {
	cp := &Skeleton{
		CellDeps:   append([]ckbwire.CellDep(nil), s.CellDeps...),
		HeaderDeps: append([]ckbhash.Hash(nil), s.HeaderDeps...),
		Inputs:     make([]Cell, len(s.Inputs)),
		Outputs:    make([]Output, len(s.Outputs)),
		Witnesses:  make([][]byte, len(s.Witnesses)),
	}

	for i, in := range s.Inputs {
		cp.Inputs[i] = Cell{
			OutPoint: in.OutPoint,
			Output:   copyOutput(in.Output),
			Data:     append([]byte(nil), in.Data...),
		}
	}
	for i, out := range s.Outputs {
		cp.Outputs[i] = Output{
			CellOutput: copyOutput(out.CellOutput),
			Data:       append([]byte{}, out.Data...),
		}
	}
	for i, w := range s.Witnesses {
		cp.Witnesses[i] = append([]byte{}, w...)
	}

	return cp
}

func copyOutput(out ckbwire.CellOutput) ckbwire.CellOutput {
	return ckbwire.CellOutput{
		Capacity: out.Capacity,
		Lock:     *out.Lock.Copy(),
		Type:     out.Type.Copy(),
	}
}
