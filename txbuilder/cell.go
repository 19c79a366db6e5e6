package txbuilder

import (
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
)

// Cell is a live cell resolved from the chain: where it is, what it holds.
type Cell struct {
	OutPoint ckbwire.OutPoint
	Output   ckbwire.CellOutput
	Data     []byte
}

// Capacity returns the capacity of the cell.
func (c *Cell) Capacity() ckbutil.Capacity {
	return c.Output.Capacity
}

// IsPlain reports whether the cell only stores capacity: no type script and
// no data. Only plain cells are spent to pay for outputs and fees.
func (c *Cell) IsPlain() bool {
	return c.Output.Type == nil && len(c.Data) == 0
}

// HasType reports whether the cell carries exactly the given type script.
func (c *Cell) HasType(typeScript *ckbwire.Script) bool {
	return c.Output.Type != nil && c.Output.Type.Equals(typeScript)
}

// Output is a cell being created together with its data.
type Output struct {
	ckbwire.CellOutput
	Data []byte
}

// OccupiedCapacity returns the minimum capacity of the output.
func (o *Output) OccupiedCapacity() ckbutil.Capacity {
	return o.CellOutput.OccupiedCapacity(o.Data)
}

// SumCapacity adds up the capacity of cells.
func SumCapacity(cells []Cell) (ckbutil.Capacity, error) {
	var total ckbutil.Capacity
	for i := range cells {
		var err error
		total, err = total.Add(cells[i].Capacity())
		if err != nil {
			return 0, err
		}
	}

	return total, nil
}

// PlainCellCapacity is the occupied capacity of a cell locked by the given
// lock that carries no type and no data. For the default lock this is 61
// CKBytes, the minimum any change cell needs.
func PlainCellCapacity(lock *ckbwire.Script) ckbutil.Capacity {
	out := ckbwire.CellOutput{Lock: *lock}

	return out.OccupiedCapacity(nil)
}
