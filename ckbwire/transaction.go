package ckbwire

import (
	"encoding/binary"
	"fmt"

	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbutil"
)

// OutPoint references a cell by the transaction that created it and its
// output index.
type OutPoint struct {
	TxHash ckbhash.Hash
	Index  uint32
}

// String returns the out point as txhash:index.
func (o OutPoint) String() string {
	return fmt.Sprintf("%v:%d", o.TxHash, o.Index)
}

// Serialize returns the 36 byte molecule struct of the out point.
func (o *OutPoint) Serialize() []byte {
	b := make([]byte, 0, ckbhash.HashSize+4)
	b = append(b, o.TxHash[:]...)

	return binary.LittleEndian.AppendUint32(b, o.Index)
}

// CellInput spends a live cell. Since encodes an optional relative or
// absolute time lock.
type CellInput struct {
	Since          uint64
	PreviousOutput OutPoint
}

// Serialize returns the 44 byte molecule struct of the input.
func (c *CellInput) Serialize() []byte {
	b := make([]byte, 0, 8+ckbhash.HashSize+4)
	b = binary.LittleEndian.AppendUint64(b, c.Since)

	return append(b, c.PreviousOutput.Serialize()...)
}

// CellOutput describes a new cell. Its data is stored separately in the
// transaction's outputs data.
type CellOutput struct {
	Capacity ckbutil.Capacity
	Lock     Script
	Type     *Script
}

// Serialize returns the molecule table of the output.
func (c *CellOutput) Serialize() []byte {
	return serializeTable(
		binary.LittleEndian.AppendUint64(nil, uint64(c.Capacity)),
		c.Lock.Serialize(),
		serializeScriptOpt(c.Type),
	)
}

// OccupiedCapacity returns the minimum capacity the cell must hold when it
// carries the given data: one CKByte per byte of capacity field, lock,
// optional type and data.
func (c *CellOutput) OccupiedCapacity(data []byte) ckbutil.Capacity {
	size := uint64(8) + c.Lock.OccupiedCapacity() + uint64(len(data))
	if c.Type != nil {
		size += c.Type.OccupiedCapacity()
	}

	return ckbutil.CKBytes(size)
}

// DepType says whether a cell dep points at code directly or at a dep group
// listing several out points.
type DepType byte

const (
	// DepTypeCode references a cell holding script code.
	DepTypeCode DepType = 0

	// DepTypeDepGroup references a cell whose data is a list of out
	// points that are all loaded as deps.
	DepTypeDepGroup DepType = 1
)

// String returns the RPC name of the dep type.
func (d DepType) String() string {
	switch d {
	case DepTypeCode:
		return "code"
	case DepTypeDepGroup:
		return "dep_group"
	default:
		return fmt.Sprintf("unknown(%d)", byte(d))
	}
}

// ParseDepType parses the RPC name of a dep type.
func ParseDepType(s string) (DepType, error) {
	switch s {
	case "code":
		return DepTypeCode, nil
	case "dep_group", "depGroup":
		return DepTypeDepGroup, nil
	default:
		return 0, fmt.Errorf("unknown dep type %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d DepType) MarshalText() ([]byte, error) {
	if d != DepTypeCode && d != DepTypeDepGroup {
		return nil, fmt.Errorf("unknown dep type %d", byte(d))
	}

	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DepType) UnmarshalText(text []byte) error {
	parsed, err := ParseDepType(string(text))
	if err != nil {
		return err
	}
	*d = parsed

	return nil
}

// CellDep makes the code or data of a live cell available to scripts
// without consuming it.
type CellDep struct {
	OutPoint OutPoint
	DepType  DepType
}

// Serialize returns the 37 byte molecule struct of the dep.
func (c *CellDep) Serialize() []byte {
	return append(c.OutPoint.Serialize(), byte(c.DepType))
}

// Transaction is a complete CKB transaction.
type Transaction struct {
	Version     uint32
	CellDeps    []CellDep
	HeaderDeps  []ckbhash.Hash
	Inputs      []CellInput
	Outputs     []CellOutput
	OutputsData [][]byte
	Witnesses   [][]byte
}

// SerializeRaw returns the molecule encoding of the transaction without its
// witnesses. This is what the transaction hash commits to.
func (tx *Transaction) SerializeRaw() []byte {
	cellDeps := make([][]byte, len(tx.CellDeps))
	for i := range tx.CellDeps {
		cellDeps[i] = tx.CellDeps[i].Serialize()
	}

	headerDeps := make([][]byte, len(tx.HeaderDeps))
	for i := range tx.HeaderDeps {
		headerDeps[i] = tx.HeaderDeps[i][:]
	}

	inputs := make([][]byte, len(tx.Inputs))
	for i := range tx.Inputs {
		inputs[i] = tx.Inputs[i].Serialize()
	}

	outputs := make([][]byte, len(tx.Outputs))
	for i := range tx.Outputs {
		outputs[i] = tx.Outputs[i].Serialize()
	}

	outputsData := make([][]byte, len(tx.OutputsData))
	for i, data := range tx.OutputsData {
		outputsData[i] = serializeBytes(data)
	}

	return serializeTable(
		binary.LittleEndian.AppendUint32(nil, tx.Version),
		serializeFixVec(cellDeps),
		serializeFixVec(headerDeps),
		serializeFixVec(inputs),
		serializeDynVec(outputs),
		serializeDynVec(outputsData),
	)
}

// Serialize returns the molecule encoding of the full transaction.
func (tx *Transaction) Serialize() []byte {
	witnesses := make([][]byte, len(tx.Witnesses))
	for i, w := range tx.Witnesses {
		witnesses[i] = serializeBytes(w)
	}

	return serializeTable(tx.SerializeRaw(), serializeDynVec(witnesses))
}

// Hash returns the transaction hash.
func (tx *Transaction) Hash() ckbhash.Hash {
	return ckbhash.Blake2b256(tx.SerializeRaw())
}

// SerializeSize returns the number of bytes the transaction takes up in a
// block, which includes the 4 byte offset of the block's transaction
// vector. Fee rates are charged against this size.
func (tx *Transaction) SerializeSize() int {
	return len(tx.Serialize()) + numberSize
}

// Copy returns a deep copy of the transaction.
func (tx *Transaction) Copy() *Transaction {
	cp := &Transaction{
		Version:     tx.Version,
		CellDeps:    append([]CellDep(nil), tx.CellDeps...),
		HeaderDeps:  append([]ckbhash.Hash(nil), tx.HeaderDeps...),
		Inputs:      append([]CellInput(nil), tx.Inputs...),
		Outputs:     make([]CellOutput, len(tx.Outputs)),
		OutputsData: make([][]byte, len(tx.OutputsData)),
		Witnesses:   make([][]byte, len(tx.Witnesses)),
	}
	for i, out := range tx.Outputs {
		cp.Outputs[i] = CellOutput{
			Capacity: out.Capacity,
			Lock:     *out.Lock.Copy(),
			Type:     out.Type.Copy(),
		}
	}
	for i, data := range tx.OutputsData {
		cp.OutputsData[i] = append([]byte(nil), data...)
	}
	for i, w := range tx.Witnesses {
		cp.Witnesses[i] = append([]byte(nil), w...)
	}

	return cp
}
