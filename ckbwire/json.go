package ckbwire

import (
	"encoding/json"

	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbutil"
)

// The node RPC encodes numbers as 0x prefixed hex quantities and byte
// strings as 0x prefixed hex. The json* types below mirror that layout.

type jsonScript struct {
	CodeHash ckbhash.Hash     `json:"code_hash"`
	HashType HashType         `json:"hash_type"`
	Args     ckbutil.HexBytes `json:"args"`
}

// MarshalJSON implements json.Marshaler.
func (s Script) MarshalJSON() ([]byte, error) {
	args := s.Args
	if args == nil {
		args = []byte{}
	}

	return json.Marshal(jsonScript{
		CodeHash: s.CodeHash,
		HashType: s.HashType,
		Args:     args,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Script) UnmarshalJSON(b []byte) error {
	var js jsonScript
	if err := json.Unmarshal(b, &js); err != nil {
		return err
	}

	*s = Script{CodeHash: js.CodeHash, HashType: js.HashType, Args: js.Args}

	return nil
}

type jsonOutPoint struct {
	TxHash ckbhash.Hash      `json:"tx_hash"`
	Index  ckbutil.HexUint64 `json:"index"`
}

// MarshalJSON implements json.Marshaler.
func (o OutPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonOutPoint{
		TxHash: o.TxHash,
		Index:  ckbutil.HexUint64(o.Index),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OutPoint) UnmarshalJSON(b []byte) error {
	var jo jsonOutPoint
	if err := json.Unmarshal(b, &jo); err != nil {
		return err
	}

	*o = OutPoint{TxHash: jo.TxHash, Index: uint32(jo.Index)}

	return nil
}

type jsonCellInput struct {
	Since          ckbutil.HexUint64 `json:"since"`
	PreviousOutput OutPoint          `json:"previous_output"`
}

// MarshalJSON implements json.Marshaler.
func (c CellInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonCellInput{
		Since:          ckbutil.HexUint64(c.Since),
		PreviousOutput: c.PreviousOutput,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *CellInput) UnmarshalJSON(b []byte) error {
	var jc jsonCellInput
	if err := json.Unmarshal(b, &jc); err != nil {
		return err
	}

	*c = CellInput{Since: uint64(jc.Since), PreviousOutput: jc.PreviousOutput}

	return nil
}

type jsonCellOutput struct {
	Capacity ckbutil.HexUint64 `json:"capacity"`
	Lock     Script            `json:"lock"`
	Type     *Script           `json:"type"`
}

// MarshalJSON implements json.Marshaler.
func (c CellOutput) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonCellOutput{
		Capacity: ckbutil.HexUint64(c.Capacity),
		Lock:     c.Lock,
		Type:     c.Type,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *CellOutput) UnmarshalJSON(b []byte) error {
	var jc jsonCellOutput
	if err := json.Unmarshal(b, &jc); err != nil {
		return err
	}

	*c = CellOutput{
		Capacity: ckbutil.Capacity(jc.Capacity),
		Lock:     jc.Lock,
		Type:     jc.Type,
	}

	return nil
}

type jsonCellDep struct {
	OutPoint OutPoint `json:"out_point"`
	DepType  DepType  `json:"dep_type"`
}

// MarshalJSON implements json.Marshaler.
func (c CellDep) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonCellDep{OutPoint: c.OutPoint, DepType: c.DepType})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *CellDep) UnmarshalJSON(b []byte) error {
	var jc jsonCellDep
	if err := json.Unmarshal(b, &jc); err != nil {
		return err
	}

	*c = CellDep{OutPoint: jc.OutPoint, DepType: jc.DepType}

	return nil
}

type jsonTransaction struct {
	Version     ckbutil.HexUint64  `json:"version"`
	CellDeps    []CellDep          `json:"cell_deps"`
	HeaderDeps  []ckbhash.Hash     `json:"header_deps"`
	Inputs      []CellInput        `json:"inputs"`
	Outputs     []CellOutput       `json:"outputs"`
	OutputsData []ckbutil.HexBytes `json:"outputs_data"`
	Witnesses   []ckbutil.HexBytes `json:"witnesses"`
}

// MarshalJSON implements json.Marshaler. Empty slices are encoded as empty
// arrays, which the node requires.
func (tx Transaction) MarshalJSON() ([]byte, error) {
	jt := jsonTransaction{
		Version:     ckbutil.HexUint64(tx.Version),
		CellDeps:    tx.CellDeps,
		HeaderDeps:  tx.HeaderDeps,
		Inputs:      tx.Inputs,
		Outputs:     tx.Outputs,
		OutputsData: make([]ckbutil.HexBytes, len(tx.OutputsData)),
		Witnesses:   make([]ckbutil.HexBytes, len(tx.Witnesses)),
	}
	if jt.CellDeps == nil {
		jt.CellDeps = []CellDep{}
	}
	if jt.HeaderDeps == nil {
		jt.HeaderDeps = []ckbhash.Hash{}
	}
	if jt.Inputs == nil {
		jt.Inputs = []CellInput{}
	}
	if jt.Outputs == nil {
		jt.Outputs = []CellOutput{}
	}
	for i, data := range tx.OutputsData {
		jt.OutputsData[i] = ckbutil.HexBytes(data)
	}
	for i, w := range tx.Witnesses {
		jt.Witnesses[i] = ckbutil.HexBytes(w)
	}

	return json.Marshal(jt)
}

// UnmarshalJSON implements json.Unmarshaler.
func (tx *Transaction) UnmarshalJSON(b []byte) error {
	var jt jsonTransaction
	if err := json.Unmarshal(b, &jt); err != nil {
		return err
	}

	*tx = Transaction{
		Version:     uint32(jt.Version),
		CellDeps:    jt.CellDeps,
		HeaderDeps:  jt.HeaderDeps,
		Inputs:      jt.Inputs,
		Outputs:     jt.Outputs,
		OutputsData: make([][]byte, len(jt.OutputsData)),
		Witnesses:   make([][]byte, len(jt.Witnesses)),
	}
	for i, data := range jt.OutputsData {
		tx.OutputsData[i] = data
	}
	for i, w := range jt.Witnesses {
		tx.Witnesses[i] = w
	}

	return nil
}
