package ckbwire

import (
	"bytes"
	"fmt"

	"github.com/ckb-labs/ckblab/ckbhash"
)

// HashType tells the VM how to locate the code referenced by a script's
// code hash.
type HashType byte

const (
	// HashTypeData matches the data hash of a cell dep and runs it in
	// the first VM version.
	HashTypeData HashType = 0

	// HashTypeType matches the type script hash of a cell dep.
	HashTypeType HashType = 1

	// HashTypeData1 matches the data hash of a cell dep and runs it in
	// VM version 1.
	HashTypeData1 HashType = 2

	// HashTypeData2 matches the data hash of a cell dep and runs it in
	// VM version 2.
	HashTypeData2 HashType = 4
)

// String returns the name the node RPC uses for the hash type.
func (h HashType) String() string {
	switch h {
	case HashTypeData:
		return "data"
	case HashTypeType:
		return "type"
	case HashTypeData1:
		return "data1"
	case HashTypeData2:
		return "data2"
	default:
		return fmt.Sprintf("unknown(%d)", byte(h))
	}
}

// ParseHashType parses the RPC name of a hash type.
func ParseHashType(s string) (HashType, error) {
	switch s {
	case "data":
		return HashTypeData, nil
	case "type":
		return HashTypeType, nil
	case "data1":
		return HashTypeData1, nil
	case "data2":
		return HashTypeData2, nil
	default:
		return 0, fmt.Errorf("unknown hash type %q", s)
	}
}

// IsValid returns true for the hash types known to the node.
func (h HashType) IsValid() bool {
	switch h {
	case HashTypeData, HashTypeType, HashTypeData1, HashTypeData2:
		return true
	}

	return false
}

// MarshalText implements encoding.TextMarshaler.
func (h HashType) MarshalText() ([]byte, error) {
	if !h.IsValid() {
		return nil, fmt.Errorf("unknown hash type %d", byte(h))
	}

	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *HashType) UnmarshalText(text []byte) error {
	parsed, err := ParseHashType(string(text))
	if err != nil {
		return err
	}
	*h = parsed

	return nil
}

// Script is a lock or type script: a reference to on-chain code plus the
// arguments it runs with.
type Script struct {
	CodeHash ckbhash.Hash
	HashType HashType
	Args     []byte
}

// Serialize returns the molecule encoding of the script.
func (s *Script) Serialize() []byte {
	return serializeTable(
		s.CodeHash[:],
		[]byte{byte(s.HashType)},
		serializeBytes(s.Args),
	)
}

// Hash returns the script hash, the blake2b hash of its serialization. Lock
// hashes identify owners and group inputs for signing.
func (s *Script) Hash() ckbhash.Hash {
	return ckbhash.Blake2b256(s.Serialize())
}

// Equals reports whether both scripts are identical. Two nil scripts are
// equal.
func (s *Script) Equals(other *Script) bool {
	if s == nil || other == nil {
		return s == nil && other == nil
	}

	return s.CodeHash == other.CodeHash &&
		s.HashType == other.HashType &&
		bytes.Equal(s.Args, other.Args)
}

// OccupiedCapacity returns the number of bytes the script takes up inside a
// cell: code hash, hash type and args.
func (s *Script) OccupiedCapacity() uint64 {
	return ckbhash.HashSize + 1 + uint64(len(s.Args))
}

// Copy returns a deep copy of the script.
func (s *Script) Copy() *Script {
	if s == nil {
		return nil
	}

	args := make([]byte, len(s.Args))
	copy(args, s.Args)

	return &Script{CodeHash: s.CodeHash, HashType: s.HashType, Args: args}
}

// DeserializeScript decodes a molecule encoded script.
func DeserializeScript(b []byte) (*Script, error) {
	fields, err := deserializeTable(b, 3)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	if len(fields[0]) != ckbhash.HashSize || len(fields[1]) != 1 {
		return nil, fmt.Errorf("script: %w: bad field sizes",
			ErrMoleculeHeader)
	}

	args, err := deserializeBytes(fields[2])
	if err != nil {
		return nil, fmt.Errorf("script args: %w", err)
	}

	s := &Script{HashType: HashType(fields[1][0]), Args: args}
	copy(s.CodeHash[:], fields[0])

	return s, nil
}

// serializeScriptOpt encodes an optional script, which is empty when absent.
func serializeScriptOpt(s *Script) []byte {
	if s == nil {
		return nil
	}

	return s.Serialize()
}

// SerializeScriptVec encodes a dynvec of scripts, as used by xUDT extension
// args.
func SerializeScriptVec(scripts []*Script) []byte {
	items := make([][]byte, len(scripts))
	for i, s := range scripts {
		items[i] = s.Serialize()
	}

	return serializeDynVec(items)
}

// DeserializeScriptVec decodes a dynvec of scripts.
func DeserializeScriptVec(b []byte) ([]*Script, error) {
	items, err := deserializeDynVec(b)
	if err != nil {
		return nil, fmt.Errorf("script vec: %w", err)
	}

	scripts := make([]*Script, len(items))
	for i, item := range items {
		scripts[i], err = DeserializeScript(item)
		if err != nil {
			return nil, err
		}
	}

	return scripts, nil
}
