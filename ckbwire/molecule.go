package ckbwire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Molecule is the serialization format CKB uses for every hashed structure.
// Only the handful of layouts needed by transactions are implemented here:
// fixed structs, fixvec, dynvec, tables and options.

const numberSize = 4

var (
	// ErrMoleculeTruncated is returned when a buffer is shorter than the
	// sizes it declares.
	ErrMoleculeTruncated = errors.New("molecule: truncated data")

	// ErrMoleculeHeader is returned when a table or dynvec header is
	// inconsistent.
	ErrMoleculeHeader = errors.New("molecule: invalid header")
)

func packNumber(n int) []byte {
	b := make([]byte, numberSize)
	binary.LittleEndian.PutUint32(b, uint32(n))

	return b
}

func unpackNumber(b []byte) (int, error) {
	if len(b) < numberSize {
		return 0, ErrMoleculeTruncated
	}

	return int(binary.LittleEndian.Uint32(b)), nil
}

// serializeBytes encodes a fixvec of bytes.
func serializeBytes(b []byte) []byte {
	out := make([]byte, 0, numberSize+len(b))
	out = append(out, packNumber(len(b))...)

	return append(out, b...)
}

// deserializeBytes decodes a fixvec of bytes and checks it spans the whole
// buffer.
func deserializeBytes(b []byte) ([]byte, error) {
	n, err := unpackNumber(b)
	if err != nil {
		return nil, err
	}
	if len(b) != numberSize+n {
		return nil, fmt.Errorf("%w: bytes length %d, buffer %d",
			ErrMoleculeTruncated, n, len(b)-numberSize)
	}

	out := make([]byte, n)
	copy(out, b[numberSize:])

	return out, nil
}

// serializeFixVec encodes a vector of fixed size items.
func serializeFixVec(items [][]byte) []byte {
	out := packNumber(len(items))
	for _, item := range items {
		out = append(out, item...)
	}

	return out
}

// serializeDynVec encodes a vector of variable size items. Tables use the
// same layout with a fixed number of fields.
func serializeDynVec(items [][]byte) []byte {
	headerSize := numberSize * (1 + len(items))

	total := headerSize
	for _, item := range items {
		total += len(item)
	}

	out := make([]byte, 0, total)
	out = append(out, packNumber(total)...)

	offset := headerSize
	for _, item := range items {
		out = append(out, packNumber(offset)...)
		offset += len(item)
	}
	for _, item := range items {
		out = append(out, item...)
	}

	return out
}

// serializeTable encodes a table from its serialized fields.
func serializeTable(fields ...[]byte) []byte {
	return serializeDynVec(fields)
}

// deserializeDynVec splits a dynvec or table into its items.
func deserializeDynVec(b []byte) ([][]byte, error) {
	total, err := unpackNumber(b)
	if err != nil {
		return nil, err
	}
	if total != len(b) {
		return nil, fmt.Errorf("%w: total size %d, buffer %d",
			ErrMoleculeHeader, total, len(b))
	}
	if total == numberSize {
		return nil, nil
	}

	firstOffset, err := unpackNumber(b[numberSize:])
	if err != nil {
		return nil, err
	}
	if firstOffset%numberSize != 0 || firstOffset < 2*numberSize ||
		firstOffset > total {

		return nil, fmt.Errorf("%w: first offset %d", ErrMoleculeHeader,
			firstOffset)
	}

	count := firstOffset/numberSize - 1
	offsets := make([]int, count+1)
	for i := 0; i < count; i++ {
		offsets[i], err = unpackNumber(b[numberSize*(i+1):])
		if err != nil {
			return nil, err
		}
	}
	offsets[count] = total

	items := make([][]byte, count)
	for i := 0; i < count; i++ {
		start, end := offsets[i], offsets[i+1]
		if start > end || end > total {
			return nil, fmt.Errorf("%w: offsets %d..%d",
				ErrMoleculeHeader, start, end)
		}
		items[i] = b[start:end]
	}

	return items, nil
}

// deserializeTable splits a table and checks it has at least the expected
// number of fields. Extra fields are allowed for forward compatibility.
func deserializeTable(b []byte, fieldCount int) ([][]byte, error) {
	fields, err := deserializeDynVec(b)
	if err != nil {
		return nil, err
	}
	if len(fields) < fieldCount {
		return nil, fmt.Errorf("%w: table has %d fields, want %d",
			ErrMoleculeHeader, len(fields), fieldCount)
	}

	return fields, nil
}
