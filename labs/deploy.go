package labs

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
	"github.com/ckb-labs/ckblab/deploystore"
	"github.com/ckb-labs/ckblab/txbuilder"
	"github.com/ckb-labs/ckblab/udt"
)

// ErrEmptyBinary is returned when deploying no code.
var ErrEmptyBinary = errors.New("binary is empty")

// Binary is script code to deploy.
type Binary struct {
	// Name identifies the deployment in the store.
	Name string

	// Code is the RISC-V binary.
	Code []byte
}

// ReadBinary loads a binary from a file.
func ReadBinary(name, path string) (*Binary, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s binary: %w", name, err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyBinary)
	}

	return &Binary{Name: name, Code: code}, nil
}

// DataHash returns the code hash scripts use to run the binary with a data
// hash type.
func (b *Binary) DataHash() ckbhash.Hash {
	return udt.CodeHash(b.Code)
}

// CodeCellCapacity returns the capacity of a code cell holding n bytes
// under the default lock: a plain cell plus one CKByte per byte.
func CodeCellCapacity(lock *ckbwire.Script, n int) ckbutil.Capacity {
	return txbuilder.PlainCellCapacity(lock) + ckbutil.CKBytes(uint64(n))
}

// codeOutput returns a code cell for b owned by lock.
func codeOutput(b *Binary, lock *ckbwire.Script) (ckbwire.CellOutput,
	[]byte) {

	return ckbwire.CellOutput{
		Capacity: CodeCellCapacity(lock, len(b.Code)),
		Lock:     *lock.Copy(),
	}, b.Code
}

// deployment describes output idx of tx hash holding b.
func deployment(b *Binary, hash ckbhash.Hash, idx int) *deploystore.Deployment {
	return &deploystore.Deployment{
		Name:     b.Name,
		OutPoint: ckbwire.OutPoint{TxHash: hash, Index: uint32(idx)},
		DataHash: b.DataHash(),
		Size:     uint64(len(b.Code)),
	}
}

// record stores deployments when the env has a store.
func (e *Env) record(deployments ...*deploystore.Deployment) error {
	if e.Store == nil {
		return nil
	}

	for _, d := range deployments {
		if err := e.Store.Put(e.Params.Name, d); err != nil {
			return err
		}
	}

	return nil
}

// DeployCode creates a code cell for b at output 0, owned and paid for by
// owner.
func DeployCode(ctx context.Context, env *Env, b *Binary,
	owner *Account) (*deploystore.Deployment, error) {

	if len(b.Code) == 0 {
		return nil, ErrEmptyBinary
	}

	lock := env.lock(owner)

	s := env.newSkeleton()
	s.AddOutput(codeOutput(b, lock))
	if err := env.fund(ctx, s, lock); err != nil {
		return nil, err
	}

	hash, err := env.finish(ctx, s, "Deploy "+b.Name)
	if err != nil {
		return nil, err
	}

	d := deployment(b, hash, 0)
	if err := env.record(d); err != nil {
		return nil, err
	}

	return d, nil
}
