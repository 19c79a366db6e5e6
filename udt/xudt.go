package udt

import (
	"errors"
	"fmt"

	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
)

// XUDTFlags selects how the xUDT args carry extension scripts.
type XUDTFlags uint32

const (
	// XUDTFlagNone runs no extension scripts.
	XUDTFlagNone XUDTFlags = 0

	// XUDTFlagExtensionScripts stores the extension scripts as a
	// ScriptVec right after the flags.
	XUDTFlagExtensionScripts XUDTFlags = 1

	// XUDTFlagExtensionHash stores the blake160 hash of the extension
	// ScriptVec, the scripts themselves go into the witness.
	XUDTFlagExtensionHash XUDTFlags = 2

	// XUDTFlagOwnerModeByInputType also accepts an input type script
	// hash matching the owner hash as owner mode.
	XUDTFlagOwnerModeByInputType XUDTFlags = 0x80000000

	xudtFlagsSize = 4
)

// ErrInvalidXUDTArgs is returned when xUDT args cannot be parsed.
var ErrInvalidXUDTArgs = errors.New("invalid xUDT args")

// XUDTArgs is the decoded form of an xUDT type script's args.
type XUDTArgs struct {
	OwnerLockHash ckbhash.Hash
	Flags         XUDTFlags

	// Extensions holds the extension scripts when the flags say they
	// are stored in full.
	Extensions []*ckbwire.Script

	// ExtensionHash holds the blake160 of the extension scripts when
	// only their hash is stored.
	ExtensionHash []byte
}

// Encode serializes the args: owner lock hash, u32 LE flags and the
// extension data the flags ask for.
func (a *XUDTArgs) Encode() []byte {
	b := make([]byte, 0, ckbhash.HashSize+xudtFlagsSize)
	b = append(b, a.OwnerLockHash[:]...)

	// Flags are absent when nothing follows them.
	if a.Flags == XUDTFlagNone && len(a.Extensions) == 0 {
		return b
	}
	b = append(b, ckbutil.EncodeU32LE(uint32(a.Flags))...)

	switch {
	case a.Flags&XUDTFlagExtensionScripts != 0:
		b = append(b, ckbwire.SerializeScriptVec(a.Extensions)...)

	case a.Flags&XUDTFlagExtensionHash != 0:
		b = append(b, a.ExtensionHash...)
	}

	return b
}

// ParseXUDTArgs decodes xUDT args.
func ParseXUDTArgs(args []byte) (*XUDTArgs, error) {
	if len(args) < ckbhash.HashSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidXUDTArgs,
			len(args))
	}

	var a XUDTArgs
	copy(a.OwnerLockHash[:], args)

	rest := args[ckbhash.HashSize:]
	if len(rest) == 0 {
		return &a, nil
	}

	flags, err := ckbutil.DecodeU32LE(rest)
	if err != nil {
		return nil, fmt.Errorf("%w: flags: %v", ErrInvalidXUDTArgs, err)
	}
	a.Flags = XUDTFlags(flags)
	rest = rest[xudtFlagsSize:]

	switch {
	case a.Flags&XUDTFlagExtensionScripts != 0:
		a.Extensions, err = ckbwire.DeserializeScriptVec(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidXUDTArgs, err)
		}

	case a.Flags&XUDTFlagExtensionHash != 0:
		if len(rest) != ckbhash.Blake160Size {
			return nil, fmt.Errorf("%w: extension hash of %d bytes",
				ErrInvalidXUDTArgs, len(rest))
		}
		a.ExtensionHash = append([]byte(nil), rest...)
	}

	return &a, nil
}

// XUDTTypeScript returns the xUDT type script with the given args.
func XUDTTypeScript(codeHash ckbhash.Hash, hashType ckbwire.HashType,
	args *XUDTArgs) *ckbwire.Script {

	return &ckbwire.Script{
		CodeHash: codeHash,
		HashType: hashType,
		Args:     args.Encode(),
	}
}
