// Package chainparams defines the system scripts and address prefixes of the
// CKB networks the labs run against.
package chainparams

import (
	"errors"
	"fmt"

	"github.com/ckb-labs/ckblab/address"
	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbwire"
)

// SystemScript is a script deployed on chain together with the cell dep
// needed to run it.
type SystemScript struct {
	CodeHash ckbhash.Hash
	HashType ckbwire.HashType
	Dep      ckbwire.CellDep
}

// Script returns the script with the given args.
func (s *SystemScript) Script(args []byte) *ckbwire.Script {
	a := make([]byte, len(args))
	copy(a, args)

	return &ckbwire.Script{CodeHash: s.CodeHash, HashType: s.HashType, Args: a}
}

// Matches reports whether a script runs this system script's code.
func (s *SystemScript) Matches(script *ckbwire.Script) bool {
	return script != nil && script.CodeHash == s.CodeHash &&
		script.HashType == s.HashType
}

// Params describes a network.
type Params struct {
	// Name is the network name used in config files and on the command
	// line.
	Name string

	// AddressPrefix is the human readable part of addresses.
	AddressPrefix address.Network

	// Secp256k1Blake160 is the default lock.
	Secp256k1Blake160 SystemScript

	// Secp256k1Multisig is the multisig lock, if deployed.
	Secp256k1Multisig *SystemScript

	// SUDT is the simple user defined token type script, if deployed.
	SUDT *SystemScript

	// XUDT is the extensible user defined token type script, if
	// deployed.
	XUDT *SystemScript
}

// DefaultLock returns the secp256k1_blake160 lock with the given args.
func (p *Params) DefaultLock(args []byte) *ckbwire.Script {
	return p.Secp256k1Blake160.Script(args)
}

// Validate checks the params are usable for building transactions.
func (p *Params) Validate() error {
	if p.Secp256k1Blake160.CodeHash.IsZero() {
		return fmt.Errorf("%s: secp256k1_blake160 code hash not set",
			p.Name)
	}
	if p.Secp256k1Blake160.Dep.OutPoint.TxHash.IsZero() {
		return fmt.Errorf("%s: secp256k1_blake160 cell dep not set, "+
			"load a scripts config", p.Name)
	}
	if p.AddressPrefix != address.Mainnet &&
		p.AddressPrefix != address.Testnet {

		return fmt.Errorf("%s: unknown address prefix %q", p.Name,
			p.AddressPrefix)
	}

	return nil
}

// Copy returns a deep copy of the params so overrides do not leak into the
// package level values.
func (p *Params) Copy() *Params {
	cp := *p
	if p.Secp256k1Multisig != nil {
		s := *p.Secp256k1Multisig
		cp.Secp256k1Multisig = &s
	}
	if p.SUDT != nil {
		s := *p.SUDT
		cp.SUDT = &s
	}
	if p.XUDT != nil {
		s := *p.XUDT
		cp.XUDT = &s
	}

	return &cp
}

var secp256k1Blake160CodeHash = ckbhash.MustHashFromStr(
	"0x9bd7e06f3ecf4be0f2fcd2188b23f1b9fcc88e5d4b65a8637b17723bbda3cce8",
)

var secp256k1MultisigCodeHash = ckbhash.MustHashFromStr(
	"0x5c5069eb0857efc65e1bca0c07df34c31663b3622fd3876c876320fc9634e2a8",
)

func depGroup(txHash string, index uint32) ckbwire.CellDep {
	return ckbwire.CellDep{
		OutPoint: ckbwire.OutPoint{
			TxHash: ckbhash.MustHashFromStr(txHash),
			Index:  index,
		},
		DepType: ckbwire.DepTypeDepGroup,
	}
}

func codeDep(txHash string, index uint32) ckbwire.CellDep {
	return ckbwire.CellDep{
		OutPoint: ckbwire.OutPoint{
			TxHash: ckbhash.MustHashFromStr(txHash),
			Index:  index,
		},
		DepType: ckbwire.DepTypeCode,
	}
}

// MainnetParams are the parameters of the Lina mainnet.
var MainnetParams = Params{
	Name:          "mainnet",
	AddressPrefix: address.Mainnet,
	Secp256k1Blake160: SystemScript{
		CodeHash: secp256k1Blake160CodeHash,
		HashType: ckbwire.HashTypeType,
		Dep: depGroup(
			"0x71a7ba8fc96349fea0ed3a5c47992e3b4084b031a42264a018e0072e8172e46c",
			0,
		),
	},
	Secp256k1Multisig: &SystemScript{
		CodeHash: secp256k1MultisigCodeHash,
		HashType: ckbwire.HashTypeType,
		Dep: depGroup(
			"0x71a7ba8fc96349fea0ed3a5c47992e3b4084b031a42264a018e0072e8172e46c",
			1,
		),
	},
	SUDT: &SystemScript{
		CodeHash: ckbhash.MustHashFromStr(
			"0x5e7a36a77e68eecc013dfa2fe6a23f3b6c344b04005808694ae6dd45eea4cfd5",
		),
		HashType: ckbwire.HashTypeType,
		Dep: codeDep(
			"0xc7813f6a415144643970c2e88e0bb6ca6a8edc5dd7c1022746f628284a9936d5",
			0,
		),
	},
	XUDT: &SystemScript{
		CodeHash: ckbhash.MustHashFromStr(
			"0x50bd8d6680b8b9cf98b73f3c08faf8b2a21914311954118ad6609be6e78a1b95",
		),
		HashType: ckbwire.HashTypeData1,
		Dep: codeDep(
			"0xc07844ce21b38e4b071dd0e1ee3b0e27afd8d7532491327f39b786343f558ab7",
			0,
		),
	},
}

// TestnetParams are the parameters of the Pudge testnet.
var TestnetParams = Params{
	Name:          "testnet",
	AddressPrefix: address.Testnet,
	Secp256k1Blake160: SystemScript{
		CodeHash: secp256k1Blake160CodeHash,
		HashType: ckbwire.HashTypeType,
		Dep: depGroup(
			"0xf8de3bb47d055cdf460d93a2a6e1b05f7432f9777c8c474abf4eec1d4aee5d37",
			0,
		),
	},
	Secp256k1Multisig: &SystemScript{
		CodeHash: secp256k1MultisigCodeHash,
		HashType: ckbwire.HashTypeType,
		Dep: depGroup(
			"0xf8de3bb47d055cdf460d93a2a6e1b05f7432f9777c8c474abf4eec1d4aee5d37",
			1,
		),
	},
	SUDT: &SystemScript{
		CodeHash: ckbhash.MustHashFromStr(
			"0xc5e5dcf215925f7ef4dfaf5f4b4f105bc321c02776d6e7d52a1db3fcd9d011a4",
		),
		HashType: ckbwire.HashTypeType,
		Dep: codeDep(
			"0xe12877ebd2c3c364dc46c5c992bcfaf4fee33fa13eebdf82c591fc9825aab769",
			0,
		),
	},
	XUDT: &SystemScript{
		CodeHash: ckbhash.MustHashFromStr(
			"0x25c29dc317811a6f6f3985a7a9ebc4838bd388d19d0feeecf0bcd60f6c0975bb",
		),
		HashType: ckbwire.HashTypeType,
		Dep: codeDep(
			"0xbf6fb538763efec2a70a6a3dcb7242787087e1030c4e7d86585bc63a9d337f5f",
			0,
		),
	},
}

// DevnetParams are the parameters of a local development chain. The genesis
// out points differ per chain, so the cell dep has to be supplied by a
// scripts config file.
var DevnetParams = Params{
	Name:          "devnet",
	AddressPrefix: address.Testnet,
	Secp256k1Blake160: SystemScript{
		CodeHash: secp256k1Blake160CodeHash,
		HashType: ckbwire.HashTypeType,
	},
}

// ErrNoGenesisDepGroup is returned when a genesis block has too few
// transactions to hold the system dep groups.
var ErrNoGenesisDepGroup = errors.New("genesis block has no dep group " +
	"transaction")

// GenesisDepGroup returns the secp256k1_blake160 dep group of a chain
// initialised from the default chain spec: output 0 of the second genesis
// transaction.
func GenesisDepGroup(genesisTxHashes []ckbhash.Hash) (ckbwire.CellDep,
	error) {

	if len(genesisTxHashes) < 2 {
		return ckbwire.CellDep{}, ErrNoGenesisDepGroup
	}

	return ckbwire.CellDep{
		OutPoint: ckbwire.OutPoint{TxHash: genesisTxHashes[1]},
		DepType:  ckbwire.DepTypeDepGroup,
	}, nil
}

// ParamsForNetwork returns a copy of the params of a named network.
func ParamsForNetwork(name string) (*Params, error) {
	switch name {
	case MainnetParams.Name:
		return MainnetParams.Copy(), nil
	case TestnetParams.Name:
		return TestnetParams.Copy(), nil
	case DevnetParams.Name:
		return DevnetParams.Copy(), nil
	default:
		return nil, fmt.Errorf("unknown network %q", name)
	}
}
