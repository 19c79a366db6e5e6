package chainparams

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ckb-labs/ckblab/address"
	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
)

// ScriptConfig is one entry of a Lumos style config.json.
type ScriptConfig struct {
	CodeHash string `json:"CODE_HASH"`
	HashType string `json:"HASH_TYPE"`
	TxHash   string `json:"TX_HASH"`
	Index    string `json:"INDEX"`
	DepType  string `json:"DEP_TYPE"`
}

// ScriptsConfig is the Lumos style config.json produced when a dev chain is
// initialised.
type ScriptsConfig struct {
	Prefix  string                  `json:"PREFIX"`
	Scripts map[string]ScriptConfig `json:"SCRIPTS"`
}

// Names of the scripts the labs use.
const (
	ScriptSecp256k1Blake160 = "SECP256K1_BLAKE160"
	ScriptSecp256k1Multisig = "SECP256K1_BLAKE160_MULTISIG"
	ScriptSUDT              = "SUDT"
	ScriptXUDT              = "XUDT"
)

func (c *ScriptConfig) toSystemScript() (*SystemScript, error) {
	codeHash, err := ckbhash.NewHashFromStr(c.CodeHash)
	if err != nil {
		return nil, fmt.Errorf("code hash: %w", err)
	}

	hashType, err := ckbwire.ParseHashType(c.HashType)
	if err != nil {
		return nil, err
	}

	txHash, err := ckbhash.NewHashFromStr(c.TxHash)
	if err != nil {
		return nil, fmt.Errorf("tx hash: %w", err)
	}

	var index ckbutil.HexUint64
	if err := index.UnmarshalText([]byte(c.Index)); err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}

	depType, err := ckbwire.ParseDepType(c.DepType)
	if err != nil {
		return nil, err
	}

	return &SystemScript{
		CodeHash: *codeHash,
		HashType: hashType,
		Dep: ckbwire.CellDep{
			OutPoint: ckbwire.OutPoint{
				TxHash: *txHash,
				Index:  uint32(index),
			},
			DepType: depType,
		},
	}, nil
}

// Apply overrides the params with the scripts found in the config and
// returns the result. base is left untouched.
func (c *ScriptsConfig) Apply(base *Params) (*Params, error) {
	p := base.Copy()

	if c.Prefix != "" {
		p.AddressPrefix = address.Network(c.Prefix)
	}

	for name, sc := range c.Scripts {
		sc := sc
		script, err := sc.toSystemScript()
		if err != nil {
			return nil, fmt.Errorf("script %s: %w", name, err)
		}

		switch name {
		case ScriptSecp256k1Blake160:
			p.Secp256k1Blake160 = *script
		case ScriptSecp256k1Multisig:
			p.Secp256k1Multisig = script
		case ScriptSUDT:
			p.SUDT = script
		case ScriptXUDT:
			p.XUDT = script
		}
	}

	return p, nil
}

// LoadScriptsConfig reads a config.json file and applies it to base.
func LoadScriptsConfig(path string, base *Params) (*Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read scripts config: %w", err)
	}

	var cfg ScriptsConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("unable to parse scripts config %s: %w",
			path, err)
	}

	return cfg.Apply(base)
}
