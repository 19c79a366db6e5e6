package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/ckb-labs/ckblab/address"
	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbwire"
	"github.com/ckb-labs/ckblab/keychain"
	"github.com/ckb-labs/ckblab/labs"
	"github.com/urfave/cli"
)

var lockInfoCommand = cli.Command{
	Name:      "lockinfo",
	Category:  "Keys",
	Usage:     "Show the lock values derived from a private key.",
	ArgsUsage: "[privkey]",
	Description: `
	Derive the public key, lock arg, default lock script, lock hash and
	address of a hex private key. The key is read from the terminal when
	neither the argument nor --privkey is given.`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "privkey",
			Usage: "the hex encoded private key",
		},
		cli.BoolFlag{
			Name:  "json",
			Usage: "print the values as JSON",
		},
	},
	Action: actionDecorator(lockInfo),
}

func lockInfo(ctx *cli.Context) error {
	sess, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	key, err := secretArg(ctx, "privkey", "Private key: ")
	if err != nil {
		return err
	}

	values, err := labs.DeriveLockValues(key, sess.params)
	if err != nil {
		return err
	}

	if ctx.Bool("json") {
		printJSON(values)
		return nil
	}

	_, err = values.WriteTo(os.Stdout)

	return err
}

var decodeAddressCommand = cli.Command{
	Name:      "decodeaddress",
	Category:  "Keys",
	Usage:     "Decode an address into its lock script.",
	ArgsUsage: "address",
	Action:    actionDecorator(decodeAddress),
}

type decodedAddress struct {
	Network     string         `json:"network"`
	Format      string         `json:"format"`
	Lock        ckbwire.Script `json:"lock"`
	LockHash    ckbhash.Hash   `json:"lock_hash"`
	FullAddress string         `json:"full_address"`
}

func decodeAddress(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "decodeaddress")
	}

	addr, err := address.Decode(ctx.Args().First())
	if err != nil {
		return err
	}

	printJSON(&decodedAddress{
		Network:     string(addr.Network),
		Format:      addr.Format.String(),
		Lock:        addr.Script,
		LockHash:    addr.Script.Hash(),
		FullAddress: addr.String(),
	})

	return nil
}

var newMnemonicCommand = cli.Command{
	Name:     "newmnemonic",
	Category: "Keys",
	Usage:    "Create a BIP39 mnemonic and show its first address.",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "passphrase",
			Usage: "an optional BIP39 passphrase",
		},
	},
	Action: actionDecorator(newMnemonic),
}

type derivedKey struct {
	Mnemonic   string `json:"mnemonic,omitempty"`
	Path       string `json:"path"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key,omitempty"`
	LockArg    string `json:"lock_arg"`
	Address    string `json:"address"`
}

func newMnemonic(ctx *cli.Context) error {
	sess, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	mnemonic, err := keychain.NewMnemonic()
	if err != nil {
		return err
	}

	ring, err := keychain.NewHDKeyRingFromMnemonic(
		mnemonic, ctx.String("passphrase"),
	)
	if err != nil {
		return err
	}

	resp, err := describeKey(ring, keychain.KeyLocator{
		Family: keychain.KeyFamilyExternal,
	}, sess, false)
	if err != nil {
		return err
	}
	resp.Mnemonic = mnemonic

	printJSON(resp)

	return nil
}

var deriveKeyCommand = cli.Command{
	Name:      "derivekey",
	Category:  "Keys",
	Usage:     "Derive a key of a mnemonic.",
	ArgsUsage: "[mnemonic]",
	Description: `
	Derive the key at m/44'/309'/0'/family/index of a BIP39 mnemonic. The
	mnemonic is read from the terminal when neither the argument nor
	--mnemonic is given.`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "mnemonic",
			Usage: "the space separated mnemonic words",
		},
		cli.StringFlag{
			Name:  "passphrase",
			Usage: "an optional BIP39 passphrase",
		},
		cli.Uint64Flag{
			Name:  "family",
			Usage: "the key family, 0 for receiving and 1 for change",
		},
		cli.Uint64Flag{
			Name:  "index",
			Usage: "the index of the key within its family",
		},
		cli.BoolFlag{
			Name:  "showprivkey",
			Usage: "also print the private key",
		},
	},
	Action: actionDecorator(deriveKey),
}

func deriveKey(ctx *cli.Context) error {
	sess, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	mnemonic, err := secretArg(ctx, "mnemonic", "Mnemonic: ")
	if err != nil {
		return err
	}

	ring, err := keychain.NewHDKeyRingFromMnemonic(
		mnemonic, ctx.String("passphrase"),
	)
	if err != nil {
		return err
	}

	resp, err := describeKey(ring, keychain.KeyLocator{
		Family: keychain.KeyFamily(ctx.Uint64("family")),
		Index:  uint32(ctx.Uint64("index")),
	}, sess, ctx.Bool("showprivkey"))
	if err != nil {
		return err
	}

	printJSON(resp)

	return nil
}

// describeKey derives the key at loc and its default lock address.
func describeKey(ring *keychain.HDKeyRing, loc keychain.KeyLocator,
	sess *session, withPriv bool) (*derivedKey, error) {

	desc, err := ring.DeriveKey(loc)
	if err != nil {
		return nil, fmt.Errorf("unable to derive %v: %w", loc.Path(), err)
	}

	arg := desc.LockArg()
	addr, err := address.Encode(
		sess.params.DefaultLock(arg[:]), sess.params.AddressPrefix,
	)
	if err != nil {
		return nil, err
	}

	resp := &derivedKey{
		Path: loc.Path(),
		PublicKey: "0x" + hex.EncodeToString(
			desc.PubKey.SerializeCompressed(),
		),
		LockArg: "0x" + hex.EncodeToString(arg[:]),
		Address: addr,
	}

	if withPriv {
		priv, err := ring.DerivePrivKey(keychain.KeyDescriptor{
			KeyLocator: loc,
		})
		if err != nil {
			return nil, err
		}
		resp.PrivateKey = "0x" + hex.EncodeToString(priv.Serialize())
	}

	return resp, nil
}
