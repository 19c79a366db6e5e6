package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ckb-labs/ckblab/address"
	"github.com/ckb-labs/ckblab/chainparams"
	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
	"github.com/ckb-labs/ckblab/describe"
	"github.com/ckb-labs/ckblab/indexer"
	"github.com/ckb-labs/ckblab/keychain"
	"github.com/ckb-labs/ckblab/signer"
	"github.com/ckb-labs/ckblab/txbuilder"
	"github.com/davecgh/go-spew/spew"
	"github.com/urfave/cli"
)

// parseLock decodes an address of the session's network into its lock.
func parseLock(sess *session, addr string) (*ckbwire.Script, error) {
	decoded, err := address.DecodeForNetwork(addr, sess.params.AddressPrefix)
	if err != nil {
		return nil, err
	}

	return &decoded.Script, nil
}

var balanceCommand = cli.Command{
	Name:      "balance",
	Category:  "Cells",
	Usage:     "Show the capacity held by addresses.",
	ArgsUsage: "address...",
	Action:    actionDecorator(balance),
}

type addressBalance struct {
	Address  string `json:"address"`
	Capacity string `json:"capacity"`
	Shannons uint64 `json:"shannons"`
}

func balance(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return cli.ShowCommandHelp(ctx, "balance")
	}

	ctxc, cancel := getContext()
	defer cancel()

	sess, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.connect(ctxc); err != nil {
		return err
	}

	resp := make([]addressBalance, 0, ctx.NArg())
	for _, addr := range ctx.Args() {
		lock, err := parseLock(sess, addr)
		if err != nil {
			return err
		}

		total, err := indexer.Balance(ctxc, sess.chain, lock)
		if err != nil {
			return err
		}

		resp = append(resp, addressBalance{
			Address:  addr,
			Capacity: total.String(),
			Shannons: uint64(total),
		})
	}

	printJSON(resp)

	return nil
}

var listCellsCommand = cli.Command{
	Name:      "listcells",
	Category:  "Cells",
	Usage:     "List the live cells of an address.",
	ArgsUsage: "address",
	Flags: []cli.Flag{
		cli.BoolFlag{
			Name:  "plain",
			Usage: "only list cells without a type script and data",
		},
	},
	Action: actionDecorator(listCells),
}

func listCells(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "listcells")
	}

	ctxc, cancel := getContext()
	defer cancel()

	sess, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.connect(ctxc); err != nil {
		return err
	}

	addr := ctx.Args().First()
	lock, err := parseLock(sess, addr)
	if err != nil {
		return err
	}

	query := &indexer.Query{Lock: lock}
	if ctx.Bool("plain") {
		query = indexer.PlainCells(lock)
	}

	cells, err := indexer.CollectAll(ctxc, sess.chain, query)
	if err != nil {
		return err
	}

	return describe.Cells(
		os.Stdout, "Cells of "+addr, cells, sess.params.AddressPrefix,
	)
}

var transferCommand = cli.Command{
	Name:     "transfer",
	Category: "Cells",
	Usage:    "Send capacity from one or more keys to an address.",
	Description: `
	Build a transaction paying --amount CKB to --to out of the plain cells
	of every --from key. Change goes back to the first key. The fee
	follows the configured fee rate unless --fixedfee is set. Without
	--from a single key is read from the terminal.`,
	Flags: []cli.Flag{
		cli.StringSliceFlag{
			Name:  "from",
			Usage: "a hex private key paying in, may be repeated",
		},
		cli.StringFlag{
			Name:  "to",
			Usage: "the receiving address",
		},
		cli.StringFlag{
			Name:  "amount",
			Usage: "the capacity to send in CKB, e.g. 61 or 100.5",
		},
		cli.BoolFlag{
			Name:  "fixedfee",
			Usage: "pay the configured fixed fee instead of the fee rate",
		},
		cli.BoolFlag{
			Name:  "nowait",
			Usage: "return once the node accepted the transaction",
		},
	},
	Action: actionDecorator(transfer),
}

type transferResp struct {
	TxHash ckbhash.Hash `json:"tx_hash"`
	Fee    string       `json:"fee"`
}

func transfer(ctx *cli.Context) error {
	if !ctx.IsSet("to") || !ctx.IsSet("amount") {
		return cli.ShowCommandHelp(ctx, "transfer")
	}

	amount, err := ckbutil.ParseCKBytes(ctx.String("amount"))
	if err != nil {
		return err
	}

	ctxc, cancel := getContext()
	defer cancel()

	sess, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.connect(ctxc); err != nil {
		return err
	}

	to, err := parseLock(sess, ctx.String("to"))
	if err != nil {
		return err
	}

	keys := ctx.StringSlice("from")
	if len(keys) == 0 {
		key, err := readPassword("Private key: ")
		if err != nil {
			return err
		}
		keys = []string{strings.TrimSpace(string(key))}
	}

	keyStore := keychain.NewKeyStore()
	var (
		changeLock *ckbwire.Script
		candidates []txbuilder.Cell
	)
	for _, key := range keys {
		arg, err := keyStore.AddHex(key)
		if err != nil {
			return err
		}

		lock := sess.params.DefaultLock(arg[:])
		if changeLock == nil {
			changeLock = lock
		}

		cells, err := indexer.CollectAll(
			ctxc, sess.chain, indexer.PlainCells(lock),
		)
		if err != nil {
			return err
		}
		candidates = append(candidates, cells...)
	}

	s := txbuilder.NewSkeleton()
	s.AddCellDep(sess.params.Secp256k1Blake160.Dep)
	s.AddOutput(ckbwire.CellOutput{Capacity: amount, Lock: *to}, nil)

	var fee ckbutil.Capacity
	if ctx.Bool("fixedfee") {
		fee, err = txbuilder.Complete(
			s, candidates, changeLock,
			txbuilder.FixedFee(sess.cfg.FixedFee()),
			txbuilder.DefaultMaxFeeRatio,
		)
	} else {
		fee, err = txbuilder.CompleteWithFeeRate(
			s, candidates, changeLock,
			txbuilder.FeeRate(sess.cfg.FeeRate),
		)
	}
	if err != nil {
		return err
	}

	opts := describe.DefaultOptions()
	opts.Network = sess.params.AddressPrefix
	if err := describe.Transaction(os.Stdout, s, opts); err != nil {
		return err
	}

	tx, err := signTransfer(s, &sess.params.Secp256k1Blake160, keyStore)
	if err != nil {
		return err
	}

	hash, err := sess.chain.SendTransaction(ctxc, tx)
	if err != nil {
		return err
	}
	log.Infof("Sent transfer %v paying %v", hash, fee)

	if !ctx.Bool("nowait") {
		err := sess.chain.WaitForConfirmation(
			ctxc, hash, sess.pollConfig(),
		)
		if err != nil {
			return err
		}
	}

	printJSON(&transferResp{TxHash: hash, Fee: fee.String()})

	return nil
}

// signTransfer signs s once its capacities balance.
func signTransfer(s *txbuilder.Skeleton, lock *chainparams.SystemScript,
	keys signer.KeyRing) (*ckbwire.Transaction, error) {

	if err := s.ValidateCapacity(); err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}

	return signer.SignTransaction(s, lock, keys)
}

var waitTxCommand = cli.Command{
	Name:      "waittx",
	Category:  "Cells",
	Usage:     "Wait until a transaction is committed.",
	ArgsUsage: "txhash",
	Flags: []cli.Flag{
		cli.DurationFlag{
			Name: "timeout",
			Usage: "how long to wait, the configured confirm " +
				"timeout when unset",
		},
		cli.BoolFlag{
			Name:  "dump",
			Usage: "dump the node's view of the transaction",
		},
	},
	Action: actionDecorator(waitTx),
}

func waitTx(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "waittx")
	}

	hash, err := ckbhash.NewHashFromStr(ctx.Args().First())
	if err != nil {
		return err
	}

	ctxc, cancel := getContext()
	defer cancel()

	sess, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.connect(ctxc); err != nil {
		return err
	}

	if ctx.Bool("dump") {
		tx, err := sess.node.GetTransaction(ctxc, *hash)
		if err != nil {
			return err
		}
		fmt.Print(spew.Sdump(tx))

		return nil
	}

	pollCfg := sess.pollConfig()
	if ctx.IsSet("timeout") {
		pollCfg.Timeout = ctx.Duration("timeout")
	}

	start := time.Now()
	if err := sess.node.WaitForConfirmation(ctxc, *hash, pollCfg); err != nil {
		return err
	}

	fmt.Printf("Transaction %v committed after %v\n", hash,
		time.Since(start).Round(time.Millisecond))

	return nil
}
