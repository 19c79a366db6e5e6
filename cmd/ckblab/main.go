package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ckb-labs/ckblab/build"
	"github.com/ckb-labs/ckblab/ckbcfg"
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/rpcclient"
	"github.com/ckb-labs/ckblab/txbuilder"
	"github.com/urfave/cli"
	"golang.org/x/term"
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[ckblab] %v\n", err)
	os.Exit(1)
}

// getContext returns a context that is canceled on the first interrupt.
func getContext() (context.Context, func()) {
	return signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
}

// actionDecorator adds hints to the errors the commands return most often.
func actionDecorator(f func(*cli.Context) error) func(*cli.Context) error {
	return func(c *cli.Context) error {
		err := f(c)

		var capErr *txbuilder.ErrInsufficientCapacity
		switch {
		case err == nil:
			return nil

		case errors.As(err, &capErr):
			return fmt.Errorf("%w (fund the account or run "+
				"`ckblab lab init` on a devnet)", err)

		case errors.Is(err, rpcclient.ErrTxRejected):
			return fmt.Errorf("%w (see `ckblab waittx --dump` for the "+
				"node's view)", err)
		}

		return err
	}
}

func printJSON(resp interface{}) {
	b, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		fatal(err)
	}

	fmt.Println(string(b))
}

// readPassword reads a secret from the terminal. This requires there to be
// an actual TTY so passing in a secret from stdin won't work.
func readPassword(text string) ([]byte, error) {
	fmt.Print(text)

	// The variable syscall.Stdin is of a different type in the Windows API
	// that's why we need the explicit cast.
	pw, err := term.ReadPassword(int(syscall.Stdin)) // nolint:unconvert
	fmt.Println()

	return pw, err
}

// secretArg returns the named flag, the first positional argument or, when
// neither is given, a secret read from the terminal.
func secretArg(ctx *cli.Context, flag, prompt string) (string, error) {
	switch {
	case ctx.IsSet(flag):
		return ctx.String(flag), nil

	case ctx.Args().Present():
		return ctx.Args().First(), nil
	}

	secret, err := readPassword(prompt)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(secret)), nil
}

// loadConfig builds the configuration from the defaults, the config file
// and the global flags, in that order.
func loadConfig(ctx *cli.Context) (*ckbcfg.Config, error) {
	defaults := ckbcfg.DefaultConfig()
	if ctx.GlobalIsSet("appdir") {
		defaults.AppDir = ckbcfg.CleanAndExpandPath(
			ctx.GlobalString("appdir"),
		)
		defaults.ConfigFile = filepath.Join(
			defaults.AppDir, ckbcfg.DefaultConfigFilename,
		)
	}

	path := defaults.ConfigFile
	if ctx.GlobalIsSet("configfile") {
		path = ctx.GlobalString("configfile")
	}

	cfg, err := ckbcfg.LoadConfig(
		defaults, path, ctx.GlobalIsSet("configfile"),
	)
	if err != nil {
		return nil, err
	}

	// Flags win over the file.
	if ctx.GlobalIsSet("appdir") {
		cfg.AppDir = defaults.AppDir
	}
	if ctx.GlobalIsSet("network") {
		cfg.Network = ctx.GlobalString("network")
	}
	if ctx.GlobalIsSet("rpcurl") {
		cfg.RPC.URL = ctx.GlobalString("rpcurl")
	}
	if ctx.GlobalIsSet("indexerurl") {
		cfg.RPC.IndexerURL = ctx.GlobalString("indexerurl")
	}
	if ctx.GlobalIsSet("scriptsconfig") {
		cfg.ScriptsConfig = ctx.GlobalString("scriptsconfig")
	}
	if ctx.GlobalIsSet("debuglevel") {
		cfg.DebugLevel = ctx.GlobalString("debuglevel")
	}
	if ctx.GlobalIsSet("fee") {
		fee, err := ckbutil.ParseShannons(ctx.GlobalString("fee"))
		if err != nil {
			return nil, fmt.Errorf("invalid fee: %w", err)
		}
		cfg.Fee = uint64(fee)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// appFlags are the global options, they override the config file.
var appFlags = []cli.Flag{
	cli.StringFlag{
		Name: "configfile, C",
		Usage: "The path to ckblab's config file, " +
			"defaults to ckblab.conf in the app dir.",
		TakesFile: true,
	},
	cli.StringFlag{
		Name:      "appdir",
		Usage:     "The path to ckblab's base directory.",
		Value:     ckbcfg.DefaultAppDir,
		TakesFile: true,
	},
	cli.StringFlag{
		Name: "network, n",
		Usage: "The network the node runs on: mainnet, testnet " +
			"or devnet.",
	},
	cli.StringFlag{
		Name:  "rpcurl",
		Usage: "The node's JSON-RPC endpoint.",
	},
	cli.StringFlag{
		Name:  "indexerurl",
		Usage: "A separate indexer endpoint.",
	},
	cli.StringFlag{
		Name: "scriptsconfig",
		Usage: "A Lumos config.json with the system script " +
			"deps of the network.",
		TakesFile: true,
	},
	cli.StringFlag{
		Name: "debuglevel, d",
		Usage: "Logging level for all subsystems, or " +
			"<subsystem>=<level> pairs.",
	},
	cli.StringFlag{
		Name:  "fee",
		Usage: "The fixed fee of lab transactions in shannons.",
	},
}

func main() {
	app := cli.NewApp()
	app.Name = "ckblab"
	app.Version = build.Version()
	app.Usage = "walk through the CKB tutorial labs against a node"
	app.Flags = appFlags
	app.Commands = []cli.Command{
		lockInfoCommand,
		decodeAddressCommand,
		newMnemonicCommand,
		deriveKeyCommand,
		balanceCommand,
		listCellsCommand,
		transferCommand,
		waitTxCommand,
		deployCommand,
		deploymentsCommand,
		labCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}
