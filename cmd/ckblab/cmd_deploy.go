package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ckb-labs/ckblab/keychain"
	"github.com/ckb-labs/ckblab/labs"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli"
)

var deployCommand = cli.Command{
	Name:      "deploy",
	Category:  "Scripts",
	Usage:     "Put a script binary into a code cell.",
	ArgsUsage: "binary",
	Description: `
	Create a code cell holding the binary, paid for and locked by the key
	given with --privkey or read from the terminal. The deployment is
	recorded under --name, the file name without extension by default.`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "name",
			Usage: "the name to record the deployment under",
		},
		cli.StringFlag{
			Name:  "privkey",
			Usage: "the hex private key owning the code cell",
		},
	},
	Action: actionDecorator(deploy),
}

func deploy(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "deploy")
	}

	path := ctx.Args().First()
	name := ctx.String("name")
	if name == "" {
		base := filepath.Base(path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	binary, err := labs.ReadBinary(name, path)
	if err != nil {
		return err
	}

	key := ctx.String("privkey")
	if key == "" {
		secret, err := readPassword("Private key: ")
		if err != nil {
			return err
		}
		key = strings.TrimSpace(string(secret))
	}

	owner, err := labs.NewAccount("deployer", key)
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

	env, err := sess.env(keychain.NewKeyStore(owner.PrivKey))
	if err != nil {
		return err
	}

	d, err := labs.DeployCode(ctxc, env, binary, owner)
	if err != nil {
		return err
	}

	printJSON(d)

	return nil
}

var deploymentsCommand = cli.Command{
	Name:     "deployments",
	Category: "Scripts",
	Usage:    "List the recorded deployments of the network.",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "delete",
			Usage: "forget the deployment with this name",
		},
		cli.BoolFlag{
			Name:  "json",
			Usage: "print the deployments as JSON",
		},
	},
	Action: actionDecorator(deployments),
}

func deployments(ctx *cli.Context) error {
	sess, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	store, err := sess.openStore()
	if err != nil {
		return err
	}

	network := sess.params.Name
	if name := ctx.String("delete"); name != "" {
		if err := store.Delete(network, name); err != nil {
			return err
		}
		fmt.Printf("Deleted deployment %s on %s\n", name, network)

		return nil
	}

	list, err := store.List(network)
	if err != nil {
		return err
	}

	if ctx.Bool("json") {
		printJSON(list)
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Deployments on " + network)
	t.AppendHeader(table.Row{
		"Name", "Out point", "Data hash", "Size", "Deployed at",
	})
	for _, d := range list {
		t.AppendRow(table.Row{
			d.Name, d.OutPoint.String(), d.DataHash.String(), d.Size,
			d.DeployedAt.Format(time.RFC3339),
		})
	}
	t.Render()

	return nil
}
