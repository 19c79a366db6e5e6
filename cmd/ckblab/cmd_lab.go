package main

import (
	"context"
	"fmt"

	"github.com/ckb-labs/ckblab/labs"
	"github.com/urfave/cli"
)

var labCommand = cli.Command{
	Name:     "lab",
	Category: "Labs",
	Usage:    "Run a tutorial lab with the well known lab accounts.",
	Description: `
	The labs move funds between Alice, Bob, Charlie and Daniel, whose keys
	are public. Run them on a devnet only, starting with 'lab init' which
	funds the accounts from the genesis allocation.`,
	Subcommands: []cli.Command{
		{
			Name:   "init",
			Usage:  "Reset the lab accounts to 100 CKB each.",
			Action: actionDecorator(runInitLab),
		},
		{
			Name: "multiaccount",
			Usage: "Have Alice, Bob and Charlie pay Daniel in a " +
				"single transaction.",
			Action: actionDecorator(runMultiAccountLab),
		},
		{
			Name:  "sudt",
			Usage: "Deploy, mint, transfer and burn a simple UDT.",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "binary",
					Usage: "the sudt binary",
				},
				cli.BoolFlag{
					Name: "usedeployment",
					Usage: "use the recorded sudt deployment " +
						"instead of deploying",
				},
			},
			Action: actionDecorator(runSUDTLab),
		},
		{
			Name:  "xudt",
			Usage: "Issue an xUDT with a capped supply.",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "xudt",
					Usage: "the xudt binary",
				},
				cli.StringFlag{
					Name:  "extension",
					Usage: "the supply cap extension binary",
				},
				cli.StringFlag{
					Name:  "remaining",
					Usage: "the remaining amount lock binary",
				},
			},
			Action: actionDecorator(runXUDTLab),
		},
		{
			Name:  "occlock",
			Usage: "Lock cells with the output capacity and count lock.",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "binary",
					Usage: "the occ lock binary",
				},
			},
			Action: actionDecorator(runOCCLockLab),
		},
	},
}

// labFunc is the body of a lab command.
type labFunc func(ctx context.Context, env *labs.Env,
	accounts *labs.Accounts) error

// withLab connects, sets up the lab accounts and runs f.
func withLab(ctx *cli.Context, f labFunc) error {
	accounts, err := labs.DefaultAccounts()
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

	env, err := sess.env(accounts.KeyStore())
	if err != nil {
		return err
	}

	return f(ctxc, env, accounts)
}

// readLabBinary reads the binary named by flag.
func readLabBinary(ctx *cli.Context, flag, name string) (*labs.Binary,
	error) {

	path := ctx.String(flag)
	if path == "" {
		return nil, fmt.Errorf("--%s is required", flag)
	}

	return labs.ReadBinary(name, path)
}

func runInitLab(ctx *cli.Context) error {
	return withLab(ctx, func(ctxc context.Context, env *labs.Env,
		accounts *labs.Accounts) error {

		_, err := labs.InitializeLab(ctxc, env, accounts)
		return err
	})
}

func runMultiAccountLab(ctx *cli.Context) error {
	return withLab(ctx, func(ctxc context.Context, env *labs.Env,
		accounts *labs.Accounts) error {

		_, err := labs.RunMultiAccount(ctxc, env, accounts)
		return err
	})
}

func runSUDTLab(ctx *cli.Context) error {
	useDeployment := ctx.Bool("usedeployment")

	var binary *labs.Binary
	if !useDeployment {
		var err error
		binary, err = readLabBinary(ctx, "binary", "sudt")
		if err != nil {
			return err
		}
	}

	return withLab(ctx, func(ctxc context.Context, env *labs.Env,
		accounts *labs.Accounts) error {

		lab := labs.NewSUDTLab(env, accounts, binary, nil)
		if !useDeployment {
			return lab.Run(ctxc)
		}

		d, err := env.Store.Get(env.Params.Name, "sudt")
		if err != nil {
			return err
		}
		if err := lab.UseDeployment(ctxc, d); err != nil {
			return err
		}

		if err := lab.Create(ctxc); err != nil {
			return err
		}
		if err := lab.Transfer(ctxc); err != nil {
			return err
		}

		return lab.Consume(ctxc)
	})
}

func runXUDTLab(ctx *cli.Context) error {
	xudt, err := readLabBinary(ctx, "xudt", "xudt")
	if err != nil {
		return err
	}
	extension, err := readLabBinary(ctx, "extension", "xudt-supply-cap")
	if err != nil {
		return err
	}
	remaining, err := readLabBinary(
		ctx, "remaining", "remaining-amount-lock",
	)
	if err != nil {
		return err
	}

	return withLab(ctx, func(ctxc context.Context, env *labs.Env,
		accounts *labs.Accounts) error {

		return labs.NewXUDTLab(env, accounts, &labs.XUDTBinaries{
			XUDT:                xudt,
			Extension:           extension,
			RemainingAmountLock: remaining,
		}, nil).Run(ctxc)
	})
}

func runOCCLockLab(ctx *cli.Context) error {
	binary, err := readLabBinary(ctx, "binary", "occ-lock")
	if err != nil {
		return err
	}

	return withLab(ctx, func(ctxc context.Context, env *labs.Env,
		accounts *labs.Accounts) error {

		return labs.NewOCCLockLab(env, accounts, binary).Run(ctxc)
	})
}
