package main

import (
	"github.com/btcsuite/btclog"
	"github.com/ckb-labs/ckblab/build"
	"github.com/ckb-labs/ckblab/ckbcfg"
	"github.com/ckb-labs/ckblab/deploystore"
	"github.com/ckb-labs/ckblab/indexer"
	"github.com/ckb-labs/ckblab/labs"
	"github.com/ckb-labs/ckblab/rpcclient"
	"github.com/ckb-labs/ckblab/signer"
	"github.com/ckb-labs/ckblab/txbuilder"
)

// Subsystem is the logging code of the command line tool itself.
const Subsystem = "CKBL"

var log = btclog.Disabled

// setupLoggers creates a logger for every subsystem and hands it to the
// package using it.
func setupLoggers(root *build.RotatingLogWriter) {
	log = addSubLogger(root, Subsystem)

	addSubLogger(root, rpcclient.Subsystem, rpcclient.UseLogger)
	addSubLogger(root, indexer.Subsystem, indexer.UseLogger)
	addSubLogger(root, txbuilder.Subsystem, txbuilder.UseLogger)
	addSubLogger(root, signer.Subsystem, signer.UseLogger)
	addSubLogger(root, deploystore.Subsystem, deploystore.UseLogger)
	addSubLogger(root, labs.Subsystem, labs.UseLogger)
}

// addSubLogger is a helper method to conveniently create and register the
// logger of one or more sub systems.
func addSubLogger(root *build.RotatingLogWriter, subsystem string,
	useLoggers ...func(btclog.Logger)) btclog.Logger {

	logger := build.NewSubLogger(subsystem, root.GenSubLogger)
	root.RegisterSubLogger(subsystem, logger)
	for _, useLogger := range useLoggers {
		useLogger(logger)
	}

	return logger
}

// initLogging wires the subsystem loggers to the rotating log file and
// applies the configured levels. The returned writer must be closed.
func initLogging(cfg *ckbcfg.Config) (*build.RotatingLogWriter, error) {
	root := build.NewRotatingLogWriter()
	setupLoggers(root)

	if err := root.InitLogRotator(
		cfg.LogConfig.File, cfg.LogFile(),
	); err != nil {
		return nil, err
	}

	if err := build.ParseAndSetDebugLevels(cfg.DebugLevel, root); err != nil {
		_ = root.Close()
		return nil, err
	}

	return root, nil
}
