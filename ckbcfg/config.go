// Package ckbcfg holds the ckblab configuration: defaults, the optional
// ckblab.conf file and the checks run before anything talks to a node.
package ckbcfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/ckb-labs/ckblab/build"
	"github.com/ckb-labs/ckblab/chainparams"
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/rpcclient"
	"github.com/ckb-labs/ckblab/txbuilder"
	flags "github.com/jessevdk/go-flags"
)

const (
	// DefaultConfigFilename is the name of the config file in the app
	// dir.
	DefaultConfigFilename = "ckblab.conf"

	// DefaultLogFilename is the name of the log file in the log dir.
	DefaultLogFilename = "ckblab.log"

	defaultDataDirname = "data"
	defaultLogDirname  = "logs"
	defaultNetwork     = "devnet"
	defaultRPCURL      = "http://127.0.0.1:8114"
	defaultLogLevel    = "info"

	// DefaultPollInterval is how often confirmations are polled.
	DefaultPollInterval = time.Second

	// DefaultConfirmTimeout bounds the wait for a transaction.
	DefaultConfirmTimeout = 5 * time.Minute
)

var (
	// DefaultAppDir is the base directory for ckblab's files.
	DefaultAppDir = btcutil.AppDataDir("ckblab", false)

	// DefaultConfigFile is the default path of the config file.
	DefaultConfigFile = filepath.Join(DefaultAppDir, DefaultConfigFilename)

	defaultDataDir = filepath.Join(DefaultAppDir, defaultDataDirname)
	defaultLogDir  = filepath.Join(DefaultAppDir, defaultLogDirname)
)

// RPC holds the node connection options.
//
//nolint:lll
type RPC struct {
	URL          string        `long:"url" description:"The node's JSON-RPC endpoint"`
	IndexerURL   string        `long:"indexerurl" description:"A separate indexer endpoint, the node's built-in indexer is used when empty"`
	Timeout      time.Duration `long:"timeout" description:"The timeout of a single request"`
	MaxRetries   int           `long:"maxretries" description:"How often a request is retried after a transport error"`
	RetryBackoff time.Duration `long:"retrybackoff" description:"The base delay between retries, growing linearly"`
}

// Config is the ckblab configuration.
//
//nolint:lll
type Config struct {
	AppDir     string `long:"appdir" description:"The base directory holding ckblab's data, logs and configuration file"`
	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir    string `short:"b" long:"datadir" description:"The directory to store the deployment registry in"`
	LogDir     string `long:"logdir" description:"Directory to log output."`
	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`

	Network       string `long:"network" description:"The network the node runs" choice:"mainnet" choice:"testnet" choice:"devnet"`
	ScriptsConfig string `long:"scriptsconfig" description:"Path to a Lumos config.json overriding the system script deps, required on devnets not started from the default chain spec"`

	Fee            uint64        `long:"fee" description:"The fixed fee of lab transactions in shannons"`
	FeeRate        uint64        `long:"feerate" description:"The fee rate of transfers in shannons per 1000 bytes"`
	PollInterval   time.Duration `long:"pollinterval" description:"How often the node is asked about pending transactions"`
	ConfirmTimeout time.Duration `long:"confirmtimeout" description:"How long to wait for a transaction to commit, 0 waits forever"`

	RPC *RPC `group:"RPC" namespace:"rpc"`

	LogConfig *build.LogConfig `group:"logging" namespace:"logging"`

	// ActiveParams are the params of Network with the scripts config
	// applied. They are set by Validate.
	ActiveParams *chainparams.Params `no-flag:"true"`
}

// DefaultConfig returns all default values for the Config struct.
func DefaultConfig() Config {
	return Config{
		AppDir:         DefaultAppDir,
		ConfigFile:     DefaultConfigFile,
		DataDir:        defaultDataDir,
		LogDir:         defaultLogDir,
		DebugLevel:     defaultLogLevel,
		Network:        defaultNetwork,
		Fee:            uint64(txbuilder.DefaultFixedFee),
		FeeRate:        uint64(txbuilder.MinFeeRate),
		PollInterval:   DefaultPollInterval,
		ConfirmTimeout: DefaultConfirmTimeout,
		RPC: &RPC{
			URL:          defaultRPCURL,
			Timeout:      rpcclient.DefaultTimeout,
			MaxRetries:   rpcclient.DefaultMaxRetries,
			RetryBackoff: rpcclient.DefaultRetryBackoff,
		},
		LogConfig: build.DefaultLogConfig(),
	}
}

// LoadConfig starts from cfg and applies the options of the config file at
// path. A missing file is only an error when required is set, a file that
// fails to parse always is.
func LoadConfig(cfg Config, path string, required bool) (*Config, error) {
	path = CleanAndExpandPath(path)
	if err := flags.IniParse(path, &cfg); err != nil {
		var iniErr *flags.IniError
		switch {
		case errors.As(err, &iniErr):
			return nil, err

		case errors.Is(err, fs.ErrNotExist) && !required:

		default:
			return nil, fmt.Errorf("unable to load config file: %w",
				err)
		}
	}
	cfg.ConfigFile = path

	return &cfg, nil
}

// Validate checks the configuration, cleans its paths and resolves the
// network params. Paths left at their defaults follow a changed app dir.
func (c *Config) Validate() error {
	appDir := CleanAndExpandPath(c.AppDir)
	if appDir != DefaultAppDir {
		if c.DataDir == defaultDataDir {
			c.DataDir = filepath.Join(appDir, defaultDataDirname)
		}
		if c.LogDir == defaultLogDir {
			c.LogDir = filepath.Join(appDir, defaultLogDirname)
		}
	}
	c.AppDir = appDir
	c.DataDir = CleanAndExpandPath(c.DataDir)
	c.LogDir = CleanAndExpandPath(c.LogDir)
	c.ScriptsConfig = CleanAndExpandPath(c.ScriptsConfig)

	if c.RPC == nil || c.RPC.URL == "" {
		return fmt.Errorf("rpc.url must be set")
	}
	if c.Fee == 0 {
		return fmt.Errorf("fee must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("pollinterval must be positive")
	}
	if c.ConfirmTimeout < 0 {
		return fmt.Errorf("confirmtimeout must not be negative")
	}
	if c.LogConfig == nil {
		c.LogConfig = build.DefaultLogConfig()
	}
	if err := c.LogConfig.Validate(); err != nil {
		return err
	}

	params, err := chainparams.ParamsForNetwork(c.Network)
	if err != nil {
		return err
	}
	if c.ScriptsConfig != "" {
		params, err = chainparams.LoadScriptsConfig(c.ScriptsConfig, params)
		if err != nil {
			return err
		}
	}
	c.ActiveParams = params

	return nil
}

// FixedFee returns the fee of lab transactions.
func (c *Config) FixedFee() ckbutil.Capacity {
	return ckbutil.Capacity(c.Fee)
}

// LogFile returns the path of the log file.
func (c *Config) LogFile() string {
	return filepath.Join(c.LogDir, DefaultLogFilename)
}

// NodeRPC returns the client options for the node.
func (c *Config) NodeRPC() *rpcclient.Config {
	return &rpcclient.Config{
		URL:          c.RPC.URL,
		Timeout:      c.RPC.Timeout,
		MaxRetries:   c.RPC.MaxRetries,
		RetryBackoff: c.RPC.RetryBackoff,
	}
}

// IndexerRPC returns the client options for the indexer, nil when the
// node's own indexer is used.
func (c *Config) IndexerRPC() *rpcclient.Config {
	if c.RPC.IndexerURL == "" || c.RPC.IndexerURL == c.RPC.URL {
		return nil
	}

	cfg := c.NodeRPC()
	cfg.URL = c.RPC.IndexerURL

	return cfg
}

// CleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
// This function is taken from https://github.com/btcsuite/btcd
func CleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
