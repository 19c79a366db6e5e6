package ckbcfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ckb-labs/ckblab/chainparams"
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[Application Options]
network=testnet
fee=200000
pollinterval=250ms
debuglevel=LABS=debug,TXBD=trace

[RPC]
rpc.url=http://10.0.0.1:8114
rpc.indexerurl=http://10.0.0.1:8116
rpc.maxretries=5
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), DefaultConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))

	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(DefaultConfig(), writeConfig(t, sampleConfig),
		true)
	require.NoError(t, err)

	require.Equal(t, "testnet", cfg.Network)
	require.Equal(t, ckbutil.Capacity(200_000), cfg.FixedFee())
	require.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	require.Equal(t, "LABS=debug,TXBD=trace", cfg.DebugLevel)
	require.Equal(t, 5, cfg.RPC.MaxRetries)

	// Untouched options keep their defaults.
	require.Equal(t, DefaultConfirmTimeout, cfg.ConfirmTimeout)
	require.Equal(t, DefaultConfig().RPC.Timeout, cfg.RPC.Timeout)

	require.NoError(t, cfg.Validate())
	require.Equal(t, chainparams.TestnetParams.Name, cfg.ActiveParams.Name)

	node := cfg.NodeRPC()
	require.Equal(t, "http://10.0.0.1:8114", node.URL)
	require.Equal(t, 5, node.MaxRetries)

	indexer := cfg.IndexerRPC()
	require.NotNil(t, indexer)
	require.Equal(t, "http://10.0.0.1:8116", indexer.URL)
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nope.conf")

	cfg, err := LoadConfig(DefaultConfig(), path, false)
	require.NoError(t, err)
	require.Equal(t, "devnet", cfg.Network)
	require.Nil(t, cfg.IndexerRPC())

	_, err = LoadConfig(DefaultConfig(), path, true)
	require.Error(t, err)
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		contents string
	}{
		{
			name:     "unknown option",
			contents: "[Application Options]\nfoo=bar\n",
		},
		{
			name:     "bad choice",
			contents: "[Application Options]\nnetwork=regtest\n",
		},
		{
			name:     "bad duration",
			contents: "[Application Options]\npollinterval=soon\n",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := LoadConfig(
				DefaultConfig(), writeConfig(t, tc.contents), true,
			)
			require.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	appDir := t.TempDir()

	testCases := []struct {
		name   string
		modify func(c *Config)
		ok     bool
	}{
		{
			name: "defaults on testnet",
			modify: func(c *Config) {
				c.Network = "testnet"
			},
			ok: true,
		},
		{
			name:   "devnet resolves without a scripts config",
			modify: func(c *Config) {},
			ok:     true,
		},
		{
			name: "no fee",
			modify: func(c *Config) {
				c.Fee = 0
			},
		},
		{
			name: "no poll interval",
			modify: func(c *Config) {
				c.PollInterval = 0
			},
		},
		{
			name: "no rpc url",
			modify: func(c *Config) {
				c.RPC.URL = ""
			},
		},
		{
			name: "bad compressor",
			modify: func(c *Config) {
				c.LogConfig.File.Compressor = "lz4"
			},
		},
		{
			name: "missing scripts config",
			modify: func(c *Config) {
				c.ScriptsConfig = filepath.Join(appDir, "none.json")
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			cfg.AppDir = appDir
			tc.modify(&cfg)

			err := cfg.Validate()
			if !tc.ok {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg.ActiveParams)
			require.Equal(t, cfg.Network, cfg.ActiveParams.Name)
			require.Equal(t, filepath.Join(appDir, defaultDataDirname),
				cfg.DataDir)
			require.Equal(t, filepath.Join(appDir, defaultLogDirname,
				DefaultLogFilename), cfg.LogFile())
		})
	}
}

func TestCleanAndExpandPath(t *testing.T) {
	t.Setenv("CKBLAB_TEST_DIR", "/tmp/ckblab")

	require.Empty(t, CleanAndExpandPath(""))
	require.Equal(t, "/tmp/ckblab/data",
		CleanAndExpandPath("$CKBLAB_TEST_DIR/./data/"))
	require.NotContains(t, CleanAndExpandPath("~/ckblab"), "~")
}
