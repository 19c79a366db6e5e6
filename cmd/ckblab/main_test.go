package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ckb-labs/ckblab/chainparams"
	"github.com/ckb-labs/ckblab/ckbcfg"
	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
	"github.com/ckb-labs/ckblab/keychain"
	"github.com/ckb-labs/ckblab/txbuilder"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

// runLoadConfig parses args as the global options and loads the config
// they describe.
func runLoadConfig(t *testing.T, args ...string) (*ckbcfg.Config, error) {
	t.Helper()

	var (
		cfg     *ckbcfg.Config
		loadErr error
	)
	app := cli.NewApp()
	app.Flags = appFlags
	app.Action = func(ctx *cli.Context) error {
		cfg, loadErr = loadConfig(ctx)
		return nil
	}
	require.NoError(t, app.Run(append([]string{"ckblab"}, args...)))

	return cfg, loadErr
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	t.Parallel()

	appDir := t.TempDir()
	confPath := filepath.Join(appDir, "custom.conf")
	require.NoError(t, os.WriteFile(confPath, []byte(
		"[Application Options]\nnetwork=testnet\nfee=300000\n"+
			"[RPC]\nrpc.url=http://10.0.0.1:8114\n",
	), 0600))

	cfg, err := runLoadConfig(t,
		"--appdir", appDir, "--configfile", confPath,
		"--network", "mainnet", "--fee", "5000",
	)
	require.NoError(t, err)

	require.Equal(t, "mainnet", cfg.Network)
	require.Equal(t, ckbutil.Capacity(5000), cfg.FixedFee())
	require.Equal(t, "http://10.0.0.1:8114", cfg.RPC.URL)
	require.Equal(t, filepath.Join(appDir, "data"), cfg.DataDir)
	require.Equal(t, "mainnet", cfg.ActiveParams.Name)
}

func TestLoadConfigAppDirDefaults(t *testing.T) {
	t.Parallel()

	appDir := t.TempDir()

	// Without --configfile a missing file in the app dir is fine.
	cfg, err := runLoadConfig(t, "--appdir", appDir)
	require.NoError(t, err)
	require.Equal(t, "devnet", cfg.Network)
	require.Equal(t, filepath.Join(appDir, ckbcfg.DefaultConfigFilename),
		cfg.ConfigFile)

	_, err = runLoadConfig(t, "--appdir", appDir,
		"--configfile", filepath.Join(appDir, "missing.conf"))
	require.Error(t, err)

	_, err = runLoadConfig(t, "--appdir", appDir, "--fee", "lots")
	require.ErrorContains(t, err, "invalid fee")
}

// fakeRPC answers JSON-RPC calls with canned results and counts them.
type fakeRPC struct {
	results map[string]interface{}

	mu    sync.Mutex
	calls map[string]int
}

func (f *fakeRPC) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[method]
}

func newFakeRPC(t *testing.T, results map[string]interface{}) (*fakeRPC,
	string) {

	t.Helper()

	f := &fakeRPC{results: results, calls: make(map[string]int)}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	return f, srv.URL
}

func (f *fakeRPC) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     uint64 `json:"id"`
		Method string `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.calls[req.Method]++
	f.mu.Unlock()

	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      req.ID,
		"result":  f.results[req.Method],
	})
}

func TestSessionConnectDevnet(t *testing.T) {
	t.Parallel()

	cellbase := ckbhash.Blake2b256([]byte("cellbase"))
	depGroupTx := ckbhash.Blake2b256([]byte("dep group"))

	node, nodeURL := newFakeRPC(t, map[string]interface{}{
		"get_block_by_number": map[string]interface{}{
			"transactions": []map[string]interface{}{
				{"hash": cellbase},
				{"hash": depGroupTx},
			},
		},
		"get_tip_block_number": "0x7",
	})
	idx, idxURL := newFakeRPC(t, map[string]interface{}{
		"get_indexer_tip": map[string]interface{}{
			"block_hash":   ckbhash.Blake2b256([]byte("tip")),
			"block_number": "0x7",
		},
	})

	cfg := ckbcfg.DefaultConfig()
	cfg.AppDir = t.TempDir()
	cfg.RPC.URL = nodeURL
	cfg.RPC.IndexerURL = idxURL
	require.NoError(t, cfg.Validate())

	sess := &session{cfg: &cfg, params: cfg.ActiveParams}

	ctx := context.Background()
	require.NoError(t, sess.connect(ctx))

	require.Equal(t, ckbwire.CellDep{
		OutPoint: ckbwire.OutPoint{TxHash: depGroupTx},
		DepType:  ckbwire.DepTypeDepGroup,
	}, sess.params.Secp256k1Blake160.Dep)
	require.IsType(t, &splitChain{}, sess.chain)

	tip, err := sess.chain.GetIndexerTip(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 7, tip.BlockNumber)

	number, err := sess.chain.GetTipBlockNumber(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 7, number)

	require.Equal(t, 1, idx.callCount("get_indexer_tip"))
	require.Zero(t, node.callCount("get_indexer_tip"))
	require.Equal(t, 1, node.callCount("get_block_by_number"))
}

func TestActionDecorator(t *testing.T) {
	t.Parallel()

	capErr := &txbuilder.ErrInsufficientCapacity{}
	err := actionDecorator(func(*cli.Context) error {
		return capErr
	})(nil)
	require.ErrorIs(t, err, capErr)
	require.ErrorContains(t, err, "lab init")

	err = actionDecorator(func(*cli.Context) error {
		return nil
	})(nil)
	require.NoError(t, err)
}

func TestSignTransferChecksCapacity(t *testing.T) {
	t.Parallel()

	params := chainparams.TestnetParams.Copy()
	key, err := keychain.ParsePrivateKey("0xd00c06bfd800d27397002dca6fb" +
		"0993d5ba6399b4238b2f29ee9deb97593d2bc")
	require.NoError(t, err)
	arg := keychain.LockArg(key.PubKey())
	lock := params.DefaultLock(arg[:])

	newTransfer := func(out ckbutil.Capacity) *txbuilder.Skeleton {
		s := txbuilder.NewSkeleton()
		s.AddCellDep(params.Secp256k1Blake160.Dep)
		require.NoError(t, s.AddInputs(txbuilder.Cell{
			OutPoint: ckbwire.OutPoint{
				TxHash: ckbhash.Blake2b256([]byte("funding")),
			},
			Output: ckbwire.CellOutput{
				Capacity: ckbutil.CKBytes(100),
				Lock:     *lock,
			},
		}))
		s.AddOutput(ckbwire.CellOutput{
			Capacity: out,
			Lock:     *lock,
		}, nil)
		s.AddDefaultWitnessPlaceholders()

		return s
	}

	keys := keychain.NewKeyStore(key)

	_, err = signTransfer(
		newTransfer(ckbutil.CKBytes(200)), &params.Secp256k1Blake160,
		keys,
	)
	require.ErrorIs(t, err, txbuilder.ErrOutputsExceedInputs)

	tx, err := signTransfer(
		newTransfer(
			ckbutil.CKBytes(100)-ckbutil.Capacity(txbuilder.DefaultFixedFee),
		),
		&params.Secp256k1Blake160, keys,
	)
	require.NoError(t, err)
	require.Len(t, tx.Witnesses, 1)
}
