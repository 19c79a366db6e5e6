package build

import (
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
)

func TestParseAndSetDebugLevels(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		level       string
		expectErr   bool
		expectLevel map[string]btclog.Level
	}{
		{
			name:  "global level",
			level: "debug",
			expectLevel: map[string]btclog.Level{
				"RPCC": btclog.LevelDebug,
				"TXBD": btclog.LevelDebug,
			},
		},
		{
			name:  "global then subsystem",
			level: "warn,TXBD=trace",
			expectLevel: map[string]btclog.Level{
				"RPCC": btclog.LevelWarn,
				"TXBD": btclog.LevelTrace,
			},
		},
		{
			name:      "unknown subsystem",
			level:     "FOO=debug",
			expectErr: true,
		},
		{
			name:      "invalid level",
			level:     "loud",
			expectErr: true,
		},
		{
			name:      "malformed pair",
			level:     "info,RPCC",
			expectErr: true,
		},
		{
			name:      "too many fields",
			level:     "RPCC=debug=info",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			w := NewRotatingLogWriter()
			w.RegisterSubLogger("RPCC", w.GenSubLogger("RPCC"))
			w.RegisterSubLogger("TXBD", w.GenSubLogger("TXBD"))

			err := ParseAndSetDebugLevels(tc.level, w)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			loggers := w.SubLoggers()
			for name, level := range tc.expectLevel {
				require.Equal(t, level, loggers[name].Level())
			}
		})
	}
}

func TestSupportedSubsystemsSorted(t *testing.T) {
	t.Parallel()

	w := NewRotatingLogWriter()
	for _, s := range []string{"TXBD", "INDX", "RPCC"} {
		w.RegisterSubLogger(s, w.GenSubLogger(s))
	}

	require.Equal(
		t, []string{"INDX", "RPCC", "TXBD"}, w.SupportedSubsystems(),
	)
}

func TestLogConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := DefaultLogConfig()
	require.NoError(t, cfg.Validate())

	cfg.File.Compressor = Zstd
	require.NoError(t, cfg.Validate())

	cfg.File.Compressor = "lz4"
	require.Error(t, cfg.Validate())
}
