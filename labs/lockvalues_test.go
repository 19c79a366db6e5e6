package labs

import (
	"bytes"
	"testing"

	"github.com/ckb-labs/ckblab/address"
	"github.com/ckb-labs/ckblab/chainparams"
	"github.com/stretchr/testify/require"
)

func TestDeriveLockValues(t *testing.T) {
	t.Parallel()

	params := &chainparams.TestnetParams

	v, err := DeriveLockValues(GenesisPrivKey, params)
	require.NoError(t, err)
	require.Equal(t, GenesisPrivKey, v.PrivateKey)
	require.Equal(t, "0xc8328aabcd9b9e8e64fbc566c4385c3bdeb219d7",
		v.LockArg.String())
	require.Len(t, v.PublicKey, 2+33*2)
	require.Equal(t, genesisAddress, v.Address)
	require.Equal(t, v.LockScript.Hash(), v.LockHash)

	decoded, err := address.Decode(v.Address)
	require.NoError(t, err)
	require.True(t, decoded.Script.Equals(v.LockScript))

	var buf bytes.Buffer
	_, err = v.WriteTo(&buf)
	require.NoError(t, err)
	require.Contains(t, buf.String(), genesisAddress+" (Testnet)")
	require.Contains(t, buf.String(), v.LockArg.String()+" (20 bytes)")

	_, err = DeriveLockValues("0x1234", params)
	require.Error(t, err)
}

func TestAccountAddresses(t *testing.T) {
	t.Parallel()

	params := &chainparams.TestnetParams
	accounts, err := DefaultAccounts()
	require.NoError(t, err)

	testCases := []struct {
		account *Account
		address string
	}{
		{accounts.Alice, "ckt1qyq2a6ymy7fjntsc2q0jajnmljt690g4xpdsyw4k5f"},
		{accounts.Bob, "ckt1qyq9gstman8qyjv0ucwqnw0h6z5cn6z9xxlssmqc92"},
		{accounts.Charlie, "ckt1qyq9sz6wanl8v3tdmq6as38yq3j9hwg637kqu3e2xn"},
		{accounts.Daniel, "ckt1qzda0cr08m85hc8jlnfp3zer7xulejywt49kt2rr0" +
			"vthywaa50xwsqvc32wruaxqnk4hdj8yr4yp5u056dkhwtc94sy8q"},
		{accounts.Genesis, genesisAddress},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.account.Name, func(t *testing.T) {
			t.Parallel()

			// Short and full addresses decode to the same lock.
			decoded, err := address.Decode(tc.address)
			require.NoError(t, err)
			require.True(t, decoded.Script.Equals(
				tc.account.Lock(params),
			))

			addr, err := tc.account.Address(params)
			require.NoError(t, err)
			again, err := address.Decode(addr)
			require.NoError(t, err)
			require.Equal(t, address.FormatFull, again.Format)
			require.True(t, again.Script.Equals(&decoded.Script))
		})
	}
}
