package keychain

import (
	"encoding/hex"
	"testing"

	"github.com/ckb-labs/ckblab/address"
	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/stretchr/testify/require"
)

const genesisPrivKey = "0xd00c06bfd800d27397002dca6fb0993d5ba6399b4238b2f29ee9deb97593d2bc"

func TestParsePrivateKey(t *testing.T) {
	t.Parallel()

	key, err := ParsePrivateKey(genesisPrivKey)
	require.NoError(t, err)
	require.Equal(t,
		"03fe6c6d09d1a0f70255cddf25c5ed57d41b5c08822ae710dc10f8c88290e0acdf",
		hex.EncodeToString(key.PubKey().SerializeCompressed()),
	)
	require.Equal(t, "0xc8328aabcd9b9e8e64fbc566c4385c3bdeb219d7",
		LockArgHex(key.PubKey()))

	_, err = ParsePrivateKey("0x1234")
	require.Error(t, err)

	_, err = ParsePrivateKey("0xzz")
	require.Error(t, err)

	_, err = ParsePrivateKey("0x" + hex.EncodeToString(make([]byte, 32)))
	require.Error(t, err)
}

// TestLockArgMatchesAddress checks keys of the lab accounts derive the lock
// args encoded in their published addresses.
func TestLockArgMatchesAddress(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		privKey string
		addr    string
	}{
		{
			privKey: "0x81dabf8f74553c07999e1400a8ecc4abc44ef81c9466e6037bd36e4ad1631c17",
			addr:    "ckt1qyq2a6ymy7fjntsc2q0jajnmljt690g4xpdsyw4k5f",
		},
		{
			privKey: "0x5e3bcd5a3c082c9eb1559930417710a39c5249b31090d88de2a2855149d0d981",
			addr:    "ckt1qyq9gstman8qyjv0ucwqnw0h6z5cn6z9xxlssmqc92",
		},
		{
			privKey: "0xdb159ba4ba1ec8abdb7e9f570c7a1a1febf05eeb3f5d6ebdd50ee3bde7740189",
			addr:    "ckt1qyq9sz6wanl8v3tdmq6as38yq3j9hwg637kqu3e2xn",
		},
		{
			privKey: genesisPrivKey,
			addr: "ckt1qzda0cr08m85hc8jlnfp3zer7xulejywt49kt2rr0vthywaa" +
				"50xwsqwgx292hnvmn68xf779vmzrshpmm6epn4c0cgwga",
		},
	}

	for _, tc := range testCases {
		key, err := ParsePrivateKey(tc.privKey)
		require.NoError(t, err)

		a, err := address.Decode(tc.addr)
		require.NoError(t, err)

		arg := LockArg(key.PubKey())
		require.Equal(t, a.Script.Args, arg[:], tc.addr)
	}
}

func TestSignRecoverable(t *testing.T) {
	t.Parallel()

	key, err := ParsePrivateKey(genesisPrivKey)
	require.NoError(t, err)

	digest := ckbhash.Blake2b256([]byte("message"))
	signer := NewPrivKeyDigestSigner(key)

	sig, err := signer.SignRecoverable(digest)
	require.NoError(t, err)
	require.Len(t, sig, RecoverableSigSize)
	require.LessOrEqual(t, sig[64], byte(3))

	// Signing is deterministic.
	again, err := SignRecoverable(key, digest)
	require.NoError(t, err)
	require.Equal(t, sig, again)

	pub, err := RecoverPubKey(sig, digest)
	require.NoError(t, err)
	require.True(t, pub.IsEqual(signer.PubKey()))

	other, err := RecoverPubKey(sig, ckbhash.Blake2b256([]byte("other")))
	if err == nil {
		require.False(t, other.IsEqual(signer.PubKey()))
	}

	_, err = RecoverPubKey(sig[:64], digest)
	require.ErrorIs(t, err, ErrInvalidSignature)

	bad := append([]byte(nil), sig...)
	bad[64] = 9
	_, err = RecoverPubKey(bad, digest)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

// TestBIP32Vector1 checks derivation against the first BIP32 test vector.
func TestBIP32Vector1(t *testing.T) {
	t.Parallel()

	seed, err := hex.DecodeString("000102030405060708090a0b0c0d0e0f")
	require.NoError(t, err)

	master, err := NewMaster(seed)
	require.NoError(t, err)
	require.Equal(t,
		"e8f32e723decf4051aefac8e2c93c9c5b214313817cdb01a1494b917c8436b35",
		hex.EncodeToString(master.PrivKey().Serialize()),
	)
	require.Equal(t,
		"873dff81c02f525623fd1fe5167eac3a55a049de3d314bb42ee227ffed37d508",
		hex.EncodeToString(master.ChainCode[:]),
	)

	child, err := master.DeriveFromPath("m/0'")
	require.NoError(t, err)
	require.Equal(t,
		"edb2e14f9ee77d26dd93b4ecede8d16ed408ce149b6cd80b0715a2d911a0afea",
		hex.EncodeToString(child.PrivKey().Serialize()),
	)
	require.Equal(t, uint8(1), child.Depth)
	require.Equal(t, uint32(HardenedKeyStart), child.ChildNumber)
	require.Equal(t, "3442193e", hex.EncodeToString(child.ParentFingerprint[:]))

	grandChild, err := master.DeriveFromPath("m/0h/1")
	require.NoError(t, err)
	require.Equal(t,
		"3c6cb8d0f6a264c91ea8b5030fadaa8e538b020f0a387421a12de9319dc93368",
		hex.EncodeToString(grandChild.PrivKey().Serialize()),
	)
}

func TestParsePath(t *testing.T) {
	t.Parallel()

	indexes, err := ParsePath("m/44'/309'/0'/0/7")
	require.NoError(t, err)
	require.Equal(t, []uint32{
		HardenedKeyStart + 44, HardenedKeyStart + 309, HardenedKeyStart,
		0, 7,
	}, indexes)

	root, err := ParsePath("m")
	require.NoError(t, err)
	require.Empty(t, root)

	for _, bad := range []string{"", "44'/0", "m/x", "m/2147483648"} {
		_, err := ParsePath(bad)
		require.ErrorIs(t, err, ErrInvalidPath, bad)
	}

	require.Equal(t, "m/44'/309'/0'/1/3",
		KeyLocator{Family: KeyFamilyChange, Index: 3}.Path())
}

func TestHDKeyRing(t *testing.T) {
	t.Parallel()

	mnemonic, err := NewMnemonic()
	require.NoError(t, err)

	ring, err := NewHDKeyRingFromMnemonic(mnemonic, "")
	require.NoError(t, err)

	first, err := ring.DeriveNextKey(KeyFamilyExternal)
	require.NoError(t, err)
	second, err := ring.DeriveNextKey(KeyFamilyExternal)
	require.NoError(t, err)
	require.Equal(t, uint32(0), first.Index)
	require.Equal(t, uint32(1), second.Index)
	require.False(t, first.PubKey.IsEqual(second.PubKey))

	// Deriving by locator or by scanning for the public key finds the
	// same private key.
	byLoc, err := ring.DerivePrivKey(KeyDescriptor{KeyLocator: second.KeyLocator})
	require.NoError(t, err)
	byPub, err := ring.DerivePrivKey(KeyDescriptor{
		KeyLocator: KeyLocator{Family: KeyFamilyExternal},
		PubKey:     second.PubKey,
	})
	require.NoError(t, err)
	require.Equal(t, byLoc.Serialize(), byPub.Serialize())

	// A key from the change branch is not found on the external one.
	change, err := ring.DeriveKey(KeyLocator{Family: KeyFamilyChange})
	require.NoError(t, err)
	require.NotEqual(t, change.LockArg(), first.LockArg())

	_, err = NewHDKeyRingFromMnemonic("not a valid mnemonic", "")
	require.Error(t, err)

	// The same mnemonic always restores the same keys.
	restored, err := NewHDKeyRingFromMnemonic(mnemonic, "")
	require.NoError(t, err)
	again, err := restored.DeriveKey(first.KeyLocator)
	require.NoError(t, err)
	require.True(t, again.PubKey.IsEqual(first.PubKey))
}

func TestKeyStore(t *testing.T) {
	t.Parallel()

	store := NewKeyStore()
	arg, err := store.AddHex(genesisPrivKey)
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	signer, err := store.SignerForLockArg(arg[:])
	require.NoError(t, err)
	require.Equal(t, arg, LockArg(signer.PubKey()))

	_, err = store.SignerForLockArg(make([]byte, LockArgSize))
	require.ErrorIs(t, err, ErrUnknownLockArg)

	_, err = store.SignerForLockArg([]byte{1})
	require.ErrorIs(t, err, ErrUnknownLockArg)

	_, err = store.AddHex("nope")
	require.Error(t, err)
}
