package labs

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ckb-labs/ckblab/address"
	"github.com/ckb-labs/ckblab/chainparams"
	"github.com/ckb-labs/ckblab/ckbwire"
	"github.com/ckb-labs/ckblab/keychain"
)

// Private keys of the lab accounts. They are well known and only hold funds
// on development chains.
const (
	AlicePrivKey   = "0x81dabf8f74553c07999e1400a8ecc4abc44ef81c9466e6037bd36e4ad1631c17"
	BobPrivKey     = "0x5e3bcd5a3c082c9eb1559930417710a39c5249b31090d88de2a2855149d0d981"
	CharliePrivKey = "0xdb159ba4ba1ec8abdb7e9f570c7a1a1febf05eeb3f5d6ebdd50ee3bde7740189"
	DanielPrivKey  = "0x67842f5e4fa0edb34c9b4adbe8c3c1f3c737941f7c875d18bc6ec2f80554111d"

	// GenesisPrivKey owns the first genesis allocation of a devnet and
	// funds the other accounts.
	GenesisPrivKey = "0xd00c06bfd800d27397002dca6fb0993d5ba6399b4238b2f29ee9deb97593d2bc"
)

// Account is a lab participant using the default lock.
type Account struct {
	Name    string
	PrivKey *btcec.PrivateKey
	LockArg [keychain.LockArgSize]byte
}

// NewAccount parses a hex private key.
func NewAccount(name, privKeyHex string) (*Account, error) {
	key, err := keychain.ParsePrivateKey(privKeyHex)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", name, err)
	}

	return &Account{
		Name:    name,
		PrivKey: key,
		LockArg: keychain.LockArg(key.PubKey()),
	}, nil
}

// Lock returns the account's default lock on the given network.
func (a *Account) Lock(params *chainparams.Params) *ckbwire.Script {
	return params.DefaultLock(a.LockArg[:])
}

// Address returns the full format address of the account's default lock.
func (a *Account) Address(params *chainparams.Params) (string, error) {
	return address.Encode(a.Lock(params), params.AddressPrefix)
}

// Accounts are the participants of the labs.
type Accounts struct {
	Alice   *Account
	Bob     *Account
	Charlie *Account
	Daniel  *Account
	Genesis *Account
}

// DefaultAccounts returns the lab accounts.
func DefaultAccounts() (*Accounts, error) {
	accounts := &Accounts{}
	keys := []struct {
		name string
		hex  string
		dst  **Account
	}{
		{"Alice", AlicePrivKey, &accounts.Alice},
		{"Bob", BobPrivKey, &accounts.Bob},
		{"Charlie", CharliePrivKey, &accounts.Charlie},
		{"Daniel", DanielPrivKey, &accounts.Daniel},
		{"Genesis", GenesisPrivKey, &accounts.Genesis},
	}

	for _, k := range keys {
		account, err := NewAccount(k.name, k.hex)
		if err != nil {
			return nil, err
		}
		*k.dst = account
	}

	return accounts, nil
}

// All returns every account, genesis last.
func (a *Accounts) All() []*Account {
	return []*Account{a.Alice, a.Bob, a.Charlie, a.Daniel, a.Genesis}
}

// KeyStore returns a key store holding every account's key.
func (a *Accounts) KeyStore() *keychain.KeyStore {
	store := keychain.NewKeyStore()
	for _, account := range a.All() {
		store.Add(account.PrivKey)
	}

	return store
}
