// Package address encodes and decodes CKB addresses. An address is the
// bech32 or bech32m encoding of a lock script, prefixed with a network
// specific human readable part.
package address

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbwire"
)

// Network is the human readable part of an address.
type Network string

const (
	// Mainnet addresses start with ckb.
	Mainnet Network = "ckb"

	// Testnet addresses start with ckt. Dev chains use the same prefix.
	Testnet Network = "ckt"
)

// Format is the first byte of an address payload.
type Format byte

const (
	// FormatFull encodes code hash, hash type and args, using bech32m.
	FormatFull Format = 0x00

	// FormatShort references one of a few well known locks by index.
	//
	// Deprecated: only decoded, never produced.
	FormatShort Format = 0x01

	// FormatFullData is the old full format for data hash types.
	//
	// Deprecated: only decoded, never produced.
	FormatFullData Format = 0x02

	// FormatFullType is the old full format for type hash types.
	//
	// Deprecated: only decoded, never produced.
	FormatFullType Format = 0x04
)

// String returns a short name of the format.
func (f Format) String() string {
	switch f {
	case FormatFull:
		return "full"
	case FormatShort:
		return "short"
	case FormatFullData:
		return "full_data"
	case FormatFullType:
		return "full_type"
	default:
		return fmt.Sprintf("unknown(%#x)", byte(f))
	}
}

// Code hash indexes of the short format.
const (
	CodeIndexSecp256k1Blake160 byte = 0x00
	CodeIndexSecp256k1Multisig byte = 0x01
	CodeIndexAnyoneCanPay      byte = 0x02
)

var (
	// ErrUnknownNetwork is returned for an unknown address prefix.
	ErrUnknownNetwork = errors.New("unknown address prefix")

	// ErrUnknownFormat is returned for an unknown payload format byte.
	ErrUnknownFormat = errors.New("unknown address format")

	// ErrInvalidPayload is returned when a payload has the wrong length
	// for its format.
	ErrInvalidPayload = errors.New("invalid address payload")
)

var (
	secp256k1Blake160CodeHash = ckbhash.MustHashFromStr(
		"0x9bd7e06f3ecf4be0f2fcd2188b23f1b9fcc88e5d4b65a8637b17723bbda3cce8",
	)
	secp256k1MultisigCodeHash = ckbhash.MustHashFromStr(
		"0x5c5069eb0857efc65e1bca0c07df34c31663b3622fd3876c876320fc9634e2a8",
	)
	anyoneCanPayMainnetCodeHash = ckbhash.MustHashFromStr(
		"0xd369597ff47f29fbc0d47d2e3775370d1250b85140c670e4718af712983a2354",
	)
	anyoneCanPayTestnetCodeHash = ckbhash.MustHashFromStr(
		"0x3419a1c09eb2567f6552ee7a8ecffd64155cffe0f1796e6e61ec088d740c1356",
	)
)

// shortCodeHash resolves the code hash behind a short format index.
func shortCodeHash(net Network, index byte) (ckbhash.Hash, error) {
	switch index {
	case CodeIndexSecp256k1Blake160:
		return secp256k1Blake160CodeHash, nil
	case CodeIndexSecp256k1Multisig:
		return secp256k1MultisigCodeHash, nil
	case CodeIndexAnyoneCanPay:
		if net == Mainnet {
			return anyoneCanPayMainnetCodeHash, nil
		}
		return anyoneCanPayTestnetCodeHash, nil
	default:
		return ckbhash.Hash{}, fmt.Errorf("%w: short code index %d",
			ErrInvalidPayload, index)
	}
}

// Address is a decoded address.
type Address struct {
	Network Network
	Format  Format
	Script  ckbwire.Script
}

// String encodes the address in the full format.
func (a *Address) String() string {
	s, err := Encode(&a.Script, a.Network)
	if err != nil {
		return fmt.Sprintf("<invalid address: %v>", err)
	}

	return s
}

// Encode returns the full format address of a lock script.
func Encode(lock *ckbwire.Script, net Network) (string, error) {
	if net != Mainnet && net != Testnet {
		return "", fmt.Errorf("%w: %q", ErrUnknownNetwork, net)
	}
	if !lock.HashType.IsValid() {
		return "", fmt.Errorf("invalid hash type %d", lock.HashType)
	}

	payload := make([]byte, 0, 1+ckbhash.HashSize+1+len(lock.Args))
	payload = append(payload, byte(FormatFull))
	payload = append(payload, lock.CodeHash[:]...)
	payload = append(payload, byte(lock.HashType))
	payload = append(payload, lock.Args...)

	data, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", err
	}

	return bech32.EncodeM(string(net), data)
}

// Decode parses an address of any format. Addresses are longer than the 90
// characters BIP-173 allows, so no length limit is applied.
func Decode(addr string) (*Address, error) {
	hrp, data, err := bech32.DecodeNoLimit(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", addr, err)
	}

	net := Network(hrp)
	if net != Mainnet && net != Testnet {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, hrp)
	}

	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if len(payload) == 0 {
		return nil, ErrInvalidPayload
	}

	a := &Address{Network: net, Format: Format(payload[0])}
	body := payload[1:]

	switch a.Format {
	case FormatFull:
		if len(body) < ckbhash.HashSize+1 {
			return nil, fmt.Errorf("%w: full payload of %d bytes",
				ErrInvalidPayload, len(body))
		}
		copy(a.Script.CodeHash[:], body[:ckbhash.HashSize])
		a.Script.HashType = ckbwire.HashType(body[ckbhash.HashSize])
		if !a.Script.HashType.IsValid() {
			return nil, fmt.Errorf("%w: hash type %d",
				ErrInvalidPayload, a.Script.HashType)
		}
		a.Script.Args = copyBytes(body[ckbhash.HashSize+1:])

	case FormatShort:
		if len(body) != 1+ckbhash.Blake160Size {
			return nil, fmt.Errorf("%w: short payload of %d bytes",
				ErrInvalidPayload, len(body))
		}
		a.Script.CodeHash, err = shortCodeHash(net, body[0])
		if err != nil {
			return nil, err
		}
		a.Script.HashType = ckbwire.HashTypeType
		a.Script.Args = copyBytes(body[1:])

	case FormatFullData, FormatFullType:
		if len(body) < ckbhash.HashSize {
			return nil, fmt.Errorf("%w: payload of %d bytes",
				ErrInvalidPayload, len(body))
		}
		copy(a.Script.CodeHash[:], body[:ckbhash.HashSize])
		a.Script.HashType = ckbwire.HashTypeData
		if a.Format == FormatFullType {
			a.Script.HashType = ckbwire.HashTypeType
		}
		a.Script.Args = copyBytes(body[ckbhash.HashSize:])

	default:
		return nil, fmt.Errorf("%w: %#x", ErrUnknownFormat, payload[0])
	}

	return a, nil
}

// DecodeForNetwork decodes an address and checks it belongs to net.
func DecodeForNetwork(addr string, net Network) (*Address, error) {
	a, err := Decode(addr)
	if err != nil {
		return nil, err
	}
	if a.Network != net {
		return nil, fmt.Errorf("address %s is for network %q, not %q",
			addr, a.Network, net)
	}

	return a, nil
}

func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)

	return out
}
