// Package signer produces the secp256k1_blake160 sighash-all signatures of a
// transaction skeleton and seals them into its witnesses.
package signer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ckb-labs/ckblab/chainparams"
	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbwire"
	"github.com/ckb-labs/ckblab/keychain"
	"github.com/ckb-labs/ckblab/txbuilder"
)

var (
	// ErrMissingWitness is returned when a lock group has no witness to
	// hold its signature.
	ErrMissingWitness = errors.New("missing witness placeholder")

	// ErrSignatureCount is returned when the number of signatures does
	// not match the number of signing entries.
	ErrSignatureCount = errors.New("signature count mismatch")

	// ErrSignatureMismatch is returned when a sealed signature was not
	// made by the key its lock expects.
	ErrSignatureMismatch = errors.New("signature does not match lock")
)

// KeyRing finds the signer for a secp256k1_blake160 lock arg.
type KeyRing interface {
	SignerForLockArg(arg []byte) (keychain.DigestSigner, error)
}

// A compile time check to ensure the key store can sign for us.
var _ KeyRing = (*keychain.KeyStore)(nil)

// SigningEntry is the message one lock group has to sign.
type SigningEntry struct {
	// Group is the lock group the signature unlocks.
	Group txbuilder.LockGroup

	// WitnessIndex is the index of the witness receiving the
	// signature, the group's first input.
	WitnessIndex int

	// Message is the sighash-all digest to sign.
	Message ckbhash.Hash
}

// LockGroups groups the skeleton's inputs by lock hash in first-seen order.
func LockGroups(s *txbuilder.Skeleton) []txbuilder.LockGroup {
	return s.LockGroups()
}

func writeWitness(w *bytes.Buffer, witness []byte) {
	var length [8]byte
	binary.LittleEndian.PutUint64(length[:], uint64(len(witness)))
	w.Write(length[:])
	w.Write(witness)
}

// PrepareSigningEntries computes the sighash-all message of every lock group
// running the given lock script. Groups of other locks are skipped, their
// scripts do not check signatures of this kind.
//
// The message hashes the transaction hash, then for each witness of the
// group its u64 length and bytes, with the first witness's lock replaced by
// zeros, and finally every witness past the input count.
func PrepareSigningEntries(s *txbuilder.Skeleton,
	lock *chainparams.SystemScript) ([]SigningEntry, error) {

	if len(s.Witnesses) < len(s.Inputs) {
		return nil, fmt.Errorf("%w: %d witnesses for %d inputs",
			ErrMissingWitness, len(s.Witnesses), len(s.Inputs))
	}

	txHash := s.TxHash()

	var entries []SigningEntry
	for _, group := range s.LockGroups() {
		if !lock.Matches(&group.Lock) {
			log.Tracef("Skipping lock group %v of foreign lock",
				group.LockHash)
			continue
		}

		first := group.InputIndices[0]
		witnessArgs, err := ckbwire.DeserializeWitnessArgs(
			s.Witnesses[first],
		)
		if err != nil {
			return nil, fmt.Errorf("%w: witness %d: %v",
				ErrMissingWitness, first, err)
		}
		witnessArgs.Lock = make(
			[]byte, txbuilder.SignaturePlaceholderSize,
		)

		var msg bytes.Buffer
		msg.Write(txHash[:])
		writeWitness(&msg, witnessArgs.Serialize())
		for _, idx := range group.InputIndices[1:] {
			writeWitness(&msg, s.Witnesses[idx])
		}
		for _, w := range s.Witnesses[len(s.Inputs):] {
			writeWitness(&msg, w)
		}

		entries = append(entries, SigningEntry{
			Group:        group,
			WitnessIndex: first,
			Message:      ckbhash.Blake2b256(msg.Bytes()),
		})
	}

	return entries, nil
}

// SignEntries signs every entry with the key matching its lock args.
func SignEntries(entries []SigningEntry, ring KeyRing) ([][]byte, error) {
	sigs := make([][]byte, len(entries))
	for i, entry := range entries {
		signer, err := ring.SignerForLockArg(entry.Group.Lock.Args)
		if err != nil {
			return nil, fmt.Errorf("lock group %v: %w",
				entry.Group.LockHash, err)
		}

		sigs[i], err = signer.SignRecoverable(entry.Message)
		if err != nil {
			return nil, err
		}
	}

	return sigs, nil
}

// SealTransaction places the signatures, in entry order, into the lock
// field of each group's first witness and returns the final transaction.
func SealTransaction(s *txbuilder.Skeleton, entries []SigningEntry,
	sigs [][]byte) (*ckbwire.Transaction, error) {

	if len(entries) != len(sigs) {
		return nil, fmt.Errorf("%w: %d entries, %d signatures",
			ErrSignatureCount, len(entries), len(sigs))
	}

	tx := s.Build()
	for i, entry := range entries {
		if len(sigs[i]) != keychain.RecoverableSigSize {
			return nil, fmt.Errorf("%w: signature %d has %d bytes",
				keychain.ErrInvalidSignature, i, len(sigs[i]))
		}

		witnessArgs, err := ckbwire.DeserializeWitnessArgs(
			tx.Witnesses[entry.WitnessIndex],
		)
		if err != nil {
			return nil, fmt.Errorf("%w: witness %d: %v",
				ErrMissingWitness, entry.WitnessIndex, err)
		}
		witnessArgs.Lock = sigs[i]
		tx.Witnesses[entry.WitnessIndex] = witnessArgs.Serialize()
	}

	return tx, nil
}

// SignTransaction signs every group of the given lock with keys from ring
// and seals the signatures. A group without a key in ring is an error.
func SignTransaction(s *txbuilder.Skeleton, lock *chainparams.SystemScript,
	ring KeyRing) (*ckbwire.Transaction, error) {

	entries, err := PrepareSigningEntries(s, lock)
	if err != nil {
		return nil, err
	}

	sigs, err := SignEntries(entries, ring)
	if err != nil {
		return nil, err
	}

	tx, err := SealTransaction(s, entries, sigs)
	if err != nil {
		return nil, err
	}

	log.Debugf("Signed transaction %v with %d signatures", tx.Hash(),
		len(sigs))

	return tx, nil
}

// VerifyTransaction checks that every group of the given lock in a sealed
// skeleton carries a signature by the key its lock args commit to.
func VerifyTransaction(s *txbuilder.Skeleton,
	lock *chainparams.SystemScript) error {

	entries, err := PrepareSigningEntries(s, lock)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		witnessArgs, err := ckbwire.DeserializeWitnessArgs(
			s.Witnesses[entry.WitnessIndex],
		)
		if err != nil {
			return err
		}

		pub, err := keychain.RecoverPubKey(witnessArgs.Lock, entry.Message)
		if err != nil {
			return fmt.Errorf("lock group %v: %w",
				entry.Group.LockHash, err)
		}

		arg := keychain.LockArg(pub)
		if !bytes.Equal(arg[:], entry.Group.Lock.Args) {
			return fmt.Errorf("%w: lock group %v", ErrSignatureMismatch,
				entry.Group.LockHash)
		}
	}

	return nil
}
