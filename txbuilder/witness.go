package txbuilder

import (
	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbwire"
)

// SignaturePlaceholderSize is the size of a secp256k1 recoverable signature,
// which is what the lock field of a group's first witness reserves.
const SignaturePlaceholderSize = 65

// LockGroup is the set of inputs sharing one lock script. The lock script
// runs once per group and reads its signature from the witness of the
// group's first input.
type LockGroup struct {
	LockHash ckbhash.Hash
	Lock     ckbwire.Script

	// InputIndices lists the group's inputs in transaction order.
	InputIndices []int
}

// LockGroups groups the skeleton's inputs by lock hash, in the order each
// lock is first seen.
func (s *Skeleton) LockGroups() []LockGroup {
	var (
		groups []LockGroup
		index  = make(map[ckbhash.Hash]int)
	)

	for i := range s.Inputs {
		lock := &s.Inputs[i].Output.Lock
		hash := lock.Hash()

		g, ok := index[hash]
		if !ok {
			g = len(groups)
			index[hash] = g
			groups = append(groups, LockGroup{
				LockHash: hash,
				Lock:     *lock.Copy(),
			})
		}
		groups[g].InputIndices = append(groups[g].InputIndices, i)
	}

	return groups
}

// PlaceholderWitness returns a WitnessArgs whose lock reserves room for a
// signature. The type fields of an existing WitnessArgs are kept.
func PlaceholderWitness(existing []byte) []byte {
	args := &ckbwire.WitnessArgs{}
	if len(existing) > 0 {
		if parsed, err := ckbwire.DeserializeWitnessArgs(existing); err == nil {
			args = parsed
		}
	}
	args.Lock = make([]byte, SignaturePlaceholderSize)

	return args.Serialize()
}

// AddDefaultWitnessPlaceholders lays out one witness per input: a
// WitnessArgs with a zeroed signature for the first input of every lock
// group and an empty witness for the rest. Witnesses beyond the input count
// are kept as they are.
func (s *Skeleton) AddDefaultWitnessPlaceholders() {
	witnesses := make([][]byte, len(s.Inputs))
	for i := range witnesses {
		witnesses[i] = []byte{}
	}

	for _, group := range s.LockGroups() {
		first := group.InputIndices[0]

		var existing []byte
		if first < len(s.Witnesses) {
			existing = s.Witnesses[first]
		}
		witnesses[first] = PlaceholderWitness(existing)
	}

	if len(s.Witnesses) > len(s.Inputs) {
		witnesses = append(witnesses, s.Witnesses[len(s.Inputs):]...)
	}

	s.Witnesses = witnesses
}
