// Package zkp models the zero-knowledge proving system as an external
// collaborator: it specifies how the signer server loads proving
// parameters and drives proof generation, without implementing a concrete
// pairing/SNARK backend itself (that system's implementation is explicitly
// out of scope — see the module's top-level design notes).
package zkp

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Parameters is the opaque, load-once-at-startup blob the proving system
// needs: key-agreement, commitment, and void-number-hash parameters in the
// original implementation's terms. This module treats it as opaque bytes
// per network, mirroring original_source/src/parameters.rs's "download and
// decode on first use" pattern without depending on the concrete manta-pay
// circuit definitions.
type Parameters struct {
	Mint            []byte
	PrivateTransfer []byte
	Reclaim         []byte
}

// LoadParameters reads the three proving-context blobs for a network from
// dir/{mint,private-transfer,reclaim}.dat, the same file layout
// original_source/src/parameters.rs uses under sdk/data/pay/<network>/proving.
// Missing files are not an error here: an empty Parameters is returned so a
// fresh install can still start the server before the external collaborator
// has provisioned real parameter data. Nothing in this package rejects a
// Prove call over missing parameters either: StubProver proves with
// whatever was loaded, and Ready reports whether all three are present.
func LoadParameters(dir string) (*Parameters, error) {
	read := func(name string) ([]byte, error) {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if os.IsNotExist(err) {
			return nil, nil
		}
		return b, err
	}

	mint, err := read("mint.dat")
	if err != nil {
		return nil, fmt.Errorf("loading mint proving context: %w", err)
	}
	transfer, err := read("private-transfer.dat")
	if err != nil {
		return nil, fmt.Errorf("loading private-transfer proving context: %w", err)
	}
	reclaim, err := read("reclaim.dat")
	if err != nil {
		return nil, fmt.Errorf("loading reclaim proving context: %w", err)
	}

	return &Parameters{Mint: mint, PrivateTransfer: transfer, Reclaim: reclaim}, nil
}

// Ready reports whether every proving context has been provisioned.
func (p *Parameters) Ready() bool {
	return len(p.Mint) > 0 && len(p.PrivateTransfer) > 0 && len(p.Reclaim) > 0
}

// Commitment is an opaque 32-byte UTxO commitment or nullifier value.
type Commitment [32]byte

// UtxoAccumulatorModel is the opaque, load-once model the accumulator's
// hashing scheme is instantiated from (original's UtxoSetModel).
type UtxoAccumulatorModel struct {
	Data []byte
}

// LoadUtxoAccumulatorModel reads the accumulator model blob, mirroring
// original_source/src/parameters.rs's load_utxo_set_model.
func LoadUtxoAccumulatorModel(dir string) (*UtxoAccumulatorModel, error) {
	b, err := os.ReadFile(filepath.Join(dir, "utxo-set-model.dat"))
	if os.IsNotExist(err) {
		return &UtxoAccumulatorModel{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading utxo accumulator model: %w", err)
	}
	return &UtxoAccumulatorModel{Data: b}, nil
}

// UtxoAccumulator is an incrementally-updated set of UTxO commitments and
// spent nullifiers, checkpointed by height. The real accumulator is a
// cryptographic Merkle-forest structure; this module only needs the
// interface the signer drives (insert, contains, checkpoint), so it is kept
// as plain map-backed (unordered) sets standing in for that structure.
type UtxoAccumulator struct {
	model        *UtxoAccumulatorModel
	checkpoint   uint64
	commitments  map[Commitment]struct{}
	nullifiers   map[Commitment]struct{}
}

// NewUtxoAccumulator constructs an empty accumulator over model.
func NewUtxoAccumulator(model *UtxoAccumulatorModel) *UtxoAccumulator {
	return &UtxoAccumulator{
		model:       model,
		commitments: make(map[Commitment]struct{}),
		nullifiers:  make(map[Commitment]struct{}),
	}
}

// Checkpoint returns the accumulator's current height.
func (a *UtxoAccumulator) Checkpoint() uint64 { return a.checkpoint }

// Insert records a newly observed UTxO commitment and advances the
// checkpoint by one.
func (a *UtxoAccumulator) Insert(c Commitment) {
	a.commitments[c] = struct{}{}
	a.checkpoint++
}

// Contains reports whether c has been inserted.
func (a *UtxoAccumulator) Contains(c Commitment) bool {
	_, ok := a.commitments[c]
	return ok
}

// Spend records a nullifier for a spent UTxO. It is idempotent: spending an
// already-spent nullifier is a no-op, matching the original's void-number
// set semantics where a double-spend attempt is simply rejected upstream of
// this accumulator.
func (a *UtxoAccumulator) Spend(n Commitment) {
	a.nullifiers[n] = struct{}{}
}

// IsSpent reports whether n has already been recorded as spent.
func (a *UtxoAccumulator) IsSpent(n Commitment) bool {
	_, ok := a.nullifiers[n]
	return ok
}

// snapshot is the serializable form of an UtxoAccumulator, used by
// internal/statefile to persist it inside a network's signer state.
type snapshot struct {
	Checkpoint  uint64       `json:"checkpoint"`
	Commitments []Commitment `json:"commitments"`
	Nullifiers  []Commitment `json:"nullifiers"`
}

// Marshal serializes the accumulator for persistence.
func (a *UtxoAccumulator) Marshal() ([]byte, error) {
	s := snapshot{Checkpoint: a.checkpoint}
	for c := range a.commitments {
		s.Commitments = append(s.Commitments, c)
	}
	for n := range a.nullifiers {
		s.Nullifiers = append(s.Nullifiers, n)
	}
	return json.Marshal(s)
}

// UnmarshalUtxoAccumulator restores an accumulator previously produced by
// Marshal.
func UnmarshalUtxoAccumulator(model *UtxoAccumulatorModel, data []byte) (*UtxoAccumulator, error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding utxo accumulator snapshot: %w", err)
	}
	a := NewUtxoAccumulator(model)
	a.checkpoint = s.Checkpoint
	for _, c := range s.Commitments {
		a.commitments[c] = struct{}{}
	}
	for _, n := range s.Nullifiers {
		a.nullifiers[n] = struct{}{}
	}
	return a, nil
}

// Proof is the opaque output of a Prover's Prove call.
type Proof struct {
	Data []byte
}

// Prover is the external collaborator's proving capability: given loaded
// Parameters, a spending key, and the accumulator state a transaction's
// inputs must be proven against, produce a Proof. This module specifies
// only the call shape the signer server uses; no concrete implementation is
// provided here (see the top-level design notes on why no SNARK/KZG library
// is wired to a concrete backend).
type Prover interface {
	Prove(params *Parameters, accumulator *UtxoAccumulator, spendingKey []byte, payload []byte) (Proof, error)
}

// StubProver is a deterministic, non-cryptographic Prove implementation
// used so the server's dispatch logic can be exercised end-to-end in tests
// without a real proving backend. It is not a security boundary: the
// "proof" it emits is an HMAC-free hash binding of its inputs, suitable
// only for asserting that the right inputs reached the right call.
type StubProver struct{}

// Prove returns a SHA-256 digest of the concatenated inputs as a stand-in
// proof.
func (StubProver) Prove(params *Parameters, accumulator *UtxoAccumulator, spendingKey []byte, payload []byte) (Proof, error) {
	h := sha256.New()
	if params != nil {
		h.Write(params.Mint)
		h.Write(params.PrivateTransfer)
		h.Write(params.Reclaim)
	}
	if accumulator != nil {
		var cp [8]byte
		for i := range cp {
			cp[i] = byte(accumulator.checkpoint >> (8 * i))
		}
		h.Write(cp[:])
	}
	h.Write(spendingKey)
	h.Write(payload)
	return Proof{Data: h.Sum(nil)}, nil
}
