// Package signer implements the per-network signer: a spending-key tree
// derived from the account's BIP-39 mnemonic, paired with a zkp.UtxoAccumulator
// tracking which of the ledger's private outputs this account can spend.
package signer

import (
	"sync"

	"github.com/mrz1836/signerd/internal/network"
	"github.com/mrz1836/signerd/internal/zkp"
)

// TransactionShape classifies a sign request the way spec.md §4.6 and
// original_source's TransferShape do: deposits need no authorization, every
// other shape does.
type TransactionShape int

const (
	// ShapeDeposit moves public funds into the private pool. It requires no
	// password authorization (spec.md §4.6 edge case).
	ShapeDeposit TransactionShape = iota
	// ShapeTransfer moves value between private outputs.
	ShapeTransfer
	// ShapeWithdraw moves private funds back out to a public address.
	ShapeWithdraw
)

// RequiresAuthorization reports whether this shape must go through the
// authorizer's password check before proving.
func (s TransactionShape) RequiresAuthorization() bool {
	return s != ShapeDeposit
}

// Asset is a (public ledger identifier, amount) pair moved by a Transaction.
type Asset struct {
	ID    uint64 `json:"id"`
	Value string `json:"value"` // decimal string to avoid precision loss over JSON
}

// Transaction is the payload a sign request asks the signer to prove.
type Transaction struct {
	Shape    TransactionShape `json:"shape"`
	Sources  []Asset          `json:"sources,omitempty"`
	Sinks    []Asset          `json:"sinks,omitempty"`
	Receiver string           `json:"receiver,omitempty"`
}

// SyncRequest carries newly observed ledger commitments and nullifiers for
// this signer to fold into its accumulator.
type SyncRequest struct {
	Checkpoint  uint64
	Commitments []zkp.Commitment
	Nullifiers  []zkp.Commitment
}

// SyncResponse reports the signer's checkpoint after applying a SyncRequest.
type SyncResponse struct {
	Checkpoint uint64
}

// PersistedState is the serializable content of one network's encrypted
// state file: the shared mnemonic (identical across all three networks'
// state files, spec.md §3) and this network's accumulator snapshot.
type PersistedState struct {
	Mnemonic         string
	AccumulatorState []byte
	NextAddressIndex uint32
}

// Signer owns one network's spending-key tree and accumulator, guarded by
// its own mutex so Sync and Sign can be called from server code that already
// holds the server-wide state mutex without risking a second, redundant
// lock acquisition order.
type Signer struct {
	mu          sync.Mutex
	network     network.Network
	tree        *keyTree
	accumulator *zkp.UtxoAccumulator
	model       *zkp.UtxoAccumulatorModel
	mnemonic    string
	nextIndex   uint32
}

// New constructs a Signer for n from mnemonic, with a fresh accumulator.
func New(n network.Network, mnemonic string, model *zkp.UtxoAccumulatorModel) (*Signer, error) {
	seed, err := MnemonicToSeed(mnemonic)
	if err != nil {
		return nil, err
	}
	tree, err := newKeyTree(seed, n)
	if err != nil {
		return nil, err
	}
	return &Signer{
		network:     n,
		tree:        tree,
		accumulator: zkp.NewUtxoAccumulator(model),
		model:       model,
		mnemonic:    mnemonic,
	}, nil
}

// FromPersistedState restores a Signer from a previously saved state blob.
func FromPersistedState(n network.Network, model *zkp.UtxoAccumulatorModel, state *PersistedState) (*Signer, error) {
	seed, err := MnemonicToSeed(state.Mnemonic)
	if err != nil {
		return nil, err
	}
	tree, err := newKeyTree(seed, n)
	if err != nil {
		return nil, err
	}

	var acc *zkp.UtxoAccumulator
	if len(state.AccumulatorState) > 0 {
		acc, err = zkp.UnmarshalUtxoAccumulator(model, state.AccumulatorState)
		if err != nil {
			return nil, err
		}
	} else {
		acc = zkp.NewUtxoAccumulator(model)
	}

	return &Signer{
		network:     n,
		tree:        tree,
		accumulator: acc,
		model:       model,
		mnemonic:    state.Mnemonic,
		nextIndex:   state.NextAddressIndex,
	}, nil
}

// Network reports which network this signer serves.
func (s *Signer) Network() network.Network { return s.network }

// State captures the signer's current content for persistence.
func (s *Signer) State() (*PersistedState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accState, err := s.accumulator.Marshal()
	if err != nil {
		return nil, err
	}
	return &PersistedState{Mnemonic: s.mnemonic, AccumulatorState: accState, NextAddressIndex: s.nextIndex}, nil
}

// Sync folds newly observed commitments and nullifiers into the
// accumulator and returns the resulting checkpoint.
func (s *Signer) Sync(req SyncRequest) SyncResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range req.Commitments {
		s.accumulator.Insert(c)
	}
	for _, n := range req.Nullifiers {
		s.accumulator.Spend(n)
	}
	return SyncResponse{Checkpoint: s.accumulator.Checkpoint()}
}

// Address derives the next count receiving addresses for this network,
// advancing the signer's address-index cursor.
func (s *Signer) Address(count int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	addrs := make([]string, 0, count)
	for i := 0; i < count; i++ {
		addr, err := s.tree.ReceivingAddress(s.nextIndex)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
		s.nextIndex++
	}
	return addrs, nil
}

// Sign produces a proof for tx using prover, binding the accumulator's
// current checkpoint and the spending key at addressIndex.
func (s *Signer) Sign(prover zkp.Prover, params *zkp.Parameters, addressIndex uint32, tx Transaction) (zkp.Proof, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	spendingKey, err := s.tree.SpendingKey(addressIndex)
	if err != nil {
		return zkp.Proof{}, err
	}

	payload := encodeTransaction(tx)
	return prover.Prove(params, s.accumulator, spendingKey, payload)
}

func encodeTransaction(tx Transaction) []byte {
	var b []byte
	b = append(b, byte(tx.Shape))
	for _, a := range tx.Sources {
		b = append(b, []byte(a.Value)...)
	}
	for _, a := range tx.Sinks {
		b = append(b, []byte(a.Value)...)
	}
	b = append(b, []byte(tx.Receiver)...)
	return b
}
