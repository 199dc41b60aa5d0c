package signer

import (
	"fmt"

	"github.com/tyler-smith/go-bip32"

	"github.com/mrz1836/signerd/internal/network"
)

// accountIndex assigns each network a distinct hardened account under the
// shared mnemonic, so the three networks' spending keys are independent
// even though they are recovered from one recovery phrase (spec.md §3: "the
// mnemonic is identical across all three per-network states").
func accountIndex(n network.Network) uint32 {
	switch n {
	case network.Dolphin:
		return 0
	case network.Calamari:
		return 1
	case network.Manta:
		return 2
	default:
		return 0
	}
}

// MaxAddressDerivation bounds how many spending-key indices a signer will
// derive under its account, mirroring the teacher's DeriveAddresses bound
// to keep a pathological Address request from spinning forever.
const MaxAddressDerivation = 100_000

// keyTree is a BIP-32 hierarchical key tree rooted at one network's
// hardened account, standing in for the shielded-pool spending-key
// hierarchy: m/44'/1'/<accountIndex>'/<addressIndex>'.
type keyTree struct {
	account *bip32.Key
}

func newKeyTree(seed []byte, n network.Network) (*keyTree, error) {
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("deriving master key: %w", err)
	}
	purpose, err := master.NewChildKey(bip32.FirstHardenedChild + 44)
	if err != nil {
		return nil, fmt.Errorf("deriving purpose key: %w", err)
	}
	coinType, err := purpose.NewChildKey(bip32.FirstHardenedChild + 1)
	if err != nil {
		return nil, fmt.Errorf("deriving coin-type key: %w", err)
	}
	account, err := coinType.NewChildKey(bip32.FirstHardenedChild + accountIndex(n))
	if err != nil {
		return nil, fmt.Errorf("deriving account key for %s: %w", n, err)
	}
	return &keyTree{account: account}, nil
}

// SpendingKey derives the spending key at addressIndex under this network's
// account, hardened so the public spend key cannot be derived from a leaked
// parent public key alone.
func (t *keyTree) SpendingKey(addressIndex uint32) ([]byte, error) {
	if addressIndex >= MaxAddressDerivation {
		return nil, fmt.Errorf("address index %d exceeds maximum %d", addressIndex, MaxAddressDerivation)
	}
	child, err := t.account.NewChildKey(bip32.FirstHardenedChild + addressIndex)
	if err != nil {
		return nil, fmt.Errorf("deriving spending key at index %d: %w", addressIndex, err)
	}
	key := make([]byte, len(child.Key))
	copy(key, child.Key)
	return key, nil
}

// ReceivingAddress derives the public identifier for addressIndex, the
// value a wallet front-end shares with counterparties to receive private
// assets (spec.md §6 receivingKeys).
func (t *keyTree) ReceivingAddress(addressIndex uint32) (string, error) {
	if addressIndex >= MaxAddressDerivation {
		return "", fmt.Errorf("address index %d exceeds maximum %d", addressIndex, MaxAddressDerivation)
	}
	child, err := t.account.NewChildKey(bip32.FirstHardenedChild + addressIndex)
	if err != nil {
		return "", fmt.Errorf("deriving address key at index %d: %w", addressIndex, err)
	}
	return child.PublicKey().B58Serialize(), nil
}
