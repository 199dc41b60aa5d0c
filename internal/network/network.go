// Package network names the ledgers signerd can hold spending authority for.
package network

import (
	"fmt"

	"github.com/mrz1836/signerd/pkg/signererr"
)

// Network identifies one of the ledgers signerd manages per-network state for.
type Network int

// The three concrete networks this signer supports.
const (
	Dolphin Network = iota
	Calamari
	Manta
)

// All lists every known network, in the order state files are initialized.
func All() []Network {
	return []Network{Dolphin, Calamari, Manta}
}

// String renders the network's lowercase name, also used as its file-name
// component and its wire-format string.
func (n Network) String() string {
	switch n {
	case Dolphin:
		return "dolphin"
	case Calamari:
		return "calamari"
	case Manta:
		return "manta"
	default:
		return fmt.Sprintf("network(%d)", int(n))
	}
}

// Parse resolves a network by its String() name.
func Parse(s string) (Network, error) {
	for _, n := range All() {
		if n.String() == s {
			return n, nil
		}
	}
	return 0, signererr.WithDetails(signererr.ErrUnknownNetwork, map[string]string{"network": s})
}

// MarshalJSON renders the network as its string name.
func (n Network) MarshalJSON() ([]byte, error) {
	return []byte(`"` + n.String() + `"`), nil
}

// UnmarshalJSON parses the network from its string name.
func (n *Network) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
