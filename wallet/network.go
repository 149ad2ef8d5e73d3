package wallet

import (
	"fmt"

	chaincfg "github.com/bsv-blockchain/go-sdk/transaction/chaincfg"
)

// NetworkConfig defines the address and key parameters of an eCash network.
type NetworkConfig struct {
	Name         string `json:"name"`
	CashAddrHRP  string `json:"cashaddr_prefix"`
	DefaultPort  uint16 `json:"default_port"`
	TokenDustSat uint64 `json:"token_dust"`
}

// Predefined network configurations.
var (
	MainNet = NetworkConfig{
		Name:         "mainnet",
		CashAddrHRP:  "ecash",
		DefaultPort:  8333,
		TokenDustSat: 546,
	}

	TestNet = NetworkConfig{
		Name:         "testnet",
		CashAddrHRP:  "ectest",
		DefaultPort:  18333,
		TokenDustSat: 546,
	}

	RegTest = NetworkConfig{
		Name:         "regtest",
		CashAddrHRP:  "ecregtest",
		DefaultPort:  18444,
		TokenDustSat: 546,
	}
)

var predefined = map[string]*NetworkConfig{
	"mainnet": &MainNet,
	"testnet": &TestNet,
	"regtest": &RegTest,
}

// GetNetwork returns a predefined network by name.
func GetNetwork(name string) (*NetworkConfig, error) {
	if net, ok := predefined[name]; ok {
		return net, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidNetwork, name)
}

// networkForPrefix maps a cashaddr prefix back to its network.
func networkForPrefix(prefix string) (*NetworkConfig, bool) {
	for _, n := range predefined {
		if n.CashAddrHRP == prefix {
			return n, true
		}
	}
	return nil, false
}

// chainParams selects the BIP32 serialization parameters. Only the extended
// key version bytes depend on it; derived keys are identical either way.
func (n *NetworkConfig) chainParams() *chaincfg.Params {
	if n.Name == "mainnet" {
		return &chaincfg.MainNet
	}
	return &chaincfg.TestNet
}
