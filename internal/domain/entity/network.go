package entity

import (
	"fmt"
	"strings"

	"stacks-dao-reader/internal/domain"
)

// Network defines the Stacks network a query runs against.
type Network string

// Constants for known networks.
const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
)

// Fixed Hiro API endpoints per network.
const (
	MainnetBaseURL = "https://api.mainnet.hiro.so"
	TestnetBaseURL = "https://api.testnet.hiro.so"
)

// NetworkConfig identifies a network and the API endpoints serving it.
type NetworkConfig struct {
	Name         Network
	BaseURL      string
	WebSocketURL string
}

// ParseNetwork validates a network name.
func ParseNetwork(name string) (Network, error) {
	switch n := Network(strings.ToLower(strings.TrimSpace(name))); n {
	case NetworkMainnet, NetworkTestnet:
		return n, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownNetwork, name)
	}
}

// ResolveNetwork maps a network to its fixed Hiro endpoints.
func ResolveNetwork(network Network) (NetworkConfig, error) {
	return DefaultNetworks().Resolve(network)
}

// NetworkTable is the immutable lookup table built once at startup.
type NetworkTable map[Network]NetworkConfig

// DefaultNetworks returns the table with the public Hiro endpoints.
func DefaultNetworks() NetworkTable {
	return NetworkTable{
		NetworkMainnet: newNetworkConfig(NetworkMainnet, MainnetBaseURL),
		NetworkTestnet: newNetworkConfig(NetworkTestnet, TestnetBaseURL),
	}
}

// NewNetworkTable builds a table from base URL overrides; empty values keep the defaults.
func NewNetworkTable(mainnetURL, testnetURL string) NetworkTable {
	t := DefaultNetworks()
	if mainnetURL != "" {
		t[NetworkMainnet] = newNetworkConfig(NetworkMainnet, mainnetURL)
	}
	if testnetURL != "" {
		t[NetworkTestnet] = newNetworkConfig(NetworkTestnet, testnetURL)
	}
	return t
}

// Resolve returns the configuration for a network or ErrUnknownNetwork.
func (t NetworkTable) Resolve(network Network) (NetworkConfig, error) {
	cfg, ok := t[network]
	if !ok {
		return NetworkConfig{}, fmt.Errorf("%w: %q", domain.ErrUnknownNetwork, network)
	}
	return cfg, nil
}

// NetworkForAddress infers the network from the address version prefix.
func NetworkForAddress(address string) (Network, bool) {
	if len(address) < 2 {
		return "", false
	}
	switch strings.ToUpper(address[:2]) {
	case "SP":
		return NetworkMainnet, true
	case "ST":
		return NetworkTestnet, true
	default:
		return "", false
	}
}

func newNetworkConfig(name Network, baseURL string) NetworkConfig {
	baseURL = strings.TrimRight(baseURL, "/")
	ws := baseURL
	switch {
	case strings.HasPrefix(ws, "https://"):
		ws = "wss://" + strings.TrimPrefix(ws, "https://")
	case strings.HasPrefix(ws, "http://"):
		ws = "ws://" + strings.TrimPrefix(ws, "http://")
	}
	return NetworkConfig{
		Name:         name,
		BaseURL:      baseURL,
		WebSocketURL: ws + "/extended/v1/ws",
	}
}
