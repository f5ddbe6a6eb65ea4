package domain

// Network identifies a supported blockchain network.
type Network string

const (
	NetworkEthereum  Network = "ethereum"
	NetworkSolana    Network = "solana"
	NetworkBSC       Network = "bsc"
	NetworkPolygon   Network = "polygon"
	NetworkArbitrum  Network = "arbitrum"
	NetworkOptimism  Network = "optimism"
	NetworkAvalanche Network = "avalanche"
	NetworkFantom    Network = "fantom"
)

// chainIDs maps each supported network to its canonical chain ID. Solana has
// no EVM chain ID; 101 is its mainnet cluster identifier.
var chainIDs = map[Network]int{
	NetworkEthereum:  1,
	NetworkSolana:    101,
	NetworkBSC:       56,
	NetworkPolygon:   137,
	NetworkArbitrum:  42161,
	NetworkOptimism:  10,
	NetworkAvalanche: 43114,
	NetworkFantom:    250,
}

// ChainID returns the chain ID for the network and whether it is supported.
func (n Network) ChainID() (int, bool) {
	id, ok := chainIDs[n]
	return id, ok
}

// Supported reports whether the network is known.
func (n Network) Supported() bool {
	_, ok := chainIDs[n]
	return ok
}

// EVM reports whether the network uses EVM-style 0x addresses.
func (n Network) EVM() bool {
	return n.Supported() && n != NetworkSolana
}

// Networks lists all supported networks.
func Networks() []Network {
	return []Network{
		NetworkEthereum, NetworkSolana, NetworkBSC, NetworkPolygon,
		NetworkArbitrum, NetworkOptimism, NetworkAvalanche, NetworkFantom,
	}
}
