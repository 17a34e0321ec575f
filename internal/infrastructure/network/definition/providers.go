package networkdefinition

import (
	"fmt"
	"sort"
	"strings"

	"escrow_wallet/internal/app/port"
	"escrow_wallet/internal/domain/entity"
	"escrow_wallet/internal/infrastructure/configloader"
)

// NetworkDefinitionProvider provides network definitions.
type NetworkDefinitionProvider struct {
	logger         port.Logger
	allNetworkDefs map[string]entity.NetworkDefinition
	activeDef      entity.NetworkDefinition
}

// Predefined network definitions
var ( //nolint:gochecknoglobals // Global for definitions
	Ethereum = entity.NetworkDefinition{
		ChainID:            1,
		Name:               "Ethereum Mainnet",
		Identifier:         "ethereum",
		NativeSymbol:       "ETH",
		PrimaryRPCURL:      "https://ethereum-rpc.publicnode.com",
		FallbackRPCURLs:    []string{"https://rpc.ankr.com/eth", "https://ethereum.publicnode.com"},
		BlockExplorerURL:   "https://etherscan.io",
		DEXScreenerChainID: "ethereum",
	}
	Sepolia = entity.NetworkDefinition{
		ChainID:          11155111,
		Name:             "Sepolia",
		Identifier:       "sepolia",
		NativeSymbol:     "ETH",
		PrimaryRPCURL:    "https://ethereum-sepolia-rpc.publicnode.com",
		FallbackRPCURLs:  []string{"https://rpc.sepolia.org", "https://sepolia.drpc.org"},
		BlockExplorerURL: "https://sepolia.etherscan.io",
	}
	BSC = entity.NetworkDefinition{
		ChainID:            56,
		Name:               "BNB Smart Chain",
		Identifier:         "bsc",
		NativeSymbol:       "BNB",
		PrimaryRPCURL:      "https://1rpc.io/bnb",
		FallbackRPCURLs:    []string{"https://bsc-dataseed2.binance.org/", "https://bsc.publicnode.com"},
		BlockExplorerURL:   "https://bscscan.com",
		DEXScreenerChainID: "bsc",
	}
	Polygon = entity.NetworkDefinition{
		ChainID:            137,
		Name:               "Polygon PoS",
		Identifier:         "polygon",
		NativeSymbol:       "POL",
		PrimaryRPCURL:      "https://polygon-rpc.com/",
		FallbackRPCURLs:    []string{"https://rpc.ankr.com/polygon", "https://polygon.publicnode.com"},
		BlockExplorerURL:   "https://polygonscan.com",
		DEXScreenerChainID: "polygon",
	}
	Arbitrum = entity.NetworkDefinition{
		ChainID:            42161,
		Name:               "Arbitrum One",
		Identifier:         "arbitrum",
		NativeSymbol:       "ETH",
		PrimaryRPCURL:      "https://arb1.arbitrum.io/rpc",
		FallbackRPCURLs:    []string{"https://arbitrum.llamarpc.com", "https://arbitrum.publicnode.com"},
		BlockExplorerURL:   "https://arbiscan.io",
		DEXScreenerChainID: "arbitrum",
	}
	Base = entity.NetworkDefinition{
		ChainID:            8453,
		Name:               "Base",
		Identifier:         "base",
		NativeSymbol:       "ETH",
		PrimaryRPCURL:      "https://mainnet.base.org",
		FallbackRPCURLs:    []string{"https://base.publicnode.com", "https://base.llamarpc.com"},
		BlockExplorerURL:   "https://basescan.org",
		DEXScreenerChainID: "base",
	}
	Localhost = entity.NetworkDefinition{
		ChainID:       31337,
		Name:          "Localhost",
		Identifier:    "localhost",
		NativeSymbol:  "ETH",
		PrimaryRPCURL: "http://127.0.0.1:8545",
	}
)

func builtInDefinitions() []entity.NetworkDefinition {
	return []entity.NetworkDefinition{Ethereum, Sepolia, BSC, Polygon, Arbitrum, Base, Localhost}
}

// NewNetworkDefinitionProvider resolves the configured network against the built-in definitions.
// RPC URLs from the config replace the built-in ones. An identifier without a built-in definition
// is accepted when the config supplies both chainID and rpcURL.
func NewNetworkDefinitionProvider(cfg configloader.NetworkConfig, logger port.Logger) (*NetworkDefinitionProvider, error) {
	p := &NetworkDefinitionProvider{
		logger:         logger,
		allNetworkDefs: make(map[string]entity.NetworkDefinition),
	}
	for _, def := range builtInDefinitions() {
		p.allNetworkDefs[def.Identifier] = def
	}

	identifier := strings.ToLower(strings.TrimSpace(cfg.Identifier))
	def, ok := p.allNetworkDefs[identifier]
	if !ok {
		if cfg.ChainID == 0 || cfg.RPCURL == "" {
			return nil, fmt.Errorf("unknown network %q: set network.chainID and network.rpcURL to use a custom network", cfg.Identifier)
		}
		def = entity.NetworkDefinition{
			ChainID:      cfg.ChainID,
			Name:         cfg.Identifier,
			Identifier:   identifier,
			NativeSymbol: "ETH",
		}
		logger.Warn("Using custom network definition", "network", identifier, "chainID", cfg.ChainID)
	} else if cfg.ChainID != 0 && cfg.ChainID != def.ChainID {
		return nil, fmt.Errorf("network %s has chain ID %d, config says %d", identifier, def.ChainID, cfg.ChainID)
	}

	if cfg.RPCURL != "" {
		def.PrimaryRPCURL = cfg.RPCURL
		def.FallbackRPCURLs = nil
	}
	if len(cfg.Fallbacks) > 0 {
		def.FallbackRPCURLs = append([]string(nil), cfg.Fallbacks...)
	}

	p.allNetworkDefs[identifier] = def
	p.activeDef = def
	logger.Info("Network definition resolved", "network", def.Name, "chainID", def.ChainID, "rpc_primary", def.PrimaryRPCURL, "fallbacks", len(def.FallbackRPCURLs))
	return p, nil
}

// Active returns the definition of the network the escrow runs on.
func (p *NetworkDefinitionProvider) Active() entity.NetworkDefinition {
	return p.activeDef
}

// GetAllNetworkDefinitions returns every known network definition ordered by chain ID.
func (p *NetworkDefinitionProvider) GetAllNetworkDefinitions() []entity.NetworkDefinition {
	if p == nil {
		return []entity.NetworkDefinition{}
	}
	defs := make([]entity.NetworkDefinition, 0, len(p.allNetworkDefs))
	for _, def := range p.allNetworkDefs {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ChainID < defs[j].ChainID })
	return defs
}

// GetNetworkDefinitionByName returns a specific network definition by its identifier.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByName(identifier string) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	def, ok := p.allNetworkDefs[strings.ToLower(identifier)]
	return def, ok
}

// GetNetworkDefinitionByChainID returns a specific network definition by its chain ID.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByChainID(chainID uint64) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	for _, def := range p.allNetworkDefs {
		if def.ChainID == chainID {
			return def, true
		}
	}
	return entity.NetworkDefinition{}, false
}

var _ port.NetworkDefinitionProvider = (*NetworkDefinitionProvider)(nil)
