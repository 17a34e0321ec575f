package client

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"escrow_wallet/internal/app/port"
	"escrow_wallet/internal/domain/entity"
	"escrow_wallet/internal/infrastructure/configloader"
)

// evmClientProvider implements the port.TokenContractProvider interface.
type evmClientProvider struct {
	clients     map[string]*ERC20Client
	mu          sync.Mutex
	loggerInfo  func(msg string, args ...any)
	loggerError func(msg string, args ...any)
	clientCfg   ERC20ClientConfig
}

// NewEVMClientProvider creates a provider of ERC20 clients for the configured token and escrow.
func NewEVMClientProvider(
	cfg *configloader.Config,
	loggerInfo func(msg string, args ...any),
	loggerError func(msg string, args ...any),
) port.TokenContractProvider {
	return &evmClientProvider{
		clients:     make(map[string]*ERC20Client),
		loggerInfo:  loggerInfo,
		loggerError: loggerError,
		clientCfg: ERC20ClientConfig{
			TokenAddress:      cfg.Token.Address,
			SpenderAddress:    cfg.Escrow.Address,
			PrivateKey:        cfg.Wallet.PrivateKey,
			ConnectionTimeout: time.Duration(cfg.Performance.ConnectionTimeoutSeconds) * time.Second,
			RPCCallTimeout:    time.Duration(cfg.Performance.RPCCallTimeoutSeconds) * time.Second,
			RateLimit:         cfg.RPCClient.RateLimit,
			BurstLimit:        cfg.RPCClient.BurstLimit,
			WaitForReceipt:    cfg.Approval.WaitForReceipt,
			ReceiptTimeout:    time.Duration(cfg.Approval.ReceiptTimeoutSeconds) * time.Second,
		},
	}
}

func clientKey(netDef entity.NetworkDefinition, token string) string {
	return fmt.Sprintf("%d:%s", netDef.ChainID, strings.ToLower(token))
}

// GetContract retrieves the token contract on the given network.
// It caches clients to avoid reconnecting repeatedly.
func (p *evmClientProvider) GetContract(netDef entity.NetworkDefinition) (port.TokenContract, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := clientKey(netDef, p.clientCfg.TokenAddress)
	if client, exists := p.clients[key]; exists {
		return client, nil
	}

	p.loggerInfo("Creating new ERC20 client", "network", netDef.Name, "token", p.clientCfg.TokenAddress, "rpc_primary", netDef.PrimaryRPCURL)
	newClient, err := NewERC20Client(netDef, p.clientCfg)
	if err != nil {
		p.loggerError("Failed to create ERC20 client", "network", netDef.Name, "error", err)
		return nil, fmt.Errorf("failed to create ERC20 client for %s: %w", netDef.Name, err)
	}

	p.clients[key] = newClient
	if newClient.SignerAddress() == "" {
		p.loggerInfo("ERC20 client is read-only", "network", netDef.Name)
	} else {
		p.loggerInfo("ERC20 client ready", "network", netDef.Name, "signer", newClient.SignerAddress(), "escrow", newClient.SpenderAddress())
	}
	return newClient, nil
}

// Close closes every cached client.
func (p *evmClientProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, client := range p.clients {
		client.Close()
		delete(p.clients, key)
	}
}
