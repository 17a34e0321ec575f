package bootstrap

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"escrow_wallet/internal/app/port"
	"escrow_wallet/internal/app/service"
	dexclient "escrow_wallet/internal/client"
	"escrow_wallet/internal/domain/entity"
	"escrow_wallet/internal/infrastructure/configloader"
	clientprovider "escrow_wallet/internal/infrastructure/network/client"
	networkdefinition "escrow_wallet/internal/infrastructure/network/definition"
	"escrow_wallet/internal/pkg/logger"
	"escrow_wallet/internal/pkg/metrics"
)

// App holds the wired components shared by the server and the terminal client.
type App struct {
	Config    *configloader.Config
	Network   entity.NetworkDefinition
	Networks  port.NetworkDefinitionProvider
	Contract  port.TokenContract
	Reader    *service.TokenStateService
	Approver  port.AllowanceApprover
	Metrics   *metrics.Registry
	contracts port.TokenContractProvider
}

// Build connects to the configured network and wires the token services.
func Build(cfg *configloader.Config, zapLogger *zap.Logger) (*App, error) {
	netDefProvider, err := networkdefinition.NewNetworkDefinitionProvider(cfg.Network, logger.NewSlogAdapter("component", "networks"))
	if err != nil {
		return nil, err
	}
	var networks port.NetworkDefinitionProvider = netDefProvider
	netDef := networks.Active()

	clientLogger := logger.NewSlogAdapter("component", "evm")
	contracts := clientprovider.NewEVMClientProvider(cfg, clientLogger.Info, clientLogger.Error)
	contract, err := contracts.GetContract(netDef)
	if err != nil {
		return nil, fmt.Errorf("token contract on %s: %w", netDef.Name, err)
	}

	var prices port.TokenPriceService
	if cfg.DEXScreener.Enabled {
		dexscreenerAPIClient := dexclient.NewDEXScreenerClient(
			cfg.DEXScreener.BaseURL,
			time.Duration(cfg.DEXScreener.RequestTimeoutMillis)*time.Millisecond,
			zapLogger,
		)
		prices = service.NewTokenPriceService(
			dexscreenerAPIClient,
			logger.NewSlogAdapter("component", "prices"),
			time.Duration(cfg.TokenPriceSvc.CacheTTLMinutes)*time.Minute,
		)
		logger.Info("DEXScreener price feed enabled", "baseURL", cfg.DEXScreener.BaseURL)
	}

	registry := metrics.New()
	reader := service.NewTokenStateService(
		contract,
		prices,
		logger.NewSlogAdapter("component", "reader"),
		registry,
		service.TokenStateConfig{
			StateTTL:           time.Duration(cfg.Cache.StateTTLSeconds) * time.Second,
			MetadataTTL:        time.Duration(cfg.Cache.MetadataTTLMinutes) * time.Minute,
			CleanupInterval:    time.Duration(cfg.Cache.CleanupIntervalMinutes) * time.Minute,
			MaxConcurrentReads: cfg.Performance.MaxConcurrentRoutines,
		},
	)
	approver := service.NewApprovalMutation(contract, reader, logger.NewSlogAdapter("component", "approval"), registry)

	return &App{
		Config:    cfg,
		Network:   netDef,
		Networks:  networks,
		Contract:  contract,
		Reader:    reader,
		Approver:  approver,
		Metrics:   registry,
		contracts: contracts,
	}, nil
}

// WorkflowOptions configures allowance workflows from the config, with transition logging and metrics.
func (a *App) WorkflowOptions() []service.WorkflowOption {
	transitions := logger.NewSlogAdapter("component", "workflow")
	return []service.WorkflowOption{
		service.WithDefaultPromptAmount(a.Config.Approval.DefaultPromptAmount),
		service.WithMetrics(a.Metrics),
		service.WithStateListener(func(from, to entity.WorkflowState) {
			transitions.Debug("Allowance workflow transition", "from", from, "to", to)
		}),
	}
}

// NewWorkflow creates an idle allowance workflow submitting through the app's approver.
func (a *App) NewWorkflow() *service.AllowanceWorkflow {
	return service.NewAllowanceWorkflow(a.Approver, logger.NewSlogAdapter("component", "workflow"), a.WorkflowOptions()...)
}

// Close releases RPC connections.
func (a *App) Close() {
	a.contracts.Close()
}
