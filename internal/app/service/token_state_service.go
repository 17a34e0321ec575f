package service

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"escrow_wallet/internal/app/port"
	"escrow_wallet/internal/domain/entity"
	"escrow_wallet/internal/pkg/utils"
)

const (
	decimalsCacheKey = "decimals"
	symbolCacheKey   = "symbol"

	defaultMaxConcurrentReads = 4
)

// TokenStateConfig holds cache lifetimes and read concurrency of the TokenStateService.
type TokenStateConfig struct {
	StateTTL        time.Duration
	MetadataTTL     time.Duration
	CleanupInterval time.Duration
	// MaxConcurrentReads bounds the individual reads issued when a batch fails.
	MaxConcurrentReads int
}

// TokenStateService reads balance, allowance, decimals and symbol for an account and caches them.
// Failed reads are logged and reported as unknown.
type TokenStateService struct {
	contract port.TokenContract
	prices   port.TokenPriceService
	logger   port.Logger
	metrics  port.Metrics

	maxConcurrentReads int

	metadata *cache.Cache
	state    *cache.Cache

	// generations is bumped by Invalidate; reads started under an older generation are not cached.
	mu          sync.Mutex
	generations map[string]uint64
}

// NewTokenStateService creates the reader. prices and m may be nil.
func NewTokenStateService(
	contract port.TokenContract,
	prices port.TokenPriceService,
	l port.Logger,
	m port.Metrics,
	cfg TokenStateConfig,
) *TokenStateService {
	if cfg.MaxConcurrentReads <= 0 {
		cfg.MaxConcurrentReads = defaultMaxConcurrentReads
	}
	return &TokenStateService{
		contract:           contract,
		prices:             prices,
		logger:             l,
		metrics:            m,
		maxConcurrentReads: cfg.MaxConcurrentReads,
		metadata:           cache.New(cfg.MetadataTTL, cfg.CleanupInterval),
		state:              cache.New(cfg.StateTTL, cfg.CleanupInterval),
		generations:        make(map[string]uint64),
	}
}

func ownerKey(owner string) string {
	return strings.ToLower(owner)
}

func balanceKey(owner string) string {
	return "balance:" + ownerKey(owner)
}

func allowanceKey(owner, spender string) string {
	return "allowance:" + ownerKey(owner) + ":" + strings.ToLower(spender)
}

// Snapshot serves what it can from the cache and fetches the rest as one batch of reads.
// Without a valid owner the balance and allowance reads are not issued and stay loading.
func (s *TokenStateService) Snapshot(ctx context.Context, owner string) entity.TokenSnapshot {
	snapshot := entity.TokenSnapshot{Owner: owner}
	hasOwner := common.IsHexAddress(owner)
	if !hasOwner {
		snapshot.BalanceLoading = true
		snapshot.AllowanceLoading = true
	}
	spender := s.contract.SpenderAddress()
	generation := s.generation(owner)

	var pending []entity.TokenCallRequest
	if v, ok := s.metadata.Get(decimalsCacheKey); ok {
		d := v.(uint8)
		snapshot.Decimals = &d
	} else {
		pending = append(pending, entity.TokenCallRequest{Type: entity.DecimalsCall})
	}
	if v, ok := s.metadata.Get(symbolCacheKey); ok {
		sym := v.(string)
		snapshot.Symbol = &sym
	} else {
		pending = append(pending, entity.TokenCallRequest{Type: entity.SymbolCall})
	}
	if hasOwner {
		if v, ok := s.state.Get(balanceKey(owner)); ok {
			snapshot.Balance = new(big.Int).Set(v.(*big.Int))
		} else {
			pending = append(pending, entity.TokenCallRequest{Type: entity.BalanceOfCall, Owner: owner})
		}
		if v, ok := s.state.Get(allowanceKey(owner, spender)); ok {
			snapshot.Allowance = new(big.Int).Set(v.(*big.Int))
		} else {
			pending = append(pending, entity.TokenCallRequest{Type: entity.AllowanceCall, Owner: owner, Spender: spender})
		}
	}

	if len(pending) == 0 {
		return snapshot
	}
	for _, res := range s.read(ctx, pending) {
		s.apply(&snapshot, spender, generation, res)
	}
	return snapshot
}

// read issues requests as one batch and falls back to bounded concurrent single reads
// when the batch as a whole fails.
func (s *TokenStateService) read(ctx context.Context, requests []entity.TokenCallRequest) []entity.TokenCallResult {
	results, err := s.contract.ReadAll(ctx, requests)
	if err == nil && len(results) == len(requests) {
		return results
	}
	s.logger.Warn("Batched token read failed, reading individually", "calls", len(requests), "error", err)

	results = make([]entity.TokenCallResult, len(requests))
	var g errgroup.Group
	g.SetLimit(s.maxConcurrentReads)
	for i, req := range requests {
		g.Go(func() error {
			results[i] = s.readSingle(ctx, req)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *TokenStateService) readSingle(ctx context.Context, req entity.TokenCallRequest) entity.TokenCallResult {
	res := entity.TokenCallResult{Type: req.Type}
	switch req.Type {
	case entity.DecimalsCall:
		res.Decimals, res.Error = s.contract.Decimals(ctx)
	case entity.SymbolCall:
		res.Symbol, res.Error = s.contract.Symbol(ctx)
	case entity.BalanceOfCall:
		res.Amount, res.Error = s.contract.BalanceOf(ctx, req.Owner)
	case entity.AllowanceCall:
		res.Amount, res.Error = s.contract.Allowance(ctx, req.Owner, req.Spender)
	default:
		res.Error = fmt.Errorf("unknown token call type: %v", req.Type)
	}
	return res
}

func (s *TokenStateService) apply(snapshot *entity.TokenSnapshot, spender string, generation uint64, res entity.TokenCallResult) {
	if res.Error != nil {
		s.readFailed(res.Type, snapshot.Owner, res.Error)
		return
	}
	switch res.Type {
	case entity.DecimalsCall:
		d := res.Decimals
		s.metadata.SetDefault(decimalsCacheKey, d)
		snapshot.Decimals = &d
	case entity.SymbolCall:
		sym := res.Symbol
		s.metadata.SetDefault(symbolCacheKey, sym)
		snapshot.Symbol = &sym
	case entity.BalanceOfCall:
		snapshot.Balance = s.storeAmount(balanceKey(snapshot.Owner), snapshot.Owner, generation, res.Amount)
	case entity.AllowanceCall:
		snapshot.Allowance = s.storeAmount(allowanceKey(snapshot.Owner, spender), snapshot.Owner, generation, res.Amount)
	}
}

func (s *TokenStateService) generation(owner string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[ownerKey(owner)]
}

// storeAmount caches amount unless the owner was invalidated after the read started.
func (s *TokenStateService) storeAmount(key, owner string, generation uint64, amount *big.Int) *big.Int {
	if amount == nil {
		amount = new(big.Int)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[ownerKey(owner)] != generation {
		s.logger.Debug("Discarding token read older than last invalidation", "owner", owner, "key", key)
		return amount
	}
	s.state.SetDefault(key, new(big.Int).Set(amount))
	return amount
}

func (s *TokenStateService) readFailed(call entity.TokenCallType, owner string, err error) {
	s.logger.Warn("Token read failed, value unknown", "call", call.String(), "owner", owner, "error", err)
	if s.metrics != nil {
		s.metrics.ObserveReadFailure(call.String())
	}
}

// Invalidate drops the cached balance and allowance of owner. Reads already in flight
// for owner still answer their callers but are no longer cached.
func (s *TokenStateService) Invalidate(owner string) {
	s.mu.Lock()
	s.generations[ownerKey(owner)]++
	s.state.Delete(balanceKey(owner))
	s.state.Delete(allowanceKey(owner, s.contract.SpenderAddress()))
	s.mu.Unlock()
	s.logger.Debug("Token state invalidated", "owner", owner)
}

// Profile assembles the wallet panel for identity.
func (s *TokenStateService) Profile(ctx context.Context, identity entity.Identity) entity.Profile {
	snapshot := s.Snapshot(ctx, identity.Address)
	return s.ProfileFromSnapshot(ctx, identity, snapshot)
}

// ProfileFromSnapshot assembles the wallet panel from an already taken snapshot.
func (s *TokenStateService) ProfileFromSnapshot(ctx context.Context, identity entity.Identity, snapshot entity.TokenSnapshot) entity.Profile {
	profile := entity.Profile{
		Address:          identity.Address,
		DisplayName:      identity.ENSName,
		AvatarURL:        identity.ENSAvatar,
		Symbol:           snapshot.DisplaySymbol(),
		Decimals:         snapshot.DisplayDecimals(),
		Balance:          utils.FormatAmount(snapshot.DisplayBalance()),
		AllowanceVisible: !snapshot.AllowanceLoading,
	}
	if profile.DisplayName == "" {
		profile.DisplayName = utils.CollapseAddress(identity.Address)
	}
	if profile.AvatarURL == "" {
		profile.AvatarURL = utils.AvatarURL(identity.Address)
	}
	if profile.AllowanceVisible {
		profile.Allowance = utils.FormatAmount(snapshot.DisplayAllowance())
	}

	signer := s.contract.SignerAddress()
	profile.CanApprove = signer != "" && strings.EqualFold(signer, identity.Address)

	s.attachPrice(ctx, &profile, snapshot)
	return profile
}

func (s *TokenStateService) attachPrice(ctx context.Context, profile *entity.Profile, snapshot entity.TokenSnapshot) {
	if s.prices == nil {
		return
	}
	price, ok := s.prices.GetPriceUSD(ctx, s.contract.Definition().DEXScreenerChainID, s.contract.TokenAddress())
	if !ok {
		return
	}
	profile.PriceUSD = &price

	decimals, known := snapshot.ValidationDecimals()
	if snapshot.Balance == nil || !known {
		return
	}
	value, err := utils.CalculateValueUSD(snapshot.Balance, decimals, price)
	if err != nil {
		s.logger.Debug("Failed to calculate USD value", "owner", snapshot.Owner, "error", err)
		return
	}
	profile.ValueUSD = &value
}

var _ port.ProfileService = (*TokenStateService)(nil)
