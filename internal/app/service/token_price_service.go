package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"escrow_wallet/internal/app/port"
	"escrow_wallet/internal/client"
	"escrow_wallet/internal/domain/entity"
)

const (
	stablecoinUSDCSymbol = "USDC"
	stablecoinUSDTSymbol = "USDT"
	stablecoinDAISymbol  = "DAI"
)

var stablecoinSymbols = map[string]struct{}{
	stablecoinUSDCSymbol: {},
	stablecoinUSDTSymbol: {},
	stablecoinDAISymbol:  {},
}

// tokenPriceServiceImpl implements port.TokenPriceService on top of DEX Screener.
type tokenPriceServiceImpl struct {
	dexscreenerClient client.DEXScreenerClient
	logger            port.Logger
	prices            *cache.Cache
}

// NewTokenPriceService creates a price service caching prices for ttl.
func NewTokenPriceService(dsc client.DEXScreenerClient, l port.Logger, ttl time.Duration) port.TokenPriceService {
	return &tokenPriceServiceImpl{
		dexscreenerClient: dsc,
		logger:            l,
		prices:            cache.New(ttl, 2*ttl),
	}
}

func priceKey(dexScreenerChainID, tokenAddress string) string {
	return dexScreenerChainID + ":" + strings.ToLower(tokenAddress)
}

// GetPriceUSD returns the cached USD price, fetching it from DEX Screener on a miss.
// A failed lookup is reported as unknown.
func (s *tokenPriceServiceImpl) GetPriceUSD(ctx context.Context, dexScreenerChainID string, tokenAddress string) (float64, bool) {
	if dexScreenerChainID == "" {
		return 0, false
	}
	key := priceKey(dexScreenerChainID, tokenAddress)
	if cached, ok := s.prices.Get(key); ok {
		return cached.(float64), true
	}

	pairs, err := s.dexscreenerClient.GetTokenPairs(ctx, dexScreenerChainID, tokenAddress)
	if err != nil {
		s.logger.Warn("Failed to get token pairs from DEXScreener", "dexScreenerID", dexScreenerChainID, "tokenAddress", tokenAddress, "error", err)
		return 0, false
	}

	priceStr := s.selectBestPriceFromPairs(pairs, tokenAddress)
	if priceStr == "" {
		return 0, false
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil || price <= 0 {
		s.logger.Warn("Failed to parse token price from DEXScreener", "tokenAddress", tokenAddress, "price_string", priceStr, "error", err)
		return 0, false
	}

	s.prices.SetDefault(key, price)
	s.logger.Debug("Cached price for token", "dexScreenerID", dexScreenerChainID, "tokenAddress", tokenAddress, "priceUSD", price)
	return price, true
}

// selectBestPriceFromPairs prefers the most liquid stablecoin-quoted pair, then the most liquid pair overall.
func (s *tokenPriceServiceImpl) selectBestPriceFromPairs(pairs []entity.PairData, baseTokenAddress string) string {
	var bestOverallPair *entity.PairData
	var bestStablecoinPair *entity.PairData

	for i := range pairs {
		pair := &pairs[i]
		if !strings.EqualFold(pair.BaseToken.Address, baseTokenAddress) {
			continue
		}
		if pair.PriceUsd == "" || pair.PriceUsd == "0" {
			continue
		}

		if _, isStablecoin := stablecoinSymbols[strings.ToUpper(pair.QuoteToken.Symbol)]; isStablecoin {
			if moreLiquid(pair, bestStablecoinPair) {
				bestStablecoinPair = pair
			}
		}
		if moreLiquid(pair, bestOverallPair) {
			bestOverallPair = pair
		}
	}

	switch {
	case bestStablecoinPair != nil:
		s.logger.Debug("Selected best price from stablecoin pair", "pairAddress", bestStablecoinPair.PairAddress,
			"priceUsd", bestStablecoinPair.PriceUsd, "quoteToken", bestStablecoinPair.QuoteToken.Symbol)
		return bestStablecoinPair.PriceUsd
	case bestOverallPair != nil:
		s.logger.Debug("Selected best price from overall highest liquidity pair", "pairAddress", bestOverallPair.PairAddress,
			"priceUsd", bestOverallPair.PriceUsd, "quoteToken", bestOverallPair.QuoteToken.Symbol)
		return bestOverallPair.PriceUsd
	default:
		s.logger.Debug("No suitable price found from pairs", "baseTokenAddress", baseTokenAddress, "evaluatedPairCount", len(pairs))
		return ""
	}
}

func moreLiquid(candidate, current *entity.PairData) bool {
	if current == nil {
		return true
	}
	return liquidityUSD(candidate) > liquidityUSD(current)
}

func liquidityUSD(pair *entity.PairData) float64 {
	if pair.Liquidity == nil {
		return 0
	}
	return pair.Liquidity.Usd
}
