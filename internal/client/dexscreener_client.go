package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"escrow_wallet/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DEXScreenerClient defines the interface for interacting with the DEX Screener API.
type DEXScreenerClient interface {
	GetTokenPairs(ctx context.Context, dexscreenerChainID string, tokenAddress string) ([]entity.PairData, error)
}

// dexScreenerClientImpl is the implementation of DEXScreenerClient.
type dexScreenerClientImpl struct {
	client  *fasthttp.Client
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
}

// NewDEXScreenerClient creates a new instance of dexScreenerClientImpl.
func NewDEXScreenerClient(baseURL string, timeout time.Duration, logger *zap.Logger) DEXScreenerClient {
	return &dexScreenerClientImpl{
		client:  &fasthttp.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		logger:  logger.Named("DEXScreenerClient"),
	}
}

// GetTokenPairs returns all pairs DEX Screener knows for the token on the given chain.
func (c *dexScreenerClientImpl) GetTokenPairs(ctx context.Context, dexscreenerChainID string, tokenAddress string) ([]entity.PairData, error) {
	if dexscreenerChainID == "" || tokenAddress == "" {
		return nil, fmt.Errorf("chain id and token address are required")
	}

	requestURL := fmt.Sprintf("%s/tokens/v1/%s/%s", c.baseURL, dexscreenerChainID, tokenAddress)
	c.logger.Debug("Requesting token pairs from DEX Screener", zap.String("url", requestURL))

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		c.logger.Error("Failed to execute request to DEX Screener", zap.String("url", requestURL), zap.Error(err))
		return nil, fmt.Errorf("failed to execute request to %s: %w", requestURL, err)
	}

	rawBody := resp.Body()

	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Error("DEX Screener API request failed",
			zap.String("url", requestURL),
			zap.Int("statusCode", resp.StatusCode()),
			zap.ByteString("responseBody", rawBody),
		)
		return nil, fmt.Errorf("DEX Screener API request to %s failed with status %d", requestURL, resp.StatusCode())
	}

	// /tokens/v1 answers with a bare array; older endpoints wrap it in {"pairs": [...]}
	var directPairs []entity.PairData
	if err := json.Unmarshal(rawBody, &directPairs); err == nil {
		c.logger.Debug("Decoded DEX Screener response", zap.String("dexscreenerChainID", dexscreenerChainID), zap.Int("pairCount", len(directPairs)))
		return directPairs, nil
	}

	var wrapped entity.DEXTokenPairs
	if err := json.Unmarshal(rawBody, &wrapped); err != nil {
		c.logger.Error("Failed to unmarshal DEX Screener response",
			zap.String("url", requestURL),
			zap.ByteString("responseBody", rawBody),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to unmarshal DEX Screener response from %s: %w", requestURL, err)
	}
	c.logger.Debug("Decoded wrapped DEX Screener response", zap.String("dexscreenerChainID", dexscreenerChainID), zap.Int("pairCount", len(wrapped.Pairs)))
	return wrapped.Pairs, nil
}
