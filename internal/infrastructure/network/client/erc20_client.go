package client

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"escrow_wallet/internal/app/port"
	"escrow_wallet/internal/domain/entity"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"
)

var (
	// ErrReadOnly is returned by Approve when no signing key is configured.
	ErrReadOnly = errors.New("wallet is read-only")
	// ErrTransactionReverted is returned when the approve transaction was mined with status 0.
	ErrTransactionReverted = errors.New("transaction reverted")
)

const receiptPollInterval = 2 * time.Second

// ERC20 ABI subset used by the wallet panel
const erc20ABI = `[
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":false,"inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

var (
	parsedERC20ABI  abi.ABI
	parsedERC20Once sync.Once
)

func initParsedERC20ABI() {
	parsedERC20Once.Do(func() {
		var err error
		parsedERC20ABI, err = abi.JSON(strings.NewReader(erc20ABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse ERC20 ABI: %v", err))
		}
	})
}

// ERC20ClientConfig describes the token contract and how to reach and sign for it.
type ERC20ClientConfig struct {
	TokenAddress      string
	SpenderAddress    string
	PrivateKey        string // hex, optional; empty means read-only
	ConnectionTimeout time.Duration
	RPCCallTimeout    time.Duration
	RateLimit         float64 // requests per second, 0 = unlimited
	BurstLimit        int
	WaitForReceipt    bool
	ReceiptTimeout    time.Duration
}

// ERC20Client implements port.TokenContract for one ERC20 token on an EVM chain.
type ERC20Client struct {
	ethClient      *ethclient.Client
	contract       *bind.BoundContract
	netDef         entity.NetworkDefinition
	token          common.Address
	spender        common.Address
	transactor     *bind.TransactOpts
	limiter        *rate.Limiter
	rpcCallTimeout time.Duration
	waitForReceipt bool
	receiptTimeout time.Duration
}

// NewERC20Client dials the network's primary RPC, then its fallbacks, and binds the token contract.
func NewERC20Client(netDef entity.NetworkDefinition, cfg ERC20ClientConfig) (*ERC20Client, error) {
	initParsedERC20ABI()

	if !common.IsHexAddress(cfg.TokenAddress) {
		return nil, fmt.Errorf("invalid token address %q", cfg.TokenAddress)
	}
	if !common.IsHexAddress(cfg.SpenderAddress) {
		return nil, fmt.Errorf("invalid escrow address %q", cfg.SpenderAddress)
	}

	var key *ecdsa.PrivateKey
	if cfg.PrivateKey != "" {
		var err error
		key, err = parsePrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
	}

	ethClient, err := dial(netDef, cfg.ConnectionTimeout)
	if err != nil {
		return nil, err
	}

	c := &ERC20Client{
		ethClient:      ethClient,
		netDef:         netDef,
		token:          common.HexToAddress(cfg.TokenAddress),
		spender:        common.HexToAddress(cfg.SpenderAddress),
		rpcCallTimeout: cfg.RPCCallTimeout,
		waitForReceipt: cfg.WaitForReceipt,
		receiptTimeout: cfg.ReceiptTimeout,
	}
	c.contract = bind.NewBoundContract(c.token, parsedERC20ABI, ethClient, ethClient, ethClient)

	if cfg.RateLimit > 0 {
		burst := cfg.BurstLimit
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	if key != nil {
		c.transactor, err = bind.NewKeyedTransactorWithChainID(key, new(big.Int).SetUint64(netDef.ChainID))
		if err != nil {
			ethClient.Close()
			return nil, fmt.Errorf("transactor: %w", err)
		}
	}
	return c, nil
}

func dial(netDef entity.NetworkDefinition, connectionTimeout time.Duration) (*ethclient.Client, error) {
	rpcURLs := append([]string{netDef.PrimaryRPCURL}, netDef.FallbackRPCURLs...)
	var lastErr error

	for _, rpcURL := range rpcURLs {
		if rpcURL == "" {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
		client, err := ethclient.DialContext(ctx, rpcURL)
		cancel()

		if err == nil {
			return client, nil
		}
		lastErr = fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
	}
	if lastErr == nil {
		lastErr = errors.New("no RPC URL configured")
	}
	return nil, fmt.Errorf("all RPC connection attempts failed for network %s: %w", netDef.Name, lastErr)
}

func parsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

// ReadAll performs the given token reads as one JSON-RPC batch of eth_call requests.
// Per-item failures are reported in the results; the error is only set when the whole batch failed.
func (c *ERC20Client) ReadAll(ctx context.Context, requests []entity.TokenCallRequest) ([]entity.TokenCallResult, error) {
	if len(requests) == 0 {
		return []entity.TokenCallResult{}, nil
	}

	batchElems := make([]rpc.BatchElem, len(requests))
	results := make([]entity.TokenCallResult, len(requests))

	for i, reqItem := range requests {
		results[i] = entity.TokenCallResult{Type: reqItem.Type}

		callData, err := encodeCall(reqItem)
		if err != nil {
			results[i].Error = err
			// keep the batch well-formed; the result is ignored
			callData = nil
		}
		batchElems[i] = rpc.BatchElem{
			Method: "eth_call",
			Args: []interface{}{map[string]interface{}{
				"to":   c.token,
				"data": hexutil.Bytes(callData),
			}, "latest"},
			Result: new(hexutil.Bytes),
		}
	}

	if err := c.wait(ctx); err != nil {
		return results, err
	}

	rpcCallCtx, cancel := context.WithTimeout(ctx, c.rpcCallTimeout)
	defer cancel()

	if err := c.ethClient.Client().BatchCallContext(rpcCallCtx, batchElems); err != nil {
		return results, fmt.Errorf("RPC batch call failed: %w", err)
	}

	for i, elem := range batchElems {
		if results[i].Error != nil {
			continue
		}
		if elem.Error != nil {
			results[i].Error = fmt.Errorf("%s call on %s failed: %w", requests[i].Type, c.token.Hex(), elem.Error)
			continue
		}
		raw, ok := elem.Result.(*hexutil.Bytes)
		if !ok || raw == nil {
			results[i].Error = fmt.Errorf("%s call on %s: unexpected result type %T", requests[i].Type, c.token.Hex(), elem.Result)
			continue
		}
		decodeResult(&results[i], *raw)
	}
	return results, nil
}

func encodeCall(req entity.TokenCallRequest) ([]byte, error) {
	switch req.Type {
	case entity.DecimalsCall, entity.SymbolCall:
		return parsedERC20ABI.Pack(req.Type.String())
	case entity.BalanceOfCall:
		if !common.IsHexAddress(req.Owner) {
			return nil, fmt.Errorf("invalid owner address %q", req.Owner)
		}
		return parsedERC20ABI.Pack("balanceOf", common.HexToAddress(req.Owner))
	case entity.AllowanceCall:
		if !common.IsHexAddress(req.Owner) {
			return nil, fmt.Errorf("invalid owner address %q", req.Owner)
		}
		if !common.IsHexAddress(req.Spender) {
			return nil, fmt.Errorf("invalid spender address %q", req.Spender)
		}
		return parsedERC20ABI.Pack("allowance", common.HexToAddress(req.Owner), common.HexToAddress(req.Spender))
	default:
		return nil, fmt.Errorf("unknown token call type: %v", req.Type)
	}
}

func decodeResult(result *entity.TokenCallResult, data []byte) {
	method := result.Type.String()
	if len(data) == 0 {
		result.Error = fmt.Errorf("%s returned no data; is the address an ERC20 contract?", method)
		return
	}

	unpacked, err := parsedERC20ABI.Unpack(method, data)
	if err != nil {
		// some older tokens return symbol as bytes32
		if result.Type == entity.SymbolCall && len(data) == 32 {
			result.Symbol = string(bytes.TrimRight(data, "\x00"))
			return
		}
		result.Error = fmt.Errorf("failed to unpack %s result: %w. Raw: %s", method, err, hexutil.Encode(data))
		return
	}
	if len(unpacked) == 0 {
		result.Error = fmt.Errorf("%s unpack returned no data", method)
		return
	}

	switch result.Type {
	case entity.DecimalsCall:
		v, ok := unpacked[0].(uint8)
		if !ok {
			result.Error = fmt.Errorf("decimals: unexpected type %T", unpacked[0])
			return
		}
		result.Decimals = v
	case entity.SymbolCall:
		v, ok := unpacked[0].(string)
		if !ok {
			result.Error = fmt.Errorf("symbol: unexpected type %T", unpacked[0])
			return
		}
		result.Symbol = v
	case entity.BalanceOfCall, entity.AllowanceCall:
		v, ok := unpacked[0].(*big.Int)
		if !ok {
			result.Error = fmt.Errorf("%s: unexpected type %T", method, unpacked[0])
			return
		}
		result.Amount = v
	}
}

func (c *ERC20Client) readOne(ctx context.Context, req entity.TokenCallRequest) (entity.TokenCallResult, error) {
	results, err := c.ReadAll(ctx, []entity.TokenCallRequest{req})
	if err != nil {
		return entity.TokenCallResult{}, err
	}
	if results[0].Error != nil {
		return entity.TokenCallResult{}, results[0].Error
	}
	return results[0], nil
}

// Decimals reads decimals().
func (c *ERC20Client) Decimals(ctx context.Context) (uint8, error) {
	res, err := c.readOne(ctx, entity.TokenCallRequest{Type: entity.DecimalsCall})
	if err != nil {
		return 0, err
	}
	return res.Decimals, nil
}

// Symbol reads symbol().
func (c *ERC20Client) Symbol(ctx context.Context) (string, error) {
	res, err := c.readOne(ctx, entity.TokenCallRequest{Type: entity.SymbolCall})
	if err != nil {
		return "", err
	}
	return res.Symbol, nil
}

// BalanceOf reads balanceOf(owner).
func (c *ERC20Client) BalanceOf(ctx context.Context, owner string) (*big.Int, error) {
	res, err := c.readOne(ctx, entity.TokenCallRequest{Type: entity.BalanceOfCall, Owner: owner})
	if err != nil {
		return nil, err
	}
	return res.Amount, nil
}

// Allowance reads allowance(owner, spender).
func (c *ERC20Client) Allowance(ctx context.Context, owner string, spender string) (*big.Int, error) {
	res, err := c.readOne(ctx, entity.TokenCallRequest{Type: entity.AllowanceCall, Owner: owner, Spender: spender})
	if err != nil {
		return nil, err
	}
	return res.Amount, nil
}

// Approve sends approve(escrow, amount) from the configured signer and returns the transaction hash.
// With WaitForReceipt set it also waits for the transaction to be mined.
func (c *ERC20Client) Approve(ctx context.Context, amount *big.Int) (string, error) {
	if c.transactor == nil {
		return "", ErrReadOnly
	}
	if amount == nil || amount.Sign() < 0 || amount.BitLen() > 256 {
		return "", fmt.Errorf("invalid approve amount %v", amount)
	}
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	opts := *c.transactor
	opts.Context = ctx

	tx, err := c.contract.Transact(&opts, "approve", c.spender, amount)
	if err != nil {
		return "", fmt.Errorf("approve tx: %w", err)
	}
	if !c.waitForReceipt {
		return tx.Hash().Hex(), nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.receiptTimeout)
	defer cancel()

	receipt, err := c.waitForMined(waitCtx, tx.Hash())
	if err != nil {
		return tx.Hash().Hex(), fmt.Errorf("waiting for approve tx %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return tx.Hash().Hex(), ErrTransactionReverted
	}
	return tx.Hash().Hex(), nil
}

// waitForMined polls until the transaction is mined or ctx is done.
func (c *ERC20Client) waitForMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.ethClient.TransactionReceipt(ctx, hash)
		if receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *ERC20Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// SignerAddress returns the signing account, or "" when read-only.
func (c *ERC20Client) SignerAddress() string {
	if c.transactor == nil {
		return ""
	}
	return c.transactor.From.Hex()
}

// SpenderAddress returns the escrow contract address.
func (c *ERC20Client) SpenderAddress() string {
	return c.spender.Hex()
}

// TokenAddress returns the token contract address.
func (c *ERC20Client) TokenAddress() string {
	return c.token.Hex()
}

// Definition returns the network definition for this client.
func (c *ERC20Client) Definition() entity.NetworkDefinition {
	return c.netDef
}

// Close releases the underlying RPC connection.
func (c *ERC20Client) Close() {
	c.ethClient.Close()
}

var _ port.TokenContract = (*ERC20Client)(nil)
