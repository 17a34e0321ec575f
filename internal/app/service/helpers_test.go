package service

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"escrow_wallet/internal/domain/entity"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type fakeApprover struct {
	mu      sync.Mutex
	calls   []*big.Int
	err     error
	block   chan struct{}
	started chan struct{}
}

func (f *fakeApprover) Approve(ctx context.Context, amount *big.Int) error {
	f.mu.Lock()
	f.calls = append(f.calls, new(big.Int).Set(amount))
	f.mu.Unlock()
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	return f.err
}

func (f *fakeApprover) Calls() []*big.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*big.Int(nil), f.calls...)
}

func u8(v uint8) *uint8 { return &v }

func str(v string) *string { return &v }

func tokens(human string, decimals uint8) *big.Int {
	v, ok := new(big.Int).SetString(human, 10)
	if !ok {
		panic("bad test amount " + human)
	}
	return v.Mul(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}

// fakeChain is an in-memory token contract. Approve sets the allowance like ERC20 does.
type fakeChain struct {
	mu         sync.Mutex
	decimals   uint8
	symbol     string
	signer     string
	spender    string
	balances   map[string]*big.Int
	allowances map[string]*big.Int
	approveErr error
	readErr    error
	batchErr   error
	reads      map[string]int
	batches    int

	// allowanceHeld, when set, holds the next allowance read after it has
	// looked up the value until allowanceRelease is closed.
	allowanceHeld    chan struct{}
	allowanceRelease chan struct{}
}

func newFakeChain(decimals uint8, signer, spender string) *fakeChain {
	return &fakeChain{
		decimals:   decimals,
		symbol:     "ESC",
		signer:     signer,
		spender:    spender,
		balances:   map[string]*big.Int{},
		allowances: map[string]*big.Int{},
		reads:      map[string]int{},
	}
}

func (c *fakeChain) count(call string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads[call]++
	return c.readErr
}

func (c *fakeChain) Reads(call string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads[call]
}

func (c *fakeChain) Decimals(context.Context) (uint8, error) {
	if err := c.count("decimals"); err != nil {
		return 0, err
	}
	return c.decimals, nil
}

func (c *fakeChain) Symbol(context.Context) (string, error) {
	if err := c.count("symbol"); err != nil {
		return "", err
	}
	return c.symbol, nil
}

func (c *fakeChain) BalanceOf(_ context.Context, owner string) (*big.Int, error) {
	if err := c.count("balanceOf"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.balances[strings.ToLower(owner)]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (c *fakeChain) Allowance(_ context.Context, owner, spender string) (*big.Int, error) {
	if err := c.count("allowance"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	allowance := new(big.Int)
	if a, ok := c.allowances[strings.ToLower(owner+spender)]; ok {
		allowance.Set(a)
	}
	held, release := c.allowanceHeld, c.allowanceRelease
	c.allowanceHeld, c.allowanceRelease = nil, nil
	c.mu.Unlock()

	if held != nil {
		close(held)
		<-release
	}
	return allowance, nil
}

func (c *fakeChain) ReadAll(ctx context.Context, requests []entity.TokenCallRequest) ([]entity.TokenCallResult, error) {
	c.mu.Lock()
	c.batches++
	batchErr := c.batchErr
	c.mu.Unlock()
	if batchErr != nil {
		return nil, batchErr
	}

	results := make([]entity.TokenCallResult, len(requests))
	for i, req := range requests {
		res := entity.TokenCallResult{Type: req.Type}
		switch req.Type {
		case entity.DecimalsCall:
			res.Decimals, res.Error = c.Decimals(ctx)
		case entity.SymbolCall:
			res.Symbol, res.Error = c.Symbol(ctx)
		case entity.BalanceOfCall:
			res.Amount, res.Error = c.BalanceOf(ctx, req.Owner)
		case entity.AllowanceCall:
			res.Amount, res.Error = c.Allowance(ctx, req.Owner, req.Spender)
		}
		results[i] = res
	}
	return results, nil
}

func (c *fakeChain) Batches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batches
}

func (c *fakeChain) Approve(_ context.Context, amount *big.Int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.approveErr != nil {
		return "", c.approveErr
	}
	c.allowances[strings.ToLower(c.signer+c.spender)] = new(big.Int).Set(amount)
	return "0xabc", nil
}

func (c *fakeChain) SetAllowance(owner string, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allowances[strings.ToLower(owner+c.spender)] = new(big.Int).Set(amount)
}

func (c *fakeChain) SignerAddress() string  { return c.signer }
func (c *fakeChain) SpenderAddress() string { return c.spender }
func (c *fakeChain) TokenAddress() string   { return "0x3333333333333333333333333333333333333333" }

func (c *fakeChain) Definition() entity.NetworkDefinition {
	return entity.NetworkDefinition{ChainID: 31337, Identifier: "localhost", DEXScreenerChainID: "ethereum"}
}

type fakePrices struct {
	price float64
	ok    bool
}

func (f fakePrices) GetPriceUSD(context.Context, string, string) (float64, bool) {
	return f.price, f.ok
}

type recordingMetrics struct {
	mu          sync.Mutex
	approvals   map[string]int
	rejections  map[string]int
	readFails   map[string]int
	transitions int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{approvals: map[string]int{}, rejections: map[string]int{}, readFails: map[string]int{}}
}

func (m *recordingMetrics) ObserveTransition(_, _ entity.WorkflowState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions++
}

func (m *recordingMetrics) ObserveRejection(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections[kind]++
}

func (m *recordingMetrics) ObserveApproval(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.approvals[result]++
}

func (m *recordingMetrics) ObserveReadFailure(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readFails[call]++
}
