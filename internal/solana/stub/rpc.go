package stub

import (
	"context"
	"sync"

	"solana-sniper/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
// A transaction becomes visible after HiddenPolls lookups of its signature.
type RPCClient struct {
	mu           sync.Mutex
	Transactions map[string]*solana.Transaction
	Balances     map[string]uint64
	HiddenPolls  int
	polls        map[string]int
}

var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions: make(map[string]*solana.Transaction),
		Balances:     make(map[string]uint64),
		polls:        make(map[string]int),
	}
}

// GetTransaction returns the stored transaction, or nil while it is hidden or unknown.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.polls[signature]++
	if c.polls[signature] <= c.HiddenPolls {
		return nil, nil
	}
	return c.Transactions[signature], nil
}

// GetBalance returns the stored balance, 0 when unknown.
func (c *RPCClient) GetBalance(_ context.Context, address string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.Balances[address], nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Transactions[tx.Signature] = tx
}

// Polls returns how many times signature was looked up.
func (c *RPCClient) Polls(signature string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.polls[signature]
}
