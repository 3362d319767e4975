package solana

import "context"

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// RPCClient defines the Solana RPC reads the engine needs.
type RPCClient interface {
	// GetTransaction retrieves a transaction by signature.
	// Returns nil, nil while the transaction is not yet visible.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetBalance retrieves the lamport balance of an address.
	GetBalance(ctx context.Context, address string) (uint64, error)
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	Fee               uint64 // lamports
	PreBalances       []uint64
	PostBalances      []uint64
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
	LogMessages       []string
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
}

// TokenBalance is an SPL token balance entry of a transaction.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	Amount       string // raw integer amount
	Decimals     int
}
