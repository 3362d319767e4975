package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// rpcServer answers every request with result(req) as the JSON-RPC result.
func rpcServer(t *testing.T, result func(req rpcRequest) interface{}) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result(req),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHTTPClient_GetTransaction(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) interface{} {
		if req.Method != "getTransaction" {
			t.Errorf("expected method getTransaction, got %s", req.Method)
		}
		return map[string]interface{}{
			"slot":      int64(123456),
			"blockTime": int64(1700000000),
			"meta": map[string]interface{}{
				"err":          nil,
				"fee":          5000,
				"preBalances":  []uint64{2_000_000_000, 0},
				"postBalances": []uint64{1_899_995_000, 0},
				"preTokenBalances": []interface{}{},
				"postTokenBalances": []interface{}{
					map[string]interface{}{
						"accountIndex": 1,
						"mint":         "mint1",
						"owner":        "addr1",
						"uiTokenAmount": map[string]interface{}{
							"amount":   "3500000000",
							"decimals": 6,
						},
					},
				},
				"logMessages": []string{"Program log: Instruction: Buy"},
			},
			"transaction": map[string]interface{}{
				"message": map[string]interface{}{
					"accountKeys": []string{"addr1", "addr2"},
				},
			},
		}
	})

	client := NewHTTPClient(server.URL)
	tx, err := client.GetTransaction(context.Background(), "testsig123")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if tx == nil {
		t.Fatal("expected transaction, got nil")
	}

	if tx.Slot != 123456 {
		t.Errorf("expected slot 123456, got %d", tx.Slot)
	}
	if tx.BlockTime != 1700000000 {
		t.Errorf("expected blockTime 1700000000, got %d", tx.BlockTime)
	}
	if tx.Meta == nil {
		t.Fatal("expected meta, got nil")
	}
	if tx.Meta.Fee != 5000 {
		t.Errorf("expected fee 5000, got %d", tx.Meta.Fee)
	}
	if len(tx.Meta.PostBalances) != 2 || tx.Meta.PostBalances[0] != 1_899_995_000 {
		t.Errorf("unexpected post balances %v", tx.Meta.PostBalances)
	}
	if len(tx.Meta.PostTokenBalances) != 1 {
		t.Fatalf("expected 1 post token balance, got %d", len(tx.Meta.PostTokenBalances))
	}
	tb := tx.Meta.PostTokenBalances[0]
	if tb.Mint != "mint1" || tb.Owner != "addr1" || tb.Amount != "3500000000" || tb.Decimals != 6 {
		t.Errorf("unexpected token balance %+v", tb)
	}
	if tx.Message == nil || len(tx.Message.AccountKeys) != 2 {
		t.Errorf("expected 2 account keys, got %+v", tx.Message)
	}
}

func TestHTTPClient_GetTransaction_NotFound(t *testing.T) {
	server := rpcServer(t, func(rpcRequest) interface{} { return nil })

	client := NewHTTPClient(server.URL)
	tx, err := client.GetTransaction(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if tx != nil {
		t.Errorf("expected nil for not found, got %+v", tx)
	}
}

func TestHTTPClient_GetBalance(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) interface{} {
		if req.Method != "getBalance" {
			t.Errorf("expected method getBalance, got %s", req.Method)
		}
		if len(req.Params) == 0 || req.Params[0] != "wallet1" {
			t.Errorf("expected address param wallet1, got %v", req.Params)
		}
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 1},
			"value":   uint64(1_500_000_000),
		}
	})

	client := NewHTTPClient(server.URL)
	lamports, err := client.GetBalance(context.Background(), "wallet1")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if lamports != 1_500_000_000 {
		t.Errorf("expected 1500000000 lamports, got %d", lamports)
	}
}

func TestHTTPClient_Retry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := attempts.Add(1)
		if count < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  map[string]interface{}{"value": uint64(999)},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(10*time.Millisecond),
	)

	lamports, err := client.GetBalance(context.Background(), "wallet1")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if lamports != 999 {
		t.Errorf("expected 999, got %d", lamports)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_RPCError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error": map[string]interface{}{
				"code":    -32600,
				"message": "Invalid Request",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithRetryDelay(time.Millisecond))

	_, err := client.GetBalance(context.Background(), "wallet1")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	rpcErr, ok := err.(*rpcError)
	if !ok {
		t.Fatalf("expected rpcError, got %T", err)
	}
	if rpcErr.Code != -32600 {
		t.Errorf("expected code -32600, got %d", rpcErr.Code)
	}
	if attempts.Load() != 1 {
		t.Errorf("RPC errors must not be retried, got %d attempts", attempts.Load())
	}
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.GetBalance(ctx, "wallet1"); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
