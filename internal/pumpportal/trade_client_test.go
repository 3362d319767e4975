package pumpportal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/execution"
	"solana-sniper/internal/solana"
)

type prefixOpener struct{ err error }

func (o prefixOpener) Open(sealed string) (string, error) {
	if o.err != nil {
		return "", o.err
	}
	return "key-" + sealed, nil
}

type fakeFills struct {
	fill *solana.Fill
	err  error
	args []string
}

func (f *fakeFills) LookupFill(_ context.Context, signature, owner, mint string) (*solana.Fill, error) {
	f.args = []string{signature, owner, mint}
	return f.fill, f.err
}

func acquireRequest() execution.AcquireRequest {
	return execution.AcquireRequest{
		Account:     &domain.Account{ID: "acc1", PublicKey: "Wallet1", SealedAPIKey: "sealed1"},
		Mint:        "Mint1pump",
		Amount:      0.25,
		SlippagePct: 15,
		PriorityFee: 0.0005,
		Pool:        domain.PoolPump,
	}
}

func tradeServer(t *testing.T, status int, response string) (*httptest.Server, *tradeRequest) {
	t.Helper()
	got := &tradeRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/trade", r.URL.Path)
		assert.Equal(t, "key-sealed1", r.URL.Query().Get("api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(got))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)
	return server, got
}

func TestTradeClient_Acquire(t *testing.T) {
	server, got := tradeServer(t, http.StatusOK, `{"signature":"5sig"}`)

	client := NewTradeClient(server.URL+"/api/", prefixOpener{})
	res, err := client.Acquire(context.Background(), acquireRequest())
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "5sig", res.Signature)
	assert.Equal(t, 0.0005, res.Fee, "priority fee without a fill lookup")
	assert.Zero(t, res.Price)

	assert.Equal(t, tradeRequest{
		Action:           "buy",
		Mint:             "Mint1pump",
		Amount:           0.25,
		DenominatedInSol: "true",
		Slippage:         15,
		PriorityFee:      0.0005,
		Pool:             "pump",
	}, *got)
}

func TestTradeClient_APIErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
		want     string
	}{
		{name: "error list", status: http.StatusBadRequest, response: `{"errors":["Insufficient funds","bad slippage"]}`, want: "Insufficient funds; bad slippage"},
		{name: "error string", status: http.StatusOK, response: `{"errors":"invalid mint"}`, want: "invalid mint"},
		{name: "no signature", status: http.StatusOK, response: `{}`, want: "status 200: no signature returned"},
		{name: "non json", status: http.StatusBadGateway, response: `upstream down`, want: "status 502: upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := tradeServer(t, tt.status, tt.response)

			res, err := NewTradeClient(server.URL+"/api", prefixOpener{}).Acquire(context.Background(), acquireRequest())
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, tt.want, res.Error)
		})
	}
}

func TestTradeClient_KeyError(t *testing.T) {
	client := NewTradeClient("http://127.0.0.1:1", prefixOpener{err: errors.New("wrong passphrase")})

	_, err := client.Acquire(context.Background(), acquireRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acc1")
}

func TestTradeClient_TransportErrorHidesKey(t *testing.T) {
	client := NewTradeClient("http://127.0.0.1:1", prefixOpener{})

	_, err := client.Acquire(context.Background(), acquireRequest())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "key-sealed1")
}

func TestTradeClient_FillLookup(t *testing.T) {
	server, _ := tradeServer(t, http.StatusOK, `{"signature":"5sig"}`)
	fills := &fakeFills{fill: &solana.Fill{
		Fee:   decimal.RequireFromString("0.000005"),
		Price: decimal.RequireFromString("0.00004"),
	}}

	client := NewTradeClient(server.URL+"/api", prefixOpener{}, WithFillLookup(fills))
	res, err := client.Acquire(context.Background(), acquireRequest())
	require.NoError(t, err)

	assert.Equal(t, []string{"5sig", "Wallet1", "Mint1pump"}, fills.args)
	assert.InDelta(t, 0.000005, res.Fee, 1e-12)
	assert.InDelta(t, 0.00004, res.Price, 1e-12)
}

func TestTradeClient_FillLookupFailureKeepsSuccess(t *testing.T) {
	server, _ := tradeServer(t, http.StatusOK, `{"signature":"5sig"}`)
	fills := &fakeFills{err: solana.ErrFillNotFound}

	client := NewTradeClient(server.URL+"/api", prefixOpener{}, WithFillLookup(fills))
	res, err := client.Acquire(context.Background(), acquireRequest())
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Zero(t, res.Price)
	assert.Equal(t, 0.0005, res.Fee)
}

func TestTradeClient_DefaultPriorityFee(t *testing.T) {
	server, got := tradeServer(t, http.StatusOK, `{"signature":"5sig"}`)

	req := acquireRequest()
	req.PriorityFee = 0
	client := NewTradeClient(server.URL+"/api", prefixOpener{}, WithDefaultPriorityFee(0.0001))
	res, err := client.Acquire(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 0.0001, got.PriorityFee)
	assert.Equal(t, 0.0001, res.Fee)
}
