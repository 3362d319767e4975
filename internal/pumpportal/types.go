// Package pumpportal talks to the PumpPortal data feed and Lightning trade API.
package pumpportal

// NewTokenMessage is a token creation event from the subscribeNewToken stream.
type NewTokenMessage struct {
	Signature             string  `json:"signature"`
	Mint                  string  `json:"mint"`
	TraderPublicKey       string  `json:"traderPublicKey"`
	TxType                string  `json:"txType"`
	InitialBuy            float64 `json:"initialBuy"`
	SolAmount             float64 `json:"solAmount"`
	BondingCurveKey       string  `json:"bondingCurveKey"`
	VTokensInBondingCurve float64 `json:"vTokensInBondingCurve"`
	VSolInBondingCurve    float64 `json:"vSolInBondingCurve"`
	MarketCapSol          float64 `json:"marketCapSol"`
	Name                  string  `json:"name"`
	Symbol                string  `json:"symbol"`
	URI                   string  `json:"uri"`
	Pool                  string  `json:"pool"`
}

// IsCreate reports whether the message describes a token creation.
// Subscription acknowledgements and other frames carry no mint.
func (m *NewTokenMessage) IsCreate() bool {
	return m.Mint != "" && (m.TxType == "" || m.TxType == "create")
}

type subscribeRequest struct {
	Method string   `json:"method"`
	Keys   []string `json:"keys,omitempty"`
}

type tradeRequest struct {
	Action           string  `json:"action"`
	Mint             string  `json:"mint"`
	Amount           float64 `json:"amount"`
	DenominatedInSol string  `json:"denominatedInSol"`
	Slippage         float64 `json:"slippage"`
	PriorityFee      float64 `json:"priorityFee"`
	Pool             string  `json:"pool,omitempty"`
}

type tradeResponse struct {
	Signature string      `json:"signature"`
	Errors    interface{} `json:"errors"`
}
