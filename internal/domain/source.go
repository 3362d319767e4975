package domain

// Pool identifies the venue pool an acquisition is routed to.
type Pool string

const (
	PoolPump      Pool = "pump"
	PoolPumpAMM   Pool = "pump-amm"
	PoolRaydium   Pool = "raydium"
	PoolLaunchLab Pool = "launchlab"
	PoolBonk      Pool = "bonk"
	PoolAuto      Pool = "auto"
)

// String returns the string representation of Pool.
func (p Pool) String() string {
	return string(p)
}

// IsValid checks if the pool is a known venue.
func (p Pool) IsValid() bool {
	switch p {
	case PoolPump, PoolPumpAMM, PoolRaydium, PoolLaunchLab, PoolBonk, PoolAuto:
		return true
	}
	return false
}
