package amm

import "errors"

// ErrPoolMismatch reports a pool that does not trade the requested pair.
var ErrPoolMismatch = errors.New("amm: pool does not trade the requested pair")

// Pool is a direct venue's reserve snapshot. The base side is the pool's
// first listed asset.
type Pool struct {
	ID           [32]byte
	BaseAsset    [20]byte
	QuoteAsset   [20]byte
	BaseReserve  uint64
	QuoteReserve uint64
}

// Orient returns the reserves as (in, out) for a swap from one asset to the
// other.
func (p Pool) Orient(from, to [20]byte) (reserveIn, reserveOut uint64, err error) {
	switch {
	case from == p.BaseAsset && to == p.QuoteAsset:
		return p.BaseReserve, p.QuoteReserve, nil
	case from == p.QuoteAsset && to == p.BaseAsset:
		return p.QuoteReserve, p.BaseReserve, nil
	default:
		return 0, 0, ErrPoolMismatch
	}
}

// Quote prices amountIn against the pool.
func (p Pool) Quote(from, to [20]byte, amountIn, feeNumerator uint64) (uint64, error) {
	reserveIn, reserveOut, err := p.Orient(from, to)
	if err != nil {
		return 0, err
	}
	return SwapOutput(amountIn, reserveIn, reserveOut, feeNumerator)
}
