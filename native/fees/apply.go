package fees

import (
	"errors"
	"fmt"

	"intentengine/native/fixedpoint"
)

// DefaultProtocolFeeBps is the protocol fee charged on every intent (0.3%).
const DefaultProtocolFeeBps uint64 = 30

// ErrFeeRateOutOfRange reports a fee rate above 100%.
var ErrFeeRateOutOfRange = errors.New("fees: fee bps out of range")

// ApplyResult summarises the computed fee and the net amount left for
// settlement.
type ApplyResult struct {
	Gross  uint64
	Fee    uint64
	Net    uint64
	FeeBps uint64
}

// Apply evaluates fee = floor(gross*feeBps/10000) and net = gross-fee. Rounding
// always favours the protocol.
func Apply(gross, feeBps uint64) (ApplyResult, error) {
	if feeBps > fixedpoint.BpsDenominator {
		return ApplyResult{}, fmt.Errorf("%w: %d", ErrFeeRateOutOfRange, feeBps)
	}
	fee, err := fixedpoint.BpsOf(gross, feeBps)
	if err != nil {
		return ApplyResult{}, err
	}
	net, err := fixedpoint.SubUint64(gross, fee)
	if err != nil {
		return ApplyResult{}, err
	}
	return ApplyResult{Gross: gross, Fee: fee, Net: net, FeeBps: feeBps}, nil
}
