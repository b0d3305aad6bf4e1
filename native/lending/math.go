package lending

import "intentengine/native/fixedpoint"

const (
	// percentToBps converts whole percentages into basis points.
	percentToBps uint64 = 100
)

var wad = mustWide("1000000000000000000")

func mustWide(value string) fixedpoint.Wide {
	v, err := fixedpoint.ParseDecimal(value)
	if err != nil {
		panic("invalid wide integer constant")
	}
	return v
}

// WadToAmount truncates a wad-scaled balance to base units.
func WadToAmount(wads fixedpoint.Wide) (fixedpoint.Wide, error) {
	return wads.Div(wad)
}

// AmountToWad scales base units into a wad balance.
func AmountToWad(amount uint64) (fixedpoint.Wide, error) {
	return fixedpoint.U(amount).Mul(wad)
}

func percentCurve(minRate, optimalRate, maxRate, optimalUtilization uint8) RateCurve {
	return RateCurve{
		MinRateBps:            uint64(minRate) * percentToBps,
		OptimalRateBps:        uint64(optimalRate) * percentToBps,
		MaxRateBps:            uint64(maxRate) * percentToBps,
		OptimalUtilizationBps: uint64(optimalUtilization) * percentToBps,
	}
}
