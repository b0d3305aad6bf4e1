package lending

import "intentengine/native/fixedpoint"

const (
	// PrimaryConversionPercent is the share of the borrow rate the primary
	// lender pays to suppliers.
	PrimaryConversionPercent uint64 = 70
	// SecondaryConversionPercent is the share of the borrow rate the secondary
	// lender pays to suppliers.
	SecondaryConversionPercent uint64 = 75
)

// PercentRateConfig is the rate configuration as lending venues publish it:
// whole percentages rather than basis points.
type PercentRateConfig struct {
	// OptimalUtilizationRate is the kink utilisation in percent.
	OptimalUtilizationRate uint8 `json:"optimalUtilizationRate"`
	// MinBorrowRate is the borrow rate at zero utilisation in percent.
	MinBorrowRate uint8 `json:"minBorrowRate"`
	// OptimalBorrowRate is the borrow rate at the kink in percent.
	OptimalBorrowRate uint8 `json:"optimalBorrowRate"`
	// MaxBorrowRate is the borrow rate at full utilisation in percent.
	MaxBorrowRate uint8 `json:"maxBorrowRate"`
}

// Curve converts the venue configuration into a basis point curve.
func (c PercentRateConfig) Curve() RateCurve {
	return percentCurve(c.MinBorrowRate, c.OptimalBorrowRate, c.MaxBorrowRate, c.OptimalUtilizationRate)
}

// Quote is the yield derived from a reserve snapshot.
type Quote struct {
	UtilizationBps uint64
	BorrowAPYBps   uint64
	LendingAPYBps  uint64
}

// Reserve is a lending venue reserve snapshot. Implementations are limited to
// the venue shapes defined in this package.
type Reserve interface {
	ReserveAsset() [20]byte
	Quote() (Quote, error)
	reserve()
}

// PrimaryReserve is the snapshot reported by the primary lender. Borrowed
// liquidity is tracked in wads (1e18 scaled base units).
type PrimaryReserve struct {
	// Asset identifies the reserve's liquidity asset.
	Asset [20]byte
	// AvailableAmount is the liquidity that can still be borrowed.
	AvailableAmount uint64
	// BorrowedAmountWads is the outstanding debt scaled by 1e18.
	BorrowedAmountWads fixedpoint.Wide
	// Config is the venue's rate configuration.
	Config PercentRateConfig
}

func (PrimaryReserve) reserve() {}

// ReserveAsset returns the reserve's liquidity asset.
func (r PrimaryReserve) ReserveAsset() [20]byte { return r.Asset }

// Quote derives utilisation, borrow rate and supplier yield.
func (r PrimaryReserve) Quote() (Quote, error) {
	borrowed, err := WadToAmount(r.BorrowedAmountWads)
	if err != nil {
		return Quote{}, err
	}
	util, err := UtilizationWide(fixedpoint.U(r.AvailableAmount), borrowed)
	if err != nil {
		return Quote{}, err
	}
	return quoteCurve(r.Config.Curve(), util, PrimaryConversionPercent)
}

// SecondaryReserve is the snapshot reported by the secondary lender. Borrowed
// liquidity is tracked in plain base units.
type SecondaryReserve struct {
	// Asset identifies the reserve's liquidity asset.
	Asset [20]byte
	// AvailableAmount is the liquidity that can still be borrowed.
	AvailableAmount uint64
	// BorrowedAmount is the outstanding debt in base units.
	BorrowedAmount uint64
	// Config is the venue's rate configuration.
	Config PercentRateConfig
}

func (SecondaryReserve) reserve() {}

// ReserveAsset returns the reserve's liquidity asset.
func (r SecondaryReserve) ReserveAsset() [20]byte { return r.Asset }

// Quote derives utilisation, borrow rate and supplier yield.
func (r SecondaryReserve) Quote() (Quote, error) {
	util, err := Utilization(r.AvailableAmount, r.BorrowedAmount)
	if err != nil {
		return Quote{}, err
	}
	return quoteCurve(r.Config.Curve(), util, SecondaryConversionPercent)
}

func quoteCurve(curve RateCurve, util, conversion uint64) (Quote, error) {
	borrow, err := curve.BorrowAPY(util)
	if err != nil {
		return Quote{}, err
	}
	lend, err := LendingAPY(borrow, conversion)
	if err != nil {
		return Quote{}, err
	}
	return Quote{UtilizationBps: util, BorrowAPYBps: borrow, LendingAPYBps: lend}, nil
}
