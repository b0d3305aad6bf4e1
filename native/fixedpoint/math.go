package fixedpoint

// MulDiv returns floor(a*b/denom) with a 128-bit intermediate.
func MulDiv(a, b, denom uint64) (uint64, error) {
	product, err := U(a).Mul(U(b))
	if err != nil {
		return 0, err
	}
	quotient, err := product.Div(U(denom))
	if err != nil {
		return 0, err
	}
	return quotient.Uint64()
}

// MulDivCeil returns ceil(a*b/denom) with a 128-bit intermediate.
func MulDivCeil(a, b, denom uint64) (uint64, error) {
	product, err := U(a).Mul(U(b))
	if err != nil {
		return 0, err
	}
	quotient, err := product.DivCeil(U(denom))
	if err != nil {
		return 0, err
	}
	return quotient.Uint64()
}

// BpsOf returns floor(amount*bps/10000).
func BpsOf(amount, bps uint64) (uint64, error) {
	return MulDiv(amount, bps, BpsDenominator)
}

// SubUint64 returns a-b or ErrUnderflow.
func SubUint64(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrUnderflow
	}
	return a - b, nil
}

// AddUint64 returns a+b or ErrOverflow.
func AddUint64(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrOverflow
	}
	return sum, nil
}
