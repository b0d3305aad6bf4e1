package intent

import (
	"errors"

	"intentengine/native/fixedpoint"
)

var (
	ErrCapacityExceeded  = errors.New("intent: active intent capacity exceeded")
	ErrProtocolPaused    = errors.New("intent: protocol paused")
	ErrInvalidAmount     = errors.New("intent: invalid amount")
	ErrInvalidSlippage   = errors.New("intent: invalid slippage bound")
	ErrInvalidYieldBound = errors.New("intent: invalid yield bound")
	ErrRiskCheckFailed   = errors.New("intent: risk check failed")
	ErrInvalidAccount    = errors.New("intent: invalid account")

	ErrUnauthorized = errors.New("intent: unauthorized")
	ErrWrongVenue   = errors.New("intent: wrong venue")

	ErrNotPending    = errors.New("intent: intent not pending")
	ErrIntentExpired = errors.New("intent: intent expired")

	ErrSlippageExceeded  = errors.New("intent: slippage exceeded")
	ErrYieldTooLow       = errors.New("intent: yield too low")
	ErrPriceAboveTarget  = errors.New("intent: price above target")
	ErrInsufficientFunds = errors.New("intent: insufficient funds")
	ErrVenueFailed       = errors.New("intent: venue invocation failed")

	ErrIntentNotFound       = errors.New("intent: intent not found")
	ErrUserNotFound         = errors.New("intent: user not found")
	ErrNotInitialized       = errors.New("intent: protocol not initialized")
	ErrAlreadyInitialized   = errors.New("intent: protocol already initialized")
	ErrUserExists           = errors.New("intent: user already initialized")
	ErrUnsupportedOperation = errors.New("intent: operation not supported by profile")

	errNilState = errors.New("intent engine: state not configured")
)

// Class groups errors by how a caller should react to them.
type Class uint8

const (
	ClassInternal Class = iota
	// ClassValidation errors are rejected before any mutation.
	ClassValidation
	// ClassAuthorization errors are rejected before any mutation.
	ClassAuthorization
	// ClassTemporal errors depend on lifecycle position or time.
	ClassTemporal
	// ClassFinancial errors surface after pricing and roll the operation back.
	ClassFinancial
	// ClassArithmetic errors are fatal computation faults.
	ClassArithmetic
	ClassNotFound
	ClassConflict
)

func (c Class) String() string {
	switch c {
	case ClassValidation:
		return "validation"
	case ClassAuthorization:
		return "authorization"
	case ClassTemporal:
		return "temporal"
	case ClassFinancial:
		return "financial"
	case ClassArithmetic:
		return "arithmetic"
	case ClassNotFound:
		return "not_found"
	case ClassConflict:
		return "conflict"
	default:
		return "internal"
	}
}

var classes = []struct {
	err   error
	class Class
}{
	{fixedpoint.ErrOverflow, ClassArithmetic},
	{fixedpoint.ErrUnderflow, ClassArithmetic},
	{fixedpoint.ErrDivisionByZero, ClassArithmetic},
	{ErrCapacityExceeded, ClassValidation},
	{ErrProtocolPaused, ClassValidation},
	{ErrInvalidAmount, ClassValidation},
	{ErrInvalidSlippage, ClassValidation},
	{ErrInvalidYieldBound, ClassValidation},
	{ErrRiskCheckFailed, ClassValidation},
	{ErrInvalidAccount, ClassValidation},
	{ErrUnsupportedOperation, ClassValidation},
	{ErrUnauthorized, ClassAuthorization},
	{ErrWrongVenue, ClassAuthorization},
	{ErrNotPending, ClassTemporal},
	{ErrIntentExpired, ClassTemporal},
	{ErrSlippageExceeded, ClassFinancial},
	{ErrYieldTooLow, ClassFinancial},
	{ErrPriceAboveTarget, ClassFinancial},
	{ErrInsufficientFunds, ClassFinancial},
	{ErrVenueFailed, ClassFinancial},
	{ErrIntentNotFound, ClassNotFound},
	{ErrUserNotFound, ClassNotFound},
	{ErrNotInitialized, ClassConflict},
	{ErrAlreadyInitialized, ClassConflict},
	{ErrUserExists, ClassConflict},
}

// Classify maps an error onto its class. Arithmetic faults win over any error
// they are wrapped in.
func Classify(err error) Class {
	if err == nil {
		return ClassInternal
	}
	for _, entry := range classes {
		if errors.Is(err, entry.err) {
			return entry.class
		}
	}
	return ClassInternal
}
