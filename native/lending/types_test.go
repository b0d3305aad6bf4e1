package lending

import (
	"testing"

	"intentengine/native/fixedpoint"
)

var testConfig = PercentRateConfig{
	OptimalUtilizationRate: 80,
	MinBorrowRate:          2,
	OptimalBorrowRate:      10,
	MaxBorrowRate:          50,
}

func TestPrimaryReserveQuote(t *testing.T) {
	borrowed, err := AmountToWad(800)
	if err != nil {
		t.Fatalf("to wad: %v", err)
	}
	reserve := PrimaryReserve{AvailableAmount: 200, BorrowedAmountWads: borrowed, Config: testConfig}
	quote, err := reserve.Quote()
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.UtilizationBps != 8000 || quote.BorrowAPYBps != 1000 || quote.LendingAPYBps != 700 {
		t.Fatalf("unexpected quote %+v", quote)
	}
}

func TestPrimaryReserveTruncatesPartialWads(t *testing.T) {
	partial, err := fixedpoint.ParseDecimal("999999999999999999")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	reserve := PrimaryReserve{AvailableAmount: 0, BorrowedAmountWads: partial, Config: testConfig}
	quote, err := reserve.Quote()
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.UtilizationBps != 0 || quote.BorrowAPYBps != 200 || quote.LendingAPYBps != 140 {
		t.Fatalf("unexpected quote %+v", quote)
	}
}

func TestSecondaryReserveQuote(t *testing.T) {
	reserve := SecondaryReserve{AvailableAmount: 200, BorrowedAmount: 800, Config: testConfig}
	quote, err := reserve.Quote()
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.UtilizationBps != 8000 || quote.BorrowAPYBps != 1000 || quote.LendingAPYBps != 750 {
		t.Fatalf("unexpected quote %+v", quote)
	}
}

func TestEmptySecondaryReserve(t *testing.T) {
	reserve := SecondaryReserve{Config: testConfig}
	quote, err := reserve.Quote()
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.UtilizationBps != 0 || quote.LendingAPYBps != 150 {
		t.Fatalf("unexpected quote %+v", quote)
	}
}
