package pricing

import (
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func testRates() Rates {
	return Rates{
		BaseRate:            120,
		CleaningFee:         50,
		TouristTaxPerNight:  2.88,
		WeeklyDiscountPct:   5,
		BiweeklyDiscountPct: 10,
		MonthlyDiscountPct:  20,
		DepositPct:          0.30,
		DepositMin:          100,
		DepositUnit:         50,
	}
}

func TestQuoteWeekStay(t *testing.T) {
	b := Quote(date("2026-06-01"), date("2026-06-08"), 2, testRates())

	if b.Pricing.Nights != 7 {
		t.Errorf("expected 7 nights, got %d", b.Pricing.Nights)
	}
	if b.Pricing.Subtotal != 840 {
		t.Errorf("expected subtotal 840, got %v", b.Pricing.Subtotal)
	}
	if b.Pricing.DiscountPct != 5 {
		t.Errorf("expected weekly discount tier (5%%), got %v%%", b.Pricing.DiscountPct)
	}
	if b.Pricing.Discount != 42 {
		t.Errorf("expected discount 42, got %v", b.Pricing.Discount)
	}
	if b.Pricing.TouristTax != 40.32 {
		t.Errorf("expected tourist tax 40.32, got %v", b.Pricing.TouristTax)
	}
	want := 840.0 - 42 + 50 + 40.32
	if b.Pricing.Total != want {
		t.Errorf("expected total %v, got %v", want, b.Pricing.Total)
	}
}

func TestQuoteDiscountTiers(t *testing.T) {
	cases := []struct {
		nights  int
		wantPct float64
	}{
		{1, 0},
		{6, 0},
		{7, 5},
		{13, 5},  // highest qualifying tier wins, not cumulative
		{14, 10},
		{27, 10},
		{28, 20},
		{35, 20},
	}

	arrival := date("2026-06-01")
	for _, c := range cases {
		b := Quote(arrival, arrival.AddDate(0, 0, c.nights), 2, testRates())
		if b.Pricing.Nights != c.nights {
			t.Errorf("%d nights: computed %d", c.nights, b.Pricing.Nights)
		}
		if b.Pricing.DiscountPct != c.wantPct {
			t.Errorf("%d nights: expected %v%% discount, got %v%%", c.nights, c.wantPct, b.Pricing.DiscountPct)
		}
	}
}

func TestQuoteTotalInvariant(t *testing.T) {
	arrival := date("2026-06-01")
	for nights := 1; nights <= 40; nights++ {
		p := Quote(arrival, arrival.AddDate(0, 0, nights), 3, testRates()).Pricing
		want := p.Subtotal - p.Discount + p.CleaningFee + p.TouristTax
		if p.Total != want {
			t.Fatalf("%d nights: total %v does not match breakdown sum %v", nights, p.Total, want)
		}
	}
}

func TestQuoteMonotonicWithinTier(t *testing.T) {
	arrival := date("2026-06-01")
	prev := 0.0
	for nights := 7; nights <= 13; nights++ {
		b := Quote(arrival, arrival.AddDate(0, 0, nights), 2, testRates())
		if b.Pricing.Total < prev {
			t.Fatalf("total decreased within weekly tier at %d nights: %v < %v", nights, b.Pricing.Total, prev)
		}
		prev = b.Pricing.Total
	}
}

func TestSuggestedDeposit(t *testing.T) {
	t.Run("rounded to unit", func(t *testing.T) {
		b := Quote(date("2026-06-01"), date("2026-06-08"), 2, testRates())
		// total 888.32 -> 30% = 266.496 -> nearest 50 = 250
		if b.DepositSuggested != 250 {
			t.Errorf("expected deposit 250, got %v", b.DepositSuggested)
		}
	})

	t.Run("floored at minimum", func(t *testing.T) {
		r := testRates()
		r.BaseRate = 30
		r.CleaningFee = 0
		r.TouristTaxPerNight = 0
		b := Quote(date("2026-06-01"), date("2026-06-03"), 1, r)
		// total 60 -> 30% = 18 -> nearest 50 = 0 -> floored at 100
		if b.DepositSuggested != 100 {
			t.Errorf("expected minimum deposit 100, got %v", b.DepositSuggested)
		}
	})
}
