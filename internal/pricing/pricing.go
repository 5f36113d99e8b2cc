package pricing

import (
	"math"
	"time"

	"github.com/casa-vistamar/booking-api/internal/models"
)

// Rates is the configuration bundle the quote is computed from. Values are
// in the site currency; TouristTaxPerNight is per guest per night.
type Rates struct {
	BaseRate            float64
	CleaningFee         float64
	TouristTaxPerNight  float64
	WeeklyDiscountPct   float64
	BiweeklyDiscountPct float64
	MonthlyDiscountPct  float64
	DepositPct          float64
	DepositMin          float64
	DepositUnit         float64
}

// Breakdown is the result of a quote: the frozen pricing snapshot plus the
// suggested deposit.
type Breakdown struct {
	Pricing          models.Pricing
	DepositSuggested float64
}

// Nights returns the whole-night stay length, rounding partial days up.
func Nights(arrival, departure time.Time) int {
	return int(math.Ceil(departure.Sub(arrival).Hours() / 24))
}

// Quote maps stay parameters to a price breakdown. It is pure and performs
// no validation; callers must reject non-positive stays and guest counts
// before quoting.
//
// Discount tiers are not cumulative: the highest qualifying tier wins, so a
// 13-night stay uses the weekly rate, not the biweekly one.
func Quote(arrival, departure time.Time, guests int, r Rates) Breakdown {
	nights := Nights(arrival, departure)

	var pct float64
	switch {
	case nights >= 28:
		pct = r.MonthlyDiscountPct
	case nights >= 14:
		pct = r.BiweeklyDiscountPct
	case nights >= 7:
		pct = r.WeeklyDiscountPct
	}

	subtotal := r.BaseRate * float64(nights)
	discount := roundHalfUp(subtotal * pct / 100)
	touristTax := round2(r.TouristTaxPerNight * float64(nights) * float64(guests))
	total := subtotal - discount + r.CleaningFee + touristTax

	return Breakdown{
		Pricing: models.Pricing{
			NightlyRate: r.BaseRate,
			Nights:      nights,
			Subtotal:    subtotal,
			Discount:    discount,
			DiscountPct: pct,
			CleaningFee: r.CleaningFee,
			TouristTax:  touristTax,
			Total:       total,
		},
		DepositSuggested: suggestDeposit(total, r),
	}
}

// suggestDeposit rounds a share of the total to a coarse unit and floors it
// at the configured minimum, so the guest is never asked for an odd amount.
func suggestDeposit(total float64, r Rates) float64 {
	pct := r.DepositPct
	if pct <= 0 {
		pct = 0.30
	}
	unit := r.DepositUnit
	if unit <= 0 {
		unit = 50
	}
	min := r.DepositMin
	if min <= 0 {
		min = 100
	}
	suggested := roundToUnit(total*pct, unit)
	return math.Max(suggested, min)
}

// roundHalfUp rounds to the nearest whole amount, halves away from zero.
// The result is persisted and shown to the guest, so the rounding mode must
// stay consistent across quoting and recalculation.
func roundHalfUp(v float64) float64 {
	return math.Round(v)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func roundToUnit(v, unit float64) float64 {
	return math.Round(v/unit) * unit
}
