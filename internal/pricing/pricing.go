package pricing

import (
	"math"
	"time"

	"tortoise-backend/internal/model"
)

// employeeNetFactor is the fixed pre-tax salary-deduction benefit applied
// on top of the best offer. Not configurable.
const employeeNetFactor = 0.7

// Qualifies reports whether an offer may discount a price at the given
// instant. Only ValidTo is checked against now: the portal has always
// honored offers before their stated start date, and changing that here
// would silently reprice data created by existing deployments.
func Qualifies(o model.Offer, now time.Time) bool {
	if !o.IsActive {
		return false
	}
	validTo, ok := parseDate(o.ValidTo)
	if !ok {
		// An unparsable expiry never qualifies, matching the portal's
		// invalid-date comparison semantics.
		return false
	}
	return !validTo.Before(now)
}

// EffectivePrice resolves the monthly rental for a device at the given
// instant: the minimum discounted candidate across all qualifying offers,
// rounded to the nearest currency unit, or the base price when none
// qualify. The result is never negative.
func EffectivePrice(d model.Device, now time.Time) int {
	best := float64(d.Price)
	for _, o := range d.Offers {
		if !Qualifies(o, now) {
			continue
		}
		var candidate float64
		switch o.Type {
		case model.OfferPercentage:
			candidate = float64(d.Price) * (1 - o.Value/100)
		case model.OfferFlat:
			candidate = math.Max(0, float64(d.Price)-o.Value)
		default:
			continue
		}
		if candidate < best {
			best = candidate
		}
	}
	return int(math.Round(best))
}

// HasDiscount reports whether the device currently rents below its base
// price, used by listings to decide whether to show the strikethrough.
func HasDiscount(d model.Device, now time.Time) bool {
	return EffectivePrice(d, now) < d.Price
}

// EmployeeNet converts an effective price into the figure actually
// deducted from an employee's salary.
func EmployeeNet(effectivePrice int) int {
	return int(math.Round(float64(effectivePrice) * employeeNetFactor))
}

// Offer dates arrive from form inputs as plain dates, but older records
// may carry full timestamps.
func parseDate(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
