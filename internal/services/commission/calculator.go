// Package commission computes the platform fee split for a purchase.
package commission

import (
	"math"

	domainerrors "bazaar/internal/errors"
)

// DefaultRate is the platform commission applied when no rate is configured.
const DefaultRate = 0.15

// Split divides a gross amount (integer minor currency units) into the
// platform fee and the creator revenue for a given commission rate in [0,1].
// The fee is rounded half away from zero; fee + revenue always equals the
// gross amount.
func Split(amount int64, rate float64) (fee, revenue int64, err error) {
	if amount < 0 {
		return 0, 0, domainerrors.ErrInvalidAmount
	}
	if rate < 0 || rate > 1 {
		return 0, 0, domainerrors.ErrValidation
	}

	fee = int64(math.Round(float64(amount) * rate))
	revenue = amount - fee
	return fee, revenue, nil
}
