// Package pricing derives option strike levels from raw traded prices.
package pricing

import (
	"math"

	apperrors "github.com/FaizanQureshiFinzome/simple-algo/internal/errors"
)

// Normalize rounds raw to the nearest multiple of step, giving the
// at-the-money strike for the step's strike grid. Halfway values round away
// from zero. Returns ErrInvalidStep for step <= 0 and ErrNoData when no
// usable price was supplied (raw <= 0 is treated as "no quote available").
func Normalize(raw float64, step int) (int, error) {
	if step <= 0 {
		return 0, apperrors.ErrInvalidStep
	}
	if raw <= 0 || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, apperrors.ErrNoData
	}

	return int(math.Round(raw/float64(step))) * step, nil
}

// NextStrike returns the strike one step above the at-the-money strike,
// for callers wanting the next level above the computed ATM rather than the
// ATM itself. Error behavior matches Normalize.
func NextStrike(raw float64, step int) (int, error) {
	atm, err := Normalize(raw, step)
	if err != nil {
		return 0, err
	}
	return atm + step, nil
}
