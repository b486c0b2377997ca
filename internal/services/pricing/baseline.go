package pricing

import (
	"math"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/scrapyard/autopricer/internal/domain"
)

// Tolerance bounds how far the engine's candidate may drift from the baseline.
type Tolerance struct {
	// MaxBuyPremium is the maximum allowed percentage difference of the buy
	// candidate above the baseline buy price.
	MaxBuyPremium decimal.Decimal
	// MinSellDiscount is the minimum allowed percentage difference of the
	// sell candidate below the baseline sell price (a negative number).
	MinSellDiscount decimal.Decimal
}

// PercentageDifference computes how far candidate deviates from reference, in
// percent. Both zero yields 0; a zero reference with a non-zero candidate
// yields 100. Fails with ErrMalformedBaseline when the computation produces a
// non-numeric result, which guards against a corrupt baseline record.
func PercentageDifference(reference, candidate decimal.Decimal) (decimal.Decimal, error) {
	if reference.IsZero() {
		if candidate.IsZero() {
			return decimal.Zero, nil
		}
		return decimal.NewFromInt(100), nil
	}
	diff := candidate.Sub(reference).Div(reference.Abs()).Mul(decimal.NewFromInt(100))
	if f := diff.InexactFloat64(); math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, errors.Wrapf(ErrMalformedBaseline, "reference=%s candidate=%s", reference, candidate)
	}
	return diff, nil
}

// ValidateAgainstBaseline gates the candidate pair against the external
// reference. The engine's own statistics can drift on thin or manipulated
// listing pools; a price wildly inconsistent with the baseline never ships.
func ValidateAgainstBaseline(estimate domain.PriceEstimate, baseline domain.BaselinePrice, keyRate decimal.Decimal, tol Tolerance) error {
	buyDiff, err := PercentageDifference(baseline.Buy.Scalar(keyRate), estimate.Buy.Scalar(keyRate))
	if err != nil {
		return err
	}
	sellDiff, err := PercentageDifference(baseline.Sell.Scalar(keyRate), estimate.Sell.Scalar(keyRate))
	if err != nil {
		return err
	}

	if buyDiff.GreaterThan(tol.MaxBuyPremium) {
		return errors.Wrapf(ErrBaselineRejected, "buying for too much: %s%% over baseline, limit %s%%",
			buyDiff.StringFixed(2), tol.MaxBuyPremium)
	}
	if sellDiff.LessThan(tol.MinSellDiscount) {
		return errors.Wrapf(ErrBaselineRejected, "selling for too little: %s%% under baseline, limit %s%%",
			sellDiff.StringFixed(2), tol.MinSellDiscount)
	}
	return nil
}
