package pricing

import (
	"math"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// zScoreLimit is the number of standard deviations from the mean beyond which
// a listing value is considered an outlier.
const zScoreLimit = 3.0

// minSurvivors is the smallest sample the rejector will vouch for.
const minSurvivors = 3

// RejectOutliers removes values more than three standard deviations from the
// population mean, preserving input order. Listings priced far from the crowd
// (predatory buy-outs, inflated asks) must not skew the aggregate.
// Fails with ErrInsufficientData when fewer than three values survive.
func RejectOutliers(values []decimal.Decimal) ([]decimal.Decimal, error) {
	floats := make([]float64, len(values))
	for i, v := range values {
		floats[i] = v.InexactFloat64()
	}

	mean := 0.0
	for _, v := range floats {
		mean += v
	}
	mean /= float64(len(floats))

	variance := 0.0
	for _, v := range floats {
		variance += (v - mean) * (v - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(floats)))

	survivors := make([]decimal.Decimal, 0, len(values))
	for i, v := range floats {
		if stdDev > 0 && math.Abs((v-mean)/stdDev) > zScoreLimit {
			continue
		}
		survivors = append(survivors, values[i])
	}

	if len(survivors) < minSurvivors {
		return nil, errors.Wrapf(ErrInsufficientData, "%d of %d values survived", len(survivors), len(values))
	}
	return survivors, nil
}
