package pricing

import "github.com/pkg/errors"

var (
	// ErrInsufficientData is returned when too few values survive outlier
	// rejection to produce a trustworthy statistic.
	ErrInsufficientData = errors.New("not enough values after outlier rejection")

	// ErrInsufficientListings is returned when an item has too few usable
	// listings on one side to aggregate a candidate price.
	ErrInsufficientListings = errors.New("not enough listings")

	// ErrMalformedBaseline is returned when the percentage difference against
	// the baseline cannot be computed, which indicates a corrupt baseline record.
	ErrMalformedBaseline = errors.New("baseline comparison is not a number")

	// ErrBaselineRejected is returned when the candidate price falls outside
	// the configured tolerance around the baseline.
	ErrBaselineRejected = errors.New("price rejected by baseline")

	// ErrPricingAborted wraps any stage failure at the top level. The caller
	// must skip the item and leave its previously published price untouched.
	ErrPricingAborted = errors.New("pricing aborted")
)
