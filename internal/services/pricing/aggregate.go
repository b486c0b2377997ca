package pricing

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/scrapyard/autopricer/internal/domain"
)

const (
	// minBuySample is the smallest buy-side sample worth averaging.
	minBuySample = 3
	// outlierSample is the sample size from which outlier rejection pays off.
	// Below it the statistics are too thin to trust.
	outlierSample = 10
	// topSample is how many best listings feed the mean.
	topSample = 3
)

// Prioritize moves listings from trusted submitters to the front, keeping the
// relative order of the rest intact. The input is expected to be sorted
// best-first by price already.
func Prioritize(listings []domain.Listing, trusted map[string]struct{}) []domain.Listing {
	reordered := make([]domain.Listing, len(listings))
	copy(reordered, listings)
	sort.SliceStable(reordered, func(i, j int) bool {
		_, pi := trusted[reordered[i].SteamID]
		_, pj := trusted[reordered[j].SteamID]
		return pi && !pj
	})
	return reordered
}

// AggregateBuy turns a filtered, best-first ordered buy listing sequence into
// a single candidate price.
//
// With fewer than ten listings the candidate is the plain mean of the first
// three: key counts averaged with integer truncation, metal totals averaged.
// From ten listings up, outliers are rejected over the scalar values first and
// the candidate is the mean of the first three surviving entries, keeping
// outlier safety while still favouring the best-priced, most trusted listings.
func AggregateBuy(listings []domain.Listing, trusted map[string]struct{}, keyRate decimal.Decimal) (domain.Currency, error) {
	ordered := Prioritize(listings, trusted)
	n := len(ordered)

	switch {
	case n < minBuySample:
		return domain.Currency{}, errors.Wrapf(ErrInsufficientListings, "%d buy listings", n)

	case n < outlierSample:
		var totalKeys int64
		totalMetal := decimal.Zero
		for _, l := range ordered[:topSample] {
			c := l.Currencies.Currency()
			totalKeys += c.Keys
			totalMetal = totalMetal.Add(c.Metal)
		}
		metal := domain.Quantize(totalMetal.Div(decimal.NewFromInt(topSample)))
		return domain.Currency{Keys: totalKeys / topSample, Metal: metal}, nil

	default:
		scalars := make([]decimal.Decimal, n)
		for i, l := range ordered {
			scalars[i] = l.Scalar(keyRate)
		}
		survivors, err := RejectOutliers(scalars)
		if err != nil {
			return domain.Currency{}, err
		}
		total := decimal.Zero
		for _, v := range survivors[:topSample] {
			total = total.Add(v)
		}
		mean := total.Div(decimal.NewFromInt(topSample))
		return domain.CurrencyFromScalar(mean, keyRate)
	}
}

// AggregateSell picks the single best surviving ask as the candidate: the
// sharpest ask wins over an average on the sell side. Trusted submitters are
// still preferred over better-priced strangers.
func AggregateSell(listings []domain.Listing, trusted map[string]struct{}) (domain.Currency, error) {
	ordered := Prioritize(listings, trusted)
	if len(ordered) == 0 {
		return domain.Currency{}, errors.Wrap(ErrInsufficientListings, "no sell listings")
	}
	return ordered[0].Currencies.Currency(), nil
}
