// Package pricing implements the price determination engine: the pure,
// synchronous pipeline that turns a noisy population of community listings
// for one item into a consistent buy/sell price pair, cross-checked against
// an external baseline.
package pricing

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/scrapyard/autopricer/internal/domain"
)

// PriceSource tags finalized records so downstream consumers know who
// produced the price.
const PriceSource = "bptf"

// Item identifies what is being priced.
type Item struct {
	Name string
	SKU  string
}

// Options configures one engine instance. All fields are read-only after
// construction.
type Options struct {
	Filter          FilterRules
	TrustedSteamIDs map[string]struct{}
	Tolerance       Tolerance
}

// Engine derives a fair market price for a single item from raw listings.
// It holds no state between calls, performs no I/O and never blocks: all
// inputs are materialized by the caller before Price is invoked. Given
// identical inputs it produces an identical price pair.
type Engine struct {
	opts Options
	now  func() time.Time
}

// NewEngine returns an engine with the given rules and tolerances.
func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts, now: time.Now}
}

// Price runs the full pipeline for one item: filter both sides, order them
// best-first, aggregate buy and sell candidates, gate against the baseline
// and resolve the spread. The same key rate snapshot is used for both sides
// so the two computations cannot skew against each other.
//
// Any failure is wrapped in ErrPricingAborted; the caller must skip the item
// and leave its previously published price untouched.
func (e *Engine) Price(item Item, buyListings, sellListings []domain.Listing,
	baseline domain.BaselinePrice, keyRate decimal.Decimal) (domain.ItemPrice, error) {

	if baseline.Buy.IsZero() || baseline.Sell.IsZero() {
		return domain.ItemPrice{}, abort(item, errMissingBaseline)
	}

	buys := FilterListings(item.Name, buyListings, e.opts.Filter)
	sells := FilterListings(item.Name, sellListings, e.opts.Filter)

	// Best price first: highest bid, lowest ask.
	sort.SliceStable(buys, func(i, j int) bool {
		return buys[i].Scalar(keyRate).GreaterThan(buys[j].Scalar(keyRate))
	})
	sort.SliceStable(sells, func(i, j int) bool {
		return sells[i].Scalar(keyRate).LessThan(sells[j].Scalar(keyRate))
	})

	buyCandidate, err := AggregateBuy(buys, e.opts.TrustedSteamIDs, keyRate)
	if err != nil {
		return domain.ItemPrice{}, abort(item, err)
	}
	sellCandidate, err := AggregateSell(sells, e.opts.TrustedSteamIDs)
	if err != nil {
		return domain.ItemPrice{}, abort(item, err)
	}

	estimate := domain.PriceEstimate{Buy: buyCandidate, Sell: sellCandidate}
	if err := ValidateAgainstBaseline(estimate, baseline, keyRate, e.opts.Tolerance); err != nil {
		return domain.ItemPrice{}, abort(item, err)
	}

	buy, sell, err := ResolveSpread(buyCandidate, sellCandidate, keyRate)
	if err != nil {
		return domain.ItemPrice{}, abort(item, err)
	}
	if buy.IsZero() || sell.IsZero() {
		return domain.ItemPrice{}, abort(item, errUnpriced)
	}

	return domain.ItemPrice{
		Name:   item.Name,
		SKU:    item.SKU,
		Source: PriceSource,
		Time:   e.now().Unix(),
		Buy:    buy,
		Sell:   sell,
	}, nil
}

var (
	errMissingBaseline = fmt.Errorf("item has no usable baseline price")
	errUnpriced        = fmt.Errorf("finalized side has zero value")
)

func abort(item Item, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrPricingAborted, item.Name, cause)
}
