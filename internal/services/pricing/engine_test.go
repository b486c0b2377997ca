package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/scrapyard/autopricer/internal/domain"
)

func testEngine() *Engine {
	return NewEngine(Options{
		Filter: testRules(),
		Tolerance: Tolerance{
			MaxBuyPremium:   decimal.NewFromInt(25),
			MinSellDiscount: decimal.NewFromInt(-25),
		},
	})
}

func testBaseline() domain.BaselinePrice {
	return domain.BaselinePrice{Buy: metalPrice("9"), Sell: metalPrice("10")}
}

func TestEngine_EndToEnd(t *testing.T) {
	keyRate := decimal.NewFromInt(60)
	item := Item{Name: "Team Captain", SKU: "378;6"}

	// Twelve bids clustered around 9 plus one predatory 500. Deliberately
	// out of order; the engine sorts buy-descending itself.
	buys := metalListings("9", "9.33", "8.88", "500", "9.22", "9", "8.88", "9.11", "9", "8.77", "8.66", "8.55")
	// Three asks, again unsorted.
	sells := metalListings("12", "15", "10")

	price, err := testEngine().Price(item, buys, sells, testBaseline(), keyRate)
	require.NoError(t, err)

	require.Equal(t, "Team Captain", price.Name)
	require.Equal(t, "378;6", price.SKU)
	require.Equal(t, PriceSource, price.Source)
	require.NotZero(t, price.Time)

	// Sell is the sharpest ask; buy is the outlier-free top-three mean,
	// not skewed by the 500 bid.
	require.True(t, price.Sell.Metal.Equal(decimal.NewFromInt(10)), "sell=%s", price.Sell)
	require.EqualValues(t, 0, price.Buy.Keys)
	require.True(t, price.Buy.Metal.Equal(decimal.RequireFromString("9.22")), "buy=%s", price.Buy)
	require.True(t, price.Buy.Scalar(keyRate).LessThan(price.Sell.Scalar(keyRate)))
}

func TestEngine_FailsOnZeroBaseline(t *testing.T) {
	keyRate := decimal.NewFromInt(60)
	baseline := domain.BaselinePrice{Buy: domain.Currency{}, Sell: metalPrice("10")}

	_, err := testEngine().Price(Item{Name: "Team Captain"}, metalListings("9", "9", "9"), metalListings("10"), baseline, keyRate)
	require.ErrorIs(t, err, ErrPricingAborted)
}

func TestEngine_FailsOnThinBuySide(t *testing.T) {
	keyRate := decimal.NewFromInt(60)

	_, err := testEngine().Price(Item{Name: "Team Captain"}, metalListings("9", "9"), metalListings("10"), testBaseline(), keyRate)
	require.ErrorIs(t, err, ErrPricingAborted)
	require.ErrorIs(t, err, ErrInsufficientListings)
}

func TestEngine_FailsWithoutSellListings(t *testing.T) {
	keyRate := decimal.NewFromInt(60)

	_, err := testEngine().Price(Item{Name: "Team Captain"}, metalListings("9", "9", "9"), nil, testBaseline(), keyRate)
	require.ErrorIs(t, err, ErrPricingAborted)
	require.ErrorIs(t, err, ErrInsufficientListings)
}

func TestEngine_FailsWhenBaselineRejects(t *testing.T) {
	keyRate := decimal.NewFromInt(60)
	engine := NewEngine(Options{
		Filter: testRules(),
		Tolerance: Tolerance{
			MaxBuyPremium:   decimal.NewFromInt(1),
			MinSellDiscount: decimal.NewFromInt(-1),
		},
	})
	// Crowd bids far above the baseline's 9.
	_, err := engine.Price(Item{Name: "Team Captain"}, metalListings("14", "14", "14"), metalListings("15"), testBaseline(), keyRate)
	require.ErrorIs(t, err, ErrPricingAborted)
	require.ErrorIs(t, err, ErrBaselineRejected)
}

func TestEngine_FiltersBeforeAggregating(t *testing.T) {
	keyRate := decimal.NewFromInt(60)

	// Three bids, one of them human-made: not enough usable listings remain.
	buys := metalListings("9", "9", "9")
	buys[0].UserAgent = ""

	_, err := testEngine().Price(Item{Name: "Team Captain"}, buys, metalListings("10"), testBaseline(), keyRate)
	require.ErrorIs(t, err, ErrInsufficientListings)
}
