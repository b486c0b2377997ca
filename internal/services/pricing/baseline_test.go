package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/scrapyard/autopricer/internal/domain"
)

func TestPercentageDifference(t *testing.T) {
	cases := []struct {
		reference string
		candidate string
		want      string
	}{
		{"0", "0", "0"},
		{"0", "5", "100"},
		{"100", "110", "10"},
		{"100", "90", "-10"},
		{"50", "75", "50"},
	}
	for _, c := range cases {
		got, err := PercentageDifference(decimal.RequireFromString(c.reference), decimal.RequireFromString(c.candidate))
		require.NoError(t, err)
		require.True(t, got.Equal(decimal.RequireFromString(c.want)), "diff(%s, %s)=%s", c.reference, c.candidate, got)
	}
}

func testTolerance() Tolerance {
	return Tolerance{
		MaxBuyPremium:   decimal.NewFromInt(10),
		MinSellDiscount: decimal.NewFromInt(-10),
	}
}

func metalPrice(s string) domain.Currency {
	return domain.Currency{Metal: decimal.RequireFromString(s)}
}

func TestValidateAgainstBaseline_AcceptsAtBuyBoundary(t *testing.T) {
	keyRate := decimal.NewFromInt(60)
	baseline := domain.BaselinePrice{Buy: metalPrice("10"), Sell: metalPrice("12")}

	// Exactly the configured maximum premium is still accepted.
	estimate := domain.PriceEstimate{Buy: metalPrice("11"), Sell: metalPrice("12")}
	require.NoError(t, ValidateAgainstBaseline(estimate, baseline, keyRate, testTolerance()))

	// One step above the boundary is rejected.
	estimate.Buy = metalPrice("11.11")
	err := ValidateAgainstBaseline(estimate, baseline, keyRate, testTolerance())
	require.ErrorIs(t, err, ErrBaselineRejected)
}

func TestValidateAgainstBaseline_RejectsCheapSell(t *testing.T) {
	keyRate := decimal.NewFromInt(60)
	baseline := domain.BaselinePrice{Buy: metalPrice("10"), Sell: metalPrice("12")}

	estimate := domain.PriceEstimate{Buy: metalPrice("10"), Sell: metalPrice("10.45")}
	err := ValidateAgainstBaseline(estimate, baseline, keyRate, testTolerance())
	require.ErrorIs(t, err, ErrBaselineRejected)

	// Within the allowed discount the price passes.
	estimate.Sell = metalPrice("10.88")
	require.NoError(t, ValidateAgainstBaseline(estimate, baseline, keyRate, testTolerance()))
}
