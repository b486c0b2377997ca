package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/scrapyard/autopricer/internal/domain"
)

func TestResolveSpread_PassThrough(t *testing.T) {
	keyRate := decimal.NewFromInt(60)

	buy, sell, err := ResolveSpread(metalPrice("9"), metalPrice("10"), keyRate)
	require.NoError(t, err)
	require.True(t, buy.Metal.Equal(decimal.NewFromInt(9)))
	require.True(t, sell.Metal.Equal(decimal.NewFromInt(10)))
}

func TestResolveSpread_EqualCollapsesWithMargin(t *testing.T) {
	keyRate := decimal.NewFromInt(60)

	buy, sell, err := ResolveSpread(metalPrice("5"), metalPrice("5"), keyRate)
	require.NoError(t, err)
	require.True(t, buy.Metal.Equal(decimal.NewFromInt(5)))
	// Sell lands exactly one scrap above the buy price.
	require.True(t, sell.Metal.Equal(decimal.RequireFromString("5.11")), "sell=%s", sell.Metal)
}

func TestResolveSpread_InvertedCollapsesToBuy(t *testing.T) {
	keyRate := decimal.NewFromInt(60)

	buy, sell, err := ResolveSpread(metalPrice("12"), metalPrice("10"), keyRate)
	require.NoError(t, err)
	require.True(t, buy.Metal.Equal(decimal.NewFromInt(12)))
	require.True(t, sell.Metal.Equal(decimal.RequireFromString("12.11")))
	require.True(t, buy.Scalar(keyRate).LessThan(sell.Scalar(keyRate)))
}

func TestResolveSpread_RenormalizesKeyCarry(t *testing.T) {
	keyRate := decimal.NewFromInt(50)

	// 62 ref of metal at a 50 ref key rate carries into one key.
	buy, sell, err := ResolveSpread(metalPrice("62"), domain.Currency{Keys: 1, Metal: decimal.RequireFromString("13")}, keyRate)
	require.NoError(t, err)
	require.EqualValues(t, 1, buy.Keys)
	require.True(t, buy.Metal.Equal(decimal.NewFromInt(12)))
	require.EqualValues(t, 1, sell.Keys)
	require.True(t, sell.Metal.Equal(decimal.NewFromInt(13)))
}

func TestResolveSpread_NeverReturnsBuyAtOrAboveSell(t *testing.T) {
	keyRate := decimal.NewFromInt(60)
	cases := [][2]domain.Currency{
		{metalPrice("5"), metalPrice("5")},
		{metalPrice("10"), metalPrice("9")},
		{{Keys: 2, Metal: decimal.Zero}, {Keys: 1, Metal: decimal.RequireFromString("59.89")}},
		{metalPrice("0.11"), metalPrice("0.22")},
	}
	for _, c := range cases {
		buy, sell, err := ResolveSpread(c[0], c[1], keyRate)
		require.NoError(t, err)
		require.True(t, buy.Scalar(keyRate).LessThan(sell.Scalar(keyRate)),
			"buy=%s sell=%s", buy, sell)
	}
}
