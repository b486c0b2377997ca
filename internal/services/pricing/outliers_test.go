package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func decs(values ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.RequireFromString(v)
	}
	return out
}

func TestRejectOutliers_DropsFarValue(t *testing.T) {
	// Twelve listings around 10 and one predatory 1000: the 1000 sits more
	// than three standard deviations from the mean and is rejected.
	values := decs("10", "10", "10", "10", "10", "10", "10", "10", "10", "10", "10", "10", "1000")

	survivors, err := RejectOutliers(values)
	require.NoError(t, err)
	require.Len(t, survivors, 12)
	for _, v := range survivors {
		require.True(t, v.Equal(decimal.NewFromInt(10)))
	}
}

func TestRejectOutliers_KeepsClusteredValues(t *testing.T) {
	values := decs("9.11", "9", "8.88", "9.22", "8.77", "9.33", "9", "9.11", "8.88", "9")

	survivors, err := RejectOutliers(values)
	require.NoError(t, err)
	require.Equal(t, values, survivors)
}

func TestRejectOutliers_PreservesOrder(t *testing.T) {
	values := decs("12", "10", "11", "10", "12", "11", "10", "11", "12", "10", "500")

	survivors, err := RejectOutliers(values)
	require.NoError(t, err)
	require.Equal(t, decs("12", "10", "11", "10", "12", "11", "10", "11", "12", "10"), survivors)
}

func TestRejectOutliers_IdenticalValues(t *testing.T) {
	// Zero deviation means nothing is an outlier.
	values := decs("10", "10", "10", "10")

	survivors, err := RejectOutliers(values)
	require.NoError(t, err)
	require.Len(t, survivors, 4)
}

func TestRejectOutliers_InsufficientSurvivors(t *testing.T) {
	_, err := RejectOutliers(decs("10", "10"))
	require.ErrorIs(t, err, ErrInsufficientData)
}
