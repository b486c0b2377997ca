package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/scrapyard/autopricer/internal/domain"
)

// ResolveSpread renormalizes both candidates and enforces that the buy price
// stays strictly below the sell price. When the candidates disagree, both
// sides collapse to the buy price and the sell side is bumped one scrap above
// it: not losing value on a buy beats sell-side competitiveness.
func ResolveSpread(buy, sell domain.Currency, keyRate decimal.Decimal) (domain.Currency, domain.Currency, error) {
	buy, err := domain.CurrencyFromScalar(buy.Scalar(keyRate), keyRate)
	if err != nil {
		return domain.Currency{}, domain.Currency{}, err
	}
	sell, err = domain.CurrencyFromScalar(sell.Scalar(keyRate), keyRate)
	if err != nil {
		return domain.Currency{}, domain.Currency{}, err
	}

	if buy.Scalar(keyRate).GreaterThanOrEqual(sell.Scalar(keyRate)) {
		bumped, err := domain.Combine(buy, domain.MetalStep, keyRate)
		if err != nil {
			return domain.Currency{}, domain.Currency{}, err
		}
		return buy, bumped, nil
	}
	return buy, sell, nil
}
