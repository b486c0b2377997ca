package domain

// BaselinePrice is the externally sourced reference price for one item,
// used as a sanity fence rather than a pricing signal.
type BaselinePrice struct {
	Buy  Currency `json:"buy"`
	Sell Currency `json:"sell"`
}

// PriceEstimate is the engine's own buy/sell candidate pair before it has
// been validated against the baseline.
type PriceEstimate struct {
	Buy  Currency `json:"buy"`
	Sell Currency `json:"sell"`
}

// ItemPrice is a finalized price record for one item. Created once per
// successful pricing pass and never mutated afterwards.
type ItemPrice struct {
	Name   string   `json:"name"`
	SKU    string   `json:"sku"`
	Source string   `json:"source"`
	Time   int64    `json:"time"`
	Buy    Currency `json:"buy"`
	Sell   Currency `json:"sell"`
}

// SamePrice reports whether another record carries identical buy and sell
// amounts, ignoring the timestamp. Used to avoid re-emitting unchanged prices.
func (p ItemPrice) SamePrice(o ItemPrice) bool {
	return p.Buy.Equal(o.Buy) && p.Sell.Equal(o.Sell)
}
