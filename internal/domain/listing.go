package domain

import (
	"github.com/shopspring/decimal"
)

// Side is the intent of a community listing.
type Side string

const (
	// SideBuy marks a listing looking to buy the item.
	SideBuy Side = "buy"
	// SideSell marks a listing offering the item for sale.
	SideSell Side = "sell"
)

// ItemAttribute is one attribute record attached to a listed item. Cosmetic
// markers such as paints carry their value in FloatValue.
type ItemAttribute struct {
	Defindex   int64   `json:"defindex"`
	FloatValue float64 `json:"float_value,omitempty"`
}

// ListingCurrencies is the raw price payload of a listing. Both fields are
// optional on the wire; a payload with neither present is invalid.
type ListingCurrencies struct {
	Keys  *decimal.Decimal `json:"keys,omitempty"`
	Metal *decimal.Decimal `json:"metal,omitempty"`
}

// Valid reports whether the payload carries at least one currency field.
func (lc ListingCurrencies) Valid() bool {
	return lc.Keys != nil || lc.Metal != nil
}

// Currency materializes the payload into a quantized Currency, treating
// missing fields as zero.
func (lc ListingCurrencies) Currency() Currency {
	var keys int64
	metal := decimal.Zero
	if lc.Keys != nil {
		keys = lc.Keys.IntPart()
	}
	if lc.Metal != nil {
		metal = *lc.Metal
	}
	return Currency{Keys: keys, Metal: Quantize(metal)}
}

// Listing is one user-submitted buy or sell offer for an item. Read-only to
// the pricing engine.
type Listing struct {
	ItemName   string            `json:"item_name"`
	Side       Side              `json:"side"`
	SteamID    string            `json:"steamid"`
	Currencies ListingCurrencies `json:"currencies"`
	Details    string            `json:"details,omitempty"`
	Attributes []ItemAttribute   `json:"attributes,omitempty"`
	// UserAgent identifies the bot software that created the listing.
	// Empty means the listing was made by hand and is not trusted.
	UserAgent string `json:"user_agent,omitempty"`
}

// Scalar is the listing price in refined terms at the given key rate.
func (l Listing) Scalar(keyRate decimal.Decimal) decimal.Decimal {
	return l.Currencies.Currency().Scalar(keyRate)
}
