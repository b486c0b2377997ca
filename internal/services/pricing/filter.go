package pricing

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/scrapyard/autopricer/internal/domain"
)

// FilterRules holds the trust and validity rules applied to raw listings
// before any aggregation.
type FilterRules struct {
	// ExcludedSteamIDs are submitters whose listings are never used.
	ExcludedSteamIDs map[string]struct{}
	// ExcludedDescriptions are lowercase substrings that disqualify a listing
	// when found in its normalized details text (spell effects, trade offers
	// with strings attached, and so on).
	ExcludedDescriptions []string
	// BlockedAttributes maps a marker name (e.g. a paint name) to the float
	// value that identifies it on an item attribute. A listing carrying one
	// of these values is excluded unless the item name itself contains the
	// marker name, which means the attribute is intrinsic to the item rather
	// than an applied cosmetic.
	BlockedAttributes map[string]float64
}

// FilterListings applies the rules to a listing sequence, preserving order.
// The same rules run for buy and sell sides.
func FilterListings(itemName string, listings []domain.Listing, rules FilterRules) []domain.Listing {
	kept := make([]domain.Listing, 0, len(listings))
	for _, l := range listings {
		if usable(itemName, l, rules) {
			kept = append(kept, l)
		}
	}
	return kept
}

func usable(itemName string, l domain.Listing, rules FilterRules) bool {
	// Listings without a user agent were not created by bot software and
	// carry no freshness guarantee.
	if l.UserAgent == "" {
		return false
	}
	if !l.Currencies.Valid() {
		return false
	}
	if hasBlockedAttribute(itemName, l.Attributes, rules.BlockedAttributes) {
		return false
	}
	if _, excluded := rules.ExcludedSteamIDs[l.SteamID]; excluded {
		return false
	}
	if l.Details != "" && matchesExcludedDescription(l.Details, rules.ExcludedDescriptions) {
		return false
	}
	return true
}

func hasBlockedAttribute(itemName string, attrs []domain.ItemAttribute, blocked map[string]float64) bool {
	if len(attrs) == 0 || len(blocked) == 0 {
		return false
	}
	for name := range blocked {
		if strings.Contains(itemName, name) {
			// The marker is part of the item's own identity, not a cosmetic
			// applied on top of it.
			return false
		}
	}
	for _, attr := range attrs {
		if attr.FloatValue == 0 {
			continue
		}
		for _, value := range blocked {
			if attr.FloatValue == value {
				return true
			}
		}
	}
	return false
}

func matchesExcludedDescription(details string, excluded []string) bool {
	normalized := strings.TrimSpace(strings.ToLower(norm.NFKD.String(details)))
	for _, substr := range excluded {
		if strings.Contains(normalized, substr) {
			return true
		}
	}
	return false
}
