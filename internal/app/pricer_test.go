package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scrapyard/autopricer/internal/domain"
	"github.com/scrapyard/autopricer/internal/services/catalog"
	"github.com/scrapyard/autopricer/internal/services/pricing"
)

type stubListings struct {
	data map[string]map[domain.Side][]domain.Listing
}

func (s *stubListings) GetListings(_ context.Context, itemName string, side domain.Side) ([]domain.Listing, error) {
	return s.data[itemName][side], nil
}

type stubBaseline struct {
	prices    map[string]domain.BaselinePrice
	rate      decimal.Decimal
	refreshes atomic.Int32
}

func (s *stubBaseline) Refresh(context.Context) error {
	s.refreshes.Add(1)
	return nil
}

func (s *stubBaseline) Price(_ context.Context, sku string) (domain.BaselinePrice, error) {
	price, ok := s.prices[sku]
	if !ok {
		return domain.BaselinePrice{}, errors.New("baseline price unavailable")
	}
	return price, nil
}

func (s *stubBaseline) KeyRate(context.Context) (decimal.Decimal, error) {
	return s.rate, nil
}

type stubSink struct {
	updates   []domain.ItemPrice
	snapshots int
}

func (s *stubSink) Update(price domain.ItemPrice) (bool, error) {
	s.updates = append(s.updates, price)
	return true, nil
}

func (s *stubSink) WriteSnapshot() error {
	s.snapshots++
	return nil
}

type stubHub struct {
	events []domain.ItemPrice
}

func (s *stubHub) BroadcastPrice(price domain.ItemPrice) {
	s.events = append(s.events, price)
}

func metal(s string) domain.Currency {
	return domain.Currency{Metal: decimal.RequireFromString(s)}
}

func buyListing(item, steamID, metalStr string) domain.Listing {
	m := decimal.RequireFromString(metalStr)
	return domain.Listing{
		ItemName:   item,
		Side:       domain.SideBuy,
		SteamID:    steamID,
		Currencies: domain.ListingCurrencies{Metal: &m},
		UserAgent:  "autopricer-test",
	}
}

func sellListing(item, steamID, metalStr string) domain.Listing {
	l := buyListing(item, steamID, metalStr)
	l.Side = domain.SideSell
	return l
}

func testPricer(listings *stubListings, base *stubBaseline, sink *stubSink, hub *stubHub) *Pricer {
	cat := catalog.New([]catalog.Entry{
		{Name: "Mann Co. Supply Crate Key", SKU: catalog.KeySKU},
		{Name: "Team Captain", SKU: "378;6"},
		{Name: "Rocket Launcher", SKU: "205;6"},
	})
	engine := pricing.NewEngine(pricing.Options{
		Tolerance: pricing.Tolerance{
			MaxBuyPremium:   decimal.NewFromInt(10),
			MinSellDiscount: decimal.NewFromInt(-10),
		},
	})
	return NewPricer(cat, listings, base, engine, sink, hub,
		15*time.Minute, 30*time.Minute, time.Millisecond, zap.NewNop())
}

func TestRunPass(t *testing.T) {
	listings := &stubListings{data: map[string]map[domain.Side][]domain.Listing{
		"Team Captain": {
			domain.SideBuy: {
				buyListing("Team Captain", "1", "9.22"),
				buyListing("Team Captain", "2", "9.22"),
				buyListing("Team Captain", "3", "9.22"),
			},
			domain.SideSell: {
				sellListing("Team Captain", "4", "10"),
			},
		},
		// Rocket Launcher has no listings at all and must fall back.
	}}
	base := &stubBaseline{
		rate: decimal.NewFromInt(50),
		prices: map[string]domain.BaselinePrice{
			"378;6": {Buy: metal("9.22"), Sell: metal("10")},
			"205;6": {Buy: metal("1.33"), Sell: metal("1.55")},
		},
	}
	sink := &stubSink{}
	hub := &stubHub{}

	p := testPricer(listings, base, sink, hub)
	p.RunPass(context.Background())

	require.Len(t, sink.updates, 2)
	require.Equal(t, 1, sink.snapshots)

	bySKU := make(map[string]domain.ItemPrice, len(sink.updates))
	for _, u := range sink.updates {
		bySKU[u.SKU] = u
	}

	// The key itself is never priced.
	require.NotContains(t, bySKU, catalog.KeySKU)

	captain := bySKU["378;6"]
	require.Equal(t, pricing.PriceSource, captain.Source)
	require.True(t, captain.Buy.Metal.Equal(decimal.RequireFromString("9.22")))
	require.True(t, captain.Sell.Metal.Equal(decimal.NewFromInt(10)))

	launcher := bySKU["205;6"]
	require.Equal(t, FallbackSource, launcher.Source)
	require.True(t, launcher.Buy.Metal.Equal(decimal.RequireFromString("1.33")))
	require.True(t, launcher.Sell.Metal.Equal(decimal.RequireFromString("1.55")))

	// Every published change reaches subscribers.
	require.Len(t, hub.events, 2)
}

func TestRunPass_NoBaselineLeavesItemUnpriced(t *testing.T) {
	listings := &stubListings{data: map[string]map[domain.Side][]domain.Listing{}}
	base := &stubBaseline{
		rate:   decimal.NewFromInt(50),
		prices: map[string]domain.BaselinePrice{},
	}
	sink := &stubSink{}
	hub := &stubHub{}

	p := testPricer(listings, base, sink, hub)
	p.RunPass(context.Background())

	require.Empty(t, sink.updates)
	require.Empty(t, hub.events)
}

func TestRun_RefreshesBaselineUpFront(t *testing.T) {
	listings := &stubListings{data: map[string]map[domain.Side][]domain.Listing{}}
	base := &stubBaseline{rate: decimal.NewFromInt(50), prices: map[string]domain.BaselinePrice{}}
	p := testPricer(listings, base, &stubSink{}, &stubHub{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return base.refreshes.Load() >= 1 }, time.Second, 10*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
