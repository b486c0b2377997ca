// Package app runs the pricing passes: it walks the catalog on a fixed
// interval, feeds stored listings and the cached baseline through the engine
// and publishes whatever comes out.
package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/scrapyard/autopricer/internal/domain"
	"github.com/scrapyard/autopricer/internal/services/catalog"
	"github.com/scrapyard/autopricer/internal/services/pricing"
)

type listingSource interface {
	GetListings(ctx context.Context, itemName string, side domain.Side) ([]domain.Listing, error)
}

type baselineSource interface {
	Refresh(ctx context.Context) error
	Price(ctx context.Context, sku string) (domain.BaselinePrice, error)
	KeyRate(ctx context.Context) (decimal.Decimal, error)
}

type priceSink interface {
	Update(price domain.ItemPrice) (bool, error)
	WriteSnapshot() error
}

type broadcaster interface {
	BroadcastPrice(price domain.ItemPrice)
}

// FallbackSource tags prices copied from the baseline when the engine could
// not derive one from listings.
const FallbackSource = "baseline"

// errFellBack marks a successfully published fallback so the pass counters
// can tell it apart from an engine-derived price.
var errFellBack = errors.New("fell back to baseline price")

// Pricer owns the periodic pricing loop.
type Pricer struct {
	catalog  *catalog.Catalog
	listings listingSource
	baseline baselineSource
	engine   *pricing.Engine
	sink     priceSink
	hub      broadcaster
	limiter  *rate.Limiter

	priceInterval   time.Duration
	refreshInterval time.Duration

	l   *zap.Logger
	now func() time.Time
}

// NewPricer wires the pricing loop. emitDelay paces per-item pricing so the
// downstream socket is not flooded after a pass over a large catalog.
func NewPricer(cat *catalog.Catalog, listings listingSource, baseline baselineSource,
	engine *pricing.Engine, sink priceSink, hub broadcaster,
	priceInterval, refreshInterval, emitDelay time.Duration, l *zap.Logger) *Pricer {

	return &Pricer{
		catalog:         cat,
		listings:        listings,
		baseline:        baseline,
		engine:          engine,
		sink:            sink,
		hub:             hub,
		limiter:         rate.NewLimiter(rate.Every(emitDelay), 1),
		priceInterval:   priceInterval,
		refreshInterval: refreshInterval,
		l:               l,
		now:             time.Now,
	}
}

// Run prices the whole catalog immediately, then again on every tick until
// the context is cancelled. Baseline refreshes run on their own interval.
func (p *Pricer) Run(ctx context.Context) error {
	if err := p.baseline.Refresh(ctx); err != nil {
		return err
	}

	go p.refreshLoop(ctx)

	p.RunPass(ctx)

	ticker := time.NewTicker(p.priceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.RunPass(ctx)
		}
	}
}

func (p *Pricer) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(p.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.baseline.Refresh(ctx); err != nil {
				p.l.Error("baseline refresh failed", zap.Error(err))
			}
		}
	}
}

// RunPass prices every catalog item once against a single key rate snapshot.
func (p *Pricer) RunPass(ctx context.Context) {
	passID := uuid.NewString()
	l := p.l.With(zap.String("pass", passID))
	started := p.now()

	keyRate, err := p.baseline.KeyRate(ctx)
	if err != nil {
		l.Error("pricing pass aborted, no key rate", zap.Error(err))
		return
	}

	var priced, fellBack, failed int
	for _, entry := range p.catalog.Entries() {
		if entry.SKU == catalog.KeySKU {
			continue
		}
		if err := p.limiter.Wait(ctx); err != nil {
			return
		}

		switch err := p.priceItem(ctx, entry, keyRate); {
		case err == nil:
			priced++
		case errors.Is(err, errFellBack):
			fellBack++
		default:
			failed++
			l.Warn("item left unpriced", zap.String("item", entry.Name), zap.Error(err))
		}
	}

	if err := p.sink.WriteSnapshot(); err != nil {
		l.Error("pricelist snapshot failed", zap.Error(err))
	}

	l.Info("pricing pass finished",
		zap.Int("priced", priced),
		zap.Int("fallback", fellBack),
		zap.Int("failed", failed),
		zap.Duration("took", p.now().Sub(started)))
}

func (p *Pricer) priceItem(ctx context.Context, entry catalog.Entry, keyRate decimal.Decimal) error {
	base, err := p.baseline.Price(ctx, entry.SKU)
	if err != nil {
		return err
	}

	buys, err := p.listings.GetListings(ctx, entry.Name, domain.SideBuy)
	if err != nil {
		return err
	}
	sells, err := p.listings.GetListings(ctx, entry.Name, domain.SideSell)
	if err != nil {
		return err
	}

	price, err := p.engine.Price(pricing.Item{Name: entry.Name, SKU: entry.SKU}, buys, sells, base, keyRate)
	if err != nil {
		p.l.Debug("engine declined to price item, using baseline",
			zap.String("item", entry.Name), zap.Error(err))
		price = domain.ItemPrice{
			Name:   entry.Name,
			SKU:    entry.SKU,
			Source: FallbackSource,
			Time:   p.now().Unix(),
			Buy:    base.Buy,
			Sell:   base.Sell,
		}
		return p.publish(price, errFellBack)
	}
	return p.publish(price, nil)
}

func (p *Pricer) publish(price domain.ItemPrice, outcome error) error {
	changed, err := p.sink.Update(price)
	if err != nil {
		return err
	}
	if changed {
		p.hub.BroadcastPrice(price)
	}
	return outcome
}
