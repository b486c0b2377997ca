// Package pricelist holds the current published price for every item, with a
// write-ahead journal for crash recovery and a JSON snapshot for consumers
// that read the pricelist from disk.
package pricelist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"go.uber.org/zap"

	"github.com/scrapyard/autopricer/internal/domain"
)

const (
	priceKeyPrefix      = "price_"
	walSegmentThreshold = 1000
	walMaxSegments      = 100
	walDirPermissions   = 0o755
)

// Pricelist is safe for concurrent use.
type Pricelist struct {
	mu           sync.RWMutex
	prices       map[string]domain.ItemPrice
	wal          *gowal.Wal
	snapshotPath string
	l            *zap.Logger
}

func openWAL(dir string) (*gowal.Wal, error) {
	if err := os.MkdirAll(dir, walDirPermissions); err != nil {
		return nil, errors.Wrapf(err, "failed to ensure WAL directory %s", dir)
	}
	return gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "log_",
		SegmentThreshold: walSegmentThreshold,
		MaxSegments:      walMaxSegments,
		IsInSyncDiskMode: true,
	})
}

// New opens the journal, replays it into memory and returns the pricelist.
// snapshotPath is where WriteSnapshot dumps the JSON pricelist.
func New(walDir, snapshotPath string, l *zap.Logger) (*Pricelist, error) {
	wal, err := openWAL(walDir)
	if err != nil {
		return nil, err
	}

	prices := make(map[string]domain.ItemPrice)
	for msg := range wal.Iterator() {
		var price domain.ItemPrice
		if err := json.Unmarshal(msg.Value, &price); err != nil {
			l.Error("failed to unmarshal journaled price", zap.String("key", msg.Key), zap.Error(err))
			continue
		}
		prices[price.SKU] = price
	}
	if len(prices) > 0 {
		l.Info("pricelist recovered from journal", zap.Int("items", len(prices)))
	}

	return &Pricelist{prices: prices, wal: wal, snapshotPath: snapshotPath, l: l}, nil
}

// Update stores a finalized price. Returns false without journaling when the
// stored price already carries the same buy/sell pair, so unchanged prices
// are never re-emitted downstream.
func (p *Pricelist) Update(price domain.ItemPrice) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.prices[price.SKU]; ok && existing.SamePrice(price) {
		return false, nil
	}

	data, err := json.Marshal(price)
	if err != nil {
		return false, errors.Wrapf(err, "marshal price for %s", price.SKU)
	}
	if err := p.wal.Write(p.wal.CurrentIndex()+1, priceKeyPrefix+price.SKU, data); err != nil {
		return false, errors.Wrapf(err, "journal price for %s", price.SKU)
	}

	p.prices[price.SKU] = price
	return true, nil
}

// Get returns the current price for a SKU.
func (p *Pricelist) Get(sku string) (domain.ItemPrice, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	price, ok := p.prices[sku]
	return price, ok
}

// All returns every published price, ordered by item name.
func (p *Pricelist) All() []domain.ItemPrice {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]domain.ItemPrice, 0, len(p.prices))
	for _, price := range p.prices {
		out = append(out, price)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

type snapshotFile struct {
	Items []domain.ItemPrice `json:"items"`
}

// WriteSnapshot dumps the pricelist to the snapshot path atomically.
func (p *Pricelist) WriteSnapshot() error {
	data, err := json.MarshalIndent(snapshotFile{Items: p.All()}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal pricelist snapshot")
	}

	tmp := p.snapshotPath + ".tmp"
	if err := os.MkdirAll(filepath.Dir(p.snapshotPath), walDirPermissions); err != nil {
		return errors.Wrap(err, "ensure snapshot directory")
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "write pricelist snapshot")
	}
	return errors.Wrap(os.Rename(tmp, p.snapshotPath), "replace pricelist snapshot")
}

// Close releases the journal.
func (p *Pricelist) Close() error {
	return p.wal.Close()
}
