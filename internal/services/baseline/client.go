// Package baseline fetches the trusted external pricelist used as a sanity
// fence around the engine's own statistics, caching it in Redis.
package baseline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/scrapyard/autopricer/internal/domain"
	"github.com/scrapyard/autopricer/internal/services/catalog"
	"github.com/scrapyard/autopricer/pkg/retrier"
)

// ErrUnavailable is returned when no baseline price is cached for an item.
var ErrUnavailable = errors.New("baseline price unavailable")

const (
	cacheKey       = "baseline:prices"
	requestTimeout = 30 * time.Second
)

// Client pulls full pricelist snapshots from the external pricer and serves
// per-item lookups from the Redis cache.
type Client struct {
	baseURL string
	httpc   *http.Client
	cache   *redis.Client
	retr    *retrier.Retrier
	ttl     time.Duration
	l       *zap.Logger
}

// NewClient builds a baseline client. ttl bounds how long a snapshot may be
// served after the source goes dark.
func NewClient(baseURL string, cache *redis.Client, ttl time.Duration, l *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: requestTimeout},
		cache:   cache,
		retr:    retrier.New(),
		ttl:     ttl,
		l:       l,
	}
}

type wireEntry struct {
	Name string          `json:"name"`
	SKU  string          `json:"sku"`
	Buy  domain.Currency `json:"buy"`
	Sell domain.Currency `json:"sell"`
}

type wirePricelist struct {
	Items []wireEntry `json:"items"`
}

// Refresh downloads a fresh pricelist snapshot and replaces the cache.
func (c *Client) Refresh(ctx context.Context) error {
	entries, err := retrier.DoWithData(ctx, c.retr, c.fetchPricelist)
	if err != nil {
		return errors.Wrap(err, "refresh baseline pricelist")
	}

	fields := make(map[string]interface{}, len(entries))
	for _, e := range entries {
		raw, err := json.Marshal(domain.BaselinePrice{Buy: e.Buy, Sell: e.Sell})
		if err != nil {
			return errors.Wrapf(err, "marshal baseline for %s", e.SKU)
		}
		fields[e.SKU] = raw
	}

	pipe := c.cache.TxPipeline()
	pipe.Del(ctx, cacheKey)
	pipe.HSet(ctx, cacheKey, fields)
	pipe.Expire(ctx, cacheKey, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "cache baseline pricelist")
	}

	c.l.Info("baseline pricelist refreshed", zap.Int("items", len(entries)))
	return nil
}

func (c *Client) fetchPricelist(ctx context.Context) ([]wireEntry, error) {
	url := fmt.Sprintf("%s/json/pricelist-array", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build pricelist request")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch pricelist")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("pricelist request returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read pricelist body")
	}
	return parsePricelist(body)
}

func parsePricelist(raw []byte) ([]wireEntry, error) {
	var list wirePricelist
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, errors.Wrap(err, "parse pricelist")
	}
	if len(list.Items) == 0 {
		return nil, errors.New("pricelist is empty")
	}
	return list.Items, nil
}

// Price returns the cached baseline for one SKU. Fails with ErrUnavailable
// when the item is not in the snapshot or the snapshot has expired.
func (c *Client) Price(ctx context.Context, sku string) (domain.BaselinePrice, error) {
	raw, err := c.cache.HGet(ctx, cacheKey, sku).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.BaselinePrice{}, errors.Wrap(ErrUnavailable, sku)
	}
	if err != nil {
		return domain.BaselinePrice{}, errors.Wrapf(err, "read baseline for %s", sku)
	}

	var price domain.BaselinePrice
	if err := json.Unmarshal(raw, &price); err != nil {
		return domain.BaselinePrice{}, errors.Wrapf(err, "decode baseline for %s", sku)
	}
	return price, nil
}

// KeyRate derives the current key exchange rate from the baseline's own key
// entry: the buy-side metal value of one key.
func (c *Client) KeyRate(ctx context.Context) (decimal.Decimal, error) {
	price, err := c.Price(ctx, catalog.KeySKU)
	if err != nil {
		return decimal.Zero, err
	}
	if price.Buy.Metal.IsZero() {
		return decimal.Zero, errors.Wrap(ErrUnavailable, "key rate is zero")
	}
	return price.Buy.Metal, nil
}
