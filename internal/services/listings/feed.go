package listings

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/scrapyard/autopricer/internal/domain"
	"github.com/scrapyard/autopricer/pkg/retrier"
)

const (
	dialTimeout    = 15 * time.Second
	reconnectPause = 3 * time.Second
)

type allowlist interface {
	SKUFromName(name string) (string, error)
}

type listingStore interface {
	Upsert(ctx context.Context, batch []domain.Listing) error
	Delete(ctx context.Context, itemName string, side domain.Side, steamID string) error
}

// Feed consumes the community-market websocket event stream and mirrors
// listing updates into the store. Items outside the catalog are dropped.
type Feed struct {
	url     string
	catalog allowlist
	store   listingStore
	l       *zap.Logger
	dialer  *websocket.Dialer
}

// NewFeed returns a feed for the given stream URL.
func NewFeed(url string, cat allowlist, store listingStore, l *zap.Logger) *Feed {
	return &Feed{
		url:     url,
		catalog: cat,
		store:   store,
		l:       l,
		dialer:  &websocket.Dialer{HandshakeTimeout: dialTimeout},
	}
}

// Run connects and consumes events until the context is cancelled,
// reconnecting after connection loss.
func (f *Feed) Run(ctx context.Context) error {
	r := retrier.New(retrier.WithBaseInterval(reconnectPause), retrier.WithAttempts(5))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := retrier.DoWithData(ctx, r, func(ctx context.Context) (*websocket.Conn, error) {
			c, _, err := f.dialer.DialContext(ctx, f.url, nil)
			return c, errors.Wrapf(err, "dial %s", f.url)
		})
		if err != nil {
			return err
		}
		f.l.Info("listing feed connected", zap.String("url", f.url))

		if err := f.consume(ctx, conn); err != nil && ctx.Err() == nil {
			f.l.Warn("listing feed disconnected", zap.Error(err))
		}
		_ = conn.Close()
	}
}

func (f *Feed) consume(ctx context.Context, conn *websocket.Conn) error {
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		events, err := decodeEvents(message)
		if err != nil {
			f.l.Warn("undecodable feed message", zap.Error(err))
			continue
		}
		f.apply(ctx, events)
	}
}

func (f *Feed) apply(ctx context.Context, events []wireEvent) {
	batch := make([]domain.Listing, 0, len(events))
	for _, ev := range events {
		name := ev.Payload.Item.Name
		if _, err := f.catalog.SKUFromName(name); err != nil {
			continue
		}
		switch ev.Event {
		case "listing-update":
			batch = append(batch, ev.Payload.listing())
		case "listing-delete":
			if err := f.store.Delete(ctx, name, domain.Side(ev.Payload.Intent), ev.Payload.SteamID); err != nil {
				f.l.Error("delete listing", zap.String("item", name), zap.Error(err))
			}
		}
	}
	if len(batch) == 0 {
		return
	}
	if err := f.store.Upsert(ctx, batch); err != nil {
		f.l.Error("upsert listings", zap.Int("count", len(batch)), zap.Error(err))
	}
}

type wireItem struct {
	Name       string                 `json:"name"`
	Attributes []domain.ItemAttribute `json:"attributes"`
}

type wireUserAgent struct {
	Client string `json:"client"`
}

type wirePayload struct {
	SteamID    string                   `json:"steamid"`
	Intent     string                   `json:"intent"`
	Currencies domain.ListingCurrencies `json:"currencies"`
	Details    string                   `json:"details"`
	Item       wireItem                 `json:"item"`
	UserAgent  *wireUserAgent           `json:"userAgent"`
}

type wireEvent struct {
	ID      string      `json:"id"`
	Event   string      `json:"event"`
	Payload wirePayload `json:"payload"`
}

func (p wirePayload) listing() domain.Listing {
	agent := ""
	if p.UserAgent != nil {
		if agent = p.UserAgent.Client; agent == "" {
			agent = "unknown"
		}
	}
	return domain.Listing{
		ItemName:   p.Item.Name,
		Side:       domain.Side(p.Intent),
		SteamID:    p.SteamID,
		Currencies: p.Currencies,
		Details:    p.Details,
		Attributes: p.Item.Attributes,
		UserAgent:  agent,
	}
}

// decodeEvents accepts both a single event object and a batched array.
func decodeEvents(message []byte) ([]wireEvent, error) {
	var batch []wireEvent
	if err := json.Unmarshal(message, &batch); err == nil {
		return batch, nil
	}
	var single wireEvent
	if err := json.Unmarshal(message, &single); err != nil {
		return nil, errors.Wrap(err, "decode feed event")
	}
	return []wireEvent{single}, nil
}
