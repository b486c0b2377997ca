// Package listings persists community-market listings and serves them to the
// pricing pass. The engine itself never touches this package; it consumes
// fully materialized listing slices.
package listings

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/scrapyard/autopricer/internal/domain"
)

const queryTimeout = 10 * time.Second

// Store keeps listings in Postgres, one row per (item, side, submitter).
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS listings (
	item_name  TEXT        NOT NULL,
	side       TEXT        NOT NULL,
	steamid    TEXT        NOT NULL,
	keys       NUMERIC,
	metal      NUMERIC,
	details    TEXT        NOT NULL DEFAULT '',
	attributes JSONB       NOT NULL DEFAULT '[]',
	user_agent TEXT        NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (item_name, side, steamid)
);
CREATE INDEX IF NOT EXISTS listings_item_side_idx ON listings (item_name, side);
`

// EnsureSchema creates the listings table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, schema)
	return errors.Wrap(err, "ensure listings schema")
}

type listingRow struct {
	ItemName   string              `db:"item_name"`
	Side       string              `db:"side"`
	SteamID    string              `db:"steamid"`
	Keys       decimal.NullDecimal `db:"keys"`
	Metal      decimal.NullDecimal `db:"metal"`
	Details    string              `db:"details"`
	Attributes []byte              `db:"attributes"`
	UserAgent  string              `db:"user_agent"`
	UpdatedAt  time.Time           `db:"updated_at"`
}

func toRow(l domain.Listing) (listingRow, error) {
	attrs, err := json.Marshal(l.Attributes)
	if err != nil {
		return listingRow{}, errors.Wrap(err, "marshal attributes")
	}
	row := listingRow{
		ItemName:   l.ItemName,
		Side:       string(l.Side),
		SteamID:    l.SteamID,
		Details:    l.Details,
		Attributes: attrs,
		UserAgent:  l.UserAgent,
	}
	if l.Currencies.Keys != nil {
		row.Keys = decimal.NullDecimal{Decimal: *l.Currencies.Keys, Valid: true}
	}
	if l.Currencies.Metal != nil {
		row.Metal = decimal.NullDecimal{Decimal: *l.Currencies.Metal, Valid: true}
	}
	return row, nil
}

func fromRow(row listingRow) (domain.Listing, error) {
	l := domain.Listing{
		ItemName:  row.ItemName,
		Side:      domain.Side(row.Side),
		SteamID:   row.SteamID,
		Details:   row.Details,
		UserAgent: row.UserAgent,
	}
	if row.Keys.Valid {
		k := row.Keys.Decimal
		l.Currencies.Keys = &k
	}
	if row.Metal.Valid {
		m := row.Metal.Decimal
		l.Currencies.Metal = &m
	}
	if len(row.Attributes) > 0 {
		if err := json.Unmarshal(row.Attributes, &l.Attributes); err != nil {
			return domain.Listing{}, errors.Wrap(err, "unmarshal attributes")
		}
	}
	return l, nil
}

// GetListings returns every stored listing for one item and side. Order is
// unspecified; the engine sorts by price itself.
func (s *Store) GetListings(ctx context.Context, itemName string, side domain.Side) ([]domain.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var rows []listingRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT item_name, side, steamid, keys, metal, details, attributes, user_agent, updated_at
		 FROM listings WHERE item_name = $1 AND side = $2`, itemName, string(side))
	if err != nil {
		return nil, errors.Wrapf(err, "select listings for %s/%s", itemName, side)
	}

	out := make([]domain.Listing, 0, len(rows))
	for _, row := range rows {
		l, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// Upsert inserts or refreshes a batch of listings in one transaction.
func (s *Store) Upsert(ctx context.Context, batch []domain.Listing) error {
	if len(batch) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin upsert")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO listings (item_name, side, steamid, keys, metal, details, attributes, user_agent, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (item_name, side, steamid) DO UPDATE SET
			keys = EXCLUDED.keys, metal = EXCLUDED.metal, details = EXCLUDED.details,
			attributes = EXCLUDED.attributes, user_agent = EXCLUDED.user_agent, updated_at = now()`)
	if err != nil {
		return errors.Wrap(err, "prepare upsert")
	}
	defer stmt.Close()

	for _, l := range batch {
		row, err := toRow(l)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, row.ItemName, row.Side, row.SteamID,
			row.Keys, row.Metal, row.Details, row.Attributes, row.UserAgent); err != nil {
			return errors.Wrapf(err, "upsert listing %s/%s/%s", row.ItemName, row.Side, row.SteamID)
		}
	}
	return errors.Wrap(tx.Commit(), "commit upsert")
}

// Delete removes one submitter's listing for an item and side.
func (s *Store) Delete(ctx context.Context, itemName string, side domain.Side, steamID string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM listings WHERE item_name = $1 AND side = $2 AND steamid = $3`,
		itemName, string(side), steamID)
	return errors.Wrapf(err, "delete listing %s/%s/%s", itemName, side, steamID)
}
