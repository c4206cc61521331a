package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/fsbo/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS listings (
	id                  TEXT PRIMARY KEY,
	seller_id           TEXT NOT NULL,
	street              TEXT NOT NULL DEFAULT '',
	unit                TEXT NOT NULL DEFAULT '',
	city                TEXT NOT NULL DEFAULT '',
	state               TEXT NOT NULL DEFAULT '',
	zip_code            TEXT NOT NULL DEFAULT '',
	property_type       TEXT NOT NULL DEFAULT '',
	bedrooms            INTEGER NOT NULL DEFAULT 0,
	bathrooms           REAL NOT NULL DEFAULT 0,
	sqft                INTEGER NOT NULL DEFAULT 0,
	lot_size_sqft       INTEGER NOT NULL DEFAULT 0,
	year_built          INTEGER NOT NULL DEFAULT 0,
	headline            TEXT NOT NULL DEFAULT '',
	description         TEXT NOT NULL DEFAULT '',
	list_price          REAL,
	ai_estimated_value  REAL,
	ai_value_low        REAL,
	ai_value_high       REAL,
	ai_confidence_score INTEGER,
	valued_at           DATETIME,
	status              TEXT NOT NULL DEFAULT 'draft',
	view_count          INTEGER NOT NULL DEFAULT 0,
	save_count          INTEGER NOT NULL DEFAULT 0,
	inquiry_count       INTEGER NOT NULL DEFAULT 0,
	published_at        DATETIME,
	expires_at          DATETIME,
	created_at          DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at          DATETIME NOT NULL DEFAULT (datetime('now')),
	CHECK (status = 'draft' OR (list_price IS NOT NULL AND list_price > 0))
);

CREATE INDEX IF NOT EXISTS idx_listings_status ON listings(status);
CREATE INDEX IF NOT EXISTS idx_listings_seller ON listings(seller_id);
CREATE INDEX IF NOT EXISTS idx_listings_zip ON listings(zip_code);

CREATE TABLE IF NOT EXISTS offers (
	id                     TEXT PRIMARY KEY,
	listing_id             TEXT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
	buyer_id               TEXT NOT NULL,
	offer_price            REAL NOT NULL,
	financing_type         TEXT NOT NULL,
	inspection_contingency INTEGER NOT NULL DEFAULT 1,
	financing_contingency  INTEGER NOT NULL DEFAULT 1,
	appraisal_contingency  INTEGER NOT NULL DEFAULT 1,
	earnest_money          REAL NOT NULL DEFAULT 0,
	closing_date           DATETIME,
	message                TEXT NOT NULL DEFAULT '',
	ai_strength_score      INTEGER NOT NULL,
	ai_analysis            TEXT,
	status                 TEXT NOT NULL DEFAULT 'pending',
	expires_at             DATETIME NOT NULL,
	created_at             DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at             DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_offers_listing ON offers(listing_id);
CREATE INDEX IF NOT EXISTS idx_offers_buyer ON offers(buyer_id);
CREATE INDEX IF NOT EXISTS idx_offers_status_expiry ON offers(status, expires_at);

CREATE TABLE IF NOT EXISTS showing_requests (
	id           TEXT PRIMARY KEY,
	listing_id   TEXT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
	buyer_id     TEXT NOT NULL,
	requested_at DATETIME NOT NULL,
	message      TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'requested',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_showings_listing ON showing_requests(listing_id);

CREATE TABLE IF NOT EXISTS valuations (
	id               TEXT PRIMARY KEY,
	listing_id       TEXT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
	estimated_value  REAL NOT NULL,
	value_low        REAL NOT NULL,
	value_high       REAL NOT NULL,
	confidence_score INTEGER NOT NULL,
	has_data         INTEGER NOT NULL,
	methodology      TEXT NOT NULL,
	rules_hash       TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_valuations_listing ON valuations(listing_id, created_at);

CREATE TABLE IF NOT EXISTS comparable_sales (
	listing_id     TEXT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
	address        TEXT NOT NULL,
	price          REAL NOT NULL DEFAULT 0,
	sqft           REAL NOT NULL DEFAULT 0,
	bedrooms       INTEGER NOT NULL DEFAULT 0,
	bathrooms      REAL NOT NULL DEFAULT 0,
	distance_miles REAL NOT NULL DEFAULT 0,
	days_old       INTEGER NOT NULL DEFAULT 0,
	sold_date      DATETIME,
	PRIMARY KEY (listing_id, address)
);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Listings ---

func (s *SQLiteStore) CreateListing(ctx context.Context, l *model.Listing) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now
	if l.Status == "" {
		l.Status = model.ListingStatusDraft
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO listings (`+listingColumns+`) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		listingArgs(l)...,
	)
	return eris.Wrap(err, "sqlite: insert listing")
}

func (s *SQLiteStore) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	l, err := scanListing(s.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("listing", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get listing %s", id)
	}
	return l, nil
}

func (s *SQLiteStore) UpdateListing(ctx context.Context, l *model.Listing) error {
	l.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE listings SET
			street = ?, unit = ?, city = ?, state = ?, zip_code = ?, property_type = ?,
			bedrooms = ?, bathrooms = ?, sqft = ?, lot_size_sqft = ?, year_built = ?,
			headline = ?, description = ?, list_price = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		l.Street, l.Unit, l.City, l.State, l.ZipCode, l.PropertyType,
		l.Bedrooms, l.Bathrooms, l.Sqft, l.LotSizeSqft, l.YearBuilt,
		l.Headline, l.Description, l.ListPrice, l.UpdatedAt,
		l.ID, string(l.Status),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update listing %s", l.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return s.conflict(ctx, "listing", "listings", l.ID, string(l.Status), model.ErrNotEditable)
	}
	return nil
}

func (s *SQLiteStore) UpdateListingStatus(ctx context.Context, id string, change model.StatusChange) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE listings SET status = ?,
			published_at = COALESCE(?, published_at),
			expires_at = COALESCE(?, expires_at),
			updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(change.To), utcPtr(change.PublishedAt), utcPtr(change.ExpiresAt), time.Now().UTC(),
		id, string(change.From),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update listing status %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return s.conflict(ctx, "listing", "listings", id, string(change.From), model.ErrInvalidTransition)
	}
	return nil
}

func (s *SQLiteStore) DeleteListing(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete listing %s", id)
	}
	return checkRowsAffected(res, "listing", id)
}

func (s *SQLiteStore) SearchListings(ctx context.Context, filter model.ListingFilter) ([]model.Listing, error) {
	where, args := listingWhere(filter, question)
	query := `SELECT ` + listingColumns + ` FROM listings` + where + ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limitOf(filter.Limit))
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: search listings")
	}
	defer rows.Close()

	var out []model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan listing")
		}
		out = append(out, *l)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: search listings iterate")
}

func (s *SQLiteStore) IncrementCounter(ctx context.Context, id string, counter model.CounterKind) error {
	col, err := counterColumn(counter)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE listings SET %[1]s = %[1]s + 1 WHERE id = ?`, col), id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: increment %s on %s", col, id)
	}
	return checkRowsAffected(res, "listing", id)
}

func (s *SQLiteStore) ExpireListings(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE listings SET status = 'expired', updated_at = ? WHERE status = 'active' AND expires_at IS NOT NULL AND expires_at <= ?`,
		now, now,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: expire listings")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: expire listings rows affected")
}

// --- Valuations ---

func (s *SQLiteStore) SaveValuation(ctx context.Context, v *model.Valuation) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	methodology, err := json.Marshal(v.Methodology)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal methodology")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin valuation tx")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO valuations (id, listing_id, estimated_value, value_low, value_high, confidence_score, has_data, methodology, rules_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.ListingID, v.EstimatedValue, v.ValueLow, v.ValueHigh, v.ConfidenceScore, v.HasData, string(methodology), v.RulesHash, v.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert valuation for %s", v.ListingID)
	}

	if v.HasData {
		res, err := tx.ExecContext(ctx,
			`UPDATE listings SET ai_estimated_value = ?, ai_value_low = ?, ai_value_high = ?,
				ai_confidence_score = ?, valued_at = ?, updated_at = ?
			 WHERE id = ?`,
			v.EstimatedValue, v.ValueLow, v.ValueHigh, v.ConfidenceScore, v.CreatedAt, v.CreatedAt, v.ListingID,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: update listing valuation %s", v.ListingID)
		}
		if err := checkRowsAffected(res, "listing", v.ListingID); err != nil {
			return err
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit valuation")
}

func (s *SQLiteStore) LatestValuation(ctx context.Context, listingID string) (*model.Valuation, error) {
	var v model.Valuation
	var methodology string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, listing_id, estimated_value, value_low, value_high, confidence_score, has_data, methodology, rules_hash, created_at
		 FROM valuations WHERE listing_id = ? ORDER BY created_at DESC LIMIT 1`,
		listingID,
	).Scan(&v.ID, &v.ListingID, &v.EstimatedValue, &v.ValueLow, &v.ValueHigh, &v.ConfidenceScore, &v.HasData, &methodology, &v.RulesHash, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("valuation for listing", listingID)
		}
		return nil, eris.Wrapf(err, "sqlite: latest valuation %s", listingID)
	}
	if err := json.Unmarshal([]byte(methodology), &v.Methodology); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal methodology")
	}
	return &v, nil
}

func (s *SQLiteStore) SaveComparables(ctx context.Context, listingID string, comps []model.ComparableSale) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin comparables tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO comparable_sales (`+comparableColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (listing_id, address) DO UPDATE SET
			price = excluded.price, sqft = excluded.sqft, bedrooms = excluded.bedrooms,
			bathrooms = excluded.bathrooms, distance_miles = excluded.distance_miles,
			days_old = excluded.days_old, sold_date = excluded.sold_date`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare comparable upsert")
	}
	defer stmt.Close()

	unique := uniqueComparables(comps)
	for _, c := range unique {
		if _, err := stmt.ExecContext(ctx, comparableRow(listingID, c)...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert comparable %s", c.Address)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit comparables")
	}
	return len(unique), nil
}

func (s *SQLiteStore) ListComparables(ctx context.Context, listingID string) ([]model.ComparableSale, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+comparableColumns+` FROM comparable_sales WHERE listing_id = ? ORDER BY distance_miles, address`,
		listingID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list comparables %s", listingID)
	}
	defer rows.Close()

	var out []model.ComparableSale
	for rows.Next() {
		c, err := scanComparable(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan comparable")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list comparables iterate")
}

// --- Offers ---

func (s *SQLiteStore) CreateOffer(ctx context.Context, o *model.Offer) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	o.UpdatedAt = o.CreatedAt

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO offers (`+offerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		offerArgs(o)...,
	)
	return eris.Wrap(err, "sqlite: insert offer")
}

func (s *SQLiteStore) GetOffer(ctx context.Context, id string) (*model.Offer, error) {
	o, err := scanOffer(s.db.QueryRowContext(ctx,
		`SELECT `+offerColumns+` FROM offers WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("offer", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get offer %s", id)
	}
	return o, nil
}

func (s *SQLiteStore) ListOffers(ctx context.Context, filter model.OfferFilter) ([]model.Offer, error) {
	where, args := offerWhere(filter, question)
	query := `SELECT ` + offerColumns + ` FROM offers` + where + ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limitOf(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list offers")
	}
	defer rows.Close()

	var out []model.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan offer")
		}
		out = append(out, *o)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list offers iterate")
}

func (s *SQLiteStore) UpdateOfferStatus(ctx context.Context, id string, from, to model.OfferStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE offers SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), time.Now().UTC(), id, string(from),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update offer status %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return s.conflict(ctx, "offer", "offers", id, string(from), model.ErrOfferClosed)
	}
	return nil
}

func (s *SQLiteStore) ExpireOffers(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE offers SET status = 'expired', updated_at = ? WHERE status IN ('pending', 'countered') AND expires_at <= ?`,
		now, now,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: expire offers")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: expire offers rows affected")
}

// --- Showings ---

func (s *SQLiteStore) CreateShowing(ctx context.Context, sr *model.ShowingRequest) error {
	if sr.ID == "" {
		sr.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	sr.CreatedAt, sr.UpdatedAt = now, now
	if sr.Status == "" {
		sr.Status = model.ShowingStatusRequested
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO showing_requests (`+showingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sr.ID, sr.ListingID, sr.BuyerID, sr.RequestedAt.UTC(), sr.Message, string(sr.Status), sr.CreatedAt, sr.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: insert showing")
}

func (s *SQLiteStore) GetShowing(ctx context.Context, id string) (*model.ShowingRequest, error) {
	sr, err := scanShowing(s.db.QueryRowContext(ctx,
		`SELECT `+showingColumns+` FROM showing_requests WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("showing", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get showing %s", id)
	}
	return sr, nil
}

func (s *SQLiteStore) ListShowings(ctx context.Context, listingID string) ([]model.ShowingRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+showingColumns+` FROM showing_requests WHERE listing_id = ? ORDER BY requested_at`,
		listingID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list showings %s", listingID)
	}
	defer rows.Close()

	var out []model.ShowingRequest
	for rows.Next() {
		sr, err := scanShowing(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan showing")
		}
		out = append(out, *sr)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list showings iterate")
}

func (s *SQLiteStore) UpdateShowingStatus(ctx context.Context, id string, status model.ShowingStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE showing_requests SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update showing status %s", id)
	}
	return checkRowsAffected(res, "showing", id)
}

// conflict explains a guarded write that matched no row: either the row is
// gone or its status is no longer the expected one.
func (s *SQLiteStore) conflict(ctx context.Context, entity, table, id, expected string, sentinel error) error {
	var current string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM `+table+` WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(entity, id)
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: read %s status %s", entity, id)
	}
	return staleStatus(sentinel, entity, id, current, expected)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return notFound(entity, id)
	}
	return nil
}
