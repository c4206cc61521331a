package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/fsbo/internal/db"
	"github.com/sells-group/fsbo/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"get_listing":     `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`,
	"get_offer":       `SELECT ` + offerColumns + ` FROM offers WHERE id = $1`,
	"get_showing":     `SELECT ` + showingColumns + ` FROM showing_requests WHERE id = $1`,
	"update_offer":    `UPDATE offers SET status = $1, updated_at = $2 WHERE id = $3`,
	"expire_offers":   `UPDATE offers SET status = 'expired', updated_at = $1 WHERE status IN ('pending', 'countered') AND expires_at <= $1`,
	"expire_listings": `UPDATE listings SET status = 'expired', updated_at = $1 WHERE status = 'active' AND expires_at IS NOT NULL AND expires_at <= $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
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
	bathrooms           DOUBLE PRECISION NOT NULL DEFAULT 0,
	sqft                INTEGER NOT NULL DEFAULT 0,
	lot_size_sqft       INTEGER NOT NULL DEFAULT 0,
	year_built          INTEGER NOT NULL DEFAULT 0,
	headline            TEXT NOT NULL DEFAULT '',
	description         TEXT NOT NULL DEFAULT '',
	list_price          DOUBLE PRECISION,
	ai_estimated_value  DOUBLE PRECISION,
	ai_value_low        DOUBLE PRECISION,
	ai_value_high       DOUBLE PRECISION,
	ai_confidence_score INTEGER,
	valued_at           TIMESTAMPTZ,
	status              TEXT NOT NULL DEFAULT 'draft',
	view_count          INTEGER NOT NULL DEFAULT 0,
	save_count          INTEGER NOT NULL DEFAULT 0,
	inquiry_count       INTEGER NOT NULL DEFAULT 0,
	published_at        TIMESTAMPTZ,
	expires_at          TIMESTAMPTZ,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT listings_price_required CHECK (status = 'draft' OR (list_price IS NOT NULL AND list_price > 0))
);

CREATE INDEX IF NOT EXISTS idx_listings_status ON listings(status);
CREATE INDEX IF NOT EXISTS idx_listings_seller ON listings(seller_id);
CREATE INDEX IF NOT EXISTS idx_listings_zip ON listings(zip_code);
CREATE INDEX IF NOT EXISTS idx_listings_expires_at ON listings(expires_at) WHERE status = 'active';

CREATE TABLE IF NOT EXISTS offers (
	id                     TEXT PRIMARY KEY,
	listing_id             TEXT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
	buyer_id               TEXT NOT NULL,
	offer_price            DOUBLE PRECISION NOT NULL,
	financing_type         TEXT NOT NULL,
	inspection_contingency BOOLEAN NOT NULL DEFAULT true,
	financing_contingency  BOOLEAN NOT NULL DEFAULT true,
	appraisal_contingency  BOOLEAN NOT NULL DEFAULT true,
	earnest_money          DOUBLE PRECISION NOT NULL DEFAULT 0,
	closing_date           TIMESTAMPTZ,
	message                TEXT NOT NULL DEFAULT '',
	ai_strength_score      INTEGER NOT NULL,
	ai_analysis            JSONB,
	status                 TEXT NOT NULL DEFAULT 'pending',
	expires_at             TIMESTAMPTZ NOT NULL,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_offers_listing ON offers(listing_id);
CREATE INDEX IF NOT EXISTS idx_offers_buyer ON offers(buyer_id);
CREATE INDEX IF NOT EXISTS idx_offers_open_expiry ON offers(expires_at) WHERE status IN ('pending', 'countered');

CREATE TABLE IF NOT EXISTS showing_requests (
	id           TEXT PRIMARY KEY,
	listing_id   TEXT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
	buyer_id     TEXT NOT NULL,
	requested_at TIMESTAMPTZ NOT NULL,
	message      TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'requested',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_showings_listing ON showing_requests(listing_id);

CREATE TABLE IF NOT EXISTS valuations (
	id               TEXT PRIMARY KEY,
	listing_id       TEXT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
	estimated_value  DOUBLE PRECISION NOT NULL,
	value_low        DOUBLE PRECISION NOT NULL,
	value_high       DOUBLE PRECISION NOT NULL,
	confidence_score INTEGER NOT NULL,
	has_data         BOOLEAN NOT NULL,
	methodology      JSONB NOT NULL,
	rules_hash       TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_valuations_listing ON valuations(listing_id, created_at DESC);

CREATE TABLE IF NOT EXISTS comparable_sales (
	listing_id     TEXT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
	address        TEXT NOT NULL,
	price          DOUBLE PRECISION NOT NULL DEFAULT 0,
	sqft           DOUBLE PRECISION NOT NULL DEFAULT 0,
	bedrooms       INTEGER NOT NULL DEFAULT 0,
	bathrooms      DOUBLE PRECISION NOT NULL DEFAULT 0,
	distance_miles DOUBLE PRECISION NOT NULL DEFAULT 0,
	days_old       INTEGER NOT NULL DEFAULT 0,
	sold_date      TIMESTAMPTZ,
	PRIMARY KEY (listing_id, address)
);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Listings ---

func (s *PostgresStore) CreateListing(ctx context.Context, l *model.Listing) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now
	if l.Status == "" {
		l.Status = model.ListingStatusDraft
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO listings (`+listingColumns+`) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)`,
		listingArgs(l)...,
	)
	return eris.Wrap(err, "postgres: insert listing")
}

func (s *PostgresStore) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	l, err := scanListing(s.pool.QueryRow(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("listing", id)
		}
		return nil, eris.Wrapf(err, "postgres: get listing %s", id)
	}
	return l, nil
}

// UpdateListing writes the seller-editable fields. It applies only while
// the stored status still matches l.Status; status and the publish window
// change through UpdateListingStatus.
func (s *PostgresStore) UpdateListing(ctx context.Context, l *model.Listing) error {
	l.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE listings SET
			street = $1, unit = $2, city = $3, state = $4, zip_code = $5, property_type = $6,
			bedrooms = $7, bathrooms = $8, sqft = $9, lot_size_sqft = $10, year_built = $11,
			headline = $12, description = $13, list_price = $14, updated_at = $15
		 WHERE id = $16 AND status = $17`,
		l.Street, l.Unit, l.City, l.State, l.ZipCode, l.PropertyType,
		l.Bedrooms, l.Bathrooms, l.Sqft, l.LotSizeSqft, l.YearBuilt,
		l.Headline, l.Description, l.ListPrice, l.UpdatedAt,
		l.ID, string(l.Status),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update listing %s", l.ID)
	}
	if tag.RowsAffected() == 0 {
		return s.listingConflict(ctx, l.ID, l.Status, model.ErrNotEditable)
	}
	return nil
}

// UpdateListingStatus applies a status change guarded by the expected
// current status.
func (s *PostgresStore) UpdateListingStatus(ctx context.Context, id string, change model.StatusChange) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE listings SET status = $1,
			published_at = COALESCE($2, published_at),
			expires_at = COALESCE($3, expires_at),
			updated_at = $4
		 WHERE id = $5 AND status = $6`,
		string(change.To), change.PublishedAt, change.ExpiresAt, time.Now().UTC(),
		id, string(change.From),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update listing status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return s.listingConflict(ctx, id, change.From, model.ErrInvalidTransition)
	}
	return nil
}

// listingConflict explains a guarded listing write that matched no row.
func (s *PostgresStore) listingConflict(ctx context.Context, id string, expected model.ListingStatus, sentinel error) error {
	var current string
	err := s.pool.QueryRow(ctx, `SELECT status FROM listings WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound("listing", id)
	}
	if err != nil {
		return eris.Wrapf(err, "postgres: read listing status %s", id)
	}
	return staleStatus(sentinel, "listing", id, current, string(expected))
}

func (s *PostgresStore) DeleteListing(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete listing %s", id)
	}
	if tag.RowsAffected() == 0 {
		return notFound("listing", id)
	}
	return nil
}

func (s *PostgresStore) SearchListings(ctx context.Context, filter model.ListingFilter) ([]model.Listing, error) {
	where, args := listingWhere(filter, dollar)
	query := `SELECT ` + listingColumns + ` FROM listings` + where + ` ORDER BY created_at DESC`

	args = append(args, limitOf(filter.Limit))
	query += fmt.Sprintf(` LIMIT $%d`, len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search listings")
	}
	defer rows.Close()

	var out []model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan listing")
		}
		out = append(out, *l)
	}
	return out, eris.Wrap(rows.Err(), "postgres: search listings iterate")
}

func (s *PostgresStore) IncrementCounter(ctx context.Context, id string, counter model.CounterKind) error {
	col, err := counterColumn(counter)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE listings SET %[1]s = %[1]s + 1 WHERE id = $1`, col), id)
	if err != nil {
		return eris.Wrapf(err, "postgres: increment %s on %s", col, id)
	}
	if tag.RowsAffected() == 0 {
		return notFound("listing", id)
	}
	return nil
}

func (s *PostgresStore) ExpireListings(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE listings SET status = 'expired', updated_at = $1 WHERE status = 'active' AND expires_at IS NOT NULL AND expires_at <= $1`,
		now.UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: expire listings")
	}
	return int(tag.RowsAffected()), nil
}

// --- Valuations ---

// SaveValuation records a valuation and, when it carries data, copies the
// figures onto the listing's ai_* columns in the same transaction.
func (s *PostgresStore) SaveValuation(ctx context.Context, v *model.Valuation) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	methodology, err := json.Marshal(v.Methodology)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal methodology")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin valuation tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO valuations (id, listing_id, estimated_value, value_low, value_high, confidence_score, has_data, methodology, rules_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		v.ID, v.ListingID, v.EstimatedValue, v.ValueLow, v.ValueHigh, v.ConfidenceScore, v.HasData, string(methodology), v.RulesHash, v.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert valuation for %s", v.ListingID)
	}

	if v.HasData {
		tag, err := tx.Exec(ctx,
			`UPDATE listings SET ai_estimated_value = $1, ai_value_low = $2, ai_value_high = $3,
				ai_confidence_score = $4, valued_at = $5, updated_at = $5
			 WHERE id = $6`,
			v.EstimatedValue, v.ValueLow, v.ValueHigh, v.ConfidenceScore, v.CreatedAt, v.ListingID,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: update listing valuation %s", v.ListingID)
		}
		if tag.RowsAffected() == 0 {
			return notFound("listing", v.ListingID)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit valuation")
}

func (s *PostgresStore) LatestValuation(ctx context.Context, listingID string) (*model.Valuation, error) {
	var v model.Valuation
	var methodology string
	err := s.pool.QueryRow(ctx,
		`SELECT id, listing_id, estimated_value, value_low, value_high, confidence_score, has_data, methodology, rules_hash, created_at
		 FROM valuations WHERE listing_id = $1 ORDER BY created_at DESC LIMIT 1`,
		listingID,
	).Scan(&v.ID, &v.ListingID, &v.EstimatedValue, &v.ValueLow, &v.ValueHigh, &v.ConfidenceScore, &v.HasData, &methodology, &v.RulesHash, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("valuation for listing", listingID)
		}
		return nil, eris.Wrapf(err, "postgres: latest valuation %s", listingID)
	}
	if err := json.Unmarshal([]byte(methodology), &v.Methodology); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal methodology")
	}
	return &v, nil
}

var comparableUpsert = db.UpsertConfig{
	Table:        "comparable_sales",
	Columns:      []string{"listing_id", "address", "price", "sqft", "bedrooms", "bathrooms", "distance_miles", "days_old", "sold_date"},
	ConflictKeys: []string{"listing_id", "address"},
}

func (s *PostgresStore) SaveComparables(ctx context.Context, listingID string, comps []model.ComparableSale) (int, error) {
	unique := uniqueComparables(comps)
	rows := make([][]any, 0, len(unique))
	for _, c := range unique {
		rows = append(rows, comparableRow(listingID, c))
	}
	n, err := db.BulkUpsert(ctx, s.pool, comparableUpsert, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: save comparables for %s", listingID)
	}
	return int(n), nil
}

func (s *PostgresStore) ListComparables(ctx context.Context, listingID string) ([]model.ComparableSale, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+comparableColumns+` FROM comparable_sales WHERE listing_id = $1 ORDER BY distance_miles, address`,
		listingID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list comparables %s", listingID)
	}
	defer rows.Close()

	var out []model.ComparableSale
	for rows.Next() {
		c, err := scanComparable(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan comparable")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list comparables iterate")
}

// --- Offers ---

func (s *PostgresStore) CreateOffer(ctx context.Context, o *model.Offer) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = o.CreatedAt

	_, err := s.pool.Exec(ctx,
		`INSERT INTO offers (`+offerColumns+`) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		offerArgs(o)...,
	)
	return eris.Wrap(err, "postgres: insert offer")
}

func (s *PostgresStore) GetOffer(ctx context.Context, id string) (*model.Offer, error) {
	o, err := scanOffer(s.pool.QueryRow(ctx,
		`SELECT `+offerColumns+` FROM offers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("offer", id)
		}
		return nil, eris.Wrapf(err, "postgres: get offer %s", id)
	}
	return o, nil
}

func (s *PostgresStore) ListOffers(ctx context.Context, filter model.OfferFilter) ([]model.Offer, error) {
	where, args := offerWhere(filter, dollar)
	args = append(args, limitOf(filter.Limit))
	query := `SELECT ` + offerColumns + ` FROM offers` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list offers")
	}
	defer rows.Close()

	var out []model.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan offer")
		}
		out = append(out, *o)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list offers iterate")
}

// UpdateOfferStatus moves an offer from one status to another. It fails
// with ErrOfferClosed when the offer is no longer in from.
func (s *PostgresStore) UpdateOfferStatus(ctx context.Context, id string, from, to model.OfferStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE offers SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		string(to), time.Now().UTC(), id, string(from),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update offer status %s", id)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current string
	err = s.pool.QueryRow(ctx, `SELECT status FROM offers WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound("offer", id)
	}
	if err != nil {
		return eris.Wrapf(err, "postgres: read offer status %s", id)
	}
	return staleStatus(model.ErrOfferClosed, "offer", id, current, string(from))
}

func (s *PostgresStore) ExpireOffers(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE offers SET status = 'expired', updated_at = $1 WHERE status IN ('pending', 'countered') AND expires_at <= $1`,
		now.UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: expire offers")
	}
	return int(tag.RowsAffected()), nil
}

// --- Showings ---

func (s *PostgresStore) CreateShowing(ctx context.Context, sr *model.ShowingRequest) error {
	if sr.ID == "" {
		sr.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	sr.CreatedAt, sr.UpdatedAt = now, now
	if sr.Status == "" {
		sr.Status = model.ShowingStatusRequested
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO showing_requests (`+showingColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sr.ID, sr.ListingID, sr.BuyerID, sr.RequestedAt.UTC(), sr.Message, string(sr.Status), sr.CreatedAt, sr.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: insert showing")
}

func (s *PostgresStore) GetShowing(ctx context.Context, id string) (*model.ShowingRequest, error) {
	sr, err := scanShowing(s.pool.QueryRow(ctx,
		`SELECT `+showingColumns+` FROM showing_requests WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("showing", id)
		}
		return nil, eris.Wrapf(err, "postgres: get showing %s", id)
	}
	return sr, nil
}

func (s *PostgresStore) ListShowings(ctx context.Context, listingID string) ([]model.ShowingRequest, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+showingColumns+` FROM showing_requests WHERE listing_id = $1 ORDER BY requested_at`,
		listingID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list showings %s", listingID)
	}
	defer rows.Close()

	var out []model.ShowingRequest
	for rows.Next() {
		sr, err := scanShowing(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan showing")
		}
		out = append(out, *sr)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list showings iterate")
}

func (s *PostgresStore) UpdateShowingStatus(ctx context.Context, id string, status model.ShowingStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE showing_requests SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update showing status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return notFound("showing", id)
	}
	return nil
}
