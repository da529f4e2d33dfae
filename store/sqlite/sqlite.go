/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements booking.Store/booking.TxStore and referral.Store/
  referral.TxStore over a single database. In production the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  properties:        the scarce resources with their status flag
  bookings:          booking requests; rows are never deleted, only their
                     status moves through the state machine
  dealers:           the referral forest (parent_id self-reference)
  commissions:       append-only payout ledger (no UPDATE, no DELETE)
  commission_config: level -> percentage, seeded with defaults for 1-3

CONCURRENCY:
  Write transactions are serialized behind a mutex: WithTx holds the write
  lock for the whole transaction, so two concurrent approvals of
  overlapping bookings cannot interleave between the overlap re-check and
  the status writes. Reads inside a transaction go through the
  transaction's own connection and see its uncommitted state.

WAL MODE:
  The database is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/marketplace.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := booking.NewService(store, tree)
  engine := referral.NewEngine(store.Dealers(), store, tree)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - booking/store.go:  interface definitions and atomicity contract
  - referral/store.go: dealer-side interfaces
  - booking/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/yagnesh25gehlot/real-estate-startup-sub001/booking"
	"github.com/yagnesh25gehlot/real-estate-startup-sub001/referral"
)

// Store implements the booking and referral storage interfaces.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Writes are serialized above this layer; a single connection keeps
	// ":memory:" databases coherent across the pool.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		price TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'free',
		owner_id TEXT NOT NULL,
		dealer_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_properties_status
		ON properties(status);

	-- Bookings are never deleted; cancellation and expiry are terminal
	-- statuses so the history stays auditable.
	CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id),
		user_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		payment_ref TEXT NOT NULL,
		payment_proof TEXT,
		dealer_code TEXT,
		charges TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Overlap checks and sibling cancellation (hot path)
	CREATE INDEX IF NOT EXISTS idx_bookings_property_status
		ON bookings(property_id, status);

	-- Sweeper scan
	CREATE INDEX IF NOT EXISTS idx_bookings_status_end
		ON bookings(status, end_date);

	CREATE INDEX IF NOT EXISTS idx_bookings_user
		ON bookings(user_id);

	CREATE TABLE IF NOT EXISTS dealers (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		referral_code TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'pending',
		parent_id TEXT REFERENCES dealers(id),
		commission TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_dealers_parent
		ON dealers(parent_id);

	-- Commissions (append-only ledger). No UPDATE or DELETE statements
	-- exist for this table anywhere in this package.
	CREATE TABLE IF NOT EXISTS commissions (
		id TEXT PRIMARY KEY,
		dealer_id TEXT NOT NULL REFERENCES dealers(id),
		property_id TEXT NOT NULL,
		booking_id TEXT,
		amount TEXT NOT NULL,
		level INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_commissions_dealer
		ON commissions(dealer_id);

	CREATE TABLE IF NOT EXISTS commission_config (
		level INTEGER PRIMARY KEY,
		percentage TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Default percentages for levels 1-3. INSERT OR IGNORE keeps
	// admin-edited values across restarts.
	seed := `
	INSERT OR IGNORE INTO commission_config (level, percentage, updated_at) VALUES
		(1, '10', ?),
		(2, '5', ?),
		(3, '2.5', ?);
	`
	now := formatTime(time.Now())
	_, err := s.db.Exec(seed, now, now, now)
	return err
}

// dbtx is the subset of *sql.DB / *sql.Tx the row helpers need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// withTx runs fn against a transaction-bound store, holding the write
// lock for the duration so write transactions are fully serialized.
func (s *Store) withTx(ctx context.Context, fn func(*txStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", booking.ErrUnavailable)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, parent: s}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", booking.ErrUnavailable)
	}
	return nil
}

// WithTx implements booking.TxStore.
func (s *Store) WithTx(ctx context.Context, fn func(booking.Store) error) error {
	return s.withTx(ctx, func(tx *txStore) error { return fn(tx) })
}

// Dealers returns the referral-side view of the same database. Both views
// share one connection and one write lock.
func (s *Store) Dealers() referral.TxStore {
	return dealerStore{s}
}

// dealerStore adapts Store to referral.TxStore. The embedded *Store
// provides the referral.Store method set; only WithTx needs its own
// signature.
type dealerStore struct {
	*Store
}

func (d dealerStore) WithTx(ctx context.Context, fn func(referral.Store) error) error {
	return d.Store.withTx(ctx, func(tx *txStore) error { return fn(tx) })
}

// txStore is a Store bound to one open transaction. It implements both
// booking.Store and referral.Store. It must not touch the parent mutex:
// withTx already holds it.
type txStore struct {
	tx     *sql.Tx
	parent *Store
}

// =============================================================================
// PROPERTIES (booking.Store)
// =============================================================================

const propertyColumns = `id, title, price, status, owner_id, dealer_id, created_at, updated_at`

func (s *Store) CreateProperty(ctx context.Context, p *booking.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createProperty(ctx, s.db, p)
}

func (ts *txStore) CreateProperty(ctx context.Context, p *booking.Property) error {
	return ts.parent.createProperty(ctx, ts.tx, p)
}

func (s *Store) createProperty(ctx context.Context, db dbtx, p *booking.Property) error {
	query := `
		INSERT INTO properties (id, title, price, status, owner_id, dealer_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		p.ID, p.Title, p.Price.String(), p.Status, p.OwnerID,
		dealerIDOrNull(p.DealerID), formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert property: %w", err)
	}
	return nil
}

func (s *Store) GetProperty(ctx context.Context, id booking.PropertyID) (*booking.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getProperty(ctx, s.db, id)
}

func (ts *txStore) GetProperty(ctx context.Context, id booking.PropertyID) (*booking.Property, error) {
	return ts.parent.getProperty(ctx, ts.tx, id)
}

func (s *Store) getProperty(ctx context.Context, db dbtx, id booking.PropertyID) (*booking.Property, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id)
	p, err := scanProperty(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("property %s: %w", id, booking.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan property: %w", err)
	}
	return p, nil
}

func (s *Store) UpdateProperty(ctx context.Context, p *booking.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateProperty(ctx, s.db, p)
}

func (ts *txStore) UpdateProperty(ctx context.Context, p *booking.Property) error {
	return ts.parent.updateProperty(ctx, ts.tx, p)
}

func (s *Store) updateProperty(ctx context.Context, db dbtx, p *booking.Property) error {
	query := `
		UPDATE properties
		SET title = ?, price = ?, status = ?, dealer_id = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := db.ExecContext(ctx, query,
		p.Title, p.Price.String(), p.Status, dealerIDOrNull(p.DealerID),
		formatTime(p.UpdatedAt), p.ID,
	)
	if err != nil {
		return fmt.Errorf("update property: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("property %s: %w", p.ID, booking.ErrNotFound)
	}
	return nil
}

func (s *Store) ListProperties(ctx context.Context) ([]booking.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listProperties(ctx, s.db)
}

func (ts *txStore) ListProperties(ctx context.Context) ([]booking.Property, error) {
	return ts.parent.listProperties(ctx, ts.tx)
}

func (s *Store) listProperties(ctx context.Context, db dbtx) ([]booking.Property, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+propertyColumns+` FROM properties ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query properties: %w", err)
	}
	defer rows.Close()

	var properties []booking.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		properties = append(properties, *p)
	}
	return properties, rows.Err()
}

// =============================================================================
// BOOKINGS (booking.Store)
// =============================================================================

const bookingColumns = `id, property_id, user_id, start_date, end_date, status,
	payment_ref, payment_proof, dealer_code, charges, total_amount, created_at, updated_at`

func (s *Store) CreateBooking(ctx context.Context, b *booking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createBooking(ctx, s.db, b)
}

func (ts *txStore) CreateBooking(ctx context.Context, b *booking.Booking) error {
	return ts.parent.createBooking(ctx, ts.tx, b)
}

func (s *Store) createBooking(ctx context.Context, db dbtx, b *booking.Booking) error {
	query := `
		INSERT INTO bookings (id, property_id, user_id, start_date, end_date, status,
			payment_ref, payment_proof, dealer_code, charges, total_amount, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		b.ID, b.PropertyID, b.UserID,
		formatTime(b.StartDate), formatTime(b.EndDate), b.Status,
		b.PaymentRef, nullString(b.PaymentProof), nullString(b.DealerCode),
		b.Charges.String(), b.TotalAmount.String(),
		formatTime(b.CreatedAt), formatTime(b.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id booking.BookingID) (*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getBooking(ctx, s.db, id)
}

func (ts *txStore) GetBooking(ctx context.Context, id booking.BookingID) (*booking.Booking, error) {
	return ts.parent.getBooking(ctx, ts.tx, id)
}

func (s *Store) getBooking(ctx context.Context, db dbtx, id booking.BookingID) (*booking.Booking, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("booking %s: %w", id, booking.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan booking: %w", err)
	}
	return b, nil
}

func (s *Store) UpdateBooking(ctx context.Context, b *booking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateBooking(ctx, s.db, b)
}

func (ts *txStore) UpdateBooking(ctx context.Context, b *booking.Booking) error {
	return ts.parent.updateBooking(ctx, ts.tx, b)
}

func (s *Store) updateBooking(ctx context.Context, db dbtx, b *booking.Booking) error {
	query := `
		UPDATE bookings
		SET status = ?, payment_ref = ?, payment_proof = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := db.ExecContext(ctx, query,
		b.Status, b.PaymentRef, nullString(b.PaymentProof), formatTime(b.UpdatedAt), b.ID)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("booking %s: %w", b.ID, booking.ErrNotFound)
	}
	return nil
}

func (s *Store) ListBookingsByProperty(ctx context.Context, id booking.PropertyID) ([]booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listBookingsByProperty(ctx, s.db, id)
}

func (ts *txStore) ListBookingsByProperty(ctx context.Context, id booking.PropertyID) ([]booking.Booking, error) {
	return ts.parent.listBookingsByProperty(ctx, ts.tx, id)
}

func (s *Store) listBookingsByProperty(ctx context.Context, db dbtx, id booking.PropertyID) ([]booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE property_id = ? ORDER BY created_at ASC`
	return s.queryBookings(ctx, db, query, id)
}

func (s *Store) FindConfirmedOverlap(ctx context.Context, id booking.PropertyID, w booking.Window) (*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findConfirmedOverlap(ctx, s.db, id, w)
}

func (ts *txStore) FindConfirmedOverlap(ctx context.Context, id booking.PropertyID, w booking.Window) (*booking.Booking, error) {
	return ts.parent.findConfirmedOverlap(ctx, ts.tx, id, w)
}

func (s *Store) findConfirmedOverlap(ctx context.Context, db dbtx, id booking.PropertyID, w booking.Window) (*booking.Booking, error) {
	// Inclusive overlap: start <= w.End AND end >= w.Start.
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE property_id = ? AND status = ? AND start_date <= ? AND end_date >= ?
		LIMIT 1
	`
	row := db.QueryRowContext(ctx, query,
		id, booking.BookingConfirmed, formatTime(w.End), formatTime(w.Start))
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan booking: %w", err)
	}
	return b, nil
}

func (s *Store) ListPendingOverlapping(ctx context.Context, id booking.PropertyID, w booking.Window) ([]booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listPendingOverlapping(ctx, s.db, id, w)
}

func (ts *txStore) ListPendingOverlapping(ctx context.Context, id booking.PropertyID, w booking.Window) ([]booking.Booking, error) {
	return ts.parent.listPendingOverlapping(ctx, ts.tx, id, w)
}

func (s *Store) listPendingOverlapping(ctx context.Context, db dbtx, id booking.PropertyID, w booking.Window) ([]booking.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE property_id = ? AND status = ? AND start_date <= ? AND end_date >= ?
		ORDER BY created_at ASC
	`
	return s.queryBookings(ctx, db, query,
		id, booking.BookingPending, formatTime(w.End), formatTime(w.Start))
}

func (s *Store) ListExpiredConfirmed(ctx context.Context, asOf time.Time) ([]booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listExpiredConfirmed(ctx, s.db, asOf)
}

func (ts *txStore) ListExpiredConfirmed(ctx context.Context, asOf time.Time) ([]booking.Booking, error) {
	return ts.parent.listExpiredConfirmed(ctx, ts.tx, asOf)
}

func (s *Store) listExpiredConfirmed(ctx context.Context, db dbtx, asOf time.Time) ([]booking.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = ? AND end_date < ?
		ORDER BY end_date ASC
	`
	return s.queryBookings(ctx, db, query, booking.BookingConfirmed, formatTime(asOf))
}

func (s *Store) queryBookings(ctx context.Context, db dbtx, query string, args ...any) ([]booking.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []booking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// =============================================================================
// DEALERS (referral.Store)
// =============================================================================

const dealerColumns = `id, user_id, referral_code, status, parent_id, commission, created_at, updated_at`

func (s *Store) CreateDealer(ctx context.Context, d *referral.Dealer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createDealer(ctx, s.db, d)
}

func (ts *txStore) CreateDealer(ctx context.Context, d *referral.Dealer) error {
	return ts.parent.createDealer(ctx, ts.tx, d)
}

func (s *Store) createDealer(ctx context.Context, db dbtx, d *referral.Dealer) error {
	query := `
		INSERT INTO dealers (id, user_id, referral_code, status, parent_id, commission, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		d.ID, d.UserID, d.ReferralCode, d.Status, dealerIDOrNull(d.ParentID),
		d.Commission.String(), formatTime(d.CreatedAt), formatTime(d.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("referral code %q taken: %w", d.ReferralCode, booking.ErrConflict)
		}
		return fmt.Errorf("insert dealer: %w", err)
	}
	return nil
}

func (s *Store) GetDealer(ctx context.Context, id booking.DealerID) (*referral.Dealer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getDealer(ctx, s.db, id)
}

func (ts *txStore) GetDealer(ctx context.Context, id booking.DealerID) (*referral.Dealer, error) {
	return ts.parent.getDealer(ctx, ts.tx, id)
}

func (s *Store) getDealer(ctx context.Context, db dbtx, id booking.DealerID) (*referral.Dealer, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+dealerColumns+` FROM dealers WHERE id = ?`, id)
	d, err := scanDealer(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("dealer %s: %w", id, booking.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan dealer: %w", err)
	}
	return d, nil
}

func (s *Store) GetDealerByCode(ctx context.Context, code string) (*referral.Dealer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getDealerByCode(ctx, s.db, code)
}

func (ts *txStore) GetDealerByCode(ctx context.Context, code string) (*referral.Dealer, error) {
	return ts.parent.getDealerByCode(ctx, ts.tx, code)
}

func (s *Store) getDealerByCode(ctx context.Context, db dbtx, code string) (*referral.Dealer, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+dealerColumns+` FROM dealers WHERE referral_code = ?`, code)
	d, err := scanDealer(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("referral code %q: %w", code, booking.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan dealer: %w", err)
	}
	return d, nil
}

func (s *Store) UpdateDealerStatus(ctx context.Context, id booking.DealerID, status referral.DealerStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateDealerStatus(ctx, s.db, id, status)
}

func (ts *txStore) UpdateDealerStatus(ctx context.Context, id booking.DealerID, status referral.DealerStatus) error {
	return ts.parent.updateDealerStatus(ctx, ts.tx, id, status)
}

func (s *Store) updateDealerStatus(ctx context.Context, db dbtx, id booking.DealerID, status referral.DealerStatus) error {
	res, err := db.ExecContext(ctx,
		`UPDATE dealers SET status = ?, updated_at = ? WHERE id = ?`,
		status, formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("update dealer status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("dealer %s: %w", id, booking.ErrNotFound)
	}
	return nil
}

func (s *Store) ListChildren(ctx context.Context, id booking.DealerID) ([]referral.Dealer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listChildren(ctx, s.db, id)
}

func (ts *txStore) ListChildren(ctx context.Context, id booking.DealerID) ([]referral.Dealer, error) {
	return ts.parent.listChildren(ctx, ts.tx, id)
}

func (s *Store) listChildren(ctx context.Context, db dbtx, id booking.DealerID) ([]referral.Dealer, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+dealerColumns+` FROM dealers WHERE parent_id = ? ORDER BY created_at ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("query children: %w", err)
	}
	defer rows.Close()

	var dealers []referral.Dealer
	for rows.Next() {
		d, err := scanDealer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dealer: %w", err)
		}
		dealers = append(dealers, *d)
	}
	return dealers, rows.Err()
}

func (s *Store) AddDealerCommission(ctx context.Context, id booking.DealerID, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addDealerCommission(ctx, s.db, id, amount)
}

func (ts *txStore) AddDealerCommission(ctx context.Context, id booking.DealerID, amount decimal.Decimal) error {
	return ts.parent.addDealerCommission(ctx, ts.tx, id, amount)
}

func (s *Store) addDealerCommission(ctx context.Context, db dbtx, id booking.DealerID, amount decimal.Decimal) error {
	// Read-modify-write on the decimal string; safe because write
	// transactions are serialized behind the store mutex.
	d, err := s.getDealer(ctx, db, id)
	if err != nil {
		return err
	}
	total := d.Commission.Add(amount)

	_, err = db.ExecContext(ctx,
		`UPDATE dealers SET commission = ?, updated_at = ? WHERE id = ?`,
		total.String(), formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("update dealer commission: %w", err)
	}
	return nil
}

// =============================================================================
// COMMISSIONS (referral.Store, append-only)
// =============================================================================

func (s *Store) CreateCommission(ctx context.Context, c *referral.Commission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createCommission(ctx, s.db, c)
}

func (ts *txStore) CreateCommission(ctx context.Context, c *referral.Commission) error {
	return ts.parent.createCommission(ctx, ts.tx, c)
}

func (s *Store) createCommission(ctx context.Context, db dbtx, c *referral.Commission) error {
	query := `
		INSERT INTO commissions (id, dealer_id, property_id, booking_id, amount, level, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		c.ID, c.DealerID, c.PropertyID, nullString(string(c.BookingID)),
		c.Amount.String(), c.Level, formatTime(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert commission: %w", err)
	}
	return nil
}

func (s *Store) ListCommissionsByDealer(ctx context.Context, id booking.DealerID) ([]referral.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listCommissionsByDealer(ctx, s.db, id)
}

func (ts *txStore) ListCommissionsByDealer(ctx context.Context, id booking.DealerID) ([]referral.Commission, error) {
	return ts.parent.listCommissionsByDealer(ctx, ts.tx, id)
}

func (s *Store) listCommissionsByDealer(ctx context.Context, db dbtx, id booking.DealerID) ([]referral.Commission, error) {
	query := `
		SELECT id, dealer_id, property_id, booking_id, amount, level, created_at
		FROM commissions WHERE dealer_id = ? ORDER BY created_at DESC
	`
	rows, err := db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query commissions: %w", err)
	}
	defer rows.Close()

	var commissions []referral.Commission
	for rows.Next() {
		var (
			c         referral.Commission
			bookingID sql.NullString
			amount    string
			createdAt string
		)
		if err := rows.Scan(&c.ID, &c.DealerID, &c.PropertyID, &bookingID, &amount, &c.Level, &createdAt); err != nil {
			return nil, fmt.Errorf("scan commission: %w", err)
		}
		c.BookingID = booking.BookingID(bookingID.String)
		c.Amount = mustDecimal(amount)
		c.CreatedAt = parseTime(createdAt)
		commissions = append(commissions, c)
	}
	return commissions, rows.Err()
}

// =============================================================================
// COMMISSION CONFIG (referral.Store)
// =============================================================================

func (s *Store) GetCommissionConfig(ctx context.Context) (map[int]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getCommissionConfig(ctx, s.db)
}

func (ts *txStore) GetCommissionConfig(ctx context.Context) (map[int]decimal.Decimal, error) {
	return ts.parent.getCommissionConfig(ctx, ts.tx)
}

func (s *Store) getCommissionConfig(ctx context.Context, db dbtx) (map[int]decimal.Decimal, error) {
	rows, err := db.QueryContext(ctx, `SELECT level, percentage FROM commission_config`)
	if err != nil {
		return nil, fmt.Errorf("query commission config: %w", err)
	}
	defer rows.Close()

	config := make(map[int]decimal.Decimal)
	for rows.Next() {
		var (
			level      int
			percentage string
		)
		if err := rows.Scan(&level, &percentage); err != nil {
			return nil, fmt.Errorf("scan commission config: %w", err)
		}
		config[level] = mustDecimal(percentage)
	}
	return config, rows.Err()
}

func (s *Store) SetCommissionConfigLevel(ctx context.Context, level int, percentage decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setCommissionConfigLevel(ctx, s.db, level, percentage)
}

func (ts *txStore) SetCommissionConfigLevel(ctx context.Context, level int, percentage decimal.Decimal) error {
	return ts.parent.setCommissionConfigLevel(ctx, ts.tx, level, percentage)
}

func (s *Store) setCommissionConfigLevel(ctx context.Context, db dbtx, level int, percentage decimal.Decimal) error {
	query := `
		INSERT INTO commission_config (level, percentage, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(level) DO UPDATE SET
			percentage = excluded.percentage,
			updated_at = excluded.updated_at
	`
	_, err := db.ExecContext(ctx, query, level, percentage.String(), formatTime(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("upsert commission config: %w", err)
	}
	return nil
}

// =============================================================================
// ROW SCANNING AND HELPERS
// =============================================================================

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProperty(row scanner) (*booking.Property, error) {
	var (
		p         booking.Property
		price     string
		dealerID  sql.NullString
		createdAt string
		updatedAt string
	)
	err := row.Scan(&p.ID, &p.Title, &price, &p.Status, &p.OwnerID, &dealerID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.Price = mustDecimal(price)
	if dealerID.Valid {
		id := booking.DealerID(dealerID.String)
		p.DealerID = &id
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func scanBooking(row scanner) (*booking.Booking, error) {
	var (
		b            booking.Booking
		startDate    string
		endDate      string
		paymentProof sql.NullString
		dealerCode   sql.NullString
		charges      string
		totalAmount  string
		createdAt    string
		updatedAt    string
	)
	err := row.Scan(&b.ID, &b.PropertyID, &b.UserID, &startDate, &endDate, &b.Status,
		&b.PaymentRef, &paymentProof, &dealerCode, &charges, &totalAmount, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	b.StartDate = parseTime(startDate)
	b.EndDate = parseTime(endDate)
	b.PaymentProof = paymentProof.String
	b.DealerCode = dealerCode.String
	b.Charges = mustDecimal(charges)
	b.TotalAmount = mustDecimal(totalAmount)
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return &b, nil
}

func scanDealer(row scanner) (*referral.Dealer, error) {
	var (
		d          referral.Dealer
		parentID   sql.NullString
		commission string
		createdAt  string
		updatedAt  string
	)
	err := row.Scan(&d.ID, &d.UserID, &d.ReferralCode, &d.Status, &parentID, &commission, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		id := booking.DealerID(parentID.String)
		d.ParentID = &id
	}
	d.Commission = mustDecimal(commission)
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	return &d, nil
}

// timeLayout is fixed-width (zero-padded nanoseconds, always UTC) so that
// lexical order on the TEXT columns matches chronological order. The
// overlap and sweeper queries compare these strings directly.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func dealerIDOrNull(id *booking.DealerID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*id), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
