// Package persistence stores registry snapshots in SQLite and decouples
// flush I/O from the in-memory mutation path.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/virtualand/landgrid/internal/registry"
)

// DB wraps a SQLite connection for ledger snapshot storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ownership (
		parcel_id INTEGER PRIMARY KEY,
		owner TEXT NOT NULL,
		acquisition_cost REAL NOT NULL,
		acquired_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS listings (
		parcel_id INTEGER PRIMARY KEY,
		owner TEXT NOT NULL,
		price REAL NOT NULL,
		created_at INTEGER NOT NULL,
		status TEXT NOT NULL,
		seq INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		ord INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		parcel_id INTEGER NOT NULL,
		district_id TEXT NOT NULL,
		type TEXT NOT NULL,
		actor TEXT NOT NULL,
		counterparty TEXT NOT NULL,
		price REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ledger_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ownership_owner ON ownership(owner);
	CREATE INDEX IF NOT EXISTS idx_listings_status ON listings(status);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveSnapshot writes a full snapshot in one transaction (full replace).
// The ownership/listings/events triple lands all-or-nothing, so a reader
// never observes a partial flush.
func (db *DB) SaveSnapshot(s registry.Snap) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"ownership", "listings", "events"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, rec := range s.Ownership {
		_, err := tx.Exec(
			`INSERT INTO ownership (parcel_id, owner, acquisition_cost, acquired_at)
			 VALUES (?, ?, ?, ?)`,
			rec.ParcelID, rec.Owner, rec.AcquisitionCost, rec.AcquiredAt.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("insert ownership %d: %w", rec.ParcelID, err)
		}
	}

	for _, rec := range s.Listings {
		_, err := tx.Exec(
			`INSERT INTO listings (parcel_id, owner, price, created_at, status, seq)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ParcelID, rec.Owner, rec.Price, rec.CreatedAt.UnixNano(), string(rec.Status), rec.Seq,
		)
		if err != nil {
			return fmt.Errorf("insert listing %d: %w", rec.ParcelID, err)
		}
	}

	for _, e := range s.Events {
		_, err := tx.Exec(
			`INSERT INTO events (id, timestamp, parcel_id, district_id, type, actor, counterparty, price)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Timestamp.UnixNano(), e.ParcelID, e.DistrictID, string(e.Type), e.Actor, e.Counterparty, e.Price,
		)
		if err != nil {
			return fmt.Errorf("insert event %s: %w", e.ID, err)
		}
	}

	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO ledger_meta (key, value) VALUES (?, ?)",
		"schema_version", strconv.Itoa(s.SchemaVersion),
	); err != nil {
		return fmt.Errorf("save schema version: %w", err)
	}
	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO ledger_meta (key, value) VALUES (?, ?)",
		"saved_at", strconv.FormatInt(time.Now().UnixNano(), 10),
	); err != nil {
		return fmt.Errorf("save timestamp: %w", err)
	}

	return tx.Commit()
}

// LoadSnapshot reconstructs a snapshot from the database. An absent or
// empty database yields an empty snapshot: no owned parcels, no listings,
// no history.
func (db *DB) LoadSnapshot() (registry.Snap, error) {
	s := registry.Snap{SchemaVersion: registry.SchemaVersion}

	rows, err := db.conn.Query(
		"SELECT parcel_id, owner, acquisition_cost, acquired_at FROM ownership ORDER BY parcel_id")
	if err != nil {
		return s, fmt.Errorf("load ownership: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rec registry.OwnershipRecord
		var at int64
		if err := rows.Scan(&rec.ParcelID, &rec.Owner, &rec.AcquisitionCost, &at); err != nil {
			return s, fmt.Errorf("scan ownership: %w", err)
		}
		rec.AcquiredAt = time.Unix(0, at)
		s.Ownership = append(s.Ownership, rec)
	}
	if err := rows.Err(); err != nil {
		return s, err
	}

	lrows, err := db.conn.Query(
		"SELECT parcel_id, owner, price, created_at, status, seq FROM listings ORDER BY parcel_id")
	if err != nil {
		return s, fmt.Errorf("load listings: %w", err)
	}
	defer lrows.Close()
	for lrows.Next() {
		var rec registry.ListingRecord
		var at int64
		var status string
		if err := lrows.Scan(&rec.ParcelID, &rec.Owner, &rec.Price, &at, &status, &rec.Seq); err != nil {
			return s, fmt.Errorf("scan listing: %w", err)
		}
		rec.CreatedAt = time.Unix(0, at)
		rec.Status = registry.ListingStatus(status)
		s.Listings = append(s.Listings, rec)
	}
	if err := lrows.Err(); err != nil {
		return s, err
	}

	erows, err := db.conn.Query(
		`SELECT id, timestamp, parcel_id, district_id, type, actor, counterparty, price
		 FROM events ORDER BY ord`)
	if err != nil {
		return s, fmt.Errorf("load events: %w", err)
	}
	defer erows.Close()
	for erows.Next() {
		e, err := scanEvent(erows)
		if err != nil {
			return s, fmt.Errorf("scan event: %w", err)
		}
		s.Events = append(s.Events, e)
	}
	if err := erows.Err(); err != nil {
		return s, err
	}

	return s, nil
}

func scanEvent(rows *sql.Rows) (registry.Event, error) {
	var e registry.Event
	var ts int64
	var typ string
	err := rows.Scan(&e.ID, &ts, &e.ParcelID, &e.DistrictID, &typ, &e.Actor, &e.Counterparty, &e.Price)
	if err != nil {
		return e, err
	}
	e.Timestamp = time.Unix(0, ts)
	e.Type = registry.EventType(typ)
	return e, nil
}

// SaveMeta stores a key-value pair in ledger metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO ledger_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value; empty string when unset.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM ledger_meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// RecentEvents returns the most recent N persisted events, newest first.
func (db *DB) RecentEvents(limit int) ([]registry.Event, error) {
	rows, err := db.conn.Query(
		`SELECT id, timestamp, parcel_id, district_id, type, actor, counterparty, price
		 FROM events ORDER BY ord DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []registry.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
