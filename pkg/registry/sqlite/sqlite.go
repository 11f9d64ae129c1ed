// Package sqlite provides a SQLite-backed registry driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/tabulahq/tabula/pkg/registry"
	"github.com/tabulahq/tabula/pkg/sheet"
)

// Driver implements registry.Driver using SQLite as the storage backend.
type Driver struct {
	db *sql.DB
}

// NewDriver creates a new SQLite-backed driver. The dbPath can be a file
// path or ":memory:" for an in-memory database.
func NewDriver(dbPath string) (*Driver, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	d := &Driver{db: db}

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return d, nil
}

// migrate creates the necessary tables if they don't exist.
func (d *Driver) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sheets (
		conversation TEXT NOT NULL,
		uid TEXT NOT NULL,
		record TEXT NOT NULL,
		seq INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (conversation, uid)
	);

	CREATE TABLE IF NOT EXISTS templates (
		uid TEXT PRIMARY KEY,
		record TEXT NOT NULL,
		seq INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sheets_conversation ON sheets(conversation);
	`

	_, err := d.db.Exec(schema)
	return err
}

func (d *Driver) PutSheet(ctx context.Context, conversation string, rec sheet.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling sheet record: %w", err)
	}

	// Upsert keeps the original seq so listing order is insertion order.
	query := `
	INSERT INTO sheets (conversation, uid, record, seq)
	VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM sheets WHERE conversation = ?))
	ON CONFLICT(conversation, uid) DO UPDATE SET record = excluded.record`

	_, err = d.db.ExecContext(ctx, query, conversation, rec.UID, string(payload), conversation)
	if err != nil {
		return fmt.Errorf("upserting sheet record: %w", err)
	}
	return nil
}

func (d *Driver) GetSheet(ctx context.Context, conversation, uid string) (sheet.Record, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT record FROM sheets WHERE conversation = ? AND uid = ?`, conversation, uid)
	return scanRecord(row, uid)
}

func (d *Driver) ListSheets(ctx context.Context, conversation string) ([]sheet.Record, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT record FROM sheets WHERE conversation = ? ORDER BY seq`, conversation)
	if err != nil {
		return nil, fmt.Errorf("querying sheet records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (d *Driver) DeleteSheet(ctx context.Context, conversation, uid string) error {
	res, err := d.db.ExecContext(ctx,
		`DELETE FROM sheets WHERE conversation = ? AND uid = ?`, conversation, uid)
	if err != nil {
		return fmt.Errorf("deleting sheet record: %w", err)
	}
	return affectedOrNotFound(res, uid)
}

func (d *Driver) PutTemplate(ctx context.Context, rec sheet.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling template record: %w", err)
	}

	query := `
	INSERT INTO templates (uid, record, seq)
	VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM templates))
	ON CONFLICT(uid) DO UPDATE SET record = excluded.record`

	_, err = d.db.ExecContext(ctx, query, rec.UID, string(payload))
	if err != nil {
		return fmt.Errorf("upserting template record: %w", err)
	}
	return nil
}

func (d *Driver) GetTemplate(ctx context.Context, uid string) (sheet.Record, error) {
	row := d.db.QueryRowContext(ctx, `SELECT record FROM templates WHERE uid = ?`, uid)
	return scanRecord(row, uid)
}

func (d *Driver) ListTemplates(ctx context.Context) ([]sheet.Record, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT record FROM templates ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying template records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (d *Driver) DeleteTemplate(ctx context.Context, uid string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM templates WHERE uid = ?`, uid)
	if err != nil {
		return fmt.Errorf("deleting template record: %w", err)
	}
	return affectedOrNotFound(res, uid)
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.db.Close()
}

func scanRecord(row *sql.Row, uid string) (sheet.Record, error) {
	var payload string
	err := row.Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return sheet.Record{}, registry.NotFoundError{UID: uid}
	}
	if err != nil {
		return sheet.Record{}, fmt.Errorf("scanning record: %w", err)
	}

	var rec sheet.Record
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return sheet.Record{}, fmt.Errorf("unmarshaling record: %w", err)
	}
	return rec, nil
}

func scanRecords(rows *sql.Rows) ([]sheet.Record, error) {
	var recs []sheet.Record
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		var rec sheet.Record
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("unmarshaling record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func affectedOrNotFound(res sql.Result, uid string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return registry.NotFoundError{UID: uid}
	}
	return nil
}
