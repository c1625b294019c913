package devconfig

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gridosc/internal/device"
	"github.com/nerrad567/gridosc/internal/infrastructure/database"
)

// SQLiteStore keeps records in the device_config table. The schema comes
// from the embedded migrations and must be applied before use.
type SQLiteStore struct {
	db *database.DB
}

// NewSQLiteStore returns a store backed by db.
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Read loads the record for serial. A missing row returns ErrNotFound.
func (s *SQLiteStore) Read(ctx context.Context, serial string) (Record, error) {
	if err := validSerial(serial); err != nil {
		return Record{}, err
	}

	var rec Record
	var rotation int
	err := s.db.QueryRowContext(ctx, `
		SELECT prefix, host, port, server_port, rotation
		FROM device_config
		WHERE serial = ?`, serial,
	).Scan(&rec.Prefix, &rec.Host, &rec.Port, &rec.ServerPort, &rotation)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, serial)
	}
	if err != nil {
		return Record{}, fmt.Errorf("querying device config: %w", err)
	}

	rec.Rotation = device.Rotation(rotation)
	return normalize(rec)
}

// Write inserts or replaces the record for serial.
func (s *SQLiteStore) Write(ctx context.Context, serial string, rec Record) error {
	if err := validSerial(serial); err != nil {
		return err
	}
	rec = rec.WithDefaults()
	if err := rec.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO device_config (serial, prefix, host, port, server_port, rotation, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(serial) DO UPDATE SET
			prefix = excluded.prefix,
			host = excluded.host,
			port = excluded.port,
			server_port = excluded.server_port,
			rotation = excluded.rotation,
			updated_at = excluded.updated_at`,
		serial, rec.Prefix, rec.Host, rec.Port, rec.ServerPort, int(rec.Rotation),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("writing device config: %w", err)
	}
	return nil
}
