package crossnet

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// SQLiteMetadataStore keeps cross section metadata in a sqlite database
type SQLiteMetadataStore struct {
	*sql.DB
}

func NewSQLiteMetadataStore(path string) (*SQLiteMetadataStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open metadata database")
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS cross_section_metadata (
			cross_section_id  BIGINT PRIMARY KEY,
			name              TEXT NOT NULL DEFAULT '',
			hard_shoulder     BOOLEAN NOT NULL DEFAULT 0,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "Can't prepare metadata schema")
	}

	// Background metadata loads share one connection
	db.SetMaxOpenConns(1)
	return &SQLiteMetadataStore{db}, nil
}

func (db *SQLiteMetadataStore) LoadMetadata(ctx context.Context, id CrossSectionID) (Metadata, error) {
	var md Metadata
	err := db.QueryRowContext(ctx,
		`SELECT name, hard_shoulder FROM cross_section_metadata WHERE cross_section_id = ?`,
		int64(id),
	).Scan(&md.Name, &md.HardShoulder)
	if err == sql.ErrNoRows {
		return Metadata{}, notFoundf("No metadata for cross section %d", id)
	}
	if err != nil {
		return Metadata{}, errors.Wrapf(err, "Can't load metadata of cross section %d", id)
	}
	return md, nil
}

func (db *SQLiteMetadataStore) SaveMetadata(ctx context.Context, id CrossSectionID, md Metadata) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO cross_section_metadata (cross_section_id, name, hard_shoulder)
		VALUES (?, ?, ?)
		ON CONFLICT(cross_section_id) DO UPDATE SET
			name = excluded.name,
			hard_shoulder = excluded.hard_shoulder,
			timestamp = CURRENT_TIMESTAMP
	`, int64(id), md.Name, md.HardShoulder)
	if err != nil {
		return errors.Wrapf(err, "Can't save metadata of cross section %d", id)
	}
	return nil
}

func (db *SQLiteMetadataStore) DeleteMetadata(ctx context.Context, id CrossSectionID) error {
	_, err := db.ExecContext(ctx, `DELETE FROM cross_section_metadata WHERE cross_section_id = ?`, int64(id))
	if err != nil {
		return errors.Wrapf(err, "Can't delete metadata of cross section %d", id)
	}
	return nil
}
