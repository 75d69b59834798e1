// Package sqlite provides a single-file SQLite backend implementing both
// filevault.KeyStore and filevault.FileStore.
//
// It registers itself under the name "sqlite" in both registries. Import it
// with a blank identifier to enable it:
//
//	import _ "github.com/infodancer/filevault/sqlite"
package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/infodancer/filevault"
	"github.com/infodancer/filevault/errors"
)

// Store keeps identities and encrypted files in one SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at path and ensures the schema.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS identities (
		owner TEXT PRIMARY KEY,
		public_key BLOB NOT NULL,
		private_key BLOB NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS files (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		tenant TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		ciphertext BLOB NOT NULL,
		wrapped_key BLOB NOT NULL,
		iv BLOB NOT NULL,
		uploaded_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_files_owner ON files(owner, uploaded_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutKeys implements filevault.KeyStore.
func (s *Store) PutKeys(ctx context.Context, owner string, publicKey, sealedPrivateKey []byte) error {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO identities (owner, public_key, private_key, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner) DO NOTHING`,
		owner, publicKey, sealedPrivateKey, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert identity: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.ErrIdentityExists
	}
	return nil
}

// GetPublicKey implements filevault.KeyStore.
func (s *Store) GetPublicKey(ctx context.Context, owner string) ([]byte, error) {
	return s.identityColumn(ctx, "public_key", owner)
}

// GetSealedPrivateKey implements filevault.KeyStore.
func (s *Store) GetSealedPrivateKey(ctx context.Context, owner string) ([]byte, error) {
	return s.identityColumn(ctx, "private_key", owner)
}

// identityColumn reads one key column; column is never caller-supplied.
func (s *Store) identityColumn(ctx context.Context, column, owner string) ([]byte, error) {
	var key []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT "+column+" FROM identities WHERE owner = ?", owner,
	).Scan(&key)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.ErrIdentityNotFound
	}
	if err != nil {
		return nil, err
	}
	return key, nil
}

// DeleteKeys implements filevault.KeyStore.
func (s *Store) DeleteKeys(ctx context.Context, owner string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM identities WHERE owner = ?", owner)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.ErrIdentityNotFound
	}
	return nil
}

// Store implements filevault.FileStore.
func (s *Store) Store(ctx context.Context, owner, tenant, name string, payload *filevault.EncryptedPayload) (filevault.FileInfo, error) {
	if payload == nil {
		return filevault.FileInfo{}, errors.ErrMalformedPayload
	}

	info := filevault.FileInfo{
		ID:       uuid.NewString(),
		Owner:    owner,
		Tenant:   tenant,
		Name:     name,
		Size:     int64(len(payload.Ciphertext)),
		Uploaded: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (id, owner, tenant, name, ciphertext, wrapped_key, iv, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		info.ID, owner, tenant, name, payload.Ciphertext, payload.WrappedKey, payload.IV, info.Uploaded.UnixNano(),
	)
	if err != nil {
		return filevault.FileInfo{}, fmt.Errorf("insert file: %w", err)
	}
	return info, nil
}

// List implements filevault.FileStore. Files are ordered by upload time.
func (s *Store) List(ctx context.Context, owner string) ([]filevault.FileInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant, name, length(ciphertext), uploaded_at
		FROM files WHERE owner = ? ORDER BY uploaded_at, id`, owner)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	files := []filevault.FileInfo{}
	for rows.Next() {
		var (
			info     filevault.FileInfo
			uploaded int64
		)
		if err := rows.Scan(&info.ID, &info.Tenant, &info.Name, &info.Size, &uploaded); err != nil {
			return nil, err
		}
		info.Owner = owner
		info.Uploaded = time.Unix(0, uploaded).UTC()
		files = append(files, info)
	}
	return files, rows.Err()
}

// Retrieve implements filevault.FileStore.
func (s *Store) Retrieve(ctx context.Context, owner, id string) (*filevault.FileRecord, error) {
	var (
		rec      filevault.FileRecord
		uploaded int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT tenant, name, ciphertext, wrapped_key, iv, uploaded_at
		FROM files WHERE id = ? AND owner = ?`, id, owner,
	).Scan(&rec.Tenant, &rec.Name, &rec.Payload.Ciphertext, &rec.Payload.WrappedKey, &rec.Payload.IV, &uploaded)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}

	rec.ID = id
	rec.Owner = owner
	rec.Size = int64(len(rec.Payload.Ciphertext))
	rec.Uploaded = time.Unix(0, uploaded).UTC()
	return &rec, nil
}

// Delete implements filevault.FileStore.
func (s *Store) Delete(ctx context.Context, owner, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM files WHERE id = ? AND owner = ?", id, owner)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.ErrFileNotFound
	}
	return nil
}

// DeleteAll implements filevault.FileStore.
func (s *Store) DeleteAll(ctx context.Context, owner string) (int, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM files WHERE owner = ?", owner)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// Compile-time interface verification.
var (
	_ filevault.KeyStore  = (*Store)(nil)
	_ filevault.FileStore = (*Store)(nil)
)
