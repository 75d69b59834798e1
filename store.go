package filevault

import (
	"context"
	"time"
)

// FileStore persists encrypted files. It never sees plaintext or key material.
// Records are scoped by owner: an id only resolves together with its owner.
type FileStore interface {
	// Store persists a payload as a new file owned by owner. tenant may be
	// empty for files outside any tenant.
	Store(ctx context.Context, owner, tenant, name string, payload *EncryptedPayload) (FileInfo, error)

	// List returns metadata for all files of owner, across tenants.
	// An owner without files yields an empty, non-nil slice.
	List(ctx context.Context, owner string) ([]FileInfo, error)

	// Retrieve returns the file with its payload.
	// Returns errors.ErrFileNotFound if owner has no such file.
	Retrieve(ctx context.Context, owner, id string) (*FileRecord, error)

	// Delete permanently removes the file.
	// Returns errors.ErrFileNotFound if owner has no such file.
	Delete(ctx context.Context, owner, id string) error

	// DeleteAll removes every record of owner, including records that can
	// no longer be decoded, and reports how many were removed.
	DeleteAll(ctx context.Context, owner string) (int, error)

	// Close releases any resources held by the store.
	Close() error
}

// FileInfo contains metadata about a stored file.
type FileInfo struct {
	// ID identifies the file within its owner's storage.
	ID string

	// Owner is the identity the file is encrypted for.
	Owner string

	// Tenant is the organization the file was uploaded under, if any.
	Tenant string

	// Name is the original file name supplied at upload.
	Name string

	// Size is the ciphertext size in bytes.
	Size int64

	// Uploaded is when the file was stored.
	Uploaded time.Time
}

// FileRecord is a stored file together with its encrypted payload.
type FileRecord struct {
	FileInfo

	Payload EncryptedPayload
}
