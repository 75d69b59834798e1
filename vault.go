package filevault

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/infodancer/filevault/errors"
)

// DefaultMaxUploadSize is the default upload ceiling (16 MiB).
const DefaultMaxUploadSize = 16 << 20

// Activity actions recorded by the Vault.
const (
	ActionCreateIdentity  = "identity.create"
	ActionDestroyIdentity = "identity.destroy"
	ActionUpload          = "file.upload"
	ActionDownload        = "file.download"
	ActionShare           = "file.share"
	ActionDelete          = "file.delete"
)

// Activity is one audit entry describing a vault operation.
type Activity struct {
	Timestamp time.Time `json:"ts"`
	Owner     string    `json:"owner"`
	Tenant    string    `json:"tenant,omitempty"`
	Action    string    `json:"action"`
	FileID    string    `json:"file_id,omitempty"`
	FileName  string    `json:"file_name,omitempty"`
	Target    string    `json:"target,omitempty"` // recipient for shares
}

// Recorder receives an Activity for every successful vault operation.
type Recorder interface {
	Record(activity Activity) error
}

// Vault ties identity keys and encrypted file storage together.
// Files are encrypted for their owner's public key on upload and decrypted
// with the owner's private key, opened from its sealed form, on download.
type Vault struct {
	keys  KeyStore
	files FileStore

	logger        *zap.Logger
	recorder      Recorder
	maxUploadSize int64
	tenant        string
	allowedExts   map[string]bool // nil allows every extension
}

// Option configures a Vault.
type Option func(*Vault)

// WithLogger sets the structured logger. Key material is never logged.
func WithLogger(logger *zap.Logger) Option {
	return func(v *Vault) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithMaxUploadSize sets the largest accepted upload in bytes.
func WithMaxUploadSize(n int64) Option {
	return func(v *Vault) {
		if n > 0 {
			v.maxUploadSize = n
		}
	}
}

// WithTenant scopes the Vault to one tenant. Uploads and shares are tagged
// with it, and files of other tenants are invisible: List skips them and
// Download, Share and Delete report errors.ErrFileNotFound.
func WithTenant(tenant string) Option {
	return func(v *Vault) {
		v.tenant = strings.TrimSpace(tenant)
	}
}

// WithAllowedExtensions restricts uploads to file names with one of the
// given extensions, compared case-insensitively with or without the dot.
// Other uploads fail with errors.ErrFileTypeNotAllowed. No extensions
// means no restriction.
func WithAllowedExtensions(exts ...string) Option {
	return func(v *Vault) {
		v.allowedExts = nil
		for _, ext := range exts {
			ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
			if ext == "" {
				continue
			}
			if v.allowedExts == nil {
				v.allowedExts = make(map[string]bool)
			}
			v.allowedExts[ext] = true
		}
	}
}

// WithRecorder sets the activity recorder.
func WithRecorder(r Recorder) Option {
	return func(v *Vault) {
		v.recorder = r
	}
}

// New creates a Vault over the given key and file stores.
func New(keys KeyStore, files FileStore, opts ...Option) *Vault {
	v := &Vault{
		keys:          keys,
		files:         files,
		logger:        zap.NewNop(),
		maxUploadSize: DefaultMaxUploadSize,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// CreateIdentity generates a key pair for owner and stores it with the
// private key sealed under passphrase.
func (v *Vault) CreateIdentity(ctx context.Context, owner, passphrase string) error {
	if err := validOwner(owner); err != nil {
		return err
	}
	if passphrase == "" {
		return errors.ErrPassphraseRequired
	}

	pair, err := GenerateKeyPair()
	if err != nil {
		return err
	}
	defer clear(pair.PrivateKey)

	sealed, err := SealPrivateKey(pair.PrivateKey, passphrase)
	if err != nil {
		return fmt.Errorf("seal private key: %w", err)
	}

	if err := v.keys.PutKeys(ctx, owner, pair.PublicKey, sealed); err != nil {
		return fmt.Errorf("store keys for %s: %w", owner, err)
	}

	v.logger.Info("identity created", zap.String("owner", owner))
	v.record(Activity{Owner: owner, Action: ActionCreateIdentity})
	return nil
}

// DestroyIdentity removes every file owned by owner and then the key pair.
// Files encrypted for the identity become unrecoverable.
func (v *Vault) DestroyIdentity(ctx context.Context, owner string) error {
	if err := validOwner(owner); err != nil {
		return err
	}

	// Every record goes, including ones of other tenants and ones that
	// no longer decode.
	removed, err := v.files.DeleteAll(ctx, owner)
	if err != nil {
		return fmt.Errorf("delete files of %s: %w", owner, err)
	}

	if err := v.keys.DeleteKeys(ctx, owner); err != nil {
		return fmt.Errorf("delete keys of %s: %w", owner, err)
	}

	v.logger.Info("identity destroyed", zap.String("owner", owner), zap.Int("files", removed))
	v.record(Activity{Owner: owner, Action: ActionDestroyIdentity})
	return nil
}

// PublicKey returns the owner's PEM public key.
func (v *Vault) PublicKey(ctx context.Context, owner string) ([]byte, error) {
	if err := validOwner(owner); err != nil {
		return nil, err
	}
	return v.keys.GetPublicKey(ctx, owner)
}

// Upload encrypts content for owner and stores it under name.
// Returns errors.ErrUploadTooLarge if content exceeds the upload ceiling and
// errors.ErrFileTypeNotAllowed if name fails the extension allow-list.
func (v *Vault) Upload(ctx context.Context, owner, name string, content io.Reader) (FileInfo, error) {
	if err := validOwner(owner); err != nil {
		return FileInfo{}, err
	}
	if err := v.checkExtension(name); err != nil {
		return FileInfo{}, err
	}

	// Read one byte past the limit to detect oversized uploads.
	data, err := io.ReadAll(io.LimitReader(content, v.maxUploadSize+1))
	if err != nil {
		return FileInfo{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > v.maxUploadSize {
		return FileInfo{}, errors.ErrUploadTooLarge
	}

	info, err := v.encryptAndStore(ctx, owner, name, data)
	clear(data)
	if err != nil {
		return FileInfo{}, err
	}

	v.logger.Info("file uploaded",
		zap.String("owner", owner),
		zap.String("file_id", info.ID),
		zap.Int64("size", info.Size),
	)
	v.record(Activity{Owner: owner, Action: ActionUpload, FileID: info.ID, FileName: info.Name})
	return info, nil
}

// Download decrypts one of owner's files. Any failure to decrypt is reported
// as errors.ErrDecryptFailed regardless of its cause.
func (v *Vault) Download(ctx context.Context, owner, passphrase, id string) ([]byte, FileInfo, error) {
	if err := validOwner(owner); err != nil {
		return nil, FileInfo{}, err
	}

	record, err := v.retrieve(ctx, owner, id)
	if err != nil {
		return nil, FileInfo{}, err
	}

	plaintext, err := v.decrypt(ctx, owner, passphrase, record)
	if err != nil {
		v.logger.Warn("download failed", zap.String("owner", owner), zap.String("file_id", id), zap.Error(err))
		return nil, FileInfo{}, err
	}

	v.logger.Info("file downloaded", zap.String("owner", owner), zap.String("file_id", id))
	v.record(Activity{Owner: owner, Action: ActionDownload, FileID: id, FileName: record.Name})
	return plaintext, record.FileInfo, nil
}

// Share gives recipient its own copy of one of owner's files. The content is
// decrypted with owner's key and encrypted afresh for recipient's public key;
// the original record is left untouched.
func (v *Vault) Share(ctx context.Context, owner, passphrase, id, recipient string) (FileInfo, error) {
	if err := validOwner(owner); err != nil {
		return FileInfo{}, err
	}
	if err := validOwner(recipient); err != nil {
		return FileInfo{}, err
	}

	record, err := v.retrieve(ctx, owner, id)
	if err != nil {
		return FileInfo{}, err
	}

	plaintext, err := v.decrypt(ctx, owner, passphrase, record)
	if err != nil {
		return FileInfo{}, err
	}
	defer clear(plaintext)

	info, err := v.encryptAndStore(ctx, recipient, record.Name, plaintext)
	if err != nil {
		return FileInfo{}, err
	}

	v.logger.Info("file shared",
		zap.String("owner", owner),
		zap.String("file_id", id),
		zap.String("recipient", recipient),
		zap.String("recipient_file_id", info.ID),
	)
	v.record(Activity{Owner: owner, Action: ActionShare, FileID: id, FileName: record.Name, Target: recipient})
	return info, nil
}

// List returns metadata for owner's files in the Vault's tenant, or for all
// of owner's files when the Vault has no tenant.
func (v *Vault) List(ctx context.Context, owner string) ([]FileInfo, error) {
	if err := validOwner(owner); err != nil {
		return nil, err
	}
	files, err := v.files.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	if v.tenant == "" {
		return files, nil
	}

	scoped := make([]FileInfo, 0, len(files))
	for _, f := range files {
		if f.Tenant == v.tenant {
			scoped = append(scoped, f)
		}
	}
	return scoped, nil
}

// Delete removes one of owner's files.
func (v *Vault) Delete(ctx context.Context, owner, id string) error {
	if err := validOwner(owner); err != nil {
		return err
	}
	if v.tenant != "" {
		if _, err := v.retrieve(ctx, owner, id); err != nil {
			return err
		}
	}
	if err := v.files.Delete(ctx, owner, id); err != nil {
		return err
	}

	v.logger.Info("file deleted", zap.String("owner", owner), zap.String("file_id", id))
	v.record(Activity{Owner: owner, Action: ActionDelete, FileID: id})
	return nil
}

func (v *Vault) encryptAndStore(ctx context.Context, owner, name string, data []byte) (FileInfo, error) {
	pubKey, err := v.keys.GetPublicKey(ctx, owner)
	if err != nil {
		return FileInfo{}, fmt.Errorf("public key for %s: %w", owner, err)
	}

	payload, err := Encrypt(data, pubKey)
	if err != nil {
		return FileInfo{}, fmt.Errorf("encrypt for %s: %w", owner, err)
	}

	info, err := v.files.Store(ctx, owner, v.tenant, name, payload)
	if err != nil {
		return FileInfo{}, fmt.Errorf("store file for %s: %w", owner, err)
	}
	return info, nil
}

// retrieve loads one of owner's files, hiding files of other tenants.
func (v *Vault) retrieve(ctx context.Context, owner, id string) (*FileRecord, error) {
	record, err := v.files.Retrieve(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if v.tenant != "" && record.Tenant != v.tenant {
		return nil, errors.ErrFileNotFound
	}
	return record, nil
}

func (v *Vault) checkExtension(name string) error {
	if v.allowedExts == nil {
		return nil
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if !v.allowedExts[ext] {
		return fmt.Errorf("%w: %q", errors.ErrFileTypeNotAllowed, name)
	}
	return nil
}

func (v *Vault) decrypt(ctx context.Context, owner, passphrase string, record *FileRecord) ([]byte, error) {
	sealed, err := v.keys.GetSealedPrivateKey(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("private key for %s: %w", owner, err)
	}

	privKey, err := OpenPrivateKey(sealed, passphrase)
	if err != nil {
		return nil, errors.Opaque(err)
	}
	defer clear(privKey)

	plaintext, err := Decrypt(&record.Payload, privKey)
	if err != nil {
		return nil, errors.Opaque(err)
	}
	return plaintext, nil
}

func (v *Vault) record(activity Activity) {
	if v.recorder == nil {
		return
	}
	activity.Tenant = v.tenant
	if activity.Timestamp.IsZero() {
		activity.Timestamp = time.Now().UTC()
	}
	// Operations do not fail because auditing failed.
	if err := v.recorder.Record(activity); err != nil {
		v.logger.Warn("activity not recorded", zap.String("action", activity.Action), zap.Error(err))
	}
}

func validOwner(owner string) error {
	if strings.TrimSpace(owner) == "" {
		return errors.ErrInvalidOwner
	}
	return nil
}
