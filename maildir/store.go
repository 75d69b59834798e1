package maildir

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-maildir"
	"github.com/infodancer/filevault"
	"github.com/infodancer/filevault/errors"
)

// MaildirStore implements filevault.FileStore with one maildir per owner.
// Each encrypted file is a single maildir message holding an encoded record;
// the message's maildir key is the file ID.
type MaildirStore struct {
	basePath      string
	maildirSubdir string // optional subdirectory under each owner (e.g., "Vault")
	pathTemplate  string // optional path template for domain-aware storage

	// mu serializes operations that move messages between new/ and cur/.
	mu sync.Mutex
}

// NewStore creates a new MaildirStore with the given base path.
// The optional maildirSubdir specifies a subdirectory under each owner
// (e.g., "Vault" for paths like users/alice/Vault/).
// The optional pathTemplate transforms owner names using variables:
// {domain}, {localpart}, {email} (e.g., "{domain}/users/{localpart}").
func NewStore(basePath string, maildirSubdir string, pathTemplate string) *MaildirStore {
	return &MaildirStore{
		basePath:      basePath,
		maildirSubdir: maildirSubdir,
		pathTemplate:  pathTemplate,
	}
}

// splitEmail splits an email address into localpart and domain.
// If the email doesn't contain @, localpart is the entire input and domain is empty.
func splitEmail(email string) (localpart, domain string) {
	if idx := strings.LastIndex(email, "@"); idx >= 0 {
		return email[:idx], email[idx+1:]
	}
	return email, ""
}

// expandOwner applies the path template to transform an owner name.
// If no template is set, the owner is returned unchanged.
// Template variables: {domain}, {localpart}, {email}
func (s *MaildirStore) expandOwner(owner string) string {
	if s.pathTemplate == "" {
		return owner
	}
	localpart, domain := splitEmail(owner)
	result := s.pathTemplate
	result = strings.ReplaceAll(result, "{domain}", domain)
	result = strings.ReplaceAll(result, "{localpart}", localpart)
	result = strings.ReplaceAll(result, "{email}", owner)
	return result
}

// ownerPath returns the filesystem path of an owner's maildir.
// Returns an error if the resulting path would escape the base directory.
func (s *MaildirStore) ownerPath(owner string) (string, error) {
	expanded := s.expandOwner(owner)

	var candidate string
	if s.maildirSubdir != "" {
		candidate = filepath.Join(s.basePath, expanded, s.maildirSubdir)
	} else {
		candidate = filepath.Join(s.basePath, expanded)
	}

	cleanBase := filepath.Clean(s.basePath)
	cleanCandidate := filepath.Clean(candidate)

	// Add separator to prevent prefix matching (e.g., /base-other matching /base)
	if cleanCandidate == cleanBase ||
		!strings.HasPrefix(cleanCandidate+string(filepath.Separator), cleanBase+string(filepath.Separator)) {
		return "", errors.ErrPathTraversal
	}

	return cleanCandidate, nil
}

// ensureMaildir ensures the owner's maildir exists, creating it if necessary.
func (s *MaildirStore) ensureMaildir(owner string) (*Maildir, error) {
	path, err := s.ownerPath(owner)
	if err != nil {
		return nil, err
	}

	md := New(path)
	if !md.Exists() {
		// Create makes parent directories too (needed when maildirSubdir is set)
		if err := md.Create(); err != nil {
			return nil, err
		}
	}
	return md, nil
}

// existingDir returns the owner's maildir, or ok=false if it was never created.
func (s *MaildirStore) existingDir(owner string) (dir maildir.Dir, ok bool, err error) {
	path, err := s.ownerPath(owner)
	if err != nil {
		return "", false, err
	}
	md := New(path)
	if !md.Exists() {
		return "", false, nil
	}
	return maildir.Dir(md.Path()), true, nil
}

// Store implements filevault.FileStore.
func (s *MaildirStore) Store(ctx context.Context, owner, tenant, name string, payload *filevault.EncryptedPayload) (filevault.FileInfo, error) {
	if payload == nil {
		return filevault.FileInfo{}, errors.ErrMalformedPayload
	}

	md, err := s.ensureMaildir(owner)
	if err != nil {
		return filevault.FileInfo{}, err
	}

	uploaded := time.Now().UTC()
	data, err := encodeRecord(name, tenant, uploaded, payload)
	if err != nil {
		return filevault.FileInfo{}, err
	}

	key, err := md.Deliver(bytes.NewReader(data))
	if err != nil {
		return filevault.FileInfo{}, err
	}

	return filevault.FileInfo{
		ID:       key,
		Owner:    owner,
		Tenant:   tenant,
		Name:     name,
		Size:     int64(len(payload.Ciphertext)),
		Uploaded: uploaded,
	}, nil
}

// List implements filevault.FileStore. Files are ordered by upload time.
// An owner that never stored anything has no files.
func (s *MaildirStore) List(ctx context.Context, owner string) ([]filevault.FileInfo, error) {
	dir, ok, err := s.existingDir(owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []filevault.FileInfo{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Unseen() moves freshly delivered records from new/ to cur/
	if _, err := dir.Unseen(); err != nil {
		return nil, err
	}
	msgs, err := dir.Messages()
	if err != nil {
		return nil, err
	}

	files := make([]filevault.FileInfo, 0, len(msgs))
	for _, msg := range msgs {
		rec, err := readRecord(msg)
		if err != nil {
			continue // Skip records that vanished or cannot be decoded
		}
		files = append(files, filevault.FileInfo{
			ID:       msg.Key(),
			Owner:    owner,
			Tenant:   rec.tenant,
			Name:     rec.name,
			Size:     int64(len(rec.payload.Ciphertext)),
			Uploaded: rec.uploaded,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].Uploaded.Equal(files[j].Uploaded) {
			return files[i].ID < files[j].ID
		}
		return files[i].Uploaded.Before(files[j].Uploaded)
	})
	return files, nil
}

// Retrieve implements filevault.FileStore.
func (s *MaildirStore) Retrieve(ctx context.Context, owner, id string) (*filevault.FileRecord, error) {
	msg, err := s.lookup(owner, id)
	if err != nil {
		return nil, err
	}

	rec, err := readRecord(msg)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrFileNotFound
		}
		return nil, err
	}

	return &filevault.FileRecord{
		FileInfo: filevault.FileInfo{
			ID:       id,
			Owner:    owner,
			Tenant:   rec.tenant,
			Name:     rec.name,
			Size:     int64(len(rec.payload.Ciphertext)),
			Uploaded: rec.uploaded,
		},
		Payload: rec.payload,
	}, nil
}

// Delete implements filevault.FileStore.
func (s *MaildirStore) Delete(ctx context.Context, owner, id string) error {
	msg, err := s.lookup(owner, id)
	if err != nil {
		return err
	}
	if err := msg.Remove(); err != nil {
		if os.IsNotExist(err) {
			return errors.ErrFileNotFound
		}
		return err
	}
	return nil
}

// DeleteAll implements filevault.FileStore by removing the owner's whole
// maildir, so records that fail to decode go as well.
func (s *MaildirStore) DeleteAll(ctx context.Context, owner string) (int, error) {
	path, err := s.ownerPath(owner)
	if err != nil {
		return 0, err
	}
	md := New(path)
	if !md.Exists() {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := md.Count()
	if err != nil {
		return 0, err
	}
	if err := os.RemoveAll(md.Path()); err != nil {
		return 0, err
	}
	return n, nil
}

// Close releases any resources held by the store.
func (s *MaildirStore) Close() error {
	return nil
}

func (s *MaildirStore) lookup(owner, id string) (*maildir.Message, error) {
	if !validKey(id) {
		return nil, errors.ErrFileNotFound
	}

	dir, ok, err := s.existingDir(owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.ErrFileNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := dir.Unseen(); err != nil {
		return nil, err
	}
	msg, err := dir.MessageByKey(id)
	if err != nil {
		return nil, errors.ErrFileNotFound
	}
	return msg, nil
}

func readRecord(msg *maildir.Message) (*record, error) {
	rc, err := msg.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return decodeRecord(data)
}

// Compile-time interface verification.
var _ filevault.FileStore = (*MaildirStore)(nil)
