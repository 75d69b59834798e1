package maildir

import (
	"io"
	"os"
	"path/filepath"

	"github.com/infodancer/filevault/errors"
)

// Maildir represents a single maildir directory.
type Maildir struct {
	path string
}

// New creates a Maildir instance for the given path.
// It does not create the directory; use Create() for that.
func New(path string) *Maildir {
	return &Maildir{path: path}
}

// Path returns the maildir path.
func (m *Maildir) Path() string {
	return m.path
}

// Create creates the maildir directory structure (new, cur, tmp).
func (m *Maildir) Create() error {
	for _, dir := range m.subdirs() {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}
	return nil
}

// Exists checks if the maildir exists and has the required structure.
func (m *Maildir) Exists() bool {
	for _, dir := range m.subdirs() {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return false
		}
	}
	return true
}

// Count returns the number of delivered messages in new/ and cur/,
// whether or not they can be parsed.
func (m *Maildir) Count() (int, error) {
	n := 0
	for _, sub := range []string{"new", "cur"} {
		entries, err := os.ReadDir(filepath.Join(m.path, sub))
		if err != nil {
			return 0, err
		}
		for _, e := range entries {
			if e.Type().IsRegular() {
				n++
			}
		}
	}
	return n, nil
}

func (m *Maildir) subdirs() []string {
	return []string{
		filepath.Join(m.path, "new"),
		filepath.Join(m.path, "cur"),
		filepath.Join(m.path, "tmp"),
	}
}

// Deliver writes a record to the maildir using the safe delivery process:
// tmp/ first, then an atomic rename into new/. It returns the file name,
// which is also the record's maildir key.
func (m *Maildir) Deliver(record io.Reader) (string, error) {
	if !m.Exists() {
		return "", errors.ErrMaildirNotFound
	}

	filename := generateFilename()
	tmpPath := filepath.Join(m.path, "tmp", filename)
	newPath := filepath.Join(m.path, "new", filename)

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", err
	}

	_, err = io.Copy(f, record)
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}

	if err := os.Rename(tmpPath, newPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}

	return filename, nil
}
