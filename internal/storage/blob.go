// Package storage is the blob store for confirmation documents.  Blobs are
// plain files under a root directory, named <uuid>_<original name>.
package storage

import (
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "unicode/utf8"

    "github.com/google/uuid"
)

// maxNameBytes caps the client part of a reference so that
// "<uuid>_<name>" fits the 255 character document_ref column.
const maxNameBytes = 200

// ErrBlobNotFound is returned by Retrieve for unknown references.
var ErrBlobNotFound = errors.New("blob not found")

// FileStore writes blobs below root.
type FileStore struct {
    root string
}

// NewFileStore creates root if needed and returns a store for it.
func NewFileStore(root string) (*FileStore, error) {
    if err := os.MkdirAll(root, 0o755); err != nil {
        return nil, fmt.Errorf("create upload dir: %w", err)
    }
    return &FileStore{root: root}, nil
}

// Store writes data under a fresh name and returns the reference.  Only the
// base name of suggestedName is kept, so a client cannot choose the
// directory.
func (s *FileStore) Store(data []byte, suggestedName string) (string, error) {
    ref := uuid.NewString() + "_" + sanitizeName(suggestedName)
    if err := os.WriteFile(filepath.Join(s.root, ref), data, 0o644); err != nil {
        return "", fmt.Errorf("write blob: %w", err)
    }
    return ref, nil
}

// Retrieve reads a blob.  References that are not plain file names are
// treated as unknown.
func (s *FileStore) Retrieve(ref string) ([]byte, error) {
    if !validRef(ref) {
        return nil, ErrBlobNotFound
    }
    data, err := os.ReadFile(filepath.Join(s.root, ref))
    if errors.Is(err, os.ErrNotExist) {
        return nil, ErrBlobNotFound
    }
    return data, err
}

// Remove deletes a blob.  Removing an unknown reference is not an error.
func (s *FileStore) Remove(ref string) error {
    if !validRef(ref) {
        return nil
    }
    err := os.Remove(filepath.Join(s.root, ref))
    if err != nil && !errors.Is(err, os.ErrNotExist) {
        return fmt.Errorf("remove blob: %w", err)
    }
    return nil
}

func validRef(ref string) bool {
    return ref != "" && ref == filepath.Base(ref) && ref != "." && ref != ".."
}

func sanitizeName(name string) string {
    name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
    name = strings.Map(func(r rune) rune {
        if r < 0x20 || r == '/' || r == ':' {
            return '_'
        }
        return r
    }, name)
    if name == "." || name == ".." || name == "/" || name == "" {
        return "document"
    }
    return truncateName(name, maxNameBytes)
}

// truncateName shortens name to at most limit bytes, keeping a short
// extension and never splitting a UTF-8 sequence.
func truncateName(name string, limit int) string {
    if len(name) <= limit {
        return name
    }
    ext := filepath.Ext(name)
    if len(ext) > 16 {
        ext = ""
    }
    stem := name[:len(name)-len(ext)]
    n := limit - len(ext)
    for n > 0 && !utf8.RuneStart(stem[n]) {
        n--
    }
    return stem[:n] + ext
}
