// Package storage persists version artifacts outside the relational store,
// keyed by (extensionID, versionNumber). The lifecycle services depend on
// the Store interface only; DiskStore is the filesystem implementation.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Fetch when no artifact exists under the key.
var ErrNotFound = errors.New("artifact not found")

// File is a fetched artifact with the metadata a download response needs.
type File struct {
	Content     []byte
	ContentType string
	Name        string
}

// Store saves, fetches, deletes, and sizes version artifacts. Save returns a
// storage locator (implementation-defined, e.g. a file path). Delete reports
// false when there was nothing to delete; Size reports 0 when absent.
type Store interface {
	Save(extensionID uuid.UUID, versionNumber string, content io.Reader) (string, error)
	Fetch(extensionID uuid.UUID, versionNumber string) (*File, error)
	Delete(extensionID uuid.UUID, versionNumber string) (bool, error)
	Size(extensionID uuid.UUID, versionNumber string) (int64, error)
}

// DiskStore keeps artifacts under basePath/{extensionID}/{versionNumber}.zip.
type DiskStore struct {
	basePath string
}

var _ Store = (*DiskStore)(nil)

// NewDiskStore creates the base directory if needed.
func NewDiskStore(basePath string) (*DiskStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &DiskStore{basePath: basePath}, nil
}

func (d *DiskStore) extensionDir(extensionID uuid.UUID) string {
	return filepath.Join(d.basePath, extensionID.String())
}

func (d *DiskStore) artifactPath(extensionID uuid.UUID, versionNumber string) string {
	return filepath.Join(d.extensionDir(extensionID), versionNumber+".zip")
}

// Save writes the artifact, creating the per-extension directory on first
// upload. An existing artifact under the same key is overwritten.
func (d *DiskStore) Save(extensionID uuid.UUID, versionNumber string, content io.Reader) (string, error) {
	dir := d.extensionDir(extensionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create extension directory: %w", err)
	}

	path := d.artifactPath(extensionID, versionNumber)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create artifact file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, content); err != nil {
		return "", fmt.Errorf("write artifact file: %w", err)
	}
	return path, nil
}

// Fetch reads the artifact back with its download metadata.
func (d *DiskStore) Fetch(extensionID uuid.UUID, versionNumber string) (*File, error) {
	content, err := os.ReadFile(d.artifactPath(extensionID, versionNumber))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("artifact %s/%s: %w", extensionID, versionNumber, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact file: %w", err)
	}
	return &File{
		Content:     content,
		ContentType: "application/zip",
		Name:        fmt.Sprintf("%s_%s.zip", extensionID, versionNumber),
	}, nil
}

// Delete removes the artifact and prunes the extension directory once it is
// empty. Deleting an absent artifact is not an error.
func (d *DiskStore) Delete(extensionID uuid.UUID, versionNumber string) (bool, error) {
	path := d.artifactPath(extensionID, versionNumber)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		return false, fmt.Errorf("delete artifact file: %w", err)
	}

	dir := d.extensionDir(extensionID)
	entries, err := os.ReadDir(dir)
	if err == nil && len(entries) == 0 {
		// Ignore the error: a concurrent upload may have recreated content.
		_ = os.Remove(dir)
	}
	return true, nil
}

// Size reports the artifact size in bytes, 0 when absent.
func (d *DiskStore) Size(extensionID uuid.UUID, versionNumber string) (int64, error) {
	info, err := os.Stat(d.artifactPath(extensionID, versionNumber))
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("stat artifact file: %w", err)
	}
	return info.Size(), nil
}
