// Package storage defines the catalog directory file-system abstraction.
package storage

import (
	"path/filepath"
	"strings"
	"time"
)

// FileInfo describes one catalog file on disk.
type FileInfo struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Provider is the interface for catalog file operations. All paths are
// relative to the catalog root.
type Provider interface {
	// List returns metadata for every catalog file (.yaml, .yml, .json) under dir.
	List(dir string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}

// IsCatalogFile reports whether name has a supported catalog extension and
// is not a hidden or temporary file.
func IsCatalogFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
