// Package catalogsync imports dataset catalog files from a directory into
// the store and keeps them in sync while the directory changes.
package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/starford/pcfledger/internal/apperr"
	"github.com/starford/pcfledger/internal/checksum"
	"github.com/starford/pcfledger/internal/models"
	"github.com/starford/pcfledger/internal/parser"
	"github.com/starford/pcfledger/internal/sse"
	"github.com/starford/pcfledger/internal/storage"
	"github.com/starford/pcfledger/internal/store"
)

// Store is the persistence surface the importer needs.
type Store interface {
	CatalogChecksums(ctx context.Context) (map[string]string, error)
	ReplaceCatalogFile(ctx context.Context, path, sum string, datasets []models.Dataset) (store.CatalogChange, error)
	RemoveCatalogFile(ctx context.Context, path string) (store.CatalogChange, error)
}

// Syncer imports catalog files. Imports are serialized so the watcher and
// API writes never interleave on the same file.
type Syncer struct {
	db     Store
	files  storage.Provider
	logger *slog.Logger
	pub    sse.Publisher

	mu sync.Mutex
}

// New creates a Syncer. A nil publisher discards change notifications.
func New(db Store, files storage.Provider, logger *slog.Logger, pub sse.Publisher) *Syncer {
	if pub == nil {
		pub = sse.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{db: db, files: files, logger: logger, pub: pub}
}

// Summary counts the effect of a Sync pass.
type Summary struct {
	Imported int `json:"imported"`
	Removed  int `json:"removed"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Sync walks the catalog directory and brings the store up to date:
//   - new/changed files are parsed and imported
//   - files removed from disk have their datasets deleted
//
// A file that fails to parse keeps its previously imported datasets.
func (s *Syncer) Sync(ctx context.Context) (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum Summary
	metas, err := s.files.List("")
	if err != nil {
		return sum, err
	}
	known, err := s.db.CatalogChecksums(ctx)
	if err != nil {
		return sum, err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		if known[m.Path] == m.Checksum {
			sum.Skipped++
			continue
		}
		if err := s.importLocked(ctx, m.Path, known); err != nil {
			sum.Failed++
			s.logger.Warn("sync: import failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		sum.Imported++
	}

	for p := range known {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := s.removeLocked(ctx, p); err != nil {
			s.logger.Warn("sync: remove failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		sum.Removed++
	}

	s.logger.Info("sync: catalog synchronized",
		slog.Int("imported", sum.Imported),
		slog.Int("removed", sum.Removed),
		slog.Int("skipped", sum.Skipped),
		slog.Int("failed", sum.Failed))
	return sum, nil
}

// ImportFile (re)imports one catalog file. Unchanged files are skipped.
func (s *Syncer) ImportFile(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	known, err := s.db.CatalogChecksums(ctx)
	if err != nil {
		return err
	}
	return s.importLocked(ctx, path, known)
}

// RemoveFile deletes the datasets imported from path.
func (s *Syncer) RemoveFile(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(ctx, path)
}

func (s *Syncer) importLocked(ctx context.Context, path string, known map[string]string) error {
	data, err := s.files.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	sum := checksum.Sum(data)
	if known[path] == sum {
		return nil
	}

	res, err := parser.Parse(data)
	if err != nil {
		return fmt.Errorf("%w: %s", apperr.ErrInvalid, err.Error())
	}
	for _, w := range res.Warnings {
		s.logger.Warn("sync: catalog entry", slog.String("path", path), slog.String("warning", w))
	}

	change, err := s.db.ReplaceCatalogFile(ctx, path, sum, res.Datasets)
	if err != nil {
		return err
	}
	s.logger.Debug("sync: imported",
		slog.String("path", path),
		slog.Int("created", len(change.Created)),
		slog.Int("updated", len(change.Updated)),
		slog.Int("deleted", len(change.Deleted)))
	s.publish(change)
	return nil
}

func (s *Syncer) removeLocked(ctx context.Context, path string) error {
	change, err := s.db.RemoveCatalogFile(ctx, path)
	if err != nil {
		return err
	}
	s.logger.Debug("sync: removed", slog.String("path", path), slog.Int("deleted", len(change.Deleted)))
	s.publish(change)
	return nil
}

func (s *Syncer) publish(change store.CatalogChange) {
	emit := func(action string, ids []int64) {
		for _, id := range ids {
			s.pub.PublishChange(sse.Change{
				Resource:       "dataset",
				Action:         action,
				ID:             strconv.FormatInt(id, 10),
				AffectsResults: true,
			})
		}
	}
	emit("created", change.Created)
	emit("updated", change.Updated)
	emit("deleted", change.Deleted)
}
