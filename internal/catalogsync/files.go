package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/starford/pcfledger/internal/apperr"
	"github.com/starford/pcfledger/internal/parser"
	"github.com/starford/pcfledger/internal/storage"
)

// Files lists the catalog files currently on disk.
func (s *Syncer) Files() ([]storage.FileInfo, error) {
	files, err := s.files.List("")
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []storage.FileInfo{}
	}
	return files, nil
}

// WriteFile validates content as a catalog file, stores it under path and
// imports it right away. Content that does not parse is rejected with
// apperr.ErrInvalid and nothing is written.
func (s *Syncer) WriteFile(ctx context.Context, path string, content []byte) (*parser.Result, error) {
	if !storage.IsCatalogFile(path) {
		return nil, fmt.Errorf("%w: catalog files must end in .yaml, .yml or .json", apperr.ErrInvalid)
	}
	res, err := parser.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperr.ErrInvalid, err.Error())
	}
	if err := s.files.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.ImportFile(ctx, path); err != nil {
		return nil, err
	}
	return res, nil
}

// DeleteFile removes a catalog file and the datasets imported from it.
func (s *Syncer) DeleteFile(ctx context.Context, path string) error {
	if err := s.files.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	return s.RemoveFile(ctx, path)
}
