package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/deppfellow/shortlink-edge/internal/errs"
	"github.com/deppfellow/shortlink-edge/internal/kv"
	"github.com/deppfellow/shortlink-edge/internal/repository"
)

// AssetService serves and seeds the static files of the site.
type AssetService struct {
	logger *zerolog.Logger
	assets *repository.AssetRepository
}

func NewAssetService(logger *zerolog.Logger, assets *repository.AssetRepository) *AssetService {
	return &AssetService{logger: logger, assets: assets}
}

// Get returns the asset stored for path, or a not found error. A path
// that cannot be a store key is never stored and is not found either.
func (s *AssetService) Get(ctx context.Context, path string) ([]byte, error) {
	body, err := s.assets.Get(ctx, path)
	if errors.Is(err, kv.ErrNotFound) || errors.Is(err, kv.ErrInvalidKey) {
		return nil, errs.NewNotFoundError("Not Found", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("reading asset %q: %w", path, err)
	}
	return body, nil
}

// Sync uploads every regular file under dir, keyed by its slash separated
// path relative to dir with a leading "/". It returns the number of files
// written.
func (s *AssetService) Sync(ctx context.Context, dir string) (int, error) {
	root := os.DirFS(dir)
	count := 0

	err := fs.WalkDir(root, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		body, err := fs.ReadFile(root, path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", filepath.Join(dir, path), err)
		}

		key := "/" + path
		if err := s.assets.Put(ctx, key, body); err != nil {
			return fmt.Errorf("storing %s: %w", key, err)
		}

		s.logger.Debug().Str("asset", key).Int("bytes", len(body)).Msg("asset stored")
		count++
		return nil
	})
	if err != nil {
		return count, err
	}

	s.logger.Info().Str("dir", dir).Int("assets", count).Msg("assets synced")
	return count, nil
}
