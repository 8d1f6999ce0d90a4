package reportstore

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

type localStore struct {
	logger   zerolog.Logger
	basePath string
}

func NewLocalStore(logger zerolog.Logger, basePath string) (*localStore, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		return nil, errors.Wrapf(err, "error creating report directory %s", basePath)
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, err
	}
	return &localStore{
		logger:   logger,
		basePath: abs,
	}, nil
}

func (l *localStore) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	p := filepath.Join(l.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(p), os.ModePerm); err != nil {
		return "", err
	}
	logger := l.logger.With().Str("path", p).Logger()
	logger.Debug().Msgf("creating file")
	f, err := os.Create(p)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", errors.Wrapf(err, "error writing %s", p)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	logger.Debug().Msgf("wrote file")
	return "file://" + filepath.ToSlash(p), nil
}
