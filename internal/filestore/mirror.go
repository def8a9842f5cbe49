package filestore

import (
	"context"
	"io"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// NewMirror writes every artifact to primary and best-effort to
// secondary; reads always come from primary. A nil secondary returns
// the primary unwrapped.
func NewMirror(primary Store, secondary Store) Store {
	if secondary == nil {
		return primary
	}
	return &mirrorStore{primary: primary, secondary: secondary}
}

type mirrorStore struct {
	primary   Store
	secondary Store
}

func (m *mirrorStore) Save(ctx context.Context, key string, r ReadSeekCloser, size int64) error {
	if err := m.primary.Save(ctx, key, r, size); err != nil {
		return err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := m.secondary.Save(ctx, key, r, size); err != nil {
		logutil.GetLogger(ctx).Warn("mirror save failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

func (m *mirrorStore) Open(ctx context.Context, key string) (ReadSeekCloser, error) {
	return m.primary.Open(ctx, key)
}
