package job

import (
	"context"
	"os"
	"path/filepath"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/noterag/internal/vectorstore"
)

// IndexSnapshotJob exports the vector collection into a single restorable
// file under the snapshot directory.
type IndexSnapshotJob struct {
	index *vectorstore.Store
	dir   string
}

func NewIndexSnapshotJob(index *vectorstore.Store, dir string) *IndexSnapshotJob {
	return &IndexSnapshotJob{index: index, dir: dir}
}

func (j *IndexSnapshotJob) Name() string {
	return "index_snapshot"
}

func (j *IndexSnapshotJob) Run(ctx context.Context) error {
	if j.index == nil || j.dir == "" {
		return nil
	}
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(j.dir, j.index.Name()+".chromem")
	if err := j.index.Export(path, false, ""); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("index snapshot written",
		zap.String("path", path), zap.Int("records", j.index.Count()))
	return nil
}
