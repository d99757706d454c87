package sweep

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tuition-notify/internal/pkg/chunk"
	"github.com/tuition-notify/internal/pkg/logger"
	"github.com/tuition-notify/internal/pkg/metrics"
)

// DefaultBatchSize is the number of records processed concurrently.
const DefaultBatchSize = 20

// Scanner runs per-record work over a matched record set. Records of one chunk
// run concurrently; chunks run one after another.
type Scanner[T any] struct {
	Name string
	Log  *zap.Logger
}

// Run applies fn to every record and returns how many failed. A failing record
// is logged and does not affect its siblings.
func (s Scanner[T]) Run(ctx context.Context, records []T, batchSize int, fn func(context.Context, T) error) int {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	metrics.SweepRecords.WithLabelValues(s.Name).Add(float64(len(records)))

	var failed atomic.Int64
	for _, batch := range chunk.Split(records, batchSize) {
		var g errgroup.Group
		for _, rec := range batch {
			g.Go(func() error {
				if err := fn(ctx, rec); err != nil {
					failed.Add(1)
					logger.Swallowed(s.Log, "sweep record failed", err, zap.String("handler", s.Name))
				}
				return nil
			})
		}
		_ = g.Wait()
	}
	return int(failed.Load())
}
