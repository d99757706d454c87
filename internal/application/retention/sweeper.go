package retention

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tuition-notify/internal/domain"
	"github.com/tuition-notify/internal/infrastructure/dynamo"
	"github.com/tuition-notify/internal/pkg/chunk"
	"github.com/tuition-notify/internal/pkg/logger"
	"github.com/tuition-notify/internal/pkg/metrics"
)

// JobName identifies the retention sweep to schedulers.
const JobName = "notification-cleanup"

type notificationSource interface {
	ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]domain.Notification, error)
	Table() string
}

type settingsStore interface {
	GetRetentionConfig(ctx context.Context) (domain.RetentionConfig, error)
	MarkCleanup(ctx context.Context, at time.Time) error
}

type committer interface {
	Commit(ctx context.Context, ops []dynamo.WriteOp) (int, error)
	ChunkSize() int
}

type objectArchive interface {
	PutNotification(ctx context.Context, n *domain.Notification) (string, error)
}

type Deps struct {
	Notifications notificationSource
	Settings      settingsStore
	Writer        committer
	// ArchiveTable receives archived copies when Objects is nil.
	ArchiveTable string
	// Objects switches archiving to object storage.
	Objects objectArchive
	Log     *zap.Logger
}

// Result counts what one cleanup run did.
type Result struct {
	Scanned   int
	Archived  int
	Deleted   int
	Preserved int
}

// Sweeper removes notifications past their retention window, archiving them
// first when configured to. An archived copy always exists before its original
// is deleted.
type Sweeper struct {
	d Deps
}

func New(d Deps) *Sweeper {
	return &Sweeper{d: d}
}

// Cleanup runs one retention pass as of now. Chunks committed before a failure
// stay committed; the next run picks up the rest.
func (s *Sweeper) Cleanup(ctx context.Context, now time.Time) (Result, error) {
	log := s.d.Log.With(zap.String("handler", JobName))
	cfg, err := s.d.Settings.GetRetentionConfig(ctx)
	if err != nil {
		logger.Swallowed(log, "retention settings unavailable, using defaults", err)
	}

	cutoff := now.AddDate(0, 0, -cfg.RetentionPeriodDays)
	preservedCutoff := now.AddDate(0, 0, -cfg.PreservedTypeRetentionDays)
	scanCutoff := cutoff
	if cfg.PreservedTypeRetentionDays > 0 && preservedCutoff.After(cutoff) {
		scanCutoff = preservedCutoff
	}

	candidates, err := s.d.Notifications.ListCreatedBefore(ctx, scanCutoff)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", JobName, err)
	}
	metrics.SweepRecords.WithLabelValues(JobName).Add(float64(len(candidates)))

	res := Result{Scanned: len(candidates)}
	expired := make([]domain.Notification, 0, len(candidates))
	for _, n := range candidates {
		limit := cutoff
		if cfg.IsPreserved(n.Type) {
			limit = preservedCutoff
		}
		if n.CreatedAt.Before(limit) {
			expired = append(expired, n)
		} else {
			res.Preserved++
		}
	}

	switch {
	case len(expired) == 0:
	case !cfg.ArchiveInsteadOfDelete:
		err = s.deleteOnly(ctx, expired, &res)
	case s.d.Objects != nil:
		err = s.archiveToObjects(ctx, expired, now, &res)
	default:
		err = s.archiveToTable(ctx, expired, now, &res)
	}
	if err != nil {
		return res, fmt.Errorf("%s: %w", JobName, err)
	}

	if err := s.d.Settings.MarkCleanup(ctx, now); err != nil {
		logger.Swallowed(log, "record cleanup time", err)
	}
	log.Info("retention sweep finished",
		zap.Int("scanned", res.Scanned),
		zap.Int("archived", res.Archived),
		zap.Int("deleted", res.Deleted),
		zap.Int("preserved", res.Preserved))
	return res, nil
}

func (s *Sweeper) deleteOnly(ctx context.Context, expired []domain.Notification, res *Result) error {
	ops := make([]dynamo.WriteOp, 0, len(expired))
	for _, n := range expired {
		ops = append(ops, s.deleteOp(n))
	}
	n, err := s.d.Writer.Commit(ctx, ops)
	res.Deleted += n
	return err
}

// archiveToTable commits each archived copy in the same transaction as the
// delete of its original.
func (s *Sweeper) archiveToTable(ctx context.Context, expired []domain.Notification, now time.Time, res *Result) error {
	for _, group := range chunk.Split(expired, max(s.d.Writer.ChunkSize()/2, 1)) {
		ops := make([]dynamo.WriteOp, 0, 2*len(group))
		for _, n := range group {
			put, err := dynamo.PutOp(s.d.ArchiveTable, archived(n, now))
			if err != nil {
				return err
			}
			ops = append(ops, put, s.deleteOp(n))
		}
		if _, err := s.d.Writer.Commit(ctx, ops); err != nil {
			return err
		}
		res.Archived += len(group)
		res.Deleted += len(group)
	}
	return nil
}

// archiveToObjects uploads every copy of a chunk before deleting the chunk's
// originals. A failed upload stops the run with the chunk untouched.
func (s *Sweeper) archiveToObjects(ctx context.Context, expired []domain.Notification, now time.Time, res *Result) error {
	for _, group := range chunk.Split(expired, s.d.Writer.ChunkSize()) {
		ops := make([]dynamo.WriteOp, 0, len(group))
		for _, n := range group {
			if _, err := s.d.Objects.PutNotification(ctx, archived(n, now)); err != nil {
				return fmt.Errorf("archive %s: %w", n.NotificationID, err)
			}
			res.Archived++
			ops = append(ops, s.deleteOp(n))
		}
		committed, err := s.d.Writer.Commit(ctx, ops)
		res.Deleted += committed
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Sweeper) deleteOp(n domain.Notification) dynamo.WriteOp {
	return dynamo.DeleteOp(s.d.Notifications.Table(), "notification_id", n.NotificationID)
}

func archived(n domain.Notification, now time.Time) *domain.Notification {
	at := now.UTC()
	n.ArchivedAt = &at
	return &n
}
