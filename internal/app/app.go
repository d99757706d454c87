// Package app builds the object graph shared by the api, worker and lambda binaries.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tuition-notify/internal/application/change"
	"github.com/tuition-notify/internal/application/dedupe"
	"github.com/tuition-notify/internal/application/dispatch"
	"github.com/tuition-notify/internal/application/notification"
	"github.com/tuition-notify/internal/application/retention"
	"github.com/tuition-notify/internal/application/sweep"
	"github.com/tuition-notify/internal/config"
	"github.com/tuition-notify/internal/domain"
	"github.com/tuition-notify/internal/infrastructure/dynamo"
	redisstore "github.com/tuition-notify/internal/infrastructure/redis"
	s3infra "github.com/tuition-notify/internal/infrastructure/s3"
	"github.com/tuition-notify/internal/infrastructure/sns"
)

// App holds the wired handlers.
type App struct {
	Dispatcher    *dispatch.Dispatcher
	Notifications notification.Service
	Schedules     *change.ScheduleHandler
	Tasks         *change.TaskHandler
	Attendance    *change.AttendanceHandler
	Sweeps        *sweep.Sweeps
	Retention     *retention.Sweeper

	redis *redis.Client
}

// Options toggles startup work that only long-running processes want.
type Options struct {
	// Bootstrap creates missing tables before wiring.
	Bootstrap bool
}

// New connects to AWS (and Redis when configured) and wires every handler.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, opts Options) (*App, error) {
	if cfg.SNSPlatformApplicationARN == "" {
		return nil, fmt.Errorf("SNS_PLATFORM_APPLICATION_ARN is not set: %w", domain.ErrConfig)
	}
	db := dynamo.NewClient(cfg)
	if opts.Bootstrap {
		dynamo.Bootstrap(ctx, db, cfg.DynamoTables, log)
	}
	t := cfg.DynamoTables

	snsClient, err := sns.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("sns client: %w", err)
	}
	sender := sns.NewSender(snsClient, sns.Options{
		PlatformApplicationARN: cfg.SNSPlatformApplicationARN,
		PerSecond:              cfg.PushPerSecond,
		MaxFailures:            cfg.BreakerMaxFailures,
		BreakerTimeout:         cfg.BreakerTimeout,
	}, log)

	notifications := dynamo.NewNotificationRepo(db, t.Notifications)
	users := dynamo.NewUserRepo(db, t.Users)
	courses := dynamo.NewCourseRepo(db, t.Courses)
	settings := dynamo.NewSettingsRepo(db, t.Settings)
	writer := dynamo.NewTxWriter(db, dynamo.MaxTransactItems)
	resolver := dispatch.NewResolver(users, cfg.LookupByIDFallback)

	a := &App{}
	var policy *dedupe.Policy
	if cfg.RedisURL != "" {
		rdb, err := redisstore.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.redis = rdb
		policy = dedupe.New(notifications, redisstore.NewDedupeLock(rdb), log)
		log.Info("strict duplicate suppression enabled")
	} else {
		// untyped nil: the policy skips the lock step
		policy = dedupe.New(notifications, nil, log)
	}

	a.Dispatcher = dispatch.New(dispatch.Deps{
		Notifications: notifications,
		Writer:        writer,
		Users:         users,
		Resolver:      resolver,
		Sender:        sender,
		TokenMode:     dispatch.TokenMode(cfg.PushTokenMode),
		Log:           log,
	})
	a.Notifications = notification.NewService(notification.ServiceDeps{
		Notifications: notifications,
		Resolver:      resolver,
		Users:         users,
		Sender:        sender,
		Log:           log,
	})

	changeDeps := change.Deps{
		Courses:    courses,
		Dispatcher: a.Dispatcher,
		Location:   cfg.Location(),
		Log:        log,
	}
	a.Schedules = change.NewScheduleHandler(changeDeps)
	a.Tasks = change.NewTaskHandler(changeDeps)
	a.Attendance = change.NewAttendanceHandler(changeDeps)

	a.Sweeps = sweep.New(sweep.Deps{
		Tasks:        dynamo.NewTaskRepo(db, t.Tasks),
		StudentTasks: dynamo.NewStudentTaskRepo(db, t.StudentTasks),
		Courses:      courses,
		Payments:     dynamo.NewPaymentRepo(db, t.Payments),
		Students:     users,
		Attendance:   dynamo.NewAttendanceRepo(db, t.Attendance),
		Settings:     settings,
		Dedupe:       policy,
		Dispatcher:   a.Dispatcher,
		Location:     cfg.Location(),
		Log:          log,
	})

	rd := retention.Deps{
		Notifications: notifications,
		Settings:      settings,
		Writer:        writer,
		ArchiveTable:  t.ArchivedNotifications,
		Log:           log,
	}
	if cfg.ArchiveBackend == "s3" {
		rd.Objects = s3infra.NewStore(s3infra.NewClient(cfg), cfg.ArchiveBucket)
	}
	a.Retention = retention.New(rd)

	return a, nil
}

// Close waits for background token pruning and releases connections.
func (a *App) Close() {
	a.Dispatcher.Wait()
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
