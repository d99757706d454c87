package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tuition-notify/internal/app"
	"github.com/tuition-notify/internal/application/retention"
	"github.com/tuition-notify/internal/application/sweep"
	"github.com/tuition-notify/internal/config"
	"github.com/tuition-notify/internal/pkg/cron"
	"github.com/tuition-notify/internal/pkg/logger"
)

// schedule mirrors the EventBridge rules used in production.
type schedule struct {
	job      string
	interval time.Duration
	gate     func(loc *time.Location) cron.Gate
}

var schedules = []schedule{
	{sweep.TaskReminders, time.Hour, func(l *time.Location) cron.Gate { return cron.AtHour(9, l) }},
	{sweep.OverdueTasks, time.Hour, func(l *time.Location) cron.Gate { return cron.AtHour(9, l) }},
	{sweep.OutstandingPayments, 72 * time.Hour, nil},
	{sweep.PaymentsDueSoon, time.Hour, func(l *time.Location) cron.Gate { return cron.AtHour(10, l) }},
	{sweep.MonthlyOverduePayments, time.Hour, func(l *time.Location) cron.Gate { return cron.AtHour(8, l) }},
	{sweep.WeeklyAttendanceSummary, time.Hour, func(l *time.Location) cron.Gate { return cron.Weekly(time.Sunday, 19, l) }},
	{retention.JobName, time.Hour, func(l *time.Location) cron.Gate { return cron.AtHour(2, l) }},
}

func main() {
	once := flag.Bool("once", false, "run every job whose gate is open now, then exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	zl, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	a, err := app.New(context.Background(), cfg, zl, app.Options{Bootstrap: true})
	if err != nil {
		zl.Fatal("wiring failed", zap.Error(err))
	}
	defer a.Close()

	loc := cfg.Location()
	sched := cron.NewScheduler(zl)
	for _, s := range schedules {
		var gate cron.Gate
		if s.gate != nil {
			gate = s.gate(loc)
		}
		sched.AddJob(s.job, s.interval, gate, jobFunc(a, s.job, zl))
	}

	if *once {
		sched.RunOnce(context.Background())
		return
	}

	sched.Start()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	sched.Stop()
}

func jobFunc(a *app.App, job string, log *zap.Logger) func(ctx context.Context) error {
	if job == retention.JobName {
		return func(ctx context.Context) error {
			res, err := a.Retention.Cleanup(ctx, time.Now())
			log.Info("retention finished",
				zap.Int("scanned", res.Scanned),
				zap.Int("archived", res.Archived),
				zap.Int("deleted", res.Deleted),
				zap.Int("preserved", res.Preserved))
			return err
		}
	}
	run, ok := a.Sweeps.ByName(job)
	if !ok {
		log.Fatal("unknown sweep", zap.String("job", job))
	}
	return func(ctx context.Context) error {
		_, err := run(ctx)
		return err
	}
}
