// Command lambda is the AWS Lambda entry point. HANDLER selects the trigger:
// "stream" for DynamoDB Streams, "schedule" for EventBridge rules.
package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/tuition-notify/internal/app"
	"github.com/tuition-notify/internal/config"
	"github.com/tuition-notify/internal/pkg/logger"
	lambdatransport "github.com/tuition-notify/internal/transport/lambda"
)

func main() {
	cfg := config.Load()
	zl, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	a, err := app.New(context.Background(), cfg, zl, app.Options{})
	if err != nil {
		zl.Fatal("wiring failed", zap.Error(err))
	}

	switch h := os.Getenv("HANDLER"); h {
	case "stream":
		lambda.Start(lambdatransport.NewStreamRouter(lambdatransport.StreamDeps{
			Tables:     cfg.DynamoTables,
			Schedules:  a.Schedules,
			Tasks:      a.Tasks,
			Attendance: a.Attendance,
			Dispatcher: a.Dispatcher,
			Log:        zl,
		}).Handle)
	case "schedule":
		lambda.Start(lambdatransport.NewScheduleRouter(lambdatransport.ScheduleDeps{
			Sweeps:     a.Sweeps,
			Retention:  a.Retention,
			Dispatcher: a.Dispatcher,
			Log:        zl,
		}).Handle)
	default:
		zl.Fatal("HANDLER must be stream or schedule", zap.String("handler", h))
	}
}
