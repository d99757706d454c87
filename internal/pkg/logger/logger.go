package logger

import (
	"go.uber.org/zap"

	"github.com/tuition-notify/internal/domain"
	"github.com/tuition-notify/internal/pkg/metrics"
)

// New returns a console logger in development and a JSON logger otherwise.
func New(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Swallowed records an error that the caller handles by logging instead of
// propagating. The event always carries error_kind and bumps the matching counter.
// Missing recipients and tokens are expected in normal operation and log at warn.
func Swallowed(log *zap.Logger, msg string, err error, fields ...zap.Field) {
	kind := domain.Kind(err)
	metrics.HandlerErrors.WithLabelValues(kind).Inc()

	lvl := zap.ErrorLevel
	if kind == domain.KindRecipientNotFound || kind == domain.KindNoPushToken {
		lvl = zap.WarnLevel
	}
	if ce := log.Check(lvl, msg); ce != nil {
		ce.Write(append(fields, zap.String("error_kind", kind), zap.Error(err))...)
	}
}
