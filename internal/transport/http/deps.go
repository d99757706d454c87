package http

import (
	"go.uber.org/zap"

	"github.com/tuition-notify/internal/application/notification"
	jwtinfra "github.com/tuition-notify/internal/infrastructure/jwt"
)

// Deps holds everything the router needs.
type Deps struct {
	Notifications notification.Service
	// JWTProvider enables bearer auth on the push endpoint when set.
	JWTProvider *jwtinfra.Provider
	Log         *zap.Logger
}
