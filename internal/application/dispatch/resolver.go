package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/tuition-notify/internal/domain"
)

// TokenMode selects which of a recipient's device tokens a push targets.
type TokenMode string

const (
	// TokenModeMulti targets every registered token.
	TokenModeMulti TokenMode = "multi"
	// TokenModeSingle targets the most recently registered token only.
	TokenModeSingle TokenMode = "single"
)

type userLookup interface {
	GetByStudentID(ctx context.Context, studentID string) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
}

// Resolver maps a recipient id onto the user record holding its push tokens.
type Resolver struct {
	users        userLookup
	fallbackByID bool
}

// NewResolver looks recipients up by the student_id field first and, when
// fallbackByID is set, by document id second.
func NewResolver(users userLookup, fallbackByID bool) *Resolver {
	return &Resolver{users: users, fallbackByID: fallbackByID}
}

func (r *Resolver) Resolve(ctx context.Context, recipientID string) (*domain.User, error) {
	u, err := r.users.GetByStudentID(ctx, recipientID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if r.fallbackByID {
		u, err = r.users.Get(ctx, recipientID)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("recipient %s: %w", recipientID, domain.ErrRecipientNotFound)
}

// Tokens returns the device tokens of u a push should target under mode.
func Tokens(u *domain.User, mode TokenMode) []string {
	if mode == TokenModeSingle {
		if u.LatestPushToken != "" {
			return []string{u.LatestPushToken}
		}
		if n := len(u.PushTokens); n > 0 {
			return []string{u.PushTokens[n-1]}
		}
		return nil
	}
	if len(u.PushTokens) == 0 && u.LatestPushToken != "" {
		return []string{u.LatestPushToken}
	}
	return u.PushTokens
}
