package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	cases := map[string]error{
		KindRecipientNotFound: fmt.Errorf("lookup S1: %w", ErrRecipientNotFound),
		KindNoPushToken:       ErrNoPushToken,
		KindPushRejected:      fmt.Errorf("publish: %w", ErrInvalidToken),
		KindStore:             fmt.Errorf("query notifications: %w: %w", ErrStore, errors.New("throttled")),
		KindConfig:            fmt.Errorf("settings: %w", ErrConfig),
		KindValidation:        fmt.Errorf("studentId: %w", ErrBadRequest),
		KindInternal:          errors.New("boom"),
	}
	for want, err := range cases {
		assert.Equal(t, want, Kind(err), err.Error())
	}
}

func TestRetentionConfig_IsPreserved(t *testing.T) {
	cfg := DefaultRetentionConfig()
	assert.True(t, cfg.IsPreserved(TypePaymentReminder))
	assert.False(t, cfg.IsPreserved(TypeTaskReminder))

	cfg.PreservedTypeRetentionDays = 0
	assert.False(t, cfg.IsPreserved(TypePaymentReminder))
}

func TestSchedule_SameSlot(t *testing.T) {
	a := &Schedule{Day: "Monday", StartTime: "10:00", EndTime: "11:00"}
	b := *a
	assert.True(t, a.SameSlot(&b))

	b.StartTime = "10:30"
	assert.False(t, a.SameSlot(&b))

	c := *a
	c.IsReplacement = true
	assert.False(t, a.SameSlot(&c))
}
