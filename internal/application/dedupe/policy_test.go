package dedupe

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/tuition-notify/internal/domain"
)

var now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type mockHistory struct{ mock.Mock }

func (m *mockHistory) HasRecent(ctx context.Context, userID string, t domain.NotificationType, correlationID string, since time.Time) (bool, error) {
	args := m.Called(userID, t, correlationID, since)
	return args.Bool(0), args.Error(1)
}

type mockLock struct{ mock.Mock }

func (m *mockLock) Acquire(ctx context.Context, recipientID string, t domain.NotificationType, correlationID string, ttl time.Duration) (bool, error) {
	args := m.Called(recipientID, t, correlationID, ttl)
	return args.Bool(0), args.Error(1)
}

func newPolicy(h *mockHistory, l locker) *Policy {
	p := New(h, l, zap.NewNop())
	p.now = func() time.Time { return now }
	return p
}

var paymentKey = Key{RecipientID: "s1", Type: domain.TypePaymentReminder, CorrelationID: "p1"}

func TestShouldSuppress_WithinCooldown(t *testing.T) {
	h := &mockHistory{}
	h.On("HasRecent", "s1", domain.TypePaymentReminder, "p1", now.Add(-72*time.Hour)).Return(true, nil)

	assert.True(t, newPolicy(h, nil).ShouldSuppress(context.Background(), paymentKey, 72*time.Hour))
	h.AssertExpectations(t)
}

func TestShouldSuppress_AfterCooldown(t *testing.T) {
	h := &mockHistory{}
	h.On("HasRecent", "s1", domain.TypePaymentReminder, "p1", now.Add(-72*time.Hour)).Return(false, nil)

	assert.False(t, newPolicy(h, nil).ShouldSuppress(context.Background(), paymentKey, 72*time.Hour))
}

func TestShouldSuppress_ForeverHasNoLowerBound(t *testing.T) {
	h := &mockHistory{}
	h.On("HasRecent", "s1", domain.TypeTaskReminder, "t1", time.Time{}).Return(true, nil)

	k := Key{RecipientID: "s1", Type: domain.TypeTaskReminder, CorrelationID: "t1"}
	assert.True(t, newPolicy(h, nil).ShouldSuppress(context.Background(), k, Forever))
	h.AssertExpectations(t)
}

func TestShouldSuppress_FailsOpen(t *testing.T) {
	h := &mockHistory{}
	h.On("HasRecent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(false, fmt.Errorf("query: %w", domain.ErrStore))

	assert.False(t, newPolicy(h, nil).ShouldSuppress(context.Background(), paymentKey, time.Hour))
}

func TestShouldSuppress_LockLost(t *testing.T) {
	h := &mockHistory{}
	h.On("HasRecent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	l := &mockLock{}
	l.On("Acquire", "s1", domain.TypePaymentReminder, "p1", 72*time.Hour).Return(false, nil)

	assert.True(t, newPolicy(h, l).ShouldSuppress(context.Background(), paymentKey, 72*time.Hour))
}

func TestShouldSuppress_LockWonOrFailing(t *testing.T) {
	h := &mockHistory{}
	h.On("HasRecent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

	won := &mockLock{}
	won.On("Acquire", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	assert.False(t, newPolicy(h, won).ShouldSuppress(context.Background(), paymentKey, time.Hour))

	broken := &mockLock{}
	broken.On("Acquire", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(false, fmt.Errorf("redis: %w", domain.ErrStore))
	assert.False(t, newPolicy(h, broken).ShouldSuppress(context.Background(), paymentKey, time.Hour))
}

func TestShouldSuppress_HistoryHitSkipsLock(t *testing.T) {
	h := &mockHistory{}
	h.On("HasRecent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	l := &mockLock{}

	assert.True(t, newPolicy(h, l).ShouldSuppress(context.Background(), paymentKey, time.Hour))
	l.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
