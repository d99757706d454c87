package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tuition-notify/internal/domain"
	"github.com/tuition-notify/internal/infrastructure/dynamo"
)

var fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store    *mockNotificationStore
	writer   *mockWriter
	pruner   *mockPruner
	resolver *mockResolver
	sender   *fakeSender
}

func newFixture() *fixture {
	return &fixture{
		store:    &mockNotificationStore{},
		writer:   &mockWriter{},
		pruner:   &mockPruner{},
		resolver: &mockResolver{},
		sender:   &fakeSender{results: map[string]error{}},
	}
}

func (f *fixture) dispatcher() *Dispatcher {
	return New(Deps{
		Notifications: f.store,
		Writer:        f.writer,
		Users:         f.pruner,
		Resolver:      f.resolver,
		Sender:        f.sender,
		Log:           zap.NewNop(),
		Now:           func() time.Time { return fixedNow },
	})
}

func msg(recipient string) Message {
	return Message{
		RecipientID:   recipient,
		Type:          domain.TypeTaskReminder,
		Title:         "Task Due Tomorrow",
		Body:          "Your task is due tomorrow",
		CorrelationID: "task-1",
		Data:          map[string]interface{}{"taskId": "task-1"},
	}
}

func TestDispatch_WritesRecordAndPushes(t *testing.T) {
	f := newFixture()
	f.store.On("Put", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.UserID == "s1" && !n.IsRead && n.CorrelationID == "task-1" && n.CreatedAt.Equal(fixedNow)
	})).Return(nil)
	f.resolver.On("Resolve", "s1").Return(&domain.User{UserID: "u1", PushTokens: []string{"a", "b"}}, nil)

	out := f.dispatcher().Dispatch(context.Background(), msg("s1"))

	require.NoError(t, out.Err)
	assert.NotEmpty(t, out.NotificationID)
	assert.Equal(t, 2, out.Attempted)
	assert.Equal(t, 2, out.Delivered)
	assert.Equal(t, "delivered", out.Label())
	assert.Equal(t, "task_reminder", f.sender.last.Data["type"])
	assert.Equal(t, out.NotificationID, f.sender.last.Data["notification_id"])
	f.store.AssertExpectations(t)
}

func TestDispatch_RecipientMissingStillWritesRecord(t *testing.T) {
	f := newFixture()
	f.store.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.resolver.On("Resolve", "ghost").Return(nil, fmt.Errorf("recipient ghost: %w", domain.ErrRecipientNotFound))

	out := f.dispatcher().Dispatch(context.Background(), msg("ghost"))

	assert.NotEmpty(t, out.NotificationID)
	assert.False(t, out.RecipientFound)
	assert.Equal(t, domain.KindRecipientNotFound, out.Label())
	assert.Zero(t, f.sender.count())
}

func TestDispatch_NoTokens(t *testing.T) {
	f := newFixture()
	f.store.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.resolver.On("Resolve", "s1").Return(&domain.User{UserID: "u1"}, nil)

	out := f.dispatcher().Dispatch(context.Background(), msg("s1"))

	assert.True(t, out.RecipientFound)
	assert.ErrorIs(t, out.Err, domain.ErrNoPushToken)
	assert.Zero(t, f.sender.count())
}

func TestDispatch_PrunesInvalidTokens(t *testing.T) {
	f := newFixture()
	f.store.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.resolver.On("Resolve", "s1").Return(&domain.User{
		UserID:          "u1",
		PushTokens:      []string{"good", "dead", "flaky"},
		LatestPushToken: "dead",
	}, nil)
	f.sender.results["dead"] = fmt.Errorf("publish: %w", domain.ErrInvalidToken)
	f.sender.results["flaky"] = fmt.Errorf("publish: %w", domain.ErrPushRejected)
	f.pruner.On("RemoveTokens", "u1", []string{"dead"}, true).Return(nil)

	d := f.dispatcher()
	out := d.Dispatch(context.Background(), msg("s1"))
	d.Wait()

	require.NoError(t, out.Err)
	assert.Equal(t, 1, out.Delivered)
	assert.Equal(t, 1, out.Pruned)
	f.pruner.AssertExpectations(t)
}

func TestDispatch_PruneSurvivesCancelledContext(t *testing.T) {
	f := newFixture()
	f.store.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.resolver.On("Resolve", "s1").Return(&domain.User{UserID: "u1", PushTokens: []string{"dead"}}, nil)
	f.sender.results["dead"] = domain.ErrInvalidToken
	f.pruner.On("RemoveTokens", "u1", []string{"dead"}, false).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	d := f.dispatcher()
	out := d.Dispatch(ctx, msg("s1"))
	cancel()
	d.Wait()

	assert.ErrorIs(t, out.Err, domain.ErrInvalidToken)
	f.pruner.AssertExpectations(t)
}

func TestDispatch_StoreFailureSkipsPush(t *testing.T) {
	f := newFixture()
	f.store.On("Put", mock.Anything, mock.Anything).Return(fmt.Errorf("put: %w", domain.ErrStore))

	out := f.dispatcher().Dispatch(context.Background(), msg("s1"))

	assert.Equal(t, domain.KindStore, out.Label())
	f.resolver.AssertNotCalled(t, "Resolve", mock.Anything)
}

func TestDispatch_SkipInApp(t *testing.T) {
	f := newFixture()
	f.resolver.On("Resolve", "s1").Return(&domain.User{UserID: "u1", PushTokens: []string{"a"}}, nil)

	m := msg("s1")
	m.SkipInApp = true
	out := f.dispatcher().Dispatch(context.Background(), m)

	assert.Empty(t, out.NotificationID)
	assert.Equal(t, 1, out.Delivered)
	f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestDispatchAll_PushesOnlyCommittedRecords(t *testing.T) {
	f := newFixture()
	f.writer.On("Commit", mock.Anything, mock.MatchedBy(func(ops []dynamo.WriteOp) bool {
		return len(ops) == 3 && ops[0].Table == "notifications"
	})).Return(2, fmt.Errorf("commit chunk 1: %w", domain.ErrStore))
	for _, s := range []string{"s1", "s2"} {
		f.resolver.On("Resolve", s).Return(&domain.User{UserID: "u-" + s, PushTokens: []string{"tok-" + s}}, nil)
	}

	outs := f.dispatcher().DispatchAll(context.Background(), []Message{msg("s1"), msg("s2"), msg("s3")})

	require.Len(t, outs, 3)
	assert.Equal(t, 1, outs[0].Delivered)
	assert.Equal(t, 1, outs[1].Delivered)
	assert.ErrorIs(t, outs[2].Err, domain.ErrStore)
	assert.Empty(t, outs[2].NotificationID)
	assert.Equal(t, 2, f.sender.count())
	f.resolver.AssertNotCalled(t, "Resolve", "s3")
}

func TestDispatchAll_BoundsPushConcurrency(t *testing.T) {
	f := newFixture()
	var inFlight, peak atomic.Int64
	f.resolver.On("Resolve", "missing").Return(nil, domain.ErrRecipientNotFound)
	f.resolver.On("Resolve", mock.Anything).Run(func(mock.Arguments) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
	}).Return(&domain.User{UserID: "u", PushTokens: []string{"tok"}}, nil)

	d := New(Deps{
		Notifications:   f.store,
		Writer:          f.writer,
		Users:           f.pruner,
		Resolver:        f.resolver,
		Sender:          f.sender,
		PushConcurrency: 2,
		Log:             zap.NewNop(),
	})
	msgs := []Message{msg("missing")}
	for i := 0; i < 6; i++ {
		m := msg(fmt.Sprintf("s%d", i))
		m.SkipInApp = true
		msgs = append(msgs, m)
	}
	msgs[0].SkipInApp = true

	outs := d.DispatchAll(context.Background(), msgs)

	assert.ErrorIs(t, outs[0].Err, domain.ErrRecipientNotFound)
	for _, out := range outs[1:] {
		assert.Equal(t, 1, out.Delivered)
	}
	assert.Equal(t, 6, f.sender.count())
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestDispatchAll_Empty(t *testing.T) {
	f := newFixture()
	assert.Empty(t, f.dispatcher().DispatchAll(context.Background(), nil))
	f.writer.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything)
}

func TestOutcome_Label(t *testing.T) {
	assert.Equal(t, "in_app_only", Outcome{}.Label())
	assert.Equal(t, domain.KindPushRejected, Outcome{Err: errors.Join(domain.ErrPushRejected)}.Label())
}
