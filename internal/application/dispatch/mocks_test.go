package dispatch

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/tuition-notify/internal/domain"
	"github.com/tuition-notify/internal/infrastructure/dynamo"
	"github.com/tuition-notify/internal/infrastructure/sns"
)

type mockNotificationStore struct{ mock.Mock }

func (m *mockNotificationStore) Put(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}
func (m *mockNotificationStore) Table() string { return "notifications" }

type mockWriter struct{ mock.Mock }

func (m *mockWriter) Commit(ctx context.Context, ops []dynamo.WriteOp) (int, error) {
	args := m.Called(ctx, ops)
	return args.Int(0), args.Error(1)
}

type mockPruner struct{ mock.Mock }

func (m *mockPruner) RemoveTokens(ctx context.Context, userID string, tokens []string, clearLatest bool) error {
	return m.Called(userID, tokens, clearLatest).Error(0)
}

type mockResolver struct{ mock.Mock }

func (m *mockResolver) Resolve(ctx context.Context, recipientID string) (*domain.User, error) {
	args := m.Called(recipientID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

// fakeSender records every push and answers per token from results.
type fakeSender struct {
	mu      sync.Mutex
	results map[string]error
	sent    []string
	last    sns.Message
}

func (f *fakeSender) Send(ctx context.Context, token string, msg sns.Message) (string, error) {
	errs := f.SendMulticast(ctx, []string{token}, msg)
	return "msg-" + token, errs[0]
}

func (f *fakeSender) SendMulticast(_ context.Context, tokens []string, msg sns.Message) []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	errs := make([]error, len(tokens))
	for i, t := range tokens {
		f.sent = append(f.sent, t)
		errs[i] = f.results[t]
	}
	f.last = msg
	return errs
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}
