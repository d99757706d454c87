package dispatch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tuition-notify/internal/domain"
	"github.com/tuition-notify/internal/infrastructure/dynamo"
	"github.com/tuition-notify/internal/infrastructure/sns"
	"github.com/tuition-notify/internal/pkg/logger"
	"github.com/tuition-notify/internal/pkg/metrics"
)

const (
	defaultPushConcurrency = 10
	pruneTimeout           = 10 * time.Second
)

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
	Table() string
}

type committer interface {
	Commit(ctx context.Context, ops []dynamo.WriteOp) (int, error)
}

type tokenPruner interface {
	RemoveTokens(ctx context.Context, userID string, tokens []string, clearLatest bool) error
}

type recipientResolver interface {
	Resolve(ctx context.Context, recipientID string) (*domain.User, error)
}

// Outcome describes what one dispatch achieved. Err is informational: dispatch
// failures never propagate to the caller.
type Outcome struct {
	RecipientID    string
	Type           domain.NotificationType
	CorrelationID  string
	NotificationID string
	RecipientFound bool
	Attempted      int
	Delivered      int
	Pruned         int
	Err            error
}

// Label is the outcome metric label.
func (o Outcome) Label() string {
	switch {
	case o.Delivered > 0:
		return "delivered"
	case o.Err != nil:
		return domain.Kind(o.Err)
	default:
		return "in_app_only"
	}
}

type Deps struct {
	Notifications notificationStore
	Writer        committer
	Users         tokenPruner
	Resolver      recipientResolver
	Sender        sns.Sender
	TokenMode     TokenMode
	// PushConcurrency bounds in-flight pushes in DispatchAll. Zero means 10.
	PushConcurrency int
	Log             *zap.Logger
	Now             func() time.Time
}

// Dispatcher writes in-app notifications and pushes them to the recipient's devices.
type Dispatcher struct {
	notifications notificationStore
	writer        committer
	users         tokenPruner
	resolver      recipientResolver
	sender        sns.Sender
	mode          TokenMode
	concurrency   int
	log           *zap.Logger
	now           func() time.Time

	pruning sync.WaitGroup
}

func New(d Deps) *Dispatcher {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.PushConcurrency < 1 {
		d.PushConcurrency = defaultPushConcurrency
	}
	if d.TokenMode == "" {
		d.TokenMode = TokenModeMulti
	}
	return &Dispatcher{
		notifications: d.Notifications,
		writer:        d.Writer,
		users:         d.Users,
		resolver:      d.Resolver,
		sender:        d.Sender,
		mode:          d.TokenMode,
		concurrency:   d.PushConcurrency,
		log:           d.Log,
		now:           d.Now,
	}
}

// Dispatch writes the in-app record for m, then pushes it. The push is skipped
// when the record could not be written so a later run can redo both.
func (d *Dispatcher) Dispatch(ctx context.Context, m Message) Outcome {
	out := newOutcome(m)
	if !m.SkipInApp {
		n := NewNotification(m, d.now())
		if err := d.notifications.Put(ctx, n); err != nil {
			out.Err = err
			d.finish(out)
			return out
		}
		out.NotificationID = n.NotificationID
	}
	d.push(ctx, m, &out)
	d.finish(out)
	return out
}

// DispatchAll commits the in-app records of msgs through the chunked writer, then
// pushes every committed message concurrently. Messages whose chunk did not
// commit are not pushed.
func (d *Dispatcher) DispatchAll(ctx context.Context, msgs []Message) []Outcome {
	outs := make([]Outcome, len(msgs))
	ops := make([]dynamo.WriteOp, 0, len(msgs))
	owners := make([]int, 0, len(msgs))
	ids := make([]string, 0, len(msgs))
	now := d.now()

	for i, m := range msgs {
		outs[i] = newOutcome(m)
		if m.SkipInApp {
			continue
		}
		n := NewNotification(m, now)
		op, err := dynamo.PutOp(d.notifications.Table(), n)
		if err != nil {
			outs[i].Err = fmt.Errorf("%w: %w", domain.ErrStore, err)
			continue
		}
		ops = append(ops, op)
		owners = append(owners, i)
		ids = append(ids, n.NotificationID)
	}

	if len(ops) > 0 {
		committed, err := d.writer.Commit(ctx, ops)
		for j, i := range owners {
			if j < committed {
				outs[i].NotificationID = ids[j]
			} else {
				outs[i].Err = err
			}
		}
		if err != nil {
			logger.Swallowed(d.log, "notification batch partially committed", err,
				zap.Int("committed", committed),
				zap.Int("pending", len(ops)-committed))
		}
	}

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, m := range msgs {
		if outs[i].Err != nil {
			continue
		}
		// failures land in outs[i], never in the group
		g.Go(func() error {
			d.push(ctx, m, &outs[i])
			return nil
		})
	}
	_ = g.Wait()

	for _, out := range outs {
		d.finish(out)
	}
	return outs
}

// Wait blocks until background token pruning has finished. Hosts that freeze
// the process after a handler returns call it first.
func (d *Dispatcher) Wait() {
	d.pruning.Wait()
}

func (d *Dispatcher) push(ctx context.Context, m Message, out *Outcome) {
	user, err := d.resolver.Resolve(ctx, m.RecipientID)
	if err != nil {
		out.Err = err
		return
	}
	out.RecipientFound = true

	tokens := Tokens(user, d.mode)
	if len(tokens) == 0 {
		out.Err = fmt.Errorf("recipient %s: %w", m.RecipientID, domain.ErrNoPushToken)
		return
	}
	out.Attempted = len(tokens)

	errs := d.sender.SendMulticast(ctx, tokens, PushMessage(m, out.NotificationID))
	var invalid []string
	var firstErr error
	for i, err := range errs {
		if err == nil {
			out.Delivered++
			continue
		}
		if errors.Is(err, domain.ErrInvalidToken) {
			invalid = append(invalid, tokens[i])
		}
		if firstErr == nil {
			firstErr = err
		}
		d.log.Debug("push to token failed",
			zap.String("user_id", user.UserID),
			zap.String("error_kind", domain.Kind(err)),
			zap.Error(err))
	}
	if out.Delivered == 0 && firstErr != nil {
		out.Err = firstErr
	}
	if len(invalid) > 0 {
		out.Pruned = len(invalid)
		d.prune(user, invalid)
	}
}

// prune removes tokens in the background with its own deadline so the caller's
// context ending does not cancel the cleanup.
func (d *Dispatcher) prune(user *domain.User, tokens []string) {
	clearLatest := slices.Contains(tokens, user.LatestPushToken)
	d.pruning.Add(1)
	go func() {
		defer d.pruning.Done()
		ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
		defer cancel()
		if err := d.users.RemoveTokens(ctx, user.UserID, tokens, clearLatest); err != nil {
			logger.Swallowed(d.log, "prune push tokens", err, zap.String("user_id", user.UserID))
			return
		}
		metrics.PushTokensPruned.Add(float64(len(tokens)))
		d.log.Info("pruned invalid push tokens", zap.String("user_id", user.UserID), zap.Int("count", len(tokens)))
	}()
}

func (d *Dispatcher) finish(out Outcome) {
	metrics.Dispatches.WithLabelValues(string(out.Type), out.Label()).Inc()
	fields := []zap.Field{
		zap.String("user_id", out.RecipientID),
		zap.String("notification_type", string(out.Type)),
		zap.String("correlation_id", out.CorrelationID),
		zap.String("notification_id", out.NotificationID),
	}
	if out.Err != nil {
		logger.Swallowed(d.log, "dispatch incomplete", out.Err, fields...)
		return
	}
	d.log.Debug("dispatched", append(fields, zap.Int("delivered", out.Delivered))...)
}

func newOutcome(m Message) Outcome {
	return Outcome{RecipientID: m.RecipientID, Type: m.Type, CorrelationID: m.CorrelationID}
}
