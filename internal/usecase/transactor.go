// Package usecase contains application use cases.
package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/infra/metrics"
)

// Job names used for post-commit work.
const (
	jobBroadcast = "broadcast"
	jobAudit     = "audit"
	jobNotify    = "notify"
)

// Effects collects the side effects of one transaction.
// Nothing recorded here runs unless the transaction commits.
type Effects struct {
	keys          []string
	events        []domain.Event
	audits        []domain.AuditEntry
	notifications []pendingNotification
}

// pendingNotification is delivered only if check still holds when the job runs.
type pendingNotification struct {
	check func(tx domain.Tx) (bool, error)
	note  domain.Notification
}

// Invalidate schedules cache keys or patterns for invalidation.
func (e *Effects) Invalidate(keys ...string) {
	e.keys = append(e.keys, keys...)
}

// Publish schedules an event for each room.
func (e *Effects) Publish(event string, payload any, rooms ...string) {
	for _, room := range rooms {
		e.events = append(e.events, domain.Event{Room: room, Name: event, Payload: payload})
	}
}

// Audit schedules an audit entry.
func (e *Effects) Audit(entry domain.AuditEntry) {
	e.audits = append(e.audits, entry)
}

// Notify schedules a notification. check runs in a read transaction right
// before delivery; a false result skips it.
func (e *Effects) Notify(note domain.Notification, check func(tx domain.Tx) (bool, error)) {
	e.notifications = append(e.notifications, pendingNotification{note: note, check: check})
}

// Transactor runs use case transactions and applies their effects after commit.
// Cache invalidation happens before Update returns; broadcasts, audit entries
// and notifications go through the post-commit queue.
// Fields are ordered to minimize memory padding.
type Transactor struct {
	store       domain.Store
	cache       domain.Cache
	broadcaster domain.Broadcaster
	queue       domain.JobQueue
	audit       domain.AuditLogger
	notifier    domain.Notifier
	logger      *slog.Logger
}

// NewTransactor creates a new Transactor.
func NewTransactor(
	store domain.Store,
	cache domain.Cache,
	broadcaster domain.Broadcaster,
	queue domain.JobQueue,
	audit domain.AuditLogger,
	notifier domain.Notifier,
	logger *slog.Logger,
) *Transactor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Transactor{
		store:       store,
		cache:       cache,
		broadcaster: broadcaster,
		queue:       queue,
		audit:       audit,
		notifier:    notifier,
		logger:      logger,
	}
}

// View runs fn in a read-only transaction.
func (t *Transactor) View(ctx context.Context, fn func(tx domain.Tx) error) error {
	return t.store.View(ctx, fn)
}

// Update runs fn in a write transaction named op. fn's error is returned
// unchanged and discards every recorded effect.
func (t *Transactor) Update(ctx context.Context, op string, fn func(tx domain.Tx, fx *Effects) error) error {
	var fx Effects
	err := t.store.Update(ctx, func(tx domain.Tx) error {
		fx = Effects{}
		return fn(tx, &fx)
	})
	metrics.RecordTransaction(op, err == nil)
	if err != nil {
		t.logger.Debug("transaction rolled back", "op", op, "error", err)
		return err
	}

	t.apply(op, &fx)
	return nil
}

func (t *Transactor) apply(op string, fx *Effects) {
	for _, key := range fx.keys {
		t.cache.Invalidate(key)
	}

	if len(fx.events) > 0 {
		events := fx.events
		t.submit(op, jobBroadcast, func(context.Context) error {
			for _, ev := range events {
				t.broadcaster.Publish(ev.Room, ev.Name, ev.Payload)
			}
			return nil
		})
	}

	for _, entry := range fx.audits {
		t.submit(op, jobAudit, func(ctx context.Context) error {
			return t.audit.LogAction(ctx, entry)
		})
	}

	for _, n := range fx.notifications {
		t.submit(op, jobNotify, func(ctx context.Context) error {
			return t.deliver(ctx, n)
		})
	}
}

func (t *Transactor) deliver(ctx context.Context, n pendingNotification) error {
	if n.check != nil {
		var ok bool
		err := t.store.View(ctx, func(tx domain.Tx) error {
			var err error
			ok, err = n.check(tx)
			return err
		})
		if err != nil {
			return fmt.Errorf("recheck notification: %w", err)
		}
		if !ok {
			t.logger.Debug("notification skipped, target changed", "user", n.note.UserID)
			return nil
		}
	}
	return t.notifier.NotifyUser(ctx, n.note)
}

func (t *Transactor) submit(op, job string, fn domain.Job) {
	if err := t.queue.Submit(job, fn); err != nil {
		t.logger.Warn("post-commit job not queued", "op", op, "job", job, "error", err)
	}
}
