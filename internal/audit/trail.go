package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/relayshell/internal/device"
)

// observerWriteTimeout bounds writes made from observer callbacks, which
// carry no context of their own.
const observerWriteTimeout = 2 * time.Second

// Clock supplies entry timestamps.
type Clock interface {
	Now() time.Time
}

// Logger defines the logging interface for the trail.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Trail records runtime events into a Repository.
type Trail struct {
	repo      Repository
	clock     Clock
	retention time.Duration
	logger    Logger
}

// NewTrail creates a Trail keeping entries for retention.
func NewTrail(repo Repository, clock Clock, retention time.Duration) *Trail {
	return &Trail{
		repo:      repo,
		clock:     clock,
		retention: retention,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the trail.
func (t *Trail) SetLogger(logger Logger) {
	t.logger = logger
}

// OutputChanged implements device.Observer.
func (t *Trail) OutputChanged(name string, on bool, source device.Source) {
	t.recordChange(ActionOutput, EntityOutput, name, on, source)
}

// FlagChanged implements device.Observer.
func (t *Trail) FlagChanged(name string, on bool, source device.Source) {
	t.recordChange(ActionFlag, EntityFlag, name, on, source)
}

func (t *Trail) recordChange(action, entity, name string, on bool, source device.Source) {
	ctx, cancel := context.WithTimeout(context.Background(), observerWriteTimeout)
	defer cancel()

	t.write(ctx, &AuditLog{
		Action:     action,
		EntityType: entity,
		EntityID:   name,
		Source:     string(source),
		Details:    map[string]any{"on": on},
	})
}

// SessionOpened records an accepted connection.
func (t *Trail) SessionOpened(ctx context.Context, remote string) {
	t.write(ctx, &AuditLog{
		Action:     ActionSessionOpen,
		EntityType: EntitySession,
		Remote:     remote,
		Source:     "shell",
	})
}

// SessionClosed records the end of a session and why it ended.
func (t *Trail) SessionClosed(ctx context.Context, remote, reason string, duration time.Duration) {
	t.write(ctx, &AuditLog{
		Action:     ActionSessionClose,
		EntityType: EntitySession,
		Remote:     remote,
		Source:     "shell",
		Details: map[string]any{
			"reason":      reason,
			"duration_ms": duration.Milliseconds(),
		},
	})
}

func (t *Trail) write(ctx context.Context, log *AuditLog) {
	log.CreatedAt = t.clock.Now()
	if err := t.repo.Create(ctx, log); err != nil {
		t.logger.Warn("writing audit log failed", "action", log.Action, "error", err)
	}
}

// LastSession returns the most recent session close entry, or nil when
// none has been recorded.
func (t *Trail) LastSession(ctx context.Context) (*AuditLog, error) {
	res, err := t.repo.List(ctx, Filter{Action: ActionSessionClose, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("reading last session: %w", err)
	}
	if len(res.Logs) == 0 {
		return nil, nil
	}
	return &res.Logs[0], nil
}

// Prune deletes entries older than the retention period.
func (t *Trail) Prune(ctx context.Context) error {
	cutoff := t.clock.Now().Add(-t.retention)
	n, err := t.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("pruning audit logs: %w", err)
	}
	if n > 0 {
		t.logger.Info("audit logs pruned", "deleted", n, "cutoff", cutoff)
	}
	return nil
}
