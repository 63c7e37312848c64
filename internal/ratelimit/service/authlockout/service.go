// Package authlockout locks an email and IP pair out of password sign-in after
// repeated failures.
package authlockout

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"campusvote/internal/ratelimit/models"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/platform/audit"
	"campusvote/pkg/requestcontext"
)

type Store interface {
	Get(ctx context.Context, identifier string) (*models.AuthLockout, error)
	RecordFailure(ctx context.Context, identifier string, now, cutoff time.Time) (*models.AuthLockout, error)
	Lock(ctx context.Context, identifier string, until time.Time) error
	Clear(ctx context.Context, identifier string) error
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Config sets the lockout policy: MaxAttempts failures within Window lock the
// pair for LockDuration.
type Config struct {
	MaxAttempts  int
	Window       time.Duration
	LockDuration time.Duration
}

func DefaultConfig() Config {
	return Config{MaxAttempts: 5, Window: 15 * time.Minute, LockDuration: 15 * time.Minute}
}

var ErrLocked = dErrors.New(dErrors.CodeRateLimited, "too many failed sign-in attempts, try again later")

type Service struct {
	store          Store
	cfg            Config
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithConfig overrides the policy; non-positive fields keep their defaults.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		if cfg.MaxAttempts > 0 {
			s.cfg.MaxAttempts = cfg.MaxAttempts
		}
		if cfg.Window > 0 {
			s.cfg.Window = cfg.Window
		}
		if cfg.LockDuration > 0 {
			s.cfg.LockDuration = cfg.LockDuration
		}
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth lockout store is required")
	}
	s := &Service{store: store, cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Check returns ErrLocked while the pair is locked.
func (s *Service) Check(ctx context.Context, identifier, ip string) error {
	record, err := s.store.Get(ctx, models.NewAuthLockoutKey(identifier, ip))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to get auth lockout record")
	}
	if record != nil && record.IsLockedAt(requestcontext.Now(ctx)) {
		return ErrLocked
	}
	return nil
}

// RecordFailure counts a failed attempt and locks the pair once the window
// holds MaxAttempts failures.
func (s *Service) RecordFailure(ctx context.Context, identifier, ip string) error {
	key := models.NewAuthLockoutKey(identifier, ip)
	now := requestcontext.Now(ctx)
	record, err := s.store.RecordFailure(ctx, key, now, now.Add(-s.cfg.Window))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record auth failure")
	}
	if record.FailureCount < s.cfg.MaxAttempts || record.IsLockedAt(now) {
		return nil
	}
	until := now.Add(s.cfg.LockDuration)
	if err := s.store.Lock(ctx, key, until); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock auth identifier")
	}
	s.logAudit(ctx, identifier, until, record.FailureCount)
	return nil
}

// Clear forgets failures after a successful sign-in.
func (s *Service) Clear(ctx context.Context, identifier, ip string) error {
	if err := s.store.Clear(ctx, models.NewAuthLockoutKey(identifier, ip)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear auth failures")
	}
	return nil
}

// PurgeExpired removes records that no longer affect any decision.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	horizon := max(s.cfg.Window, s.cfg.LockDuration)
	return s.store.PurgeExpired(ctx, time.Now().Add(-horizon))
}

func (s *Service) logAudit(ctx context.Context, identifier string, until time.Time, failures int) {
	requestID := requestcontext.RequestID(ctx)
	if s.logger != nil {
		s.logger.WarnContext(ctx, string(audit.EventAuthLockout),
			"event", string(audit.EventAuthLockout),
			"log_type", "audit",
			"email", identifier,
			"failures", failures,
			"locked_until", until,
			"request_id", requestID,
		)
	}
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		Action:    string(audit.EventAuthLockout),
		Email:     identifier,
		Reason:    "too_many_failures",
		RequestID: requestID,
	})
}
