package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,AuditPublisher

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"campusvote/internal/user/metrics"
	"campusvote/internal/user/models"
	"campusvote/pkg/attrs"
	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/platform/audit"
	"campusvote/pkg/platform/sentinel"
	"campusvote/pkg/requestcontext"
	"campusvote/pkg/secrets"
)

// Store is the user directory shared by the user, auth, house, society and
// results modules.
type Store interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, userID id.UserID) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages user accounts.
type Service struct {
	users          Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
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

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(users Store, opts ...Option) *Service {
	s := &Service{users: users}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpdateProfile carries the self-service fields. Nil means unchanged.
type UpdateProfile struct {
	Name  *string
	Email *string
}

// CreateUser is the admin account creation input.
type CreateUser struct {
	Name      string
	Email     string
	Password  string
	StudentID string
	Role      id.Role
	HouseID   *id.HouseID
}

// UpdateUser is the admin update input. Nil means unchanged.
type UpdateUser struct {
	Name      *string
	Email     *string
	Password  *string
	StudentID *string
	Role      *id.Role
	Active    *bool
}

// GetMe returns the caller's own account.
func (s *Service) GetMe(ctx context.Context) (*models.User, error) {
	return s.Get(ctx, requestcontext.UserID(ctx))
}

// UpdateMe changes the caller's name or email.
func (s *Service) UpdateMe(ctx context.Context, in UpdateProfile) (*models.User, error) {
	user, err := s.Get(ctx, requestcontext.UserID(ctx))
	if err != nil {
		return nil, err
	}
	if err := applyProfile(user, in.Name, in.Email); err != nil {
		return nil, err
	}
	user.UpdatedAt = requestcontext.Now(ctx)
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventUserUpdated, "user_id", user.ID)
	return user, nil
}

func (s *Service) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return users, nil
}

func (s *Service) Get(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

func (s *Service) Create(ctx context.Context, in CreateUser) (*models.User, error) {
	now := requestcontext.Now(ctx)
	user, err := models.NewUser(id.UserID(uuid.New()), in.Name, in.Email, in.Role, now)
	if err != nil {
		return nil, asValidation(err)
	}
	user.StudentID = strings.TrimSpace(in.StudentID)
	user.HouseID = in.HouseID
	if in.Password != "" {
		hash, err := secrets.Hash(in.Password)
		if err != nil {
			return nil, err
		}
		user.SetPasswordHash(hash, now)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, dErrors.New(dErrors.CodeConflict, "a user with this email or student id already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	s.logAudit(ctx, audit.EventUserCreated, "user_id", user.ID, "email", user.Email)
	if s.metrics != nil {
		s.metrics.IncrementUsersCreated()
	}
	return user, nil
}

func (s *Service) Update(ctx context.Context, userID id.UserID, in UpdateUser) (*models.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	if err := applyProfile(user, in.Name, in.Email); err != nil {
		return nil, err
	}
	if in.StudentID != nil {
		user.StudentID = strings.TrimSpace(*in.StudentID)
	}
	if in.Role != nil {
		if !in.Role.IsValid() {
			return nil, dErrors.New(dErrors.CodeValidation, "invalid role")
		}
		user.Role = *in.Role
	}
	if in.Active != nil {
		user.Active = *in.Active
	}
	if in.Password != nil {
		hash, err := secrets.Hash(*in.Password)
		if err != nil {
			return nil, err
		}
		user.SetPasswordHash(hash, now)
	}
	user.UpdatedAt = now

	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventUserUpdated, "user_id", user.ID)
	return user, nil
}

func (s *Service) Delete(ctx context.Context, userID id.UserID) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete user")
	}
	s.logAudit(ctx, audit.EventUserDeleted, "user_id", userID)
	if s.metrics != nil {
		s.metrics.IncrementUsersDeleted()
	}
	return nil
}

func (s *Service) save(ctx context.Context, user *models.User) error {
	if err := s.users.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		case errors.Is(err, sentinel.ErrAlreadyExists):
			return dErrors.New(dErrors.CodeConflict, "a user with this email or student id already exists")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
	}
	return nil
}

func applyProfile(user *models.User, name, address *string) error {
	if name != nil {
		if err := user.Rename(*name); err != nil {
			return asValidation(err)
		}
	}
	if address != nil {
		if err := user.ChangeEmail(*address); err != nil {
			return asValidation(err)
		}
	}
	return nil
}

func asValidation(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		var de *dErrors.Error
		if errors.As(err, &de) {
			return dErrors.New(dErrors.CodeValidation, de.Message)
		}
	}
	return err
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(event), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	actor := requestcontext.UserID(ctx)
	userID, ok := attrs.Extract[id.UserID](attributes, "user_id")
	if !ok {
		userID = actor
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		UserID:    userID,
		Subject:   userID.String(),
		Action:    string(event),
		Email:     attrs.ExtractString(attributes, "email"),
		RequestID: requestID,
		ActorID:   actor.String(),
	})
}
