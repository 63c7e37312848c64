package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks SocietyStore,UserStore,AuditPublisher

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"campusvote/internal/society/models"
	userModels "campusvote/internal/user/models"
	"campusvote/pkg/attrs"
	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/platform/audit"
	"campusvote/pkg/platform/sentinel"
	"campusvote/pkg/platform/tx"
	"campusvote/pkg/requestcontext"
)

type SocietyStore interface {
	Create(ctx context.Context, society *models.Society) error
	Update(ctx context.Context, society *models.Society) error
	Delete(ctx context.Context, societyID id.SocietyID) error
	FindByID(ctx context.Context, societyID id.SocietyID) (*models.Society, error)
	List(ctx context.Context, category models.Category) ([]*models.Society, error)
}

// UserStore is the part of the user directory that tracks society membership.
type UserStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*userModels.User, error)
	Update(ctx context.Context, user *userModels.User) error
	RemoveSociety(ctx context.Context, societyID id.SocietyID) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	societies      SocietyStore
	users          UserStore
	tx             tx.Runner
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

func New(societies SocietyStore, users UserStore, runner tx.Runner, opts ...Option) *Service {
	s := &Service{societies: societies, users: users, tx: runner}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateSociety struct {
	Name        string
	Description string
	Category    models.Category
	Logo        string
}

type UpdateSociety struct {
	Name        *string
	Description *string
	Category    *models.Category
	Logo        *string
	Active      *bool
}

// NewMember is one entry of an AddMembers call. An empty Role means member.
type NewMember struct {
	UserID id.UserID
	Role   models.MemberRole
}

func (s *Service) List(ctx context.Context, category models.Category) ([]*models.Society, error) {
	if category != "" && !category.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid society category")
	}
	societies, err := s.societies.List(ctx, category)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list societies")
	}
	return societies, nil
}

func (s *Service) Get(ctx context.Context, societyID id.SocietyID) (*models.Society, error) {
	society, err := s.societies.FindByID(ctx, societyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "society not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load society")
	}
	return society, nil
}

// Create makes the caller the society's first lead and adds the society to
// their memberships.
func (s *Service) Create(ctx context.Context, in CreateSociety) (*models.Society, error) {
	creator := requestcontext.UserID(ctx)
	now := requestcontext.Now(ctx)
	society, err := models.NewSociety(id.SocietyID(uuid.New()), in.Name, in.Description, in.Category, in.Logo, creator, now)
	if err != nil {
		return nil, asValidation(err)
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		user, err := s.loadUser(ctx, creator)
		if err != nil {
			return err
		}
		if err := s.societies.Create(ctx, society); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyExists) {
				return dErrors.New(dErrors.CodeConflict, "a society with this name already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create society")
		}
		return s.joinUser(ctx, user, society.ID)
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventSocietyCreated, "society_id", society.ID, "name", society.Name)
	return society, nil
}

func (s *Service) Update(ctx context.Context, societyID id.SocietyID, in UpdateSociety) (*models.Society, error) {
	society, err := s.Get(ctx, societyID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if err := society.Rename(*in.Name); err != nil {
			return nil, asValidation(err)
		}
	}
	if in.Description != nil {
		society.Description = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		if err := society.Recategorize(*in.Category); err != nil {
			return nil, asValidation(err)
		}
	}
	if in.Logo != nil {
		society.Logo = strings.TrimSpace(*in.Logo)
	}
	if in.Active != nil {
		society.Active = *in.Active
	}
	society.UpdatedAt = requestcontext.Now(ctx)
	if err := s.save(ctx, society); err != nil {
		return nil, err
	}
	return society, nil
}

func (s *Service) Delete(ctx context.Context, societyID id.SocietyID) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.Get(ctx, societyID); err != nil {
			return err
		}
		if err := s.users.RemoveSociety(ctx, societyID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to detach society members")
		}
		if err := s.societies.Delete(ctx, societyID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete society")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, audit.EventSocietyDeleted, "society_id", societyID)
	return nil
}

// AddMembers adds users or updates their role. Only a society manager may
// call it.
func (s *Service) AddMembers(ctx context.Context, societyID id.SocietyID, members []NewMember) (*models.Society, error) {
	if len(members) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one member is required")
	}
	for i := range members {
		if members[i].Role == "" {
			members[i].Role = models.MemberRoleMember
		}
		if !members[i].Role.IsValid() {
			return nil, dErrors.New(dErrors.CodeValidation, "invalid member role")
		}
	}

	var society *models.Society
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		society, err = s.Get(ctx, societyID)
		if err != nil {
			return err
		}
		if err := authorizeManager(ctx, society); err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		for _, m := range members {
			user, err := s.loadUser(ctx, m.UserID)
			if err != nil {
				return err
			}
			society.UpsertMember(m.UserID, m.Role, now)
			if err := s.joinUser(ctx, user, societyID); err != nil {
				return err
			}
		}
		society.UpdatedAt = now
		return s.save(ctx, society)
	})
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		s.logAudit(ctx, audit.EventSocietyMemberAdded, "society_id", societyID, "user_id", m.UserID, "reason", string(m.Role))
	}
	return society, nil
}

func (s *Service) RemoveMember(ctx context.Context, societyID id.SocietyID, userID id.UserID) (*models.Society, error) {
	var society *models.Society
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		society, err = s.Get(ctx, societyID)
		if err != nil {
			return err
		}
		if err := authorizeManager(ctx, society); err != nil {
			return err
		}
		if !society.RemoveMember(userID) {
			return dErrors.New(dErrors.CodeNotFound, "user is not a member of this society")
		}
		now := requestcontext.Now(ctx)
		society.UpdatedAt = now
		if err := s.save(ctx, society); err != nil {
			return err
		}
		user, err := s.users.FindByID(ctx, userID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
		}
		if !user.InSociety(societyID) {
			return nil
		}
		user.LeaveSociety(societyID)
		user.UpdatedAt = now
		if err := s.users.Update(ctx, user); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventSocietyMemberRemoved, "society_id", societyID, "user_id", userID)
	return society, nil
}

// authorizeManager allows admins, leads of the society and society-role
// callers who belong to it.
func authorizeManager(ctx context.Context, society *models.Society) error {
	caller := requestcontext.Caller(ctx)
	switch {
	case caller.IsAdmin():
		return nil
	case society.IsLead(caller.UserID):
		return nil
	case caller.Role == id.RoleSociety && caller.InSociety(society.ID):
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "you do not have permission to manage this society")
}

func (s *Service) joinUser(ctx context.Context, user *userModels.User, societyID id.SocietyID) error {
	if user.InSociety(societyID) {
		return nil
	}
	user.JoinSociety(societyID)
	user.UpdatedAt = requestcontext.Now(ctx)
	if err := s.users.Update(ctx, user); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
	}
	return nil
}

func (s *Service) loadUser(ctx context.Context, userID id.UserID) (*userModels.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user "+userID.String()+" not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

func (s *Service) save(ctx context.Context, society *models.Society) error {
	if err := s.societies.Update(ctx, society); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "society not found")
		case errors.Is(err, sentinel.ErrAlreadyExists):
			return dErrors.New(dErrors.CodeConflict, "a society with this name already exists")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save society")
	}
	return nil
}

func asValidation(err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) && de.Code == dErrors.CodeInvariantViolation {
		return dErrors.New(dErrors.CodeValidation, de.Message)
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
		Subject:   attrs.ExtractString(attributes, "society_id"),
		Action:    string(event),
		Reason:    attrs.ExtractString(attributes, "reason"),
		RequestID: requestID,
		ActorID:   actor.String(),
	})
}
