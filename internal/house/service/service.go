package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks HouseStore,UserStore,AuditPublisher

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"campusvote/internal/house/models"
	userModels "campusvote/internal/user/models"
	"campusvote/pkg/attrs"
	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/platform/audit"
	"campusvote/pkg/platform/sentinel"
	pstrings "campusvote/pkg/platform/strings"
	"campusvote/pkg/platform/tx"
	"campusvote/pkg/requestcontext"
)

type HouseStore interface {
	Create(ctx context.Context, house *models.House) error
	Update(ctx context.Context, house *models.House) error
	Delete(ctx context.Context, houseID id.HouseID) error
	FindByID(ctx context.Context, houseID id.HouseID) (*models.House, error)
	List(ctx context.Context, activeOnly bool) ([]*models.House, error)
}

// UserStore is the part of the user directory that tracks house membership.
type UserStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*userModels.User, error)
	Update(ctx context.Context, user *userModels.User) error
	ClearHouse(ctx context.Context, houseID id.HouseID) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages houses and keeps user.HouseID in step with house members.
type Service struct {
	houses         HouseStore
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

func New(houses HouseStore, users UserStore, runner tx.Runner, opts ...Option) *Service {
	s := &Service{houses: houses, users: users, tx: runner}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateHouse struct {
	Name        string
	Description string
	Color       string
	Logo        string
}

// UpdateHouse fields are optional. A nil Secretaries leaves them unchanged.
type UpdateHouse struct {
	Name        *string
	Description *string
	Color       *string
	Logo        *string
	Active      *bool
	Secretaries []id.UserID
}

// List returns active houses.
func (s *Service) List(ctx context.Context) ([]*models.House, error) {
	houses, err := s.houses.List(ctx, true)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list houses")
	}
	return houses, nil
}

func (s *Service) Get(ctx context.Context, houseID id.HouseID) (*models.House, error) {
	house, err := s.houses.FindByID(ctx, houseID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "house not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load house")
	}
	return house, nil
}

func (s *Service) Create(ctx context.Context, in CreateHouse) (*models.House, error) {
	house, err := models.NewHouse(id.HouseID(uuid.New()), in.Name, in.Description, in.Color, in.Logo,
		requestcontext.UserID(ctx), requestcontext.Now(ctx))
	if err != nil {
		return nil, asValidation(err)
	}
	if err := s.houses.Create(ctx, house); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, dErrors.New(dErrors.CodeConflict, "a house with this name already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create house")
	}
	s.logAudit(ctx, audit.EventHouseCreated, "house_id", house.ID, "name", house.Name)
	return house, nil
}

func (s *Service) Update(ctx context.Context, houseID id.HouseID, in UpdateHouse) (*models.House, error) {
	house, err := s.Get(ctx, houseID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if err := house.Rename(*in.Name); err != nil {
			return nil, asValidation(err)
		}
	}
	if in.Description != nil {
		house.Description = strings.TrimSpace(*in.Description)
	}
	if in.Color != nil {
		if err := house.Recolor(*in.Color); err != nil {
			return nil, asValidation(err)
		}
	}
	if in.Logo != nil {
		house.Logo = strings.TrimSpace(*in.Logo)
	}
	if in.Active != nil {
		house.Active = *in.Active
	}
	if in.Secretaries != nil {
		if err := house.SetSecretaries(pstrings.Dedupe(in.Secretaries)); err != nil {
			return nil, asValidation(err)
		}
	}
	house.UpdatedAt = requestcontext.Now(ctx)
	if err := s.save(ctx, house); err != nil {
		return nil, err
	}
	return house, nil
}

// Delete removes the house and detaches its members.
func (s *Service) Delete(ctx context.Context, houseID id.HouseID) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.Get(ctx, houseID); err != nil {
			return err
		}
		if err := s.users.ClearHouse(ctx, houseID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to detach house members")
		}
		if err := s.houses.Delete(ctx, houseID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "house not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete house")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, audit.EventHouseDeleted, "house_id", houseID)
	return nil
}

// AddMembers assigns every user to the house. A user already in another
// house is moved. Either all users are added or none.
func (s *Service) AddMembers(ctx context.Context, houseID id.HouseID, userIDs []id.UserID) (*models.House, error) {
	userIDs = pstrings.Dedupe(userIDs)
	if len(userIDs) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one user is required")
	}
	var house *models.House
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		house, err = s.Get(ctx, houseID)
		if err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		for _, userID := range userIDs {
			user, err := s.loadUser(ctx, userID)
			if err != nil {
				return err
			}
			if user.HouseID != nil && *user.HouseID != houseID {
				if err := s.detachFrom(ctx, *user.HouseID, userID); err != nil {
					return err
				}
			}
			house.AddMember(userID)
			user.HouseID = &houseID
			user.UpdatedAt = now
			if err := s.users.Update(ctx, user); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
			}
		}
		house.UpdatedAt = now
		return s.save(ctx, house)
	})
	if err != nil {
		return nil, err
	}
	for _, userID := range userIDs {
		s.logAudit(ctx, audit.EventHouseMemberAdded, "house_id", houseID, "user_id", userID)
	}
	return house, nil
}

// RemoveMember drops the user from the house and its secretaries.
func (s *Service) RemoveMember(ctx context.Context, houseID id.HouseID, userID id.UserID) (*models.House, error) {
	var house *models.House
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		house, err = s.Get(ctx, houseID)
		if err != nil {
			return err
		}
		if !house.RemoveMember(userID) {
			return dErrors.New(dErrors.CodeNotFound, "user is not a member of this house")
		}
		now := requestcontext.Now(ctx)
		house.UpdatedAt = now
		if err := s.save(ctx, house); err != nil {
			return err
		}
		user, err := s.users.FindByID(ctx, userID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
		}
		if user.HouseID == nil || *user.HouseID != houseID {
			return nil
		}
		user.HouseID = nil
		user.UpdatedAt = now
		if err := s.users.Update(ctx, user); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventHouseMemberRemoved, "house_id", houseID, "user_id", userID)
	return house, nil
}

// detachFrom removes userID from a previous house. A vanished house is ignored.
func (s *Service) detachFrom(ctx context.Context, houseID id.HouseID, userID id.UserID) error {
	previous, err := s.houses.FindByID(ctx, houseID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load previous house")
	}
	if previous.RemoveMember(userID) {
		previous.UpdatedAt = requestcontext.Now(ctx)
		return s.save(ctx, previous)
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

func (s *Service) save(ctx context.Context, house *models.House) error {
	if err := s.houses.Update(ctx, house); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "house not found")
		case errors.Is(err, sentinel.ErrAlreadyExists):
			return dErrors.New(dErrors.CodeConflict, "a house with this name already exists")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save house")
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
		Subject:   attrs.ExtractString(attributes, "house_id"),
		Action:    string(event),
		RequestID: requestID,
		ActorID:   actor.String(),
	})
}
