package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,AuditPublisher

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"campusvote/internal/election/metrics"
	"campusvote/internal/election/models"
	"campusvote/internal/election/store"
	"campusvote/pkg/attrs"
	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/platform/audit"
	"campusvote/pkg/platform/sentinel"
	"campusvote/pkg/platform/tx"
	"campusvote/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, election *models.Election) error
	Update(ctx context.Context, election *models.Election) error
	Delete(ctx context.Context, electionID id.ElectionID) error
	FindByID(ctx context.Context, electionID id.ElectionID) (*models.Election, error)
	FindByIDForUpdate(ctx context.Context, electionID id.ElectionID) (*models.Election, error)
	List(ctx context.Context, filter store.Filter) ([]*models.Election, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns the election lifecycle: creation, scheduling, positions and
// nominations. Ballots live in the voting package.
type Service struct {
	store          Store
	tx             tx.Runner
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

func New(elections Store, runner tx.Runner, opts ...Option) *Service {
	s := &Service{store: elections, tx: runner}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type NewPosition struct {
	Title       string
	Description string
}

type CreateElection struct {
	Title       string
	Description string
	Type        models.Type
	HouseID     *id.HouseID
	SocietyID   *id.SocietyID
	Positions   []NewPosition
	Schedule    models.Schedule
}

// UpdateElection fields are optional; nil leaves the value unchanged.
type UpdateElection struct {
	Title           *string
	Description     *string
	NominationStart *time.Time
	NominationEnd   *time.Time
	VotingStart     *time.Time
	VotingEnd       *time.Time
	Status          *models.Status
}

func (s *Service) List(ctx context.Context, filter store.Filter) ([]*models.Election, error) {
	elections, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list elections")
	}
	return elections, nil
}

func (s *Service) Get(ctx context.Context, electionID id.ElectionID) (*models.Election, error) {
	return s.find(ctx, s.store.FindByID, electionID)
}

func (s *Service) Create(ctx context.Context, in CreateElection) (*models.Election, error) {
	switch in.Type {
	case models.TypeHouse:
		if in.HouseID == nil {
			return nil, dErrors.New(dErrors.CodeValidation, "house is required for house elections")
		}
	case models.TypeSociety:
		if in.SocietyID == nil {
			return nil, dErrors.New(dErrors.CodeValidation, "society is required for society elections")
		}
	}
	if err := authorizeCreate(ctx, in); err != nil {
		return nil, err
	}

	positions := make([]models.Position, 0, len(in.Positions))
	for _, p := range in.Positions {
		positions = append(positions, models.Position{Title: p.Title, Description: p.Description})
	}
	election, err := models.NewElection(models.NewElectionParams{
		ID:          id.ElectionID(uuid.New()),
		Title:       in.Title,
		Description: in.Description,
		Type:        in.Type,
		HouseID:     in.HouseID,
		SocietyID:   in.SocietyID,
		Positions:   positions,
		Schedule:    in.Schedule,
		CreatedBy:   requestcontext.UserID(ctx),
		Now:         requestcontext.Now(ctx),
	})
	if err != nil {
		return nil, asValidation(err)
	}
	if err := s.store.Create(ctx, election); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create election")
	}
	if s.metrics != nil {
		s.metrics.IncrementElectionsCreated()
	}
	s.logAudit(ctx, audit.EventElectionCreated, "election_id", election.ID, "type", string(election.Type))
	return election, nil
}

func (s *Service) Update(ctx context.Context, electionID id.ElectionID, in UpdateElection) (*models.Election, error) {
	var election *models.Election
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		election, err = s.find(ctx, s.store.FindByIDForUpdate, electionID)
		if err != nil {
			return err
		}
		if err := authorizeOwner(ctx, election); err != nil {
			return err
		}
		if err := applyUpdate(ctx, election, in); err != nil {
			return err
		}
		election.UpdatedAt = requestcontext.Now(ctx)
		return s.save(ctx, election)
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventElectionUpdated, "election_id", electionID, "status", string(election.Status))
	return election, nil
}

func applyUpdate(ctx context.Context, election *models.Election, in UpdateElection) error {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return dErrors.New(dErrors.CodeValidation, "election title is required")
		}
		election.Title = title
	}
	if in.Description != nil {
		election.Description = strings.TrimSpace(*in.Description)
	}

	schedule := election.Schedule
	for _, f := range []struct {
		in  *time.Time
		out *time.Time
	}{
		{in.NominationStart, &schedule.NominationStart},
		{in.NominationEnd, &schedule.NominationEnd},
		{in.VotingStart, &schedule.VotingStart},
		{in.VotingEnd, &schedule.VotingEnd},
	} {
		if f.in != nil {
			*f.out = *f.in
		}
	}
	if schedule != election.Schedule {
		if err := election.Reschedule(schedule); err != nil {
			return asValidation(err)
		}
	}

	if in.Status != nil && *in.Status != election.Status {
		if !in.Status.IsValid() {
			return dErrors.New(dErrors.CodeValidation, "invalid election status")
		}
		if err := election.TransitionTo(*in.Status, requestcontext.Now(ctx)); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an election that is neither active nor completed.
func (s *Service) Delete(ctx context.Context, electionID id.ElectionID) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		election, err := s.find(ctx, s.store.FindByIDForUpdate, electionID)
		if err != nil {
			return err
		}
		if err := authorizeOwner(ctx, election); err != nil {
			return err
		}
		if !election.Deletable() {
			return dErrors.New(dErrors.CodeInvalidState, "cannot delete an active or completed election")
		}
		if err := s.store.Delete(ctx, electionID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "election not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete election")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, audit.EventElectionDeleted, "election_id", electionID)
	return nil
}

// AddPosition appends a position to a draft election.
func (s *Service) AddPosition(ctx context.Context, electionID id.ElectionID, in NewPosition) (*models.Election, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "position title is required")
	}
	var election *models.Election
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		election, err = s.find(ctx, s.store.FindByIDForUpdate, electionID)
		if err != nil {
			return err
		}
		if err := authorizeOwner(ctx, election); err != nil {
			return err
		}
		if election.Status != models.StatusDraft {
			return dErrors.New(dErrors.CodeInvalidState, "positions can only be added to draft elections")
		}
		if err := election.AddPosition(in.Title, in.Description); err != nil {
			return asValidation(err)
		}
		election.UpdatedAt = requestcontext.Now(ctx)
		return s.save(ctx, election)
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventPositionAdded, "election_id", electionID, "position", strings.TrimSpace(in.Title))
	return election, nil
}

// Nominate registers the caller as an unapproved candidate for a position.
func (s *Service) Nominate(ctx context.Context, electionID id.ElectionID, positionTitle, manifesto string) (*models.Election, error) {
	positionTitle = strings.TrimSpace(positionTitle)
	if positionTitle == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "position is required")
	}
	caller := requestcontext.UserID(ctx)
	now := requestcontext.Now(ctx)

	var election *models.Election
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		election, err = s.find(ctx, s.store.FindByIDForUpdate, electionID)
		if err != nil {
			return err
		}
		if !nominationsOpen(election, now) {
			return dErrors.New(dErrors.CodeInvalidState, "nomination period is not active")
		}
		position, ok := election.Position(positionTitle)
		if !ok {
			return dErrors.New(dErrors.CodeNotFound, "position not found")
		}
		if _, exists := position.Candidate(caller); exists {
			return dErrors.New(dErrors.CodeConflict, "you have already been nominated for this position")
		}
		position.Candidates = append(position.Candidates, models.Candidate{
			UserID:      caller,
			Manifesto:   strings.TrimSpace(manifesto),
			NominatedAt: now,
		})
		election.UpdatedAt = now
		return s.save(ctx, election)
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementNominations()
	}
	s.logAudit(ctx, audit.EventNominationSubmitted, "election_id", electionID, "position", positionTitle)
	return election, nil
}

func nominationsOpen(election *models.Election, now time.Time) bool {
	if election.Status == models.StatusCancelled || election.Status == models.StatusCompleted {
		return false
	}
	return election.InNominationWindow(now)
}

// ApproveNomination marks a candidate as approved. Only approved candidates
// can receive votes.
func (s *Service) ApproveNomination(ctx context.Context, electionID id.ElectionID, positionTitle string, candidateID id.UserID) (*models.Election, error) {
	caller := requestcontext.Caller(ctx)
	if !caller.Role.OneOf(id.RoleAdmin, id.RoleHouse, id.RoleSociety) {
		return nil, dErrors.New(dErrors.CodeForbidden, "you do not have permission to perform this action")
	}
	now := requestcontext.Now(ctx)

	var election *models.Election
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		election, err = s.find(ctx, s.store.FindByIDForUpdate, electionID)
		if err != nil {
			return err
		}
		if err := authorizeOwner(ctx, election); err != nil {
			return err
		}
		position, ok := election.Position(positionTitle)
		if !ok {
			return dErrors.New(dErrors.CodeNotFound, "position not found")
		}
		candidate, ok := position.Candidate(candidateID)
		if !ok {
			return dErrors.New(dErrors.CodeNotFound, "candidate not found")
		}
		if candidate.Approved {
			return nil
		}
		approver := caller.UserID
		approvedAt := now
		candidate.Approved = true
		candidate.ApprovedBy = &approver
		candidate.ApprovedAt = &approvedAt
		election.UpdatedAt = now
		return s.save(ctx, election)
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventNominationApproved,
		"election_id", electionID, "user_id", candidateID, "position", strings.TrimSpace(positionTitle))
	return election, nil
}

// authorizeCreate lets admins create any election, house-role callers
// elections for their own house and society-role callers elections for
// societies they belong to.
func authorizeCreate(ctx context.Context, in CreateElection) error {
	caller := requestcontext.Caller(ctx)
	switch {
	case caller.IsAdmin():
		return nil
	case in.Type == models.TypeHouse && caller.Role == id.RoleHouse:
		if !caller.InHouse(*in.HouseID) {
			return dErrors.New(dErrors.CodeForbidden, "you can only create elections for your own house")
		}
		return nil
	case in.Type == models.TypeSociety && caller.Role == id.RoleSociety:
		if !caller.InSociety(*in.SocietyID) {
			return dErrors.New(dErrors.CodeForbidden, "you can only create elections for your own society")
		}
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "only administrators can create university-wide elections")
}

func authorizeOwner(ctx context.Context, election *models.Election) error {
	caller := requestcontext.Caller(ctx)
	switch {
	case caller.IsAdmin():
		return nil
	case election.CreatedBy == caller.UserID:
		return nil
	case caller.Role == id.RoleHouse && election.HouseID != nil && caller.InHouse(*election.HouseID):
		return nil
	case caller.Role == id.RoleSociety && election.SocietyID != nil && caller.InSociety(*election.SocietyID):
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "you do not have permission to modify this election")
}

func (s *Service) find(ctx context.Context, load func(context.Context, id.ElectionID) (*models.Election, error), electionID id.ElectionID) (*models.Election, error) {
	election, err := load(ctx, electionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "election not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load election")
	}
	return election, nil
}

func (s *Service) save(ctx context.Context, election *models.Election) error {
	if err := s.store.Update(ctx, election); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "election not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save election")
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
		Subject:   audit.ElectionSubject(attrs.ExtractString(attributes, "election_id"), attrs.ExtractString(attributes, "position")),
		Action:    string(event),
		RequestID: requestID,
		ActorID:   actor.String(),
	})
}
