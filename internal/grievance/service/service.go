package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,AuditPublisher

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"campusvote/internal/grievance/metrics"
	"campusvote/internal/grievance/models"
	"campusvote/pkg/attrs"
	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/platform/audit"
	"campusvote/pkg/platform/sentinel"
	"campusvote/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, g *models.Grievance) error
	Update(ctx context.Context, g *models.Grievance) error
	FindByID(ctx context.Context, grievanceID id.GrievanceID) (*models.Grievance, error)
	ListBySubmitter(ctx context.Context, userID id.UserID) ([]*models.Grievance, error)
	List(ctx context.Context, status *models.Status) ([]*models.Grievance, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	grievances     Store
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

func New(grievances Store, opts ...Option) *Service {
	s := &Service{grievances: grievances}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SubmitGrievance struct {
	Title       string
	Description string
	ElectionID  *id.ElectionID
}

var errNotPermitted = dErrors.New(dErrors.CodeForbidden, "you do not have permission to access this grievance")

// ListMine returns the caller's own grievances, newest first.
func (s *Service) ListMine(ctx context.Context) ([]*models.Grievance, error) {
	out, err := s.grievances.ListBySubmitter(ctx, requestcontext.UserID(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list grievances")
	}
	return out, nil
}

func (s *Service) Submit(ctx context.Context, in SubmitGrievance) (*models.Grievance, error) {
	g, err := models.NewGrievance(id.GrievanceID(uuid.New()), in.Title, in.Description, in.ElectionID,
		requestcontext.UserID(ctx), requestcontext.Now(ctx))
	if err != nil {
		return nil, asValidation(err)
	}
	if err := s.grievances.Create(ctx, g); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to submit grievance")
	}
	if s.metrics != nil {
		s.metrics.IncrementSubmitted()
	}
	s.logAudit(ctx, audit.EventGrievanceSubmitted, "grievance_id", g.ID)
	return g, nil
}

// Get is open to admins and to the grievance's submitter.
func (s *Service) Get(ctx context.Context, grievanceID id.GrievanceID) (*models.Grievance, error) {
	g, err := s.find(ctx, grievanceID)
	if err != nil {
		return nil, err
	}
	caller := requestcontext.Caller(ctx)
	if !caller.IsAdmin() && g.SubmittedBy != caller.UserID {
		return nil, errNotPermitted
	}
	return g, nil
}

// List returns every grievance, optionally narrowed to one status. Admin only.
func (s *Service) List(ctx context.Context, status *models.Status) ([]*models.Grievance, error) {
	if !requestcontext.Caller(ctx).IsAdmin() {
		return nil, errNotPermitted
	}
	out, err := s.grievances.List(ctx, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list grievances")
	}
	return out, nil
}

// UpdateStatus sets the status and assignee. Admin only.
func (s *Service) UpdateStatus(ctx context.Context, grievanceID id.GrievanceID, status models.Status, assignedTo *id.UserID) (*models.Grievance, error) {
	if !requestcontext.Caller(ctx).IsAdmin() {
		return nil, errNotPermitted
	}
	g, err := s.find(ctx, grievanceID)
	if err != nil {
		return nil, err
	}
	g.SetStatus(status, assignedTo, requestcontext.Now(ctx))
	if err := s.save(ctx, g); err != nil {
		return nil, err
	}
	if s.metrics != nil && (status == models.StatusResolved || status == models.StatusRejected) {
		s.metrics.IncrementClosed(string(status))
	}
	s.logAudit(ctx, audit.EventGrievanceStatusChanged, "grievance_id", g.ID, "reason", string(status))
	return g, nil
}

// Resolve closes the grievance with a comment. Admin only.
func (s *Service) Resolve(ctx context.Context, grievanceID id.GrievanceID, comment string) (*models.Grievance, error) {
	caller := requestcontext.Caller(ctx)
	if !caller.IsAdmin() {
		return nil, errNotPermitted
	}
	g, err := s.find(ctx, grievanceID)
	if err != nil {
		return nil, err
	}
	if err := g.Resolve(comment, caller.UserID, requestcontext.Now(ctx)); err != nil {
		return nil, asValidation(err)
	}
	if err := s.save(ctx, g); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementClosed(string(models.StatusResolved))
	}
	s.logAudit(ctx, audit.EventGrievanceResolved, "grievance_id", g.ID, "user_id", g.SubmittedBy)
	return g, nil
}

func (s *Service) find(ctx context.Context, grievanceID id.GrievanceID) (*models.Grievance, error) {
	g, err := s.grievances.FindByID(ctx, grievanceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "grievance not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load grievance")
	}
	return g, nil
}

func (s *Service) save(ctx context.Context, g *models.Grievance) error {
	if err := s.grievances.Update(ctx, g); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "grievance not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update grievance")
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
		Subject:   attrs.ExtractString(attributes, "grievance_id"),
		Action:    string(event),
		Reason:    attrs.ExtractString(attributes, "reason"),
		RequestID: requestID,
		ActorID:   actor.String(),
	})
}
