// Package service implements the ballot guard: it decides whether a vote may
// be stored and keeps a voter to one counted ballot per position.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks VoteStore,ElectionStore,UserStore,AuditPublisher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	electionModels "campusvote/internal/election/models"
	userModels "campusvote/internal/user/models"
	"campusvote/internal/voting/metrics"
	"campusvote/internal/voting/models"
	"campusvote/pkg/attrs"
	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/platform/audit"
	"campusvote/pkg/platform/sentinel"
	"campusvote/pkg/requestcontext"
)

// VoteStore must make Create atomic with respect to the
// (election, position, voter) key and report duplicates as
// sentinel.ErrAlreadyExists.
type VoteStore interface {
	Create(ctx context.Context, vote *models.Vote) error
	ListByVoter(ctx context.Context, voterID id.UserID) ([]*models.Vote, error)
}

type ElectionStore interface {
	FindByID(ctx context.Context, electionID id.ElectionID) (*electionModels.Election, error)
}

type UserStore interface {
	FindByIDs(ctx context.Context, userIDs []id.UserID) ([]*userModels.User, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	votes          VoteStore
	elections      ElectionStore
	users          UserStore
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
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

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func New(votes VoteStore, elections ElectionStore, users UserStore, opts ...Option) *Service {
	s := &Service{
		votes:     votes,
		elections: elections,
		users:     users,
		tracer:    otel.Tracer("campusvote/voting"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CastVote records one ballot. Checks run in a fixed order and the first
// failure wins; uniqueness is left to the store's atomic insert.
func (s *Service) CastVote(ctx context.Context, electionID id.ElectionID, positionTitle string, candidateID, voterID id.UserID, clientFingerprint string) (*models.Vote, error) {
	start := time.Now()
	position := models.NewPositionRef(positionTitle)
	ctx, span := s.tracer.Start(ctx, "voting.CastVote", trace.WithAttributes(
		attribute.String("election_id", electionID.String()),
		attribute.String("position", position.Title()),
	))
	defer span.End()

	vote, reason, err := s.castVote(ctx, electionID, position, candidateID, voterID, clientFingerprint)
	if s.metrics != nil {
		s.metrics.ObserveCastVote(start)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		if s.metrics != nil {
			s.metrics.IncrementVotesRejected(reason)
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementVotesCast()
	}
	s.logAudit(ctx, audit.EventVoteCast, "election_id", electionID, "position", position.Title())
	return vote, nil
}

func (s *Service) castVote(ctx context.Context, electionID id.ElectionID, position models.PositionRef, candidateID, voterID id.UserID, fingerprint string) (*models.Vote, string, error) {
	now := requestcontext.Now(ctx)

	election, err := s.elections.FindByID(ctx, electionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, metrics.ReasonElectionNotFound, dErrors.New(dErrors.CodeNotFound, "election not found")
		}
		return nil, metrics.ReasonError, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load election")
	}
	if election.Status != electionModels.StatusActive {
		return nil, metrics.ReasonNotActive, dErrors.New(dErrors.CodeInvalidState, "voting is not currently active for this election")
	}
	if !election.InVotingWindow(now) {
		return nil, metrics.ReasonOutsideWindow, dErrors.New(dErrors.CodeInvalidState, "voting period is not active")
	}
	pos, ok := election.Position(position.Title())
	if !ok {
		return nil, metrics.ReasonInvalidPosition, dErrors.New(dErrors.CodeInvalidState, "invalid position")
	}
	if c, ok := pos.Candidate(candidateID); !ok || !c.Approved {
		return nil, metrics.ReasonInvalidCandidate, dErrors.New(dErrors.CodeInvalidState, "invalid or unapproved candidate")
	}

	vote := &models.Vote{
		ID:          id.VoteID(uuid.New()),
		ElectionID:  electionID,
		Position:    models.NewPositionRef(pos.Title),
		CandidateID: candidateID,
		VoterID:     voterID,
		ClientHash:  fingerprint,
		CreatedAt:   now,
	}
	if err := s.votes.Create(ctx, vote); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, metrics.ReasonDuplicate, dErrors.New(dErrors.CodeConflict, "you have already voted for this position in this election")
		}
		return nil, metrics.ReasonError, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save vote")
	}
	return vote, "", nil
}

// ElectionSummary is the slice of an election shown next to a voter's ballot.
type ElectionSummary struct {
	ID     id.ElectionID
	Title  string
	Type   electionModels.Type
	Status electionModels.Status
}

// MyVote is one of the caller's own ballots.
type MyVote struct {
	ID            id.VoteID
	Election      *ElectionSummary
	Position      string
	CandidateID   id.UserID
	CandidateName string
	CreatedAt     time.Time
}

// ListMyVotes returns voterID's ballots. It is the only read keyed by voter;
// the handler always passes the authenticated caller.
func (s *Service) ListMyVotes(ctx context.Context, voterID id.UserID) ([]MyVote, error) {
	votes, err := s.votes.ListByVoter(ctx, voterID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list votes")
	}

	elections := make(map[id.ElectionID]*ElectionSummary)
	candidateIDs := make([]id.UserID, 0, len(votes))
	for _, v := range votes {
		candidateIDs = append(candidateIDs, v.CandidateID)
		if _, seen := elections[v.ElectionID]; seen {
			continue
		}
		e, err := s.elections.FindByID(ctx, v.ElectionID)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			elections[v.ElectionID] = nil
		case err != nil:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load election")
		default:
			elections[v.ElectionID] = &ElectionSummary{ID: e.ID, Title: e.Title, Type: e.Type, Status: e.Status}
		}
	}

	names := make(map[id.UserID]string)
	if len(candidateIDs) > 0 {
		users, err := s.users.FindByIDs(ctx, candidateIDs)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load candidates")
		}
		for _, u := range users {
			names[u.ID] = u.Name
		}
	}

	out := make([]MyVote, 0, len(votes))
	for _, v := range votes {
		out = append(out, MyVote{
			ID:            v.ID,
			Election:      elections[v.ElectionID],
			Position:      v.Position.Title(),
			CandidateID:   v.CandidateID,
			CandidateName: names[v.CandidateID],
			CreatedAt:     v.CreatedAt,
		})
	}
	return out, nil
}

// logAudit never records the candidate, only the election and position.
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
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		UserID:    actor,
		Subject:   audit.ElectionSubject(attrs.ExtractString(attributes, "election_id"), attrs.ExtractString(attributes, "position")),
		Action:    string(event),
		RequestID: requestID,
		ActorID:   actor.String(),
	})
}
