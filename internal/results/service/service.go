// Package service tabulates published election results.
//
// Tabulation is a read-only snapshot: it takes no locks and may run while
// ballots are still being stored. Votes that no longer line up with the
// election's positions or approved candidates are skipped, never fatal.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks ElectionStore,VoteStore,UserStore,AuditPublisher

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	electionModels "campusvote/internal/election/models"
	"campusvote/internal/results/metrics"
	userModels "campusvote/internal/user/models"
	voteModels "campusvote/internal/voting/models"
	"campusvote/pkg/attrs"
	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/platform/audit"
	"campusvote/pkg/platform/sentinel"
	"campusvote/pkg/requestcontext"
)

type ElectionStore interface {
	FindByID(ctx context.Context, electionID id.ElectionID) (*electionModels.Election, error)
}

type VoteStore interface {
	ListByElection(ctx context.Context, electionID id.ElectionID) ([]*voteModels.Vote, error)
}

type UserStore interface {
	FindByIDs(ctx context.Context, userIDs []id.UserID) ([]*userModels.User, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	elections      ElectionStore
	votes          VoteStore
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

func New(elections ElectionStore, votes VoteStore, users UserStore, opts ...Option) *Service {
	s := &Service{
		elections: elections,
		votes:     votes,
		users:     users,
		tracer:    otel.Tracer("campusvote/results"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ElectionSummary identifies the election a result set belongs to.
type ElectionSummary struct {
	ID     id.ElectionID
	Title  string
	Type   electionModels.Type
	Status electionModels.Status
}

// CandidateResult is one approved candidate's tally. It never carries a
// voter reference.
type CandidateResult struct {
	CandidateID id.UserID
	Name        string
	StudentID   string
	Votes       int
	Percentage  int
}

// PositionResult holds the approved candidates for one position, sorted by
// votes descending with nomination order kept on ties.
type PositionResult struct {
	Title      string
	Candidates []CandidateResult
	TotalVotes int
}

// Results lists positions in the order the election declares them.
type Results struct {
	Election  ElectionSummary
	Positions []PositionResult
	Skipped   int
}

// ComputeResults tabulates electionID as of now.
//
// Results are released once the election is completed, or as soon as now
// reaches the end of voting even if the status was never advanced.
func (s *Service) ComputeResults(ctx context.Context, electionID id.ElectionID, now time.Time) (*Results, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "results.ComputeResults", trace.WithAttributes(
		attribute.String("election_id", electionID.String()),
	))
	defer span.End()

	res, err := s.computeResults(ctx, electionID, now)
	if s.metrics != nil {
		s.metrics.ObserveCompute(start)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}
	span.SetAttributes(attribute.Int("votes_skipped", res.Skipped))
	if s.metrics != nil {
		s.metrics.IncrementResultsComputed()
		s.metrics.AddVotesSkipped(res.Skipped)
	}
	if res.Skipped > 0 && s.logger != nil {
		s.logger.WarnContext(ctx, "skipped votes that no longer match the election",
			"election_id", electionID, "skipped", res.Skipped)
	}
	s.logAudit(ctx, audit.EventResultsViewed, "election_id", electionID)
	return res, nil
}

func (s *Service) computeResults(ctx context.Context, electionID id.ElectionID, now time.Time) (*Results, error) {
	election, err := s.elections.FindByID(ctx, electionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "election not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load election")
	}
	if !resultsReleased(election, now) {
		return nil, dErrors.New(dErrors.CodeForbidden, "results are not available until the election is completed")
	}

	tally, candidateIDs := newTally(election)
	if err := s.seedNames(ctx, tally, candidateIDs); err != nil {
		return nil, err
	}

	votes, err := s.votes.ListByElection(ctx, electionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load votes")
	}
	skipped := 0
	for _, v := range votes {
		if !tally.count(v.Position.Title(), v.CandidateID) {
			skipped++
		}
	}

	return &Results{
		Election: ElectionSummary{
			ID:     election.ID,
			Title:  election.Title,
			Type:   election.Type,
			Status: election.Status,
		},
		Positions: tally.finish(),
		Skipped:   skipped,
	}, nil
}

func resultsReleased(e *electionModels.Election, now time.Time) bool {
	return e.Status == electionModels.StatusCompleted || !now.Before(e.VotingEnd)
}

func (s *Service) seedNames(ctx context.Context, t tally, candidateIDs []id.UserID) error {
	if len(candidateIDs) == 0 {
		return nil
	}
	users, err := s.users.FindByIDs(ctx, candidateIDs)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load candidates")
	}
	byID := make(map[id.UserID]*userModels.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, b := range t.buckets {
		for i := range b.Candidates {
			if u, ok := byID[b.Candidates[i].CandidateID]; ok {
				b.Candidates[i].Name = u.Name
				b.Candidates[i].StudentID = u.StudentID
			}
		}
	}
	return nil
}

type tally struct {
	buckets []*PositionResult
	byTitle map[string]*PositionResult
}

func newTally(e *electionModels.Election) (tally, []id.UserID) {
	t := tally{byTitle: make(map[string]*PositionResult, len(e.Positions))}
	var candidateIDs []id.UserID
	for _, p := range e.Positions {
		b := &PositionResult{Title: p.Title, Candidates: []CandidateResult{}}
		for _, c := range p.ApprovedCandidates() {
			b.Candidates = append(b.Candidates, CandidateResult{CandidateID: c.UserID})
			candidateIDs = append(candidateIDs, c.UserID)
		}
		t.buckets = append(t.buckets, b)
		t.byTitle[p.Title] = b
	}
	return t, candidateIDs
}

// count reports false when the vote matches no bucket or no approved
// candidate in it; such a vote counts toward nothing.
func (t tally) count(position string, candidateID id.UserID) bool {
	b, ok := t.byTitle[position]
	if !ok {
		return false
	}
	for i := range b.Candidates {
		if b.Candidates[i].CandidateID == candidateID {
			b.Candidates[i].Votes++
			b.TotalVotes++
			return true
		}
	}
	return false
}

func (t tally) finish() []PositionResult {
	out := make([]PositionResult, 0, len(t.buckets))
	for _, b := range t.buckets {
		for i := range b.Candidates {
			b.Candidates[i].Percentage = percentage(b.Candidates[i].Votes, b.TotalVotes)
		}
		sort.SliceStable(b.Candidates, func(i, j int) bool {
			return b.Candidates[i].Votes > b.Candidates[j].Votes
		})
		out = append(out, *b)
	}
	return out
}

func percentage(votes, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(votes) / float64(total) * 100))
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
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		UserID:    actor,
		Subject:   attrs.ExtractString(attributes, "election_id"),
		Action:    string(event),
		RequestID: requestID,
		ActorID:   actor.String(),
	})
}
