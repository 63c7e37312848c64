package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	electionModels "campusvote/internal/election/models"
	electionStore "campusvote/internal/election/store"
	userModels "campusvote/internal/user/models"
	"campusvote/internal/voting/metrics"
	"campusvote/internal/voting/models"
	"campusvote/internal/voting/service/mocks"
	voteStore "campusvote/internal/voting/store"
	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/platform/audit"
	"campusvote/pkg/platform/sentinel"
	"campusvote/pkg/requestcontext"
)

// =============================================================================
// Ballot Guard Test Suite
// =============================================================================
// Justification: the guard is the only thing standing between a request and
// a counted ballot. Each check is exercised on its own and in order, and the
// duplicate path must come from the store rather than a prior read.

type BallotGuardSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	votes     *mocks.MockVoteStore
	elections *mocks.MockElectionStore
	users     *mocks.MockUserStore
	audit     *mocks.MockAuditPublisher
	metrics   *metrics.Metrics
	service   *Service

	now      time.Time
	voter    id.UserID
	approved id.UserID
	pending  id.UserID
	election *electionModels.Election
}

func TestBallotGuardSuite(t *testing.T) {
	suite.Run(t, new(BallotGuardSuite))
}

func (s *BallotGuardSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.votes = mocks.NewMockVoteStore(s.ctrl)
	s.elections = mocks.NewMockElectionStore(s.ctrl)
	s.users = mocks.NewMockUserStore(s.ctrl)
	s.audit = mocks.NewMockAuditPublisher(s.ctrl)
	s.metrics = metrics.NewWith(prometheus.NewRegistry())
	s.service = New(s.votes, s.elections, s.users,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(s.audit),
		WithMetrics(s.metrics))

	s.now = time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	s.voter = id.UserID(uuid.New())
	s.approved = id.UserID(uuid.New())
	s.pending = id.UserID(uuid.New())
	s.election = activeElection(s.now, s.approved, s.pending)
}

func activeElection(now time.Time, approved, pending id.UserID) *electionModels.Election {
	return &electionModels.Election{
		ID:     id.ElectionID(uuid.New()),
		Title:  "Student Council",
		Type:   electionModels.TypeUniversity,
		Status: electionModels.StatusActive,
		Positions: []electionModels.Position{{
			Title: "Secretary",
			Candidates: []electionModels.Candidate{
				{UserID: approved, Approved: true},
				{UserID: pending},
			},
		}},
		Schedule: electionModels.Schedule{
			NominationStart: now.Add(-72 * time.Hour),
			NominationEnd:   now.Add(-48 * time.Hour),
			VotingStart:     now.Add(-time.Hour),
			VotingEnd:       now.Add(time.Hour),
		},
	}
}

func (s *BallotGuardSuite) ctx() context.Context {
	ctx := requestcontext.WithCaller(context.Background(), requestcontext.Principal{UserID: s.voter, Role: id.RoleUser})
	return requestcontext.WithTime(ctx, s.now)
}

func (s *BallotGuardSuite) cast(position string, candidate id.UserID) (*models.Vote, error) {
	return s.service.CastVote(s.ctx(), s.election.ID, position, candidate, s.voter, models.Fingerprint("10.0.0.1", "test"))
}

func (s *BallotGuardSuite) expectRejected(err error, code dErrors.Code, msg, reason string) {
	s.Require().Error(err)
	s.ErrorIs(err, dErrors.New(code, msg))
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.VotesRejected.WithLabelValues(reason)))
}

func (s *BallotGuardSuite) TestCastVote() {
	s.Run("stores exactly one vote and audits without the candidate", func() {
		s.elections.EXPECT().FindByID(gomock.Any(), s.election.ID).Return(s.election, nil)
		var stored *models.Vote
		s.votes.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, v *models.Vote) error {
			stored = v
			return nil
		})
		s.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
			s.Equal(string(audit.EventVoteCast), e.Action)
			s.Equal(s.election.ID.String()+"/Secretary", e.Subject)
			s.Empty(e.Reason)
			s.NotContains(e.Subject+e.Reason+e.ActorID, s.approved.String())
			return nil
		})

		vote, err := s.cast(" Secretary ", s.approved)
		s.Require().NoError(err)
		s.Same(stored, vote)
		s.Equal("Secretary", vote.Position.Title())
		s.Equal(s.voter, vote.VoterID)
		s.Equal(s.now, vote.CreatedAt)
		s.Equal(models.Fingerprint("10.0.0.1", "test"), vote.ClientHash)
		s.Equal(float64(1), promtest.ToFloat64(s.metrics.VotesCast))
	})
}

func (s *BallotGuardSuite) TestElectionMissing() {
	s.elections.EXPECT().FindByID(gomock.Any(), s.election.ID).Return(nil, sentinel.ErrNotFound)
	_, err := s.cast("Secretary", s.approved)
	s.expectRejected(err, dErrors.CodeNotFound, "election not found", metrics.ReasonElectionNotFound)
}

func (s *BallotGuardSuite) TestElectionNotActive() {
	s.election.Status = electionModels.StatusUpcoming
	s.elections.EXPECT().FindByID(gomock.Any(), s.election.ID).Return(s.election, nil)
	_, err := s.cast("Secretary", s.approved)
	s.expectRejected(err, dErrors.CodeInvalidState, "voting is not currently active for this election", metrics.ReasonNotActive)
}

func (s *BallotGuardSuite) TestStatusCheckedBeforeWindow() {
	s.election.Status = electionModels.StatusCompleted
	s.election.VotingEnd = s.now.Add(-time.Minute)
	s.elections.EXPECT().FindByID(gomock.Any(), s.election.ID).Return(s.election, nil)
	_, err := s.cast("Nonexistent", s.pending)
	s.expectRejected(err, dErrors.CodeInvalidState, "voting is not currently active for this election", metrics.ReasonNotActive)
}

func (s *BallotGuardSuite) TestOutsideWindowEvenWhenActive() {
	for name, mutate := range map[string]func(e *electionModels.Election){
		"before start": func(e *electionModels.Election) { e.VotingStart = s.now.Add(time.Second) },
		"after end":    func(e *electionModels.Election) { e.VotingEnd = s.now.Add(-time.Second) },
	} {
		s.Run(name, func() {
			e := activeElection(s.now, s.approved, s.pending)
			mutate(e)
			s.elections.EXPECT().FindByID(gomock.Any(), gomock.Any()).Return(e, nil)
			_, err := s.service.CastVote(s.ctx(), e.ID, "Secretary", s.approved, s.voter, "")
			s.Require().Error(err)
			s.ErrorIs(err, dErrors.New(dErrors.CodeInvalidState, "voting period is not active"))
		})
	}
	s.Equal(float64(2), promtest.ToFloat64(s.metrics.VotesRejected.WithLabelValues(metrics.ReasonOutsideWindow)))
}

func (s *BallotGuardSuite) TestWindowBoundsAreInclusive() {
	s.election.VotingEnd = s.now
	s.elections.EXPECT().FindByID(gomock.Any(), s.election.ID).Return(s.election, nil)
	s.votes.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	s.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

	_, err := s.cast("Secretary", s.approved)
	s.NoError(err)
}

func (s *BallotGuardSuite) TestUnknownPosition() {
	s.elections.EXPECT().FindByID(gomock.Any(), s.election.ID).Return(s.election, nil)
	_, err := s.cast("Treasurer", s.approved)
	s.expectRejected(err, dErrors.CodeInvalidState, "invalid position", metrics.ReasonInvalidPosition)
}

func (s *BallotGuardSuite) TestUnapprovedCandidate() {
	s.elections.EXPECT().FindByID(gomock.Any(), s.election.ID).Return(s.election, nil)
	_, err := s.cast("Secretary", s.pending)
	s.expectRejected(err, dErrors.CodeInvalidState, "invalid or unapproved candidate", metrics.ReasonInvalidCandidate)
}

func (s *BallotGuardSuite) TestUnapprovedCandidateRejectedForEveryRole() {
	for _, role := range []id.Role{id.RoleAdmin, id.RoleHouse, id.RoleSociety, id.RoleUser} {
		s.Run(string(role), func() {
			ctx := requestcontext.WithCaller(context.Background(), requestcontext.Principal{UserID: s.voter, Role: role})
			ctx = requestcontext.WithTime(ctx, s.now)
			s.elections.EXPECT().FindByID(gomock.Any(), s.election.ID).Return(s.election, nil)
			_, err := s.service.CastVote(ctx, s.election.ID, "Secretary", s.pending, s.voter, "")
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		})
	}
}

func (s *BallotGuardSuite) TestCandidateFromAnotherPosition() {
	s.election.Positions = append(s.election.Positions, electionModels.Position{
		Title:      "Treasurer",
		Candidates: []electionModels.Candidate{{UserID: id.UserID(uuid.New()), Approved: true}},
	})
	other := s.election.Positions[1].Candidates[0].UserID
	s.elections.EXPECT().FindByID(gomock.Any(), s.election.ID).Return(s.election, nil)
	_, err := s.cast("Secretary", other)
	s.expectRejected(err, dErrors.CodeInvalidState, "invalid or unapproved candidate", metrics.ReasonInvalidCandidate)
}

func (s *BallotGuardSuite) TestDuplicateFromStore() {
	s.elections.EXPECT().FindByID(gomock.Any(), s.election.ID).Return(s.election, nil)
	s.votes.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.ErrAlreadyExists)
	_, err := s.cast("Secretary", s.approved)
	s.expectRejected(err, dErrors.CodeConflict, "you have already voted for this position in this election", metrics.ReasonDuplicate)
}

func (s *BallotGuardSuite) TestStoreFailureIsInternal() {
	s.elections.EXPECT().FindByID(gomock.Any(), s.election.ID).Return(s.election, nil)
	s.votes.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))
	_, err := s.cast("Secretary", s.approved)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *BallotGuardSuite) TestListMyVotes() {
	other := activeElection(s.now, s.approved, s.pending)
	goneID := id.ElectionID(uuid.New())
	candidate, err := userModels.NewUser(s.approved, "Ada Lovelace", "ada@uni.edu", id.RoleUser, s.now)
	s.Require().NoError(err)

	votes := []*models.Vote{
		{ID: id.VoteID(uuid.New()), ElectionID: other.ID, Position: models.NewPositionRef("Secretary"), CandidateID: s.approved, VoterID: s.voter, CreatedAt: s.now},
		{ID: id.VoteID(uuid.New()), ElectionID: goneID, Position: models.NewPositionRef("Chair"), CandidateID: s.pending, VoterID: s.voter, CreatedAt: s.now},
	}
	s.votes.EXPECT().ListByVoter(gomock.Any(), s.voter).Return(votes, nil)
	s.elections.EXPECT().FindByID(gomock.Any(), other.ID).Return(other, nil)
	s.elections.EXPECT().FindByID(gomock.Any(), goneID).Return(nil, sentinel.ErrNotFound)
	s.users.EXPECT().FindByIDs(gomock.Any(), []id.UserID{s.approved, s.pending}).Return([]*userModels.User{candidate}, nil)

	got, err := s.service.ListMyVotes(s.ctx(), s.voter)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("Student Council", got[0].Election.Title)
	s.Equal("Ada Lovelace", got[0].CandidateName)
	s.Nil(got[1].Election)
	s.Empty(got[1].CandidateName)
}

// TestConcurrentDuplicateBallots runs the guard against the in-memory stores
// with many simultaneous submissions from one voter.
func TestConcurrentDuplicateBallots(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	approved := id.UserID(uuid.New())
	elections := electionStore.NewInMemoryElectionStore()
	election := activeElection(now, approved, id.UserID(uuid.New()))
	require.NoError(t, elections.Create(ctx, election))

	votes := voteStore.NewInMemoryVoteStore()
	svc := New(votes, elections, nil)
	voter := id.UserID(uuid.New())
	callCtx := requestcontext.WithTime(requestcontext.WithCaller(ctx, requestcontext.Principal{UserID: voter, Role: id.RoleUser}), now)

	const attempts = 40
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.CastVote(callCtx, election.ID, "Secretary", approved, voter, "")
		}()
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case dErrors.HasCode(err, dErrors.CodeConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, conflicts)

	stored, err := votes.ListByElection(ctx, election.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}
