package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
)

var base = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

func schedule() Schedule {
	return Schedule{
		NominationStart: base,
		NominationEnd:   base.Add(48 * time.Hour),
		VotingStart:     base.Add(72 * time.Hour),
		VotingEnd:       base.Add(96 * time.Hour),
	}
}

func params() NewElectionParams {
	return NewElectionParams{
		ID:        id.ElectionID(uuid.New()),
		Title:     "Student Council 2026",
		Type:      TypeUniversity,
		Positions: []Position{{Title: "President"}, {Title: "Secretary"}},
		Schedule:  schedule(),
		CreatedBy: id.UserID(uuid.New()),
		Now:       base.Add(-time.Hour),
	}
}

func TestNewElection(t *testing.T) {
	t.Run("valid election starts as draft", func(t *testing.T) {
		e, err := NewElection(params())
		require.NoError(t, err)
		assert.Equal(t, StatusDraft, e.Status)
		assert.Len(t, e.Positions, 2)
	})

	cases := map[string]func(p *NewElectionParams){
		"missing title":             func(p *NewElectionParams) { p.Title = "  " },
		"unknown type":              func(p *NewElectionParams) { p.Type = "faculty" },
		"house election sans house": func(p *NewElectionParams) { p.Type = TypeHouse },
		"society election sans society": func(p *NewElectionParams) {
			p.Type = TypeSociety
		},
		"house on university election": func(p *NewElectionParams) {
			h := id.HouseID(uuid.New())
			p.HouseID = &h
		},
		"nomination ends before it starts": func(p *NewElectionParams) {
			p.Schedule.NominationEnd = p.Schedule.NominationStart
		},
		"voting starts before nominations close": func(p *NewElectionParams) {
			p.Schedule.VotingStart = p.Schedule.NominationEnd.Add(-time.Minute)
		},
		"voting ends before it starts": func(p *NewElectionParams) {
			p.Schedule.VotingEnd = p.Schedule.VotingStart.Add(-time.Minute)
		},
		"missing dates": func(p *NewElectionParams) { p.Schedule = Schedule{} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := params()
			mutate(&p)
			_, err := NewElection(p)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation), "got %v", err)
		})
	}

	t.Run("duplicate position titles conflict", func(t *testing.T) {
		p := params()
		p.Positions = []Position{{Title: "President"}, {Title: " President "}}
		_, err := NewElection(p)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("voting may open the moment nominations close", func(t *testing.T) {
		p := params()
		p.Schedule.VotingStart = p.Schedule.NominationEnd
		_, err := NewElection(p)
		assert.NoError(t, err)
	})
}

func TestStatusTransitions(t *testing.T) {
	allowed := map[Status][]Status{
		StatusDraft:    {StatusUpcoming, StatusActive, StatusCancelled},
		StatusUpcoming: {StatusActive, StatusCancelled},
		StatusActive:   {StatusCompleted, StatusCancelled},
	}
	all := []Status{StatusDraft, StatusUpcoming, StatusActive, StatusCompleted, StatusCancelled}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestTransitionToCompletedStampsRelease(t *testing.T) {
	e, err := NewElection(params())
	require.NoError(t, err)
	require.NoError(t, e.TransitionTo(StatusActive, base))
	require.NoError(t, e.TransitionTo(StatusCompleted, base.Add(time.Hour)))
	require.NotNil(t, e.ResultsReleasedAt)
	assert.Equal(t, base.Add(time.Hour), *e.ResultsReleasedAt)

	err = e.TransitionTo(StatusCancelled, base)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeInvalidState, "cannot update a completed election"))
}

func TestWindowsAreInclusive(t *testing.T) {
	e, err := NewElection(params())
	require.NoError(t, err)

	assert.True(t, e.InNominationWindow(e.NominationStart))
	assert.True(t, e.InNominationWindow(e.NominationEnd))
	assert.False(t, e.InNominationWindow(e.NominationEnd.Add(time.Nanosecond)))
	assert.True(t, e.InVotingWindow(e.VotingStart))
	assert.True(t, e.InVotingWindow(e.VotingEnd))
	assert.False(t, e.InVotingWindow(e.VotingStart.Add(-time.Nanosecond)))
}

func TestPositionCandidates(t *testing.T) {
	e, err := NewElection(params())
	require.NoError(t, err)
	pos, ok := e.Position(" Secretary ")
	require.True(t, ok)

	a, b := id.UserID(uuid.New()), id.UserID(uuid.New())
	pos.Candidates = append(pos.Candidates, Candidate{UserID: a}, Candidate{UserID: b, Approved: true})

	again, _ := e.Position("Secretary")
	require.Len(t, again.Candidates, 2, "Position returns a pointer into the election")
	assert.Equal(t, []Candidate{{UserID: b, Approved: true}}, again.ApprovedCandidates())

	c, ok := again.Candidate(a)
	require.True(t, ok)
	assert.False(t, c.Approved)

	clone := e.Clone()
	clonePos, _ := clone.Position("Secretary")
	clonePos.Candidates[0].Approved = true
	assert.False(t, again.Candidates[0].Approved)
}
