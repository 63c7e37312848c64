package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"campusvote/internal/grievance/metrics"
	"campusvote/internal/grievance/models"
	"campusvote/internal/grievance/service/mocks"
	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/platform/audit"
	"campusvote/pkg/platform/sentinel"
	"campusvote/pkg/requestcontext"
)

// =============================================================================
// Grievance Service Test Suite
// =============================================================================
// Justification: grievances may describe misconduct around an election, so
// only the submitter and admins may read one and only admins may move it
// through review.

type GrievanceServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *mocks.MockStore
	audit   *mocks.MockAuditPublisher
	metrics *metrics.Metrics
	service *Service

	now       time.Time
	student   id.UserID
	admin     id.UserID
	grievance *models.Grievance
}

func TestGrievanceServiceSuite(t *testing.T) {
	suite.Run(t, new(GrievanceServiceSuite))
}

func (s *GrievanceServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.audit = mocks.NewMockAuditPublisher(s.ctrl)
	s.metrics = metrics.NewWith(prometheus.NewRegistry())
	s.service = New(s.store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(s.audit),
		WithMetrics(s.metrics))

	s.now = time.Date(2026, 9, 12, 10, 0, 0, 0, time.UTC)
	s.student = id.UserID(uuid.New())
	s.admin = id.UserID(uuid.New())
	g, err := models.NewGrievance(id.GrievanceID(uuid.New()), "Ballot box", "Closed early", nil, s.student, s.now.Add(-time.Hour))
	s.Require().NoError(err)
	s.grievance = g
}

func (s *GrievanceServiceSuite) as(userID id.UserID, role id.Role) context.Context {
	ctx := requestcontext.WithCaller(context.Background(), requestcontext.Principal{UserID: userID, Role: role})
	return requestcontext.WithTime(ctx, s.now)
}

func (s *GrievanceServiceSuite) TestSubmit() {
	s.Run("records the caller as submitter", func() {
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		s.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
			s.Equal(string(audit.EventGrievanceSubmitted), e.Action)
			s.Equal(s.student, e.UserID)
			return nil
		})

		g, err := s.service.Submit(s.as(s.student, id.RoleUser), SubmitGrievance{Title: "Queue", Description: "Too long"})
		s.Require().NoError(err)
		s.Equal(s.student, g.SubmittedBy)
		s.Equal(models.StatusPending, g.Status)
		s.Equal(s.now, g.CreatedAt)
		s.Equal(1.0, promtest.ToFloat64(s.metrics.GrievancesSubmitted))
	})

	s.Run("missing description", func() {
		_, err := s.service.Submit(s.as(s.student, id.RoleUser), SubmitGrievance{Title: "Queue"})
		s.ErrorIs(err, dErrors.New(dErrors.CodeValidation, "a grievance must have a description"))
	})
}

func (s *GrievanceServiceSuite) TestGet() {
	s.Run("submitter can read", func() {
		s.store.EXPECT().FindByID(gomock.Any(), s.grievance.ID).Return(s.grievance, nil)
		g, err := s.service.Get(s.as(s.student, id.RoleUser), s.grievance.ID)
		s.Require().NoError(err)
		s.Equal(s.grievance.ID, g.ID)
	})

	s.Run("admin can read", func() {
		s.store.EXPECT().FindByID(gomock.Any(), s.grievance.ID).Return(s.grievance, nil)
		_, err := s.service.Get(s.as(s.admin, id.RoleAdmin), s.grievance.ID)
		s.Require().NoError(err)
	})

	s.Run("other students are forbidden", func() {
		s.store.EXPECT().FindByID(gomock.Any(), s.grievance.ID).Return(s.grievance, nil)
		_, err := s.service.Get(s.as(id.UserID(uuid.New()), id.RoleHouse), s.grievance.ID)
		s.ErrorIs(err, dErrors.New(dErrors.CodeForbidden, "you do not have permission to access this grievance"))
	})

	s.Run("missing grievance", func() {
		s.store.EXPECT().FindByID(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
		_, err := s.service.Get(s.as(s.admin, id.RoleAdmin), id.GrievanceID(uuid.New()))
		s.ErrorIs(err, dErrors.New(dErrors.CodeNotFound, "grievance not found"))
	})
}

func (s *GrievanceServiceSuite) TestList() {
	s.Run("admin filters by status", func() {
		status := models.StatusPending
		s.store.EXPECT().List(gomock.Any(), &status).Return([]*models.Grievance{s.grievance}, nil)
		got, err := s.service.List(s.as(s.admin, id.RoleAdmin), &status)
		s.Require().NoError(err)
		s.Len(got, 1)
	})

	s.Run("non-admin is forbidden", func() {
		_, err := s.service.List(s.as(s.student, id.RoleUser), nil)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *GrievanceServiceSuite) TestUpdateStatus() {
	s.Run("admin assigns a reviewer", func() {
		reviewer := id.UserID(uuid.New())
		s.store.EXPECT().FindByID(gomock.Any(), s.grievance.ID).Return(s.grievance.Clone(), nil)
		s.store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
		s.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
			s.Equal("under-review", e.Reason)
			s.Equal(s.grievance.ID.String(), e.Subject)
			return nil
		})

		g, err := s.service.UpdateStatus(s.as(s.admin, id.RoleAdmin), s.grievance.ID, models.StatusUnderReview, &reviewer)
		s.Require().NoError(err)
		s.Equal(models.StatusUnderReview, g.Status)
		s.Equal(&reviewer, g.AssignedTo)
		s.Equal(s.now, g.UpdatedAt)
	})

	s.Run("rejecting counts as closed", func() {
		s.store.EXPECT().FindByID(gomock.Any(), s.grievance.ID).Return(s.grievance.Clone(), nil)
		s.store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
		s.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

		_, err := s.service.UpdateStatus(s.as(s.admin, id.RoleAdmin), s.grievance.ID, models.StatusRejected, nil)
		s.Require().NoError(err)
		s.Equal(1.0, promtest.ToFloat64(s.metrics.GrievancesClosed.WithLabelValues("rejected")))
	})

	s.Run("non-admin is forbidden", func() {
		_, err := s.service.UpdateStatus(s.as(s.student, id.RoleUser), s.grievance.ID, models.StatusResolved, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *GrievanceServiceSuite) TestResolve() {
	s.Run("stamps the resolution", func() {
		s.store.EXPECT().FindByID(gomock.Any(), s.grievance.ID).Return(s.grievance.Clone(), nil)
		s.store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
		s.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
			s.Equal(s.student, e.UserID)
			s.Equal(s.admin.String(), e.ActorID)
			return nil
		})

		g, err := s.service.Resolve(s.as(s.admin, id.RoleAdmin), s.grievance.ID, "Booth reopened")
		s.Require().NoError(err)
		s.Equal(models.StatusResolved, g.Status)
		s.Require().NotNil(g.Resolution)
		s.Equal(s.admin, g.Resolution.ResolvedBy)
		s.Equal(s.now, g.Resolution.ResolvedAt)
	})

	s.Run("comment is required", func() {
		s.store.EXPECT().FindByID(gomock.Any(), s.grievance.ID).Return(s.grievance.Clone(), nil)
		_, err := s.service.Resolve(s.as(s.admin, id.RoleAdmin), s.grievance.ID, " ")
		s.ErrorIs(err, dErrors.New(dErrors.CodeValidation, "resolution comment is required"))
	})

	s.Run("missing grievance", func() {
		s.store.EXPECT().FindByID(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
		_, err := s.service.Resolve(s.as(s.admin, id.RoleAdmin), id.GrievanceID(uuid.New()), "done")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
