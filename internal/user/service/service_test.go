package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"campusvote/internal/user/metrics"
	"campusvote/internal/user/models"
	"campusvote/internal/user/service/mocks"
	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/platform/audit"
	"campusvote/pkg/platform/sentinel"
	"campusvote/pkg/requestcontext"
)

// =============================================================================
// User Service Test Suite
// =============================================================================
// Justification: the service translates store sentinels into coded errors and
// rewraps model invariants as validation errors. Those mappings decide the
// HTTP status clients see.

type UserServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	mockStore *mocks.MockStore
	mockAudit *mocks.MockAuditPublisher
	metrics   *metrics.Metrics
	service   *Service
	now       time.Time
	admin     id.UserID
}

func TestUserServiceSuite(t *testing.T) {
	suite.Run(t, new(UserServiceSuite))
}

func (s *UserServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = mocks.NewMockStore(s.ctrl)
	s.mockAudit = mocks.NewMockAuditPublisher(s.ctrl)
	s.metrics = metrics.NewWith(prometheus.NewRegistry())
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.admin = id.UserID(uuid.New())
	s.service = New(s.mockStore,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(s.mockAudit),
		WithMetrics(s.metrics),
	)
}

func (s *UserServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *UserServiceSuite) ctx(caller id.UserID, role id.Role) context.Context {
	ctx := requestcontext.WithCaller(context.Background(), requestcontext.Principal{UserID: caller, Role: role})
	return requestcontext.WithTime(ctx, s.now)
}

func (s *UserServiceSuite) existingUser() *models.User {
	u, err := models.NewUser(id.UserID(uuid.New()), "Ada Lovelace", "ada@uni.edu", id.RoleUser, s.now.Add(-time.Hour))
	s.Require().NoError(err)
	return u
}

func (s *UserServiceSuite) TestGetMe() {
	s.Run("returns the caller's account", func() {
		u := s.existingUser()
		s.mockStore.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)

		got, err := s.service.GetMe(s.ctx(u.ID, id.RoleUser))
		s.Require().NoError(err)
		s.Equal(u.Email, got.Email)
	})

	s.Run("missing account is not found", func() {
		caller := id.UserID(uuid.New())
		s.mockStore.EXPECT().FindByID(gomock.Any(), caller).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.GetMe(s.ctx(caller, id.RoleUser))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *UserServiceSuite) TestUpdateMe() {
	s.Run("renames and normalizes email", func() {
		u := s.existingUser()
		name, address := "Ada King", "  ADA.KING@uni.edu "
		s.mockStore.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)
		s.mockStore.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, saved *models.User) error {
				s.Equal("Ada King", saved.Name)
				s.Equal("ada.king@uni.edu", saved.Email)
				s.Equal(s.now, saved.UpdatedAt)
				return nil
			})
		s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e audit.Event) error {
				s.Equal(string(audit.EventUserUpdated), e.Action)
				s.Equal(u.ID, e.UserID)
				return nil
			})

		_, err := s.service.UpdateMe(s.ctx(u.ID, id.RoleUser), UpdateProfile{Name: &name, Email: &address})
		s.Require().NoError(err)
	})

	s.Run("invalid email is a validation error", func() {
		u := s.existingUser()
		bad := "not-an-email"
		s.mockStore.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)

		_, err := s.service.UpdateMe(s.ctx(u.ID, id.RoleUser), UpdateProfile{Email: &bad})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "please provide a valid email")
	})

	s.Run("taken email is a conflict", func() {
		u := s.existingUser()
		taken := "grace@uni.edu"
		s.mockStore.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)
		s.mockStore.EXPECT().Update(gomock.Any(), gomock.Any()).Return(sentinel.ErrAlreadyExists)

		_, err := s.service.UpdateMe(s.ctx(u.ID, id.RoleUser), UpdateProfile{Email: &taken})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *UserServiceSuite) TestCreate() {
	s.Run("hashes the password and records the creation", func() {
		s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, u *models.User) error {
				s.NotEqual("correct-horse", u.PasswordHash)
				s.True(u.HasPassword())
				s.Equal("S1234", u.StudentID)
				return nil
			})
		s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e audit.Event) error {
				s.Equal(string(audit.EventUserCreated), e.Action)
				s.Equal("grace@uni.edu", e.Email)
				s.Equal(s.admin.String(), e.ActorID)
				return nil
			})

		u, err := s.service.Create(s.ctx(s.admin, id.RoleAdmin), CreateUser{
			Name:      "Grace Hopper",
			Email:     "Grace@uni.edu",
			Password:  "correct-horse",
			StudentID: " S1234 ",
			Role:      id.RoleUser,
		})
		s.Require().NoError(err)
		s.Equal("grace@uni.edu", u.Email)
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.UsersCreated))
	})

	s.Run("invalid role is a validation error", func() {
		_, err := s.service.Create(s.ctx(s.admin, id.RoleAdmin), CreateUser{
			Name: "Grace", Email: "grace@uni.edu", Role: id.Role("dean"),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("short password is rejected before storing", func() {
		_, err := s.service.Create(s.ctx(s.admin, id.RoleAdmin), CreateUser{
			Name: "Grace", Email: "grace@uni.edu", Role: id.RoleUser, Password: "short",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("duplicate email is a conflict", func() {
		s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.ErrAlreadyExists)

		_, err := s.service.Create(s.ctx(s.admin, id.RoleAdmin), CreateUser{
			Name: "Grace", Email: "grace@uni.edu", Role: id.RoleUser,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *UserServiceSuite) TestUpdate() {
	s.Run("changes role, active flag and password", func() {
		u := s.existingUser()
		role := id.RoleHouse
		active := false
		password := "a-much-longer-password"
		s.mockStore.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)
		s.mockStore.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
		s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

		got, err := s.service.Update(s.ctx(s.admin, id.RoleAdmin), u.ID, UpdateUser{
			Role: &role, Active: &active, Password: &password,
		})
		s.Require().NoError(err)
		s.Equal(id.RoleHouse, got.Role)
		s.False(got.Active)
		s.Require().NotNil(got.PasswordChangedAt)
		s.Equal(s.now, *got.PasswordChangedAt)
	})

	s.Run("unknown role is rejected", func() {
		u := s.existingUser()
		role := id.Role("dean")
		s.mockStore.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)

		_, err := s.service.Update(s.ctx(s.admin, id.RoleAdmin), u.ID, UpdateUser{Role: &role})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *UserServiceSuite) TestDelete() {
	s.Run("deletes and counts", func() {
		target := id.UserID(uuid.New())
		s.mockStore.EXPECT().Delete(gomock.Any(), target).Return(nil)
		s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

		s.Require().NoError(s.service.Delete(s.ctx(s.admin, id.RoleAdmin), target))
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.UsersDeleted))
	})

	s.Run("missing user is not found", func() {
		target := id.UserID(uuid.New())
		s.mockStore.EXPECT().Delete(gomock.Any(), target).Return(sentinel.ErrNotFound)

		err := s.service.Delete(s.ctx(s.admin, id.RoleAdmin), target)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("store failure is internal", func() {
		target := id.UserID(uuid.New())
		s.mockStore.EXPECT().Delete(gomock.Any(), target).Return(errors.New("connection reset"))

		err := s.service.Delete(s.ctx(s.admin, id.RoleAdmin), target)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}
