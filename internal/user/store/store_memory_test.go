package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusvote/internal/user/models"
	id "campusvote/pkg/domain"
	"campusvote/pkg/platform/sentinel"
)

func newUser(t *testing.T, name, address string, created time.Time) *models.User {
	t.Helper()
	u, err := models.NewUser(id.UserID(uuid.New()), name, address, id.RoleUser, created)
	require.NoError(t, err)
	return u
}

func TestInMemoryUserStoreUniqueness(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := NewInMemoryUserStore()

	ada := newUser(t, "Ada", "ada@uni.edu", now)
	ada.StudentID = "S1"
	require.NoError(t, s.Create(ctx, ada))

	t.Run("duplicate email", func(t *testing.T) {
		dup := newUser(t, "Other Ada", "ADA@uni.edu", now)
		assert.ErrorIs(t, s.Create(ctx, dup), sentinel.ErrAlreadyExists)
	})

	t.Run("duplicate student id", func(t *testing.T) {
		dup := newUser(t, "Grace", "grace@uni.edu", now)
		dup.StudentID = "S1"
		assert.ErrorIs(t, s.Create(ctx, dup), sentinel.ErrAlreadyExists)
	})

	t.Run("empty student ids do not collide", func(t *testing.T) {
		a := newUser(t, "Alan", "alan@uni.edu", now)
		b := newUser(t, "Barbara", "barbara@uni.edu", now)
		require.NoError(t, s.Create(ctx, a))
		require.NoError(t, s.Create(ctx, b))
	})

	t.Run("update to a taken email", func(t *testing.T) {
		other := newUser(t, "Edsger", "edsger@uni.edu", now)
		require.NoError(t, s.Create(ctx, other))
		other.Email = "ada@uni.edu"
		assert.ErrorIs(t, s.Update(ctx, other), sentinel.ErrAlreadyExists)
	})
}

func TestInMemoryUserStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryUserStore()
	u := newUser(t, "Ada", "ada@uni.edu", time.Now())
	require.NoError(t, s.Create(ctx, u))

	got, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	got.JoinSociety(id.SocietyID(uuid.New()))
	got.Name = "changed"

	again, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", again.Name)
	assert.Empty(t, again.SocietyIDs)
}

func TestInMemoryUserStoreQueries(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryUserStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	older := newUser(t, "Older", "older@uni.edu", base)
	newer := newUser(t, "Newer", "newer@uni.edu", base.Add(time.Hour))
	newer.ExternalID = "idp_123"
	require.NoError(t, s.Create(ctx, older))
	require.NoError(t, s.Create(ctx, newer))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)

	byEmail, err := s.FindByEmail(ctx, "OLDER@uni.edu")
	require.NoError(t, err)
	assert.Equal(t, older.ID, byEmail.ID)

	byExternal, err := s.FindByExternalID(ctx, "idp_123")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, byExternal.ID)

	_, err = s.FindByExternalID(ctx, "")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	found, err := s.FindByIDs(ctx, []id.UserID{older.ID, id.UserID(uuid.New())})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, older.ID, found[0].ID)

	require.NoError(t, s.Delete(ctx, older.ID))
	assert.ErrorIs(t, s.Delete(ctx, older.ID), sentinel.ErrNotFound)
}

func TestInMemoryUserStoreMembershipCleanup(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryUserStore()
	house := id.HouseID(uuid.New())
	society := id.SocietyID(uuid.New())

	u := newUser(t, "Ada", "ada@uni.edu", time.Now())
	u.HouseID = &house
	u.JoinSociety(society)
	require.NoError(t, s.Create(ctx, u))

	require.NoError(t, s.ClearHouse(ctx, house))
	require.NoError(t, s.RemoveSociety(ctx, society))

	got, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got.HouseID)
	assert.Empty(t, got.SocietyIDs)
}
