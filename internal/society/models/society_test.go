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

func TestNewSocietyMakesCreatorLead(t *testing.T) {
	creator := id.UserID(uuid.New())
	s, err := NewSociety(id.SocietyID(uuid.New()), "Robotics Club", "", "", "", creator, time.Now())
	require.NoError(t, err)

	assert.Equal(t, CategoryOther, s.Category)
	assert.Equal(t, []id.UserID{creator}, s.Leads())
	assert.True(t, s.IsLead(creator))
}

func TestNewSocietyRejectsUnknownCategory(t *testing.T) {
	_, err := NewSociety(id.SocietyID(uuid.New()), "Chess", "", Category("esports"), "", id.UserID(uuid.New()), time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestUpsertMemberChangesRoleInPlace(t *testing.T) {
	creator := id.UserID(uuid.New())
	s, err := NewSociety(id.SocietyID(uuid.New()), "Drama", "", CategoryCultural, "", creator, time.Now())
	require.NoError(t, err)
	other := id.UserID(uuid.New())

	assert.True(t, s.UpsertMember(other, MemberRoleMember, time.Now()))
	assert.False(t, s.UpsertMember(other, MemberRoleLead, time.Now()))
	assert.Len(t, s.Members, 2)
	assert.Equal(t, []id.UserID{creator, other}, s.Leads())

	assert.False(t, s.UpsertMember(creator, MemberRoleCoordinator, time.Now()))
	assert.Equal(t, []id.UserID{other}, s.Leads())

	assert.True(t, s.RemoveMember(other))
	assert.False(t, s.RemoveMember(other))
	assert.Empty(t, s.Leads())
}
