package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "campusvote/pkg/domain"
)

func TestUUIDArrayRoundTrip(t *testing.T) {
	a, b := id.UserID(uuid.New()), id.UserID(uuid.New())

	v, err := UUIDArray([]id.UserID{a, b}).Value()
	require.NoError(t, err)
	assert.Equal(t, "{\""+a.String()+"\",\""+b.String()+"\"}", v)

	parsed, err := ParseUUIDs[id.UserID]([]string{a.String(), b.String()})
	require.NoError(t, err)
	assert.Equal(t, []id.UserID{a, b}, parsed)
}

func TestParseUUIDsRejectsGarbage(t *testing.T) {
	_, err := ParseUUIDs[id.HouseID]([]string{"nope"})
	assert.Error(t, err)

	empty, err := ParseUUIDs[id.HouseID](nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}
