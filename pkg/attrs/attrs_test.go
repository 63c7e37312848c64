package attrs

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	id "campusvote/pkg/domain"
)

func TestExtract(t *testing.T) {
	voter := id.UserID(uuid.New())
	kv := []any{"election_id", "e-1", "user_id", voter, "dangling"}

	got, ok := Extract[id.UserID](kv, "user_id")
	assert.True(t, ok)
	assert.Equal(t, voter, got)

	_, ok = Extract[id.UserID](kv, "election_id")
	assert.False(t, ok, "wrong type should not match")

	_, ok = Extract[string](kv, "dangling")
	assert.False(t, ok, "key without value should not match")
}

func TestExtractString(t *testing.T) {
	election := id.ElectionID(uuid.New())
	kv := []any{"position", "President", "election_id", election, 42, "ignored"}

	assert.Equal(t, "President", ExtractString(kv, "position"))
	assert.Equal(t, election.String(), ExtractString(kv, "election_id"))
	assert.Empty(t, ExtractString(kv, "missing"))
}
