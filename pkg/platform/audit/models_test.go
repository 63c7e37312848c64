package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestElectionSubject(t *testing.T) {
	assert.Equal(t, "e-1", ElectionSubject("e-1", ""))
	assert.Equal(t, "e-1/Head Girl", ElectionSubject("e-1", "Head Girl"))
}

func TestLockoutIsSecurityEvent(t *testing.T) {
	assert.Equal(t, CategorySecurity, EventAuthLockout.Category())
}
