package admin

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "campusvote/pkg/domain"
	audit "campusvote/pkg/platform/audit"
	"campusvote/pkg/platform/audit/store/memory"
	"campusvote/pkg/testutil"
)

func TestListAudit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewInMemoryStore()
	voter := id.UserID(uuid.New())
	base := time.Date(2026, 9, 12, 10, 0, 0, 0, time.UTC)
	for i := range 3 {
		require.NoError(t, store.Append(context.Background(), audit.Event{
			ID:        uuid.NewString(),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			UserID:    voter,
			Action:    string(audit.EventVoteCast),
			Category:  audit.EventVoteCast.Category(),
		}))
	}

	router := chi.NewRouter()
	New(store, logger).Register(router)
	adminID := id.UserID(uuid.New())

	t.Run("admin reads recent events", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.AsUser(testutil.NewRequest(t, http.MethodGet, "/admin/audit?limit=2"), adminID, id.RoleAdmin))
		testutil.AssertStatusOK(t, rr)
		got := testutil.UnmarshalResponse[AuditListResponse](t, rr)
		assert.Equal(t, 2, got.Results)
		assert.Equal(t, "compliance", got.Events[0].Category)
		assert.Equal(t, voter.String(), got.Events[0].UserID)
	})

	t.Run("invalid limit", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.AsUser(testutil.NewRequest(t, http.MethodGet, "/admin/audit?limit=-1"), adminID, id.RoleAdmin))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})

	t.Run("students are forbidden", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.AsUser(testutil.NewRequest(t, http.MethodGet, "/admin/audit"), voter, id.RoleUser))
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})
}
