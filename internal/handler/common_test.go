package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/room-reservation/internal/model"
	"github.com/iliyamo/room-reservation/internal/service"
)

func newTestContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestServiceErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", &service.ValidationError{Msg: "title is required"}, http.StatusBadRequest},
		{"not found", fmt.Errorf("room 7: %w", service.ErrNotFound), http.StatusNotFound},
		{"unauthorized", service.ErrUnauthorized, http.StatusForbidden},
		{"invalid state", fmt.Errorf("%w: already cancelled", service.ErrInvalidState), http.StatusConflict},
		{"conflict", &service.ConflictError{RoomID: 7}, http.StatusConflict},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newTestContext(t)
			require.NoError(t, serviceError(c, tc.err))
			require.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestServiceErrorConflictDates(t *testing.T) {
	c, rec := newTestContext(t)
	err := &service.ConflictError{RoomID: 7, Dates: []string{"2026-09-14", "2026-09-21"}}
	require.NoError(t, serviceError(c, err))
	require.Equal(t, http.StatusConflict, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, []any{"2026-09-14", "2026-09-21"}, body["conflict_dates"])
}

func TestActorFrom(t *testing.T) {
	t.Run("numeric subject with admin role", func(t *testing.T) {
		c, _ := newTestContext(t)
		c.Set("user_id", float64(42))
		c.Set("role", model.RoleAdmin)
		actor, ok := actorFrom(c)
		require.True(t, ok)
		require.Equal(t, uint64(42), actor.ID)
		require.True(t, actor.CanOverride)
	})

	t.Run("string subject as member", func(t *testing.T) {
		c, _ := newTestContext(t)
		c.Set("user_id", "42")
		c.Set("role", model.RoleMember)
		actor, ok := actorFrom(c)
		require.True(t, ok)
		require.Equal(t, uint64(42), actor.ID)
		require.False(t, actor.CanOverride)
	})

	t.Run("missing claims", func(t *testing.T) {
		c, _ := newTestContext(t)
		_, ok := actorFrom(c)
		require.False(t, ok)
	})
}
