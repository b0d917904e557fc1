package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/allowance/internal/config"
	"github.com/dukerupert/allowance/internal/database"
	"github.com/dukerupert/allowance/internal/model"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
}

func newTestServerWith(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err, "open test db")
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(db, cfg, logger)
	return &testServer{t: t, handler: srv.Router()}
}

func newTestServer(t *testing.T) *testServer {
	cfg := config.Default()
	cfg.RateLimit = 0
	return newTestServerWith(t, cfg)
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(s.t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.RemoteAddr = "192.0.2.1:4000"
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}

func (s *testServer) createUser(name string, role model.Role) model.User {
	s.t.Helper()
	rec := s.do("POST", "/api/users", map[string]any{"name": name, "role": role})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.User](s.t, rec)
}

func (s *testServer) createChore(kid, parent model.User, points int) model.Chore {
	s.t.Helper()
	rec := s.do("POST", "/api/chores", map[string]any{
		"name": "Dishes", "point_value": points, "frequency": "daily",
		"assigned_kid_id": kid.ID, "created_by_parent_id": parent.ID,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.Chore](s.t, rec)
}

// earn runs a chore through completion and approval.
func (s *testServer) earn(kid, parent model.User, points int) {
	s.t.Helper()
	c := s.createChore(kid, parent, points)
	rec := s.do("POST", fmt.Sprintf("/api/chores/%d/complete", c.ID), map[string]any{"kid_id": kid.ID})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do("POST", fmt.Sprintf("/api/chores/%d/decision", c.ID), map[string]any{"parent_id": parent.ID, "approved": true})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
}

func (s *testServer) points(id int64) int {
	s.t.Helper()
	rec := s.do("GET", fmt.Sprintf("/api/users/%d", id), nil)
	require.Equal(s.t, http.StatusOK, rec.Code)
	return decode[model.User](s.t, rec).Points
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do("GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestChoreFlow(t *testing.T) {
	s := newTestServer(t)
	parent := s.createUser("Mom", model.RoleParent)
	kid := s.createUser("Alice", model.RoleKid)
	c := s.createChore(kid, parent, 25)
	assert.Equal(t, model.ChoreStatusPending, c.Status)

	rec := s.do("POST", fmt.Sprintf("/api/chores/%d/complete", c.ID), map[string]any{"kid_id": kid.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.ChoreStatusCompletedPendingApproval, decode[model.Chore](t, rec).Status)

	rec = s.do("POST", fmt.Sprintf("/api/chores/%d/decision", c.ID), map[string]any{"parent_id": parent.ID, "approved": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.ChoreStatusApproved, decode[model.Chore](t, rec).Status)
	assert.Equal(t, 25, s.points(kid.ID))

	rec = s.do("GET", fmt.Sprintf("/api/transactions?kid_id=%d", kid.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	txns := decode[[]model.PointTransaction](t, rec)
	require.Len(t, txns, 1)
	assert.Equal(t, 25, txns[0].PointsChange)
	assert.Equal(t, c.ID, txns[0].ReferenceID)

	rec = s.do("POST", fmt.Sprintf("/api/chores/%d/decision", c.ID), map[string]any{"parent_id": parent.ID, "approved": true})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "chore not found or not pending approval", errorOf(t, rec))
	assert.Equal(t, 25, s.points(kid.ID))
}

func TestErrorStatusMapping(t *testing.T) {
	s := newTestServer(t)
	parent := s.createUser("Mom", model.RoleParent)
	kid := s.createUser("Alice", model.RoleKid)
	other := s.createUser("Ben", model.RoleKid)
	c := s.createChore(kid, parent, 10)

	rec := s.do("POST", "/api/penalties", map[string]any{"name": "Late", "point_deduction": 5, "created_by_parent_id": parent.ID})
	require.Equal(t, http.StatusCreated, rec.Code)
	penalty := decode[model.Penalty](t, rec)

	rec = s.do("POST", "/api/rewards", map[string]any{"name": "Movie", "point_cost": 75, "created_by_parent_id": parent.ID})
	require.Equal(t, http.StatusCreated, rec.Code)
	reward := decode[model.Reward](t, rec)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		msg    string
	}{
		{"not found", "POST", fmt.Sprintf("/api/penalties/%d/apply", 9999), map[string]any{"kid_id": kid.ID, "applied_by_parent_id": parent.ID}, http.StatusNotFound, "penalty not found"},
		{"forbidden", "POST", fmt.Sprintf("/api/chores/%d/complete", c.ID), map[string]any{"kid_id": other.ID}, http.StatusForbidden, "chore is not assigned to this kid"},
		{"invalid role", "POST", fmt.Sprintf("/api/penalties/%d/apply", penalty.ID), map[string]any{"kid_id": kid.ID, "applied_by_parent_id": other.ID}, http.StatusUnprocessableEntity, "user is not a parent"},
		{"insufficient funds", "POST", "/api/reward-requests", map[string]any{"reward_id": reward.ID, "kid_id": kid.ID}, http.StatusUnprocessableEntity, "insufficient points for this reward"},
		{"invalid state", "POST", fmt.Sprintf("/api/chores/%d/decision", c.ID), map[string]any{"parent_id": parent.ID, "approved": true}, http.StatusConflict, "chore not found or not pending approval"},
		{"invalid json", "POST", fmt.Sprintf("/api/chores/%d/complete", c.ID), "{", http.StatusBadRequest, "invalid JSON"},
		{"missing field", "POST", fmt.Sprintf("/api/chores/%d/decision", c.ID), map[string]any{"parent_id": parent.ID}, http.StatusBadRequest, "parent_id and approved are required"},
		{"bad id", "GET", "/api/chores/abc", nil, http.StatusBadRequest, "invalid id"},
		{"points not editable", "PUT", fmt.Sprintf("/api/users/%d", kid.ID), map[string]any{"points": 1000}, http.StatusBadRequest, "invalid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.msg, errorOf(t, rec))
		})
	}

	assert.Equal(t, 0, s.points(kid.ID))
}

func TestCatalogValidation(t *testing.T) {
	s := newTestServer(t)
	parent := s.createUser("Mom", model.RoleParent)
	kid := s.createUser("Alice", model.RoleKid)

	rec := s.do("POST", "/api/users", map[string]any{"name": "  ", "role": "kid"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do("POST", "/api/users", map[string]any{"name": "Zed", "role": "admin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do("POST", "/api/chores", map[string]any{
		"name": "Dishes", "point_value": 10, "frequency": "daily",
		"assigned_kid_id": parent.ID, "created_by_parent_id": parent.ID,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "user is not a kid", errorOf(t, rec))

	rec = s.do("POST", "/api/chores", map[string]any{
		"name": "Dishes", "point_value": 10, "frequency": "hourly",
		"assigned_kid_id": kid.ID, "created_by_parent_id": parent.ID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do("POST", "/api/rewards", map[string]any{"name": "Movie", "point_cost": 10, "created_by_parent_id": kid.ID})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "user is not a parent", errorOf(t, rec))

	rec = s.do("POST", "/api/penalties", map[string]any{"name": "Late", "point_deduction": 0, "created_by_parent_id": parent.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRewardUpdateClearsWithNull(t *testing.T) {
	s := newTestServer(t)
	parent := s.createUser("Mom", model.RoleParent)

	rec := s.do("POST", "/api/rewards", map[string]any{
		"name": "Movie", "description": "Pick the film", "image_url": "https://example.com/m.png",
		"point_cost": 40, "created_by_parent_id": parent.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	reward := decode[model.Reward](t, rec)

	rec = s.do("PUT", fmt.Sprintf("/api/rewards/%d", reward.ID), `{"description": null, "point_cost": 45}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[model.Reward](t, rec)
	assert.Nil(t, updated.Description)
	require.NotNil(t, updated.ImageURL, "absent field is left alone")
	assert.Equal(t, 45, updated.PointCost)
}

func TestRewardRedemptionFlow(t *testing.T) {
	s := newTestServer(t)
	parent := s.createUser("Mom", model.RoleParent)
	kid := s.createUser("Alice", model.RoleKid)
	s.earn(kid, parent, 100)

	rec := s.do("POST", "/api/rewards", map[string]any{"name": "Movie", "point_cost": 100, "created_by_parent_id": parent.ID})
	require.Equal(t, http.StatusCreated, rec.Code)
	reward := decode[model.Reward](t, rec)

	rec = s.do("POST", "/api/reward-requests", map[string]any{"reward_id": reward.ID, "kid_id": kid.ID})
	require.Equal(t, http.StatusCreated, rec.Code)
	rr := decode[model.RewardRequest](t, rec)

	rec = s.do("GET", "/api/reward-requests?status=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.RewardRequest](t, rec), 1)

	rec = s.do("DELETE", fmt.Sprintf("/api/rewards/%d", reward.ID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "reward has pending requests", errorOf(t, rec))

	rec = s.do("POST", "/api/penalties", map[string]any{"name": "Late", "point_deduction": 20, "created_by_parent_id": parent.ID})
	require.Equal(t, http.StatusCreated, rec.Code)
	penalty := decode[model.Penalty](t, rec)
	rec = s.do("POST", fmt.Sprintf("/api/penalties/%d/apply", penalty.ID), map[string]any{"kid_id": kid.ID, "applied_by_parent_id": parent.ID})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do("POST", fmt.Sprintf("/api/reward-requests/%d/process", rr.ID), map[string]any{"parent_id": parent.ID, "approved": true})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "kid does not have enough points for this reward", errorOf(t, rec))

	rec = s.do("GET", fmt.Sprintf("/api/reward-requests/%d", rr.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.RequestStatusPending, decode[model.RewardRequest](t, rec).Status)

	rec = s.do("POST", fmt.Sprintf("/api/reward-requests/%d/process", rr.ID), map[string]any{"parent_id": parent.ID, "approved": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.RequestStatusRejected, decode[model.RewardRequest](t, rec).Status)

	rec = s.do("DELETE", fmt.Sprintf("/api/rewards/%d", reward.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do("DELETE", fmt.Sprintf("/api/penalties/%d", penalty.ID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "penalty has been applied", errorOf(t, rec))

	assert.Equal(t, 80, s.points(kid.ID))
}

func TestLedgerReadEndpoints(t *testing.T) {
	s := newTestServer(t)
	parent := s.createUser("Mom", model.RoleParent)
	alice := s.createUser("Alice", model.RoleKid)
	ben := s.createUser("Ben", model.RoleKid)
	s.earn(alice, parent, 10)
	s.earn(ben, parent, 30)

	rec := s.do("GET", "/api/leaderboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	board := decode[[]model.User](t, rec)
	require.Len(t, board, 2)
	assert.Equal(t, ben.ID, board[0].ID)

	rec = s.do("GET", "/api/ledger/audit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, b := range decode[[]model.PointBalance](t, rec) {
		assert.Zero(t, b.Drift)
	}

	rec = s.do("GET", "/api/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.PointTransaction](t, rec), 2)

	rec = s.do("GET", "/api/penalty-applications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = s.do("GET", "/api/transactions?kid_id=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	parent := s.createUser("Mom", model.RoleParent)
	kid := s.createUser("Alice", model.RoleKid)
	s.earn(kid, parent, 5)

	rec := s.do("GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `allowance_ledger_operations_total{operation="approve_chore",outcome="ok"}`)
	assert.Contains(t, body, `allowance_http_requests_total{method="POST",route="POST /api/users",status="201"}`)
}

func TestRateLimitOnMutations(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1
	s := newTestServerWith(t, cfg)

	rec := s.do("POST", "/api/users", map[string]any{"name": "Mom", "role": "parent"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do("POST", "/api/users", map[string]any{"name": "Dad", "role": "parent"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = s.do("GET", "/api/users", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
