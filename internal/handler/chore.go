package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/allowance/internal/ledger"
	"github.com/dukerupert/allowance/internal/model"
	"github.com/dukerupert/allowance/internal/store"
	"github.com/dukerupert/allowance/internal/websocket"
)

type ChoreHandler struct {
	broadcaster
	choreStore *store.ChoreStore
	userStore  *store.UserStore
	ledger     *ledger.Service
	logger     *slog.Logger
}

func NewChoreHandler(cs *store.ChoreStore, us *store.UserStore, svc *ledger.Service, hub *websocket.Hub, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{
		broadcaster: broadcaster{hub},
		choreStore:  cs,
		userStore:   us,
		ledger:      svc,
		logger:      logger,
	}
}

type choreRequest struct {
	Name              *string          `json:"name"`
	PointValue        *int             `json:"point_value"`
	Frequency         *model.Frequency `json:"frequency"`
	AssignedKidID     *int64           `json:"assigned_kid_id"`
	CreatedByParentID *int64           `json:"created_by_parent_id"`
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req choreRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	name, ok := trimmed(req.Name)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.PointValue == nil || *req.PointValue <= 0 {
		writeMessage(w, http.StatusBadRequest, "point_value must be a positive integer")
		return
	}
	if req.Frequency == nil || !req.Frequency.Valid() {
		writeMessage(w, http.StatusBadRequest, "frequency must be daily, weekly or one_time")
		return
	}
	if req.AssignedKidID == nil || req.CreatedByParentID == nil {
		writeMessage(w, http.StatusBadRequest, "assigned_kid_id and created_by_parent_id are required")
		return
	}

	ctx := r.Context()
	for _, c := range []struct {
		id   int64
		role model.Role
	}{{*req.AssignedKidID, model.RoleKid}, {*req.CreatedByParentID, model.RoleParent}} {
		check, err := checkRole(ctx, h.userStore, c.id, c.role)
		if err != nil {
			writeError(w, h.logger, err, "create chore")
			return
		}
		if check != nil {
			writeMessage(w, check.status, check.msg)
			return
		}
	}

	chore, err := h.choreStore.Create(ctx, name, *req.PointValue, *req.Frequency, *req.AssignedKidID, *req.CreatedByParentID)
	if err != nil {
		writeError(w, h.logger, err, "create chore")
		return
	}

	h.broadcast(websocket.NewMessage("chore", "created", chore.ID, nil).ForKid(chore.AssignedKidID))
	writeJSON(w, http.StatusCreated, chore)
}

func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	kidID, byKid, err := queryID(r, "kid_id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	parentID, byParent, err := queryID(r, "parent_id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	var chores []model.Chore
	switch {
	case byKid:
		chores, err = h.choreStore.ListByKid(r.Context(), kidID)
	case byParent:
		chores, err = h.choreStore.ListByParent(r.Context(), parentID)
	default:
		chores, err = h.choreStore.List(r.Context())
	}
	if err != nil {
		writeError(w, h.logger, err, "list chores")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(chores))
}

func (h *ChoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	chore, err := h.choreStore.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, "get chore")
		return
	}
	if chore == nil {
		writeMessage(w, http.StatusNotFound, "chore not found")
		return
	}
	writeJSON(w, http.StatusOK, chore)
}

// Update edits the descriptive fields of a chore. Status and timestamps are
// owned by the lifecycle endpoints.
func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req choreRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.CreatedByParentID != nil {
		writeMessage(w, http.StatusBadRequest, "created_by_parent_id cannot be changed")
		return
	}

	ctx := r.Context()
	existing, err := h.choreStore.GetByID(ctx, id)
	if err != nil {
		writeError(w, h.logger, err, "get chore")
		return
	}
	if existing == nil {
		writeMessage(w, http.StatusNotFound, "chore not found")
		return
	}

	var upd store.ChoreUpdate
	if req.Name != nil {
		name, ok := trimmed(req.Name)
		if !ok {
			writeMessage(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		upd.Name = &name
	}
	if req.PointValue != nil {
		if *req.PointValue <= 0 {
			writeMessage(w, http.StatusBadRequest, "point_value must be a positive integer")
			return
		}
		upd.PointValue = req.PointValue
	}
	if req.Frequency != nil {
		if !req.Frequency.Valid() {
			writeMessage(w, http.StatusBadRequest, "frequency must be daily, weekly or one_time")
			return
		}
		upd.Frequency = req.Frequency
	}
	if req.AssignedKidID != nil {
		check, err := checkRole(ctx, h.userStore, *req.AssignedKidID, model.RoleKid)
		if err != nil {
			writeError(w, h.logger, err, "update chore")
			return
		}
		if check != nil {
			writeMessage(w, check.status, check.msg)
			return
		}
		upd.AssignedKidID = req.AssignedKidID
	}

	chore, err := h.choreStore.Update(ctx, id, upd)
	if err != nil {
		writeError(w, h.logger, err, "update chore")
		return
	}

	h.broadcast(websocket.NewMessage("chore", "updated", id, nil).ForKid(chore.AssignedKidID))
	writeJSON(w, http.StatusOK, chore)
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.choreStore.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, "get chore")
		return
	}
	if existing == nil {
		writeMessage(w, http.StatusNotFound, "chore not found")
		return
	}

	if err := h.choreStore.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err, "delete chore")
		return
	}

	h.broadcast(websocket.NewMessage("chore", "deleted", id, nil).ForKid(existing.AssignedKidID))
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChoreHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		KidID *int64 `json:"kid_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.KidID == nil {
		writeMessage(w, http.StatusBadRequest, "kid_id is required")
		return
	}

	chore, err := h.ledger.MarkChoreCompleted(r.Context(), id, *req.KidID)
	if err != nil {
		writeError(w, h.logger, err, "complete chore")
		return
	}

	h.broadcast(websocket.NewMessage("chore", "completed", chore.ID, nil).ForKid(chore.AssignedKidID))
	writeJSON(w, http.StatusOK, chore)
}

func (h *ChoreHandler) Decide(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		ParentID *int64 `json:"parent_id"`
		Approved *bool  `json:"approved"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.ParentID == nil || req.Approved == nil {
		writeMessage(w, http.StatusBadRequest, "parent_id and approved are required")
		return
	}

	chore, err := h.ledger.DecideChore(r.Context(), id, *req.ParentID, *req.Approved)
	if err != nil {
		writeError(w, h.logger, err, "decide chore")
		return
	}

	h.broadcast(websocket.NewMessage("chore", string(chore.Status), chore.ID, nil).ForKid(chore.AssignedKidID))
	writeJSON(w, http.StatusOK, chore)
}
