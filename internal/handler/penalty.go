package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/allowance/internal/ledger"
	"github.com/dukerupert/allowance/internal/model"
	"github.com/dukerupert/allowance/internal/store"
	"github.com/dukerupert/allowance/internal/websocket"
)

type PenaltyHandler struct {
	broadcaster
	penaltyStore *store.PenaltyStore
	userStore    *store.UserStore
	ledger       *ledger.Service
	logger       *slog.Logger
}

func NewPenaltyHandler(ps *store.PenaltyStore, us *store.UserStore, svc *ledger.Service, hub *websocket.Hub, logger *slog.Logger) *PenaltyHandler {
	return &PenaltyHandler{
		broadcaster:  broadcaster{hub},
		penaltyStore: ps,
		userStore:    us,
		ledger:       svc,
		logger:       logger,
	}
}

type penaltyRequest struct {
	Name              *string          `json:"name"`
	Description       optional[string] `json:"description"`
	PointDeduction    *int             `json:"point_deduction"`
	CreatedByParentID *int64           `json:"created_by_parent_id"`
}

func (h *PenaltyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req penaltyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	name, ok := trimmed(req.Name)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.PointDeduction == nil || *req.PointDeduction <= 0 {
		writeMessage(w, http.StatusBadRequest, "point_deduction must be a positive integer")
		return
	}
	if req.CreatedByParentID == nil {
		writeMessage(w, http.StatusBadRequest, "created_by_parent_id is required")
		return
	}

	check, err := checkRole(r.Context(), h.userStore, *req.CreatedByParentID, model.RoleParent)
	if err != nil {
		writeError(w, h.logger, err, "create penalty")
		return
	}
	if check != nil {
		writeMessage(w, check.status, check.msg)
		return
	}

	penalty, err := h.penaltyStore.Create(r.Context(), name, req.Description.Value, *req.PointDeduction, *req.CreatedByParentID)
	if err != nil {
		writeError(w, h.logger, err, "create penalty")
		return
	}

	h.broadcast(websocket.NewMessage("penalty", "created", penalty.ID, nil))
	writeJSON(w, http.StatusCreated, penalty)
}

func (h *PenaltyHandler) List(w http.ResponseWriter, r *http.Request) {
	parentID, byParent, err := queryID(r, "parent_id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	var penalties []model.Penalty
	if byParent {
		penalties, err = h.penaltyStore.ListByParent(r.Context(), parentID)
	} else {
		penalties, err = h.penaltyStore.List(r.Context())
	}
	if err != nil {
		writeError(w, h.logger, err, "list penalties")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(penalties))
}

func (h *PenaltyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	penalty, err := h.penaltyStore.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, "get penalty")
		return
	}
	if penalty == nil {
		writeMessage(w, http.StatusNotFound, "penalty not found")
		return
	}
	writeJSON(w, http.StatusOK, penalty)
}

// Update applies a partial edit. Past applications keep the deduction they
// were charged.
func (h *PenaltyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req penaltyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.CreatedByParentID != nil {
		writeMessage(w, http.StatusBadRequest, "created_by_parent_id cannot be changed")
		return
	}

	existing, err := h.penaltyStore.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, "get penalty")
		return
	}
	if existing == nil {
		writeMessage(w, http.StatusNotFound, "penalty not found")
		return
	}

	upd := store.PenaltyUpdate{
		Description:      req.Description.Value,
		ClearDescription: req.Description.Set && req.Description.Value == nil,
	}
	if req.Name != nil {
		name, ok := trimmed(req.Name)
		if !ok {
			writeMessage(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		upd.Name = &name
	}
	if req.PointDeduction != nil {
		if *req.PointDeduction <= 0 {
			writeMessage(w, http.StatusBadRequest, "point_deduction must be a positive integer")
			return
		}
		upd.PointDeduction = req.PointDeduction
	}

	penalty, err := h.penaltyStore.Update(r.Context(), id, upd)
	if err != nil {
		writeError(w, h.logger, err, "update penalty")
		return
	}

	h.broadcast(websocket.NewMessage("penalty", "updated", id, nil))
	writeJSON(w, http.StatusOK, penalty)
}

func (h *PenaltyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.penaltyStore.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, "get penalty")
		return
	}
	if existing == nil {
		writeMessage(w, http.StatusNotFound, "penalty not found")
		return
	}

	if err := h.penaltyStore.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrInUse) {
			writeMessage(w, http.StatusConflict, "penalty has been applied")
			return
		}
		writeError(w, h.logger, err, "delete penalty")
		return
	}

	h.broadcast(websocket.NewMessage("penalty", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *PenaltyHandler) Apply(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		KidID             *int64 `json:"kid_id"`
		AppliedByParentID *int64 `json:"applied_by_parent_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.KidID == nil || req.AppliedByParentID == nil {
		writeMessage(w, http.StatusBadRequest, "kid_id and applied_by_parent_id are required")
		return
	}

	app, err := h.ledger.ApplyPenalty(r.Context(), id, *req.KidID, *req.AppliedByParentID)
	if err != nil {
		writeError(w, h.logger, err, "apply penalty")
		return
	}

	h.broadcast(websocket.NewMessage("penalty", "applied", app.ID, nil).ForKid(app.KidID))
	writeJSON(w, http.StatusCreated, app)
}

func (h *PenaltyHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
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

	var apps []model.PenaltyApplication
	switch {
	case byKid:
		apps, err = h.penaltyStore.ListApplicationsByKid(r.Context(), kidID)
	case byParent:
		apps, err = h.penaltyStore.ListApplicationsByParent(r.Context(), parentID)
	default:
		apps, err = h.penaltyStore.ListApplications(r.Context())
	}
	if err != nil {
		writeError(w, h.logger, err, "list penalty applications")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(apps))
}
