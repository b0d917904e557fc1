package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/allowance/internal/model"
	"github.com/dukerupert/allowance/internal/store"
	"github.com/dukerupert/allowance/internal/websocket"
)

type RewardHandler struct {
	broadcaster
	rewardStore *store.RewardStore
	userStore   *store.UserStore
	logger      *slog.Logger
}

func NewRewardHandler(rs *store.RewardStore, us *store.UserStore, hub *websocket.Hub, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{broadcaster: broadcaster{hub}, rewardStore: rs, userStore: us, logger: logger}
}

type rewardRequest struct {
	Name              *string          `json:"name"`
	Description       optional[string] `json:"description"`
	ImageURL          optional[string] `json:"image_url"`
	PointCost         *int             `json:"point_cost"`
	CreatedByParentID *int64           `json:"created_by_parent_id"`
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	name, ok := trimmed(req.Name)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.PointCost == nil || *req.PointCost <= 0 {
		writeMessage(w, http.StatusBadRequest, "point_cost must be a positive integer")
		return
	}
	if req.CreatedByParentID == nil {
		writeMessage(w, http.StatusBadRequest, "created_by_parent_id is required")
		return
	}

	check, err := checkRole(r.Context(), h.userStore, *req.CreatedByParentID, model.RoleParent)
	if err != nil {
		writeError(w, h.logger, err, "create reward")
		return
	}
	if check != nil {
		writeMessage(w, check.status, check.msg)
		return
	}

	reward, err := h.rewardStore.Create(r.Context(), name, req.Description.Value, req.ImageURL.Value, *req.PointCost, *req.CreatedByParentID)
	if err != nil {
		writeError(w, h.logger, err, "create reward")
		return
	}

	h.broadcast(websocket.NewMessage("reward", "created", reward.ID, nil))
	writeJSON(w, http.StatusCreated, reward)
}

func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	parentID, byParent, err := queryID(r, "parent_id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	var rewards []model.Reward
	if byParent {
		rewards, err = h.rewardStore.ListByParent(r.Context(), parentID)
	} else {
		rewards, err = h.rewardStore.List(r.Context())
	}
	if err != nil {
		writeError(w, h.logger, err, "list rewards")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(rewards))
}

func (h *RewardHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	reward, err := h.rewardStore.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, "get reward")
		return
	}
	if reward == nil {
		writeMessage(w, http.StatusNotFound, "reward not found")
		return
	}
	writeJSON(w, http.StatusOK, reward)
}

// Update applies a partial edit. An explicit null clears description or
// image_url.
func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req rewardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.CreatedByParentID != nil {
		writeMessage(w, http.StatusBadRequest, "created_by_parent_id cannot be changed")
		return
	}

	existing, err := h.rewardStore.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, "get reward")
		return
	}
	if existing == nil {
		writeMessage(w, http.StatusNotFound, "reward not found")
		return
	}

	upd := store.RewardUpdate{
		Description:      req.Description.Value,
		ClearDescription: req.Description.Set && req.Description.Value == nil,
		ImageURL:         req.ImageURL.Value,
		ClearImageURL:    req.ImageURL.Set && req.ImageURL.Value == nil,
	}
	if req.Name != nil {
		name, ok := trimmed(req.Name)
		if !ok {
			writeMessage(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		upd.Name = &name
	}
	if req.PointCost != nil {
		if *req.PointCost <= 0 {
			writeMessage(w, http.StatusBadRequest, "point_cost must be a positive integer")
			return
		}
		upd.PointCost = req.PointCost
	}

	reward, err := h.rewardStore.Update(r.Context(), id, upd)
	if err != nil {
		writeError(w, h.logger, err, "update reward")
		return
	}

	h.broadcast(websocket.NewMessage("reward", "updated", id, nil))
	writeJSON(w, http.StatusOK, reward)
}

func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.rewardStore.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, "get reward")
		return
	}
	if existing == nil {
		writeMessage(w, http.StatusNotFound, "reward not found")
		return
	}

	if err := h.rewardStore.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrInUse) {
			writeMessage(w, http.StatusConflict, "reward has pending requests")
			return
		}
		writeError(w, h.logger, err, "delete reward")
		return
	}

	h.broadcast(websocket.NewMessage("reward", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
