package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/allowance/internal/ledger"
	"github.com/dukerupert/allowance/internal/model"
	"github.com/dukerupert/allowance/internal/store"
	"github.com/dukerupert/allowance/internal/websocket"
)

type RewardRequestHandler struct {
	broadcaster
	rewardStore *store.RewardStore
	ledger      *ledger.Service
	logger      *slog.Logger
}

func NewRewardRequestHandler(rs *store.RewardStore, svc *ledger.Service, hub *websocket.Hub, logger *slog.Logger) *RewardRequestHandler {
	return &RewardRequestHandler{broadcaster: broadcaster{hub}, rewardStore: rs, ledger: svc, logger: logger}
}

func (h *RewardRequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RewardID *int64 `json:"reward_id"`
		KidID    *int64 `json:"kid_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.RewardID == nil || req.KidID == nil {
		writeMessage(w, http.StatusBadRequest, "reward_id and kid_id are required")
		return
	}

	rr, err := h.ledger.CreateRewardRequest(r.Context(), *req.RewardID, *req.KidID)
	if err != nil {
		writeError(w, h.logger, err, "create reward request")
		return
	}

	h.broadcast(websocket.NewMessage("reward_request", "created", rr.ID, nil).ForKid(rr.KidID))
	writeJSON(w, http.StatusCreated, rr)
}

func (h *RewardRequestHandler) List(w http.ResponseWriter, r *http.Request) {
	kidID, byKid, err := queryID(r, "kid_id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	status := model.RequestStatus(r.URL.Query().Get("status"))
	if status != "" && status != model.RequestStatusPending {
		writeMessage(w, http.StatusBadRequest, "status filter supports pending only")
		return
	}

	var reqs []model.RewardRequest
	switch {
	case status == model.RequestStatusPending:
		reqs, err = h.rewardStore.ListPendingRequests(r.Context())
		if err == nil && byKid {
			reqs = filterByKid(reqs, kidID)
		}
	case byKid:
		reqs, err = h.rewardStore.ListRequestsByKid(r.Context(), kidID)
	default:
		reqs, err = h.rewardStore.ListRequests(r.Context())
	}
	if err != nil {
		writeError(w, h.logger, err, "list reward requests")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(reqs))
}

func filterByKid(reqs []model.RewardRequest, kidID int64) []model.RewardRequest {
	var out []model.RewardRequest
	for _, rr := range reqs {
		if rr.KidID == kidID {
			out = append(out, rr)
		}
	}
	return out
}

func (h *RewardRequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	rr, err := h.rewardStore.GetRequestByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, "get reward request")
		return
	}
	if rr == nil {
		writeMessage(w, http.StatusNotFound, "reward request not found")
		return
	}
	writeJSON(w, http.StatusOK, rr)
}

func (h *RewardRequestHandler) Process(w http.ResponseWriter, r *http.Request) {
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

	rr, err := h.ledger.ProcessRewardRequest(r.Context(), id, *req.ParentID, *req.Approved)
	if err != nil {
		writeError(w, h.logger, err, "process reward request")
		return
	}

	h.broadcast(websocket.NewMessage("reward_request", string(rr.Status), rr.ID, nil).ForKid(rr.KidID))
	writeJSON(w, http.StatusOK, rr)
}
