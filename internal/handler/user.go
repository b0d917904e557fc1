package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/allowance/internal/model"
	"github.com/dukerupert/allowance/internal/store"
	"github.com/dukerupert/allowance/internal/websocket"
)

type UserHandler struct {
	broadcaster
	userStore *store.UserStore
	logger    *slog.Logger
}

func NewUserHandler(us *store.UserStore, hub *websocket.Hub, logger *slog.Logger) *UserHandler {
	return &UserHandler{broadcaster: broadcaster{hub}, userStore: us, logger: logger}
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name *string    `json:"name"`
		Role model.Role `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	name, ok := trimmed(req.Name)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "name is required")
		return
	}
	if !req.Role.Valid() {
		writeMessage(w, http.StatusBadRequest, "role must be parent or kid")
		return
	}

	user, err := h.userStore.Create(r.Context(), name, req.Role)
	if err != nil {
		writeError(w, h.logger, err, "create user")
		return
	}

	h.broadcast(websocket.NewMessage("user", "created", user.ID, nil))
	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		users []model.User
		err   error
	)
	if role := model.Role(r.URL.Query().Get("role")); role != "" {
		if !role.Valid() {
			writeMessage(w, http.StatusBadRequest, "role must be parent or kid")
			return
		}
		users, err = h.userStore.ListByRole(r.Context(), role)
	} else {
		users, err = h.userStore.List(r.Context())
	}
	if err != nil {
		writeError(w, h.logger, err, "list users")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(users))
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	user, err := h.userStore.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, "get user")
		return
	}
	if user == nil {
		writeMessage(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Update renames a user. Balances are not editable here; they move only
// through the ledger.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		Name *string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	existing, err := h.userStore.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, "get user")
		return
	}
	if existing == nil {
		writeMessage(w, http.StatusNotFound, "user not found")
		return
	}
	if req.Name == nil {
		writeJSON(w, http.StatusOK, existing)
		return
	}
	name, ok := trimmed(req.Name)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "name must not be empty")
		return
	}

	user, err := h.userStore.Rename(r.Context(), id, name)
	if err != nil {
		writeError(w, h.logger, err, "update user")
		return
	}

	h.broadcast(websocket.NewMessage("user", "updated", id, nil))
	writeJSON(w, http.StatusOK, user)
}
