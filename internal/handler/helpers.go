package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/allowance/internal/ledger"
	"github.com/dukerupert/allowance/internal/model"
	"github.com/dukerupert/allowance/internal/store"
	"github.com/dukerupert/allowance/internal/websocket"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func statusForKind(kind ledger.Kind) int {
	switch kind {
	case ledger.KindNotFound:
		return http.StatusNotFound
	case ledger.KindForbidden:
		return http.StatusForbidden
	case ledger.KindInvalidRole, ledger.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case ledger.KindInvalidState:
		return http.StatusConflict
	case ledger.KindInvalidInput:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeError reports a refused ledger operation with its own message and
// anything else as a 500 that hides the cause.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error, action string) {
	if kind := ledger.KindOf(err); kind != ledger.KindUnknown {
		writeMessage(w, statusForKind(kind), err.Error())
		return
	}
	logger.Error(action, "error", err)
	writeMessage(w, http.StatusInternalServerError, "failed to "+action)
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// queryID parses an optional positive id query parameter.
func queryID(r *http.Request, name string) (id int64, ok bool, err error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, false, nil
	}
	id, err = strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, false, errors.New("invalid " + name)
	}
	return id, true, nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// optional distinguishes an absent JSON field from an explicit null.
type optional[T any] struct {
	Set   bool
	Value *T
}

func (o *optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// trimmed returns the trimmed name and whether anything is left.
func trimmed(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	t := strings.TrimSpace(*s)
	return t, t != ""
}

// roleCheck is the outcome of looking up a user expected to hold a role.
type roleCheck struct {
	status int
	msg    string
}

// checkRole loads id and verifies its role. A nil check means the user
// exists with the wanted role.
func checkRole(ctx context.Context, users *store.UserStore, id int64, want model.Role) (*roleCheck, error) {
	u, err := users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	label := string(want)
	if u == nil {
		return &roleCheck{http.StatusNotFound, label + " not found"}, nil
	}
	if u.Role != want {
		return &roleCheck{http.StatusUnprocessableEntity, "user is not a " + label}, nil
	}
	return nil, nil
}

type broadcaster struct {
	hub *websocket.Hub
}

func (b broadcaster) broadcast(msg websocket.Message) {
	if b.hub != nil {
		b.hub.Broadcast(msg)
	}
}

// emptyIfNil keeps list endpoints returning [] rather than null.
func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
