package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/allowance/internal/ledger"
	"github.com/dukerupert/allowance/internal/model"
)

// LedgerHandler serves the read side of the point ledger.
type LedgerHandler struct {
	ledger *ledger.Service
	logger *slog.Logger
}

func NewLedgerHandler(svc *ledger.Service, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{ledger: svc, logger: logger}
}

func (h *LedgerHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	kidID, byKid, err := queryID(r, "kid_id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	var txns []model.PointTransaction
	if byKid {
		txns, err = h.ledger.TransactionsByKid(r.Context(), kidID)
	} else {
		txns, err = h.ledger.Transactions(r.Context())
	}
	if err != nil {
		writeError(w, h.logger, err, "list transactions")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(txns))
}

func (h *LedgerHandler) Audit(w http.ResponseWriter, r *http.Request) {
	balances, err := h.ledger.Audit(r.Context())
	if err != nil {
		writeError(w, h.logger, err, "audit ledger")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(balances))
}

func (h *LedgerHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	kids, err := h.ledger.Leaderboard(r.Context())
	if err != nil {
		writeError(w, h.logger, err, "get leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(kids))
}
