package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/allowance/internal/config"
	"github.com/dukerupert/allowance/internal/handler"
	"github.com/dukerupert/allowance/internal/ledger"
	"github.com/dukerupert/allowance/internal/metrics"
	"github.com/dukerupert/allowance/internal/middleware"
	"github.com/dukerupert/allowance/internal/store"
	ws "github.com/dukerupert/allowance/internal/websocket"
)

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	ledger         *ledger.Service
	userH          *handler.UserHandler
	choreH         *handler.ChoreHandler
	rewardH        *handler.RewardHandler
	rewardRequestH *handler.RewardRequestHandler
	penaltyH       *handler.PenaltyHandler
	ledgerH        *handler.LedgerHandler
	rateLimiter    *middleware.RateLimiter
	logger         *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	choreStore := store.NewChoreStore(db)
	rewardStore := store.NewRewardStore(db)
	penaltyStore := store.NewPenaltyStore(db)

	svc := ledger.NewService(db, logger.With("component", "ledger"))
	svc.SetNotifier(hub)

	handlerLogger := logger.With("component", "handler")

	var rl *middleware.RateLimiter
	if cfg.RateLimit > 0 {
		rl = middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	}

	return &Server{
		db:             db,
		hub:            hub,
		ledger:         svc,
		userH:          handler.NewUserHandler(userStore, hub, handlerLogger),
		choreH:         handler.NewChoreHandler(choreStore, userStore, svc, hub, handlerLogger),
		rewardH:        handler.NewRewardHandler(rewardStore, userStore, hub, handlerLogger),
		rewardRequestH: handler.NewRewardRequestHandler(rewardStore, svc, hub, handlerLogger),
		penaltyH:       handler.NewPenaltyHandler(penaltyStore, userStore, svc, hub, handlerLogger),
		ledgerH:        handler.NewLedgerHandler(svc, handlerLogger),
		rateLimiter:    rl,
		logger:         logger,
	}
}

// RateLimiter returns the limiter so the caller can run periodic cleanup.
// It is nil when rate limiting is off.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Ledger() *ledger.Service {
	return s.ledger
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))

	s.registerAPIRoutes(mux)

	// Instrument must see the request the mux matched, so it sits inside
	// the logger, which replaces the request's context.
	return middleware.RequestLogger(s.logger.With("component", "http"))(metrics.Instrument(mux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) limited(h http.HandlerFunc) http.Handler {
	if s.rateLimiter == nil {
		return h
	}
	return middleware.RateLimit(s.rateLimiter, middleware.RealIP)(h)
}

func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	mux.Handle("POST /api/users", s.limited(s.userH.Create))
	mux.HandleFunc("GET /api/users", s.userH.List)
	mux.HandleFunc("GET /api/users/{id}", s.userH.Get)
	mux.Handle("PUT /api/users/{id}", s.limited(s.userH.Update))

	mux.Handle("POST /api/chores", s.limited(s.choreH.Create))
	mux.HandleFunc("GET /api/chores", s.choreH.List)
	mux.HandleFunc("GET /api/chores/{id}", s.choreH.Get)
	mux.Handle("PUT /api/chores/{id}", s.limited(s.choreH.Update))
	mux.Handle("DELETE /api/chores/{id}", s.limited(s.choreH.Delete))
	mux.Handle("POST /api/chores/{id}/complete", s.limited(s.choreH.Complete))
	mux.Handle("POST /api/chores/{id}/decision", s.limited(s.choreH.Decide))

	mux.Handle("POST /api/rewards", s.limited(s.rewardH.Create))
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.HandleFunc("GET /api/rewards/{id}", s.rewardH.Get)
	mux.Handle("PUT /api/rewards/{id}", s.limited(s.rewardH.Update))
	mux.Handle("DELETE /api/rewards/{id}", s.limited(s.rewardH.Delete))

	mux.Handle("POST /api/reward-requests", s.limited(s.rewardRequestH.Create))
	mux.HandleFunc("GET /api/reward-requests", s.rewardRequestH.List)
	mux.HandleFunc("GET /api/reward-requests/{id}", s.rewardRequestH.Get)
	mux.Handle("POST /api/reward-requests/{id}/process", s.limited(s.rewardRequestH.Process))

	mux.Handle("POST /api/penalties", s.limited(s.penaltyH.Create))
	mux.HandleFunc("GET /api/penalties", s.penaltyH.List)
	mux.HandleFunc("GET /api/penalties/{id}", s.penaltyH.Get)
	mux.Handle("PUT /api/penalties/{id}", s.limited(s.penaltyH.Update))
	mux.Handle("DELETE /api/penalties/{id}", s.limited(s.penaltyH.Delete))
	mux.Handle("POST /api/penalties/{id}/apply", s.limited(s.penaltyH.Apply))
	mux.HandleFunc("GET /api/penalty-applications", s.penaltyH.ListApplications)

	mux.HandleFunc("GET /api/transactions", s.ledgerH.Transactions)
	mux.HandleFunc("GET /api/ledger/audit", s.ledgerH.Audit)
	mux.HandleFunc("GET /api/leaderboard", s.ledgerH.Leaderboard)
}
