// Package ledger owns every change to a kid's point balance: chore approval,
// reward redemption and penalty application. Each operation re-reads its
// preconditions and writes the status change, the balance change and the
// ledger entry inside one database transaction.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/allowance/internal/metrics"
	"github.com/dukerupert/allowance/internal/model"
	"github.com/dukerupert/allowance/internal/store"
)

// Change describes one committed ledger entry.
type Change struct {
	TransactionID int64
	KidID         int64
	Type          model.TransactionType
	Delta         int
	ReferenceID   int64
}

// Notifier is told about each ledger entry after its transaction commits.
type Notifier interface {
	PointsChanged(Change)
}

type Service struct {
	db        *sql.DB
	users     *store.UserStore
	chores    *store.ChoreStore
	rewards   *store.RewardStore
	penalties *store.PenaltyStore
	txns      *store.TransactionStore
	notifier  Notifier
	now       func() time.Time
	logger    *slog.Logger
}

func NewService(db *sql.DB, logger *slog.Logger) *Service {
	return &Service{
		db:        db,
		users:     store.NewUserStore(db),
		chores:    store.NewChoreStore(db),
		rewards:   store.NewRewardStore(db),
		penalties: store.NewPenaltyStore(db),
		txns:      store.NewTransactionStore(db),
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
}

// SetNotifier registers n to receive committed changes. Pass nil to stop.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetClock replaces the time source used for status and ledger timestamps.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// txStores are the stores bound to one transaction, plus the ledger entries
// written so far.
type txStores struct {
	users     *store.UserStore
	chores    *store.ChoreStore
	rewards   *store.RewardStore
	penalties *store.PenaltyStore
	txns      *store.TransactionStore
	changes   []Change
}

func (ts *txStores) appendEntry(ctx context.Context, kidID int64, txType model.TransactionType, delta int, referenceID int64, at time.Time) error {
	t, err := ts.txns.Append(ctx, model.PointTransaction{
		KidID:           kidID,
		TransactionType: txType,
		PointsChange:    delta,
		ReferenceID:     referenceID,
		CreatedAt:       at,
	})
	if err != nil {
		return err
	}
	ts.changes = append(ts.changes, Change{
		TransactionID: t.ID,
		KidID:         kidID,
		Type:          txType,
		Delta:         delta,
		ReferenceID:   referenceID,
	})
	return nil
}

// inTx runs fn in a transaction and commits only if fn returns nil. Ledger
// entries are reported after the commit succeeds.
func (s *Service) inTx(ctx context.Context, op string, fn func(ts *txStores) error) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = KindOf(err).String()
		}
		metrics.RecordOperation(op, outcome, time.Since(start))

		switch {
		case err == nil:
		case KindOf(err) != KindUnknown:
			s.logger.Debug("operation refused", "op", op, "reason", err.Error())
		default:
			s.logger.Error("operation failed", "op", op, "error", err)
		}
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ts := &txStores{
		users:     s.users.WithTx(tx),
		chores:    s.chores.WithTx(tx),
		rewards:   s.rewards.WithTx(tx),
		penalties: s.penalties.WithTx(tx),
		txns:      s.txns.WithTx(tx),
	}
	if err := fn(ts); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	for _, c := range ts.changes {
		s.logger.Info("points changed",
			"kid_id", c.KidID,
			"delta", c.Delta,
			"type", string(c.Type),
			"reference_id", c.ReferenceID,
			"transaction_id", c.TransactionID,
		)
		metrics.RecordPoints(string(c.Type), c.Delta)
		if s.notifier != nil {
			s.notifier.PointsChanged(c)
		}
	}
	return nil
}

func asKid(u *model.User) (model.Kid, bool) {
	if u == nil {
		return model.Kid{}, false
	}
	k, ok := u.Member().(model.Kid)
	return k, ok
}

func asParent(u *model.User) (model.Parent, bool) {
	if u == nil {
		return model.Parent{}, false
	}
	p, ok := u.Member().(model.Parent)
	return p, ok
}

// requireParent loads the acting parent and fails with Forbidden for either
// a missing user or a non-parent.
func requireParent(ctx context.Context, users *store.UserStore, parentID int64) (model.Parent, error) {
	u, err := users.GetByID(ctx, parentID)
	if err != nil {
		return model.Parent{}, err
	}
	p, ok := asParent(u)
	if !ok {
		return model.Parent{}, newError(KindForbidden, msgParentRequired)
	}
	return p, nil
}
