package ledger

import (
	"context"

	"github.com/dukerupert/allowance/internal/model"
)

// Transactions returns every ledger entry, newest first.
func (s *Service) Transactions(ctx context.Context) ([]model.PointTransaction, error) {
	return s.txns.List(ctx)
}

// TransactionsByKid returns one kid's ledger entries, newest first.
func (s *Service) TransactionsByKid(ctx context.Context, kidID int64) ([]model.PointTransaction, error) {
	return s.txns.ListByKid(ctx, kidID)
}

// Audit compares each kid's stored balance with the sum of their ledger
// entries. It reports drift and never repairs it.
func (s *Service) Audit(ctx context.Context) ([]model.PointBalance, error) {
	balances, err := s.users.Balances(ctx)
	if err != nil {
		return nil, err
	}
	for _, b := range balances {
		if b.Drift != 0 {
			s.logger.Warn("ledger drift", "kid_id", b.KidID, "balance", b.Balance, "ledger_sum", b.LedgerSum)
		}
	}
	return balances, nil
}

// Leaderboard returns kids ordered by balance, highest first.
func (s *Service) Leaderboard(ctx context.Context) ([]model.User, error) {
	return s.users.Leaderboard(ctx)
}
