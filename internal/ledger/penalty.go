package ledger

import (
	"context"

	"github.com/dukerupert/allowance/internal/model"
)

// ApplyPenalty deducts a penalty from a kid immediately. The balance may go
// negative. The application keeps a snapshot of the deduction so later edits
// to the penalty do not rewrite history.
func (s *Service) ApplyPenalty(ctx context.Context, penaltyID, kidID, parentID int64) (*model.PenaltyApplication, error) {
	var out *model.PenaltyApplication
	err := s.inTx(ctx, "apply_penalty", func(ts *txStores) error {
		penalty, err := ts.penalties.GetByID(ctx, penaltyID)
		if err != nil {
			return err
		}
		if penalty == nil {
			return newError(KindNotFound, msgPenaltyNotFound)
		}

		ku, err := ts.users.GetByID(ctx, kidID)
		if err != nil {
			return err
		}
		if ku == nil {
			return newError(KindNotFound, msgKidNotFound)
		}
		kid, ok := asKid(ku)
		if !ok {
			return newError(KindInvalidRole, msgNotAKid)
		}

		pu, err := ts.users.GetByID(ctx, parentID)
		if err != nil {
			return err
		}
		if pu == nil {
			return newError(KindNotFound, msgParentNotFound)
		}
		parent, ok := asParent(pu)
		if !ok {
			return newError(KindInvalidRole, msgNotAParent)
		}

		deduction := penalty.PointDeduction
		if deduction <= 0 {
			return newError(KindInvalidInput, "penalty point deduction must be positive")
		}

		charged, err := ts.users.AddPoints(ctx, kid.ID, -deduction)
		if err != nil {
			return err
		}
		if !charged {
			return newError(KindNotFound, msgKidNotFound)
		}

		at := s.now()
		app, err := ts.penalties.CreateApplication(ctx, penalty.ID, kid.ID, parent.ID, deduction, at)
		if err != nil {
			return err
		}
		if err := ts.appendEntry(ctx, kid.ID, model.TransactionPenaltyApplication, -deduction, app.ID, at); err != nil {
			return err
		}
		out = app
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
