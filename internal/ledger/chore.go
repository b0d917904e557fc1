package ledger

import (
	"context"
	"time"

	"github.com/dukerupert/allowance/internal/model"
)

// Chore lifecycle:
//
//	pending -> completed_pending_approval -> approved
//	                                      -> rejected
//
// approved and rejected are terminal.

// completeChore is the kid's transition out of pending.
func completeChore(c model.Chore, kidID int64, at time.Time) (model.Chore, error) {
	if c.AssignedKidID != kidID {
		return c, newError(KindForbidden, msgChoreNotAssigned)
	}
	if c.Status != model.ChoreStatusPending {
		return c, newError(KindInvalidState, msgChoreNotPending)
	}
	c.Status = model.ChoreStatusCompletedPendingApproval
	c.CompletedAt = &at
	return c, nil
}

// decideChore is the parent's decision. ApprovedAt records the decision
// time either way; a rejection clears CompletedAt and nothing else.
func decideChore(c model.Chore, approved bool, at time.Time) (model.Chore, error) {
	if c.Status != model.ChoreStatusCompletedPendingApproval {
		return c, newError(KindInvalidState, msgChoreNotAwaiting)
	}
	c.ApprovedAt = &at
	if approved {
		c.Status = model.ChoreStatusApproved
		return c, nil
	}
	c.Status = model.ChoreStatusRejected
	c.CompletedAt = nil
	return c, nil
}

// MarkChoreCompleted moves a pending chore to completed_pending_approval on
// behalf of its assigned kid. It never touches the ledger.
func (s *Service) MarkChoreCompleted(ctx context.Context, choreID, kidID int64) (*model.Chore, error) {
	var out *model.Chore
	err := s.inTx(ctx, "mark_chore_completed", func(ts *txStores) error {
		c, err := ts.chores.GetByID(ctx, choreID)
		if err != nil {
			return err
		}
		if c == nil {
			return newError(KindNotFound, msgChoreNotFound)
		}

		next, err := completeChore(*c, kidID, s.now())
		if err != nil {
			return err
		}
		ok, err := ts.chores.Transition(ctx, next, c.Status)
		if err != nil {
			return err
		}
		if !ok {
			return newError(KindInvalidState, msgChoreNotPending)
		}

		out, err = ts.chores.GetByID(ctx, choreID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DecideChore approves or rejects a completed chore. Approval credits the
// assigned kid with the chore's points and writes one chore_completion
// entry; rejection writes nothing to the ledger.
func (s *Service) DecideChore(ctx context.Context, choreID, parentID int64, approved bool) (*model.Chore, error) {
	op := "reject_chore"
	if approved {
		op = "approve_chore"
	}

	var out *model.Chore
	err := s.inTx(ctx, op, func(ts *txStores) error {
		c, err := ts.chores.GetByID(ctx, choreID)
		if err != nil {
			return err
		}
		if c == nil || c.Status != model.ChoreStatusCompletedPendingApproval {
			return newError(KindInvalidState, msgChoreNotAwaiting)
		}
		if _, err := requireParent(ctx, ts.users, parentID); err != nil {
			return err
		}
		if approved && c.PointValue <= 0 {
			return newError(KindInvalidInput, "chore point value must be positive")
		}

		at := s.now()
		next, err := decideChore(*c, approved, at)
		if err != nil {
			return err
		}
		ok, err := ts.chores.Transition(ctx, next, c.Status)
		if err != nil {
			return err
		}
		if !ok {
			return newError(KindInvalidState, msgChoreNotAwaiting)
		}

		if approved {
			credited, err := ts.users.AddPoints(ctx, c.AssignedKidID, c.PointValue)
			if err != nil {
				return err
			}
			if !credited {
				return newError(KindNotFound, msgKidNotFound)
			}
			if err := ts.appendEntry(ctx, c.AssignedKidID, model.TransactionChoreCompletion, c.PointValue, c.ID, at); err != nil {
				return err
			}
		}

		out, err = ts.chores.GetByID(ctx, choreID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
