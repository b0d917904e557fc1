package ledger

import (
	"context"
	"time"

	"github.com/dukerupert/allowance/internal/model"
)

// decideRewardRequest records a parent's decision on a pending request.
func decideRewardRequest(r model.RewardRequest, parentID int64, approved bool, at time.Time) (model.RewardRequest, error) {
	if r.Status != model.RequestStatusPending {
		return r, newError(KindInvalidState, msgRequestNotPending)
	}
	r.Status = model.RequestStatusRejected
	if approved {
		r.Status = model.RequestStatusApproved
	}
	r.ProcessedAt = &at
	r.ProcessedByParentID = &parentID
	return r, nil
}

// CreateRewardRequest files a pending request for a reward. The kid must be
// able to afford it now, but nothing is charged or held until approval.
func (s *Service) CreateRewardRequest(ctx context.Context, rewardID, kidID int64) (*model.RewardRequest, error) {
	var out *model.RewardRequest
	err := s.inTx(ctx, "create_reward_request", func(ts *txStores) error {
		reward, err := ts.rewards.GetByID(ctx, rewardID)
		if err != nil {
			return err
		}
		if reward == nil {
			return newError(KindNotFound, msgRewardNotFound)
		}

		u, err := ts.users.GetByID(ctx, kidID)
		if err != nil {
			return err
		}
		if u == nil {
			return newError(KindNotFound, msgKidNotFound)
		}
		kid, ok := asKid(u)
		if !ok {
			return newError(KindForbidden, msgOnlyKids)
		}
		if kid.Points < reward.PointCost {
			return newError(KindInsufficientFunds, msgInsufficientAtCreate)
		}

		out, err = ts.rewards.CreateRequest(ctx, reward.ID, kid.ID, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ProcessRewardRequest approves or rejects a pending request. Approval
// re-checks the kid's balance; if it no longer covers the cost the request
// stays pending and InsufficientFunds is returned.
func (s *Service) ProcessRewardRequest(ctx context.Context, requestID, parentID int64, approved bool) (*model.RewardRequest, error) {
	op := "reject_reward_request"
	if approved {
		op = "approve_reward_request"
	}

	var out *model.RewardRequest
	err := s.inTx(ctx, op, func(ts *txStores) error {
		req, err := ts.rewards.GetRequestByID(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil || req.Status != model.RequestStatusPending {
			return newError(KindInvalidState, msgRequestNotPending)
		}
		if _, err := requireParent(ctx, ts.users, parentID); err != nil {
			return err
		}
		u, err := ts.users.GetByID(ctx, req.KidID)
		if err != nil {
			return err
		}
		kid, ok := asKid(u)
		if !ok {
			return newError(KindNotFound, msgKidNotFound)
		}

		at := s.now()
		next, err := decideRewardRequest(*req, parentID, approved, at)
		if err != nil {
			return err
		}

		var cost int
		if approved {
			reward, err := ts.rewards.GetByID(ctx, req.RewardID)
			if err != nil {
				return err
			}
			if reward == nil {
				return newError(KindNotFound, msgRewardNotFound)
			}
			if kid.Points < reward.PointCost {
				return newError(KindInsufficientFunds, msgInsufficientAtApprove)
			}
			cost = reward.PointCost
		}

		ok, err = ts.rewards.TransitionRequest(ctx, next)
		if err != nil {
			return err
		}
		if !ok {
			return newError(KindInvalidState, msgRequestNotPending)
		}

		if approved && cost > 0 {
			spent, err := ts.users.SpendPoints(ctx, kid.ID, cost)
			if err != nil {
				return err
			}
			if !spent {
				return newError(KindInsufficientFunds, msgInsufficientAtApprove)
			}
			if err := ts.appendEntry(ctx, kid.ID, model.TransactionRewardRedemption, -cost, req.ID, at); err != nil {
				return err
			}
		}

		out, err = ts.rewards.GetRequestByID(ctx, requestID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
