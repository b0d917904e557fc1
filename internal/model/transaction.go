package model

import "time"

type TransactionType string

const (
	TransactionChoreCompletion    TransactionType = "chore_completion"
	TransactionRewardRedemption   TransactionType = "reward_redemption"
	TransactionPenaltyApplication TransactionType = "penalty_application"
)

// PointTransaction is one ledger entry. ReferenceID points at the chore,
// reward request or penalty application that caused it.
type PointTransaction struct {
	ID              int64           `json:"id"`
	KidID           int64           `json:"kid_id"`
	TransactionType TransactionType `json:"transaction_type"`
	PointsChange    int             `json:"points_change"`
	ReferenceID     int64           `json:"reference_id"`
	CreatedAt       time.Time       `json:"created_at"`
}
