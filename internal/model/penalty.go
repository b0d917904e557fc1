package model

import "time"

type Penalty struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Description       *string   `json:"description"`
	PointDeduction    int       `json:"point_deduction"`
	CreatedByParentID int64     `json:"created_by_parent_id"`
	CreatedAt         time.Time `json:"created_at"`
}

// PenaltyApplication is immutable once written. PointsDeducted is copied
// from the penalty at application time.
type PenaltyApplication struct {
	ID                int64     `json:"id"`
	PenaltyID         int64     `json:"penalty_id"`
	KidID             int64     `json:"kid_id"`
	AppliedByParentID int64     `json:"applied_by_parent_id"`
	AppliedAt         time.Time `json:"applied_at"`
	PointsDeducted    int       `json:"points_deducted"`
}
