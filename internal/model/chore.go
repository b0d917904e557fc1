package model

import "time"

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyOneTime Frequency = "one_time"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyOneTime:
		return true
	}
	return false
}

type ChoreStatus string

const (
	ChoreStatusPending                  ChoreStatus = "pending"
	ChoreStatusCompletedPendingApproval ChoreStatus = "completed_pending_approval"
	ChoreStatusApproved                 ChoreStatus = "approved"
	ChoreStatusRejected                 ChoreStatus = "rejected"
)

type Chore struct {
	ID                int64       `json:"id"`
	Name              string      `json:"name"`
	PointValue        int         `json:"point_value"`
	Frequency         Frequency   `json:"frequency"`
	AssignedKidID     int64       `json:"assigned_kid_id"`
	Status            ChoreStatus `json:"status"`
	CreatedByParentID int64       `json:"created_by_parent_id"`
	CreatedAt         time.Time   `json:"created_at"`
	CompletedAt       *time.Time  `json:"completed_at"`
	// ApprovedAt records when the parent decided, for rejections too.
	ApprovedAt *time.Time `json:"approved_at"`
}
