package model

import "time"

type Reward struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Description       *string   `json:"description"`
	ImageURL          *string   `json:"image_url"`
	PointCost         int       `json:"point_cost"`
	CreatedByParentID int64     `json:"created_by_parent_id"`
	CreatedAt         time.Time `json:"created_at"`
}

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return true
	}
	return false
}

type RewardRequest struct {
	ID                  int64         `json:"id"`
	RewardID            int64         `json:"reward_id"`
	KidID               int64         `json:"kid_id"`
	Status              RequestStatus `json:"status"`
	RequestedAt         time.Time     `json:"requested_at"`
	ProcessedAt         *time.Time    `json:"processed_at"`
	ProcessedByParentID *int64        `json:"processed_by_parent_id"`
}
