package model

import "time"

type Role string

const (
	RoleParent Role = "parent"
	RoleKid    Role = "kid"
)

func (r Role) Valid() bool {
	return r == RoleParent || r == RoleKid
}

// User is the storage shape shared by parents and kids. Points is only
// meaningful for kids; use Member to get at it.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

// Member is either a Parent or a Kid.
type Member interface {
	MemberID() int64
	isMember()
}

type Parent struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

type Kid struct {
	ID        int64
	Name      string
	Points    int
	CreatedAt time.Time
}

func (p Parent) MemberID() int64 { return p.ID }
func (k Kid) MemberID() int64    { return k.ID }

func (Parent) isMember() {}
func (Kid) isMember()    {}

// Member returns the role-specific view of u, or nil if the stored role is
// not one we know.
func (u User) Member() Member {
	switch u.Role {
	case RoleParent:
		return Parent{ID: u.ID, Name: u.Name, CreatedAt: u.CreatedAt}
	case RoleKid:
		return Kid{ID: u.ID, Name: u.Name, Points: u.Points, CreatedAt: u.CreatedAt}
	}
	return nil
}

// PointBalance compares a kid's stored balance with the sum of its ledger.
type PointBalance struct {
	KidID     int64  `json:"kid_id"`
	KidName   string `json:"kid_name"`
	Balance   int    `json:"balance"`
	LedgerSum int    `json:"ledger_sum"`
	Drift     int    `json:"drift"`
}
