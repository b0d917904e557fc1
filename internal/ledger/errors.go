package ledger

import "errors"

// Kind classifies why a ledger operation was refused.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound: a referenced chore, reward, penalty, request or user does not exist.
	KindNotFound
	// KindInvalidRole: a referenced user has the wrong role for the subject position.
	KindInvalidRole
	// KindInvalidState: the entity is not in the status the transition requires.
	KindInvalidState
	// KindInsufficientFunds: the kid's balance is below the cost.
	KindInsufficientFunds
	// KindForbidden: the acting user may not perform the action.
	KindForbidden
	// KindInvalidInput: a value the core double-checks is out of range.
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidRole:
		return "invalid_role"
	case KindInvalidState:
		return "invalid_state"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindForbidden:
		return "forbidden"
	case KindInvalidInput:
		return "invalid_input"
	}
	return "unknown"
}

// Error is a refused operation. Msg is meant to be shown to the user as is.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Msg
}

// Is matches the bare sentinels below against any error of the same kind,
// so errors.Is(err, ErrNotFound) works whatever the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidRole       = &Error{Kind: KindInvalidRole}
	ErrInvalidState      = &Error{Kind: KindInvalidState}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
)

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// KindOf returns the kind of a ledger error anywhere in err's chain, or
// KindUnknown for infrastructure failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Messages used by more than one operation.
const (
	msgChoreNotFound         = "chore not found"
	msgChoreNotAssigned      = "chore is not assigned to this kid"
	msgChoreNotPending       = "chore is not in pending status"
	msgChoreNotAwaiting      = "chore not found or not pending approval"
	msgParentRequired        = "parent not found or user is not a parent"
	msgKidNotFound           = "kid not found"
	msgRewardNotFound        = "reward not found"
	msgOnlyKids              = "only kids can request rewards"
	msgInsufficientAtCreate  = "insufficient points for this reward"
	msgInsufficientAtApprove = "kid does not have enough points for this reward"
	msgRequestNotPending     = "reward request not found or not in pending status"
	msgPenaltyNotFound       = "penalty not found"
	msgNotAKid               = "user is not a kid"
	msgParentNotFound        = "parent not found"
	msgNotAParent            = "user is not a parent"
)
