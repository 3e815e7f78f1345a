package social

import "errors"

var (
	// ErrSelfTarget indicates a user attempted to friend themselves.
	ErrSelfTarget = errors.New("cannot send request to yourself")
	// ErrForbidden indicates the acting user lacks the role required for the transition.
	ErrForbidden = errors.New("not authorized for this request")
	// ErrInvalidState indicates the requested transition is not legal from the current status.
	ErrInvalidState = errors.New("request already processed")
	// ErrNotFriends indicates the two users are not mutual friends.
	ErrNotFriends = errors.New("users are not friends")
)
