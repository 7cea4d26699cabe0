package repository

import "errors"

// Sentinel errors shared by all repositories. Handlers map these onto the
// HTTP error taxonomy; invariants that must hold regardless of call site
// (reply depth, self-subscription) are enforced here, not per handler.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("already exists")
	ErrSelfSubscription = errors.New("cannot subscribe to yourself")
	ErrReplyToReply     = errors.New("replies cannot be replied to")
	ErrEmptyContent     = errors.New("content must not be empty")
)
