package app

import "errors"

// Application-level errors surfaced to the chat boundary.
var (
	ErrDuplicateName          = errors.New("a record with this name already exists")
	ErrNotFound               = errors.New("record not found")
	ErrAlreadyMember          = errors.New("user is already a member of this challenge")
	ErrNotAMember             = errors.New("user is not a member of this challenge")
	ErrCannotLeaveSoleCreator = errors.New("creator cannot leave as the only member")
	ErrLastMember             = errors.New("the last member cannot leave the challenge")
	ErrNotCreator             = errors.New("only the creator can do this")
	ErrFieldRequired          = errors.New("all fields are required")
	ErrInvalidTime            = errors.New("invalid time")
	ErrNoInvitees             = errors.New("no valid users to invite")
	ErrPersist                = errors.New("failed to persist change")
)
