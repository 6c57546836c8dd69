package domain

import "errors"

var (
	ErrOutOfRange = errors.New("index out of range")

	ErrPollNotFound      = errors.New("poll not found")
	ErrPollExists        = errors.New("poll already exists for session")
	ErrPollNotPending    = errors.New("poll is not accepting responses")
	ErrPollNotClosed     = errors.New("poll is not closed")
	ErrAlreadyResponded  = errors.New("participant already responded")
	ErrInvalidPoll       = errors.New("invalid poll")
	ErrInconsistentTally = errors.New("total responses does not match option results")
	ErrUnknownVoter      = errors.New("option participant missing from poll participants")
	ErrResultsNotFound   = errors.New("poll results not found")
	ErrConcurrentUpdate  = errors.New("poll was modified concurrently")
)
