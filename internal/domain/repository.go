package domain

import "context"

// UpdateFunc mutates a poll inside a repository transaction. Returning an
// error aborts the update and leaves the stored poll unchanged.
type UpdateFunc func(p *Poll) error

// PollRepository stores at most one live poll per call session. Polls handed
// in and out are copies; callers never share slices with the store.
type PollRepository interface {
	Create(ctx context.Context, p *Poll) error
	Get(ctx context.Context, sessionID string) (*Poll, error)
	Update(ctx context.Context, sessionID string, fn UpdateFunc) (*Poll, error)
	Delete(ctx context.Context, sessionID string) error
	PurgeExpired(ctx context.Context) (int, error)
}
