package domain

import "context"

// PollEventType names the signal sent to the participants of a session.
type PollEventType string

const (
	EventPollCreated  PollEventType = "pollCreated"
	EventPollResponse PollEventType = "pollResponse"
	EventPollClosed   PollEventType = "pollClosed"
	EventPollDeleted  PollEventType = "pollDeleted"
)

// PollEvent is a change of the poll of one session.
type PollEvent struct {
	Type          PollEventType `json:"type"`
	Poll          *Poll         `json:"poll,omitempty"`
	ResponseIndex *int          `json:"responseIndex,omitempty"`
}

// EventPublisher fans poll events out to the participants of a session.
type EventPublisher interface {
	PublishPollEvent(ctx context.Context, sessionID string, event PollEvent) error
}
