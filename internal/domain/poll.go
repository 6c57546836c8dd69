package domain

import (
	"fmt"
	"time"
)

// Known poll statuses. Status stays an open string: "creating" and
// "responded" only exist on the client, the server stores pending and closed.
const (
	StatusCreating  = "creating"
	StatusPending   = "pending"
	StatusResponded = "responded"
	StatusClosed    = "closed"
)

// Poll is a question posed during a call session together with its response
// options and the participants who answered it.
//
// Fields are set directly by callers. TotalResponses is not derived from the
// option results; use Recount and CheckConsistency when that matters.
type Poll struct {
	SessionID      string       `json:"sessionId"`
	Status         string       `json:"status"`
	Anonymous      bool         `json:"anonymous"`
	Question       string       `json:"question"`
	Responses      []Response   `json:"responses"`
	TotalResponses int          `json:"totalResponses"`
	Participants   Participants `json:"participants"`

	// ClosedAt is set by the server when the poll stops accepting responses.
	ClosedAt time.Time `json:"closedAt,omitzero"`
}

// NewPoll builds a poll. Without participants the list starts empty.
func NewPoll(sessionID, status string, anonymous bool, question string, responses []Response, totalResponses int, participants ...string) *Poll {
	return &Poll{
		SessionID:      sessionID,
		Status:         status,
		Anonymous:      anonymous,
		Question:       question,
		Responses:      responses,
		TotalResponses: totalResponses,
		Participants:   Participants(participants).Clone(),
	}
}

func (p *Poll) AppendParticipant(id string) {
	p.Participants.Append(id)
}

func (p *Poll) Participant(index int) (string, error) {
	return p.Participants.At(index)
}

func (p *Poll) RemoveParticipant(id string) bool {
	return p.Participants.Remove(id)
}

func (p *Poll) PopParticipant(index int) (string, error) {
	return p.Participants.Pop(index)
}

// Response returns the option at index.
func (p *Poll) Response(index int) (*Response, error) {
	if index < 0 || index >= len(p.Responses) {
		return nil, fmt.Errorf("%w: response index %d, length %d", ErrOutOfRange, index, len(p.Responses))
	}
	return &p.Responses[index], nil
}

// Tally sums the results of all options.
func (p *Poll) Tally() int {
	total := 0
	for _, r := range p.Responses {
		total += r.Result
	}
	return total
}

// Recount sets TotalResponses to the sum of option results.
func (p *Poll) Recount() {
	p.TotalResponses = p.Tally()
}

// CheckConsistency verifies that TotalResponses matches the option results
// and that every option participant is also a poll participant.
func (p *Poll) CheckConsistency() error {
	if tally := p.Tally(); tally != p.TotalResponses {
		return fmt.Errorf("%w: total %d, tally %d", ErrInconsistentTally, p.TotalResponses, tally)
	}
	for i, r := range p.Responses {
		for _, id := range r.Participants {
			if !p.Participants.Contains(id) {
				return fmt.Errorf("%w: %q in response %d", ErrUnknownVoter, id, i)
			}
		}
	}
	return nil
}

// ResponseIndexOf returns the index of the option id voted for, or -1.
func (p *Poll) ResponseIndexOf(id string) int {
	for i, r := range p.Responses {
		if r.Participants.Contains(id) {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy sharing no slices with p.
func (p *Poll) Clone() *Poll {
	if p == nil {
		return nil
	}
	out := *p
	out.Participants = p.Participants.Clone()
	if p.Responses != nil {
		out.Responses = make([]Response, len(p.Responses))
		for i, r := range p.Responses {
			out.Responses[i] = Response{Text: r.Text, Result: r.Result, Participants: r.Participants.Clone()}
		}
	}
	return &out
}
