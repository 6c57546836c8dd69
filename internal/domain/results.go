package domain

import (
	"context"
	"math"
	"time"
)

// ResponseResult is the exported outcome of one option.
type ResponseResult struct {
	Text         string   `json:"text"`
	Result       int      `json:"result"`
	Percentage   float64  `json:"percentage"`
	Participants []string `json:"participants,omitempty"`
}

// PollResults is the exportable summary of a closed poll.
type PollResults struct {
	SessionID      string           `json:"sessionId"`
	Question       string           `json:"question"`
	Anonymous      bool             `json:"anonymous"`
	TotalResponses int              `json:"totalResponses"`
	ClosedAt       time.Time        `json:"closedAt"`
	Responses      []ResponseResult `json:"responses"`
}

// BuildResults summarises poll. Voter names are left out of anonymous polls.
func BuildResults(p *Poll, closedAt time.Time) *PollResults {
	res := &PollResults{
		SessionID:      p.SessionID,
		Question:       p.Question,
		Anonymous:      p.Anonymous,
		TotalResponses: p.TotalResponses,
		ClosedAt:       closedAt,
		Responses:      make([]ResponseResult, 0, len(p.Responses)),
	}
	for _, r := range p.Responses {
		rr := ResponseResult{
			Text:       r.Text,
			Result:     r.Result,
			Percentage: percentage(r.Result, p.TotalResponses),
		}
		if !p.Anonymous {
			rr.Participants = r.Participants.Clone()
		}
		res.Responses = append(res.Responses, rr)
	}
	return res
}

func percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)*10000/float64(total)) / 100
}

// ResultsArchive keeps the results of closed polls after the live poll is gone.
type ResultsArchive interface {
	Save(ctx context.Context, results *PollResults) error
	Latest(ctx context.Context, sessionID string) (*PollResults, error)
}
