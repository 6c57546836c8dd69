package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func colorPoll() *Poll {
	return NewPoll("s1", StatusPending, false, "Color?",
		[]Response{NewResponse("Red", 0), NewResponse("Blue", 0)}, 0)
}

func TestNewPoll_DefaultsParticipantsToEmpty(t *testing.T) {
	p := colorPoll()

	require.NotNil(t, p.Participants)
	assert.Equal(t, 0, p.Participants.Len())
	for _, r := range p.Responses {
		assert.NotNil(t, r.Participants)
	}
}

func TestNewPoll_RoundTripsSequences(t *testing.T) {
	responses := []Response{NewResponse("Yes", 2, "a", "b"), NewResponse("No", 1, "c")}
	p := NewPoll("s1", StatusClosed, true, "Ship it?", responses, 3, "a", "b", "c")

	assert.Equal(t, "s1", p.SessionID)
	assert.Equal(t, StatusClosed, p.Status)
	assert.True(t, p.Anonymous)
	assert.Equal(t, "Ship it?", p.Question)
	assert.Equal(t, 3, p.TotalResponses)
	assert.Equal(t, responses, p.Responses)
	assert.Equal(t, Participants{"a", "b", "c"}, p.Participants)
}

func TestPoll_ColorScenario(t *testing.T) {
	p := colorPoll()

	p.AppendParticipant("alice")
	p.AppendParticipant("bob")
	assert.Equal(t, Participants{"alice", "bob"}, p.Participants)

	assert.True(t, p.RemoveParticipant("alice"))
	assert.Equal(t, Participants{"bob"}, p.Participants)

	got, err := p.Participant(0)
	require.NoError(t, err)
	assert.Equal(t, "bob", got)

	_, err = p.Participant(1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestPoll_AppendThenReadLast(t *testing.T) {
	p := colorPoll()
	p.AppendParticipant("x")
	p.AppendParticipant("y")

	before := p.Participants.Len()
	p.AppendParticipant("z")

	assert.Equal(t, before+1, p.Participants.Len())
	last, err := p.Participant(p.Participants.Len() - 1)
	require.NoError(t, err)
	assert.Equal(t, "z", last)
}

func TestPoll_PopParticipant(t *testing.T) {
	p := NewPoll("s1", StatusPending, false, "Q", nil, 0, "a", "b", "c")

	got, err := p.PopParticipant(0)
	require.NoError(t, err)
	assert.Equal(t, "a", got)
	assert.Equal(t, Participants{"b", "c"}, p.Participants)

	_, err = p.PopParticipant(2)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Equal(t, Participants{"b", "c"}, p.Participants)
}

func TestResponse_OwnListIsIndependent(t *testing.T) {
	p := colorPoll()
	r, err := p.Response(0)
	require.NoError(t, err)

	r.AppendParticipant("alice")
	assert.Equal(t, Participants{"alice"}, p.Responses[0].Participants)
	assert.Equal(t, 0, p.Participants.Len())

	got, err := r.Participant(0)
	require.NoError(t, err)
	assert.Equal(t, "alice", got)

	assert.False(t, r.RemoveParticipant("bob"))
	popped, err := r.PopParticipant(0)
	require.NoError(t, err)
	assert.Equal(t, "alice", popped)
	_, err = r.Participant(0)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestPoll_ResponseOutOfRange(t *testing.T) {
	p := colorPoll()

	_, err := p.Response(2)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = p.Response(-1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestPoll_ResponseOutOfRangeNamesResponseIndex(t *testing.T) {
	p := colorPoll()

	_, err := p.Response(5)
	require.ErrorIs(t, err, ErrOutOfRange)
	assert.Contains(t, err.Error(), "response index 5")
	assert.NotContains(t, err.Error(), "participant")
}

func TestPoll_SettersAcceptAnyValue(t *testing.T) {
	p := colorPoll()
	p.Question = ""
	p.TotalResponses = -4
	p.Status = "whatever"
	p.Participants = Participants{"z", "z"}

	assert.Equal(t, -4, p.TotalResponses)
	assert.Equal(t, Participants{"z", "z"}, p.Participants)
}

func TestPoll_CheckConsistency(t *testing.T) {
	tests := []struct {
		name    string
		poll    *Poll
		wantErr error
	}{
		{
			name: "consistent",
			poll: NewPoll("s1", StatusPending, false, "Q",
				[]Response{NewResponse("A", 1, "alice"), NewResponse("B", 1, "bob")}, 2, "alice", "bob"),
		},
		{
			name: "tally mismatch",
			poll: NewPoll("s1", StatusPending, false, "Q",
				[]Response{NewResponse("A", 2), NewResponse("B", 0)}, 1),
			wantErr: ErrInconsistentTally,
		},
		{
			name: "voter not in poll",
			poll: NewPoll("s1", StatusPending, false, "Q",
				[]Response{NewResponse("A", 1, "mallory"), NewResponse("B", 0)}, 1),
			wantErr: ErrUnknownVoter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.poll.CheckConsistency()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPoll_Recount(t *testing.T) {
	p := NewPoll("s1", StatusPending, true, "Q", []Response{NewResponse("A", 3), NewResponse("B", 4)}, 0)
	p.Recount()

	assert.Equal(t, 7, p.TotalResponses)
	assert.NoError(t, p.CheckConsistency())
}

func TestPoll_ResponseIndexOf(t *testing.T) {
	p := NewPoll("s1", StatusPending, false, "Q",
		[]Response{NewResponse("A", 0), NewResponse("B", 1, "bob")}, 1, "bob")

	assert.Equal(t, 1, p.ResponseIndexOf("bob"))
	assert.Equal(t, -1, p.ResponseIndexOf("alice"))
}

func TestPoll_CloneIsDeep(t *testing.T) {
	p := NewPoll("s1", StatusPending, false, "Q",
		[]Response{NewResponse("A", 1, "alice"), NewResponse("B", 0)}, 1, "alice")
	c := p.Clone()

	c.AppendParticipant("bob")
	c.Responses[1].AppendParticipant("bob")
	c.Responses[1].Result++

	assert.Equal(t, Participants{"alice"}, p.Participants)
	assert.Equal(t, 0, p.Responses[1].Result)
	assert.Empty(t, p.Responses[1].Participants)
	assert.Nil(t, (*Poll)(nil).Clone())
}

func TestPoll_JSONFieldNames(t *testing.T) {
	p := colorPoll()

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"sessionId": "s1",
		"status": "pending",
		"anonymous": false,
		"question": "Color?",
		"responses": [
			{"text": "Red", "result": 0, "participants": []},
			{"text": "Blue", "result": 0, "participants": []}
		],
		"totalResponses": 0,
		"participants": []
	}`, string(data))
}

func TestPoll_JSONCarriesClosedAtOnceSet(t *testing.T) {
	p := colorPoll()
	p.Status = StatusClosed
	p.ClosedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"closedAt":"2026-03-01T10:00:00Z"`)

	var back Poll
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, p.ClosedAt.Equal(back.ClosedAt))
	assert.True(t, back.Clone().ClosedAt.Equal(p.ClosedAt))
}
