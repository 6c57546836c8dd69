package domain

// Response is one selectable answer of a poll. It has no identity outside
// the poll that owns it.
type Response struct {
	Text         string       `json:"text"`
	Result       int          `json:"result"`
	Participants Participants `json:"participants"`
}

// NewResponse builds a response option. Without participants the list starts empty.
func NewResponse(text string, result int, participants ...string) Response {
	return Response{
		Text:         text,
		Result:       result,
		Participants: Participants(participants).Clone(),
	}
}

func (r *Response) AppendParticipant(id string) {
	r.Participants.Append(id)
}

func (r *Response) Participant(index int) (string, error) {
	return r.Participants.At(index)
}

func (r *Response) RemoveParticipant(id string) bool {
	return r.Participants.Remove(id)
}

func (r *Response) PopParticipant(index int) (string, error) {
	return r.Participants.Pop(index)
}
