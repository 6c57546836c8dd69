package domain

// NoChoice is the ChosenIndex of a participant who has not answered, or
// whose answer an anonymous poll does not reveal.
const NoChoice = -1

// PollView is a poll as seen by one participant.
type PollView struct {
	Poll        *Poll `json:"poll"`
	ChosenIndex int   `json:"chosenIndex"`
}
