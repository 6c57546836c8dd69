package domain

import (
	"fmt"
	"strings"
)

const MinResponses = 2

// FieldError reports which input of a poll draft is invalid. It matches
// ErrInvalidPoll with errors.Is.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidPoll
}

// ValidateDraft checks a poll before it is opened: a question, at least two
// options and no option without text.
func ValidateDraft(p *Poll) error {
	if strings.TrimSpace(p.SessionID) == "" {
		return &FieldError{Field: "sessionId", Message: "Please, provide the session id"}
	}
	if strings.TrimSpace(p.Question) == "" {
		return &FieldError{Field: "question", Message: "Please, enter a question"}
	}
	if len(p.Responses) < MinResponses {
		return &FieldError{Message: fmt.Sprintf("The poll needs at least %d responses", MinResponses)}
	}
	for i, r := range p.Responses {
		if strings.TrimSpace(r.Text) == "" {
			return &FieldError{
				Field:   fmt.Sprintf("response%d", i),
				Message: fmt.Sprintf("Please, enter the response %d", i+1),
			}
		}
	}
	return nil
}
