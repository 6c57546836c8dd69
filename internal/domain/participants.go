package domain

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Participants is an ordered list of participant identifiers. Duplicates are
// allowed; removal by value only drops the first match.
type Participants []string

// Len returns the number of entries.
func (p Participants) Len() int {
	return len(p)
}

// Append adds id at the end of the list.
func (p *Participants) Append(id string) {
	*p = append(*p, id)
}

// At returns the participant at index.
func (p Participants) At(index int) (string, error) {
	if index < 0 || index >= len(p) {
		return "", fmt.Errorf("%w: participant index %d, length %d", ErrOutOfRange, index, len(p))
	}
	return p[index], nil
}

// Remove deletes the first occurrence of id and reports whether one was found.
func (p *Participants) Remove(id string) bool {
	i := slices.Index(*p, id)
	if i < 0 {
		return false
	}
	*p = slices.Delete(*p, i, i+1)
	return true
}

// Pop removes and returns the participant at index. The list is left
// untouched when index is invalid.
func (p *Participants) Pop(index int) (string, error) {
	id, err := p.At(index)
	if err != nil {
		return "", err
	}
	*p = slices.Delete(*p, index, index+1)
	return id, nil
}

// Contains reports whether id is in the list.
func (p Participants) Contains(id string) bool {
	return slices.Contains(p, id)
}

// Clone returns an independent copy; a nil list clones to an empty one.
func (p Participants) Clone() Participants {
	out := make(Participants, len(p))
	copy(out, p)
	return out
}

// MarshalJSON encodes a nil list as [] so clients never see null.
func (p Participants) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(p))
}
