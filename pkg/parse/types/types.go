package types

import "fmt"

// Reference is a lightweight link to another entity, carried without its attributes
type Reference struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func NewReference(entityType, entityID string) Reference {
	return Reference{Type: entityType, ID: entityID}
}

func (r Reference) IsZero() bool {
	return r.ID == ""
}

func (r Reference) String() string {
	return fmt.Sprintf("%s:%s", r.Type, r.ID)
}

// IndexOf returns the position of the first reference with the same id as ref, or -1
func IndexOf(refs []Reference, ref Reference) int {
	for idx := range refs {
		if refs[idx].ID == ref.ID {
			return idx
		}
	}
	return -1
}

func Contains(refs []Reference, ref Reference) bool {
	return IndexOf(refs, ref) >= 0
}
