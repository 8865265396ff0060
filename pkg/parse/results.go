package parse

import (
	"encoding/json"
	"fmt"

	"github.com/diwise/parse-adapter/pkg/parse/types/entities"
)

// CommitState is the state of a single save operation
type CommitState int

const (
	Idle CommitState = iota
	BatchPending
	MainPending
	Reconciling
	Done
	Failed
)

func (s CommitState) String() string {
	switch s {
	case Idle:
		return "idle"
	case BatchPending:
		return "batch-pending"
	case MainPending:
		return "main-pending"
	case Reconciling:
		return "reconciling"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type SaveEntityResult struct {
	State  CommitState
	Merged map[string]any
	Entity *entities.Entity
}

func NewSaveEntityResult(state CommitState, merged map[string]any, entity *entities.Entity) *SaveEntityResult {
	return &SaveEntityResult{
		State:  state,
		Merged: merged,
		Entity: entity,
	}
}

type QueryEntitiesResult struct {
	Found    []*entities.Entity
	Count    int
	HasCount bool
}

func NewQueryEntitiesResult(found []*entities.Entity) *QueryEntitiesResult {
	return &QueryEntitiesResult{
		Found: found,
		Count: -1,
	}
}

type DeleteEntityResult struct {
	ID string
}

func NewDeleteEntityResult(id string) *DeleteEntityResult {
	return &DeleteEntityResult{ID: id}
}

// FunctionResult carries the raw result of a cloud function call
type FunctionResult struct {
	Result json.RawMessage `json:"result"`
}

func NewFunctionResult(body []byte) (*FunctionResult, error) {
	fr := &FunctionResult{}
	if len(body) > 0 {
		err := json.Unmarshal(body, fr)
		if err != nil {
			return nil, err
		}
	}
	return fr, nil
}

func (fr *FunctionResult) Decode(v any) error {
	if len(fr.Result) == 0 {
		return fmt.Errorf("function returned no result")
	}
	return json.Unmarshal(fr.Result, v)
}

// SessionResult is returned by operations that authenticate a user
type SessionResult struct {
	User         *entities.Entity
	SessionToken string
}

func NewSessionResult(user *entities.Entity) *SessionResult {
	token, _ := user.Attribute("sessionToken")
	s, _ := token.(string)

	return &SessionResult{
		User:         user,
		SessionToken: s,
	}
}
