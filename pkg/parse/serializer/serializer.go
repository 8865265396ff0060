package serializer

import (
	"fmt"
	"time"

	"github.com/diwise/parse-adapter/pkg/parse/schema"
	"github.com/diwise/parse-adapter/pkg/parse/types"
	"github.com/diwise/parse-adapter/pkg/parse/types/entities"
	"github.com/diwise/parse-adapter/pkg/parse/types/pointers"
	"github.com/diwise/parse-adapter/pkg/parse/types/relationships"
)

const (
	OpAddUnique      string = "AddUnique"
	OpRemove         string = "Remove"
	OpAddRelation    string = "AddRelation"
	OpRemoveRelation string = "RemoveRelation"
	OpBatch          string = "Batch"
)

// ISOFormat is the timestamp layout the backend expects inside Date envelopes
const ISOFormat string = "2006-01-02T15:04:05.000Z"

// Op is a membership mutation of a relationship field
type Op struct {
	Op      string             `json:"__op"`
	Objects []pointers.Pointer `json:"objects,omitempty"`
	Ops     []Op               `json:"ops,omitempty"`
}

// IsRelationOp reports if the op targets a server side relation, which unlike
// array ops can be combined with other ops on the same key
func (o Op) IsRelationOp() bool {
	return o.Op == OpAddRelation || o.Op == OpRemoveRelation || o.Op == OpBatch
}

type Date struct {
	Type string `json:"__type"`
	ISO  string `json:"iso"`
}

func NewDate(t time.Time) Date {
	return Date{Type: pointers.TypeDate, ISO: t.UTC().Format(ISOFormat)}
}

// Payload is the wire representation of an entity. Attributes is sent as the main
// request body. BatchOps, when not nil, must be sent as a separate request.
type Payload struct {
	Attributes map[string]any
	BatchOps   map[string]any
}

// RelationOps returns the subset of the batch ops that target server side relations
func (p *Payload) RelationOps() map[string]any {
	var result map[string]any

	for key, op := range p.BatchOps {
		if o, ok := op.(Op); ok && o.IsRelationOp() {
			if result == nil {
				result = map[string]any{}
			}
			result[key] = o
		}
	}

	return result
}

func Serialize(e *entities.Entity) (*Payload, error) {
	return SerializeSnapshot(e.Snapshot())
}

func SerializeSnapshot(s entities.Snapshot) (*Payload, error) {
	p := &Payload{
		Attributes: map[string]any{},
	}

	for name, value := range s.Attributes {
		if schema.IsReserved(name) {
			continue
		}

		if s.Model.IsUser() && (name == "password" || name == "username") && isEmpty(value) {
			continue
		}

		p.Attributes[name] = attributeValue(value)
	}

	for key, rel := range s.Relationships {
		switch r := rel.(type) {
		case *relationships.BelongsTo:
			serializeBelongsTo(p, key, r)
		case *relationships.HasManyArray:
			serializeArray(p, key, r, s.Deltas[key])
		case *relationships.HasManyQuery:
			serializeQuery(p, key, r, s.Deltas[key])
		default:
			return nil, fmt.Errorf("unable to serialize relationship %s of type %T", key, rel)
		}
	}

	return p, nil
}

func serializeBelongsTo(p *Payload, key string, r *relationships.BelongsTo) {
	if ref, ok := r.Reference(); ok {
		p.Attributes[key] = pointers.Encode(ref)
		return
	}

	p.Attributes[key] = pointers.Delete()
}

func serializeArray(p *Payload, key string, r *relationships.HasManyArray, removed []types.Reference) {
	members := r.Members()

	switch {
	case len(members) == 0:
		p.Attributes[key] = nil
	case r.Definition().Unique:
		p.Attributes[key] = Op{Op: OpAddUnique, Objects: pointers.EncodeAll(members)}
	default:
		p.Attributes[key] = pointers.EncodeAll(members)
	}

	if len(removed) > 0 {
		p.addBatchOp(key, Op{Op: OpRemove, Objects: pointers.EncodeAll(removed)})
	}
}

func serializeQuery(p *Payload, key string, r *relationships.HasManyQuery, removed []types.Reference) {
	adds := r.PendingAdds()

	switch {
	case len(adds) > 0 && len(removed) > 0:
		p.addBatchOp(key, Op{
			Op: OpBatch,
			Ops: []Op{
				{Op: OpAddRelation, Objects: pointers.EncodeAll(adds)},
				{Op: OpRemoveRelation, Objects: pointers.EncodeAll(removed)},
			},
		})
	case len(adds) > 0:
		p.addBatchOp(key, Op{Op: OpAddRelation, Objects: pointers.EncodeAll(adds)})
	case len(removed) > 0:
		p.addBatchOp(key, Op{Op: OpRemoveRelation, Objects: pointers.EncodeAll(removed)})
	}
}

func (p *Payload) addBatchOp(key string, op Op) {
	if p.BatchOps == nil {
		p.BatchOps = map[string]any{}
	}
	p.BatchOps[key] = op
}

func attributeValue(value any) any {
	switch v := value.(type) {
	case time.Time:
		return NewDate(v)
	case *time.Time:
		if v == nil {
			return nil
		}
		return NewDate(*v)
	default:
		return value
	}
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}

	s, ok := value.(string)
	return ok && s == ""
}
