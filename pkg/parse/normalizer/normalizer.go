package normalizer

import (
	"fmt"
	"maps"

	"github.com/diwise/parse-adapter/pkg/parse/schema"
	"github.com/diwise/parse-adapter/pkg/parse/types"
	"github.com/diwise/parse-adapter/pkg/parse/types/entities"
	"github.com/diwise/parse-adapter/pkg/parse/types/pointers"
	"github.com/diwise/parse-adapter/pkg/parse/types/relationships"
	"github.com/jinzhu/inflection"
)

type RequestType string

const (
	FindRecord   RequestType = "findRecord"
	CreateRecord RequestType = "createRecord"
	UpdateRecord RequestType = "updateRecord"
	DeleteRecord RequestType = "deleteRecord"
	QueryRecord  RequestType = "queryRecord"
	Query        RequestType = "query"
	FindHasMany  RequestType = "findHasMany"
)

type Meta struct {
	Count    int  `json:"count,omitempty"`
	HasCount bool `json:"-"`
}

// Result holds the primary documents of a response along with every embedded
// object that was found while normalizing them
type Result struct {
	Root     string
	Data     []entities.Document
	Included []entities.Document
	Meta     Meta
}

// Documents returns the primary documents followed by the included ones
func (r *Result) Documents() []entities.Document {
	docs := make([]entities.Document, 0, len(r.Data)+len(r.Included))
	docs = append(docs, r.Data...)
	return append(docs, r.Included...)
}

type Normalizer struct {
	registry *schema.Registry
}

func New(registry *schema.Registry) *Normalizer {
	return &Normalizer{registry: registry}
}

// ModelNameFromPayloadKey maps a payload root such as blogPosts to its model name
func ModelNameFromPayloadKey(key string) string {
	return pointers.Dasherize(inflection.Singular(key))
}

// PayloadKeyForModel returns the root a list of the model is wrapped under
func PayloadKeyForModel(name string) string {
	return inflection.Plural(name)
}

// NormalizeSingleResponse normalizes the response to a request that targeted a single
// object. For updates and deletes the known id is injected when the response omits it.
func (n *Normalizer) NormalizeSingleResponse(model *schema.Model, payload map[string]any, id string, requestType RequestType) (*Result, error) {
	if payload == nil {
		payload = map[string]any{}
	}

	if id != "" && (requestType == UpdateRecord || requestType == DeleteRecord) {
		if _, ok := payload[schema.ObjectID]; !ok {
			payload = maps.Clone(payload)
			payload[schema.ObjectID] = id
		}
	}

	result := &Result{Root: model.Name}

	doc, err := n.normalize(model, payload, result)
	if err != nil {
		return nil, err
	}

	result.Data = []entities.Document{doc}
	return result, nil
}

// NormalizeArrayResponse normalizes a list response shaped as {results:[...], count:N}
func (n *Normalizer) NormalizeArrayResponse(model *schema.Model, payload map[string]any) (*Result, error) {
	result := &Result{
		Root: PayloadKeyForModel(model.Name),
		Data: []entities.Document{},
	}

	if count, ok := payload["count"].(float64); ok {
		result.Meta = Meta{Count: int(count), HasCount: true}
	}

	raw, ok := payload["results"]
	if !ok || raw == nil {
		return result, nil
	}

	objects, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected results to be an array but got %T", raw)
	}

	for idx, o := range objects {
		obj, ok := o.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("result %d is a %T and not an object", idx, o)
		}

		doc, err := n.normalize(model, obj, result)
		if err != nil {
			return nil, err
		}

		result.Data = append(result.Data, doc)
	}

	return result, nil
}

func (n *Normalizer) normalize(model *schema.Model, payload map[string]any, result *Result) (entities.Document, error) {
	id, _ := payload[schema.ObjectID].(string)

	doc := entities.Document{
		Type:          model.Name,
		ID:            id,
		Attributes:    map[string]any{},
		Relationships: map[string]relationships.Relationship{},
	}

	for key, value := range payload {
		if key == schema.ObjectID || key == "__type" || key == "className" {
			continue
		}

		if model.IsRelationship(key) {
			continue
		}

		doc.Attributes[key] = flattenDate(value)
	}

	for _, def := range model.Relationships {
		raw, ok := payload[def.Key]
		if !ok {
			continue
		}

		rel, err := n.relationship(model, id, def, raw, result)
		if err != nil {
			return doc, fmt.Errorf("failed to normalize %s.%s: %w", model.Name, def.Key, err)
		}

		if rel != nil {
			doc.Relationships[def.Key] = rel
		}
	}

	return doc, nil
}

func (n *Normalizer) relationship(owner *schema.Model, ownerID string, def relationships.Definition, raw any, result *Result) (relationships.Relationship, error) {
	switch def.Kind {
	case relationships.KindBelongsTo:
		d, err := pointers.Decode(raw, def.Type)
		if err != nil {
			return nil, err
		}

		switch d.Kind {
		case pointers.Ref:
			return relationships.NewBelongsTo(def, &d.Ref), nil
		case pointers.Embedded:
			if err := n.include(d, result); err != nil {
				return nil, err
			}
			return relationships.NewBelongsTo(def, &d.Ref), nil
		default:
			return relationships.NewBelongsTo(def, nil), nil
		}

	case relationships.KindArray:
		if isOperation(raw) {
			return nil, nil
		}

		if raw == nil {
			return relationships.NewHasManyArray(def, nil), nil
		}

		elements, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("expected an array but got %T", raw)
		}

		members := make([]types.Reference, 0, len(elements))

		for _, e := range elements {
			d, err := pointers.Decode(e, def.Type)
			if err != nil {
				return nil, err
			}

			switch d.Kind {
			case pointers.Ref:
				members = append(members, d.Ref)
			case pointers.Embedded:
				if err := n.include(d, result); err != nil {
					return nil, err
				}
				members = append(members, d.Ref)
			}
		}

		return relationships.NewHasManyArray(def, members), nil

	case relationships.KindQuery:
		if isOperation(raw) {
			return nil, nil
		}

		link := relationships.Link{
			Key:       def.Key,
			Type:      def.Type,
			OwnerType: owner.Name,
			OwnerID:   ownerID,
		}

		return relationships.NewHasManyQuery(def, &link), nil
	}

	return nil, fmt.Errorf("unknown relationship kind %s", def.Kind)
}

func (n *Normalizer) include(d pointers.Decoded, result *Result) error {
	model, err := n.registry.Lookup(d.Ref.Type)
	if err != nil {
		return err
	}

	doc, err := n.normalize(model, d.Object, result)
	if err != nil {
		return err
	}

	result.Included = append(result.Included, doc)
	return nil
}

// isOperation recognizes ops echoed back from a merged request payload
func isOperation(raw any) bool {
	if m, ok := raw.(map[string]any); ok {
		_, isOp := m["__op"]
		return isOp
	}
	return false
}

func flattenDate(value any) any {
	m, ok := value.(map[string]any)
	if !ok {
		return value
	}

	if t, _ := m["__type"].(string); t == pointers.TypeDate {
		if iso, ok := m["iso"].(string); ok {
			return iso
		}
	}

	return value
}
