package entities

import (
	"encoding/json"
	"fmt"
	"maps"
	"sync"

	"github.com/diwise/parse-adapter/pkg/parse/errors"
	"github.com/diwise/parse-adapter/pkg/parse/schema"
	"github.com/diwise/parse-adapter/pkg/parse/types"
	"github.com/diwise/parse-adapter/pkg/parse/types/relationships"
)

type EntityDecoratorFunc func(e *Entity)

// Document is a normalized backend payload for a single entity
type Document struct {
	Type          string
	ID            string
	Attributes    map[string]any
	Relationships map[string]relationships.Relationship
}

// Entity is the local state of a backend object. All methods are safe for concurrent use.
type Entity struct {
	mu sync.Mutex

	model      *schema.Model
	entityID   string
	committing bool

	attributes    map[string]any
	relationships map[string]relationships.Relationship
	deltas        map[string][]types.Reference
}

func New(model *schema.Model, entityID string, decorators ...EntityDecoratorFunc) *Entity {
	e := &Entity{
		model:         model,
		entityID:      entityID,
		attributes:    map[string]any{},
		relationships: map[string]relationships.Relationship{},
		deltas:        map[string][]types.Reference{},
	}

	for _, decorator := range decorators {
		decorator(e)
	}

	return e
}

func (e *Entity) Model() *schema.Model {
	return e.model
}

func (e *Entity) Type() string {
	return e.model.Name
}

func (e *Entity) ID() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.entityID
}

func (e *Entity) Reference() types.Reference {
	return types.NewReference(e.Type(), e.ID())
}

func (e *Entity) IsNew() bool {
	return e.ID() == ""
}

func (e *Entity) Attribute(name string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	v, ok := e.attributes[name]
	return v, ok
}

func (e *Entity) Attributes() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()

	return maps.Clone(e.attributes)
}

func (e *Entity) Set(name string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.committing {
		return e.busy()
	}

	if e.model.IsRelationship(name) {
		return errors.NewInvalidRelationshipError(fmt.Sprintf("%s is a relationship of %s and can not be set as an attribute", name, e.model.Name))
	}

	e.attributes[name] = value
	return nil
}

// BelongsTo returns the current reference of a belongs-to relationship
func (e *Entity) BelongsTo(key string) (types.Reference, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if b, ok := e.relationships[key].(*relationships.BelongsTo); ok {
		return b.Reference()
	}

	return types.Reference{}, false
}

// Members returns the live membership of a has-many relationship
func (e *Entity) Members(key string) []types.Reference {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch r := e.relationships[key].(type) {
	case *relationships.HasManyArray:
		return r.Members()
	case *relationships.HasManyQuery:
		return r.Members()
	default:
		return []types.Reference{}
	}
}

// Link returns the relation query link of a query backed relationship
func (e *Entity) Link(key string) (relationships.Link, error) {
	def, err := e.definition(key)
	if err != nil {
		return relationships.Link{}, err
	}

	if def.Kind != relationships.KindQuery {
		return relationships.Link{}, errors.NewInvalidRelationshipError(fmt.Sprintf("%s.%s is not a relation", e.model.Name, key))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if q, ok := e.relationships[key].(*relationships.HasManyQuery); ok {
		if l, ok := q.Link(); ok {
			l.OwnerType = e.model.Name
			l.OwnerID = e.entityID
			return l, nil
		}
	}

	return relationships.Link{Key: key, Type: def.Type, OwnerType: e.model.Name, OwnerID: e.entityID}, nil
}

// SetResolved stores the members of a query backed relationship as resolved by a relation query
func (e *Entity) SetResolved(key string, refs []types.Reference) error {
	def, err := e.definition(key)
	if err != nil {
		return err
	}

	if def.Kind != relationships.KindQuery {
		return errors.NewInvalidRelationshipError(fmt.Sprintf("%s.%s is not a relation", e.model.Name, key))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	q := e.queryRelationship(def)
	q.SetMembers(refs)

	// members pending removal stay hidden until the removal has been committed
	for _, ref := range e.deltas[key] {
		q.Remove(ref)
	}

	return nil
}

func (e *Entity) SetBelongsTo(key string, ref *types.Reference) error {
	def, err := e.definition(key)
	if err != nil {
		return err
	}

	if def.Kind != relationships.KindBelongsTo {
		return errors.NewInvalidRelationshipError(fmt.Sprintf("%s.%s is not a belongs-to relationship", e.model.Name, key))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.committing {
		return e.busy()
	}

	e.relationships[key] = relationships.NewBelongsTo(def, ref)
	return nil
}

// Add makes ref a member of the has-many relationship key and undoes any pending removal of it
func (e *Entity) Add(key string, ref types.Reference) error {
	def, err := e.hasManyDefinition(key)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.committing {
		return e.busy()
	}

	switch def.Kind {
	case relationships.KindArray:
		e.arrayRelationship(def).Add(ref)
	case relationships.KindQuery:
		e.queryRelationship(def).Add(ref)
	}

	e.clearPendingRemoval(key, ref)

	return nil
}

// Remove drops ref from the live membership of key and records the removal until the next commit
func (e *Entity) Remove(key string, ref types.Reference) error {
	def, err := e.hasManyDefinition(key)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.committing {
		return e.busy()
	}

	switch def.Kind {
	case relationships.KindArray:
		e.arrayRelationship(def).Remove(ref)
	case relationships.KindQuery:
		e.queryRelationship(def).Remove(ref)
	}

	if !types.Contains(e.deltas[key], ref) {
		e.deltas[key] = append(e.deltas[key], ref)
	}

	return nil
}

// DeltaSet returns the references pending removal for key
func (e *Entity) DeltaSet(key string) []types.Reference {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]types.Reference{}, e.deltas[key]...)
}

// PendingRemovals returns a copy of every non empty delta set keyed by relationship
func (e *Entity) PendingRemovals() map[string][]types.Reference {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := map[string][]types.Reference{}
	for key, ds := range e.deltas {
		if len(ds) > 0 {
			result[key] = append([]types.Reference{}, ds...)
		}
	}

	return result
}

func (e *Entity) HasPendingRemovals() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, ds := range e.deltas {
		if len(ds) > 0 {
			return true
		}
	}

	return false
}

// Reconcile evicts members that are pending removal, then clears every delta set and
// every pending relation add. It must only be called once the backend has
// acknowledged a commit.
func (e *Entity) Reconcile() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for key, ds := range e.deltas {
		switch r := e.relationships[key].(type) {
		case *relationships.HasManyArray:
			for _, ref := range ds {
				r.Remove(ref)
			}
		case *relationships.HasManyQuery:
			for _, ref := range ds {
				r.Remove(ref)
			}
		}
	}

	e.deltas = map[string][]types.Reference{}

	for _, r := range e.relationships {
		if q, ok := r.(*relationships.HasManyQuery); ok {
			q.ClearPendingAdds()
		}
	}
}

// BeginCommit hands the entity over to a commit. Mutations fail with
// errors.ErrConsistency until the returned release func has been called.
func (e *Entity) BeginCommit() (func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.committing {
		return nil, e.busy()
	}

	e.committing = true

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.committing = false
	}, nil
}

func (e *Entity) IsCommitting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.committing
}

// Absorb merges a normalized document into the entity. Attributes and relationships
// absent from the document are left as they are.
func (e *Entity) Absorb(doc Document) error {
	if doc.Type != "" && doc.Type != e.model.Name {
		return fmt.Errorf("can not absorb a %s document into a %s", doc.Type, e.model.Name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.absorb(doc)
}

// refresh absorbs fetched state unless a commit is in flight. The save response of that
// commit is absorbed by the commit itself.
func (e *Entity) refresh(doc Document) error {
	if doc.Type != "" && doc.Type != e.model.Name {
		return fmt.Errorf("can not absorb a %s document into a %s", doc.Type, e.model.Name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.committing {
		return nil
	}

	return e.absorb(doc)
}

func (e *Entity) absorb(doc Document) error {
	if doc.ID != "" {
		if e.entityID != "" && e.entityID != doc.ID {
			return fmt.Errorf("can not absorb document %s into entity %s", doc.ID, e.entityID)
		}
		e.entityID = doc.ID
	}

	maps.Copy(e.attributes, doc.Attributes)

	for key, incoming := range doc.Relationships {
		def, ok := e.model.Relationship(key)
		if !ok {
			continue
		}

		switch r := incoming.(type) {
		case *relationships.BelongsTo:
			ref, _ := r.Reference()
			e.relationships[key] = relationships.NewBelongsTo(def, &ref)
		case *relationships.HasManyArray:
			e.relationships[key] = relationships.NewHasManyArray(def, r.Members())
		case *relationships.HasManyQuery:
			q := e.queryRelationship(def)
			if l, ok := r.Link(); ok {
				q.SetLink(l)
			}
		}
	}

	return nil
}

// Snapshot returns a copy of the entity state that is safe to read without locking
func (e *Entity) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		Model:         e.model,
		ID:            e.entityID,
		Attributes:    maps.Clone(e.attributes),
		Relationships: map[string]relationships.Relationship{},
		Deltas:        map[string][]types.Reference{},
	}

	for key, r := range e.relationships {
		s.Relationships[key] = copyOf(r)
	}

	for key, ds := range e.deltas {
		if len(ds) > 0 {
			s.Deltas[key] = append([]types.Reference{}, ds...)
		}
	}

	return s
}

func (e *Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Snapshot())
}

// Snapshot is a point in time copy of an entity
type Snapshot struct {
	Model         *schema.Model
	ID            string
	Attributes    map[string]any
	Relationships map[string]relationships.Relationship
	Deltas        map[string][]types.Reference
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	rels := map[string]any{}

	for key, r := range s.Relationships {
		switch typed := r.(type) {
		case *relationships.BelongsTo:
			if ref, ok := typed.Reference(); ok {
				rels[key] = ref
			} else {
				rels[key] = nil
			}
		case *relationships.HasManyArray:
			rels[key] = typed.Members()
		case *relationships.HasManyQuery:
			rels[key] = typed.Members()
		}
	}

	contents := map[string]any{
		"type":          s.Model.Name,
		"id":            s.ID,
		"attributes":    s.Attributes,
		"relationships": rels,
	}

	if len(s.Deltas) > 0 {
		contents["pendingRemovals"] = s.Deltas
	}

	return json.Marshal(&contents)
}

func copyOf(r relationships.Relationship) relationships.Relationship {
	switch typed := r.(type) {
	case *relationships.BelongsTo:
		ref, ok := typed.Reference()
		if !ok {
			return relationships.NewBelongsTo(typed.Definition(), nil)
		}
		return relationships.NewBelongsTo(typed.Definition(), &ref)
	case *relationships.HasManyArray:
		return relationships.NewHasManyArray(typed.Definition(), typed.Members())
	case *relationships.HasManyQuery:
		var link *relationships.Link
		if l, ok := typed.Link(); ok {
			link = &l
		}
		q := relationships.NewHasManyQuery(typed.Definition(), link)
		q.SetMembers(typed.Members())
		for _, ref := range typed.PendingAdds() {
			q.Add(ref)
		}
		return q
	default:
		panic(fmt.Sprintf("unknown relationship type %T", r))
	}
}

func (e *Entity) definition(key string) (relationships.Definition, error) {
	def, ok := e.model.Relationship(key)
	if !ok {
		return def, errors.NewUnknownRelationshipError(fmt.Sprintf("%s has no relationship named %s", e.model.Name, key))
	}
	return def, nil
}

func (e *Entity) hasManyDefinition(key string) (relationships.Definition, error) {
	def, err := e.definition(key)
	if err != nil {
		return def, err
	}

	if def.Kind == relationships.KindBelongsTo {
		return def, errors.NewInvalidRelationshipError(fmt.Sprintf("%s.%s is a belongs-to relationship", e.model.Name, key))
	}

	return def, nil
}

// must be called with the lock held
func (e *Entity) arrayRelationship(def relationships.Definition) *relationships.HasManyArray {
	if a, ok := e.relationships[def.Key].(*relationships.HasManyArray); ok {
		return a
	}

	a := relationships.NewHasManyArray(def, nil)
	e.relationships[def.Key] = a
	return a
}

// must be called with the lock held
func (e *Entity) queryRelationship(def relationships.Definition) *relationships.HasManyQuery {
	if q, ok := e.relationships[def.Key].(*relationships.HasManyQuery); ok {
		return q
	}

	q := relationships.NewHasManyQuery(def, nil)
	e.relationships[def.Key] = q
	return q
}

// must be called with the lock held
func (e *Entity) clearPendingRemoval(key string, ref types.Reference) {
	ds := e.deltas[key]
	kept := ds[:0]

	for _, r := range ds {
		if r.ID != ref.ID {
			kept = append(kept, r)
		}
	}

	if len(kept) == 0 {
		delete(e.deltas, key)
		return
	}

	e.deltas[key] = kept
}

func (e *Entity) busy() error {
	return errors.NewConsistencyError(fmt.Sprintf("%s %s is being committed", e.model.Name, e.entityID))
}

func Attr(name string, value any) EntityDecoratorFunc {
	return func(e *Entity) { e.attributes[name] = value }
}

func BelongsTo(key string, ref types.Reference) EntityDecoratorFunc {
	return func(e *Entity) {
		if def, ok := e.model.Relationship(key); ok && def.Kind == relationships.KindBelongsTo {
			e.relationships[key] = relationships.NewBelongsTo(def, &ref)
		}
	}
}

// Members sets the initial membership of a has-many relationship. For relations the
// members are treated as already resolved from the backend.
func Members(key string, refs ...types.Reference) EntityDecoratorFunc {
	return func(e *Entity) {
		def, ok := e.model.Relationship(key)
		if !ok {
			return
		}

		switch def.Kind {
		case relationships.KindArray:
			e.relationships[key] = relationships.NewHasManyArray(def, refs)
		case relationships.KindQuery:
			e.queryRelationship(def).SetMembers(refs)
		}
	}
}
