package entities

import (
	"fmt"
	"sync"

	"github.com/diwise/parse-adapter/pkg/parse/schema"
	"github.com/diwise/parse-adapter/pkg/parse/types"
)

// Graph is an identity map that holds at most one Entity per type and id
type Graph struct {
	mu       sync.Mutex
	registry *schema.Registry
	entities map[types.Reference]*Entity
}

func NewGraph(registry *schema.Registry) *Graph {
	return &Graph{
		registry: registry,
		entities: map[types.Reference]*Entity{},
	}
}

func (g *Graph) Registry() *schema.Registry {
	return g.registry
}

// Push merges a normalized document into the graph and returns the entity it belongs to.
// An entity with a commit in flight is returned as it is.
func (g *Graph) Push(doc Document) (*Entity, error) {
	if doc.ID == "" {
		return nil, fmt.Errorf("can not push a %s document without an id", doc.Type)
	}

	model, err := g.registry.Lookup(doc.Type)
	if err != nil {
		return nil, err
	}

	ref := types.NewReference(model.Name, doc.ID)

	g.mu.Lock()
	e, ok := g.entities[ref]
	if !ok {
		e = New(model, doc.ID)
		g.entities[ref] = e
	}
	g.mu.Unlock()

	doc.Type = model.Name
	err = e.refresh(doc)
	if err != nil {
		return nil, err
	}

	return e, nil
}

// PushAll pushes every document in order and stops at the first failure
func (g *Graph) PushAll(docs []Document) ([]*Entity, error) {
	result := make([]*Entity, 0, len(docs))

	for _, d := range docs {
		e, err := g.Push(d)
		if err != nil {
			return result, err
		}
		result = append(result, e)
	}

	return result, nil
}

// Track adds a locally created entity once it has been assigned an id
func (g *Graph) Track(e *Entity) error {
	ref := e.Reference()
	if ref.ID == "" {
		return fmt.Errorf("can not track a %s without an id", ref.Type)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.entities[ref]; ok && existing != e {
		return fmt.Errorf("%s is already tracked by another instance", ref)
	}

	g.entities[ref] = e
	return nil
}

func (g *Graph) Get(ref types.Reference) (*Entity, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entities[ref]
	return e, ok
}

func (g *Graph) Forget(ref types.Reference) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.entities, ref)
}

func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.entities)
}
