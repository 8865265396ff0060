package schema

import (
	"fmt"
	"io"
	"slices"
	"sort"
	"sync"

	"github.com/diwise/parse-adapter/pkg/parse/errors"
	"github.com/diwise/parse-adapter/pkg/parse/types/pointers"
	"github.com/diwise/parse-adapter/pkg/parse/types/relationships"
	"github.com/jinzhu/inflection"
	yaml "gopkg.in/yaml.v2"
)

type AttributeType string

const (
	String   AttributeType = "string"
	Number   AttributeType = "number"
	Boolean  AttributeType = "boolean"
	Date     AttributeType = "date"
	File     AttributeType = "file"
	GeoPoint AttributeType = "geopoint"
	Object   AttributeType = "object"
	Array    AttributeType = "array"
)

const (
	CreatedAt     string = "createdAt"
	UpdatedAt     string = "updatedAt"
	EmailVerified string = "emailVerified"
	SessionToken  string = "sessionToken"
	ObjectID      string = "objectId"
)

// ReservedAttributes are derived by the backend and never sent on writes
var ReservedAttributes = []string{CreatedAt, UpdatedAt, EmailVerified, SessionToken, ObjectID}

func IsReserved(name string) bool {
	return slices.Contains(ReservedAttributes, name)
}

type Attribute struct {
	Name string        `yaml:"name"`
	Type AttributeType `yaml:"type"`
}

type Model struct {
	Name          string                     `yaml:"name"`
	Attributes    []Attribute                `yaml:"attributes"`
	Relationships []relationships.Definition `yaml:"relationships"`
}

func (m *Model) Attribute(name string) (Attribute, bool) {
	for _, a := range m.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

func (m *Model) Relationship(key string) (relationships.Definition, bool) {
	for _, r := range m.Relationships {
		if r.Key == key {
			return r, true
		}
	}
	return relationships.Definition{}, false
}

func (m *Model) IsRelationship(key string) bool {
	_, ok := m.Relationship(key)
	return ok
}

func (m *Model) IsUser() bool {
	return m.Name == pointers.UserType || m.Name == "parseUser"
}

func (m *Model) ClassName() string {
	return pointers.ClassName(m.Name)
}

func (m *Model) validate() error {
	if m.Name == "" {
		return fmt.Errorf("model without a name")
	}

	seen := map[string]bool{}

	for idx := range m.Relationships {
		def := &m.Relationships[idx]

		if def.Key == "" {
			return fmt.Errorf("model %s has a relationship without a key", m.Name)
		}

		if seen[def.Key] {
			return fmt.Errorf("model %s declares relationship %s more than once", m.Name, def.Key)
		}
		seen[def.Key] = true

		if def.Type == "" {
			def.Type = pointers.Dasherize(inflection.Singular(def.Key))
		}
	}

	for _, a := range m.Attributes {
		if seen[a.Name] {
			return fmt.Errorf("model %s uses %s both as attribute and relationship", m.Name, a.Name)
		}
	}

	return nil
}

// UserModel describes the backend's built in user class
func UserModel() *Model {
	return &Model{
		Name: pointers.UserType,
		Attributes: []Attribute{
			{Name: "username", Type: String},
			{Name: "password", Type: String},
			{Name: "email", Type: String},
			{Name: EmailVerified, Type: Boolean},
			{Name: SessionToken, Type: String},
			{Name: CreatedAt, Type: Date},
			{Name: UpdatedAt, Type: Date},
		},
	}
}

type Registry struct {
	mu     sync.RWMutex
	models map[string]*Model
}

func NewRegistry(models ...*Model) (*Registry, error) {
	r := &Registry{
		models: map[string]*Model{},
	}

	if err := r.Register(UserModel()); err != nil {
		return nil, err
	}

	for _, m := range models {
		if err := r.Register(m); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Register adds or replaces a model
func (r *Registry) Register(m *Model) error {
	if err := m.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.models[m.Name] = m
	return nil
}

func (r *Registry) Lookup(name string) (*Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "parseUser" {
		name = pointers.UserType
	}

	m, ok := r.models[name]
	if !ok {
		return nil, errors.NewUnknownModelError(fmt.Sprintf("no model named %q has been registered", name))
	}

	return m, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.models))
	for n := range r.models {
		names = append(names, n)
	}
	sort.Strings(names)

	return names
}

// LoadModels reads a yaml document with a top level models list
func LoadModels(data io.Reader) ([]*Model, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	doc := &struct {
		Models []*Model `yaml:"models"`
	}{}

	err = yaml.Unmarshal(buf, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse models: %w", err)
	}

	return doc.Models, nil
}
