package relationships

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/diwise/parse-adapter/pkg/parse/types"
)

// Kind tags the closed set of relationship variants
type Kind int

const (
	KindBelongsTo Kind = iota
	KindArray
	KindQuery
)

func (k Kind) String() string {
	switch k {
	case KindBelongsTo:
		return "belongsTo"
	case KindArray:
		return "array"
	case KindQuery:
		return "relation"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func ParseKind(s string) (Kind, error) {
	switch s {
	case "belongsTo", "pointer":
		return KindBelongsTo, nil
	case "array", "hasManyArray":
		return KindArray, nil
	case "relation", "hasManyQuery":
		return KindQuery, nil
	default:
		return KindBelongsTo, fmt.Errorf("unknown relationship kind %q", s)
	}
}

func (k *Kind) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	kind, err := ParseKind(s)
	if err != nil {
		return err
	}

	*k = kind
	return nil
}

// Definition describes a relationship as declared on a model
type Definition struct {
	Key    string `yaml:"key"`
	Kind   Kind   `yaml:"kind"`
	Type   string `yaml:"type"`
	Unique bool   `yaml:"unique"`
}

// Relationship is implemented by *BelongsTo, *HasManyArray and *HasManyQuery only
type Relationship interface {
	Key() string
	Kind() Kind
	Definition() Definition

	relationship()
}

type base struct {
	def Definition
}

func (b base) Key() string            { return b.def.Key }
func (b base) Definition() Definition { return b.def }
func (b base) relationship()          {}

//BelongsTo holds zero or one reference
type BelongsTo struct {
	base
	ref *types.Reference
}

func NewBelongsTo(def Definition, ref *types.Reference) *BelongsTo {
	def.Kind = KindBelongsTo
	b := &BelongsTo{base: base{def: def}}
	b.Set(ref)
	return b
}

func (b *BelongsTo) Kind() Kind { return KindBelongsTo }

func (b *BelongsTo) Reference() (types.Reference, bool) {
	if b.ref == nil {
		return types.Reference{}, false
	}
	return *b.ref, true
}

func (b *BelongsTo) Set(ref *types.Reference) {
	if ref == nil || ref.IsZero() {
		b.ref = nil
		return
	}

	r := *ref
	b.ref = &r
}

//HasManyArray is an ordered set of references synced as an inline array
type HasManyArray struct {
	base
	members []types.Reference
}

func NewHasManyArray(def Definition, members []types.Reference) *HasManyArray {
	def.Kind = KindArray
	a := &HasManyArray{base: base{def: def}, members: []types.Reference{}}
	for _, m := range members {
		a.Add(m)
	}
	return a
}

func (a *HasManyArray) Kind() Kind { return KindArray }

func (a *HasManyArray) Members() []types.Reference {
	return slices.Clone(a.members)
}

func (a *HasManyArray) Len() int {
	return len(a.members)
}

// Add appends ref unless a member with the same id is already present
func (a *HasManyArray) Add(ref types.Reference) bool {
	if types.Contains(a.members, ref) {
		return false
	}
	a.members = append(a.members, ref)
	return true
}

func (a *HasManyArray) Remove(ref types.Reference) bool {
	idx := types.IndexOf(a.members, ref)
	if idx < 0 {
		return false
	}
	a.members = slices.Delete(a.members, idx, idx+1)
	return true
}

//HasManyQuery is a server side relation that is never materialized inline. Members
//holds whatever has been resolved through a relation query, PendingAdds the members
//added locally since the last commit.
type HasManyQuery struct {
	base
	link    *Link
	members []types.Reference
	adds    []types.Reference
}

func NewHasManyQuery(def Definition, link *Link) *HasManyQuery {
	def.Kind = KindQuery
	return &HasManyQuery{
		base:    base{def: def},
		link:    link,
		members: []types.Reference{},
		adds:    []types.Reference{},
	}
}

func (q *HasManyQuery) Kind() Kind { return KindQuery }

func (q *HasManyQuery) Link() (Link, bool) {
	if q.link == nil {
		return Link{}, false
	}
	return *q.link, true
}

func (q *HasManyQuery) SetLink(link Link) {
	q.link = &link
}

func (q *HasManyQuery) Members() []types.Reference {
	return slices.Clone(q.members)
}

// SetMembers replaces the resolved members, keeping locally added ones visible
func (q *HasManyQuery) SetMembers(refs []types.Reference) {
	q.members = []types.Reference{}
	for _, r := range refs {
		if !types.Contains(q.members, r) {
			q.members = append(q.members, r)
		}
	}
	for _, r := range q.adds {
		if !types.Contains(q.members, r) {
			q.members = append(q.members, r)
		}
	}
}

func (q *HasManyQuery) PendingAdds() []types.Reference {
	return slices.Clone(q.adds)
}

func (q *HasManyQuery) Add(ref types.Reference) bool {
	if !types.Contains(q.members, ref) {
		q.members = append(q.members, ref)
	}

	if types.Contains(q.adds, ref) {
		return false
	}

	q.adds = append(q.adds, ref)
	return true
}

func (q *HasManyQuery) Remove(ref types.Reference) bool {
	removed := false

	if idx := types.IndexOf(q.members, ref); idx >= 0 {
		q.members = slices.Delete(q.members, idx, idx+1)
		removed = true
	}

	if idx := types.IndexOf(q.adds, ref); idx >= 0 {
		q.adds = slices.Delete(q.adds, idx, idx+1)
		removed = true
	}

	return removed
}

func (q *HasManyQuery) ClearPendingAdds() {
	q.adds = []types.Reference{}
}

// Link describes how to resolve a query backed relationship of an owner entity
type Link struct {
	Key       string `json:"key"`
	Type      string `json:"type"`
	OwnerType string `json:"-"`
	OwnerID   string `json:"-"`
}

// Related returns the opaque string form of the link
func (l Link) Related() string {
	b, _ := json.Marshal(l)
	return string(b)
}

func ParseLink(related string) (Link, error) {
	l := Link{}

	err := json.Unmarshal([]byte(related), &l)
	if err != nil {
		return l, fmt.Errorf("failed to parse relation link: %w", err)
	}

	if l.Key == "" {
		return l, fmt.Errorf("relation link without a key")
	}

	return l, nil
}
