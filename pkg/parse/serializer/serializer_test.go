package serializer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/diwise/parse-adapter/pkg/parse/schema"
	"github.com/diwise/parse-adapter/pkg/parse/types"
	"github.com/diwise/parse-adapter/pkg/parse/types/entities"
	"github.com/diwise/parse-adapter/pkg/parse/types/relationships"
	"github.com/matryer/is"
)

var (
	c1 = types.NewReference("comment", "c1")
	c2 = types.NewReference("comment", "c2")
	u1 = types.NewReference("parse-user", "u1")
	u2 = types.NewReference("parse-user", "u2")
)

func TestPendingRemovalsMoveToBatchOps(t *testing.T) {
	is, registry := setupSerializerTest(t)
	post := newPost(registry, entities.Members("comments", c1, c2))

	is.NoErr(post.Remove("comments", c2))

	p, err := Serialize(post)
	is.NoErr(err)

	is.Equal(toJSON(p.Attributes), `{"comments":{"__op":"AddUnique","objects":[{"__type":"Pointer","className":"Comment","objectId":"c1"}]}}`)
	is.Equal(toJSON(p.BatchOps), `{"comments":{"__op":"Remove","objects":[{"__type":"Pointer","className":"Comment","objectId":"c2"}]}}`)
	is.True(p.RelationOps() == nil) // array ops are never relation ops
}

func TestEmptyArrayWithRemovalsIsSentAsNull(t *testing.T) {
	is, registry := setupSerializerTest(t)
	post := newPost(registry, entities.Members("comments", c1))

	is.NoErr(post.Remove("comments", c1))

	p, err := Serialize(post)
	is.NoErr(err)

	is.Equal(toJSON(p.Attributes), `{"comments":null}`)
	is.Equal(toJSON(p.BatchOps), `{"comments":{"__op":"Remove","objects":[{"__type":"Pointer","className":"Comment","objectId":"c1"}]}}`)
}

func TestNonUniqueArrayIsSentAsFullArray(t *testing.T) {
	is, registry := setupSerializerTest(t)
	post := newPost(registry, entities.Members("tags", types.NewReference("blog-tag", "t1")))

	p, err := Serialize(post)
	is.NoErr(err)

	is.Equal(toJSON(p.Attributes), `{"tags":[{"__type":"Pointer","className":"BlogTag","objectId":"t1"}]}`)
	is.True(p.BatchOps == nil)
}

func TestBelongsToIsSentAsPointerOrDelete(t *testing.T) {
	is, registry := setupSerializerTest(t)
	post := newPost(registry, entities.BelongsTo("author", u1))

	p, err := Serialize(post)
	is.NoErr(err)
	is.Equal(toJSON(p.Attributes), `{"author":{"__type":"Pointer","className":"_User","objectId":"u1"}}`)

	is.NoErr(post.SetBelongsTo("author", nil))

	p, err = Serialize(post)
	is.NoErr(err)
	is.Equal(toJSON(p.Attributes), `{"author":{"__op":"Delete"}}`)
}

func TestRelationIsNeverSentInline(t *testing.T) {
	is, registry := setupSerializerTest(t)
	post := newPost(registry, entities.Members("likes", u1))

	is.NoErr(post.Add("likes", u2))
	is.NoErr(post.Remove("likes", u1))

	p, err := Serialize(post)
	is.NoErr(err)

	_, ok := p.Attributes["likes"]
	is.True(!ok) // relations must not appear among the attributes

	is.Equal(toJSON(p.BatchOps), `{"likes":{"__op":"Batch","ops":[{"__op":"AddRelation","objects":[{"__type":"Pointer","className":"_User","objectId":"u2"}]},{"__op":"RemoveRelation","objects":[{"__type":"Pointer","className":"_User","objectId":"u1"}]}]}}`)
	is.Equal(len(p.RelationOps()), 1)
}

func TestRelationWithOnlyAdds(t *testing.T) {
	is, registry := setupSerializerTest(t)
	post := newPost(registry)

	is.NoErr(post.Add("likes", u2))

	p, err := Serialize(post)
	is.NoErr(err)

	is.Equal(toJSON(p.BatchOps), `{"likes":{"__op":"AddRelation","objects":[{"__type":"Pointer","className":"_User","objectId":"u2"}]}}`)
}

func TestUnchangedRelationProducesNothing(t *testing.T) {
	is, registry := setupSerializerTest(t)
	post := newPost(registry, entities.Members("likes", u1))

	p, err := Serialize(post)
	is.NoErr(err)

	is.Equal(len(p.Attributes), 0)
	is.True(p.BatchOps == nil)
}

func TestReservedAttributesAreStripped(t *testing.T) {
	is, registry := setupSerializerTest(t)
	published := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	post := newPost(registry,
		entities.Attr("title", "hello"),
		entities.Attr("createdAt", "2024-01-01T00:00:00.000Z"),
		entities.Attr("updatedAt", "2024-01-01T00:00:00.000Z"),
		entities.Attr("publishedAt", published),
	)

	p, err := Serialize(post)
	is.NoErr(err)

	is.Equal(toJSON(p.Attributes), `{"publishedAt":{"__type":"Date","iso":"2024-03-01T12:30:00.000Z"},"title":"hello"}`)
}

func TestEmptyUserCredentialsAreOmitted(t *testing.T) {
	is, registry := setupSerializerTest(t)
	model, _ := registry.Lookup("parse-user")

	user := entities.New(model, "u1",
		entities.Attr("username", ""),
		entities.Attr("password", nil),
		entities.Attr("email", "user@example.com"),
		entities.Attr("sessionToken", "r:abc"),
		entities.Attr("emailVerified", true),
	)

	p, err := Serialize(user)
	is.NoErr(err)

	is.Equal(toJSON(p.Attributes), `{"email":"user@example.com"}`)
}

func TestAbsentRelationshipsAreNotSent(t *testing.T) {
	is, registry := setupSerializerTest(t)
	post := newPost(registry, entities.Attr("title", "hello"))

	p, err := Serialize(post)
	is.NoErr(err)

	is.Equal(toJSON(p.Attributes), `{"title":"hello"}`)
	is.True(p.BatchOps == nil)
}

func setupSerializerTest(t *testing.T) (*is.I, *schema.Registry) {
	is := is.New(t)

	registry, err := schema.NewRegistry(&schema.Model{
		Name: "post",
		Attributes: []schema.Attribute{
			{Name: "title", Type: schema.String},
			{Name: "publishedAt", Type: schema.Date},
		},
		Relationships: []relationships.Definition{
			{Key: "author", Kind: relationships.KindBelongsTo, Type: "parse-user"},
			{Key: "comments", Kind: relationships.KindArray, Unique: true},
			{Key: "tags", Kind: relationships.KindArray, Type: "blog-tag"},
			{Key: "likes", Kind: relationships.KindQuery, Type: "parse-user"},
		},
	})
	is.NoErr(err)

	return is, registry
}

func newPost(registry *schema.Registry, decorators ...entities.EntityDecoratorFunc) *entities.Entity {
	model, _ := registry.Lookup("post")
	return entities.New(model, "p1", decorators...)
}

func toJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
