package normalizer

import (
	"encoding/json"
	"testing"

	"github.com/diwise/parse-adapter/pkg/parse/schema"
	"github.com/diwise/parse-adapter/pkg/parse/types"
	"github.com/diwise/parse-adapter/pkg/parse/types/relationships"
	"github.com/matryer/is"
)

func TestNormalizeSingleResponse(t *testing.T) {
	is, n, post := setupNormalizerTest(t)

	result, err := n.NormalizeSingleResponse(post, payload(t, postJSON), "", FindRecord)
	is.NoErr(err)

	is.Equal(result.Root, "post")
	is.Equal(len(result.Data), 1)

	doc := result.Data[0]
	is.Equal(doc.ID, "p1")
	is.Equal(doc.Attributes["title"], "hello")
	is.Equal(doc.Attributes["publishedAt"], "2024-03-01T12:30:00.000Z") // dates should be flattened

	author := doc.Relationships["author"].(*relationships.BelongsTo)
	ref, ok := author.Reference()
	is.True(ok)
	is.Equal(ref, types.NewReference("parse-user", "u1"))

	comments := doc.Relationships["comments"].(*relationships.HasManyArray)
	is.Equal(comments.Members(), []types.Reference{
		types.NewReference("comment", "c1"),
		types.NewReference("comment", "c2"),
	})

	is.Equal(len(result.Included), 1) // the embedded comment should be included
	is.Equal(result.Included[0].ID, "c2")
	is.Equal(result.Included[0].Type, "comment")
	is.Equal(result.Included[0].Attributes["text"], "nice")

	likes := doc.Relationships["likes"].(*relationships.HasManyQuery)
	link, ok := likes.Link()
	is.True(ok)
	is.Equal(link.OwnerID, "p1")
	is.Equal(link.OwnerType, "post")
	is.Equal(link.Related(), `{"key":"likes","type":"parse-user"}`)
}

func TestAbsentKeysProduceNoRelationships(t *testing.T) {
	is, n, post := setupNormalizerTest(t)

	result, err := n.NormalizeSingleResponse(post, payload(t, `{"objectId":"p1","title":"hello"}`), "", FindRecord)
	is.NoErr(err)

	is.Equal(len(result.Data[0].Relationships), 0)
}

func TestIdIsInjectedForUpdates(t *testing.T) {
	is, n, post := setupNormalizerTest(t)

	result, err := n.NormalizeSingleResponse(post, payload(t, `{"updatedAt":"2024-03-01T12:30:00.000Z"}`), "p1", UpdateRecord)
	is.NoErr(err)
	is.Equal(result.Data[0].ID, "p1")

	result, err = n.NormalizeSingleResponse(post, payload(t, `{}`), "p1", FindRecord)
	is.NoErr(err)
	is.Equal(result.Data[0].ID, "") // only updates and deletes get their id injected
}

func TestRemovalMarkerClearsBelongsTo(t *testing.T) {
	is, n, post := setupNormalizerTest(t)

	result, err := n.NormalizeSingleResponse(post, payload(t, `{"author":{"__op":"Delete"}}`), "p1", UpdateRecord)
	is.NoErr(err)

	author := result.Data[0].Relationships["author"].(*relationships.BelongsTo)
	_, ok := author.Reference()
	is.True(!ok)
}

func TestEchoedArrayOpsAreIgnored(t *testing.T) {
	is, n, post := setupNormalizerTest(t)

	result, err := n.NormalizeSingleResponse(post, payload(t, `{"comments":{"__op":"AddUnique","objects":[{"__type":"Pointer","className":"Comment","objectId":"c1"}]}}`), "p1", UpdateRecord)
	is.NoErr(err)

	_, ok := result.Data[0].Relationships["comments"]
	is.True(!ok)
}

func TestNormalizeArrayResponse(t *testing.T) {
	is, n, post := setupNormalizerTest(t)

	result, err := n.NormalizeArrayResponse(post, payload(t, `{"results":[{"objectId":"p1"},{"objectId":"p2","comments":["c3"]}],"count":42}`))
	is.NoErr(err)

	is.Equal(result.Root, "posts")
	is.Equal(len(result.Data), 2)
	is.True(result.Meta.HasCount)
	is.Equal(result.Meta.Count, 42)

	comments := result.Data[1].Relationships["comments"].(*relationships.HasManyArray)
	is.Equal(comments.Members(), []types.Reference{types.NewReference("comment", "c3")}) // bare ids take the declared type
}

func TestModelNameFromPayloadKey(t *testing.T) {
	is := is.New(t)

	is.Equal(ModelNameFromPayloadKey("blogPosts"), "blog-post")
	is.Equal(ModelNameFromPayloadKey("comments"), "comment")
	is.Equal(PayloadKeyForModel("comment"), "comments")
}

func setupNormalizerTest(t *testing.T) (*is.I, *Normalizer, *schema.Model) {
	is := is.New(t)

	registry, err := schema.NewRegistry(
		&schema.Model{
			Name: "post",
			Attributes: []schema.Attribute{
				{Name: "title", Type: schema.String},
				{Name: "publishedAt", Type: schema.Date},
			},
			Relationships: []relationships.Definition{
				{Key: "author", Kind: relationships.KindBelongsTo, Type: "parse-user"},
				{Key: "comments", Kind: relationships.KindArray, Unique: true},
				{Key: "likes", Kind: relationships.KindQuery, Type: "parse-user"},
			},
		},
		&schema.Model{
			Name:       "comment",
			Attributes: []schema.Attribute{{Name: "text", Type: schema.String}},
		},
	)
	is.NoErr(err)

	post, _ := registry.Lookup("post")

	return is, New(registry), post
}

func payload(t *testing.T, s string) map[string]any {
	m := map[string]any{}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("bad test payload: %s", err.Error())
	}
	return m
}

const postJSON string = `{
	"objectId": "p1",
	"title": "hello",
	"publishedAt": {"__type": "Date", "iso": "2024-03-01T12:30:00.000Z"},
	"createdAt": "2024-03-01T10:00:00.000Z",
	"author": {"__type": "Pointer", "className": "_User", "objectId": "u1"},
	"comments": [
		{"__type": "Pointer", "className": "Comment", "objectId": "c1"},
		{"__type": "Object", "className": "Comment", "objectId": "c2", "text": "nice"}
	],
	"likes": {"__type": "Relation", "className": "_User"}
}`
