package schema

import (
	"bytes"
	"errors"
	"testing"

	parseerrors "github.com/diwise/parse-adapter/pkg/parse/errors"
	"github.com/diwise/parse-adapter/pkg/parse/types/relationships"
	"github.com/matryer/is"
)

func TestLoadModels(t *testing.T) {
	is, registry := setupRegistryTest(t)

	post, err := registry.Lookup("post")
	is.NoErr(err)
	is.Equal(post.ClassName(), "Post")
	is.Equal(len(post.Relationships), 3)

	comments, ok := post.Relationship("comments")
	is.True(ok)
	is.Equal(comments.Kind, relationships.KindArray)
	is.Equal(comments.Type, "comment") // target type should default to the singular key
	is.True(comments.Unique)

	likes, _ := post.Relationship("likes")
	is.Equal(likes.Kind, relationships.KindQuery)
	is.Equal(likes.Type, "parse-user")

	published, ok := post.Attribute("publishedAt")
	is.True(ok)
	is.Equal(published.Type, Date)
}

func TestRegistryAlwaysKnowsTheUserModel(t *testing.T) {
	is, registry := setupRegistryTest(t)

	user, err := registry.Lookup("parseUser")
	is.NoErr(err)
	is.True(user.IsUser())
	is.Equal(user.ClassName(), "_User")
	is.Equal(registry.Names(), []string{"comment", "parse-user", "post"})
}

func TestLookupOfUnknownModelFails(t *testing.T) {
	is, registry := setupRegistryTest(t)

	_, err := registry.Lookup("unicorn")
	is.True(errors.Is(err, parseerrors.ErrUnknownModel))
}

func TestDuplicateRelationshipKeysAreRejected(t *testing.T) {
	is := is.New(t)

	_, err := NewRegistry(&Model{
		Name: "post",
		Relationships: []relationships.Definition{
			{Key: "comments", Kind: relationships.KindArray},
			{Key: "comments", Kind: relationships.KindQuery},
		},
	})

	is.True(err != nil)
}

func TestReservedAttributes(t *testing.T) {
	is := is.New(t)

	is.True(IsReserved("createdAt"))
	is.True(IsReserved("sessionToken"))
	is.True(!IsReserved("title"))
}

func setupRegistryTest(t *testing.T) (*is.I, *Registry) {
	is := is.New(t)

	models, err := LoadModels(bytes.NewBufferString(modelsFile))
	is.NoErr(err)

	registry, err := NewRegistry(models...)
	is.NoErr(err)

	return is, registry
}

const modelsFile string = `
models:
  - name: post
    attributes:
      - name: title
        type: string
      - name: publishedAt
        type: date
    relationships:
      - key: author
        kind: belongsTo
        type: parse-user
      - key: comments
        kind: array
        unique: true
      - key: likes
        kind: relation
        type: parse-user
  - name: comment
    attributes:
      - name: text
        type: string
    relationships:
      - key: post
        kind: belongsTo
`
