package entities

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	parseerrors "github.com/diwise/parse-adapter/pkg/parse/errors"
	"github.com/diwise/parse-adapter/pkg/parse/schema"
	"github.com/diwise/parse-adapter/pkg/parse/types"
	"github.com/diwise/parse-adapter/pkg/parse/types/relationships"
	"github.com/matryer/is"
)

var (
	c1 = types.NewReference("comment", "c1")
	c2 = types.NewReference("comment", "c2")
	c3 = types.NewReference("comment", "c3")
	u1 = types.NewReference("parse-user", "u1")
)

func TestRemoveThenReconcileEvictsMember(t *testing.T) {
	is, post := setupPost(t, Members("comments", c1, c2))

	is.NoErr(post.Remove("comments", c2))
	is.Equal(post.Members("comments"), []types.Reference{c1})
	is.Equal(post.DeltaSet("comments"), []types.Reference{c2})

	post.Reconcile()

	is.Equal(post.Members("comments"), []types.Reference{c1})
	is.Equal(len(post.DeltaSet("comments")), 0)
	is.True(!post.HasPendingRemovals())
}

func TestRemoveThenAddCancelsTheRemoval(t *testing.T) {
	is, post := setupPost(t, Members("comments", c1, c2))

	is.NoErr(post.Remove("comments", c1))
	is.NoErr(post.Add("comments", c1))

	is.Equal(len(post.DeltaSet("comments")), 0)
	is.Equal(post.Members("comments"), []types.Reference{c2, c1}) // the member should be present exactly once
}

func TestRemovingTheSameMemberTwiceRecordsItOnce(t *testing.T) {
	is, post := setupPost(t, Members("comments", c1))

	is.NoErr(post.Remove("comments", c1))
	is.NoErr(post.Remove("comments", c1))

	is.Equal(post.DeltaSet("comments"), []types.Reference{c1})
}

func TestReconcileIsIdempotent(t *testing.T) {
	is, post := setupPost(t, Members("comments", c1, c2, c3))

	is.NoErr(post.Remove("comments", c3))
	post.Reconcile()
	first, _ := json.Marshal(post)

	post.Reconcile()
	second, _ := json.Marshal(post)

	is.Equal(string(first), string(second))
}

func TestAddOnBelongsToFails(t *testing.T) {
	is, post := setupPost(t)

	err := post.Add("author", u1)
	is.True(errors.Is(err, parseerrors.ErrInvalidRelationship))
}

func TestAddOnUnknownRelationshipFails(t *testing.T) {
	is, post := setupPost(t)

	err := post.Remove("reviewers", u1)
	is.True(errors.Is(err, parseerrors.ErrUnknownRelationship))
}

func TestRelationAddsArePendingUntilReconciled(t *testing.T) {
	is, post := setupPost(t, Members("likes", u1))
	u2 := types.NewReference("parse-user", "u2")

	is.NoErr(post.Add("likes", u2))
	is.NoErr(post.Remove("likes", u1))

	snapshot := post.Snapshot()
	q := snapshot.Relationships["likes"].(*relationships.HasManyQuery)
	is.Equal(q.PendingAdds(), []types.Reference{u2})
	is.Equal(snapshot.Deltas["likes"], []types.Reference{u1})

	post.Reconcile()

	q = post.Snapshot().Relationships["likes"].(*relationships.HasManyQuery)
	is.Equal(len(q.PendingAdds()), 0)
	is.Equal(post.Members("likes"), []types.Reference{u2})
}

func TestMutationsAreRejectedWhileCommitting(t *testing.T) {
	is, post := setupPost(t, Members("comments", c1))

	release, err := post.BeginCommit()
	is.NoErr(err)

	_, err = post.BeginCommit()
	is.True(errors.Is(err, parseerrors.ErrConsistency)) // a second commit should be rejected

	err = post.Remove("comments", c1)
	is.True(errors.Is(err, parseerrors.ErrConsistency))

	err = post.Set("title", "changed")
	is.True(errors.Is(err, parseerrors.ErrConsistency))

	release()

	is.NoErr(post.Remove("comments", c1))
}

func TestAbsorbLeavesAbsentKeysAlone(t *testing.T) {
	is, post := setupPost(t, Attr("title", "hello"), Members("comments", c1), BelongsTo("author", u1))

	model := post.Model()
	def, _ := model.Relationship("comments")

	err := post.Absorb(Document{
		Type:       "post",
		ID:         "p1",
		Attributes: map[string]any{"updatedAt": "2024-01-01T00:00:00.000Z"},
		Relationships: map[string]relationships.Relationship{
			"comments": relationships.NewHasManyArray(def, []types.Reference{c1, c2}),
		},
	})
	is.NoErr(err)

	title, _ := post.Attribute("title")
	is.Equal(title, "hello")

	author, ok := post.BelongsTo("author")
	is.True(ok)
	is.Equal(author, u1)

	is.Equal(post.Members("comments"), []types.Reference{c1, c2})
}

func TestAbsorbKeepsPendingRelationAdds(t *testing.T) {
	is, post := setupPost(t)
	u2 := types.NewReference("parse-user", "u2")

	is.NoErr(post.Add("likes", u2))

	def, _ := post.Model().Relationship("likes")
	link := relationships.Link{Key: "likes", Type: "parse-user"}

	err := post.Absorb(Document{
		Type:          "post",
		ID:            "p1",
		Relationships: map[string]relationships.Relationship{"likes": relationships.NewHasManyQuery(def, &link)},
	})
	is.NoErr(err)

	is.Equal(post.Members("likes"), []types.Reference{u2})

	l, err := post.Link("likes")
	is.NoErr(err)
	is.Equal(l.OwnerID, "p1")
	is.Equal(l.Related(), `{"key":"likes","type":"parse-user"}`)
}

func TestAbsorbOfAnotherIdFails(t *testing.T) {
	is, post := setupPost(t)

	err := post.Absorb(Document{Type: "post", ID: "p2"})
	is.True(err != nil)
}

func TestAbsorbAssignsIdToNewEntity(t *testing.T) {
	is := is.New(t)
	registry := testRegistry(t)
	model, _ := registry.Lookup("post")

	post := New(model, "")
	is.True(post.IsNew())

	is.NoErr(post.Absorb(Document{Type: "post", ID: "p9"}))
	is.Equal(post.ID(), "p9")
}

func TestSetOfRelationshipKeyFails(t *testing.T) {
	is, post := setupPost(t)

	err := post.Set("comments", []string{"c1"})
	is.True(errors.Is(err, parseerrors.ErrInvalidRelationship))
}

func TestConcurrentAddsKeepMembershipUnique(t *testing.T) {
	is, post := setupPost(t)

	wg := sync.WaitGroup{}
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = post.Add("comments", c1)
			_ = post.Add("comments", c2)
		}()
	}
	wg.Wait()

	is.Equal(post.Members("comments"), []types.Reference{c1, c2})
}

func TestMarshalJSON(t *testing.T) {
	is, post := setupPost(t, Attr("title", "hello"), Members("comments", c1), BelongsTo("author", u1))

	b, err := json.Marshal(post)
	is.NoErr(err)
	is.Equal(string(b), `{"attributes":{"title":"hello"},"id":"p1","relationships":{"author":{"type":"parse-user","id":"u1"},"comments":[{"type":"comment","id":"c1"}]},"type":"post"}`)
}

func setupPost(t *testing.T, decorators ...EntityDecoratorFunc) (*is.I, *Entity) {
	is := is.New(t)

	registry := testRegistry(t)
	model, err := registry.Lookup("post")
	is.NoErr(err)

	return is, New(model, "p1", decorators...)
}

func testRegistry(t *testing.T) *schema.Registry {
	registry, err := schema.NewRegistry(
		&schema.Model{
			Name:       "post",
			Attributes: []schema.Attribute{{Name: "title", Type: schema.String}},
			Relationships: []relationships.Definition{
				{Key: "author", Kind: relationships.KindBelongsTo, Type: "parse-user"},
				{Key: "comments", Kind: relationships.KindArray, Unique: true},
				{Key: "likes", Kind: relationships.KindQuery, Type: "parse-user"},
			},
		},
		&schema.Model{
			Name: "comment",
			Relationships: []relationships.Definition{
				{Key: "post", Kind: relationships.KindBelongsTo},
			},
		},
	)
	if err != nil {
		t.Fatalf("failed to create registry: %s", err.Error())
	}

	return registry
}
