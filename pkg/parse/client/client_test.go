package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	parseerrors "github.com/diwise/parse-adapter/pkg/parse/errors"
	"github.com/diwise/parse-adapter/pkg/parse/types"
	testutils "github.com/diwise/service-chassis/pkg/test/http"
	"github.com/diwise/service-chassis/pkg/test/http/expects"
	"github.com/diwise/service-chassis/pkg/test/http/response"
	"github.com/matryer/is"
)

var Expects = testutils.Expects
var Returns = testutils.Returns
var anyInput = expects.AnyInput
var method = expects.RequestMethod
var path = expects.RequestPath
var body = expects.RequestBody
var queryParam = expects.QueryParamEquals

func TestRetrieveEntity(t *testing.T) {
	is, registry := setupClientTest(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodGet),
			path("/classes/Post/p1"),
			queryParam("include", "author"),
		),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusOK),
			response.Body([]byte(postResponseJSON)),
		),
	)
	defer s.Close()

	c := NewParseClient(s.URL(), WithRegistry(registry))

	post, err := c.RetrieveEntity(context.Background(), "post", "p1", Include("author"))
	is.NoErr(err)

	title, _ := post.Attribute("title")
	is.Equal(title, "hello")

	author, ok := post.BelongsTo("author")
	is.True(ok)
	is.Equal(author, u1)

	user, ok := c.Graph().Get(u1)
	is.True(ok) // the embedded author should have been pushed into the graph

	username, _ := user.Attribute("username")
	is.Equal(username, "jane")
}

func TestRetrieveMissingEntityReturnsNotFound(t *testing.T) {
	is, registry := setupClientTest(t)

	s := testutils.NewMockServiceThat(
		Expects(is, anyInput()),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusNotFound),
			response.Body([]byte(`{"code":101,"error":"Object not found."}`)),
		),
	)
	defer s.Close()

	c := NewParseClient(s.URL(), WithRegistry(registry))

	_, err := c.RetrieveEntity(context.Background(), "post", "p404")
	is.True(errors.Is(err, parseerrors.ErrNotFound))
	is.True(errors.Is(err, parseerrors.ErrBackend))
}

func TestBackendErrorEnvelopeIsUnwrapped(t *testing.T) {
	is, registry := setupClientTest(t)

	s := testutils.NewMockServiceThat(
		Expects(is, anyInput()),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusBadRequest),
			response.Body([]byte(`{"errors":[{"code":142,"message":"validation failed"},{"code":1,"message":"other"}]}`)),
		),
	)
	defer s.Close()

	c := NewParseClient(s.URL(), WithRegistry(registry))

	_, err := c.QueryEntities(context.Background(), "post")

	be := &parseerrors.BackendError{}
	is.True(errors.As(err, &be))
	is.Equal(be.Code, 142)
	is.Equal(be.Message, "validation failed")
}

func TestQueryWithImplicitWhere(t *testing.T) {
	is, registry := setupClientTest(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodGet),
			path("/classes/Post"),
			queryParam("where", `{"title":"hello"}`),
		),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusOK),
			response.Body([]byte(`{"results":[{"objectId":"p1","title":"hello"},{"objectId":"p2","title":"hello"}]}`)),
		),
	)
	defer s.Close()

	c := NewParseClient(s.URL(), WithRegistry(registry))

	result, err := c.Query(context.Background(), "post", map[string]any{"title": "hello"})
	is.NoErr(err)
	is.Equal(len(result.Found), 2)
	is.True(!result.HasCount)
}

func TestQueryEntitiesWithCount(t *testing.T) {
	is, registry := setupClientTest(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodGet),
			path("/classes/Comment"),
			queryParam("count", "1"),
			queryParam("limit", "1"),
			queryParam("order", "-createdAt"),
		),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusOK),
			response.Body([]byte(`{"results":[{"objectId":"c1","text":"first"}],"count":17}`)),
		),
	)
	defer s.Close()

	c := NewParseClient(s.URL(), WithRegistry(registry))

	result, err := c.QueryEntities(context.Background(), "comment", Count(), Limit(1), Order("-createdAt"))
	is.NoErr(err)
	is.True(result.HasCount)
	is.Equal(result.Count, 17)
	is.Equal(result.Found[0].ID(), "c1")
}

func TestQueryEntitiesWithBadWhereIsNotSent(t *testing.T) {
	is, registry := setupClientTest(t)

	s := testutils.NewMockServiceThat(
		Expects(is, anyInput()),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusOK),
			response.Body([]byte(`{"results":[]}`)),
		),
	)
	defer s.Close()

	c := NewParseClient(s.URL(), WithRegistry(registry))

	_, err := c.QueryEntities(context.Background(), "post", Where(map[string]any{"title": func() {}}))
	is.True(errors.Is(err, parseerrors.ErrInternal))
	is.Equal(s.RequestCount(), 0) // nothing should reach the backend
}

func TestFindHasManyIssuesRelatedToQuery(t *testing.T) {
	is, registry := setupClientTest(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodGet),
			path("/classes/Comment"),
			queryParam("where", `{"$relatedTo":{"key":"replies","object":{"__type":"Pointer","className":"Post","objectId":"p1"}}}`),
		),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusOK),
			response.Body([]byte(`{"results":[{"objectId":"c1","text":"first"},{"objectId":"c2","text":"second"}]}`)),
		),
	)
	defer s.Close()

	c := NewParseClient(s.URL(), WithRegistry(registry))
	post := newPost(registry, "p1")

	found, err := c.FindHasMany(context.Background(), post, "replies")
	is.NoErr(err)
	is.Equal(len(found), 2)

	is.Equal(post.Members("replies"), []types.Reference{c1, c2})
}

func TestFindHasManyByLink(t *testing.T) {
	is, registry := setupClientTest(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			path("/users"),
			queryParam("where", `{"$relatedTo":{"key":"likes","object":{"__type":"Pointer","className":"Post","objectId":"p1"}}}`),
		),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusOK),
			response.Body([]byte(`{"results":[{"objectId":"u1","username":"jane"}]}`)),
		),
	)
	defer s.Close()

	c := NewParseClient(s.URL(), WithRegistry(registry))

	found, err := c.FindHasManyByLink(context.Background(), types.NewReference("post", "p1"), `{"key":"likes","type":"parse-user"}`)
	is.NoErr(err)
	is.Equal(found[0].Reference(), u1)
}

func TestFindHasManyOnArrayFails(t *testing.T) {
	is, registry := setupClientTest(t)

	c := NewParseClient("http://localhost", WithRegistry(registry))

	_, err := c.FindHasMany(context.Background(), newPost(registry, "p1"), "comments")
	is.True(errors.Is(err, parseerrors.ErrInvalidRelationship))
}

func TestDeleteEntity(t *testing.T) {
	is, registry := setupClientTest(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodDelete),
			path("/classes/Post/p1"),
		),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusOK),
			response.Body([]byte(`{}`)),
		),
	)
	defer s.Close()

	c := NewParseClient(s.URL(), WithRegistry(registry))

	result, err := c.DeleteEntity(context.Background(), "post", "p1")
	is.NoErr(err)
	is.Equal(result.ID, "p1") // the id should be injected into the empty delete response
}

func TestCallFunction(t *testing.T) {
	is, registry := setupClientTest(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodPost),
			path("/functions/averageStars"),
			body(`{"movie":"The Matrix"}`),
		),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusOK),
			response.Body([]byte(`{"result":4.8}`)),
		),
	)
	defer s.Close()

	c := NewParseClient(s.URL(), WithRegistry(registry))

	result, err := c.CallFunction(context.Background(), "averageStars", map[string]any{"movie": "The Matrix"})
	is.NoErr(err)

	var stars float64
	is.NoErr(result.Decode(&stars))
	is.Equal(stars, 4.8)
}

func TestParseHeadersAreSent(t *testing.T) {
	is, registry := setupClientTest(t)

	var headers http.Header
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		w.Header().Add("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"objectId":"p1","updatedAt":"2024-03-01T12:30:00.000Z"}`))
	}))
	defer s.Close()

	c := NewParseClient(s.URL,
		WithRegistry(registry),
		ApplicationID("app"),
		RESTAPIKey("key"),
		SessionToken("r:default"),
	)

	ctx := WithSessionToken(context.Background(), "r:session")
	_, err := c.UpdateEntity(ctx, newPost(registry, "p1"))
	is.NoErr(err)

	is.Equal(headers.Get(HeaderApplicationID), "app")
	is.Equal(headers.Get(HeaderRESTAPIKey), "key")
	is.Equal(headers.Get(HeaderSessionToken), "r:session") // the context token should take precedence
	is.True(headers.Get(HeaderRequestID) != "")
	is.Equal(headers.Get("Content-Type"), "application/json")
}

func TestPathForType(t *testing.T) {
	is := is.New(t)

	is.Equal(PathForType("parse-user"), "users")
	is.Equal(PathForType("parseUser"), "users")
	is.Equal(PathForType("login"), "login")
	is.Equal(PathForType("logout"), "logout")
	is.Equal(PathForType("requestPasswordReset"), "requestPasswordReset")
	is.Equal(PathForType("me"), "users/me")
	is.Equal(PathForType("function"), "functions")
	is.Equal(PathForType("blog-post"), "classes/BlogPost")
	is.Equal(PathForType("blogPost"), "classes/BlogPost")
	is.Equal(FunctionPath("hello"), "functions/hello")
	is.Equal(PathForObject("post", "p1"), "classes/Post/p1")
}

const postResponseJSON string = `{
	"objectId": "p1",
	"title": "hello",
	"createdAt": "2024-03-01T10:00:00.000Z",
	"author": {"__type": "Object", "className": "_User", "objectId": "u1", "username": "jane"},
	"likes": {"__type": "Relation", "className": "_User"}
}`
