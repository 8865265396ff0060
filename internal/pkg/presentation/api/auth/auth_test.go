package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestAllowedRequest(t *testing.T) {
	is, a := setupAuthTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/entities/post/p1", nil)
	req.Header.Add("Authorization", "Bearer letmein")

	is.NoErr(a.CheckAccess(context.Background(), req, "default", []string{"post"}))
}

func TestDeniedRequest(t *testing.T) {
	is, a := setupAuthTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/entities/post/p1", nil)
	req.Header.Add("Authorization", "Bearer wrong")

	err := a.CheckAccess(context.Background(), req, "default", []string{"post"})
	is.True(errors.Is(err, ErrAccessDenied))
}

func TestPolicySeesTenantAndPath(t *testing.T) {
	is, a := setupAuthTest(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/entities/post/p1/commit", nil)
	req.Header.Add("Authorization", "Bearer letmein")

	err := a.CheckAccess(context.Background(), req, "other", []string{"post"})
	is.True(errors.Is(err, ErrAccessDenied)) // only the default tenant may commit
}

func TestBrokenPolicyFails(t *testing.T) {
	is := is.New(t)

	_, err := NewAuthenticator(context.Background(), strings.NewReader("this is not rego"))
	is.True(err != nil)
}

func setupAuthTest(t *testing.T) (*is.I, Enticator) {
	is := is.New(t)

	a, err := NewAuthenticator(context.Background(), strings.NewReader(testPolicy))
	is.NoErr(err)

	return is, a
}

const testPolicy string = `package example.authz

default allow := false

allow = response {
	input.token == "letmein"
	not is_foreign_commit
	response := {
		"tenants": [input.tenant]
	}
}

is_foreign_commit {
	input.path[count(input.path) - 1] == "commit"
	input.tenant != "default"
}
`
