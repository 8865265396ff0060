package client

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"

	"github.com/diwise/parse-adapter/pkg/parse"
	"github.com/diwise/parse-adapter/pkg/parse/errors"
	"github.com/diwise/parse-adapter/pkg/parse/normalizer"
	"github.com/diwise/parse-adapter/pkg/parse/schema"
	"github.com/diwise/parse-adapter/pkg/parse/types/entities"
	"github.com/diwise/parse-adapter/pkg/parse/types/pointers"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func (c *parseClient) Login(ctx context.Context, username, password string) (*parse.SessionResult, error) {
	var err error

	ctx, span := tracer.Start(ctx, "login",
		trace.WithAttributes(attribute.String("username", username)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	params := url.Values{}
	params.Set("username", username)
	params.Set("password", password)

	body, err := c.transport.Do(ctx, http.MethodGet, PathForType(PathLogin), params, nil)
	if err != nil {
		return nil, err
	}

	user, err := c.user(ctx, body, nil)
	if err != nil {
		return nil, err
	}

	return parse.NewSessionResult(user), nil
}

func (c *parseClient) Logout(ctx context.Context) error {
	var err error

	ctx, span := tracer.Start(ctx, "logout")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	_, err = c.transport.Do(ctx, http.MethodPost, PathForType(PathLogout), nil, map[string]any{})
	return err
}

// Me returns the user the current session token belongs to
func (c *parseClient) Me(ctx context.Context) (*entities.Entity, error) {
	var err error

	ctx, span := tracer.Start(ctx, "me")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	body, err := c.transport.Do(ctx, http.MethodGet, PathForType("me"), nil, nil)
	if err != nil {
		return nil, err
	}

	return c.user(ctx, body, nil)
}

// SignUp creates a new user. Reserved attributes are never sent. The sent attributes,
// except the password, are kept on the returned user along with what the backend
// responded with.
func (c *parseClient) SignUp(ctx context.Context, attributes map[string]any) (*parse.SessionResult, error) {
	var err error

	ctx, span := tracer.Start(ctx, "sign-up")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	writable := maps.Clone(attributes)
	maps.DeleteFunc(writable, func(name string, _ any) bool {
		return schema.IsReserved(name)
	})

	body, err := c.transport.Do(ctx, http.MethodPost, PathForType(pointers.UserType), nil, writable)
	if err != nil {
		return nil, err
	}

	sent := maps.Clone(writable)
	delete(sent, "password")

	user, err := c.user(ctx, body, sent)
	if err != nil {
		return nil, err
	}

	return parse.NewSessionResult(user), nil
}

func (c *parseClient) RequestPasswordReset(ctx context.Context, email string) error {
	var err error

	ctx, span := tracer.Start(ctx, "request-password-reset")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	_, err = c.transport.Do(ctx, http.MethodPost, PathForType(PathRequestPasswordReset), nil, map[string]any{"email": email})
	return err
}

func (c *parseClient) user(ctx context.Context, body []byte, sent map[string]any) (*entities.Entity, error) {
	model, err := c.registry.Lookup(pointers.UserType)
	if err != nil {
		return nil, err
	}

	payload, err := c.decode(body)
	if err != nil {
		return nil, err
	}

	result, err := c.normalizer.NormalizeSingleResponse(model, payload, "", normalizer.FindRecord)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize user: %s (%w)", err.Error(), errors.ErrBadResponse)
	}

	if sent != nil {
		maps.Copy(result.Data[0].Attributes, sent)
	}

	found, err := c.push(ctx, result)
	if err != nil {
		return nil, err
	}

	return found[0], nil
}
