package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/diwise/parse-adapter/pkg/parse"
	"github.com/diwise/parse-adapter/pkg/parse/errors"
	"github.com/diwise/parse-adapter/pkg/parse/normalizer"
	"github.com/diwise/parse-adapter/pkg/parse/schema"
	"github.com/diwise/parse-adapter/pkg/parse/types"
	"github.com/diwise/parse-adapter/pkg/parse/types/entities"
	"github.com/diwise/parse-adapter/pkg/parse/types/relationships"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type ParseClient interface {
	SaveEntity(ctx context.Context, entity *entities.Entity) (*parse.SaveEntityResult, error)
	CreateEntity(ctx context.Context, entity *entities.Entity) (*parse.SaveEntityResult, error)
	UpdateEntity(ctx context.Context, entity *entities.Entity) (*parse.SaveEntityResult, error)
	DeleteEntity(ctx context.Context, entityType, entityID string) (*parse.DeleteEntityResult, error)
	RetrieveEntity(ctx context.Context, entityType, entityID string, parameters ...RequestDecoratorFunc) (*entities.Entity, error)
	QueryEntities(ctx context.Context, entityType string, parameters ...RequestDecoratorFunc) (*parse.QueryEntitiesResult, error)
	Query(ctx context.Context, entityType string, query map[string]any) (*parse.QueryEntitiesResult, error)
	FindHasMany(ctx context.Context, entity *entities.Entity, key string) ([]*entities.Entity, error)
	FindHasManyByLink(ctx context.Context, owner types.Reference, related string) ([]*entities.Entity, error)
	CallFunction(ctx context.Context, name string, params any) (*parse.FunctionResult, error)

	Login(ctx context.Context, username, password string) (*parse.SessionResult, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*entities.Entity, error)
	SignUp(ctx context.Context, attributes map[string]any) (*parse.SessionResult, error)
	RequestPasswordReset(ctx context.Context, email string) error

	Graph() *entities.Graph
	Registry() *schema.Registry
}

func ApplicationID(id string) func(*parseClient) {
	return func(c *parseClient) {
		c.applicationID = id
	}
}

func RESTAPIKey(key string) func(*parseClient) {
	return func(c *parseClient) {
		c.restAPIKey = key
	}
}

func SessionToken(token string) func(*parseClient) {
	return func(c *parseClient) {
		c.sessionToken = token
	}
}

func Debug(enabled string) func(*parseClient) {
	return func(c *parseClient) {
		c.debug = (enabled == "true")
	}
}

func Timeout(timeout time.Duration) func(*parseClient) {
	return func(c *parseClient) {
		c.timeout = timeout
	}
}

func WithTransport(t Transport) func(*parseClient) {
	return func(c *parseClient) {
		c.transport = t
	}
}

func WithGraph(g *entities.Graph) func(*parseClient) {
	return func(c *parseClient) {
		c.graph = g
	}
}

func WithRegistry(r *schema.Registry) func(*parseClient) {
	return func(c *parseClient) {
		c.registry = r
	}
}

func NewParseClient(baseURL string, options ...func(*parseClient)) ParseClient {
	c := &parseClient{
		baseURL: baseURL,
		debug:   false,
		timeout: 30 * time.Second,
	}

	for _, option := range options {
		option(c)
	}

	if c.registry == nil {
		if c.graph != nil {
			c.registry = c.graph.Registry()
		} else {
			// only the built in user model is registered, which always validates
			c.registry, _ = schema.NewRegistry()
		}
	}

	if c.graph == nil {
		c.graph = entities.NewGraph(c.registry)
	}

	if c.transport == nil {
		c.transport = newHTTPTransport(c)
	}

	c.normalizer = normalizer.New(c.registry)

	return c
}

const (
	TraceAttributeClassName string = "parse-class"
	TraceAttributeObjectID  string = "object-id"
)

var tracer = otel.Tracer("parse-client")

type parseClient struct {
	baseURL       string
	applicationID string
	restAPIKey    string
	sessionToken  string
	debug         bool
	timeout       time.Duration

	transport  Transport
	registry   *schema.Registry
	graph      *entities.Graph
	normalizer *normalizer.Normalizer
}

func (c *parseClient) Graph() *entities.Graph {
	return c.graph
}

func (c *parseClient) Registry() *schema.Registry {
	return c.registry
}

func (c *parseClient) RetrieveEntity(ctx context.Context, entityType, entityID string, parameters ...RequestDecoratorFunc) (*entities.Entity, error) {
	var err error

	ctx, span := tracer.Start(ctx, "retrieve-entity",
		trace.WithAttributes(attribute.String(TraceAttributeClassName, entityType)),
		trace.WithAttributes(attribute.String(TraceAttributeObjectID, entityID)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	model, err := c.registry.Lookup(entityType)
	if err != nil {
		return nil, err
	}

	params, err := decorate(parameters)
	if err != nil {
		return nil, err
	}

	body, err := c.transport.Do(ctx, http.MethodGet, PathForObject(model.Name, entityID), params, nil)
	if err != nil {
		return nil, err
	}

	payload, err := c.decode(body)
	if err != nil {
		return nil, err
	}

	result, err := c.normalizer.NormalizeSingleResponse(model, payload, entityID, normalizer.FindRecord)
	if err != nil {
		err = fmt.Errorf("failed to normalize %s %s: %s (%w)", model.Name, entityID, err.Error(), errors.ErrBadResponse)
		return nil, err
	}

	found, err := c.push(ctx, result)
	if err != nil {
		return nil, err
	}

	return found[0], nil
}

func (c *parseClient) QueryEntities(ctx context.Context, entityType string, parameters ...RequestDecoratorFunc) (*parse.QueryEntitiesResult, error) {
	params, err := decorate(parameters)
	if err != nil {
		return nil, err
	}

	return c.query(ctx, entityType, params)
}

// Query runs a query expressed as a map. See QueryFromMap for the conventions that apply.
func (c *parseClient) Query(ctx context.Context, entityType string, query map[string]any) (*parse.QueryEntitiesResult, error) {
	params, err := QueryFromMap(query)
	if err != nil {
		return nil, err
	}

	return c.query(ctx, entityType, params)
}

func (c *parseClient) query(ctx context.Context, entityType string, params url.Values) (*parse.QueryEntitiesResult, error) {
	var err error

	ctx, span := tracer.Start(ctx, "query-entities",
		trace.WithAttributes(attribute.String(TraceAttributeClassName, entityType)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	model, err := c.registry.Lookup(entityType)
	if err != nil {
		return nil, err
	}

	body, err := c.transport.Do(ctx, http.MethodGet, PathForType(model.Name), params, nil)
	if err != nil {
		return nil, err
	}

	payload, err := c.decode(body)
	if err != nil {
		return nil, err
	}

	result, err := c.normalizer.NormalizeArrayResponse(model, payload)
	if err != nil {
		err = fmt.Errorf("failed to normalize %s: %s (%w)", model.Name, err.Error(), errors.ErrBadResponse)
		return nil, err
	}

	found, err := c.push(ctx, result)
	if err != nil {
		return nil, err
	}

	qer := parse.NewQueryEntitiesResult(found)
	if result.Meta.HasCount {
		qer.Count = result.Meta.Count
		qer.HasCount = true
	}

	return qer, nil
}

// FindHasMany resolves the members of a relation through a $relatedTo query and
// stores them as the resolved members of the relationship
func (c *parseClient) FindHasMany(ctx context.Context, entity *entities.Entity, key string) ([]*entities.Entity, error) {
	link, err := entity.Link(key)
	if err != nil {
		return nil, err
	}

	if link.OwnerID == "" {
		return nil, errors.NewInvalidRelationshipError(fmt.Sprintf("%s.%s can not be resolved before %s has been saved", link.OwnerType, key, link.OwnerType))
	}

	found, err := c.findRelated(ctx, entity.Reference(), link)
	if err != nil {
		return nil, err
	}

	err = entity.SetResolved(key, references(found))
	if err != nil {
		return nil, err
	}

	return found, nil
}

// FindHasManyByLink resolves a relation from the string form of its link
func (c *parseClient) FindHasManyByLink(ctx context.Context, owner types.Reference, related string) ([]*entities.Entity, error) {
	link, err := relationships.ParseLink(related)
	if err != nil {
		return nil, err
	}

	found, err := c.findRelated(ctx, owner, link)
	if err != nil {
		return nil, err
	}

	if e, ok := c.graph.Get(owner); ok {
		if err := e.SetResolved(link.Key, references(found)); err != nil {
			logging.GetFromContext(ctx).Warn("failed to store resolved relation members", "key", link.Key, "err", err.Error())
		}
	}

	return found, nil
}

func (c *parseClient) findRelated(ctx context.Context, owner types.Reference, link relationships.Link) ([]*entities.Entity, error) {
	var err error

	ctx, span := tracer.Start(ctx, "find-has-many",
		trace.WithAttributes(attribute.String(TraceAttributeClassName, owner.Type)),
		trace.WithAttributes(attribute.String(TraceAttributeObjectID, owner.ID)),
		trace.WithAttributes(attribute.String("relation-key", link.Key)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	model, err := c.registry.Lookup(link.Type)
	if err != nil {
		return nil, err
	}

	params, err := decorate([]RequestDecoratorFunc{RelatedTo(owner, link.Key)})
	if err != nil {
		return nil, err
	}

	body, err := c.transport.Do(ctx, http.MethodGet, PathForType(model.Name), params, nil)
	if err != nil {
		return nil, err
	}

	payload, err := c.decode(body)
	if err != nil {
		return nil, err
	}

	result, err := c.normalizer.NormalizeArrayResponse(model, payload)
	if err != nil {
		err = fmt.Errorf("failed to normalize members of %s: %s (%w)", link.Key, err.Error(), errors.ErrBadResponse)
		return nil, err
	}

	return c.push(ctx, result)
}

func (c *parseClient) DeleteEntity(ctx context.Context, entityType, entityID string) (*parse.DeleteEntityResult, error) {
	var err error

	ctx, span := tracer.Start(ctx, "delete-entity",
		trace.WithAttributes(attribute.String(TraceAttributeClassName, entityType)),
		trace.WithAttributes(attribute.String(TraceAttributeObjectID, entityID)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	model, err := c.registry.Lookup(entityType)
	if err != nil {
		return nil, err
	}

	body, err := c.transport.Do(ctx, http.MethodDelete, PathForObject(model.Name, entityID), nil, nil)
	if err != nil {
		return nil, err
	}

	payload, err := c.decode(body)
	if err != nil {
		return nil, err
	}

	result, err := c.normalizer.NormalizeSingleResponse(model, payload, entityID, normalizer.DeleteRecord)
	if err != nil {
		err = fmt.Errorf("failed to normalize delete response: %s (%w)", err.Error(), errors.ErrBadResponse)
		return nil, err
	}

	c.graph.Forget(types.NewReference(model.Name, entityID))

	return parse.NewDeleteEntityResult(result.Data[0].ID), nil
}

func (c *parseClient) CallFunction(ctx context.Context, name string, params any) (*parse.FunctionResult, error) {
	var err error

	ctx, span := tracer.Start(ctx, "call-function",
		trace.WithAttributes(attribute.String("function", name)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if params == nil {
		params = map[string]any{}
	}

	body, err := c.transport.Do(ctx, http.MethodPost, FunctionPath(name), nil, params)
	if err != nil {
		return nil, err
	}

	fr, err := parse.NewFunctionResult(body)
	if err != nil {
		err = fmt.Errorf("failed to decode function result: %s (%w)", err.Error(), errors.ErrBadResponse)
		return nil, err
	}

	return fr, nil
}

func (c *parseClient) decode(body []byte) (map[string]any, error) {
	payload := map[string]any{}

	if len(body) == 0 {
		return payload, nil
	}

	err := json.Unmarshal(body, &payload)
	if err != nil {
		if c.debug && len(body) < 1000 {
			return nil, fmt.Errorf("unmarshaling of %s failed with err %s (%w)", string(body), err.Error(), errors.ErrBadResponse)
		}
		return nil, fmt.Errorf("failed to decode response: %s (%w)", err.Error(), errors.ErrBadResponse)
	}

	return payload, nil
}

// push stores the result documents in the graph and returns the entities for the primary data
func (c *parseClient) push(ctx context.Context, result *normalizer.Result) ([]*entities.Entity, error) {
	found, err := c.graph.PushAll(result.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to store %s: %s (%w)", result.Root, err.Error(), errors.ErrBadResponse)
	}

	if _, err := c.graph.PushAll(result.Included); err != nil {
		logging.GetFromContext(ctx).Warn("failed to store included object", "root", result.Root, "err", err.Error())
	}

	return found, nil
}

func decorate(parameters []RequestDecoratorFunc) (url.Values, error) {
	params := url.Values{}
	for _, rdf := range parameters {
		params = rdf(params)
	}

	if failures, ok := params[decoratorFailure]; ok {
		return nil, fmt.Errorf("bad request parameters: %s (%w)", strings.Join(failures, ", "), errors.ErrInternal)
	}

	return params, nil
}

func references(found []*entities.Entity) []types.Reference {
	refs := make([]types.Reference, 0, len(found))
	for _, e := range found {
		refs = append(refs, e.Reference())
	}
	return refs
}
