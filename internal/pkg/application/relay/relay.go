package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/diwise/parse-adapter/internal/pkg/application/notifications"
	"github.com/diwise/parse-adapter/pkg/parse"
	"github.com/diwise/parse-adapter/pkg/parse/client"
	"github.com/diwise/parse-adapter/pkg/parse/errors"
	"github.com/diwise/parse-adapter/pkg/parse/schema"
	"github.com/diwise/parse-adapter/pkg/parse/types"
	"github.com/diwise/parse-adapter/pkg/parse/types/entities"
	"github.com/diwise/parse-adapter/pkg/parse/types/relationships"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

//go:generate moq -rm -out relay_mock.go . RelationshipRelay

// RelationshipRelay stages relationship changes of backend entities in memory and
// commits them on request
type RelationshipRelay interface {
	RetrieveEntity(ctx context.Context, tenant, entityType, entityID string) (*entities.Entity, error)
	AddMember(ctx context.Context, tenant, entityType, entityID, key, memberID string) error
	RemoveMember(ctx context.Context, tenant, entityType, entityID, key, memberID string) error
	ListMembers(ctx context.Context, tenant, entityType, entityID, key string) ([]types.Reference, error)
	Commit(ctx context.Context, tenant, entityType, entityID string) (*parse.SaveEntityResult, error)

	Start() error
	Stop() error
}

type relayApp struct {
	tenants  map[string]*tenantScope
	notifier notifications.Notifier
}

// tenantScope keeps one parse client, and thereby one graph of staged entities, per
// session token so that callers never see instances fetched under another token
type tenantScope struct {
	mu       sync.Mutex
	backend  Backend
	registry *schema.Registry
	sessions map[string]client.ParseClient
}

func (ts *tenantScope) sessionClient(token string) client.ParseClient {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if c, ok := ts.sessions[token]; ok {
		return c
	}

	c := client.NewParseClient(
		ts.backend.Endpoint,
		client.WithRegistry(ts.registry),
		client.ApplicationID(ts.backend.ApplicationID),
		client.RESTAPIKey(ts.backend.RESTAPIKey),
		client.SessionToken(token),
		client.Debug(fmt.Sprintf("%t", ts.backend.Debug)),
		client.Timeout(30*time.Second),
	)
	ts.sessions[token] = c

	return c
}

func New(ctx context.Context, cfg Config) (RelationshipRelay, error) {
	var err error
	var notifier notifications.Notifier

	notifierEndpoint := env.GetVariableOrDefault(ctx, "NOTIFIER_ENDPOINT", "")
	if notifierEndpoint != "" {
		notifier, err = notifications.NewNotifier(ctx, notifierEndpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to create notifier: %w", err)
		}
	}

	return NewWithNotifier(ctx, cfg, notifier)
}

func NewWithNotifier(ctx context.Context, cfg Config, notifier notifications.Notifier) (RelationshipRelay, error) {
	app := &relayApp{
		tenants:  make(map[string]*tenantScope),
		notifier: notifier,
	}

	for _, tenant := range cfg.Tenants {
		registry, err := schema.NewRegistry(tenant.Models...)
		if err != nil {
			return nil, fmt.Errorf("failed to register models of tenant %s: %w", tenant.ID, err)
		}

		app.tenants[tenant.ID] = &tenantScope{
			backend:  tenant.Backend,
			registry: registry,
			sessions: make(map[string]client.ParseClient),
		}
	}

	return app, nil
}

func (app *relayApp) Start() error {
	if app.notifier != nil {
		return app.notifier.Start()
	}
	return nil
}

func (app *relayApp) Stop() error {
	if app.notifier != nil {
		return app.notifier.Stop()
	}
	return nil
}

// RetrieveEntity returns the entity including any changes staged but not yet committed
func (app *relayApp) RetrieveEntity(ctx context.Context, tenant, entityType, entityID string) (*entities.Entity, error) {
	return app.entity(ctx, tenant, entityType, entityID)
}

func (app *relayApp) AddMember(ctx context.Context, tenant, entityType, entityID, key, memberID string) error {
	e, def, err := app.relationship(ctx, tenant, entityType, entityID, key)
	if err != nil {
		return err
	}

	member := types.NewReference(def.Type, memberID)

	if def.Kind == relationships.KindBelongsTo {
		return e.SetBelongsTo(key, &member)
	}

	return e.Add(key, member)
}

func (app *relayApp) RemoveMember(ctx context.Context, tenant, entityType, entityID, key, memberID string) error {
	e, def, err := app.relationship(ctx, tenant, entityType, entityID, key)
	if err != nil {
		return err
	}

	member := types.NewReference(def.Type, memberID)

	if def.Kind == relationships.KindBelongsTo {
		current, ok := e.BelongsTo(key)
		if !ok || current != member {
			return errors.NewNotFoundError(fmt.Sprintf("%s is not the %s of %s", member, key, e.Reference()))
		}
		return e.SetBelongsTo(key, nil)
	}

	return e.Remove(key, member)
}

func (app *relayApp) ListMembers(ctx context.Context, tenant, entityType, entityID, key string) ([]types.Reference, error) {
	c, err := app.session(ctx, tenant)
	if err != nil {
		return nil, err
	}

	e, def, err := app.relationship(ctx, tenant, entityType, entityID, key)
	if err != nil {
		return nil, err
	}

	switch def.Kind {
	case relationships.KindBelongsTo:
		if ref, ok := e.BelongsTo(key); ok {
			return []types.Reference{ref}, nil
		}
		return []types.Reference{}, nil
	case relationships.KindQuery:
		if !e.IsNew() {
			_, err = c.FindHasMany(ctx, e, key)
			if err != nil {
				return nil, err
			}
		}
	}

	return e.Members(key), nil
}

func (app *relayApp) Commit(ctx context.Context, tenant, entityType, entityID string) (*parse.SaveEntityResult, error) {
	c, err := app.session(ctx, tenant)
	if err != nil {
		return nil, err
	}

	e, err := app.entity(ctx, tenant, entityType, entityID)
	if err != nil {
		return nil, err
	}

	result, err := c.SaveEntity(ctx, e)
	if err != nil {
		return nil, err
	}

	if app.notifier != nil {
		app.notifier.EntityCommitted(ctx, e)
	}

	return result, nil
}

// session returns the client bound to the session token of the caller
func (app *relayApp) session(ctx context.Context, tenant string) (client.ParseClient, error) {
	ts, ok := app.tenants[tenant]
	if !ok {
		return nil, NewUnknownTenantError(tenant)
	}

	return ts.sessionClient(client.SessionTokenFromContext(ctx)), nil
}

// entity returns the instance of an entity tracked for the caller's session, retrieving
// it from the backend under that session the first time it is asked for so that staged
// changes survive between requests
func (app *relayApp) entity(ctx context.Context, tenant, entityType, entityID string) (*entities.Entity, error) {
	c, err := app.session(ctx, tenant)
	if err != nil {
		return nil, err
	}

	model, err := c.Registry().Lookup(entityType)
	if err != nil {
		return nil, err
	}

	if e, ok := c.Graph().Get(types.NewReference(model.Name, entityID)); ok {
		return e, nil
	}

	logging.GetFromContext(ctx).Debug("entity not tracked, retrieving it", "type", entityType, "id", entityID)

	return c.RetrieveEntity(ctx, entityType, entityID)
}

func (app *relayApp) relationship(ctx context.Context, tenant, entityType, entityID, key string) (*entities.Entity, relationships.Definition, error) {
	e, err := app.entity(ctx, tenant, entityType, entityID)
	if err != nil {
		return nil, relationships.Definition{}, err
	}

	def, ok := e.Model().Relationship(key)
	if !ok {
		return nil, relationships.Definition{}, errors.NewUnknownRelationshipError(fmt.Sprintf("%s has no relationship named %s", entityType, key))
	}

	return e, def, nil
}
