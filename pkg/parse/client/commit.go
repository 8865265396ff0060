package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"net/http"

	"github.com/diwise/parse-adapter/pkg/parse"
	"github.com/diwise/parse-adapter/pkg/parse/errors"
	"github.com/diwise/parse-adapter/pkg/parse/normalizer"
	"github.com/diwise/parse-adapter/pkg/parse/schema"
	"github.com/diwise/parse-adapter/pkg/parse/serializer"
	"github.com/diwise/parse-adapter/pkg/parse/types/entities"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type CommitState = parse.CommitState

const (
	Idle         = parse.Idle
	BatchPending = parse.BatchPending
	MainPending  = parse.MainPending
	Reconciling  = parse.Reconciling
	Done         = parse.Done
	Failed       = parse.Failed
)

// SaveEntity creates entities that have no id yet and updates all others
func (c *parseClient) SaveEntity(ctx context.Context, entity *entities.Entity) (*parse.SaveEntityResult, error) {
	if entity.IsNew() {
		return c.CreateEntity(ctx, entity)
	}
	return c.UpdateEntity(ctx, entity)
}

// CreateEntity posts the attributes of a new entity and then, using the id assigned by
// the backend, sends any relation ops. Pending array removals are dropped since nothing
// can be pending removal on the backend for an object that did not exist.
func (c *parseClient) CreateEntity(ctx context.Context, entity *entities.Entity) (*parse.SaveEntityResult, error) {
	var err error

	ctx, span := tracer.Start(ctx, "create-entity",
		trace.WithAttributes(attribute.String(TraceAttributeClassName, entity.Model().ClassName())),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if !entity.IsNew() {
		err = fmt.Errorf("%s has already been created (%w)", entity.Reference(), errors.ErrConsistency)
		return nil, err
	}

	release, err := entity.BeginCommit()
	if err != nil {
		return nil, err
	}
	defer release()

	cm := newCommit(ctx, entity)

	payload, err := serializer.Serialize(entity)
	if err != nil {
		err = cm.fail(err)
		return nil, err
	}

	if err = ctx.Err(); err != nil {
		err = cm.fail(fmt.Errorf("commit cancelled before first request: %w", err))
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	model := entity.Model()

	cm.transition(MainPending)

	body, err := c.transport.Do(ctx, http.MethodPost, PathForType(model.Name), nil, payload.Attributes)
	if err != nil {
		err = cm.fail(err)
		return nil, err
	}

	merged, err := mergeResponse(payload.Attributes, body)
	if err != nil {
		err = cm.fail(err)
		return nil, err
	}

	objectID, _ := merged[schema.ObjectID].(string)
	if objectID == "" {
		err = cm.fail(fmt.Errorf("backend did not return an id for the new %s (%w)", model.Name, errors.ErrBadResponse))
		return nil, err
	}

	span.SetAttributes(attribute.String(TraceAttributeObjectID, objectID))

	if relationOps := payload.RelationOps(); relationOps != nil {
		cm.transition(BatchPending)

		_, err = c.transport.Do(ctx, http.MethodPut, PathForObject(model.Name, objectID), nil, relationOps)
		if err != nil {
			// the object exists on the backend now, so keep its id and let a later update resend the relation ops
			if absorbErr := c.absorb(ctx, cm, merged, objectID, normalizer.CreateRecord); absorbErr != nil {
				cm.log.Error("failed to absorb created object", "err", absorbErr.Error())
			}
			err = cm.fail(err)
			return nil, err
		}
	}

	cm.transition(Reconciling)

	err = c.absorb(ctx, cm, merged, objectID, normalizer.CreateRecord)
	if err != nil {
		err = cm.fail(err)
		return nil, err
	}

	entity.Reconcile()
	cm.transition(Done)

	return parse.NewSaveEntityResult(cm.state, merged, entity), nil
}

// UpdateEntity sends pending batch ops first and the attributes second. If the batch
// request fails the attributes are never sent and the entity is left untouched.
func (c *parseClient) UpdateEntity(ctx context.Context, entity *entities.Entity) (*parse.SaveEntityResult, error) {
	var err error

	entityID := entity.ID()

	ctx, span := tracer.Start(ctx, "update-entity",
		trace.WithAttributes(attribute.String(TraceAttributeClassName, entity.Model().ClassName())),
		trace.WithAttributes(attribute.String(TraceAttributeObjectID, entityID)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if entityID == "" {
		err = fmt.Errorf("a %s without id can not be updated (%w)", entity.Type(), errors.ErrConsistency)
		return nil, err
	}

	release, err := entity.BeginCommit()
	if err != nil {
		return nil, err
	}
	defer release()

	cm := newCommit(ctx, entity)

	payload, err := serializer.Serialize(entity)
	if err != nil {
		err = cm.fail(err)
		return nil, err
	}

	if err = ctx.Err(); err != nil {
		err = cm.fail(fmt.Errorf("commit cancelled before first request: %w", err))
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	path := PathForObject(entity.Type(), entityID)

	if payload.BatchOps != nil {
		cm.transition(BatchPending)

		_, err = c.transport.Do(ctx, http.MethodPut, path, nil, payload.BatchOps)
		if err != nil {
			err = cm.fail(err)
			return nil, err
		}
	}

	cm.transition(MainPending)

	body, err := c.transport.Do(ctx, http.MethodPut, path, nil, payload.Attributes)
	if err != nil {
		err = cm.fail(err)
		return nil, err
	}

	merged, err := mergeResponse(payload.Attributes, body)
	if err != nil {
		err = cm.fail(err)
		return nil, err
	}

	cm.transition(Reconciling)

	err = c.absorb(ctx, cm, merged, entityID, normalizer.UpdateRecord)
	if err != nil {
		err = cm.fail(err)
		return nil, err
	}

	entity.Reconcile()
	cm.transition(Done)

	return parse.NewSaveEntityResult(cm.state, merged, entity), nil
}

func (c *parseClient) absorb(ctx context.Context, cm *commit, merged map[string]any, objectID string, requestType normalizer.RequestType) error {
	result, err := c.normalizer.NormalizeSingleResponse(cm.entity.Model(), merged, objectID, requestType)
	if err != nil {
		return fmt.Errorf("failed to normalize save response: %s (%w)", err.Error(), errors.ErrBadResponse)
	}

	err = cm.entity.Absorb(result.Data[0])
	if err != nil {
		return fmt.Errorf("failed to absorb save response: %s (%w)", err.Error(), errors.ErrInternal)
	}

	if err := c.graph.Track(cm.entity); err != nil {
		cm.log.Warn("saved entity is not tracked by the graph", "err", err.Error())
	}

	if _, err := c.graph.PushAll(result.Included); err != nil {
		logging.GetFromContext(ctx).Warn("failed to store included object", "err", err.Error())
	}

	return nil
}

type commit struct {
	entity *entities.Entity
	state  CommitState
	log    *slog.Logger
}

func newCommit(ctx context.Context, entity *entities.Entity) *commit {
	return &commit{
		entity: entity,
		state:  Idle,
		log:    logging.GetFromContext(ctx).With(slog.String("parse-class", entity.Type()), slog.String("object-id", entity.ID())),
	}
}

func (cm *commit) transition(to CommitState) {
	cm.log.Debug("commit state changed", "from", cm.state.String(), "to", to.String())
	cm.state = to
}

func (cm *commit) fail(err error) error {
	cm.log.Error("commit failed", "state", cm.state.String(), "err", err.Error())
	cm.transition(Failed)
	return err
}

// mergeResponse overlays the response of a save on the attributes that were sent
func mergeResponse(sent map[string]any, body []byte) (map[string]any, error) {
	merged := map[string]any{}

	b, err := json.Marshal(sent)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sent attributes: %s (%w)", err.Error(), errors.ErrInternal)
	}

	err = json.Unmarshal(b, &merged)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal sent attributes: %s (%w)", err.Error(), errors.ErrInternal)
	}

	if len(body) == 0 {
		return merged, nil
	}

	response := map[string]any{}
	err = json.Unmarshal(body, &response)
	if err != nil {
		return nil, fmt.Errorf("failed to decode save response: %s (%w)", err.Error(), errors.ErrBadResponse)
	}

	maps.Copy(merged, response)

	return merged, nil
}
