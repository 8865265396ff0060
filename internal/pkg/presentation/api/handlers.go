package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/diwise/parse-adapter/internal/pkg/application/relay"
	"github.com/diwise/parse-adapter/internal/pkg/presentation/api/auth"
	apierrors "github.com/diwise/parse-adapter/internal/pkg/presentation/api/errors"
	"github.com/diwise/parse-adapter/pkg/parse/client"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("parse-relay/api")

const (
	TenantHeader       string = "Parse-Relay-Tenant"
	SessionTokenHeader string = "X-Parse-Session-Token"

	TraceAttributeTenant string = "tenant"
)

func RegisterHandlers(ctx context.Context, r chi.Router, policies io.Reader, app relay.RelationshipRelay) error {

	authenticator, err := auth.NewAuthenticator(ctx, policies)
	if err != nil {
		return fmt.Errorf("failed to create api authenticator: %w", err)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(
			Logger(logging.GetFromContext(ctx)),
			TenantMiddleware(),
			SessionTokenMiddleware(),
			RequiredContentTypes([]string{"application/json"}),
		)

		r.Route("/entities/{entityType}/{entityId}", func(r chi.Router) {
			r.Get("/", NewRetrieveEntityHandler(app, authenticator))
			r.Post("/commit", NewCommitHandler(app, authenticator))

			r.Route("/relationships/{key}", func(r chi.Router) {
				r.Get("/", NewListMembersHandler(app, authenticator))
				r.Post("/", NewAddMemberHandler(app, authenticator))
				r.Delete("/{memberId}", NewRemoveMemberHandler(app, authenticator))
			})
		})
	})

	return nil
}

func NewRetrieveEntityHandler(app relay.RelationshipRelay, authenticator auth.Enticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "retrieve-entity")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		tenant, entityType, entityID := entityFromRequest(r)

		if err = authenticator.CheckAccess(ctx, r, tenant, []string{entityType}); err != nil {
			apierrors.ReportForbidden(w, err.Error())
			return
		}

		entity, err := app.RetrieveEntity(ctx, tenant, entityType, entityID)
		if err != nil {
			apierrors.ReportError(w, err)
			return
		}

		writeJSON(ctx, w, http.StatusOK, entity)
	}
}

func NewListMembersHandler(app relay.RelationshipRelay, authenticator auth.Enticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "list-members")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		tenant, entityType, entityID := entityFromRequest(r)
		key := chi.URLParam(r, "key")

		if err = authenticator.CheckAccess(ctx, r, tenant, []string{entityType}); err != nil {
			apierrors.ReportForbidden(w, err.Error())
			return
		}

		members, err := app.ListMembers(ctx, tenant, entityType, entityID, key)
		if err != nil {
			apierrors.ReportError(w, err)
			return
		}

		writeJSON(ctx, w, http.StatusOK, map[string]any{"results": members})
	}
}

type memberRequest struct {
	ID string `json:"id"`
}

func NewAddMemberHandler(app relay.RelationshipRelay, authenticator auth.Enticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "add-member")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		tenant, entityType, entityID := entityFromRequest(r)
		key := chi.URLParam(r, "key")

		if err = authenticator.CheckAccess(ctx, r, tenant, []string{entityType}); err != nil {
			apierrors.ReportForbidden(w, err.Error())
			return
		}

		member := memberRequest{}
		err = json.NewDecoder(r.Body).Decode(&member)
		if err != nil {
			apierrors.ReportBadRequest(w, fmt.Sprintf("unable to decode request payload: %s", err.Error()))
			return
		}

		if member.ID == "" {
			err = relay.NewBadRequestDataError("the id of the member to add is missing")
			apierrors.ReportError(w, err)
			return
		}

		err = app.AddMember(ctx, tenant, entityType, entityID, key, member.ID)
		if err != nil {
			apierrors.ReportError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func NewRemoveMemberHandler(app relay.RelationshipRelay, authenticator auth.Enticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "remove-member")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		tenant, entityType, entityID := entityFromRequest(r)
		key := chi.URLParam(r, "key")
		memberID := chi.URLParam(r, "memberId")

		if err = authenticator.CheckAccess(ctx, r, tenant, []string{entityType}); err != nil {
			apierrors.ReportForbidden(w, err.Error())
			return
		}

		err = app.RemoveMember(ctx, tenant, entityType, entityID, key, memberID)
		if err != nil {
			apierrors.ReportError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func NewCommitHandler(app relay.RelationshipRelay, authenticator auth.Enticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "commit")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		tenant, entityType, entityID := entityFromRequest(r)

		if err = authenticator.CheckAccess(ctx, r, tenant, []string{entityType}); err != nil {
			apierrors.ReportForbidden(w, err.Error())
			return
		}

		result, err := app.Commit(ctx, tenant, entityType, entityID)
		if err != nil {
			apierrors.ReportError(w, err)
			return
		}

		writeJSON(ctx, w, http.StatusOK, map[string]any{
			"state":  result.State.String(),
			"entity": result.Entity,
		})
	}
}

func entityFromRequest(r *http.Request) (tenant, entityType, entityID string) {
	return GetTenantFromContext(r.Context()), chi.URLParam(r, "entityType"), chi.URLParam(r, "entityId")
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logging.GetFromContext(ctx).Error("failed to marshal response", "err", err.Error())
		apierrors.ReportError(w, err)
		return
	}

	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

type tenantContextKey struct {
	name string
}

var tenantCtxKey = &tenantContextKey{"relay-tenant"}

func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			_, ctx, _ = o11y.AddTraceIDToLoggerAndStoreInContext(
				trace.SpanFromContext(ctx),
				logger,
				ctx)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequiredContentTypes(validTypes []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			contentType := r.Header.Get("Content-Type")
			isValidContentType := true

			if len(contentType) > 0 {
				isValidContentType = false

				for _, t := range validTypes {
					if strings.HasPrefix(contentType, t) {
						isValidContentType = true
						break
					}
				}
			}

			if isValidContentType {
				next.ServeHTTP(w, r)
			} else {
				http.Error(w, "unsupported media type", http.StatusUnsupportedMediaType)
			}
		})
	}
}

// TenantMiddleware packs any tenant id into the context
func TenantMiddleware() func(http.Handler) http.Handler {
	tenantHeaderName := http.CanonicalHeaderKey(TenantHeader)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenant := "default"

			tenantHeader := r.Header[tenantHeaderName]
			if len(tenantHeader) > 0 {
				tenant = tenantHeader[0]
			}

			if labeler, found := otelhttp.LabelerFromContext(r.Context()); found {
				labeler.Add(attribute.String(TraceAttributeTenant, tenant))
			}

			ctx := context.WithValue(r.Context(), tenantCtxKey, tenant)

			ctx = logging.NewContextWithLogger(
				ctx,
				logging.GetFromContext(r.Context()),
				"tenant",
				tenant,
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionTokenMiddleware forwards the session token of the caller to the backend
func SessionTokenMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := r.Header.Get(SessionTokenHeader); token != "" {
				r = r.WithContext(client.WithSessionToken(r.Context(), token))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetTenantFromContext extracts the tenant name, if any, from the provided context
func GetTenantFromContext(ctx context.Context) string {
	tenant, ok := ctx.Value(tenantCtxKey).(string)

	if !ok {
		return ""
	}

	return tenant
}
