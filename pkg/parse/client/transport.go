package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/diwise/parse-adapter/pkg/parse/errors"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Transport sends a single request to the backend and returns the raw response body.
// Rejected requests are reported as errors satisfying errors.Is(err, errors.ErrBackend).
type Transport interface {
	Do(ctx context.Context, method, path string, params url.Values, body any) ([]byte, error)
}

const (
	HeaderApplicationID string = "X-Parse-Application-Id"
	HeaderRESTAPIKey    string = "X-Parse-REST-API-Key"
	HeaderSessionToken  string = "X-Parse-Session-Token"
	HeaderRequestID     string = "X-Parse-Request-Id"
)

type sessionTokenKey struct{}

// WithSessionToken returns a context whose requests are sent on behalf of the
// session, taking precedence over any token configured on the client
func WithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, sessionTokenKey{}, token)
}

// SessionTokenFromContext returns the session token stored with WithSessionToken, if any
func SessionTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(sessionTokenKey{}).(string)
	return token
}

type httpTransport struct {
	baseURL       string
	applicationID string
	restAPIKey    string
	sessionToken  string
	debug         bool
	httpClient    http.Client
}

func newHTTPTransport(c *parseClient) *httpTransport {
	return &httpTransport{
		baseURL:       strings.TrimSuffix(c.baseURL, "/"),
		applicationID: c.applicationID,
		restAPIKey:    c.restAPIKey,
		sessionToken:  c.sessionToken,
		debug:         c.debug,
		httpClient: http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   c.timeout,
		},
	}
}

func (t *httpTransport) Do(ctx context.Context, method, path string, params url.Values, body any) ([]byte, error) {
	endpoint := t.baseURL + "/" + strings.TrimPrefix(path, "/")
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %s (%w)", err.Error(), errors.ErrInternal)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %s (%w)", err.Error(), errors.ErrInternal)
	}

	req.Header.Add("Accept", "application/json")

	if body != nil {
		req.Header.Add("Content-Type", "application/json")
	}

	if t.applicationID != "" {
		req.Header.Add(HeaderApplicationID, t.applicationID)
	}

	if t.restAPIKey != "" {
		req.Header.Add(HeaderRESTAPIKey, t.restAPIKey)
	}

	if token := SessionTokenFromContext(ctx); token != "" {
		req.Header.Add(HeaderSessionToken, token)
	} else if t.sessionToken != "" {
		req.Header.Add(HeaderSessionToken, t.sessionToken)
	}

	if method != http.MethodGet {
		req.Header.Add(HeaderRequestID, uuid.NewString())
	}

	started := time.Now()

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %s (%w)", err.Error(), errors.ErrTransport)
	}

	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %s (%w)", err.Error(), errors.ErrTransport)
	}

	if t.debug {
		log := logging.GetFromContext(ctx)

		if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode != http.StatusNotFound {
			reqbytes, _ := httputil.DumpRequest(req, false)
			respbytes, _ := httputil.DumpResponse(resp, false)
			log.Error("request failed", "request", string(reqbytes), "response", string(respbytes), "body", string(respBody))
		} else {
			log.Debug("request completed", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(started).String())
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, errors.NewErrorFromResponse(resp.StatusCode, respBody)
	}

	return respBody, nil
}
