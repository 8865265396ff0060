package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/diwise/parse-adapter/pkg/parse/types/entities"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

//go:generate moq -rm -out notifier_mock.go . Notifier

type Notifier interface {
	Start() error
	Stop() error

	EntityCommitted(ctx context.Context, e *entities.Entity)
}

const EventCommitted string = "committed"

type Notification struct {
	ID         string              `json:"id"`
	Type       string              `json:"type"`
	Event      string              `json:"event"`
	NotifiedAt string              `json:"notifiedAt"`
	Data       []entities.Snapshot `json:"data"`
}

func NewNotification(event string, snapshots ...entities.Snapshot) *Notification {
	return &Notification{
		ID:         fmt.Sprintf("urn:uuid:%s", uuid.New().String()),
		Type:       "Notification",
		Event:      event,
		NotifiedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Data:       snapshots,
	}
}

var tracer = otel.Tracer("parse-relay/notifier")

type action func()

type notifier struct {
	started  bool
	endpoint string

	httpClient http.Client
	queue      chan action
}

func NewNotifier(ctx context.Context, endpoint string) (Notifier, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("notification endpoint must not be empty")
	}

	return &notifier{
		endpoint: endpoint,
		httpClient: http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		},
		queue: make(chan action, 32),
	}, nil
}

func (n *notifier) Start() error {
	if n.started {
		return fmt.Errorf("already started")
	}

	n.started = true

	go n.run()

	return nil
}

func (n *notifier) Stop() error {
	if n.started {
		resultChan := make(chan bool)

		n.queue <- func() {
			close(n.queue)
			resultChan <- true
		}

		// wait until everything queued before us has been posted
		<-resultChan
		n.started = false
	}
	return nil
}

// EntityCommitted queues a notification holding the entity as it looks right now
func (n *notifier) EntityCommitted(ctx context.Context, e *entities.Entity) {
	if !n.started {
		return
	}

	var err error

	logger := logging.GetFromContext(ctx)
	notification := NewNotification(EventCommitted, e.Snapshot())

	ctx, span := tracer.Start(
		tracing.ExtractHeaders(context.Background(), tracing.InjectHeaders(ctx)),
		"post",
	)

	n.queue <- func() {
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		err = n.post(ctx, notification)
		if err != nil {
			logger.Error("failed to post notification", "entity", e.Reference().String(), "err", err.Error())
		}
	}
}

func (n *notifier) post(ctx context.Context, notification *Notification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshalling error (%w)", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("unable to create new request (%w)", err)
	}

	req.Header.Add("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request (%w)", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("notification endpoint responded with status code %d", resp.StatusCode)
	}

	return nil
}

func (n *notifier) run() {
	for action := range n.queue {
		if action == nil {
			return
		}

		action()
	}
}
