package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventKind - вид события уведомления.
type EventKind string

const (
	StageDecided     EventKind = "stage_decided"
	WorkflowFinished EventKind = "workflow_finished"
	ContractCreated  EventKind = "contract_created"
	TenderPublished  EventKind = "tender_published"
	BidReceived      EventKind = "bid_received"
	ContractExpiring EventKind = "contract_expiring"
)

// Event - сообщение, которое получают подписчики.
type Event struct {
	ID         string                 `json:"id"`
	Kind       EventKind              `json:"kind"`
	OccurredAt time.Time              `json:"occurredAt"`
	Payload    map[string]interface{} `json:"payload"`
}

// Notifier принимает события. Доставка асинхронная и не гарантирована.
type Notifier interface {
	Notify(ctx context.Context, kind EventKind, payload map[string]interface{})
}

// Publisher доставляет уже сериализованное событие.
type Publisher interface {
	Publish(ctx context.Context, event Event, data []byte) error
}

// Dispatcher публикует события в фоне, не блокируя вызывающего.
// Ошибки публикации только логируются.
type Dispatcher struct {
	publisher Publisher
	log       zerolog.Logger
	timeout   time.Duration
	now       func() time.Time
}

// NewDispatcher создает диспетчер поверх publisher.
func NewDispatcher(publisher Publisher, log zerolog.Logger, timeout time.Duration) *Dispatcher {
	return &Dispatcher{publisher: publisher, log: log, timeout: timeout, now: time.Now}
}

// Notify отправляет событие в отдельной горутине.
func (d *Dispatcher) Notify(ctx context.Context, kind EventKind, payload map[string]interface{}) {
	event := Event{
		ID:         uuid.New().String(),
		Kind:       kind,
		OccurredAt: d.now().UTC(),
		Payload:    payload,
	}
	data, err := json.Marshal(event)
	if err != nil {
		d.log.Warn().Err(err).Str("kind", string(kind)).Msg("notification: failed to marshal event")
		return
	}

	// Контекст запроса отменяется сразу после ответа, поэтому публикация получает свой.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	go func() {
		defer cancel()
		if err := d.publisher.Publish(pubCtx, event, data); err != nil {
			d.log.Warn().Err(err).
				Str("kind", string(kind)).
				Str("event_id", event.ID).
				Msg("notification: failed to publish event (non-fatal)")
			return
		}
		d.log.Debug().Str("kind", string(kind)).Str("event_id", event.ID).Msg("notification: event published")
	}()
}

// LogPublisher пишет события в лог. Используется, когда брокер не настроен.
type LogPublisher struct {
	log zerolog.Logger
}

// NewLogPublisher создает LogPublisher.
func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

// Publish записывает событие в лог.
func (p *LogPublisher) Publish(_ context.Context, event Event, data []byte) error {
	p.log.Info().
		Str("kind", string(event.Kind)).
		Str("event_id", event.ID).
		RawJSON("event", data).
		Msg("notification")
	return nil
}
