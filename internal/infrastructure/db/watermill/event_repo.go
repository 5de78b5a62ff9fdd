package watermilldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/childchain/exitd/internal/core/domain"
	log "github.com/sirupsen/logrus"
)

type subscriber struct {
	topic   string
	handler func(events []domain.Event)
}

type eventRepository struct {
	publisher message.Publisher
	db        *sql.DB

	subscribers    map[string][]subscriber // topic -> subscribers
	subscriberLock *sync.Mutex
}

// NewWatermillEventRepository publishes domain events with the given publisher.
// When db is set, handlers receive the full history of the saved id read back
// from the watermill postgres tables, otherwise only the saved events.
func NewWatermillEventRepository(publisher message.Publisher, db *sql.DB) domain.EventRepository {
	return &eventRepository{
		publisher:      publisher,
		db:             db,
		subscribers:    make(map[string][]subscriber),
		subscriberLock: &sync.Mutex{},
	}
}

func (e *eventRepository) ClearRegisteredHandlers(topics ...string) {
	e.subscriberLock.Lock()
	defer e.subscriberLock.Unlock()

	if len(topics) == 0 {
		e.subscribers = make(map[string][]subscriber)
		return
	}

	for _, topic := range topics {
		delete(e.subscribers, topic)
	}
}

func (e *eventRepository) Close() {
	//nolint:errcheck
	e.publisher.Close()
}

func (e *eventRepository) RegisterEventsHandler(
	topic string, handler func(events []domain.Event),
) {
	e.subscriberLock.Lock()
	defer e.subscriberLock.Unlock()

	e.subscribers[topic] = append(e.subscribers[topic], subscriber{
		topic:   topic,
		handler: handler,
	})
}

func (e *eventRepository) Save(
	ctx context.Context, topic string, id string, events []domain.Event,
) error {
	if err := e.publish(topic, events); err != nil {
		return err
	}
	if err := e.dispatch(ctx, topic, id, events); err != nil {
		log.WithError(err).Error("failed to dispatch saved events")
	}
	return nil
}

func (e *eventRepository) dispatch(
	ctx context.Context, topic, id string, saved []domain.Event,
) error {
	events := saved
	if e.db != nil {
		var err error
		if events, err = e.getAllEvents(ctx, topic, id); err != nil {
			return err
		}
	}

	if len(events) == 0 {
		return nil
	}

	e.subscriberLock.Lock()
	defer e.subscriberLock.Unlock()
	for _, subscriber := range e.subscribers[topic] {
		go subscriber.handler(events)
	}
	return nil
}

// getAllEvents reads back every message of a topic whose payload carries the given id.
// Watermill stores each topic in its own "watermill_<topic>" table.
func (e *eventRepository) getAllEvents(
	ctx context.Context, topic, id string,
) ([]domain.Event, error) {
	query := fmt.Sprintf(
		`SELECT payload FROM "watermill_%s" WHERE payload->>'Id' = $1 ORDER BY "offset" ASC;`,
		topic,
	)

	rows, err := e.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to query messages for topic %s with id %s: %w", topic, id, err,
		)
	}
	// nolint
	defer rows.Close()

	events := make([]domain.Event, 0)
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan message payload: %w", err)
		}
		event, err := deserializeEvent(record)
		if err != nil {
			log.WithError(err).Warnf("failed to deserialize event: %s", string(record))
			continue
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(
			"error iterating messages for topic %s with id %s: %w", topic, id, err,
		)
	}

	return events, nil
}

func (e *eventRepository) publish(topic string, events []domain.Event) error {
	return e.publisher.Publish(topic, toWatermillMessages(events)...)
}

func toWatermillMessages(events []domain.Event) []*message.Message {
	watermillMessages := make([]*message.Message, 0, len(events))
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}

		watermillMessages = append(
			watermillMessages,
			message.NewMessage(watermill.NewUUID(), payload),
		)
	}

	return watermillMessages
}

func deserializeEvent(buf []byte) (domain.Event, error) {
	var eventType struct {
		Type domain.EventType
	}

	if err := json.Unmarshal(buf, &eventType); err != nil {
		return nil, err
	}

	switch eventType.Type {
	case domain.EventTypeInFlightExitStarted:
		var event = domain.InFlightExitStarted{}
		if err := json.Unmarshal(buf, &event); err == nil {
			return event, nil
		}
	}

	return nil, fmt.Errorf("unknown event")
}
