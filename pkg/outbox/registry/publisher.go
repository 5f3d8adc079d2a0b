package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/angelmondragon/eventtix-backend/pkg/config"
	"github.com/angelmondragon/eventtix-backend/pkg/db/models"
	"github.com/angelmondragon/eventtix-backend/pkg/enums"
	"github.com/angelmondragon/eventtix-backend/pkg/outbox"
	"github.com/angelmondragon/eventtix-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its table/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.DomainEventType
	Table          enums.Table
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding a domain_events row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.DomainEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry builds the registry with the configured topic names.
// Order and payment events go to the orders topic when one is configured,
// everything else to the domain events topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	domainTopic := strings.TrimSpace(cfg.DomainEventsTopic)
	if domainTopic == "" {
		return nil, fmt.Errorf("domain events topic is required")
	}
	ordersTopic := strings.TrimSpace(cfg.OrdersTopic)
	if ordersTopic == "" {
		ordersTopic = domainTopic
	}

	reg := &EventRegistry{entries: make(map[enums.DomainEventType]EventDescriptor)}
	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.DomainEventOrderCreated,
			Table:          enums.TableOrders,
			PayloadFactory: func() interface{} { return &payloads.OrderCreated{} },
		},
		{
			EventType:      enums.DomainEventOrderUpdated,
			Table:          enums.TableOrders,
			PayloadFactory: func() interface{} { return &payloads.OrderUpdated{} },
		},
		{
			EventType:      enums.DomainEventOrderStatusUpdated,
			Table:          enums.TableOrders,
			PayloadFactory: func() interface{} { return &payloads.OrderStatusUpdated{} },
		},
		{
			EventType:      enums.DomainEventOrderCompleted,
			Table:          enums.TableOrders,
			PayloadFactory: func() interface{} { return &payloads.OrderCompleted{} },
		},
		{
			EventType:      enums.DomainEventOrderBehalfOfUserChanged,
			Table:          enums.TableOrders,
			PayloadFactory: func() interface{} { return &payloads.OrderBehalfOfUserChanged{} },
		},
		{
			EventType:      enums.DomainEventPaymentCreated,
			Table:          enums.TableOrders,
			PayloadFactory: func() interface{} { return &payloads.PaymentCreated{} },
		},
		{
			EventType:      enums.DomainEventPaymentRefund,
			Table:          enums.TableOrders,
			PayloadFactory: func() interface{} { return &payloads.PaymentRefund{} },
		},
	} {
		desc.Topic = ordersTopic
		reg.register(desc)
	}
	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.DomainEventTicketInstancePurchased,
			Table:          enums.TableTicketInstances,
			PayloadFactory: func() interface{} { return &payloads.TicketInstancePurchased{} },
		},
		{
			EventType:      enums.DomainEventTicketInstanceReleased,
			Table:          enums.TableTicketInstances,
			PayloadFactory: func() interface{} { return &payloads.TicketInstanceReleased{} },
		},
		{
			EventType:      enums.DomainEventTicketInstanceRedeemed,
			Table:          enums.TableTicketInstances,
			PayloadFactory: func() interface{} { return &payloads.TicketInstanceRedeemed{} },
		},
		{
			EventType:      enums.DomainEventTicketInstanceNullified,
			Table:          enums.TableTicketInstances,
			PayloadFactory: func() interface{} { return &payloads.TicketInstanceNullified{} },
		},
	} {
		desc.Topic = domainTopic
		reg.register(desc)
	}

	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.DomainEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.Table != event.MainTable {
		return nil, NewNonRetryableError(fmt.Errorf("table mismatch: expected %s got %s", desc.Table, event.MainTable))
	}
	if event.MainID == nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing main_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.EventData, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
