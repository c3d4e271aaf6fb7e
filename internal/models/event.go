package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventNotification EventKind = "notification"
	EventActivity     EventKind = "activity"
)

// Event is an outbox entry. It is written in the same transaction as the
// mutation that caused it and delivered later by the dispatcher. The record
// it materialises reuses the event id, so delivering twice is harmless.
type Event struct {
	ID           uuid.UUID
	Kind         EventKind
	Notification *Notification
	Activity     *Activity
	Attempts     int
	LastError    string
	CreatedAt    time.Time
}

func NewNotificationEvent(n Notification) Event {
	id := uuid.New()
	n.ID = id
	if n.Priority == "" {
		n.Priority = PriorityNormal
	}
	return Event{ID: id, Kind: EventNotification, Notification: &n}
}

func NewActivityEvent(a Activity) Event {
	id := uuid.New()
	a.ID = id
	return Event{ID: id, Kind: EventActivity, Activity: &a}
}

// Payload encodes the record carried by the event.
func (e Event) Payload() ([]byte, error) {
	switch e.Kind {
	case EventNotification:
		return json.Marshal(e.Notification)
	case EventActivity:
		return json.Marshal(e.Activity)
	}
	return nil, fmt.Errorf("unknown event kind %q", e.Kind)
}

// DecodeEvent rebuilds an event from its stored kind and payload.
func DecodeEvent(id uuid.UUID, kind EventKind, payload []byte) (Event, error) {
	e := Event{ID: id, Kind: kind}
	switch kind {
	case EventNotification:
		e.Notification = &Notification{}
		if err := json.Unmarshal(payload, e.Notification); err != nil {
			return e, fmt.Errorf("decode notification event: %w", err)
		}
		e.Notification.ID = id
	case EventActivity:
		e.Activity = &Activity{}
		if err := json.Unmarshal(payload, e.Activity); err != nil {
			return e, fmt.Errorf("decode activity event: %w", err)
		}
		e.Activity.ID = id
	default:
		return e, fmt.Errorf("unknown event kind %q", kind)
	}
	return e, nil
}

// Recipient is the user a notification event is addressed to, or uuid.Nil.
func (e Event) Recipient() uuid.UUID {
	if e.Notification != nil {
		return e.Notification.UserID
	}
	return uuid.Nil
}
