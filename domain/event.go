package domain

import (
	"strings"
	"time"
)

// EventType enumerates the engagement facts the marketing site reports.
type EventType string

const (
	EventSession     EventType = "session"
	EventChat        EventType = "chat"
	EventPDFDownload EventType = "pdf_download"
)

// EventTypes lists every accepted event type.
var EventTypes = []EventType{EventSession, EventChat, EventPDFDownload}

// ParseEventType validates a raw type value against the closed enumeration.
func ParseEventType(raw string) (EventType, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", ErrMissingEventType
	}
	for _, t := range EventTypes {
		if string(t) == value {
			return t, nil
		}
	}
	return "", ErrInvalidEventType
}

// Event is an immutable engagement fact. CreatedAt is assigned by the store.
type Event struct {
	Type          EventType `json:"type"`
	DevelopmentID *string   `json:"development_id"`
	UnitID        *string   `json:"unit_id"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

// NewEvent validates the type and normalizes empty identifiers to nil.
func NewEvent(rawType string, developmentID, unitID *string) (Event, error) {
	eventType, err := ParseEventType(rawType)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:          eventType,
		DevelopmentID: normalizeID(developmentID),
		UnitID:        normalizeID(unitID),
	}, nil
}

func normalizeID(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
