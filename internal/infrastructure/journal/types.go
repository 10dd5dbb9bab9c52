package journal

import (
	"time"

	"github.com/google/uuid"

	"github.com/openhouse/marketing-stats/domain"
)

// Entry is an event that could not reach the event log and awaits reconciliation.
type Entry struct {
	ID        string       `json:"id"`
	Event     domain.Event `json:"event"`
	Reason    string       `json:"reason"`
	Retries   int          `json:"retries"`
	Timestamp time.Time    `json:"timestamp"`

	bucketKey []byte
}

func (e *Entry) normalize() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
}
