package transport

import "github.com/openhouse/marketing-stats/domain"

// Envelope is the response wrapper for write endpoints and errors.
// Reader endpoints return their stats objects bare.
type Envelope struct {
	Success bool                  `json:"success"`
	Code    string                `json:"code,omitempty"`
	Error   string                `json:"error,omitempty"`
	Details interface{}           `json:"details,omitempty"`
	Stats   *domain.PlatformStats `json:"stats,omitempty"`
}

// Message is the body of informational probes.
type Message struct {
	Message string `json:"message"`
}

// NewSuccess returns a bare success envelope.
func NewSuccess() Envelope {
	return Envelope{Success: true}
}

// NewStatsSuccess returns a success envelope carrying a freshly computed snapshot.
func NewStatsSuccess(stats domain.PlatformStats) Envelope {
	return Envelope{Success: true, Stats: &stats}
}

// NewError returns an error envelope with optional details.
func NewError(code, message string, details interface{}) Envelope {
	return Envelope{
		Success: false,
		Code:    code,
		Error:   message,
		Details: details,
	}
}
