package transport

// TrackEventRequest is the ingestion body. Unknown fields are rejected.
type TrackEventRequest struct {
	Type          string  `json:"type"`
	DevelopmentID *string `json:"development_id"`
	UnitID        *string `json:"unit_id"`
}
