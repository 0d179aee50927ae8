package models

import "time"

// Event kinds accepted by the tracking endpoint.
const (
	EventView       = "view"
	EventConversion = "conversion"
	EventClose      = "close"
)

// KnownEvent reports whether kind is one of the three tracked kinds.
func KnownEvent(kind string) bool {
	switch kind {
	case EventView, EventConversion, EventClose:
		return true
	default:
		return false
	}
}

// TrackRequest is the wire body of POST /api/track-event.
// Email is only honored on conversion events.
type TrackRequest struct {
	PopupID   string `json:"popupId"`
	Event     string `json:"event"`
	SessionID string `json:"sessionId"`
	UserAgent string `json:"userAgent,omitempty"`
	Referrer  string `json:"referrer,omitempty"`
	Email     string `json:"email,omitempty"`
}

// AnalyticsEvent is an append-only popup_analytics row. The timestamp is
// assigned server-side at insert time, never taken from the client.
type AnalyticsEvent struct {
	EventID   string    `json:"eventId"`
	PopupID   string    `json:"popupId"`
	Event     string    `json:"event"`
	SessionID string    `json:"sessionId"`
	UserAgent string    `json:"userAgent,omitempty"`
	Referrer  string    `json:"referrer,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Subscriber is an email captured from a conversion.
type Subscriber struct {
	ID        int64     `json:"id"`
	PopupID   string    `json:"popupId"`
	Email     string    `json:"email"`
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}
