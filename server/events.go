package server

import "encoding/json"

// Inbound event types.
const (
	EventJoin           = "join"
	EventLocationUpdate = "location-update"
	EventSendMessage    = "send-message"
)

// Outbound event types.
const (
	EventJoined         = "joined"
	EventNearbyUsers    = "nearby-users"
	EventZoneChanged    = "zone-changed"
	EventNewMessage     = "new-message"
	EventRecentMessages = "recent-messages"
	EventUserLeft       = "user-left"
	EventError          = "error"
)

// Envelope is the wire framing in both directions: one JSON object per
// websocket message.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent wraps a payload into an outbound envelope. Payloads are our own
// types so a marshal failure is a programming error; we send an empty data
// field rather than nothing at all.
func NewEvent(kind string, payload interface{}) *Envelope {
	b, err := json.Marshal(payload)
	if err != nil {
		return &Envelope{Type: kind}
	}
	return &Envelope{Type: kind, Data: b}
}

// NewErrorEvent wraps an error into a protocol error event.
func NewErrorEvent(err error) *Envelope {
	return NewEvent(EventError, &ErrorPayload{Message: err.Error()})
}

type JoinRequest struct {
	Nickname string `json:"nickname"`
}

type LocationUpdateRequest struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Speed float64 `json:"speed"`
}

type SendMessageRequest struct {
	Message string `json:"message"`
}

type JoinedPayload struct {
	ConnectionID string `json:"connectionId"`
}

// NearbyUser is the public projection of a session. Internal fields like
// last-seen never leave the core.
type NearbyUser struct {
	ConnectionID string  `json:"connectionId"`
	Nickname     string  `json:"nickname"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	Speed        float64 `json:"speed"`
}

type ZoneChangedPayload struct {
	ZoneKey string `json:"zoneKey"`
}

type UserLeftPayload struct {
	ConnectionID string `json:"connectionId"`
	Nickname     string `json:"nickname"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Message is an immutable routed message record. Metadata is only ever set
// on history copies, never on the live broadcast.
type Message struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Nickname  string    `json:"nickname"`
	Message   string    `json:"message"`
	Timestamp int64     `json:"timestamp"`
	ZoneKey   string    `json:"zoneKey"`
	Metadata  *Metadata `json:"metadata,omitempty"`
}
