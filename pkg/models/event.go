package models

import "time"

// Event types emitted on the user events topic.
const (
	EventUserCreated        = "user_created"
	EventUserDetailsCreated = "user_details_created"
)

// Event is a backend notification as served by the events endpoint.
type Event struct {
	Type      string    `json:"event_type"`
	UserID    int64     `json:"user_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notification is an event rendered for display.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// Message is a payload published to a topic.
type Message struct {
	Topic   string         `json:"topic"`
	Message map[string]any `json:"message"`
	Key     *string        `json:"key"`
}

// SendResult is the backend acknowledgement of a published message.
type SendResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Health reports broker availability.
type Health struct {
	Status      string `json:"status"`
	Broker      string `json:"broker,omitempty"`
	TopicsCount int    `json:"topics_count,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Healthy reports whether the broker answered.
func (h Health) Healthy() bool {
	return h.Status == "healthy"
}
