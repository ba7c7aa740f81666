package models

import "time"

// Pub/sub event names carried over Redis and fanned out to dashboard
// websocket clients.
const (
	EventModLog       = "modlog.entry"
	EventNotification = "notification"
	EventMessageNew   = "message.new"
)

// ModLogEvent mirrors a warning_history row for live consumers.
type ModLogEvent struct {
	Event   string              `json:"event"`
	GuildID string              `json:"guild_id"`
	Entry   WarningHistoryEntry `json:"entry"`
}

// Notification is a best-effort message for a single user, delivered by the
// excluded chat-platform binding (DM in the original bot).
type Notification struct {
	Event     string    `json:"event"`
	GuildID   string    `json:"guild_id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// InboundMessage is a chat message event published by the platform gateway
// and consumed by the AI intake worker.
type InboundMessage struct {
	Event     string `json:"event"`
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
	Content   string `json:"content"`
	Bot       bool   `json:"bot"`
}
