package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/isoura4/isrobot-backend/internal/models"
)

// Pub/sub channel names shared by the publisher, the websocket hub and the
// message intake worker.
const (
	ChannelNotifications = "moderation:notifications"
	ChannelModLog        = "moderation:modlog"
	ChannelMessages      = "moderation:messages"
)

// RedisNotifier publishes user notifications and moderation-log events over
// Redis pub/sub. The chat-platform gateway and the dashboard hub consume
// them; subscribers being offline just means the event is dropped.
type RedisNotifier struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisNotifier(client *redis.Client, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, logger: logger}
}

// Notify publishes a best-effort notification for a single user.
func (n *RedisNotifier) Notify(ctx context.Context, guildID, userID, message string) error {
	payload, err := json.Marshal(models.Notification{
		Event:     models.EventNotification,
		GuildID:   guildID,
		UserID:    userID,
		Message:   message,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := n.client.Publish(ctx, ChannelNotifications, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// PublishModLog pushes a moderation-log event to live consumers.
func (n *RedisNotifier) PublishModLog(ctx context.Context, event models.ModLogEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode modlog event: %w", err)
	}
	if err := n.client.Publish(ctx, ChannelModLog, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish modlog event: %w", err)
	}
	return nil
}

// SubscribeModLog delivers moderation-log and notification events to fn
// until ctx is cancelled. Malformed payloads are logged and skipped.
func (n *RedisNotifier) SubscribeModLog(ctx context.Context, fn func(channel string, payload []byte)) {
	sub := n.client.Subscribe(ctx, ChannelModLog, ChannelNotifications)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fn(msg.Channel, []byte(msg.Payload))
		}
	}
}

// SubscribeMessages delivers inbound chat messages to fn until ctx is
// cancelled.
func (n *RedisNotifier) SubscribeMessages(ctx context.Context, fn func(msg models.InboundMessage)) {
	sub := n.client.Subscribe(ctx, ChannelMessages)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-ch:
			if !ok {
				return
			}
			var msg models.InboundMessage
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				n.logger.Warn("dropping malformed inbound message", zap.Error(err))
				continue
			}
			fn(msg)
		}
	}
}

// LogNotifier is the fallback Notifier used when Redis is unavailable. It
// writes events to the log and nothing else.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, guildID, userID, message string) error {
	n.logger.Info("notification",
		zap.String("guild_id", guildID),
		zap.String("user_id", userID),
		zap.String("message", message),
	)
	return nil
}

func (n *LogNotifier) PublishModLog(_ context.Context, event models.ModLogEvent) error {
	n.logger.Info("modlog event",
		zap.String("guild_id", event.GuildID),
		zap.String("action", event.Entry.Action),
	)
	return nil
}
