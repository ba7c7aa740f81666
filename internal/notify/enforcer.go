package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ChannelEnforcement carries mute apply/remove commands to the platform
// gateway, which holds the actual chat-platform credentials.
const ChannelEnforcement = "moderation:enforcement"

// EnforcementCommand is one apply or remove instruction for the gateway.
type EnforcementCommand struct {
	Op              string `json:"op"`
	GuildID         string `json:"guild_id"`
	UserID          string `json:"user_id"`
	DurationSeconds int64  `json:"duration_seconds,omitempty"`
}

// RedisEnforcer relays restriction commands over Redis pub/sub. The gateway
// applies its own timeout on top, so a command the gateway never sees is
// eventually corrected by the platform's native expiry.
type RedisEnforcer struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisEnforcer(client *redis.Client, logger *zap.Logger) *RedisEnforcer {
	return &RedisEnforcer{client: client, logger: logger}
}

func (e *RedisEnforcer) Apply(ctx context.Context, guildID, userID string, duration time.Duration) error {
	return e.publish(ctx, EnforcementCommand{
		Op:              "apply",
		GuildID:         guildID,
		UserID:          userID,
		DurationSeconds: int64(duration.Seconds()),
	})
}

func (e *RedisEnforcer) Remove(ctx context.Context, guildID, userID string) error {
	return e.publish(ctx, EnforcementCommand{
		Op:      "remove",
		GuildID: guildID,
		UserID:  userID,
	})
}

func (e *RedisEnforcer) publish(ctx context.Context, cmd EnforcementCommand) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to encode enforcement command: %w", err)
	}
	if err := e.client.Publish(ctx, ChannelEnforcement, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish enforcement command: %w", err)
	}
	return nil
}

// LogEnforcer is the fallback used without Redis. Restrictions are recorded
// in the store but never reach a platform.
type LogEnforcer struct {
	logger *zap.Logger
}

func NewLogEnforcer(logger *zap.Logger) *LogEnforcer {
	return &LogEnforcer{logger: logger}
}

func (e *LogEnforcer) Apply(_ context.Context, guildID, userID string, duration time.Duration) error {
	e.logger.Info("enforcement apply",
		zap.String("guild_id", guildID),
		zap.String("user_id", userID),
		zap.Duration("duration", duration),
	)
	return nil
}

func (e *LogEnforcer) Remove(_ context.Context, guildID, userID string) error {
	e.logger.Info("enforcement remove",
		zap.String("guild_id", guildID),
		zap.String("user_id", userID),
	)
	return nil
}
