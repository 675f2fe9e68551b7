// Package redisrelay forwards broadcast events between service instances
// over Redis pub/sub.
package redisrelay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/outager/outager/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "outager:realtime"

// LocalPublisher delivers events to this instance's subscribers.
type LocalPublisher interface {
	Publish(organizationID string, event domain.RealtimeEvent, payload any)
}

// Config contains relay settings.
type Config struct {
	URL            string
	Channel        string
	PublishTimeout time.Duration
}

// Envelope is the message exchanged between instances.
type Envelope struct {
	Origin         string               `json:"origin"`
	OrganizationID string               `json:"organization_id"`
	Event          domain.RealtimeEvent `json:"event"`
	Data           json.RawMessage      `json:"data"`
}

// Relay publishes locally and to every other instance.
type Relay struct {
	local   LocalPublisher
	client  *redis.Client
	channel string
	origin  string
	timeout time.Duration
	logger  *slog.Logger
}

// New connects to Redis and returns a relay wrapping local.
func New(ctx context.Context, local LocalPublisher, cfg Config, logger *slog.Logger) (*Relay, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return newRelay(local, client, cfg, logger), nil
}

func newRelay(local LocalPublisher, client *redis.Client, cfg Config, logger *slog.Logger) *Relay {
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		local:   local,
		client:  client,
		channel: cfg.Channel,
		origin:  uuid.NewString(),
		timeout: cfg.PublishTimeout,
		logger:  logger,
	}
}

// Publish delivers to local subscribers, then forwards to other instances.
// Redis failures are logged only.
func (r *Relay) Publish(organizationID string, event domain.RealtimeEvent, payload any) {
	r.local.Publish(organizationID, event, payload)

	msg, err := r.encode(organizationID, event, payload)
	if err != nil {
		r.logger.Error("failed to encode relay envelope", "event", event, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, msg).Err(); err != nil {
		r.logger.Error("failed to relay realtime event",
			"event", event,
			"organization_id", organizationID,
			"error", err,
		)
	}
}

func (r *Relay) encode(organizationID string, event domain.RealtimeEvent, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		Origin:         r.origin,
		OrganizationID: organizationID,
		Event:          event,
		Data:           data,
	})
}

// Run consumes envelopes from other instances until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.logger.Info("realtime relay subscribed", "channel", r.channel, "origin", r.origin)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("relay subscription closed")
			}
			r.deliver(msg.Payload)
		}
	}
}

func (r *Relay) deliver(raw string) {
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		r.logger.Warn("discarding malformed relay envelope", "error", err)
		return
	}
	if env.Origin == r.origin {
		return
	}
	if env.OrganizationID == "" || env.Event == "" {
		r.logger.Warn("discarding incomplete relay envelope", "origin", env.Origin)
		return
	}
	r.local.Publish(env.OrganizationID, env.Event, env.Data)
}

// Close releases the Redis client.
func (r *Relay) Close() error {
	return r.client.Close()
}
