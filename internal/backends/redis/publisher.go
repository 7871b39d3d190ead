package redis

import (
	"budgie/internal/types"
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultChannel = "budgie.events"

	recentKeyNameTemplate = "_budgie_events_%s"
	// recentLimit bounds the per tenant list of recent events.
	recentLimit = 100
)

// Publisher implements ports.Publisher with Redis pub/sub. Each event is also pushed onto a capped list
// per tenant which backs ports.EventLog.
type Publisher struct {
	cli     *redis.Client
	channel string
}

func NewPublisher(cli *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{cli: cli, channel: channel}
}

func (p *Publisher) Publish(ctx context.Context, event types.OperationEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return types.Err(types.ErrPublish, err, "marshal event")
	}
	key := getRecentKeyName(event.Tenant)
	_, err = p.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, p.channel, b)
		pipe.LPush(ctx, key, b)
		pipe.LTrim(ctx, key, 0, recentLimit-1)
		return nil
	})
	if err != nil {
		return types.Err(types.ErrPublish, err, "redis channel %s", p.channel)
	}
	return nil
}

// Events returns the latest events of the tenant, newest first. The list holds at most recentLimit.
func (p *Publisher) Events(ctx context.Context, tenant string, limit int) ([]types.OperationEvent, error) {
	if limit <= 0 || limit > recentLimit {
		limit = recentLimit
	}
	vals, err := p.cli.LRange(ctx, getRecentKeyName(tenant), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	events := make([]types.OperationEvent, 0, len(vals))
	for _, v := range vals {
		var e types.OperationEvent
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

func getRecentKeyName(tenant string) string {
	return fmt.Sprintf(recentKeyNameTemplate, tenant)
}
