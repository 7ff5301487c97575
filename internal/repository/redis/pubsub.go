package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kirinyoku/atelier/internal/domain"
	"github.com/redis/go-redis/v9"
)

type ChangesPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewChangesPubSub(rdb *redis.Client) *ChangesPubSub {
	return &ChangesPubSub{
		rdb:     rdb,
		channel: ChannelChanges(),
	}
}

func (p *ChangesPubSub) PublishChange(ctx context.Context, kind domain.ChangeKind, id string) error {
	msg := domain.Change{
		Type:   kind,
		ID:     id,
		TsUnix: time.Now().Unix(),
	}

	b, _ := json.Marshal(msg)

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe delivers every change published by any replica until ctx is done.
func (p *ChangesPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, ch domain.Change)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev domain.Change
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.Type != "" {
				handler(ctx, ev)
			}
		}
	}
}
