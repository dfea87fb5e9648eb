package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/martincervantes/procurehub-backend/internal/snapshots"
	"github.com/martincervantes/procurehub-backend/pkg/logger"
	"github.com/martincervantes/procurehub-backend/pkg/redis"
)

// changeFeedListener re-warms snapshots when a mutation elsewhere publishes
// an invalidation on the changes channel. The cron refresh job remains the
// backstop for messages this listener misses.
type changeFeedListener struct {
	client    *redis.Client
	snapshots *snapshots.Service
	logg      *logger.Logger
}

func newChangeFeedListener(client *redis.Client, snapshotService *snapshots.Service, logg *logger.Logger) (*changeFeedListener, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if snapshotService == nil {
		return nil, fmt.Errorf("snapshot service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &changeFeedListener{client: client, snapshots: snapshotService, logg: logg}, nil
}

// Run blocks consuming the changes channel until the context is canceled.
func (l *changeFeedListener) Run(ctx context.Context) error {
	sub, err := l.client.Subscribe(ctx, redis.ChangesChannel)
	if err != nil {
		return fmt.Errorf("subscribe changes channel: %w", err)
	}
	defer sub.Close()

	l.logg.Info(l.logg.WithField(ctx, "channel", redis.ChangesChannel), "change feed listener started")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("changes channel closed")
			}
			l.handle(ctx, msg.Payload)
		}
	}
}

func (l *changeFeedListener) handle(ctx context.Context, payload string) {
	var change snapshots.ChangeMessage
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		l.logg.Warn(l.logg.WithField(ctx, "payload", payload), "unreadable change message")
		return
	}

	kindCtx := l.logg.WithField(ctx, "kind", change.Kind.String())
	if _, err := l.snapshots.Warm(ctx, change.Kind); err != nil {
		l.logg.Error(kindCtx, "snapshot re-warm failed", err)
		return
	}
	l.logg.Info(kindCtx, "snapshot re-warmed")
}
