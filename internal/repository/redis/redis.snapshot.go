// FilePath: internal/repository/redis/redis.snapshot.go
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/config"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/models"
	goredis "github.com/redis/go-redis/v9"
	nuts "github.com/vaudience/go-nuts"
)

// SnapshotRepo mirrors the live snapshot into Redis and announces every
// change on a pub/sub channel.
type SnapshotRepo struct {
	client *goredis.Client
	keys   keySpace
	ttl    time.Duration
}

type keySpace struct {
	prefix string
}

func (k keySpace) reading(feed models.FeedKind) string {
	return fmt.Sprintf("%s:sensor:%s", k.prefix, feed)
}

func (k keySpace) tally() string {
	return k.prefix + ":feedings:today"
}

func (k keySpace) updates() string {
	return k.prefix + ":updates"
}

// update is the pub/sub message body.
type update struct {
	Kind    string               `json:"kind"`
	Reading *models.SensorReading `json:"reading,omitempty"`
	Tally   *models.FeedingTally  `json:"tally,omitempty"`
}

func NewSnapshotRepository(cfg config.RedisConfig) *SnapshotRepo {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	nuts.L.Infof("[RedisMirror] Mirroring snapshot to %s (prefix %q)", cfg.Addr(), cfg.KeyPrefix)
	return &SnapshotRepo{client: client, keys: keySpace{prefix: cfg.KeyPrefix}, ttl: cfg.TTL}
}

func (r *SnapshotRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *SnapshotRepo) MirrorReading(ctx context.Context, reading models.SensorReading) error {
	value, msg, err := encodeReading(reading)
	if err != nil {
		return err
	}
	return r.write(ctx, r.keys.reading(reading.Feed), value, msg)
}

func (r *SnapshotRepo) MirrorTally(ctx context.Context, tally models.FeedingTally) error {
	value, msg, err := encodeTally(tally)
	if err != nil {
		return err
	}
	return r.write(ctx, r.keys.tally(), value, msg)
}

func (r *SnapshotRepo) write(ctx context.Context, key string, value, msg []byte) error {
	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, key, value, r.ttl)
		pipe.Publish(ctx, r.keys.updates(), msg)
		return nil
	})
	if err != nil {
		return fmt.Errorf("mirror %s: %w", key, err)
	}
	return nil
}

func (r *SnapshotRepo) Close() error {
	return r.client.Close()
}

func encodeReading(reading models.SensorReading) (value, msg []byte, err error) {
	if value, err = json.Marshal(reading); err != nil {
		return nil, nil, err
	}
	msg, err = json.Marshal(update{Kind: "reading", Reading: &reading})
	return value, msg, err
}

func encodeTally(tally models.FeedingTally) (value, msg []byte, err error) {
	if value, err = json.Marshal(tally); err != nil {
		return nil, nil, err
	}
	msg, err = json.Marshal(update{Kind: "tally", Tally: &tally})
	return value, msg, err
}
