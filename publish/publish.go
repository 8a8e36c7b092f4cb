// Package publish streams readings and asset documents to Redis, so data
// collection living elsewhere on the bench network can subscribe to
// acquisitions as they happen.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ee-meas/instrgraph/signal"
)

// Publisher fans readings out over Redis pub/sub and keeps a capped
// history list per device for late joiners.
type Publisher struct {
	rdb     *redis.Client
	prefix  string
	history int64
}

// New connects a publisher to the Redis at addr.  Keys and channels are
// namespaced under prefix; each device keeps the last history readings.
func New(addr, prefix string, history int64) *Publisher {
	return &Publisher{
		rdb:     redis.NewClient(&redis.Options{Addr: addr}),
		prefix:  prefix,
		history: history,
	}
}

// Ping verifies the connection.
func (p *Publisher) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

// Close releases the client.
func (p *Publisher) Close() error {
	return p.rdb.Close()
}

type readingEvent struct {
	Device   string                 `json:"device"`
	Time     float64                `json:"time"`
	Readings map[string]interface{} `json:"readings"`
}

func (p *Publisher) key(kind, device string) string {
	return fmt.Sprintf("%s:%s:%s", p.prefix, kind, device)
}

// PublishReadings sends one reading map for device and appends it to the
// device's history list, trimmed to the cap.
func (p *Publisher) PublishReadings(ctx context.Context, device string, readings map[string]signal.Reading) error {
	ev := readingEvent{
		Device:   device,
		Time:     float64(time.Now().UnixNano()) / 1e9,
		Readings: make(map[string]interface{}, len(readings)),
	}
	for k, r := range readings {
		ev.Readings[k] = r.Value
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	key := p.key("readings", device)
	pipe := p.rdb.TxPipeline()
	pipe.Publish(ctx, key, payload)
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, p.history-1)
	_, err = pipe.Exec(ctx)
	return err
}

// PublishAssetDocs sends resource and datum documents for device.
func (p *Publisher) PublishAssetDocs(ctx context.Context, device string, docs []signal.AssetDoc) error {
	key := p.key("assets", device)
	for _, d := range docs {
		payload, err := json.Marshal(map[string]interface{}{"name": d.Name, "doc": d.Doc})
		if err != nil {
			return err
		}
		pipe := p.rdb.TxPipeline()
		pipe.Publish(ctx, key, payload)
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, p.history-1)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
