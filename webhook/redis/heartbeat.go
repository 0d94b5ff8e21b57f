package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	heartbeatPrefix = "router:heartbeat:"
	heartbeatTTL    = 60 * time.Second
)

// InstanceHeartbeat represents the liveness record of one router instance
type InstanceHeartbeat struct {
	InstanceID    string    `json:"instance_id"`
	InFlight      int64     `json:"in_flight"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// SetHeartbeat stores or refreshes an instance heartbeat.
// The key expires after 60 seconds, instances refresh it every 30.
func (b *Broker) SetHeartbeat(ctx context.Context, instanceID string, inFlight int64) error {
	data, err := json.Marshal(InstanceHeartbeat{
		InstanceID:    instanceID,
		InFlight:      inFlight,
		LastHeartbeat: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshaling heartbeat: %w", err)
	}

	if err := b.client.Set(ctx, heartbeatPrefix+instanceID, data, heartbeatTTL).Err(); err != nil {
		return fmt.Errorf("setting heartbeat: %w", err)
	}
	return nil
}

// ActiveInstances returns every instance whose heartbeat has not expired
func (b *Broker) ActiveInstances(ctx context.Context) ([]InstanceHeartbeat, error) {
	var instances []InstanceHeartbeat

	var cursor uint64
	for {
		keys, nextCursor, err := b.client.Scan(ctx, cursor, heartbeatPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scanning heartbeat keys: %w", err)
		}

		for _, key := range keys {
			data, err := b.client.Get(ctx, key).Result()
			if err == redis.Nil {
				// Key expired between scan and get
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("getting heartbeat: %w", err)
			}

			var heartbeat InstanceHeartbeat
			if err := json.Unmarshal([]byte(data), &heartbeat); err != nil {
				continue
			}
			instances = append(instances, heartbeat)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return instances, nil
}

// RunHeartbeat refreshes the heartbeat every interval until ctx is done
func (b *Broker) RunHeartbeat(ctx context.Context, instanceID string, interval time.Duration, inFlight func() int64) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		_ = b.SetHeartbeat(ctx, instanceID, inFlight())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
