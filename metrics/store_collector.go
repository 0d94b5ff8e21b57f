package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/marcelsud/webhook-router/webhook"
	"github.com/marcelsud/webhook-router/webhook/redis"
)

// EventStats is the aggregate view the event stores expose
type EventStats interface {
	CountEventsByStatus(ctx context.Context) (map[webhook.Status]int64, error)
	CountCompletedSince(ctx context.Context, since time.Time) (int64, error)
}

// InstanceLister reports live router instances
type InstanceLister interface {
	ActiveInstances(ctx context.Context) ([]redis.InstanceHeartbeat, error)
}

var statuses = []webhook.Status{webhook.Received, webhook.Routed, webhook.Success, webhook.Failed}

// StoreCollector implements the Collector interface over the event store
type StoreCollector struct {
	stats     EventStats
	inFlight  func() int64
	instances InstanceLister
}

// NewStoreCollector creates a collector. inFlight and instances may be nil.
func NewStoreCollector(stats EventStats, inFlight func() int64, instances InstanceLister) *StoreCollector {
	return &StoreCollector{
		stats:     stats,
		inFlight:  inFlight,
		instances: instances,
	}
}

// Collect gathers all metrics
func (c *StoreCollector) Collect(ctx context.Context) (Metrics, error) {
	statusCounts, err := c.GetStatusCounts(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting status counts: %w", err)
	}

	throughput, err := c.GetThroughput(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting throughput: %w", err)
	}

	inFlight, err := c.GetInFlight(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting in flight: %w", err)
	}

	instances, err := c.GetActiveInstances(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting active instances: %w", err)
	}

	return Metrics{
		StatusCounts: statusCounts,
		Throughput:   throughput,
		InFlight:     inFlight,
		Instances:    instances,
		Timestamp:    time.Now(),
	}, nil
}

// GetStatusCounts returns counts of events grouped by status, every status present
func (c *StoreCollector) GetStatusCounts(ctx context.Context) (map[string]int64, error) {
	counts, err := c.stats.CountEventsByStatus(ctx)
	if err != nil {
		return nil, err
	}

	statusCounts := make(map[string]int64, len(statuses))
	for _, s := range statuses {
		statusCounts[s.String()] = counts[s]
	}
	return statusCounts, nil
}

// GetThroughput counts events completed over different time windows
func (c *StoreCollector) GetThroughput(ctx context.Context) (ThroughputMetrics, error) {
	now := time.Now()

	lastMinute, err := c.stats.CountCompletedSince(ctx, now.Add(-1*time.Minute))
	if err != nil {
		return ThroughputMetrics{}, err
	}
	lastFiveMinutes, err := c.stats.CountCompletedSince(ctx, now.Add(-5*time.Minute))
	if err != nil {
		return ThroughputMetrics{}, err
	}
	lastFifteenMinutes, err := c.stats.CountCompletedSince(ctx, now.Add(-15*time.Minute))
	if err != nil {
		return ThroughputMetrics{}, err
	}

	return ThroughputMetrics{
		LastMinute:         lastMinute,
		LastFiveMinutes:    lastFiveMinutes,
		LastFifteenMinutes: lastFifteenMinutes,
	}, nil
}

// GetInFlight returns the number of events routing on this instance
func (c *StoreCollector) GetInFlight(_ context.Context) (int64, error) {
	if c.inFlight == nil {
		return 0, nil
	}
	return c.inFlight(), nil
}

// GetActiveInstances returns the instances with a live heartbeat
func (c *StoreCollector) GetActiveInstances(ctx context.Context) ([]InstanceInfo, error) {
	if c.instances == nil {
		return []InstanceInfo{}, nil
	}

	heartbeats, err := c.instances.ActiveInstances(ctx)
	if err != nil {
		return nil, err
	}

	instances := make([]InstanceInfo, 0, len(heartbeats))
	for _, h := range heartbeats {
		instances = append(instances, InstanceInfo{
			InstanceID:    h.InstanceID,
			InFlight:      h.InFlight,
			LastHeartbeat: h.LastHeartbeat,
		})
	}
	return instances, nil
}

// ServeHTTP writes the collected metrics as JSON
func (c *StoreCollector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m, err := c.Collect(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(m); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
