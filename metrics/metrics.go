package metrics

import (
	"context"
	"time"
)

// Metrics represents the current state of the router.
type Metrics struct {
	// StatusCounts maps status name to count of events in that status
	StatusCounts map[string]int64 `json:"status_counts"`

	// Throughput represents events that reached a terminal state per time window
	Throughput ThroughputMetrics `json:"throughput"`

	// InFlight is the number of events this instance is routing right now
	InFlight int64 `json:"in_flight"`

	// Instances lists the router instances sharing realtime notifications, empty without Redis
	Instances []InstanceInfo `json:"instances"`

	// Timestamp when metrics were collected
	Timestamp time.Time `json:"timestamp"`
}

// ThroughputMetrics represents events completed over different time windows.
type ThroughputMetrics struct {
	// LastMinute is events completed in the last 1 minute
	LastMinute int64 `json:"last_minute"`

	// LastFiveMinutes is events completed in the last 5 minutes
	LastFiveMinutes int64 `json:"last_five_minutes"`

	// LastFifteenMinutes is events completed in the last 15 minutes
	LastFifteenMinutes int64 `json:"last_fifteen_minutes"`
}

// InstanceInfo represents information about a live router instance.
type InstanceInfo struct {
	// InstanceID is a unique identifier for the instance
	InstanceID string `json:"instance_id"`

	// InFlight is the number of events the instance was routing at its last heartbeat
	InFlight int64 `json:"in_flight"`

	// LastHeartbeat is the timestamp of the last heartbeat
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// Collector defines the interface for collecting metrics from the router.
type Collector interface {
	// Collect gathers current metrics from the system
	Collect(ctx context.Context) (Metrics, error)

	// GetStatusCounts returns the count of events by status
	GetStatusCounts(ctx context.Context) (map[string]int64, error)

	// GetThroughput returns events completed over time windows
	GetThroughput(ctx context.Context) (ThroughputMetrics, error)

	// GetInFlight returns the events being routed by this instance
	GetInFlight(ctx context.Context) (int64, error)

	// GetActiveInstances returns the live router instances
	GetActiveInstances(ctx context.Context) ([]InstanceInfo, error)
}
