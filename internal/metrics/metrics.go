// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package metrics tracks the counters, gauges, and latency histogram the
// HTTP surface exposes at GET /metrics, and aggregates them with liveness
// checks into the health snapshot GET /health returns. It is grounded on
// the read-only-snapshot-under-a-lock shape of the teacher's
// internal/service.ServiceManager.List/GetService: a mutex guards mutable
// state, every read returns a detached copy. No metrics client library
// appears anywhere in the retrieval pack, so the counters and histogram
// are implemented directly over sync/atomic and a fixed-bucket slice; see
// DESIGN.md for why no third-party metrics library was adopted.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// durationBucketBoundsMs are the upper bounds (inclusive) of each
// task_duration_ms histogram bucket, in milliseconds. The final bucket is
// implicitly +Inf.
var durationBucketBoundsMs = []int64{100, 500, 1000, 5000, 15000, 60000, 300000}

// Registry holds every counter, gauge, and the duration histogram. All
// fields are updated with atomic operations or under mu; zero value is
// ready to use.
type Registry struct {
	mu sync.Mutex

	agentsActive int64
	agentsBusy   int64

	tasksQueuedPending int64
	tasksRunning       int64
	tasksCompleted     int64
	tasksFailed        int64

	apiRequestsTotal int64

	durationBuckets []int64 // parallel to durationBucketBoundsMs, plus one +Inf bucket
	durationCount   int64
	durationSumMs   int64

	startedAt time.Time
}

// New returns an empty Registry with its start time recorded as the
// process's uptime epoch.
func New() *Registry {
	return &Registry{
		durationBuckets: make([]int64, len(durationBucketBoundsMs)+1),
		startedAt:       time.Now(),
	}
}

// SetAgentsActive records the current count of registered agents.
func (r *Registry) SetAgentsActive(n int) { atomic.StoreInt64(&r.agentsActive, int64(n)) }

// SetAgentsBusy records the current count of busy agents.
func (r *Registry) SetAgentsBusy(n int) { atomic.StoreInt64(&r.agentsBusy, int64(n)) }

// SetTasksQueuedPending records the current count of pending tasks.
func (r *Registry) SetTasksQueuedPending(n int) { atomic.StoreInt64(&r.tasksQueuedPending, int64(n)) }

// SetTasksRunning records the current count of running tasks.
func (r *Registry) SetTasksRunning(n int) { atomic.StoreInt64(&r.tasksRunning, int64(n)) }

// IncTasksCompleted increments the completed-task counter by one.
func (r *Registry) IncTasksCompleted() { atomic.AddInt64(&r.tasksCompleted, 1) }

// IncTasksFailed increments the failed-task counter by one.
func (r *Registry) IncTasksFailed() { atomic.AddInt64(&r.tasksFailed, 1) }

// IncAPIRequests increments the total HTTP request counter by one.
func (r *Registry) IncAPIRequests() { atomic.AddInt64(&r.apiRequestsTotal, 1) }

// ObserveTaskDuration records one completed task's wall-clock duration
// into the task_duration_ms histogram.
func (r *Registry) ObserveTaskDuration(d time.Duration) {
	ms := d.Milliseconds()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durationCount++
	r.durationSumMs += ms
	for i, bound := range durationBucketBoundsMs {
		if ms <= bound {
			r.durationBuckets[i]++
			return
		}
	}
	r.durationBuckets[len(r.durationBuckets)-1]++
}

// HistogramBucket is one (upper bound, count) pair in the
// task_duration_ms histogram. UpperBoundMs is -1 for the +Inf bucket.
type HistogramBucket struct {
	UpperBoundMs int64 `json:"upper_bound_ms"`
	Count        int64 `json:"count"`
}

// Histogram is a point-in-time snapshot of the task_duration_ms
// histogram. Bucket counts are not cumulative: each observation is counted
// only in the first bucket whose upper bound covers it.
type Histogram struct {
	Count   int64             `json:"count"`
	SumMs   int64             `json:"sum_ms"`
	Buckets []HistogramBucket `json:"buckets"`
}

// Snapshot is a detached, JSON-serializable view of every metric.
type Snapshot struct {
	AgentsActive       int64     `json:"agents_active"`
	AgentsBusy         int64     `json:"agents_busy"`
	TasksQueuedPending int64     `json:"tasks_queued_pending"`
	TasksRunning       int64     `json:"tasks_running"`
	TasksCompleted     int64     `json:"tasks_completed"`
	TasksFailed        int64     `json:"tasks_failed"`
	TaskDurationMs     Histogram `json:"task_duration_ms"`
	APIRequestsTotal   int64     `json:"api_requests_total"`
}

// Snapshot returns a consistent, detached copy of all current metrics.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	buckets := make([]HistogramBucket, len(r.durationBuckets))
	for i, count := range r.durationBuckets {
		bound := int64(-1)
		if i < len(durationBucketBoundsMs) {
			bound = durationBucketBoundsMs[i]
		}
		buckets[i] = HistogramBucket{UpperBoundMs: bound, Count: count}
	}
	hist := Histogram{Count: r.durationCount, SumMs: r.durationSumMs, Buckets: buckets}
	r.mu.Unlock()

	return Snapshot{
		AgentsActive:       atomic.LoadInt64(&r.agentsActive),
		AgentsBusy:         atomic.LoadInt64(&r.agentsBusy),
		TasksQueuedPending: atomic.LoadInt64(&r.tasksQueuedPending),
		TasksRunning:       atomic.LoadInt64(&r.tasksRunning),
		TasksCompleted:     atomic.LoadInt64(&r.tasksCompleted),
		TasksFailed:        atomic.LoadInt64(&r.tasksFailed),
		TaskDurationMs:     hist,
		APIRequestsTotal:   atomic.LoadInt64(&r.apiRequestsTotal),
	}
}

// UptimeSeconds returns whole seconds elapsed since the Registry was
// created.
func (r *Registry) UptimeSeconds() int64 {
	return int64(time.Since(r.startedAt).Seconds())
}
