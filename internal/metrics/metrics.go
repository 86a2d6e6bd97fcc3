// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync Push Metrics
	SyncPushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wardbook_sync_push_duration_seconds",
			Help:    "Duration of record pushes to the remote store",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	SyncRecordsPushed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wardbook_sync_records_pushed_total",
			Help: "Total number of records written to the remote store",
		},
	)

	SyncPushErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wardbook_sync_push_errors_total",
			Help: "Total number of failed pushes",
		},
		[]string{"error_type"}, // remote, breaker_open, engine_closed, context, other
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wardbook_sync_last_success_timestamp",
			Help: "Unix timestamp of the last successful push",
		},
	)

	SyncPushSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wardbook_sync_push_skipped_total",
			Help: "Pushes skipped without contacting the remote store",
		},
		[]string{"reason"}, // unavailable, unchanged
	)

	SyncBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wardbook_sync_batch_size",
			Help:    "Number of documents per batch commit",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 200, 400},
		},
	)

	// Merge Metrics
	SyncConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wardbook_sync_conflicts_total",
			Help: "Primary documents rejected because a newer copy was already merged",
		},
	)

	MergedRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wardbook_sync_merged_records",
			Help: "Number of records in the latest merged snapshot",
		},
	)

	ValidationDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wardbook_validation_dropped_total",
			Help: "Entries dropped by validation, by source",
		},
		[]string{"source"},
	)

	// Local Store Metrics
	LocalSaveFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wardbook_local_save_failures_total",
			Help: "Failed local store writes",
		},
		[]string{"key", "reason"}, // reason: serialize, quota, backend
	)

	// Persistence Metrics
	PersistenceStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wardbook_persistence_status",
			Help: "1 for the current persistence status, 0 otherwise",
		},
		[]string{"status"},
	)

	PersistenceCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wardbook_persistence_cycles_total",
			Help: "Debounced persistence cycles by outcome",
		},
		[]string{"outcome"}, // synced, idle, error
	)

	PersistenceCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wardbook_persistence_cycle_duration_seconds",
			Help:    "Duration of a persistence cycle, local save plus push",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Remote Store Metrics
	RemoteOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wardbook_remote_operation_duration_seconds",
			Help:    "Duration of remote store operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	RemoteOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wardbook_remote_operation_errors_total",
			Help: "Failed remote store operations",
		},
		[]string{"operation"},
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wardbook_events_published_total",
			Help: "Events published on the internal bus",
		},
		[]string{"topic", "result"},
	)

	// Backup Metrics
	BackupArchives = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wardbook_backup_archives_total",
			Help: "Backup archive attempts by result",
		},
		[]string{"result"},
	)

	BackupLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wardbook_backup_last_success_timestamp",
			Help: "Unix timestamp of the last successful backup archive",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wardbook_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wardbook_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wardbook_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wardbook_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wardbook_websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wardbook_websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wardbook_websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wardbook_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wardbook_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: success, failure, rejected
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wardbook_circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wardbook_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// persistenceStatuses lists every value SetPersistenceStatus accepts.
var persistenceStatuses = []string{"idle", "saving", "synced", "error"}

// RecordPush records one Engine.Push call that reached the remote store.
func RecordPush(duration time.Duration, recordsPushed int, err error) {
	SyncPushDuration.Observe(duration.Seconds())
	SyncRecordsPushed.Add(float64(recordsPushed))
	if err != nil {
		SyncPushErrors.WithLabelValues(pushErrorType(err)).Inc()
		return
	}
	SyncLastSuccess.Set(float64(time.Now().Unix()))
}

func pushErrorType(err error) string {
	msg := err.Error()
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "context"
	case strings.Contains(msg, "sync engine is closed"):
		return "engine_closed"
	case strings.Contains(msg, "circuit breaker is open"), strings.Contains(msg, "too many requests"):
		return "breaker_open"
	case strings.Contains(msg, "encode record"):
		return "other"
	default:
		return "remote"
	}
}

// RecordPushSkipped counts a push that returned without remote I/O.
func RecordPushSkipped(reason string) {
	SyncPushSkipped.WithLabelValues(reason).Inc()
}

// ObserveBatchSize records the size of one batch commit.
func ObserveBatchSize(n int) {
	SyncBatchSize.Observe(float64(n))
}

// RecordConflict counts one rejected primary document.
func RecordConflict() {
	SyncConflicts.Inc()
}

// SetMergedRecords records the size of the latest merged set.
func SetMergedRecords(n int) {
	MergedRecords.Set(float64(n))
}

// RecordValidationDrops counts entries dropped from one batch.
func RecordValidationDrops(source string, dropped int) {
	if dropped <= 0 {
		return
	}
	ValidationDropped.WithLabelValues(source).Add(float64(dropped))
}

// RecordLocalSaveFailure counts a failed local write.
func RecordLocalSaveFailure(key, reason string) {
	LocalSaveFailures.WithLabelValues(key, reason).Inc()
}

// SetPersistenceStatus marks status as current.
func SetPersistenceStatus(status string) {
	for _, s := range persistenceStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		PersistenceStatus.WithLabelValues(s).Set(v)
	}
}

// RecordPersistenceCycle records the outcome and duration of one cycle.
func RecordPersistenceCycle(outcome string, duration time.Duration) {
	PersistenceCycles.WithLabelValues(outcome).Inc()
	PersistenceCycleDuration.Observe(duration.Seconds())
}

// RecordRemoteOperation records one remote store call.
func RecordRemoteOperation(operation string, duration time.Duration, err error) {
	RemoteOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		RemoteOperationErrors.WithLabelValues(operation).Inc()
	}
}

// RecordEventPublished records one publish on the event bus.
func RecordEventPublished(topic string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	EventsPublished.WithLabelValues(topic, result).Inc()
}

// RecordBackup records one archive attempt.
func RecordBackup(err error) {
	if err != nil {
		BackupArchives.WithLabelValues("error").Inc()
		return
	}
	BackupArchives.WithLabelValues("success").Inc()
	BackupLastSuccess.Set(float64(time.Now().Unix()))
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
