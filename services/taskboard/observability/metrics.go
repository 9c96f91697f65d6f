// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the taskboard service.
//
// # Description
//
// Metrics include:
//   - HTTP request counters and latency histograms (by route, method, status)
//   - Mention delivery outcomes
//   - Participant additions made by mention propagation
//   - Audit entries written, by action
//
// # Integration
//
// Metrics are registered on an injected prometheus.Registerer and exposed
// via the /metrics endpoint.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
// A nil *Metrics is valid and records nothing.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "taskboard"

// MentionOutcome labels the result of one mention propagation attempt.
type MentionOutcome string

const (
	// MentionDelivered means a notification record was written.
	MentionDelivered MentionOutcome = "delivered"

	// MentionUnresolved means the name matched no directory user.
	MentionUnresolved MentionOutcome = "unresolved"

	// MentionFailed means resolution or a write failed.
	MentionFailed MentionOutcome = "failed"
)

// Metrics holds all Prometheus collectors of the service.
//
// # Fields
//
//   - RequestsTotal: HTTP requests by route, method and status code
//   - RequestDurationSeconds: HTTP latency by route and method
//   - MentionsTotal: mention propagation attempts by outcome
//   - ParticipantsAddedTotal: participants appended by mention propagation
//   - AuditEntriesTotal: audit entries written by action
type Metrics struct {
	RequestsTotal          *prometheus.CounterVec
	RequestDurationSeconds *prometheus.HistogramVec
	MentionsTotal          *prometheus.CounterVec
	ParticipantsAddedTotal prometheus.Counter
	AuditEntriesTotal      *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on reg.
//
// # Description
//
// Pass prometheus.NewRegistry() in tests so each test gets isolated
// collectors. Passing nil registers nothing but still returns usable
// collectors.
//
// # Limitations
//
//   - Panics when called twice with the same registerer (duplicate
//     registration).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "status"},
		),

		RequestDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"route", "method"},
		),

		MentionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "mentions_total",
				Help:      "Mention propagation attempts by outcome",
			},
			[]string{"outcome"},
		),

		ParticipantsAddedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "participants_added_total",
				Help:      "Participants appended to tasks by mention propagation",
			},
		),

		AuditEntriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "audit_entries_total",
				Help:      "Audit entries written by action",
			},
			[]string{"action"},
		),
	}
}

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRequest records one completed HTTP request.
func (m *Metrics) RecordRequest(route, method string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.RequestDurationSeconds.WithLabelValues(route, method).Observe(seconds)
}

// RecordMention records one mention propagation attempt.
func (m *Metrics) RecordMention(outcome MentionOutcome) {
	if m == nil {
		return
	}
	m.MentionsTotal.WithLabelValues(string(outcome)).Inc()
}

// RecordParticipantAdded increments the participant counter.
func (m *Metrics) RecordParticipantAdded() {
	if m == nil {
		return
	}
	m.ParticipantsAddedTotal.Inc()
}

// RecordAuditEntry records one audit entry of the given action.
func (m *Metrics) RecordAuditEntry(action string) {
	if m == nil {
		return
	}
	m.AuditEntriesTotal.WithLabelValues(action).Inc()
}
