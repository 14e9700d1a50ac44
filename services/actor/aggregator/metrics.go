// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package aggregator

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level meter for resolution metrics.
var meter = otel.Meter("actorcore.aggregator")

var (
	resolutionsTotal   metric.Int64Counter
	resolutionLatency  metric.Float64Histogram
	resolutionsAborted metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		resolutionsTotal, err = meter.Int64Counter(
			"actor_resolutions_total",
			metric.WithDescription("Total number of actor resolutions"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		resolutionLatency, err = meter.Float64Histogram(
			"actor_resolution_duration_seconds",
			metric.WithDescription("Duration of actor resolutions"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		resolutionsAborted, err = meter.Int64Counter(
			"actor_resolutions_aborted_total",
			metric.WithDescription("Total number of aborted actor resolutions"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordResolution records a completed resolution.
func recordResolution(ctx context.Context, duration time.Duration, cacheHit bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("cache_hit", cacheHit))
	resolutionsTotal.Add(ctx, 1, attrs)
	resolutionLatency.Record(ctx, duration.Seconds(), attrs)
}

// recordAbort records an aborted resolution with the failing state.
func recordAbort(ctx context.Context, state string) {
	if err := initMetrics(); err != nil {
		return
	}
	resolutionsAborted.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}
