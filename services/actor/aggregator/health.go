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
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/actor-core/services/actor/types"
)

// HealthCheck declares the aggregator operational: the registries must
// validate and the cache must survive a set/get/delete round trip.
func (a *Aggregator) HealthCheck(ctx context.Context) error {
	if err := a.subsystems.Validate(); err != nil {
		return fmt.Errorf("subsystem registry: %w", err)
	}
	if err := a.combiner.Validate(); err != nil {
		return fmt.Errorf("combiner registry: %w", err)
	}
	if err := a.caps.Validate(); err != nil {
		return fmt.Errorf("cap layer registry: %w", err)
	}

	// Cache round trip under a throwaway key.
	probeID := uuid.New()
	key := types.CacheKey(probeID, 0)
	probe := types.NewSnapshot(probeID, 0)

	if err := a.store.Set(ctx, key, probe, time.Minute); err != nil {
		return fmt.Errorf("cache probe set: %w", err)
	}
	got, ok, err := a.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("cache probe get: %w", err)
	}
	if !ok || got.ActorID != probeID {
		return fmt.Errorf("cache probe get: stored snapshot not returned")
	}
	if err := a.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("cache probe delete: %w", err)
	}
	return nil
}
