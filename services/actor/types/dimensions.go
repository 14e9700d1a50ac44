// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package types

import "math"

// Primary dimension names.
const (
	DimStrength     = "strength"
	DimAgility      = "agility"
	DimIntelligence = "intelligence"
	DimVitality     = "vitality"
	DimSpirit       = "spirit"
	DimLuck         = "luck"
	DimHealth       = "health"
	DimMana         = "mana"
	DimStamina      = "stamina"
	DimExperience   = "experience"
	DimLevel        = "level"
)

// Derived dimension names.
const (
	DimAttackPower         = "attack_power"
	DimDefensePower        = "defense_power"
	DimCriticalHitChance   = "critical_hit_chance"
	DimCriticalHitDamage   = "critical_hit_damage"
	DimAttackSpeed         = "attack_speed"
	DimMovementSpeed       = "movement_speed"
	DimCastingSpeed        = "casting_speed"
	DimCooldownReduction   = "cooldown_reduction"
	DimLifeSteal           = "life_steal"
	DimManaSteal           = "mana_steal"
	DimDamageReduction     = "damage_reduction"
	DimElementalResistance = "elemental_resistance"
)

// PrimaryDimensions lists the known primary dimensions.
func PrimaryDimensions() []string {
	return []string{
		DimStrength, DimAgility, DimIntelligence, DimVitality,
		DimSpirit, DimLuck, DimHealth, DimMana, DimStamina,
		DimExperience, DimLevel,
	}
}

// DerivedDimensions lists the known derived dimensions.
func DerivedDimensions() []string {
	return []string{
		DimAttackPower, DimDefensePower, DimCriticalHitChance,
		DimCriticalHitDamage, DimAttackSpeed, DimMovementSpeed,
		DimCastingSpeed, DimCooldownReduction, DimLifeSteal,
		DimManaSteal, DimDamageReduction, DimElementalResistance,
	}
}

// fallbackBounds is the system-wide constant bound table. The
// aggregator consults it only when a dimension has neither effective
// caps nor a combiner clamp default.
var fallbackBounds = map[string]Caps{
	DimStrength:     {Min: 0, Max: 10_000},
	DimAgility:      {Min: 0, Max: 10_000},
	DimIntelligence: {Min: 0, Max: 10_000},
	DimVitality:     {Min: 0, Max: 10_000},
	DimSpirit:       {Min: 0, Max: 10_000},
	DimLuck:         {Min: 0, Max: 10_000},
	DimHealth:       {Min: 0, Max: 1_000_000},
	DimMana:         {Min: 0, Max: 1_000_000},
	DimStamina:      {Min: 0, Max: 1_000_000},
	DimExperience:   {Min: 0, Max: math.MaxFloat64},
	DimLevel:        {Min: 1, Max: 1_000},

	DimAttackPower:         {Min: 0, Max: 100_000},
	DimDefensePower:        {Min: 0, Max: 100_000},
	DimCriticalHitChance:   {Min: 0, Max: 100},
	DimCriticalHitDamage:   {Min: 0, Max: 1_000},
	DimAttackSpeed:         {Min: 0.1, Max: 10},
	DimMovementSpeed:       {Min: 0.1, Max: 50},
	DimCastingSpeed:        {Min: 0.1, Max: 10},
	DimCooldownReduction:   {Min: 0, Max: 90},
	DimLifeSteal:           {Min: 0, Max: 100},
	DimManaSteal:           {Min: 0, Max: 100},
	DimDamageReduction:     {Min: 0, Max: 95},
	DimElementalResistance: {Min: 0, Max: 100},
}

// FallbackBounds returns the system-wide default bounds for a
// dimension. Unknown dimensions have no fallback and are left
// unclamped.
func FallbackBounds(dimension string) (Caps, bool) {
	c, ok := fallbackBounds[dimension]
	return c, ok
}
