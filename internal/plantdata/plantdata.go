// Package plantdata is the Plant Knowledge Table: a static, read-only
// lookup of per-plant moisture bands and the target-moisture adjustment
// function. Every function here is pure and offline; there is no
// environmental data store to keep in sync.
package plantdata

import (
	"strings"

	"github.com/greenhouse-io/irrigator/internal/domain"
)

// defaultTag is the mandatory fallback profile for unknown plant types.
const defaultTag = "default"

// table is keyed lower-case; Profile normalizes lookups through this.
var table = map[string]domain.PlantProfile{
	"default":    {Min: 40, Ideal: 60, Max: 80},
	"tomato":     {Min: 50, Ideal: 70, Max: 85},
	"lettuce":    {Min: 60, Ideal: 75, Max: 90},
	"pepper":     {Min: 45, Ideal: 65, Max: 80},
	"basil":      {Min: 40, Ideal: 60, Max: 75},
	"strawberry": {Min: 55, Ideal: 70, Max: 85},
	"cucumber":   {Min: 60, Ideal: 75, Max: 90},
	"herbs":      {Min: 35, Ideal: 55, Max: 70},
}

// Profile returns the moisture band for plantType, case-insensitive, falling
// back to the default profile on miss.
func Profile(plantType string) domain.PlantProfile {
	if p, ok := table[strings.ToLower(strings.TrimSpace(plantType))]; ok {
		return p
	}
	return table[defaultTag]
}

// All returns the full plant profile table, keyed by tag. Used by the
// listPlants Lifecycle API operation.
func All() map[string]domain.PlantProfile {
	out := make(map[string]domain.PlantProfile, len(table))
	for k, v := range table {
		out[k] = v
	}
	return out
}

// TargetMoisture computes the time-of-day and temperature adjusted target
// moisture for plantType, per spec §4.1.
func TargetMoisture(plantType string, hourOfDay int, airTempC float64) float64 {
	p := Profile(plantType)
	target := p.Ideal

	if hourOfDay < 6 || hourOfDay > 18 {
		target *= 0.9
	}

	switch {
	case airTempC > 30:
		target *= 1.1
	case airTempC < 20:
		target *= 0.9
	}

	return clamp(target, p.Min, p.Max)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
