package engine

import (
	"fmt"
	"sort"

	"ecohub-core/internal/store"
)

// Zone status labels.
const (
	StatusInitializing = "Initializing"
	StatusGood         = "Good"
	StatusWarning      = "Warning"
	StatusTooCool      = "Too Cool"
	StatusTooHot       = "Too Hot"
	StatusNeedWater    = "Need water"
	StatusNeedLight    = "Need light"
)

// Actuator commands.
const (
	CmdHeaterOn = "TURN_HEATER_ON"
	CmdFanOn    = "TURN_FAN_ON"
	CmdPumpOn   = "PUMP_WATER_ON"
	CmdLightOn  = "TURN_LIGHT_ON"
)

// SuggestionText maps a suggested command to a human-readable label for the
// notification payload.
var SuggestionText = map[string]string{
	CmdHeaterOn: "Turn on the heater",
	CmdFanOn:    "Turn on the fan",
	CmdPumpOn:   "Turn on the water pump",
	CmdLightOn:  "Turn on the grow light",
}

// Evaluation is the outcome of one threshold pass over a zone's readings.
type Evaluation struct {
	Status     string
	Suggestion string
	Severity   string
	Message    string
}

// Priority ranks for the special-case breaches. A higher rank wins; equal
// ranks keep the earlier-encountered issue.
const (
	rankLightLow    = 0
	rankSoilLow     = 1
	rankTemperature = 2
)

// Evaluate maps a zone's configured thresholds and current readings to a
// prioritized status and suggested corrective action. Pure: no I/O, same
// inputs always produce the same outcome.
//
// Quantities are visited in a fixed order: temperature, soilMoisture,
// lightIntensity, then any remaining configured quantities in sorted name
// order. Quantities without a special-case mapping only ever raise the
// overall status to "Warning" and never displace a ranked issue.
func Evaluate(zoneName string, readings map[string]float64, thresholds map[string]store.Threshold) Evaluation {
	var best *Evaluation
	bestRank := -1
	genericBreach := false

	for _, quantity := range quantityOrder(thresholds) {
		t := thresholds[quantity]
		if !t.Enabled {
			continue
		}
		value, ok := readings[quantity]
		if !ok {
			continue
		}

		switch quantity {
		case "temperature":
			if value < t.Min {
				candidate(&best, &bestRank, rankTemperature, Evaluation{
					Status:     StatusTooCool,
					Suggestion: CmdHeaterOn,
					Severity:   SeverityCritical,
					Message:    fmt.Sprintf("Zone '%s': temperature is too low (%g)", zoneName, value),
				})
				continue
			}
			if value > t.Max {
				candidate(&best, &bestRank, rankTemperature, Evaluation{
					Status:     StatusTooHot,
					Suggestion: CmdFanOn,
					Severity:   SeverityCritical,
					Message:    fmt.Sprintf("Zone '%s': temperature is too high (%g)", zoneName, value),
				})
				continue
			}
		case "soilMoisture":
			if value < t.Min {
				candidate(&best, &bestRank, rankSoilLow, Evaluation{
					Status:     StatusNeedWater,
					Suggestion: CmdPumpOn,
					Severity:   SeverityWarning,
					Message:    fmt.Sprintf("Zone '%s': soil is too dry (%g%%). Watering is recommended.", zoneName, value),
				})
				continue
			}
		case "lightIntensity":
			if value < t.Min {
				candidate(&best, &bestRank, rankLightLow, Evaluation{
					Status:     StatusNeedLight,
					Suggestion: CmdLightOn,
					Severity:   SeverityWarning,
					Message:    fmt.Sprintf("Zone '%s': light intensity is too low (%g lux).", zoneName, value),
				})
				continue
			}
		}

		if value < t.Min || value > t.Max {
			genericBreach = true
		}
	}

	if best != nil {
		return *best
	}
	if genericBreach {
		return Evaluation{
			Status:   StatusWarning,
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("Zone '%s': one or more readings are out of configured bounds", zoneName),
		}
	}
	return Evaluation{Status: StatusGood, Severity: SeverityInfo}
}

func candidate(best **Evaluation, bestRank *int, rank int, eval Evaluation) {
	if rank > *bestRank {
		*best = &eval
		*bestRank = rank
	}
}

// quantityOrder fixes the evaluation order so tie-breaking is deterministic:
// the special-case quantities first, then the rest sorted by name.
func quantityOrder(thresholds map[string]store.Threshold) []string {
	special := []string{"temperature", "soilMoisture", "lightIntensity"}
	order := make([]string, 0, len(thresholds))
	seen := make(map[string]bool, len(thresholds))
	for _, q := range special {
		if _, ok := thresholds[q]; ok {
			order = append(order, q)
			seen[q] = true
		}
	}

	rest := make([]string, 0, len(thresholds))
	for q := range thresholds {
		if !seen[q] {
			rest = append(rest, q)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}
