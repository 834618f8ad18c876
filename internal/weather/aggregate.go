package weather

import (
	"sort"
	"time"
)

// AggregateReadings combines provider readings for loc into one Celsius snapshot.
// Numeric fields are averaged. The condition is picked by majority; ties go to
// the condition reported by the provider that sorts first by name, so the result
// does not depend on the order in which providers answered.
func AggregateReadings(loc Location, readings []ProviderReading, now time.Time) WeatherSnapshot {
	if len(readings) == 0 {
		return WeatherSnapshot{
			Location:  loc,
			Timestamp: now.UTC(),
			Unit:      Celsius,
			Condition: ConditionUnknown,
		}
	}

	sorted := make([]ProviderReading, len(readings))
	copy(sorted, readings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ProviderName < sorted[j].ProviderName
	})

	var (
		sumTemp     float64
		sumHumidity float64
		sumWind     float64
		sumPressure float64
		sumPrecip   float64
		newestTS    time.Time
	)

	conditionCounts := make(map[Condition]int)
	var conditionOrder []Condition
	providers := make([]ProviderContribution, 0, len(sorted))

	for _, r := range sorted {
		sumTemp += r.TemperatureC
		sumHumidity += r.HumidityPct
		sumWind += r.WindSpeedMS
		sumPressure += r.PressureHpa
		sumPrecip += r.PrecipMm

		if _, seen := conditionCounts[r.Condition]; !seen {
			conditionOrder = append(conditionOrder, r.Condition)
		}
		conditionCounts[r.Condition]++

		if r.Timestamp.After(newestTS) {
			newestTS = r.Timestamp
		}

		providers = append(providers, ProviderContribution{
			ProviderName: r.ProviderName,
			Timestamp:    r.Timestamp,
		})
	}

	n := float64(len(sorted))

	bestCond := ConditionUnknown
	bestCount := 0
	for _, cond := range conditionOrder {
		if count := conditionCounts[cond]; count > bestCount {
			bestCount = count
			bestCond = cond
		}
	}

	if newestTS.IsZero() {
		newestTS = now
	}

	return WeatherSnapshot{
		Location:    loc,
		Timestamp:   newestTS.UTC(),
		Temperature: sumTemp / n,
		Unit:        Celsius,
		Humidity:    sumHumidity / n,
		WindSpeed:   sumWind / n,
		Pressure:    sumPressure / n,
		PrecipMM:    sumPrecip / n,
		Condition:   bestCond,
		Providers:   providers,
	}
}
