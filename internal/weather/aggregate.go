package weather

import "time"

// AggregateReadings combines multiple provider readings into a single WeatherSnapshot.
// Numeric fields are averaged, UV takes the highest reading, sun times come from
// the first reading that has them. The condition is the majority; ties go to the
// condition seen first.
func AggregateReadings(loc Location, readings []ProviderReading) WeatherSnapshot {
	if len(readings) == 0 {
		return WeatherSnapshot{
			Location:  loc,
			Timestamp: time.Now().UTC(),
			Condition: ConditionUnknown,
		}
	}

	var (
		sumTemp     float64
		sumHumidity float64
		sumWind     float64
		sumPressure float64
		sumPrecip   float64
	)

	snapshot := WeatherSnapshot{Location: loc}
	conditionCounts := make(map[Condition]int)
	var conditionOrder []Condition
	providers := make([]ProviderContribution, 0, len(readings))
	var newestTS time.Time

	for _, r := range readings {
		sumTemp += r.TemperatureC
		sumHumidity += r.HumidityPct
		sumWind += r.WindSpeedKmh
		sumPressure += r.PressureHpa
		sumPrecip += r.PrecipMm

		if _, seen := conditionCounts[r.Condition]; !seen {
			conditionOrder = append(conditionOrder, r.Condition)
		}
		conditionCounts[r.Condition]++

		if r.UVIndex != nil && (snapshot.UVIndex == nil || *r.UVIndex > *snapshot.UVIndex) {
			uv := *r.UVIndex
			snapshot.UVIndex = &uv
		}
		if snapshot.Sunrise == nil && r.Sunrise != nil {
			snapshot.Sunrise = r.Sunrise
		}
		if snapshot.Sunset == nil && r.Sunset != nil {
			snapshot.Sunset = r.Sunset
		}

		if r.Timestamp.After(newestTS) {
			newestTS = r.Timestamp
		}

		providers = append(providers, ProviderContribution{
			ProviderName: r.ProviderName,
			Timestamp:    r.Timestamp,
		})
	}

	n := float64(len(readings))

	bestCond := ConditionUnknown
	bestCount := 0
	for _, cond := range conditionOrder {
		if count := conditionCounts[cond]; count > bestCount {
			bestCount = count
			bestCond = cond
		}
	}

	if newestTS.IsZero() {
		newestTS = time.Now().UTC()
	}

	snapshot.Timestamp = newestTS
	snapshot.Temperature = sumTemp / n
	snapshot.Humidity = sumHumidity / n
	snapshot.WindSpeed = sumWind / n
	snapshot.Pressure = sumPressure / n
	snapshot.PrecipMM = sumPrecip / n
	snapshot.Condition = bestCond
	snapshot.Providers = providers
	return snapshot
}
