// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package devices

// glitchWind is the wind speed a faulty station reports when it has no
// real reading.
const glitchWind = 35

// AggregateWind combines the wind readings (m/s) of several stations. The
// highest reading wins, except that a 35 m/s maximum is reported as calm
// when no other station saw any wind.
//
// Readings are compared on their whole part, and the running minimum
// treats 0 as "not set yet".
func AggregateWind(winds []float64) float64 {
	var maxWind, minWind float64
	for _, w := range winds {
		if w > maxWind {
			maxWind = w
		}
		if (minWind == 0 || w < minWind) && int(w) != glitchWind {
			minWind = w
		}
	}
	if int(minWind) == 0 && int(maxWind) == glitchWind {
		return 0
	}
	return maxWind
}

// AverageCelsius returns the mean temperature of several stations, rounded
// to 2 decimals. It returns 0 for no statuses.
func AverageCelsius(statuses []MeteoStatus) float64 {
	if len(statuses) == 0 {
		return 0
	}
	var sum float64
	for _, s := range statuses {
		sum += s.Celsius()
	}
	return round2(sum / float64(len(statuses)))
}

// MaxLux returns the brightest illuminance of several stations.
func MaxLux(statuses []MeteoStatus) float64 {
	var lux float64
	for _, s := range statuses {
		if s.Lux() > lux {
			lux = s.Lux()
		}
	}
	return lux
}

// AnyRaining reports whether at least one station detects rain.
func AnyRaining(statuses []MeteoStatus) bool {
	for _, s := range statuses {
		if s.Raining() {
			return true
		}
	}
	return false
}

// Winds extracts the wind readings of several stations.
func Winds(statuses []MeteoStatus) []float64 {
	winds := make([]float64, len(statuses))
	for i, s := range statuses {
		winds[i] = s.Wind()
	}
	return winds
}
