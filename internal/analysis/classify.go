package analysis

// Thresholds. Wind scores crop risk above 25 km/h but raises the weekly
// alert only above 30 km/h.
const (
	hotDayTemp      = 30.0
	coldDayTemp     = 10.0
	humidDayPct     = 80.0
	dryDayPct       = 30.0
	windyDayKmh     = 25.0
	fungalAlertPct  = 80.0
	windAlertKmh    = 30.0
	irrigationSlope = 0.5
	stableSlope     = 0.1
)

const (
	FactorHighTemperature = "high temperature"
	FactorLowTemperature  = "low temperature"
	FactorHighHumidity    = "high humidity"
	FactorLowHumidity     = "low humidity"
	FactorStrongWind      = "strong wind"
)

// CategorizeTemperature buckets °C as <15 cold, [15,25) moderate, >=25 hot.
func CategorizeTemperature(temp float64) Category {
	switch {
	case temp < 15:
		return TemperatureCold
	case temp < 25:
		return TemperatureModerate
	default:
		return TemperatureHot
	}
}

// CategorizeHumidity buckets % as <40 low, [40,70) moderate, >=70 high.
func CategorizeHumidity(hum float64) Category {
	switch {
	case hum < 40:
		return HumidityLow
	case hum < 70:
		return HumidityModerate
	default:
		return HumidityHigh
	}
}

// CategorizeWind buckets km/h as <10 light, [10,20) moderate, >=20 strong.
func CategorizeWind(wind float64) Category {
	switch {
	case wind < 10:
		return WindLight
	case wind < 20:
		return WindModerate
	default:
		return WindStrong
	}
}

// AssessCropRisk scores a day additively and grades the total:
// <=1 low, <=3 medium, otherwise high.
func AssessCropRisk(temp, hum, wind float64) CropRiskAssessment {
	score := 0
	factors := make([]string, 0, 3)

	if temp > hotDayTemp {
		score += 2
		factors = append(factors, FactorHighTemperature)
	} else if temp < coldDayTemp {
		score += 2
		factors = append(factors, FactorLowTemperature)
	}

	if hum > humidDayPct {
		score += 2
		factors = append(factors, FactorHighHumidity)
	} else if hum < dryDayPct {
		score += 1
		factors = append(factors, FactorLowHumidity)
	}

	if wind > windyDayKmh {
		score += 2
		factors = append(factors, FactorStrongWind)
	}

	return CropRiskAssessment{
		Level:   riskLevel(score),
		Factors: factors,
		Score:   score,
	}
}

func riskLevel(score int) RiskLevel {
	switch {
	case score <= 1:
		return RiskLow
	case score <= 3:
		return RiskMedium
	default:
		return RiskHigh
	}
}
