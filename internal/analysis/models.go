package analysis

// Category is the bucket a single weather variable falls into.
type Category string

const (
	TemperatureCold     Category = "cold"
	TemperatureModerate Category = "moderate"
	TemperatureHot      Category = "hot"

	HumidityLow      Category = "low"
	HumidityModerate Category = "moderate"
	HumidityHigh     Category = "high"

	WindLight    Category = "light"
	WindModerate Category = "moderate"
	WindStrong   Category = "strong"
)

// RiskLevel grades a day's crop-risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Trend is the direction read from a fitted slope.
type Trend string

const (
	TrendStable     Trend = "stable"
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
)

// AlertLevel ranks how urgent an alert is.
type AlertLevel string

const (
	AlertPrecaution AlertLevel = "precaution"
	AlertWarning    AlertLevel = "warning"
)

// Measurement is a value together with its category.
type Measurement struct {
	Value    float64  `json:"value"`
	Category Category `json:"category"`
}

// Conditions groups the classified variables of one day.
type Conditions struct {
	Temperature Measurement `json:"temperature"`
	Humidity    Measurement `json:"humidity"`
	Wind        Measurement `json:"wind"`
}

// CropRiskAssessment is the additive risk score of one day.
type CropRiskAssessment struct {
	Level   RiskLevel `json:"level"`
	Factors []string  `json:"factors"`
	Score   int       `json:"score"`
}

// DailyPattern is the per-day part of the weekly report.
type DailyPattern struct {
	Day        string             `json:"day"`
	Date       string             `json:"date"`
	Conditions Conditions         `json:"conditions"`
	CropRisk   CropRiskAssessment `json:"cropRisk"`
}

// Recommendation is an agronomic action suggested by the week's trends.
type Recommendation struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Alert flags a condition reached on at least one day of the week.
type Alert struct {
	Type    string     `json:"type"`
	Level   AlertLevel `json:"level"`
	Message string     `json:"message"`
}

// TrendEstimate is a least-squares slope and its reading.
type TrendEstimate struct {
	Slope     float64 `json:"slope"`
	Direction Trend   `json:"direction"`
}

// Trends holds the estimates for the fitted series.
type Trends struct {
	Temperature TrendEstimate `json:"temperature"`
	Humidity    TrendEstimate `json:"humidity"`
}

// Summary aggregates the processed days.
type Summary struct {
	AvgTemperature float64 `json:"avgTemperature"`
	AvgHumidity    float64 `json:"avgHumidity"`
	AvgWind        float64 `json:"avgWind"`
	Trends         Trends  `json:"trends"`
}

// WeeklyAnalysis is the report returned by AnalyzeWeeklyPattern.
type WeeklyAnalysis struct {
	DailyPatterns   []DailyPattern   `json:"dailyPatterns"`
	Recommendations []Recommendation `json:"recommendations"`
	Alerts          []Alert          `json:"alerts"`
	Summary         Summary          `json:"summary"`
}
