package models

// TrendDirection classifies how a metric series is moving.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// HealthScore is the 0-100 composite plus its four sub-scores.
type HealthScore struct {
	Overall  float64 `json:"overall"`
	Response float64 `json:"response"`
	CPU      float64 `json:"cpu"`
	Memory   float64 `json:"memory"`
	Cache    float64 `json:"cache"`
}

// Bottleneck is a ranked indicator of what is most likely limiting
// throughput or latency right now.
type Bottleneck struct {
	Kind    string  `json:"kind"` // "operation", "cpu", "memory", "database"
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Message string  `json:"message"`
}

// DashboardData is the composite answer for dashboard queries. When no
// snapshot has been collected yet every field is its zero value.
type DashboardData struct {
	Current      MetricSnapshot            `json:"current"`
	RecentAlerts []Alert                   `json:"recent_alerts"`
	Health       HealthScore               `json:"health_score"`
	Trends       map[string]TrendDirection `json:"trends"`
	Bottlenecks  []Bottleneck              `json:"bottlenecks"`
}
