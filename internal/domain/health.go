package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// AnalysisMetrics is returned by GET /v1/metrics/analysis.
type AnalysisMetrics struct {
	SummarizerCalls     int64              `json:"summarizerCalls"`
	SummarizerErrors    int64              `json:"summarizerErrors"`
	ErrorRate           float64            `json:"errorRate"`
	AvgTokensPerRequest float64            `json:"avgTokensPerRequest"`
	RefreshesByTrigger  map[string]float64 `json:"refreshesByTrigger"`
	StoreMutations      map[string]float64 `json:"storeMutations"`
	Notifications       float64            `json:"notifications"`
	Period              string             `json:"period"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
