package domain

import "time"

// Trigger names what caused an analysis refresh.
type Trigger string

const (
	TriggerInitial Trigger = "initial"
	TriggerAdd     Trigger = "add"
	TriggerDelete  Trigger = "delete"
	TriggerManual  Trigger = "manual"
)

// AnalysisStatus is returned by GET /v1/analysis.
type AnalysisStatus struct {
	Summary         string     `json:"summary,omitempty"`
	HasSummary      bool       `json:"hasSummary"`
	Refreshing      bool       `json:"refreshing"`
	InFlight        int        `json:"inFlight"`
	LastError       string     `json:"lastError,omitempty"`
	LastRefreshedAt *time.Time `json:"lastRefreshedAt,omitempty"`
}
