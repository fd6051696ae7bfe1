package server

import (
	"triagekit/internal/domain"
	"triagekit/internal/similar"
	"triagekit/internal/store"
)

// Request payloads

type PredictRequest struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Workload    string `json:"workload,omitempty"`
	Monitor     string `json:"monitor,omitempty"`
}

type EnrichRequest struct {
	Incidents []domain.Incident `json:"incidents"`
	Source    string            `json:"source,omitempty"`
	Persist   bool              `json:"persist,omitempty"`
}

// Response payloads

type EnrichResponse struct {
	Incidents []domain.Incident `json:"incidents"`
	Summary   domain.Summary    `json:"summary"`
	RunID     string            `json:"runId,omitempty"`
}

type IncidentListResponse struct {
	Items []domain.Incident `json:"items"`
	Total int               `json:"total"`
}

type SimilarResponse struct {
	Items []similar.Match `json:"items"`
}

type RunListResponse struct {
	Items []store.Run `json:"items"`
}
