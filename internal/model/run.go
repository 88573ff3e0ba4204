package model

import (
	"encoding/json"
	"time"
)

// RunStatus is the lifecycle state of an analysis run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// AnalysisKind names the geographic unit an analysis summarizes.
type AnalysisKind string

const (
	AnalysisDistricts AnalysisKind = "districts"
	AnalysisCorridor  AnalysisKind = "corridor"
	AnalysisZone      AnalysisKind = "zone"
)

// Run is the persisted record of one analysis.
type Run struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Kind       AnalysisKind    `json:"kind"`
	GroupBy    string          `json:"group_by"`
	Status     RunStatus       `json:"status"`
	Params     json.RawMessage `json:"params,omitempty"`
	Records    int             `json:"records"`
	Members    int             `json:"members"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`

	// Footprint is the EWKB buffer outline (SRID 4326) of corridor and zone
	// runs.
	Footprint []byte `json:"-"`
}
