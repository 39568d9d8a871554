package model

import "time"

// RunStatus tracks the lifecycle of a recorded pipeline run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusPartial  RunStatus = "partial"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded invocation of the pipeline (or a single stage).
type Run struct {
	ID        string      `json:"id"`
	Status    RunStatus   `json:"status"`
	Stages    []StageInfo `json:"stages,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// StageInfo records the outcome of one pipeline stage.
type StageInfo struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	Items      int    `json:"items"`
	DurationMS int64  `json:"duration_ms"`
}

// StageStatus values for StageInfo.
const (
	StageStatusOK      = "ok"
	StageStatusFailed  = "failed"
	StageStatusSkipped = "skipped"
)

// PricePoint is one observation of a product's price in a snapshot,
// served by the price-history API.
type PricePoint struct {
	Day      string `json:"day"`
	Retailer string `json:"retailer"`
	Price    string `json:"price"`
	WasPrice string `json:"was_price"`
}
