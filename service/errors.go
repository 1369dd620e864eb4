package service

import "fmt"

// Pipeline stages that can fail a submission.
const (
	StageDrafting = "drafting"
	StageDelivery = "delivery"
)

// PipelineError is a fatal submission failure.
type PipelineError struct {
	Stage    string
	ReportID string
	Err      error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("report %s: %s failed: %v", e.ReportID, e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
