package pipeline

import (
	"sync"
	"time"
)

// Run statuses
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Stage identifiers
const (
	StageDownload      = "download"
	StageLoad          = "load"
	StageAnonymize     = "anonymize"
	StageWriteSample   = "write_sample"
	StageCrossValidate = "cross_validate"
	StageReports       = "reports"
)

// Manifest records what one run did: which stages ran, how long they took
// and which files they produced
type Manifest struct {
	mu sync.Mutex

	RunID     string           `json:"run_id"`
	Command   string           `json:"command"`
	StartTime time.Time        `json:"start_time"`
	EndTime   time.Time        `json:"end_time,omitempty"`
	Status    string           `json:"status"`
	Stages    []StageExecution `json:"stages"`
	Outputs   []string         `json:"outputs"`
	Error     string           `json:"error,omitempty"`
}

// StageExecution tracks the execution of a single stage
type StageExecution struct {
	Stage     string                 `json:"stage"`
	StartTime time.Time              `json:"start_time"`
	EndTime   time.Time              `json:"end_time"`
	Duration  string                 `json:"duration"`
	Status    string                 `json:"status"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewManifest starts a manifest for command
func NewManifest(runID, command string) *Manifest {
	return &Manifest{
		RunID:     runID,
		Command:   command,
		StartTime: time.Now().UTC(),
		Status:    StatusRunning,
		Stages:    []StageExecution{},
		Outputs:   []string{},
	}
}

// RecordStage appends a finished stage
func (m *Manifest) RecordStage(stage string, start time.Time, err error, metadata map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	end := time.Now().UTC()
	exec := StageExecution{
		Stage:     stage,
		StartTime: start.UTC(),
		EndTime:   end,
		Duration:  end.Sub(start).String(),
		Status:    StatusCompleted,
		Metadata:  metadata,
	}
	if err != nil {
		exec.Status = StatusFailed
		exec.Error = err.Error()
	}
	m.Stages = append(m.Stages, exec)
}

// AddOutputs records produced files
func (m *Manifest) AddOutputs(paths ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outputs = append(m.Outputs, paths...)
}

// Finish closes the manifest with the run outcome
func (m *Manifest) Finish(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EndTime = time.Now().UTC()
	m.Status = StatusCompleted
	if err != nil {
		m.Status = StatusFailed
		m.Error = err.Error()
	}
}

// Stage returns the last execution of stage, if any
func (m *Manifest) Stage(stage string) (StageExecution, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Stages) - 1; i >= 0; i-- {
		if m.Stages[i].Stage == stage {
			return m.Stages[i], true
		}
	}
	return StageExecution{}, false
}
