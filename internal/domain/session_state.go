package domain

import (
	"time"
)

// WorkflowStatus represents the overall status of a release session
type WorkflowStatus string

const (
	WorkflowStatusPending   WorkflowStatus = "pending"
	WorkflowStatusRunning   WorkflowStatus = "running"
	WorkflowStatusCompleted WorkflowStatus = "completed"
	WorkflowStatusFailed    WorkflowStatus = "failed"
)

// OperationStatus represents the status of an individual operation
type OperationStatus string

const (
	OperationStatusPending   OperationStatus = "pending"
	OperationStatusRunning   OperationStatus = "running"
	OperationStatusCompleted OperationStatus = "completed"
	OperationStatusFailed    OperationStatus = "failed"
)

// OperationType identifies a checkpointed step of the release
type OperationType string

const (
	OperationTypeUpdateVersionFile OperationType = "update_version_file"
	OperationTypeCreateBranch      OperationType = "create_branch"
	OperationTypeCommitChanges     OperationType = "commit_changes"
	OperationTypePushBranch        OperationType = "push_branch"
	OperationTypeOpenPullRequest   OperationType = "open_pull_request"
)

// SessionState records the checkpoints of one release session so that it can be resumed.
type SessionState struct {
	SessionID       string            `json:"session_id"`
	StartedAt       time.Time         `json:"started_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	ReleaseType     ReleaseType       `json:"release_type"`
	CurrentVersion  string            `json:"current_version"`
	Version         string            `json:"version"`
	VersionFile     string            `json:"version_file"`
	BranchName      string            `json:"branch_name"`
	OriginalBranch  string            `json:"original_branch"`
	Remote          string            `json:"remote,omitempty"`
	OpenPullRequest bool              `json:"open_pull_request,omitempty"`
	Operations      []OperationRecord `json:"operations"`
	Status          WorkflowStatus    `json:"status"`
	Error           string            `json:"error,omitempty"`
}

// OperationRecord represents a single checkpoint in the session
type OperationRecord struct {
	ID          string          `json:"id"`
	Type        OperationType   `json:"type"`
	Status      OperationStatus `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Data        map[string]any  `json:"data,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// NewSessionState creates a new session state
func NewSessionState(sessionID string) *SessionState {
	now := time.Now()
	return &SessionState{
		SessionID:  sessionID,
		StartedAt:  now,
		UpdatedAt:  now,
		Operations: []OperationRecord{},
		Status:     WorkflowStatusPending,
	}
}

// AddOperation adds a pending operation record unless one of the same type exists.
func (s *SessionState) AddOperation(opType OperationType) *OperationRecord {
	if op := s.Operation(opType); op != nil {
		return op
	}
	op := OperationRecord{
		ID:        generateOperationID(opType),
		Type:      opType,
		Status:    OperationStatusPending,
		StartedAt: time.Now(),
	}
	s.Operations = append(s.Operations, op)
	s.UpdatedAt = time.Now()
	return &s.Operations[len(s.Operations)-1]
}

// Operation returns the record for opType, or nil.
func (s *SessionState) Operation(opType OperationType) *OperationRecord {
	for i := range s.Operations {
		if s.Operations[i].Type == opType {
			return &s.Operations[i]
		}
	}
	return nil
}

// IsCompleted reports whether the checkpoint for opType has been reached.
func (s *SessionState) IsCompleted(opType OperationType) bool {
	op := s.Operation(opType)
	return op != nil && op.Status == OperationStatusCompleted
}

// LastCompleted returns the most recent completed checkpoint, or nil.
func (s *SessionState) LastCompleted() *OperationRecord {
	for i := len(s.Operations) - 1; i >= 0; i-- {
		if s.Operations[i].Status == OperationStatusCompleted {
			return &s.Operations[i]
		}
	}
	return nil
}

// MarkOperationStarted marks an operation as running
func (s *SessionState) MarkOperationStarted(opType OperationType) {
	op := s.Operation(opType)
	if op == nil || op.Status == OperationStatusCompleted {
		return
	}
	now := time.Now()
	op.Status = OperationStatusRunning
	op.StartedAt = now
	op.CompletedAt = nil
	op.Error = ""
	s.UpdatedAt = now
}

// MarkOperationCompleted marks a running operation as completed with its checkpoint data
func (s *SessionState) MarkOperationCompleted(opType OperationType, data map[string]any) {
	op := s.Operation(opType)
	if op == nil || op.Status != OperationStatusRunning {
		return
	}
	now := time.Now()
	op.Status = OperationStatusCompleted
	op.CompletedAt = &now
	op.Data = data
	s.UpdatedAt = now
}

// MarkOperationFailed marks a running operation and the session as failed
func (s *SessionState) MarkOperationFailed(opType OperationType, err error) {
	now := time.Now()
	if op := s.Operation(opType); op != nil && op.Status == OperationStatusRunning {
		op.Status = OperationStatusFailed
		op.CompletedAt = &now
		op.Error = err.Error()
	}
	s.UpdatedAt = now
	s.Status = WorkflowStatusFailed
	s.Error = err.Error()
}

// generateOperationID creates a unique ID for an operation
func generateOperationID(opType OperationType) string {
	return string(opType) + "_" + time.Now().Format("20060102150405")
}
