package domain

import (
	"encoding/json"
	"time"
)

// Schedule status values. Distinct from the draft/active/archived set used
// by Variant/Product/Collection: a schedule's lifecycle is driven by wall
// clock time passing, not an explicit publish action.
const (
	ScheduleStatusPending   = "pending"
	ScheduleStatusActive    = "active"
	ScheduleStatusCompleted = "completed"
	ScheduleStatusCancelled = "cancelled"
)

// Schedule kinds: a paired schedule has both a start and an end (e.g. a
// time-boxed sale); a single schedule has only a start (e.g. a go-live
// date with no fixed end).
const (
	ScheduleKindPaired = "paired"
	ScheduleKindSingle = "single"
)

type scheduleState struct {
	ID            string     `json:"id"`
	CorrelationID string     `json:"correlation_id"`
	Version       int64      `json:"version"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	SubjectID     string     `json:"subject_id"`
	Kind          string     `json:"kind"`
	StartAt       time.Time  `json:"start_at"`
	EndAt         *time.Time `json:"end_at,omitempty"`
}

// Schedule governs when a subject (a Collection or Product going live, a
// Variant's sale window) transitions between pending, active, completed,
// and cancelled. Paired schedules carry both StartAt and EndAt; single
// schedules carry only StartAt and may be completed at any time once
// active. Activation does not complete a schedule: Complete is always a
// separate call.
type Schedule struct {
	Entity
	subjectID string
	kind      string
	startAt   time.Time
	endAt     *time.Time
}

// NewPairedSchedule creates a schedule with both a start and an end time.
// endAt must be after startAt.
func NewPairedSchedule(id, correlationID, subjectID string, startAt, endAt time.Time) (*Schedule, error) {
	if subjectID == "" {
		return nil, NewValidationError("subject_id", "subject_id is required")
	}
	if !endAt.After(startAt) {
		return nil, NewValidationError("end_at", "end_at must be after start_at")
	}
	end := endAt
	s := &Schedule{
		Entity:    NewEntity(id, correlationID),
		subjectID: subjectID,
		kind:      ScheduleKindPaired,
		startAt:   startAt,
		endAt:     &end,
	}
	s.setStatusDirect(ScheduleStatusPending)
	prior := s.toState()
	if err := s.recordEvent("schedule.created", prior, func() interface{} { return s.toState() }); err != nil {
		return nil, err
	}
	return s, nil
}

// NewSingleSchedule creates a schedule with only a start time.
func NewSingleSchedule(id, correlationID, subjectID string, startAt time.Time) (*Schedule, error) {
	if subjectID == "" {
		return nil, NewValidationError("subject_id", "subject_id is required")
	}
	s := &Schedule{
		Entity:    NewEntity(id, correlationID),
		subjectID: subjectID,
		kind:      ScheduleKindSingle,
		startAt:   startAt,
	}
	s.setStatusDirect(ScheduleStatusPending)
	prior := s.toState()
	if err := s.recordEvent("schedule.created", prior, func() interface{} { return s.toState() }); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Schedule) toState() scheduleState {
	return scheduleState{
		ID:            s.ID(),
		CorrelationID: s.CorrelationID(),
		Version:       s.Version(),
		Status:        s.Status(),
		CreatedAt:     s.CreatedAt(),
		UpdatedAt:     s.UpdatedAt(),
		SubjectID:     s.subjectID,
		Kind:          s.kind,
		StartAt:       s.startAt,
		EndAt:         s.endAt,
	}
}

// SubjectID returns the id of the aggregate this schedule governs.
func (s *Schedule) SubjectID() string { return s.subjectID }

// Kind returns ScheduleKindPaired or ScheduleKindSingle.
func (s *Schedule) Kind() string { return s.kind }

// StartAt returns the activation time.
func (s *Schedule) StartAt() time.Time { return s.startAt }

// EndAt returns the completion time for a paired schedule, nil for single.
func (s *Schedule) EndAt() *time.Time { return s.endAt }

// Activate transitions pending -> active. It is rejected while now is
// before StartAt. A single schedule has no end time to wait for, so once
// active it can be completed by a following Complete call.
func (s *Schedule) Activate(now time.Time) error {
	if s.Status() != ScheduleStatusPending {
		return NewDomainRuleViolation(s.ID(), "only a pending schedule can be activated")
	}
	if now.Before(s.startAt) {
		return NewDomainRuleViolation(s.ID(), "cannot activate before start_at")
	}
	prior := s.toState()
	s.setStatusDirect(ScheduleStatusActive)
	return s.recordEvent("schedule.activated", prior, func() interface{} { return s.toState() })
}

// Complete transitions active -> completed. For a paired schedule this
// requires now to be at or after EndAt; a single schedule may be completed
// immediately once active.
func (s *Schedule) Complete(now time.Time) error {
	if s.Status() != ScheduleStatusActive {
		return NewDomainRuleViolation(s.ID(), "only an active schedule can be completed")
	}
	if s.kind == ScheduleKindPaired && now.Before(*s.endAt) {
		return NewDomainRuleViolation(s.ID(), "cannot complete a paired schedule before end_at")
	}
	prior := s.toState()
	s.setStatusDirect(ScheduleStatusCompleted)
	return s.recordEvent("schedule.completed", prior, func() interface{} { return s.toState() })
}

// Cancel transitions pending or active to the terminal cancelled status.
// Completed and already-cancelled schedules cannot be cancelled.
func (s *Schedule) Cancel() error {
	switch s.Status() {
	case ScheduleStatusPending, ScheduleStatusActive:
	default:
		return NewDomainRuleViolation(s.ID(), "only a pending or active schedule can be cancelled")
	}
	prior := s.toState()
	s.setStatusDirect(ScheduleStatusCancelled)
	return s.recordEvent("schedule.cancelled", prior, func() interface{} { return s.toState() })
}

// ToSnapshot serialises the full current state for the snapshot store.
func (s *Schedule) ToSnapshot() (json.RawMessage, error) {
	return json.Marshal(s.toState())
}

// ToView projects the current state into its query-side row shape.
func (s *Schedule) ToView() ScheduleView {
	return ScheduleView{
		AggregateID:   s.ID(),
		CorrelationID: s.CorrelationID(),
		Version:       s.Version(),
		CreatedAt:     s.CreatedAt(),
		UpdatedAt:     s.UpdatedAt(),
		SubjectID:     s.subjectID,
		Kind:          s.kind,
		Status:        s.Status(),
		StartAt:       s.startAt,
		EndAt:         s.endAt,
	}
}

// LoadScheduleFromSnapshot reconstructs a Schedule from a persisted
// snapshot.
func LoadScheduleFromSnapshot(payload json.RawMessage) (*Schedule, error) {
	var st scheduleState
	if err := json.Unmarshal(payload, &st); err != nil {
		return nil, NewStorageError("failed to unmarshal schedule snapshot", err)
	}
	s := &Schedule{
		subjectID: st.SubjectID,
		kind:      st.Kind,
		startAt:   st.StartAt,
		endAt:     st.EndAt,
	}
	s.loadFromSnapshotBase(st.ID, st.CorrelationID, st.Status, st.Version, st.CreatedAt, st.UpdatedAt, nil)
	return s, nil
}

// ScheduleRepository is the persistence contract for Schedule aggregates.
type ScheduleRepository = Repository[*Schedule]
