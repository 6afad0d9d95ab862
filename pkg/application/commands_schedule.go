package application

import (
	"context"
	"time"

	"github.com/slapcommerce/core/pkg/domain"
	"go.uber.org/fx"
)

// CreateScheduleCommand starts a new pending Schedule governing SubjectID.
// Kind selects domain.ScheduleKindPaired (EndAt required) or
// domain.ScheduleKindSingle (EndAt ignored).
type CreateScheduleCommand struct {
	ID            string     `validate:"required,uuid4"`
	CorrelationID string     `validate:"required,uuid4"`
	UserID        string     `validate:"required"`
	SubjectID     string     `validate:"required"`
	Kind          string     `validate:"required,oneof=paired single"`
	StartAt       time.Time  `validate:"required"`
	EndAt         *time.Time `validate:"omitempty"`
}

func (c CreateScheduleCommand) CommandType() string { return "CreateSchedule" }
func (c CreateScheduleCommand) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}
	if c.Kind == domain.ScheduleKindPaired && c.EndAt == nil {
		return domain.NewValidationError("end_at", "end_at is required for a paired schedule")
	}
	return nil
}

// ActivateScheduleCommand transitions a pending Schedule to active once wall
// clock time reaches StartAt.
type ActivateScheduleCommand struct {
	ID              string    `validate:"required,uuid4"`
	CorrelationID   string    `validate:"required,uuid4"`
	UserID          string    `validate:"required"`
	ExpectedVersion int64     `validate:"gte=0"`
	Now             time.Time `validate:"required"`
}

func (c ActivateScheduleCommand) CommandType() string { return "ActivateSchedule" }
func (c ActivateScheduleCommand) Validate() error     { return validateStruct(c) }

// CompleteScheduleCommand transitions an active Schedule to completed.
type CompleteScheduleCommand struct {
	ID              string    `validate:"required,uuid4"`
	CorrelationID   string    `validate:"required,uuid4"`
	UserID          string    `validate:"required"`
	ExpectedVersion int64     `validate:"gte=0"`
	Now             time.Time `validate:"required"`
}

func (c CompleteScheduleCommand) CommandType() string { return "CompleteSchedule" }
func (c CompleteScheduleCommand) Validate() error     { return validateStruct(c) }

// CancelScheduleCommand transitions a pending or active Schedule to the
// terminal cancelled status.
type CancelScheduleCommand struct {
	ID              string `validate:"required,uuid4"`
	CorrelationID   string `validate:"required,uuid4"`
	UserID          string `validate:"required"`
	ExpectedVersion int64  `validate:"gte=0"`
}

func (c CancelScheduleCommand) CommandType() string { return "CancelSchedule" }
func (c CancelScheduleCommand) Validate() error     { return validateStruct(c) }

type scheduleCommandHandlers struct {
	uow domain.UnitOfWork
}

// NewScheduleCommandHandlers constructs the handler bundle.
func NewScheduleCommandHandlers(uow domain.UnitOfWork) *scheduleCommandHandlers {
	return &scheduleCommandHandlers{uow: uow}
}

func (h *scheduleCommandHandlers) create(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(CreateScheduleCommand)
	result, err := h.uow.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) (interface{}, error) {
		var schedule *domain.Schedule
		var err error
		if cmd.Kind == domain.ScheduleKindPaired {
			schedule, err = domain.NewPairedSchedule(cmd.ID, cmd.CorrelationID, cmd.SubjectID, cmd.StartAt, *cmd.EndAt)
		} else {
			schedule, err = domain.NewSingleSchedule(cmd.ID, cmd.CorrelationID, cmd.SubjectID, cmd.StartAt)
		}
		if err != nil {
			return nil, err
		}
		schedule.SetUserID(cmd.UserID)
		if err := persistAggregate(ctx, repos, schedule); err != nil {
			return nil, err
		}
		return schedule.Version(), nil
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("schedule created", "scheduleId", cmd.ID, "subjectId", cmd.SubjectID)
	return commandResponse(cmd.ID, result.(int64)), nil
}

func (h *scheduleCommandHandlers) activate(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(ActivateScheduleCommand)
	version, err := h.mutate(ctx, cmd.ID, cmd.UserID, cmd.ExpectedVersion, func(s *domain.Schedule) error {
		return s.Activate(cmd.Now)
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("schedule activated", "scheduleId", cmd.ID)
	return commandResponse(cmd.ID, version), nil
}

func (h *scheduleCommandHandlers) complete(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(CompleteScheduleCommand)
	version, err := h.mutate(ctx, cmd.ID, cmd.UserID, cmd.ExpectedVersion, func(s *domain.Schedule) error {
		return s.Complete(cmd.Now)
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("schedule completed", "scheduleId", cmd.ID)
	return commandResponse(cmd.ID, version), nil
}

func (h *scheduleCommandHandlers) cancel(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(CancelScheduleCommand)
	version, err := h.mutate(ctx, cmd.ID, cmd.UserID, cmd.ExpectedVersion, func(s *domain.Schedule) error {
		return s.Cancel()
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("schedule cancelled", "scheduleId", cmd.ID)
	return commandResponse(cmd.ID, version), nil
}

func (h *scheduleCommandHandlers) mutate(ctx context.Context, id, userID string, expectedVersion int64, fn func(*domain.Schedule) error) (int64, error) {
	result, err := h.uow.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) (interface{}, error) {
		snapshot, err := loadSnapshotChecked(ctx, repos, id, expectedVersion)
		if err != nil {
			return nil, err
		}
		schedule, err := domain.LoadScheduleFromSnapshot(snapshot.Payload)
		if err != nil {
			return nil, err
		}
		schedule.SetUserID(userID)
		if err := fn(schedule); err != nil {
			return nil, err
		}
		if err := persistAggregate(ctx, repos, schedule); err != nil {
			return nil, err
		}
		return schedule.Version(), nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

// ProvideScheduleCommandHandlers registers every schedule command against
// the command bus's fx group.
func ProvideScheduleCommandHandlers(h *scheduleCommandHandlers) []CommandHandlerEntry {
	return []CommandHandlerEntry{
		{Type: "CreateSchedule", Handler: h.create},
		{Type: "ActivateSchedule", Handler: h.activate},
		{Type: "CompleteSchedule", Handler: h.complete},
		{Type: "CancelSchedule", Handler: h.cancel},
	}
}

// ScheduleCommandModule wires the schedule command handler bundle into the
// fx "command_handlers" group.
var ScheduleCommandModule = fx.Provide(
	NewScheduleCommandHandlers,
	fx.Annotate(ProvideScheduleCommandHandlers, fx.ResultTags(`group:"command_handlers,flatten"`)),
)
