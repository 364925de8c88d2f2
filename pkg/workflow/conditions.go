package workflow

import (
	"context"

	"github.com/dukex/careflow/pkg/models"
)

func (e *Engine) defaultConditions() map[models.ConditionType]ConditionHandler {
	return map[models.ConditionType]ConditionHandler{
		models.ConditionPriorityCheck:   priorityCheck,
		models.ConditionTimeElapsed:     e.timeElapsed,
		models.ConditionStatusCheck:     statusCheck,
		models.ConditionDepartmentCheck: departmentCheck,
	}
}

func priorityCheck(_ context.Context, ticket *models.Ticket, config models.StepConfig) (bool, error) {
	expected := models.Priority(config.String("priority"))

	switch config.StringOr("operator", models.OperatorEquals) {
	case models.OperatorEquals:
		return ticket.Priority == expected, nil
	case models.OperatorNotEquals:
		return ticket.Priority != expected, nil
	case models.OperatorGreaterThan:
		return ticket.Priority.Rank() > expected.Rank(), nil
	default:
		return false, nil
	}
}

// timeElapsed holds when strictly more than config.hours have passed since the ticket was created.
func (e *Engine) timeElapsed(_ context.Context, ticket *models.Ticket, config models.StepConfig) (bool, error) {
	if ticket.CreatedAt == nil {
		return false, nil
	}

	elapsed := e.now().Sub(*ticket.CreatedAt)

	return elapsed.Seconds() > config.Float("hours")*3600, nil
}

func statusCheck(_ context.Context, ticket *models.Ticket, config models.StepConfig) (bool, error) {
	return ticket.Status == config.String("status"), nil
}

func departmentCheck(_ context.Context, ticket *models.Ticket, config models.StepConfig) (bool, error) {
	return ticket.DepartmentID == config.String("department_id"), nil
}
