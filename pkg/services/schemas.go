package services

import (
	"fmt"
	"strings"

	"github.com/dukex/careflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

var priorityEnum = []any{"low", "medium", "high", "critical"}

var triggerSchema = map[string]any{
	"type":     "object",
	"required": []any{"trigger_type"},
	"properties": map[string]any{
		"trigger_type": map[string]any{"type": "string", "minLength": 1},
		"conditions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"type", "value"},
				"properties": map[string]any{
					"type": map[string]any{"type": "string", "minLength": 1},
				},
			},
		},
	},
}

var actionSchemas = map[models.ActionType]map[string]any{
	models.ActionAssignTicket: {
		"properties": map[string]any{
			"assignment_rule": map[string]any{"enum": []any{models.AssignmentRuleAuto, models.AssignmentRuleSpecificUser}},
			"user_id":         map[string]any{"type": "string"},
		},
		"if": map[string]any{
			"required":   []any{"assignment_rule"},
			"properties": map[string]any{"assignment_rule": map[string]any{"const": models.AssignmentRuleSpecificUser}},
		},
		"then": map[string]any{
			"required":   []any{"user_id"},
			"properties": map[string]any{"user_id": map[string]any{"minLength": 1}},
		},
	},
	models.ActionUpdatePriority: {
		"required":   []any{"priority"},
		"properties": map[string]any{"priority": map[string]any{"enum": priorityEnum}},
	},
	models.ActionSendNotification: {
		"properties": map[string]any{
			"user_id":           map[string]any{"type": "string"},
			"title":             map[string]any{"type": "string"},
			"message":           map[string]any{"type": "string"},
			"notification_type": map[string]any{"type": "string"},
		},
	},
	models.ActionSetSLA: {
		"properties": map[string]any{"hours": map[string]any{"type": "number", "minimum": 0}},
	},
}

var conditionSchemas = map[models.ConditionType]map[string]any{
	models.ConditionPriorityCheck: {
		"required": []any{"priority"},
		"properties": map[string]any{
			"priority": map[string]any{"enum": priorityEnum},
			"operator": map[string]any{"enum": []any{models.OperatorEquals, models.OperatorNotEquals, models.OperatorGreaterThan}},
		},
	},
	models.ConditionTimeElapsed: {
		"required":   []any{"hours"},
		"properties": map[string]any{"hours": map[string]any{"type": "number", "minimum": 0}},
	},
	models.ConditionStatusCheck: {
		"required":   []any{"status"},
		"properties": map[string]any{"status": map[string]any{"type": "string", "minLength": 1}},
	},
	models.ConditionDepartmentCheck: {
		"required":   []any{"department_id"},
		"properties": map[string]any{"department_id": map[string]any{"type": "string", "minLength": 1}},
	},
}

// stepSchema returns the JSON schema a step config must satisfy. Action and condition
// types without a dedicated schema only need their type key; the engine skips them.
func stepSchema(stepType models.StepType, config map[string]any) (map[string]any, error) {
	switch stepType {
	case models.StepTypeTrigger:
		return triggerSchema, nil
	case models.StepTypeAction:
		return typedSchema("action_type", actionSchemas[models.ActionType(stringValue(config["action_type"]))]), nil
	case models.StepTypeCondition:
		return typedSchema("condition_type", conditionSchemas[models.ConditionType(stringValue(config["condition_type"]))]), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStepType, stepType)
	}
}

func typedSchema(typeKey string, specific map[string]any) map[string]any {
	base := map[string]any{
		"type":       "object",
		"required":   []any{typeKey},
		"properties": map[string]any{typeKey: map[string]any{"type": "string", "minLength": 1}},
	}

	if specific == nil {
		return base
	}

	return map[string]any{"allOf": []any{base, specific}}
}

// ValidateStepConfig checks config against the schema of its step, action or condition type.
func ValidateStepConfig(stepType models.StepType, config map[string]any) error {
	if config == nil {
		config = map[string]any{}
	}

	schema, err := stepSchema(stepType, config)
	if err != nil {
		return err
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(config))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidStepConfig, err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			messages = append(messages, resultErr.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidStepConfig, strings.Join(messages, "; "))
	}

	return nil
}

func stringValue(value any) string {
	s, _ := value.(string)

	return s
}
