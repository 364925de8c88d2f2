package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// StepType is the kind of node a step represents in a workflow chain.
type StepType string

const (
	StepTypeTrigger   StepType = "trigger"
	StepTypeCondition StepType = "condition"
	StepTypeAction    StepType = "action"
)

// IsValid reports whether the step type is one of the known kinds.
func (t StepType) IsValid() bool {
	switch t {
	case StepTypeTrigger, StepTypeCondition, StepTypeAction:
		return true
	default:
		return false
	}
}

// WorkflowStep is one node of a workflow chain. Traversal follows NextStepID;
// StepOrder only marks the entry point (1) and the display order.
type WorkflowStep struct {
	ID          string          `json:"id"`
	WorkflowID  string          `json:"workflow_id"`
	StepOrder   int             `json:"step_order"             validate:"min=1"`
	Name        string          `json:"name"                   validate:"required"`
	Description string          `json:"description,omitempty"`
	StepType    StepType        `json:"step_type"              validate:"required,oneof=trigger condition action"`
	Config      json.RawMessage `json:"config"`
	NextStepID  *string         `json:"next_step_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// DecodeConfig parses the opaque config blob of the step.
func (s *WorkflowStep) DecodeConfig() (StepConfig, error) {
	config := StepConfig{}
	if len(s.Config) == 0 {
		return config, nil
	}

	err := json.Unmarshal(s.Config, &config)
	if err != nil {
		return nil, fmt.Errorf("invalid config for step %s: %w", s.ID, err)
	}

	if config == nil {
		config = StepConfig{}
	}

	return config, nil
}

// StepConfig is the decoded key-value payload of a step. Its shape depends on
// the step type and on the action/condition/trigger type it names.
type StepConfig map[string]any

// String returns the value under key formatted as a string, "" when absent or null.
func (c StepConfig) String(key string) string {
	value, ok := c[key]
	if !ok || value == nil {
		return ""
	}

	if s, ok := value.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", value)
}

// StringOr returns the string value under key, or fallback when it is empty.
func (c StepConfig) StringOr(key, fallback string) string {
	if s := c.String(key); s != "" {
		return s
	}

	return fallback
}

// Float returns the numeric value under key. Strings are not coerced.
func (c StepConfig) Float(key string) float64 {
	switch v := c[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()

		return f
	default:
		return 0
	}
}

// TriggerCondition is one predicate of a trigger step's conditions list.
type TriggerCondition struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// TriggerConditions returns the ordered predicates under the "conditions" key.
func (c StepConfig) TriggerConditions() []TriggerCondition {
	raw, ok := c["conditions"].([]any)
	if !ok {
		return nil
	}

	conditions := make([]TriggerCondition, 0, len(raw))

	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}

		conditionType, _ := entry["type"].(string)
		conditions = append(conditions, TriggerCondition{Type: conditionType, Value: entry["value"]})
	}

	return conditions
}

// MustConfig marshals a config map into a step config blob. It panics on
// values that cannot be encoded and is meant for fixtures and seeds.
func MustConfig(config map[string]any) json.RawMessage {
	data, err := json.Marshal(config)
	if err != nil {
		panic(err)
	}

	return data
}
