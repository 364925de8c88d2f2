// Package config loads workflow definitions from YAML files
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrInvalidDefinition = errors.New("invalid workflow definition")

// WorkflowFile represents the structure of a workflows.yaml file
type WorkflowFile struct {
	CreatedBy string               `yaml:"created_by"`
	Workflows []WorkflowDefinition `yaml:"workflows"`
}

// WorkflowDefinition is a workflow with its chain of steps. Steps link to each
// other by name through Next; an empty Next ends the chain.
type WorkflowDefinition struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Category    string           `yaml:"category"`
	Steps       []StepDefinition `yaml:"steps"`
}

// StepDefinition represents a step in the YAML file
type StepDefinition struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Type        string         `yaml:"type"`
	Config      map[string]any `yaml:"config"`
	Next        string         `yaml:"next"`
}

// LoadWorkflowFile reads and validates a workflow definition file
func LoadWorkflowFile(filepath string) (WorkflowFile, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return WorkflowFile{}, fmt.Errorf("failed to read workflow file %s: %w", filepath, err)
	}

	return ParseWorkflowFile(data)
}

// ParseWorkflowFile decodes YAML workflow definitions
func ParseWorkflowFile(data []byte) (WorkflowFile, error) {
	var file WorkflowFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return WorkflowFile{}, fmt.Errorf("failed to parse YAML workflow file: %w", err)
	}

	if file.CreatedBy == "" {
		file.CreatedBy = "import"
	}

	if err := ValidateWorkflowFile(file); err != nil {
		return WorkflowFile{}, err
	}

	return file, nil
}

// ValidateWorkflowFile checks the structure of the definitions. Step configs are
// checked later against the step schemas when the steps are added.
func ValidateWorkflowFile(file WorkflowFile) error {
	if len(file.Workflows) == 0 {
		return fmt.Errorf("%w: at least one workflow must be defined", ErrInvalidDefinition)
	}

	for i, definition := range file.Workflows {
		if definition.Name == "" {
			return fmt.Errorf("%w: workflows[%d]: name is required", ErrInvalidDefinition, i)
		}

		names := make(map[string]bool, len(definition.Steps))

		for j, step := range definition.Steps {
			if step.Name == "" {
				return fmt.Errorf("%w: %s.steps[%d]: name is required", ErrInvalidDefinition, definition.Name, j)
			}

			if step.Type == "" {
				return fmt.Errorf("%w: %s.steps[%d]: type is required", ErrInvalidDefinition, definition.Name, j)
			}

			if names[step.Name] {
				return fmt.Errorf("%w: %s: duplicate step name '%s'", ErrInvalidDefinition, definition.Name, step.Name)
			}

			names[step.Name] = true
		}

		for _, step := range definition.Steps {
			if step.Next != "" && !names[step.Next] {
				return fmt.Errorf("%w: %s.%s: next step '%s' is not defined", ErrInvalidDefinition, definition.Name, step.Name, step.Next)
			}
		}
	}

	return nil
}
