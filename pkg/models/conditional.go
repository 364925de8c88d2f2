package models

// ConditionType selects the handler of a condition step (config key "condition_type").
type ConditionType string

const (
	ConditionPriorityCheck   ConditionType = "priority_check"
	ConditionTimeElapsed     ConditionType = "time_elapsed"
	ConditionStatusCheck     ConditionType = "status_check"
	ConditionDepartmentCheck ConditionType = "department_check"
)

// Operators of the priority_check condition.
const (
	OperatorEquals      = "equals"
	OperatorNotEquals   = "not_equals"
	OperatorGreaterThan = "greater_than"
)
