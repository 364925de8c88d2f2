package models

// Ticket lifecycle events matched against trigger steps (config key "trigger_type").
const (
	EventTicketCreated  = "ticket_created"
	EventTicketUpdated  = "ticket_updated"
	EventTemplateUsed   = "template_used"
	EventManual         = "manual"
	EventScheduledCheck = "scheduled_check"
)

// Predicates of a trigger step's "conditions" list.
const (
	TriggerCategoryMatch   = "category_match"
	TriggerPriorityMatch   = "priority_match"
	TriggerDepartmentMatch = "department_match"
)
