package models

// ActionType selects the handler of an action step (config key "action_type").
type ActionType string

const (
	ActionAssignTicket     ActionType = "assign_ticket"
	ActionUpdatePriority   ActionType = "update_priority"
	ActionSendNotification ActionType = "send_notification"
	ActionSetSLA           ActionType = "set_sla"
	ActionEscalateTicket   ActionType = "escalate_ticket"
	ActionAutoClose        ActionType = "auto_close"
)

// Assignment rules of the assign_ticket action.
const (
	AssignmentRuleAuto         = "auto"
	AssignmentRuleSpecificUser = "specific_user"
)

// Defaults applied by send_notification when the step config leaves them out.
const (
	DefaultNotificationTitle   = "Workflow Notification"
	DefaultNotificationMessage = "Ticket workflow action completed"
	DefaultNotificationType    = "info"
)
