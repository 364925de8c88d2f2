package postgresql

import "github.com/dukex/careflow/pkg/persistence/sqlbase"

func migrations() []sqlbase.Migration {
	return []sqlbase.Migration{
		{Version: 1, Name: "workflows", Statements: `
			CREATE TABLE workflows (
				id VARCHAR(64) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				category VARCHAR(100) NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT true,
				created_by VARCHAR(255) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_active ON workflows(is_active);
			CREATE INDEX idx_workflows_category ON workflows(category);

			-- config is kept as text so a malformed blob is stored and fails at execution time
			CREATE TABLE workflow_steps (
				id VARCHAR(64) PRIMARY KEY,
				workflow_id VARCHAR(64) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				step_order INTEGER NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				step_type VARCHAR(20) NOT NULL CHECK (step_type IN ('trigger', 'condition', 'action')),
				config TEXT NOT NULL DEFAULT '{}',
				next_step_id VARCHAR(64),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_workflow_steps_workflow_id ON workflow_steps(workflow_id, step_order);
		`},
		{Version: 2, Name: "tickets", Statements: `
			CREATE TABLE tickets (
				id VARCHAR(64) PRIMARY KEY,
				title VARCHAR(255) NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL DEFAULT 'open',
				priority VARCHAR(20) NOT NULL DEFAULT 'medium',
				category VARCHAR(100) NOT NULL DEFAULT '',
				patient_id VARCHAR(64) NOT NULL DEFAULT '',
				department_id VARCHAR(64) NOT NULL DEFAULT '',
				assigned_to VARCHAR(64),
				template_id VARCHAR(64),
				created_at TIMESTAMP WITH TIME ZONE,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				resolved_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_tickets_status ON tickets(status);

			CREATE TABLE notifications (
				id VARCHAR(64) PRIMARY KEY,
				user_id VARCHAR(64),
				title VARCHAR(255) NOT NULL,
				message TEXT NOT NULL,
				type VARCHAR(50) NOT NULL,
				related_ticket_id VARCHAR(64) NOT NULL DEFAULT '',
				is_read BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_notifications_user_id ON notifications(user_id);

			CREATE TABLE technicians (
				id VARCHAR(64) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				user_id VARCHAR(64) NOT NULL DEFAULT '',
				skills TEXT[] NOT NULL DEFAULT '{}',
				availability VARCHAR(20) NOT NULL DEFAULT 'available'
			);

			CREATE TABLE ticket_templates (
				id VARCHAR(64) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				category VARCHAR(100) NOT NULL,
				priority VARCHAR(20) NOT NULL DEFAULT 'medium',
				department_id VARCHAR(64) NOT NULL DEFAULT '',
				custom_fields JSONB,
				workflow_id VARCHAR(64) REFERENCES workflows(id) ON DELETE SET NULL,
				is_active BOOLEAN NOT NULL DEFAULT true,
				created_by VARCHAR(255) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);
		`},
		{Version: 3, Name: "executions", Statements: `
			CREATE TABLE workflow_executions (
				id VARCHAR(64) PRIMARY KEY,
				workflow_id VARCHAR(64) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				ticket_id VARCHAR(64) NOT NULL,
				current_step_id VARCHAR(64),
				status VARCHAR(20) NOT NULL CHECK (status IN ('running', 'completed', 'failed', 'paused')),
				context JSONB NOT NULL DEFAULT '{}',
				executed_steps JSONB NOT NULL DEFAULT '[]',
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE,
				error_message TEXT NOT NULL DEFAULT ''
			);

			CREATE INDEX idx_workflow_executions_workflow_id ON workflow_executions(workflow_id);
			CREATE INDEX idx_workflow_executions_ticket_id ON workflow_executions(ticket_id);
			CREATE INDEX idx_workflow_executions_started_at ON workflow_executions(started_at DESC);
		`},
		{Version: 4, Name: "execution_stopped", Statements: `
			ALTER TABLE workflow_executions ADD COLUMN stopped BOOLEAN NOT NULL DEFAULT false;
		`},
	}
}
