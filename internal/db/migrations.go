package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'pay_app_status') THEN
			CREATE TYPE pay_app_status AS ENUM ('DRAFT', 'SUBMITTED', 'APPROVED', 'REJECTED', 'PAID');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'change_order_status') THEN
			CREATE TYPE change_order_status AS ENUM ('PENDING', 'APPROVED', 'REJECTED');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'signature_type') THEN
			CREATE TYPE signature_type AS ENUM ('CONTRACTOR', 'ARCHITECT', 'OWNER');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'document_type') THEN
			CREATE TYPE document_type AS ENUM ('PAY_APPLICATION', 'CHANGE_ORDER');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS projects (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(255) NOT NULL,
		owner_org_id UUID NOT NULL,
		contractor_org_id UUID NOT NULL,
		architect_name VARCHAR(255),
		original_contract NUMERIC(18,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS budget_items (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		project_id UUID NOT NULL REFERENCES projects(id),
		description TEXT NOT NULL,
		scheduled_value NUMERIC(18,2) NOT NULL,
		work_completed_previous NUMERIC(18,2) NOT NULL DEFAULT 0,
		work_completed_current NUMERIC(18,2) NOT NULL DEFAULT 0,
		materials_stored NUMERIC(18,2) NOT NULL DEFAULT 0,
		retainage_percent NUMERIC(5,2) NOT NULL DEFAULT 0,
		sort_order INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_budget_items_project_id ON budget_items (project_id);`,
	`CREATE TABLE IF NOT EXISTS change_orders (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		project_id UUID NOT NULL REFERENCES projects(id),
		number INT NOT NULL,
		description TEXT NOT NULL,
		amount NUMERIC(18,2) NOT NULL,
		status change_order_status NOT NULL DEFAULT 'PENDING',
		approved_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_change_orders_project_number ON change_orders (project_id, number);`,
	`CREATE TABLE IF NOT EXISTS pay_applications (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		project_id UUID NOT NULL REFERENCES projects(id),
		application_number INT NOT NULL,
		period_from DATE NOT NULL,
		period_to DATE NOT NULL,
		notes TEXT,
		status pay_app_status NOT NULL DEFAULT 'DRAFT',
		original_contract NUMERIC(18,2) NOT NULL DEFAULT 0,
		change_orders_total NUMERIC(18,2) NOT NULL DEFAULT 0,
		contract_to_date NUMERIC(18,2) NOT NULL DEFAULT 0,
		total_completed NUMERIC(18,2) NOT NULL DEFAULT 0,
		retainage_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		total_earned_less_retainage NUMERIC(18,2) NOT NULL DEFAULT 0,
		less_previous_certificates NUMERIC(18,2) NOT NULL DEFAULT 0,
		current_payment_due NUMERIC(18,2) NOT NULL DEFAULT 0,
		submitted_at TIMESTAMPTZ,
		approved_at TIMESTAMPTZ,
		rejected_at TIMESTAMPTZ,
		paid_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_pay_applications_project_number ON pay_applications (project_id, application_number);`,
	`CREATE INDEX IF NOT EXISTS idx_pay_applications_project_status ON pay_applications (project_id, status);`,
	`CREATE TABLE IF NOT EXISTS retainage_releases (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		project_id UUID NOT NULL REFERENCES projects(id),
		amount NUMERIC(18,2) NOT NULL,
		release_date DATE NOT NULL,
		description TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_retainage_releases_project_id ON retainage_releases (project_id);`,
	`CREATE TABLE IF NOT EXISTS signature_records (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		document_type document_type NOT NULL,
		document_id UUID NOT NULL,
		signature_type signature_type NOT NULL,
		signer_name VARCHAR(255) NOT NULL,
		signer_title VARCHAR(255),
		image_data BYTEA,
		signed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_signature_records_document_type ON signature_records (document_type, document_id, signature_type);`,
	`CREATE TABLE IF NOT EXISTS signature_requests (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		token VARCHAR(128) NOT NULL,
		document_type document_type NOT NULL,
		document_id UUID NOT NULL,
		signature_type signature_type NOT NULL,
		recipient_email VARCHAR(255) NOT NULL,
		recipient_name VARCHAR(255) NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ,
		cancelled_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_signature_requests_token ON signature_requests (token);`,
	`CREATE INDEX IF NOT EXISTS idx_signature_requests_document ON signature_requests (document_type, document_id);`,
	`CREATE TABLE IF NOT EXISTS fully_signed_flags (
		document_type document_type NOT NULL,
		document_id UUID NOT NULL,
		notified_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (document_type, document_id)
	);`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		project_id UUID NOT NULL,
		actor_name VARCHAR(255),
		action VARCHAR(64) NOT NULL,
		description TEXT,
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_audit_log_project_created ON audit_log (project_id, created_at DESC);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
