package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/lexbridge-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Catalog (source datasets)
		// =========================
		&types.Topic{},
		&types.Story{},
		&types.Exploration{},

		// =========================
		// Derived
		// =========================
		&types.OpportunitySummary{},

		// =========================
		// Jobs / worker
		// =========================
		&types.JobRun{},
		&types.JobRunEvent{},
	)
}

func EnsureJobIndexes(db *gorm.DB) error {
	// Claim scans filter on status + heartbeat age and order by created_at.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_job_run_claim
		ON job_run (status, created_at)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_job_run_claim: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_job_run_entity
		ON job_run (entity_type, entity_id, created_at)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_job_run_entity: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_job_run_event_job_created
		ON job_run_event (job_id, created_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_job_run_event_job_created: %w", err)
	}
	return nil
}

func EnsureOpportunityIndexes(db *gorm.DB) error {
	// The digest id already encodes the triple; the unique index guards
	// against writers that bypass the key helper.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_opportunity_summary_triple
		ON opportunity_summary (topic_id, story_id, exploration_id)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_opportunity_summary_triple: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_opportunity_summary_topic_created
		ON opportunity_summary (topic_id, created_at)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_opportunity_summary_topic_created: %w", err)
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureJobIndexes(s.db); err != nil {
		s.log.Error("Job index migration failed", "error", err)
		return err
	}
	if err := EnsureOpportunityIndexes(s.db); err != nil {
		s.log.Error("Opportunity index migration failed", "error", err)
		return err
	}
	return nil
}
