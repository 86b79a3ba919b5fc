package migrations

import "gorm.io/gorm"

// migration003Up creates indexes and constraints
func migration003Up(db *gorm.DB) error {
	statements := []string{
		// One participation record per (event, user) pair
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_participations_event_user
            ON participations (event_id, user_id)`,

		// Waitlist ordering: joined_at ascending, sequence breaks ties
		`CREATE INDEX IF NOT EXISTS idx_participations_waitlist
            ON participations (event_id, joined_at, waitlist_seq)
            WHERE state = 'waitlisted'`,

		// Joined-count aggregation
		`CREATE INDEX IF NOT EXISTS idx_participations_joined
            ON participations (event_id)
            WHERE state = 'joined'`,

		// Outbox polling
		`CREATE INDEX IF NOT EXISTS idx_promotion_outbox_pending
            ON promotion_outbox (created_at)
            WHERE dispatched_at IS NULL`,

		// Attendee bounds sanity
		`ALTER TABLE events ADD CONSTRAINT chk_events_bounds
            CHECK (min_attendees >= 1 AND max_attendees >= min_attendees)`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// migration003Down drops indexes and constraints
func migration003Down(db *gorm.DB) error {
	statements := []string{
		"ALTER TABLE events DROP CONSTRAINT IF EXISTS chk_events_bounds",
		"DROP INDEX IF EXISTS idx_promotion_outbox_pending",
		"DROP INDEX IF EXISTS idx_participations_joined",
		"DROP INDEX IF EXISTS idx_participations_waitlist",
		"DROP INDEX IF EXISTS idx_participations_event_user",
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
