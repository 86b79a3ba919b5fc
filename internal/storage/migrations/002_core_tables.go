package migrations

import "gorm.io/gorm"

// migration002Up creates the core tables
func migration002Up(db *gorm.DB) error {
	if err := db.Exec(`
        CREATE TABLE IF NOT EXISTS events (
            id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
            name VARCHAR(100) NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            owner_id UUID NOT NULL,
            start_date TIMESTAMP WITH TIME ZONE NOT NULL,
            min_attendees INTEGER NOT NULL,
            max_attendees INTEGER NOT NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )
    `).Error; err != nil {
		return err
	}

	if err := db.Exec(`
        CREATE TABLE IF NOT EXISTS participations (
            id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
            event_id UUID NOT NULL REFERENCES events(id),
            user_id UUID NOT NULL,
            state attendance_state NOT NULL DEFAULT 'none',
            interested BOOLEAN NOT NULL DEFAULT FALSE,
            joined_at TIMESTAMP WITH TIME ZONE,
            waitlist_seq BIGINT NOT NULL DEFAULT 0,
            version INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )
    `).Error; err != nil {
		return err
	}

	if err := db.Exec(`
        CREATE TABLE IF NOT EXISTS promotion_outbox (
            id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
            event_id UUID NOT NULL REFERENCES events(id),
            user_id UUID NOT NULL,
            occurred_at TIMESTAMP WITH TIME ZONE NOT NULL,
            attempts INTEGER NOT NULL DEFAULT 0,
            dispatched_at TIMESTAMP WITH TIME ZONE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )
    `).Error; err != nil {
		return err
	}

	return db.Exec(`
        CREATE TABLE IF NOT EXISTS idempotency_outcomes (
            key VARCHAR(64) PRIMARY KEY,
            event_id UUID NOT NULL,
            user_id UUID NOT NULL,
            state attendance_state NOT NULL,
            interested BOOLEAN NOT NULL,
            joined_count INTEGER NOT NULL,
            version INTEGER NOT NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )
    `).Error
}

// migration002Down drops the core tables
func migration002Down(db *gorm.DB) error {
	for _, table := range []string{"idempotency_outcomes", "promotion_outbox", "participations", "events"} {
		if err := db.Exec("DROP TABLE IF EXISTS " + table + " CASCADE").Error; err != nil {
			return err
		}
	}
	return nil
}
