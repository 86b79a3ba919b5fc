package migrations

import "gorm.io/gorm"

// migration001Up creates extensions and custom types
func migration001Up(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return err
	}

	return db.Exec(`
        CREATE TYPE attendance_state AS ENUM (
            'none',
            'joined',
            'waitlisted'
        )
    `).Error
}

// migration001Down drops the custom types
func migration001Down(db *gorm.DB) error {
	// NOTE: the UUID extension is left in place, other applications may use it
	return db.Exec("DROP TYPE IF EXISTS attendance_state CASCADE").Error
}
