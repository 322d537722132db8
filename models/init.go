package models

import "gorm.io/gorm"

// Migrate creates or updates the tables owned by the board service. Users are
// migrated as well so a fresh database is usable for local development; in
// production the identity provider owns that table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Board{},
		&BoardMember{},
		&Task{},
		&Subtask{},
	)
}
