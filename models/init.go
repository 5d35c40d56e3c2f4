package models

import "gorm.io/gorm"

// Migrate creates or updates every table the service uses. The
// project_teams join table is created from the many2many tags.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Team{},
		&TeamMember{},
		&Project{},
		&Task{},
		&Issue{},
		&Notification{},
	)
}
