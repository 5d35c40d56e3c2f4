package models

type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "PLANNING"
	ProjectActive    ProjectStatus = "ACTIVE"
	ProjectOnHold    ProjectStatus = "ON_HOLD"
	ProjectCompleted ProjectStatus = "COMPLETED"
)

// Project is worked on by one or more teams
type Project struct {
	BaseModel
	Name        string        `gorm:"not null" json:"name"`
	Description string        `json:"description"`
	Status      ProjectStatus `gorm:"type:varchar(16);default:'PLANNING'" json:"status"`
	CreatorID   string        `gorm:"type:uuid;not null" json:"creatorId"`

	// Relations
	Teams []Team `gorm:"many2many:project_teams" json:"teams,omitempty"`
}
