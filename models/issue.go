package models

type IssueStatus string

const (
	IssueOpen       IssueStatus = "OPEN"
	IssueInProgress IssueStatus = "IN_PROGRESS"
	IssueResolved   IssueStatus = "RESOLVED"
	IssueClosed     IssueStatus = "CLOSED"
)

// Issue is a reported problem, optionally raised against a task
type Issue struct {
	BaseModel
	Title       string      `gorm:"not null" json:"title"`
	Description string      `json:"description"`
	Status      IssueStatus `gorm:"type:varchar(16);default:'OPEN';index" json:"status"`
	Priority    Priority    `gorm:"type:varchar(16);default:'MEDIUM'" json:"priority"`
	CreatorID   string      `gorm:"type:uuid;not null;index" json:"creatorId"`
	TaskID      *string     `gorm:"type:uuid;index" json:"taskId"`

	// Relations
	Creator *User `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Task    *Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
}
