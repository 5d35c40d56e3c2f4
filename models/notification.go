package models

type NotificationType string

const (
	NotificationUpdateRequest NotificationType = "UPDATE_REQUEST"
	NotificationTaskAssigned  NotificationType = "TASK_ASSIGNED"
	NotificationTaskOverdue   NotificationType = "TASK_OVERDUE"
	NotificationIssueReported NotificationType = "ISSUE_REPORTED"
)

// Notification is a message surfaced to a single user
type Notification struct {
	BaseModel
	Type     NotificationType `gorm:"type:varchar(32);not null;index" json:"type"`
	Message  string           `gorm:"not null" json:"message"`
	UserID   string           `gorm:"type:uuid;not null;index" json:"userId"`
	SenderID *string          `gorm:"type:uuid" json:"senderId"`
	TeamID   *string          `gorm:"type:uuid;index" json:"teamId"`
	TaskID   *string          `gorm:"type:uuid" json:"taskId"`
	Read     bool             `gorm:"default:false" json:"read"`

	// Relations
	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}
