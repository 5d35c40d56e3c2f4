package models

import "time"

type TaskStatus string

const (
	TaskTodo       TaskStatus = "TODO"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskInReview   TaskStatus = "IN_REVIEW"
	TaskDone       TaskStatus = "DONE"
)

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Task is a unit of work assigned to a single user
type Task struct {
	BaseModel
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `gorm:"type:varchar(16);default:'TODO';index" json:"status"`
	Priority    Priority   `gorm:"type:varchar(16);default:'MEDIUM'" json:"priority"`
	DueDate     *time.Time `json:"dueDate"`

	AssigneeID string  `gorm:"type:uuid;not null;index" json:"assigneeId"`
	CreatorID  string  `gorm:"type:uuid;not null;index" json:"creatorId"`
	TeamID     *string `gorm:"type:uuid;index" json:"teamId"`

	OverdueNotifiedAt *time.Time `json:"-"`
	Overdue           bool       `gorm:"-" json:"overdue"`

	// Relations
	Assignee *User   `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Creator  *User   `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Team     *Team   `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Issues   []Issue `gorm:"foreignKey:TaskID" json:"issues,omitempty"`
}

// IsOverdue reports whether the task is past due and still open at now.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != TaskDone
}

// MarkOverdue fills the serialised overdue flag for now.
func (t *Task) MarkOverdue(now time.Time) {
	t.Overdue = t.IsOverdue(now)
}
