package models

// Role is the organisational tier of a user.
type Role string

const (
	RoleHead     Role = "HEAD"
	RoleManager  Role = "MANAGER"
	RoleEmployee Role = "EMPLOYEE"
)

func (r Role) Valid() bool {
	switch r {
	case RoleHead, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// User represents an account in the system
type User struct {
	BaseModel

	// Authentication fields
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	TokenVersion int    `gorm:"default:0" json:"-"`

	// Profile information
	Name string `gorm:"not null" json:"name"`

	// Organisation
	Role      Role    `gorm:"type:varchar(16);not null;default:'EMPLOYEE';index" json:"role"`
	ManagerID *string `gorm:"type:uuid;index" json:"managerId"` // only set for EMPLOYEE, references a MANAGER
	IsActive  bool    `gorm:"default:true" json:"isActive"`

	// Relations
	Manager *User `gorm:"foreignKey:ManagerID" json:"manager,omitempty"`
}
