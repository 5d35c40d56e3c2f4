package models

import "time"

// Team groups users under a leader
type Team struct {
	BaseModel
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	LeaderID    string `gorm:"type:uuid;not null;index" json:"leaderId"`

	// Relations
	Leader   *User        `gorm:"foreignKey:LeaderID" json:"leader,omitempty"`
	Members  []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`
	Projects []Project    `gorm:"many2many:project_teams" json:"projects,omitempty"`
}

// TeamMember is the join row between a team and a user
type TeamMember struct {
	TeamID   string    `gorm:"type:uuid;primaryKey" json:"teamId"`
	UserID   string    `gorm:"type:uuid;primaryKey;index" json:"userId"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joinedAt"`

	// Relations
	Team *Team `json:"-"`
	User *User `json:"user,omitempty"`
}

// MemberIDs returns the user ids of the loaded members.
func (t *Team) MemberIDs() []string {
	ids := make([]string, 0, len(t.Members))
	for _, m := range t.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}
