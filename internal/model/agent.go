package model

import "time"

// Agent maps a PBX extension to a human agent, used only to enrich
// reconciled records with a display name.
type Agent struct {
	ID          int64     `json:"-" gorm:"column:id;primaryKey;autoIncrement"`
	Extension   string    `json:"extension" gorm:"column:extension;uniqueIndex"`
	FirstName   string    `json:"first_name,omitempty" gorm:"column:first_name"`
	LastName    string    `json:"last_name,omitempty" gorm:"column:last_name"`
	DisplayName string    `json:"display_name,omitempty" gorm:"column:display_name"`
	CreatedAt   time.Time `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Agent) TableName() string {
	return "agents"
}

// Name returns the best display name available for the agent.
func (a *Agent) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	if a.FirstName == "" {
		return a.LastName
	}
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}
