package models

import "time"

type Project struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"not null;index;size:255" json:"name"`
	OwnerID   uint      `gorm:"not null;index" json:"owner_id"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`

	SentinelKey *SentinelKey `gorm:"foreignKey:ProjectID" json:"-"`
}

func (Project) TableName() string {
	return "projects"
}

type ProjectCreateRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
}

// ProjectResponse is returned on creation and listing. SentinelKey carries
// the full key string: it is the only credential the project ever gets.
type ProjectResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	OwnerID     uint   `json:"owner_id"`
	SentinelKey string `json:"sentinel_key"`
}

// ProjectStats is the dashboard snapshot for one project's current
// billing window.
type ProjectStats struct {
	ProjectID      uint      `json:"project_id"`
	ProjectName    string    `json:"project_name"`
	MonthlyBudget  int       `json:"monthly_budget"`
	CurrentUsage   float64   `json:"current_usage"`
	UsageStartDate time.Time `json:"usage_start_date"`
	UsageEndDate   time.Time `json:"usage_end_date"`
}
