package models

import "time"

// UsageEvent is one immutable reported unit of spend attributed to a
// sentinel key. Events are append-only; they are never updated and only
// disappear through cascading project deletion.
type UsageEvent struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SentinelKeyID uint      `gorm:"not null;index" json:"sentinel_key_id"`
	Cost          float64   `gorm:"not null" json:"cost"`
	Metadata      Metadata  `json:"metadata"`
	Timestamp     time.Time `gorm:"not null;autoCreateTime;index" json:"timestamp"`
}

func (UsageEvent) TableName() string {
	return "usage_events"
}

type UsageReportRequest struct {
	Cost     float64  `json:"cost"`
	Metadata Metadata `json:"usage_metadata"`
}

type AppendUsageParams struct {
	SentinelKeyID uint
	Cost          float64
	Metadata      Metadata
}
