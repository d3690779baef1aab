package models

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// KeyPrefix is prepended to every generated key string so keys are easy to
// recognize in logs and support tickets.
const KeyPrefix = "api-sentinel_pk_"

// DefaultMonthlyBudget is the budget assigned to newly created keys, in
// integer rupees.
const DefaultMonthlyBudget = 5000

// SentinelKey is the opaque bearer credential bound 1:1 to a project. It is
// the sole identity usage reports authenticate against.
type SentinelKey struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	KeyString     string    `gorm:"uniqueIndex;not null;size:64" json:"key_string"`
	ProjectID     uint      `gorm:"not null;index" json:"project_id"`
	MonthlyBudget int       `gorm:"not null;default:5000" json:"monthly_budget"`
	IsActive      bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (SentinelKey) TableName() string {
	return "sentinel_keys"
}

// SentinelKeyDetails is the SDK-facing snapshot returned by key
// verification: budget, rolling month spend and the cached display rate.
type SentinelKeyDetails struct {
	ProjectID     uint    `json:"project_id"`
	MonthlyBudget int     `json:"monthly_budget"`
	CurrentUsage  float64 `json:"current_usage"`
	USDToINRRate  float64 `json:"usd_to_inr_rate"`
}

// GenerateKeyString produces a new opaque key string with 256 bits of
// randomness behind the recognizable prefix.
func GenerateKeyString() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return KeyPrefix + base64.URLEncoding.EncodeToString(b)[:43], nil
}

// HasKeyPrefix reports whether a string looks like a sentinel key. Never
// a substitute for verification against the registry.
func HasKeyPrefix(s string) bool {
	return strings.HasPrefix(s, KeyPrefix)
}
