package models

import (
	"time"
)

// ResultSubmitter is an identity authorized to declare tournament winners.
// Admin-managed; the admin itself is seeded here at bootstrap.
type ResultSubmitter struct {
	Identity  string    `gorm:"primaryKey" json:"identity"`
	AddedBy   string    `json:"added_by"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
