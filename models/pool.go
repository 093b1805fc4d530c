package models

import (
	"time"
)

// PrizePool tracks one tournament's escrowed prize funds. Total grows via
// funding and entry-fee pool shares, and shrinks only through claims.
type PrizePool struct {
	TournamentID  string     `gorm:"primaryKey" json:"tournament_id"`
	Total         int64      `gorm:"not null;default:0" json:"total"`
	Declared      bool       `gorm:"not null;default:false" json:"declared"` // one-way false -> true
	DeclaredTotal int64      `gorm:"not null;default:0" json:"declared_total"`
	Archived      bool       `gorm:"not null;default:false;index" json:"archived"`
	ArchivedAt    *time.Time `json:"archived_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// WinnerShare is one winner's declared allocation for one tournament, plus
// its one-way claim flag.
type WinnerShare struct {
	TournamentID string     `gorm:"primaryKey" json:"tournament_id"`
	WinnerID     string     `gorm:"primaryKey;index" json:"winner_id"`
	Amount       int64      `gorm:"not null" json:"amount"`
	Claimed      bool       `gorm:"not null;default:false" json:"claimed"`
	ClaimedAt    *time.Time `json:"claimed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}
