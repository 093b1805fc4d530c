package models

import (
	"time"
)

// LedgerConfig is the singleton settlement configuration row. Mutated only by
// the admin identity it names; never deleted.
type LedgerConfig struct {
	ID             uint      `gorm:"primaryKey" json:"-"` // always 1
	AdminID        string    `gorm:"not null" json:"admin_id"`
	AcceptedAsset  string    `gorm:"type:varchar(64);not null" json:"accepted_asset"`
	RewardAsset    string    `gorm:"type:varchar(64);not null" json:"reward_asset"`
	TreasuryID     string    `gorm:"not null" json:"treasury_id"`
	PoolID         string    `gorm:"not null" json:"pool_id"`
	FeeBasisPoints int64     `gorm:"not null;default:0" json:"fee_basis_points"` // 0..10000
	Paused         bool      `gorm:"not null;default:false" json:"paused"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// EntryFee is the per-tournament fee schedule. A missing row (or amount 0)
// rejects payment attempts.
type EntryFee struct {
	TournamentID string    `gorm:"primaryKey" json:"tournament_id"`
	Name         string    `json:"name"`
	Amount       int64     `gorm:"not null;default:0" json:"amount"` // smallest currency unit
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
