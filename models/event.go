package models

import (
	"time"
)

// SettlementEvent is one row of the append-only settlement log. Seq gives the
// SSE stream and archiver a strictly increasing cursor; the log alone is
// sufficient to reconstruct ledger state.
type SettlementEvent struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	Seq          uint64    `gorm:"autoIncrement;uniqueIndex" json:"seq"`
	Type         string    `gorm:"type:varchar(64);not null;index" json:"type"`
	TournamentID string    `gorm:"index" json:"tournament_id,omitempty"`
	Actor        string    `gorm:"index" json:"actor,omitempty"`
	Asset        string    `gorm:"type:varchar(64)" json:"asset,omitempty"`
	Amount       int64     `json:"amount,omitempty"`
	Payload      string    `gorm:"type:jsonb" json:"payload,omitempty"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}
