package models

import (
	"time"
)

// AssetAccount is one holder's balance of one asset. Balances are credited by
// the deposit sync worker (or an admin credit) and only move inside
// settlement transactions.
type AssetAccount struct {
	Holder    string    `gorm:"primaryKey" json:"holder"`
	Asset     string    `gorm:"primaryKey;type:varchar(64)" json:"asset"`
	Balance   int64     `gorm:"not null;default:0" json:"balance"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// AssetAllowance is a pre-authorized transfer amount from owner to spender,
// consumed by entry-fee payments.
type AssetAllowance struct {
	Owner     string    `gorm:"primaryKey" json:"owner"`
	Spender   string    `gorm:"primaryKey" json:"spender"`
	Asset     string    `gorm:"primaryKey;type:varchar(64)" json:"asset"`
	Amount    int64     `gorm:"not null;default:0" json:"amount"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Deposit records an external deposit already credited to a balance, keyed by
// the wallet service's deposit ID so the sync worker stays idempotent across
// retried poll windows.
type Deposit struct {
	ID         string    `gorm:"primaryKey" json:"id"` // wallet service deposit ID
	Holder     string    `gorm:"index;not null" json:"holder"`
	Asset      string    `gorm:"type:varchar(64);not null" json:"asset"`
	Amount     int64     `gorm:"not null" json:"amount"`
	TxHash     string    `json:"tx_hash,omitempty"` // raw chain tx, if any
	CreditedAt time.Time `json:"credited_at" gorm:"autoCreateTime"`
}
