package models

import "database/sql"

type Wallet struct {
	Address      string         `json:"address,omitempty" db:"address,omitempty"`
	UserID       sql.NullInt64  `json:"user_id,omitempty" db:"user_id,omitempty"`
	Balance      int64          `json:"balance,omitempty" db:"balance,omitempty"`
	LastFundedAt sql.NullString `json:"last_funded_at,omitempty" db:"last_funded_at,omitempty"`
	CreatedAt    string         `json:"created_at,omitempty" db:"created_at,omitempty"`
}
