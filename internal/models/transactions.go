package models

import "database/sql"

type Transaction struct {
	ID              int            `json:"id,omitempty" db:"id,omitempty"`
	Address         string         `json:"address,omitempty" db:"address,omitempty"`
	TransactionType string         `json:"transaction_type,omitempty" db:"transaction_type,omitempty"`
	Category        string         `json:"category,omitempty" db:"category,omitempty"`
	Amount          int64          `json:"amount,omitempty" db:"amount,omitempty"`
	Status          string         `json:"status,omitempty" db:"status,omitempty"`
	Reference       string         `json:"reference,omitempty" db:"reference,omitempty"`
	Description     string         `json:"description,omitempty" db:"description,omitempty"`
	CreatedAt       sql.NullString `json:"created_at,omitempty" db:"created_at,omitempty"`
}
