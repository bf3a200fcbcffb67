package storage

import "database/sql"

type Account struct {
	ID             string
	OwnerID        string
	Name           string
	Institution    string
	MaskedNumber   string
	Kind           string
	Balance        string
	InitialBalance string
	CreditLimit    sql.NullString
	CreatedAt      int64
	UpdatedAt      int64
}

type Transaction struct {
	ID               string
	OwnerID          string
	Kind             string
	Amount           string
	Description      string
	Category         string
	Date             int64
	AccountID        sql.NullString
	IsOpeningBalance int64
	CreatedAt        int64
	UpdatedAt        int64
}
