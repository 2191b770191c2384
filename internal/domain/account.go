package domain

import "github.com/shopspring/decimal"

// Account es la proyeccion de una cuenta bancaria vinculada.
type Account struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	BankID           string          `json:"bank_id"`
	Name             string          `json:"name"`
	Mask             string          `json:"mask,omitempty"`
	InstitutionName  string          `json:"institution_name,omitempty"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
}
