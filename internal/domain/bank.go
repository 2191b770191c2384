package domain

import "time"

// LinkedBank asocia un usuario con una cuenta externa via access token.
// El access token nunca se serializa fuera del proceso.
type LinkedBank struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	InstitutionID     string    `json:"institution_id"`
	InstitutionName   string    `json:"institution_name"`
	ExternalAccountID string    `json:"external_account_id"`
	AccountName       string    `json:"account_name"`
	AccessToken       string    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
}

// LinkedAccountHandle es la confirmacion de vinculo expuesta a los callers.
type LinkedAccountHandle struct {
	BankID          string `json:"bank_id"`
	InstitutionName string `json:"institution_name"`
	AccountName     string `json:"account_name"`
}
