package linking

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Provider define la interfaz del proveedor de vinculacion bancaria.
type Provider interface {
	CreateLinkToken(ctx context.Context, userID string) (LinkToken, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (string, error)
	GetAccounts(ctx context.Context, accessToken string) ([]AccountData, error)
}

// LinkToken es la credencial corta para iniciar el flujo de seleccion de banco.
type LinkToken struct {
	Token     string    `json:"link_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AccountData es una cuenta tal como la reporta el proveedor.
type AccountData struct {
	ID               string
	Name             string
	Mask             string
	AvailableBalance decimal.Decimal
	CurrentBalance   decimal.Decimal
}

// InstitutionMetadata acompana al public token al cerrar el flujo de link.
type InstitutionMetadata struct {
	InstitutionID   string `json:"institution_id"`
	InstitutionName string `json:"institution_name"`
	AccountID       string `json:"account_id"`
	AccountName     string `json:"account_name"`
}

var (
	// ErrRejected indica que el proveedor rechazo la operacion (token invalido o expirado).
	ErrRejected = errors.New("linking provider rejected request")
	// ErrUnavailable indica un fallo de transporte hacia el proveedor.
	ErrUnavailable = errors.New("linking provider unavailable")
)
