package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferRequest describe un movimiento de fondos entre dos cuentas vinculadas.
type TransferRequest struct {
	SourceAccountID      string          `json:"source_account_id"`
	DestinationAccountID string          `json:"destination_account_id"`
	Amount               decimal.Decimal `json:"amount"`
	Note                 string          `json:"note,omitempty"`
}

// TransferResult es la confirmacion emitida por el proveedor de pagos.
type TransferResult struct {
	TransferID  string    `json:"transfer_id"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}
