package payments

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Provider define la interfaz del proveedor de movimiento de fondos.
type Provider interface {
	SubmitTransfer(ctx context.Context, req TransferSubmission) (Confirmation, error)
}

// TransferSubmission es la orden enviada al proveedor.
type TransferSubmission struct {
	SourceRef      string
	DestinationRef string
	Amount         decimal.Decimal
	Note           string
}

// Confirmation es la respuesta final del proveedor; no se hace polling.
type Confirmation struct {
	TransferID  string    `json:"transfer_id"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}

var (
	// ErrRejected indica que el proveedor declino la transferencia.
	ErrRejected = errors.New("payments provider rejected transfer")
	// ErrUnavailable indica un fallo de transporte antes de enviar la orden.
	ErrUnavailable = errors.New("payments provider unavailable")
	// ErrTimeout indica que la orden fue enviada pero la respuesta se perdio.
	ErrTimeout = errors.New("payments provider timeout")
)
