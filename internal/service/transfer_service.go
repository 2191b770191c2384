package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"horizon-bank/internal/domain"
	"horizon-bank/internal/payments"
)

var (
	ErrUnknownAccount        = errors.New("unknown account")
	ErrSelfTransfer          = errors.New("source and destination must differ")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrTransferRejected      = errors.New("transfer rejected")
	ErrTransferIndeterminate = errors.New("transfer outcome unknown")
)

// TransferInitiator valida precondiciones de transferencia y envia la orden
// al proveedor de pagos exactamente una vez. Nunca reintenta por su cuenta:
// un timeout tras el envio se reporta como resultado indeterminado.
type TransferInitiator struct {
	logger    *zap.Logger
	provider  payments.Provider
	projector *AccountListProjector
}

func NewTransferInitiator(logger *zap.Logger, provider payments.Provider, projector *AccountListProjector) *TransferInitiator {
	return &TransferInitiator{
		logger:    logger,
		provider:  provider,
		projector: projector,
	}
}

// Initiate chequea precondiciones en orden (gana el primer fallo) y, solo si
// todas pasan, envia una unica orden de transferencia.
func (t *TransferInitiator) Initiate(ctx context.Context, user domain.User, req domain.TransferRequest) (domain.TransferResult, error) {
	if t.provider == nil || t.projector == nil {
		return domain.TransferResult{}, errors.New("transfer initiator not configured")
	}

	accounts, err := t.projector.ListAccounts(ctx, user)
	if err != nil {
		return domain.TransferResult{}, err
	}

	source, ok := findAccount(accounts, req.SourceAccountID)
	if !ok {
		return domain.TransferResult{}, ErrUnknownAccount
	}
	if _, ok := findAccount(accounts, req.DestinationAccountID); !ok {
		return domain.TransferResult{}, ErrUnknownAccount
	}
	if req.SourceAccountID == req.DestinationAccountID {
		return domain.TransferResult{}, ErrSelfTransfer
	}
	if !req.Amount.IsPositive() || req.Amount.Exponent() < -2 {
		return domain.TransferResult{}, ErrInvalidAmount
	}
	// Chequeo local rapido; el proveedor sigue siendo la autoridad final.
	if source.AvailableBalance.LessThan(req.Amount) {
		return domain.TransferResult{}, ErrInsufficientFunds
	}

	confirmation, err := t.provider.SubmitTransfer(ctx, payments.TransferSubmission{
		SourceRef:      req.SourceAccountID,
		DestinationRef: req.DestinationAccountID,
		Amount:         req.Amount,
		Note:           req.Note,
	})
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrTimeout):
			// La orden pudo haber sido aceptada antes de perderse la
			// respuesta; el caller no debe reenviar automaticamente.
			t.logger.Warn("transfer outcome unknown", zap.Error(err), zap.String("user_id", user.ID))
			return domain.TransferResult{}, fmt.Errorf("%w: %v", ErrTransferIndeterminate, err)
		case errors.Is(err, payments.ErrRejected):
			return domain.TransferResult{}, fmt.Errorf("%w: %v", ErrTransferRejected, err)
		default:
			t.logger.Error("transfer submit failed", zap.Error(err), zap.String("user_id", user.ID))
			return domain.TransferResult{}, ErrProviderUnavailable
		}
	}

	// Los balances cambiaron; la proxima lectura re-consulta al proveedor.
	t.projector.Invalidate(user.ID)

	return domain.TransferResult{
		TransferID:  confirmation.TransferID,
		Status:      confirmation.Status,
		SubmittedAt: confirmation.SubmittedAt,
	}, nil
}

func findAccount(accounts []domain.Account, id string) (domain.Account, bool) {
	for _, a := range accounts {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Account{}, false
}
