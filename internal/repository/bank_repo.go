package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"horizon-bank/internal/domain"
)

// BankRepository define el contrato de persistencia para bancos vinculados.
type BankRepository interface {
	Create(ctx context.Context, bank domain.LinkedBank) error
	GetByExternalAccount(ctx context.Context, userID, institutionID, externalAccountID string) (domain.LinkedBank, error)
	ListByUser(ctx context.Context, userID string) ([]domain.LinkedBank, error)
}

// PgBankRepository implementa BankRepository usando pgxpool.
type PgBankRepository struct {
	pool *pgxpool.Pool
}

func NewPgBankRepository(pool *pgxpool.Pool) *PgBankRepository {
	return &PgBankRepository{pool: pool}
}

func (r *PgBankRepository) Create(ctx context.Context, bank domain.LinkedBank) error {
	const query = `
		INSERT INTO linked_banks (id, user_id, institution_id, institution_name, external_account_id, account_name, access_token, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		bank.ID,
		bank.UserID,
		bank.InstitutionID,
		bank.InstitutionName,
		bank.ExternalAccountID,
		bank.AccountName,
		bank.AccessToken,
		bank.CreatedAt,
	)
	return err
}

func (r *PgBankRepository) GetByExternalAccount(ctx context.Context, userID, institutionID, externalAccountID string) (domain.LinkedBank, error) {
	const query = `
		SELECT id, user_id, institution_id, institution_name, external_account_id, account_name, access_token, created_at
		FROM linked_banks
		WHERE user_id = $1 AND institution_id = $2 AND external_account_id = $3
	`
	var b domain.LinkedBank
	err := r.pool.QueryRow(ctx, query, userID, institutionID, externalAccountID).Scan(
		&b.ID,
		&b.UserID,
		&b.InstitutionID,
		&b.InstitutionName,
		&b.ExternalAccountID,
		&b.AccountName,
		&b.AccessToken,
		&b.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LinkedBank{}, err
	}
	return b, err
}

func (r *PgBankRepository) ListByUser(ctx context.Context, userID string) ([]domain.LinkedBank, error) {
	const query = `
		SELECT id, user_id, institution_id, institution_name, external_account_id, account_name, access_token, created_at
		FROM linked_banks
		WHERE user_id = $1
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	banks := make([]domain.LinkedBank, 0)
	for rows.Next() {
		var b domain.LinkedBank
		if err := rows.Scan(
			&b.ID,
			&b.UserID,
			&b.InstitutionID,
			&b.InstitutionName,
			&b.ExternalAccountID,
			&b.AccountName,
			&b.AccessToken,
			&b.CreatedAt,
		); err != nil {
			return nil, err
		}
		banks = append(banks, b)
	}
	return banks, rows.Err()
}
