package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mediaplace/payments/internal/database"
	apperrors "github.com/mediaplace/payments/internal/errors"
	paymentsDomain "github.com/mediaplace/payments/internal/payments/domain"
)

// PostgreSQLOrderStore implements the order collaborator for PostgreSQL
// databases. Orders are owned by the marketplace; this store only reads them
// by payment reference and applies dispatcher mutations.
type PostgreSQLOrderStore struct {
	db *sql.DB
}

// FindByPaymentReference retrieves the order attached to a provider payment
// reference.
func (p *PostgreSQLOrderStore) FindByPaymentReference(
	ctx context.Context,
	paymentReference string,
) (*paymentsDomain.Order, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, status, payment_status, payment_reference
			  FROM orders
			  WHERE payment_reference = $1
			  LIMIT 1`

	var order paymentsDomain.Order
	err := querier.QueryRowContext(ctx, query, paymentReference).Scan(
		&order.ID,
		&order.Status,
		&order.PaymentStatus,
		&order.PaymentReference,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, paymentsDomain.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "failed to find order by payment reference")
	}

	return &order, nil
}

// UpdateStatus applies one order mutation as a single statement: lifecycle
// status, payment status and metadata land together or not at all. Nil update
// fields leave the column untouched.
func (p *PostgreSQLOrderStore) UpdateStatus(
	ctx context.Context,
	orderID uuid.UUID,
	update paymentsDomain.OrderUpdate,
) error {
	querier := database.GetTx(ctx, p.db)

	metadata, err := encodeOrderMetadata(update.Metadata)
	if err != nil {
		return err
	}

	query := `UPDATE orders
			  SET status = COALESCE($1, status),
				  payment_status = COALESCE($2, payment_status),
				  metadata = CASE WHEN $3::jsonb IS NULL THEN metadata
							 ELSE COALESCE(metadata, '{}'::jsonb) || $3::jsonb END,
				  updated_at = $4
			  WHERE id = $5`

	result, err := querier.ExecContext(
		ctx,
		query,
		update.Status,
		update.PaymentStatus,
		metadata,
		time.Now().UTC(),
		orderID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update order status")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read order update result")
	}
	if rows == 0 {
		return paymentsDomain.ErrOrderNotFound
	}
	return nil
}

// NewPostgreSQLOrderStore creates a new PostgreSQL order store instance.
func NewPostgreSQLOrderStore(db *sql.DB) *PostgreSQLOrderStore {
	return &PostgreSQLOrderStore{db: db}
}

// encodeOrderMetadata renders the metadata patch as JSON, nil when empty.
func encodeOrderMetadata(metadata map[string]string) ([]byte, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode order metadata")
	}
	return encoded, nil
}
