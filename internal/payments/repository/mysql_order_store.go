package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/mediaplace/payments/internal/database"
	apperrors "github.com/mediaplace/payments/internal/errors"
	paymentsDomain "github.com/mediaplace/payments/internal/payments/domain"
)

// MySQLOrderStore implements the order collaborator for MySQL databases.
type MySQLOrderStore struct {
	db *sql.DB
}

// FindByPaymentReference retrieves the order attached to a provider payment
// reference.
func (m *MySQLOrderStore) FindByPaymentReference(
	ctx context.Context,
	paymentReference string,
) (*paymentsDomain.Order, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, status, payment_status, payment_reference
			  FROM orders
			  WHERE payment_reference = ?
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

// UpdateStatus applies one order mutation as a single statement. Nil update
// fields leave the column untouched.
func (m *MySQLOrderStore) UpdateStatus(
	ctx context.Context,
	orderID uuid.UUID,
	update paymentsDomain.OrderUpdate,
) error {
	querier := database.GetTx(ctx, m.db)

	metadata, err := encodeOrderMetadata(update.Metadata)
	if err != nil {
		return err
	}

	query := `UPDATE orders
			  SET status = COALESCE(?, status),
				  payment_status = COALESCE(?, payment_status),
				  metadata = CASE WHEN ? IS NULL THEN metadata
							 ELSE JSON_MERGE_PATCH(COALESCE(metadata, JSON_OBJECT()), CAST(? AS JSON)) END,
				  updated_at = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		update.Status,
		update.PaymentStatus,
		metadata,
		metadata,
		time.Now().UTC(),
		orderID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update order status")
	}

	// updated_at always changes, so affected rows are reliable even with the
	// driver's changed-rows counting.
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read order update result")
	}
	if rows == 0 {
		return paymentsDomain.ErrOrderNotFound
	}
	return nil
}

// NewMySQLOrderStore creates a new MySQL order store instance.
func NewMySQLOrderStore(db *sql.DB) *MySQLOrderStore {
	return &MySQLOrderStore{db: db}
}
