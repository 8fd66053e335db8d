package repository

import (
	"context"
	"database/sql"
	"time"

	cartDomain "github.com/mediaplace/payments/internal/cart/domain"
	"github.com/mediaplace/payments/internal/database"
	apperrors "github.com/mediaplace/payments/internal/errors"
)

// MySQLCartStore implements the remote cart store for MySQL databases.
type MySQLCartStore struct {
	db *sql.DB
}

// GetBySession retrieves the cart for the session.
func (m *MySQLCartStore) GetBySession(
	ctx context.Context,
	sessionID string,
) (*cartDomain.Cart, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT session_id, user_id, items, updated_at
			  FROM carts
			  WHERE session_id = ?`

	cart, err := scanCart(querier.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, cartDomain.ErrCartNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get cart by session")
	}

	return cart, nil
}

// Save upserts the whole cart in one statement.
func (m *MySQLCartStore) Save(ctx context.Context, cart *cartDomain.Cart) error {
	querier := database.GetTx(ctx, m.db)

	items, err := encodeCartItems(cart.Items)
	if err != nil {
		return err
	}

	query := `INSERT INTO carts (session_id, user_id, items, updated_at)
			  VALUES (?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE user_id = VALUES(user_id),
									  items = VALUES(items),
									  updated_at = VALUES(updated_at)`

	cart.UpdatedAt = time.Now().UTC()
	_, err = querier.ExecContext(ctx, query, cart.SessionID, cart.UserID, items, cart.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to save cart")
	}

	return nil
}

// Delete removes the cart for the session. Missing carts are fine.
func (m *MySQLCartStore) Delete(ctx context.Context, sessionID string) error {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM carts WHERE session_id = ?`

	if _, err := querier.ExecContext(ctx, query, sessionID); err != nil {
		return apperrors.Wrap(err, "failed to delete cart")
	}

	return nil
}

// NewMySQLCartStore creates a new MySQL cart store.
func NewMySQLCartStore(db *sql.DB) *MySQLCartStore {
	return &MySQLCartStore{db: db}
}
