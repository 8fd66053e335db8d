// Package repository provides SQL persistence for the authoritative remote
// cart.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	cartDomain "github.com/mediaplace/payments/internal/cart/domain"
	"github.com/mediaplace/payments/internal/database"
	apperrors "github.com/mediaplace/payments/internal/errors"
)

// PostgreSQLCartStore implements the remote cart store for PostgreSQL
// databases. Carts are stored one row per session with the line items as a
// JSON document; the whole cart is replaced on every save.
type PostgreSQLCartStore struct {
	db *sql.DB
}

// GetBySession retrieves the cart for the session.
func (p *PostgreSQLCartStore) GetBySession(
	ctx context.Context,
	sessionID string,
) (*cartDomain.Cart, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT session_id, user_id, items, updated_at
			  FROM carts
			  WHERE session_id = $1`

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
func (p *PostgreSQLCartStore) Save(ctx context.Context, cart *cartDomain.Cart) error {
	querier := database.GetTx(ctx, p.db)

	items, err := encodeCartItems(cart.Items)
	if err != nil {
		return err
	}

	query := `INSERT INTO carts (session_id, user_id, items, updated_at)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (session_id)
			  DO UPDATE SET user_id = EXCLUDED.user_id,
							items = EXCLUDED.items,
							updated_at = EXCLUDED.updated_at`

	cart.UpdatedAt = time.Now().UTC()
	_, err = querier.ExecContext(ctx, query, cart.SessionID, cart.UserID, items, cart.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to save cart")
	}

	return nil
}

// Delete removes the cart for the session. Missing carts are fine.
func (p *PostgreSQLCartStore) Delete(ctx context.Context, sessionID string) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM carts WHERE session_id = $1`

	if _, err := querier.ExecContext(ctx, query, sessionID); err != nil {
		return apperrors.Wrap(err, "failed to delete cart")
	}

	return nil
}

// NewPostgreSQLCartStore creates a new PostgreSQL cart store.
func NewPostgreSQLCartStore(db *sql.DB) *PostgreSQLCartStore {
	return &PostgreSQLCartStore{db: db}
}

type cartRowScanner interface {
	Scan(dest ...any) error
}

func scanCart(row cartRowScanner) (*cartDomain.Cart, error) {
	var (
		cart  cartDomain.Cart
		items []byte
	)

	if err := row.Scan(&cart.SessionID, &cart.UserID, &items, &cart.UpdatedAt); err != nil {
		return nil, err
	}

	if len(items) > 0 {
		if err := json.Unmarshal(items, &cart.Items); err != nil {
			return nil, apperrors.Wrap(err, "failed to decode cart items")
		}
	}

	return &cart, nil
}

func encodeCartItems(items []cartDomain.CartItem) ([]byte, error) {
	if items == nil {
		items = []cartDomain.CartItem{}
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode cart items")
	}
	return encoded, nil
}
