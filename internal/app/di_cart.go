package app

import (
	"fmt"

	cartHTTP "github.com/mediaplace/payments/internal/cart/http"
	cartRepository "github.com/mediaplace/payments/internal/cart/repository"
	cartService "github.com/mediaplace/payments/internal/cart/service"
	cartUsecase "github.com/mediaplace/payments/internal/cart/usecase"
)

// CartStore returns the authoritative cart store instance.
func (c *Container) CartStore() (cartUsecase.CartStore, error) {
	var err error
	c.cartStoreInit.Do(func() {
		c.cartStore, err = c.initCartStore()
		if err != nil {
			c.initErrors["cartStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["cartStore"]; exists {
		return nil, storedErr
	}
	return c.cartStore, nil
}

// SnapshotManager returns the cart snapshot manager instance.
func (c *Container) SnapshotManager() (cartUsecase.SnapshotManager, error) {
	var err error
	c.snapshotManagerInit.Do(func() {
		c.snapshotManager, err = c.initSnapshotManager()
		if err != nil {
			c.initErrors["snapshotManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["snapshotManager"]; exists {
		return nil, storedErr
	}
	return c.snapshotManager, nil
}

// CartUseCase returns the cart use case instance.
func (c *Container) CartUseCase() (cartUsecase.CartUseCase, error) {
	var err error
	c.cartUseCaseInit.Do(func() {
		c.cartUseCase, err = c.initCartUseCase()
		if err != nil {
			c.initErrors["cartUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["cartUseCase"]; exists {
		return nil, storedErr
	}
	return c.cartUseCase, nil
}

// TokenSigner returns the recovery token signer instance.
func (c *Container) TokenSigner() (cartService.TokenSigner, error) {
	var err error
	c.tokenSignerInit.Do(func() {
		if c.config.RecoveryTokenSigningKey == "" {
			err = fmt.Errorf("RECOVERY_TOKEN_SIGNING_KEY must be configured")
			c.initErrors["tokenSigner"] = err
			return
		}
		c.tokenSigner, err = cartService.NewTokenSigner([]byte(c.config.RecoveryTokenSigningKey))
		if err != nil {
			c.initErrors["tokenSigner"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenSigner"]; exists {
		return nil, storedErr
	}
	return c.tokenSigner, nil
}

// RecoveryUseCase returns the abandoned-cart recovery use case instance.
func (c *Container) RecoveryUseCase() (cartUsecase.RecoveryUseCase, error) {
	var err error
	c.recoveryUseCaseInit.Do(func() {
		c.recoveryUseCase, err = c.initRecoveryUseCase()
		if err != nil {
			c.initErrors["recoveryUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["recoveryUseCase"]; exists {
		return nil, storedErr
	}
	return c.recoveryUseCase, nil
}

// initCartStore creates the cart store instance.
func (c *Container) initCartStore() (cartUsecase.CartStore, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for cart store: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return cartRepository.NewMySQLCartStore(db), nil
	case "postgres":
		return cartRepository.NewPostgreSQLCartStore(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initSnapshotManager creates the snapshot manager with all its dependencies.
func (c *Container) initSnapshotManager() (cartUsecase.SnapshotManager, error) {
	store, err := c.CartStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get cart store for snapshot manager: %w", err)
	}

	kvStore, err := c.KVStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get kv store for snapshot manager: %w", err)
	}

	snapshotConfig := cartUsecase.SnapshotConfig{
		DebounceInterval: c.config.SnapshotDebounceInterval,
		TTL:              c.config.SnapshotTTL,
		RemoteTimeout:    c.config.CartRemoteTimeout,
	}

	return cartUsecase.NewSnapshotManager(store, kvStore, snapshotConfig, c.Logger()), nil
}

// initCartUseCase creates the cart use case with all its dependencies.
func (c *Container) initCartUseCase() (cartUsecase.CartUseCase, error) {
	store, err := c.CartStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get cart store for cart use case: %w", err)
	}

	snapshots, err := c.SnapshotManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot manager for cart use case: %w", err)
	}

	return cartUsecase.NewCartUseCase(store, snapshots, c.Logger()), nil
}

// initRecoveryUseCase creates the recovery use case with all its dependencies.
func (c *Container) initRecoveryUseCase() (cartUsecase.RecoveryUseCase, error) {
	store, err := c.CartStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get cart store for recovery use case: %w", err)
	}

	snapshots, err := c.SnapshotManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot manager for recovery use case: %w", err)
	}

	signer, err := c.TokenSigner()
	if err != nil {
		return nil, fmt.Errorf("failed to get token signer for recovery use case: %w", err)
	}

	kvStore, err := c.KVStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get kv store for recovery use case: %w", err)
	}

	return cartUsecase.NewRecoveryUseCase(
		store, snapshots, signer, kvStore, c.config.RecoveryTokenTTL, c.Logger(),
	), nil
}

// cartHTTPHandler creates the cart HTTP handler.
func (c *Container) cartHTTPHandler() (*cartHTTP.CartHandler, error) {
	carts, err := c.CartUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get cart use case for cart handler: %w", err)
	}

	recovery, err := c.RecoveryUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get recovery use case for cart handler: %w", err)
	}

	return cartHTTP.NewCartHandler(carts, recovery, c.Logger()), nil
}
