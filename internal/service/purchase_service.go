package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"game-economy-service/internal/adapter/storage/postgres"
	"game-economy-service/internal/core/domain"
	"game-economy-service/internal/core/ports"
	"game-economy-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// completionCacheTTL bounds how long a completed purchase stays in the
// Redis fast path. The row status is the authority either way.
const completionCacheTTL = 24 * time.Hour

// PurchaseSvc implements ports.PurchaseService. Completion and refund run
// inside one database transaction with the purchase row locked first, so a
// purchase is credited exactly once no matter how many callbacks arrive.
type PurchaseSvc struct {
	purchases   ports.PurchaseRepository
	packages    ports.PackageRepository
	balances    ports.BalanceRepository
	ledger      ports.LedgerRepository
	aggregates  ports.AggregateRepository
	transactor  ports.DBTransactor
	catalog     ports.CatalogCache
	completions ports.CompletionCache
	catalogTTL  time.Duration
	log         zerolog.Logger
}

// NewPurchaseService creates a new purchase service.
func NewPurchaseService(
	purchases ports.PurchaseRepository,
	packages ports.PackageRepository,
	balances ports.BalanceRepository,
	ledger ports.LedgerRepository,
	aggregates ports.AggregateRepository,
	transactor ports.DBTransactor,
	catalog ports.CatalogCache,
	completions ports.CompletionCache,
	catalogTTL time.Duration,
	log zerolog.Logger,
) *PurchaseSvc {
	return &PurchaseSvc{
		purchases:   purchases,
		packages:    packages,
		balances:    balances,
		ledger:      ledger,
		aggregates:  aggregates,
		transactor:  transactor,
		catalog:     catalog,
		completions: completions,
		catalogTTL:  catalogTTL,
		log:         log.With().Str("component", "purchase_service").Logger(),
	}
}

// Initiate records a pending purchase against an active catalog package.
// Amount and price are copied from the catalog so later edits never change
// what this purchase grants.
func (s *PurchaseSvc) Initiate(ctx context.Context, req ports.InitiateRequest) (*domain.Purchase, error) {
	if req.UserID == "" {
		return nil, apperror.Validation("user_id is required")
	}
	if req.ProviderTransactionID == "" {
		return nil, apperror.Validation("provider_transaction_id is required")
	}

	pkg, err := s.packages.GetByID(ctx, req.PackageID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if pkg == nil {
		return nil, apperror.ErrInvalidPackage()
	}
	if !pkg.Active {
		// A warm catalog cache may still be advertising this package.
		if err := s.catalog.Invalidate(ctx); err != nil {
			s.log.Warn().Err(err).Str("package_id", pkg.ID).Msg("catalog cache invalidation failed")
		}
		return nil, apperror.ErrInvalidPackage()
	}

	purchase := &domain.Purchase{
		ID:                    uuid.New(),
		UserID:                req.UserID,
		PackageID:             pkg.ID,
		Amount:                pkg.CurrencyAmount,
		PriceUSD:              pkg.PriceUSD,
		PaymentMethod:         req.PaymentMethod,
		Gateway:               req.Gateway,
		ProviderTransactionID: req.ProviderTransactionID,
		Receipt:               req.Receipt,
		Status:                domain.PurchaseStatusPending,
		CreatedAt:             time.Now().UTC(),
	}

	if err := s.purchases.Create(ctx, purchase); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.InternalError(err)
	}

	s.log.Info().
		Str("purchase_id", purchase.ID.String()).
		Str("user_id", purchase.UserID).
		Str("package_id", purchase.PackageID).
		Str("gateway", purchase.Gateway).
		Msg("purchase initiated")
	return purchase, nil
}

// Complete moves a pending purchase to completed and credits the premium
// balance in the same transaction. Any second caller loses the race at the
// row lock and gets already-processed back.
func (s *PurchaseSvc) Complete(ctx context.Context, purchaseID uuid.UUID) error {
	// Fast path: a cached completion skips the row lock entirely. Cache
	// errors fall through to the database, never block completion.
	done, err := s.completions.IsCompleted(ctx, purchaseID)
	if err != nil {
		s.log.Warn().Err(err).Msg("completion cache check failed, falling through to database")
	} else if done {
		return apperror.ErrAlreadyProcessed()
	}

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	purchase, err := s.lockPending(ctx, tx, purchaseID)
	if err != nil {
		return err
	}

	metadata := []byte(fmt.Sprintf(`{"purchase_id":%q}`, purchase.ID.String()))
	entry, err := s.creditInTx(ctx, tx, purchase.UserID, domain.CategoryPurchaseCurrency, purchase.Amount, metadata)
	if err != nil {
		return err
	}

	completedAt := time.Now().UTC()
	if err := s.purchases.SetStatus(ctx, tx, purchase.ID, domain.PurchaseStatusCompleted, &entry.ID, &completedAt); err != nil {
		return s.mapStorageErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit transaction: %w", err))
	}

	// Best effort; a miss here only costs one row lock on the next retry.
	if err := s.completions.MarkCompleted(ctx, purchaseID, completionCacheTTL); err != nil {
		s.log.Warn().Err(err).Str("purchase_id", purchaseID.String()).Msg("failed to mark completion in cache")
	}

	s.log.Info().
		Str("purchase_id", purchase.ID.String()).
		Str("user_id", purchase.UserID).
		Int64("amount", purchase.Amount).
		Str("ledger_entry_id", entry.ID.String()).
		Msg("purchase completed")
	return nil
}

// Fail moves a pending purchase to failed. No balance changes.
func (s *PurchaseSvc) Fail(ctx context.Context, purchaseID uuid.UUID) error {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	purchase, err := s.lockPending(ctx, tx, purchaseID)
	if err != nil {
		return err
	}

	if err := s.purchases.SetStatus(ctx, tx, purchase.ID, domain.PurchaseStatusFailed, nil, nil); err != nil {
		return s.mapStorageErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit transaction: %w", err))
	}

	s.log.Info().
		Str("purchase_id", purchase.ID.String()).
		Str("user_id", purchase.UserID).
		Msg("purchase failed")
	return nil
}

// Refund moves a completed purchase to refunded and debits the premium
// currency it granted. If the user already spent it, the refund fails with
// insufficient balance rather than push the balance negative.
func (s *PurchaseSvc) Refund(ctx context.Context, purchaseID uuid.UUID) error {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	purchase, err := s.purchases.GetByIDForUpdate(ctx, tx, purchaseID)
	if err != nil {
		return s.mapStorageErr(err)
	}
	if purchase == nil {
		return apperror.ErrNotFound("purchase")
	}
	if purchase.Status != domain.PurchaseStatusCompleted {
		return apperror.ErrNotRefundable()
	}

	metadata := []byte(fmt.Sprintf(`{"purchase_id":%q}`, purchase.ID.String()))
	entry, err := s.creditInTx(ctx, tx, purchase.UserID, domain.CategoryRefund, -purchase.Amount, metadata)
	if err != nil {
		return err
	}

	if err := s.purchases.SetStatus(ctx, tx, purchase.ID, domain.PurchaseStatusRefunded, nil, nil); err != nil {
		return s.mapStorageErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit transaction: %w", err))
	}

	s.log.Info().
		Str("purchase_id", purchase.ID.String()).
		Str("user_id", purchase.UserID).
		Int64("amount", purchase.Amount).
		Str("ledger_entry_id", entry.ID.String()).
		Msg("purchase refunded")
	return nil
}

// ListPackages returns the active catalog, served from Redis when warm.
func (s *PurchaseSvc) ListPackages(ctx context.Context) ([]domain.CurrencyPackage, error) {
	cached, err := s.catalog.Get(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("catalog cache read failed, falling through to database")
	} else if cached != nil {
		return cached, nil
	}

	packages, err := s.packages.ListActive(ctx)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	if err := s.catalog.Set(ctx, packages, s.catalogTTL); err != nil {
		s.log.Warn().Err(err).Msg("catalog cache write failed")
	}
	return packages, nil
}

// lockPending locks the purchase row and verifies it is still pending.
func (s *PurchaseSvc) lockPending(ctx context.Context, tx pgx.Tx, purchaseID uuid.UUID) (*domain.Purchase, error) {
	purchase, err := s.purchases.GetByIDForUpdate(ctx, tx, purchaseID)
	if err != nil {
		return nil, s.mapStorageErr(err)
	}
	if purchase == nil {
		return nil, apperror.ErrNotFound("purchase")
	}
	if purchase.Status != domain.PurchaseStatusPending {
		return nil, apperror.ErrAlreadyProcessed()
	}
	return purchase, nil
}

// creditInTx applies a signed premium-currency delta inside the caller's
// transaction, recording the ledger entry and aggregate increment alongside.
func (s *PurchaseSvc) creditInTx(ctx context.Context, tx pgx.Tx, userID string, category domain.TransactionCategory, delta int64, metadata []byte) (*domain.LedgerEntry, error) {
	if err := s.balances.EnsureExists(ctx, tx, userID, domain.CurrencyPremium); err != nil {
		return nil, s.mapStorageErr(err)
	}

	before, found, err := s.balances.GetForUpdate(ctx, tx, userID, domain.CurrencyPremium)
	if err != nil {
		return nil, s.mapStorageErr(err)
	}
	if !found {
		return nil, apperror.ErrBalanceRecordMissing(userID)
	}

	after := before + delta
	if after < 0 {
		return nil, apperror.ErrInsufficientBalance()
	}

	if err := s.balances.SetAmount(ctx, tx, userID, domain.CurrencyPremium, after); err != nil {
		return nil, s.mapStorageErr(err)
	}

	entry := &domain.LedgerEntry{
		ID:            uuid.New(),
		UserID:        userID,
		Currency:      domain.CurrencyPremium,
		Category:      category,
		Amount:        delta,
		BalanceBefore: before,
		BalanceAfter:  after,
		Metadata:      metadata,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.ledger.Append(ctx, tx, entry); err != nil {
		return nil, s.mapStorageErr(err)
	}
	if err := s.aggregates.Increment(ctx, tx, entry.CreatedAt, domain.CurrencyPremium, category, delta); err != nil {
		return nil, s.mapStorageErr(err)
	}
	return entry, nil
}

func (s *PurchaseSvc) mapStorageErr(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if postgres.IsLockTimeout(err) {
		return apperror.ErrLockTimeout(err)
	}
	return apperror.InternalError(err)
}
