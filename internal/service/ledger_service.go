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
	"github.com/rs/zerolog"
)

// LedgerSvc implements ports.LedgerService. Every mutation runs the same
// atomic unit: lock the balance row, write the new amount, append the
// ledger entry and bump the daily aggregate in one database transaction.
type LedgerSvc struct {
	balances   ports.BalanceRepository
	ledger     ports.LedgerRepository
	aggregates ports.AggregateRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(
	balances ports.BalanceRepository,
	ledger ports.LedgerRepository,
	aggregates ports.AggregateRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *LedgerSvc {
	return &LedgerSvc{
		balances:   balances,
		ledger:     ledger,
		aggregates: aggregates,
		transactor: transactor,
		log:        log.With().Str("component", "ledger_service").Logger(),
	}
}

// Earn credits a balance. The amount must be positive; the delta applied is
// +req.Amount.
func (s *LedgerSvc) Earn(ctx context.Context, req ports.EarnRequest) (*domain.LedgerEntry, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	entry, err := s.mutate(ctx, req.UserID, req.Currency, req.Category, req.Amount, req.Description, req.Metadata)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", req.UserID).
		Str("currency", string(req.Currency)).
		Str("category", string(req.Category)).
		Int64("amount", req.Amount).
		Int64("balance_after", entry.BalanceAfter).
		Msg("currency earned")
	return entry, nil
}

// Spend debits a balance. The amount must be positive; the delta applied is
// -req.Amount, and the mutation fails with insufficient-balance rather than
// let the row go negative.
func (s *LedgerSvc) Spend(ctx context.Context, req ports.SpendRequest) (*domain.LedgerEntry, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	entry, err := s.mutate(ctx, req.UserID, req.Currency, req.Category, -req.Amount, req.Description, req.Metadata)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", req.UserID).
		Str("currency", string(req.Currency)).
		Str("category", string(req.Category)).
		Int64("amount", req.Amount).
		Int64("balance_after", entry.BalanceAfter).
		Msg("currency spent")
	return entry, nil
}

// mutate is the shared atomic unit for Earn and Spend. delta is signed:
// positive credits, negative debits. Earn and Spend reject non-positive
// amounts before calling in, so delta here is never zero from those paths;
// the check below guards direct misuse.
func (s *LedgerSvc) mutate(
	ctx context.Context,
	userID string,
	currency domain.CurrencyKind,
	category domain.TransactionCategory,
	delta int64,
	description *string,
	metadata []byte,
) (*domain.LedgerEntry, error) {
	if userID == "" {
		return nil, apperror.Validation("user_id is required")
	}
	if !currency.Valid() {
		return nil, apperror.ErrInvalidCurrency()
	}
	if delta == 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := s.balances.EnsureExists(ctx, tx, userID, currency); err != nil {
		return nil, s.mapStorageErr(err)
	}

	before, found, err := s.balances.GetForUpdate(ctx, tx, userID, currency)
	if err != nil {
		return nil, s.mapStorageErr(err)
	}
	if !found {
		// EnsureExists ran in this same transaction; an absent row here
		// means the insert was lost.
		return nil, apperror.ErrBalanceRecordMissing(userID)
	}

	after := before + delta
	if after < 0 {
		return nil, apperror.ErrInsufficientBalance()
	}

	if err := s.balances.SetAmount(ctx, tx, userID, currency, after); err != nil {
		return nil, s.mapStorageErr(err)
	}

	entry := &domain.LedgerEntry{
		ID:            uuid.New(),
		UserID:        userID,
		Currency:      currency,
		Category:      category,
		Amount:        delta,
		BalanceBefore: before,
		BalanceAfter:  after,
		Description:   description,
		Metadata:      metadata,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.ledger.Append(ctx, tx, entry); err != nil {
		return nil, s.mapStorageErr(err)
	}

	if err := s.aggregates.Increment(ctx, tx, entry.CreatedAt, currency, category, delta); err != nil {
		return nil, s.mapStorageErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit transaction: %w", err))
	}
	return entry, nil
}

// GetBalance returns both currency balances for a user. Absent rows read as
// zero; a user the ledger has never seen gets a zero balance, not an error.
func (s *LedgerSvc) GetBalance(ctx context.Context, userID string) (*domain.UserBalance, error) {
	if userID == "" {
		return nil, apperror.Validation("user_id is required")
	}

	balances, err := s.balances.GetAll(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	ub := &domain.UserBalance{UserID: userID}
	for _, b := range balances {
		switch b.Currency {
		case domain.CurrencySoft:
			ub.Soft = b.Amount
		case domain.CurrencyPremium:
			ub.Premium = b.Amount
		}
	}
	return ub, nil
}

// GetTransactionHistory returns one page of a user's ledger, newest first.
func (s *LedgerSvc) GetTransactionHistory(ctx context.Context, userID string, page, pageSize int) (*domain.TransactionHistory, error) {
	if userID == "" {
		return nil, apperror.Validation("user_id is required")
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	entries, total, err := s.ledger.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	return &domain.TransactionHistory{
		Entries:    entries,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// mapStorageErr translates storage failures into typed errors. AppErrors
// pass through unchanged; lock timeouts become the retryable SYS_002.
func (s *LedgerSvc) mapStorageErr(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if postgres.IsLockTimeout(err) {
		return apperror.ErrLockTimeout(err)
	}
	return apperror.InternalError(err)
}
