package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amezhanin/skinstore/internal/events"
	"github.com/amezhanin/skinstore/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

type LedgerService interface {
	Debit(ctx context.Context, userID int64, amount int64) (int64, error)
}

type ledgerService struct {
	store     repository.LedgerStore
	publisher events.Publisher
	logger    *zap.Logger
}

func NewLedgerService(store repository.LedgerStore, publisher events.Publisher, logger *zap.Logger) LedgerService {
	return &ledgerService{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Debit atomically subtracts amount from the user's balance and returns the
// new balance. The transaction is released on every exit path: the deferred
// rollback is a no-op once the commit has gone through.
func (s *ledgerService) Debit(ctx context.Context, userID int64, amount int64) (int64, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	balance, found, err := tx.BalanceForUpdate(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	if !found {
		return 0, ErrUserNotFound
	}
	if balance < amount {
		return 0, ErrInsufficientBalance
	}

	newBalance := balance - amount
	if err := tx.SetBalance(ctx, userID, newBalance); err != nil {
		return 0, fmt.Errorf("failed to update balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true

	s.publishPurchase(ctx, userID, amount, newBalance)

	return newBalance, nil
}

// publishPurchase is best-effort: a broker outage must not fail a debit
// that has already committed.
func (s *ledgerService) publishPurchase(ctx context.Context, userID, amount, balance int64) {
	event := events.PurchaseCompleted{
		PurchaseID: uuid.New().String(),
		UserID:     userID,
		Amount:     amount,
		Balance:    balance,
		OccurredAt: time.Now(),
	}
	if err := s.publisher.PublishPurchase(ctx, event); err != nil {
		s.logger.Warn("Failed to publish purchase event",
			zap.Int64("user_id", userID),
			zap.Error(err))
	}
}
