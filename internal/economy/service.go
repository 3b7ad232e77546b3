package economy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hammerfall-games/hammerfall/pkg/database"
)

var (
	ErrInsufficientFunds  = fmt.Errorf("insufficient funds")
	ErrAlreadyEarnedToday = fmt.Errorf("daily reward already claimed today")
	ErrInvalidAmount      = fmt.Errorf("amount must be positive")
)

// Service implements the balance ledger operations: credit, debit and
// transfer, each atomic with its audit row, plus the daily earn reward.
type Service struct {
	txManager database.TransactionManager
	repo      Repository
}

// NewService creates a new economy service
func NewService(txManager database.TransactionManager, repo Repository) *Service {
	return &Service{txManager: txManager, repo: repo}
}

// GetBalance reads a user's balance. Advisory: the value may change
// before any dependent operation executes.
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.GetBalance(ctx, userID)
}

// DebitTx decrements a balance inside the caller's transaction. The row
// lock taken here serializes concurrent spends against the same user;
// the check-and-decrement fails atomically with ErrInsufficientFunds.
func (s *Service) DebitTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, txType string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	balance, err := s.repo.GetBalanceForUpdate(ctx, tx, userID)
	if err != nil {
		return fmt.Errorf("failed to lock balance: %w", err)
	}
	if balance < amount {
		return ErrInsufficientFunds
	}

	if err := s.repo.ApplyBalanceDelta(ctx, tx, userID, -amount); err != nil {
		return fmt.Errorf("failed to deduct balance: %w", err)
	}

	txn := &Transaction{
		ID:         uuid.New(),
		FromUserID: &userID,
		Amount:     amount,
		Type:       txType,
		CreatedAt:  time.Now(),
	}
	if err := s.repo.InsertTransaction(ctx, tx, txn); err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

// CreditTx increments a balance inside the caller's transaction. Credits
// always succeed; no upper bound is enforced.
func (s *Service) CreditTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, txType string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	if err := s.repo.ApplyBalanceDelta(ctx, tx, userID, amount); err != nil {
		return fmt.Errorf("failed to add balance: %w", err)
	}

	txn := &Transaction{
		ID:        uuid.New(),
		ToUserID:  &userID,
		Amount:    amount,
		Type:      txType,
		CreatedAt: time.Now(),
	}
	if err := s.repo.InsertTransaction(ctx, tx, txn); err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

// Debit runs DebitTx in its own transaction.
func (s *Service) Debit(ctx context.Context, userID uuid.UUID, amount int64, txType string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return s.DebitTx(ctx, tx, userID, amount, txType)
	})
}

// Credit runs CreditTx in its own transaction.
func (s *Service) Credit(ctx context.Context, userID uuid.UUID, amount int64, txType string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return s.CreditTx(ctx, tx, userID, amount, txType)
	})
}

// TransferTx moves funds between two users inside the caller's
// transaction: the sender's row is locked, checked and debited, the
// recipient credited, and a single audit row written.
func (s *Service) TransferTx(ctx context.Context, tx pgx.Tx, fromID, toID uuid.UUID, amount int64, txType string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	balance, err := s.repo.GetBalanceForUpdate(ctx, tx, fromID)
	if err != nil {
		return fmt.Errorf("failed to lock balance: %w", err)
	}
	if balance < amount {
		return ErrInsufficientFunds
	}

	if err := s.repo.ApplyBalanceDelta(ctx, tx, fromID, -amount); err != nil {
		return fmt.Errorf("failed to deduct balance: %w", err)
	}
	if err := s.repo.ApplyBalanceDelta(ctx, tx, toID, amount); err != nil {
		return fmt.Errorf("failed to add balance: %w", err)
	}

	txn := &Transaction{
		ID:         uuid.New(),
		FromUserID: &fromID,
		ToUserID:   &toID,
		Amount:     amount,
		Type:       txType,
		CreatedAt:  time.Now(),
	}
	if err := s.repo.InsertTransaction(ctx, tx, txn); err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

// Transfer runs TransferTx in its own transaction.
func (s *Service) Transfer(ctx context.Context, fromID, toID uuid.UUID, amount int64, txType string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return s.TransferTx(ctx, tx, fromID, toID, amount, txType)
	})
}

// Earn claims the once-per-day reward: 100 plus 10 per consecutive day
// of the user's streak. The earn state is read under a row lock so a
// user hammering the command cannot double-claim.
func (s *Service) Earn(ctx context.Context, userID uuid.UUID) (*EarnResult, error) {
	var result *EarnResult
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		state, err := s.repo.GetEarnStateForUpdate(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("failed to lock earn state: %w", err)
		}

		now := time.Now()
		streak, ok := nextStreak(state, now)
		if !ok {
			return ErrAlreadyEarnedToday
		}

		amount := int64(earnBaseAmount + streak*earnStreakBonus)
		if err := s.repo.ApplyEarn(ctx, tx, userID, amount, now, streak); err != nil {
			return fmt.Errorf("failed to apply earn: %w", err)
		}

		txn := &Transaction{
			ID:        uuid.New(),
			ToUserID:  &userID,
			Amount:    amount,
			Type:      TxTypeDailyEarn,
			CreatedAt: now,
		}
		if err := s.repo.InsertTransaction(ctx, tx, txn); err != nil {
			return fmt.Errorf("failed to record transaction: %w", err)
		}

		result = &EarnResult{Amount: amount, Streak: streak}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// nextStreak computes the streak a claim at now would reach, or false if
// the reward was already claimed today. Consecutive calendar days extend
// the streak; a gap resets it to one.
func nextStreak(state *EarnState, now time.Time) (int, bool) {
	if state.LastEarnDate == nil {
		return 1, true
	}

	last := *state.LastEarnDate
	if sameDay(last, now) {
		return 0, false
	}
	if sameDay(last, now.AddDate(0, 0, -1)) {
		return state.Streak + 1, true
	}
	return 1, true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (s *Service) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
