package auction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hammerfall-games/hammerfall/internal/economy"
	"github.com/hammerfall-games/hammerfall/pkg/database"
	"github.com/hammerfall-games/hammerfall/pkg/events"
)

// Rejection errors. These are expected outcomes of bid admission, not
// failures; callers surface them as normal rejection results.
var (
	ErrAuctionNotFound   = fmt.Errorf("auction not found")
	ErrAuctionEnded      = fmt.Errorf("auction has ended")
	ErrInsufficientFunds = fmt.Errorf("insufficient funds")
	ErrInvalidBidAmount  = fmt.Errorf("bid amount must be positive")
)

// BidTooLowError rejects a bid that does not strictly exceed the current
// maximum. Ties are rejected so same-amount races are never ambiguous.
type BidTooLowError struct {
	CurrentMax int64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid must be higher than %d", e.CurrentMax)
}

const auditWriteTimeout = 5 * time.Second

// Service orchestrates auction lifecycle, bid admission and settlement.
type Service struct {
	txManager database.TransactionManager
	repo      Repository
	cache     BidCache
	ledger    Ledger
	publisher events.Publisher
	logger    *slog.Logger
}

// NewService creates a new auction service
func NewService(
	txManager database.TransactionManager,
	repo Repository,
	cache BidCache,
	ledger Ledger,
	publisher events.Publisher,
	logger *slog.Logger,
) *Service {
	return &Service{
		txManager: txManager,
		repo:      repo,
		cache:     cache,
		ledger:    ledger,
		publisher: publisher,
		logger:    logger,
	}
}

// StartAuction opens a new auction: durable insert first, cache seed
// second. A crash between the two leaves a durable auction with no cache
// entry, which the scheduler resolves as expired on its next sweep.
func (s *Service) StartAuction(ctx context.Context, cmd StartAuctionCommand) (*Auction, error) {
	if cmd.Duration <= 0 {
		return nil, fmt.Errorf("auction duration must be positive")
	}
	if cmd.StartingPrice < 0 {
		return nil, fmt.Errorf("starting price must not be negative")
	}

	now := time.Now()
	au := &Auction{
		ID:         uuid.New(),
		ItemID:     cmd.ItemID,
		StartTime:  now,
		EndTime:    now.Add(cmd.Duration),
		CurrentBid: cmd.StartingPrice,
		Status:     StatusActive,
		CreatedAt:  now,
	}

	if err := s.repo.CreateAuction(ctx, au); err != nil {
		return nil, fmt.Errorf("failed to create auction: %w", err)
	}

	if err := s.cache.Seed(ctx, au); err != nil {
		return nil, fmt.Errorf("failed to seed auction cache: %w", err)
	}

	s.publish(ctx, events.RoutingKeyAuctionCreated, events.AuctionCreated{
		AuctionID:     au.ID,
		ItemID:        au.ItemID,
		EndTime:       au.EndTime,
		StartingPrice: cmd.StartingPrice,
	})

	return au, nil
}

// PlaceBid admits a bid against the cached auction state. The cache is
// the sole source of truth for live state; the durable store only ever
// sees the audit trail, written asynchronously after acceptance.
func (s *Service) PlaceBid(ctx context.Context, cmd PlaceBidCommand) (*Bid, error) {
	if cmd.Amount <= 0 {
		return nil, ErrInvalidBidAmount
	}

	// 1. Auction must exist in the cache and still be running.
	info, err := s.cache.Info(ctx, cmd.AuctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read auction cache: %w", err)
	}
	if info == nil {
		return nil, ErrAuctionNotFound
	}
	if time.Now().After(info.EndTime) {
		return nil, ErrAuctionEnded
	}

	// 2. Early strictly-greater check against the current maximum. This
	// read is advisory; SubmitBid re-validates atomically.
	top, err := s.cache.TopBid(ctx, cmd.AuctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read top bid: %w", err)
	}
	currentMax := info.StartingPrice
	if top != nil {
		currentMax = top.Amount
	}
	if cmd.Amount <= currentMax {
		return nil, &BidTooLowError{CurrentMax: currentMax}
	}

	// 3. Advisory balance check; re-checked under a row lock at settlement.
	balance, err := s.ledger.GetBalance(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}
	if balance < cmd.Amount {
		return nil, ErrInsufficientFunds
	}

	// 4. Atomic admission: the cache serializes read-compare-write per
	// auction, so a concurrently accepted higher bid rejects this one.
	res, err := s.cache.SubmitBid(ctx, cmd.AuctionID, cmd.UserID, cmd.Amount, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to submit bid: %w", err)
	}
	switch res.Status {
	case AdmissionNotFound:
		return nil, ErrAuctionNotFound
	case AdmissionEnded:
		return nil, ErrAuctionEnded
	case AdmissionTooLow:
		return nil, &BidTooLowError{CurrentMax: res.CurrentMax}
	}

	bid := &Bid{
		ID:        uuid.New(),
		AuctionID: cmd.AuctionID,
		UserID:    cmd.UserID,
		Amount:    cmd.Amount,
		CreatedAt: time.Now(),
	}

	// 5. Durable audit row, fire-and-forget. A lost audit entry is
	// tolerated; the cache decides the winner.
	go s.recordBid(context.WithoutCancel(ctx), bid)

	s.publish(ctx, events.RoutingKeyBidPlaced, events.BidPlaced{
		AuctionID: bid.AuctionID,
		UserID:    bid.UserID,
		Amount:    bid.Amount,
	})

	return bid, nil
}

func (s *Service) recordBid(ctx context.Context, bid *Bid) {
	ctx, cancel := context.WithTimeout(ctx, auditWriteTimeout)
	defer cancel()

	if err := s.repo.InsertBid(ctx, bid); err != nil {
		s.logger.Warn("failed to record bid audit row",
			"auction_id", bid.AuctionID, "user_id", bid.UserID, "error", err)
	}
}

// GetHighestBid returns the current highest bid, or nil if there is none.
func (s *Service) GetHighestBid(ctx context.Context, auctionID uuid.UUID) (*TopBid, error) {
	return s.cache.TopBid(ctx, auctionID)
}

// ResolveAuction settles an auction exactly once. The durable status
// field, checked under a row lock, is the idempotency guard; the cache is
// deleted only after the settlement transaction commits, so a crash in
// between is repaired by the next attempt finding status=completed and
// retrying only the idempotent cache cleanup.
func (s *Service) ResolveAuction(ctx context.Context, auctionID uuid.UUID) (*Settlement, error) {
	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	au, err := s.repo.GetAuctionForUpdate(ctx, tx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock auction: %w", err)
	}

	if au.Status != StatusActive {
		// Already settled; retry only the cache cleanup.
		s.clearCache(ctx, auctionID)
		return &Settlement{AuctionID: auctionID, Outcome: OutcomeAlreadyCompleted, WinnerID: au.WinnerID, Amount: au.CurrentBid}, nil
	}

	top, err := s.cache.TopBid(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read winning bid: %w", err)
	}

	var settlement *Settlement
	if top == nil {
		if err := s.repo.MarkCompleted(ctx, tx, auctionID, nil, nil); err != nil {
			return nil, fmt.Errorf("failed to close auction: %w", err)
		}
		settlement = &Settlement{AuctionID: auctionID, Outcome: OutcomeNoBids}
	} else {
		settlement, err = s.settleWinner(ctx, tx, au, top)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit settlement: %w", err)
	}

	s.clearCache(ctx, auctionID)

	winnerID := uuid.Nil
	if settlement.WinnerID != nil {
		winnerID = *settlement.WinnerID
	}
	s.logger.Info("auction resolved",
		"auction_id", auctionID, "outcome", settlement.Outcome,
		"winner_id", winnerID, "amount", settlement.Amount)

	s.publish(ctx, events.RoutingKeyAuctionCompleted, events.AuctionCompleted{
		AuctionID: auctionID,
		WinnerID:  settlement.WinnerID,
		Amount:    settlement.Amount,
	})

	return settlement, nil
}

// settleWinner debits the winner, grants the item and closes the auction
// inside the caller's transaction so the three writes commit together.
func (s *Service) settleWinner(ctx context.Context, tx pgx.Tx, au *Auction, top *TopBid) (*Settlement, error) {
	err := s.ledger.DebitTx(ctx, tx, top.UserID, top.Amount, economy.TxTypeAuctionWin)
	if errors.Is(err, economy.ErrInsufficientFunds) {
		// The winner's balance dropped since admission. Close the sale
		// with no winner rather than retrying it forever.
		if err := s.repo.MarkCompleted(ctx, tx, au.ID, nil, nil); err != nil {
			return nil, fmt.Errorf("failed to close underfunded auction: %w", err)
		}
		return &Settlement{AuctionID: au.ID, Outcome: OutcomeUnderfunded}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to debit winner: %w", err)
	}

	if err := s.repo.GrantItem(ctx, tx, top.UserID, au.ItemID); err != nil {
		return nil, fmt.Errorf("failed to grant item: %w", err)
	}

	winnerID := top.UserID
	if err := s.repo.MarkCompleted(ctx, tx, au.ID, &winnerID, &top.Amount); err != nil {
		return nil, fmt.Errorf("failed to close auction: %w", err)
	}

	return &Settlement{AuctionID: au.ID, Outcome: OutcomeWon, WinnerID: &winnerID, Amount: top.Amount}, nil
}

func (s *Service) clearCache(ctx context.Context, auctionID uuid.UUID) {
	if err := s.cache.Clear(ctx, auctionID); err != nil {
		s.logger.Warn("failed to clear auction cache", "auction_id", auctionID, "error", err)
	}
}

// publish broadcasts an event to connected observers. Best-effort: a
// publish failure never fails the operation that produced the event.
func (s *Service) publish(ctx context.Context, routingKey string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to marshal event", "routing_key", routingKey, "error", err)
		return
	}
	if err := s.publisher.Publish(ctx, events.Exchange, routingKey, body); err != nil {
		s.logger.Warn("failed to publish event", "routing_key", routingKey, "error", err)
	}
}
