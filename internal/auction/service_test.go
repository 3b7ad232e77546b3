package auction

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hammerfall-games/hammerfall/internal/economy"
)

// MockRepository is a mock implementation of Repository for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateAuction(ctx context.Context, au *Auction) error {
	args := m.Called(ctx, au)
	return args.Error(0)
}

func (m *MockRepository) GetAuctionByID(ctx context.Context, auctionID uuid.UUID) (*Auction, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Auction), args.Error(1)
}

func (m *MockRepository) GetAuctionForUpdate(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) (*Auction, error) {
	args := m.Called(ctx, tx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Auction), args.Error(1)
}

func (m *MockRepository) MarkCompleted(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, winnerID *uuid.UUID, finalBid *int64) error {
	args := m.Called(ctx, tx, auctionID, winnerID, finalBid)
	return args.Error(0)
}

func (m *MockRepository) ListExpiredActive(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockRepository) InsertBid(ctx context.Context, bid *Bid) error {
	args := m.Called(ctx, bid)
	return args.Error(0)
}

func (m *MockRepository) GrantItem(ctx context.Context, tx pgx.Tx, userID, itemID uuid.UUID) error {
	args := m.Called(ctx, tx, userID, itemID)
	return args.Error(0)
}

// MockBidCache is a mock implementation of BidCache for testing
type MockBidCache struct {
	mock.Mock
}

func (m *MockBidCache) Seed(ctx context.Context, au *Auction) error {
	args := m.Called(ctx, au)
	return args.Error(0)
}

func (m *MockBidCache) Info(ctx context.Context, auctionID uuid.UUID) (*CachedAuction, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CachedAuction), args.Error(1)
}

func (m *MockBidCache) TopBid(ctx context.Context, auctionID uuid.UUID) (*TopBid, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TopBid), args.Error(1)
}

func (m *MockBidCache) SubmitBid(ctx context.Context, auctionID, userID uuid.UUID, amount int64, now time.Time) (AdmissionResult, error) {
	args := m.Called(ctx, auctionID, userID, amount, now)
	return args.Get(0).(AdmissionResult), args.Error(1)
}

func (m *MockBidCache) Clear(ctx context.Context, auctionID uuid.UUID) error {
	args := m.Called(ctx, auctionID)
	return args.Error(0)
}

// MockLedger is a mock implementation of Ledger for testing
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedger) DebitTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, txType string) error {
	args := m.Called(ctx, tx, userID, amount, txType)
	return args.Error(0)
}

// MockPublisher is a mock implementation of events.Publisher for testing
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	args := m.Called(ctx, exchange, routingKey, body)
	return args.Error(0)
}

// mockTx satisfies pgx.Tx via embedding; only Commit and Rollback are
// expected to be reached in these tests.
type mockTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *mockTx) Commit(_ context.Context) error {
	t.committed = true
	return nil
}

func (t *mockTx) Rollback(_ context.Context) error {
	t.rolledBack = true
	return nil
}

type mockTxManager struct {
	tx *mockTx
}

func (m *mockTxManager) BeginTx(_ context.Context) (pgx.Tx, error) {
	return m.tx, nil
}

type serviceFixture struct {
	service   *Service
	repo      *MockRepository
	cache     *MockBidCache
	ledger    *MockLedger
	publisher *MockPublisher
	tx        *mockTx
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		repo:      &MockRepository{},
		cache:     &MockBidCache{},
		ledger:    &MockLedger{},
		publisher: &MockPublisher{},
		tx:        &mockTx{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.service = NewService(&mockTxManager{tx: f.tx}, f.repo, f.cache, f.ledger, f.publisher, logger)
	return f
}

func TestService_PlaceBid(t *testing.T) {
	auctionID := uuid.New()
	userID := uuid.New()
	liveInfo := &CachedAuction{
		AuctionID:     auctionID,
		ItemID:        uuid.New(),
		EndTime:       time.Now().Add(1 * time.Hour),
		StartingPrice: 100,
	}

	tests := []struct {
		name      string
		cmd       PlaceBidCommand
		setup     func(*serviceFixture)
		wantErr   error
		wantedMax int64
	}{
		{
			name:    "rejects non-positive amount",
			cmd:     PlaceBidCommand{AuctionID: auctionID, UserID: userID, Amount: 0},
			setup:   func(f *serviceFixture) {},
			wantErr: ErrInvalidBidAmount,
		},
		{
			name: "rejects unknown auction",
			cmd:  PlaceBidCommand{AuctionID: auctionID, UserID: userID, Amount: 200},
			setup: func(f *serviceFixture) {
				f.cache.On("Info", mock.Anything, auctionID).Return(nil, nil)
			},
			wantErr: ErrAuctionNotFound,
		},
		{
			name: "rejects ended auction",
			cmd:  PlaceBidCommand{AuctionID: auctionID, UserID: userID, Amount: 200},
			setup: func(f *serviceFixture) {
				ended := *liveInfo
				ended.EndTime = time.Now().Add(-1 * time.Minute)
				f.cache.On("Info", mock.Anything, auctionID).Return(&ended, nil)
			},
			wantErr: ErrAuctionEnded,
		},
		{
			name: "rejects bid at current maximum",
			cmd:  PlaceBidCommand{AuctionID: auctionID, UserID: userID, Amount: 500},
			setup: func(f *serviceFixture) {
				f.cache.On("Info", mock.Anything, auctionID).Return(liveInfo, nil)
				f.cache.On("TopBid", mock.Anything, auctionID).
					Return(&TopBid{UserID: uuid.New(), Amount: 500}, nil)
			},
			wantedMax: 500,
		},
		{
			name: "rejects bid at starting price when no bids yet",
			cmd:  PlaceBidCommand{AuctionID: auctionID, UserID: userID, Amount: 100},
			setup: func(f *serviceFixture) {
				f.cache.On("Info", mock.Anything, auctionID).Return(liveInfo, nil)
				f.cache.On("TopBid", mock.Anything, auctionID).Return(nil, nil)
			},
			wantedMax: 100,
		},
		{
			name: "rejects bidder with insufficient balance",
			cmd:  PlaceBidCommand{AuctionID: auctionID, UserID: userID, Amount: 200},
			setup: func(f *serviceFixture) {
				f.cache.On("Info", mock.Anything, auctionID).Return(liveInfo, nil)
				f.cache.On("TopBid", mock.Anything, auctionID).Return(nil, nil)
				f.ledger.On("GetBalance", mock.Anything, userID).Return(int64(150), nil)
			},
			wantErr: ErrInsufficientFunds,
		},
		{
			name: "rejects bid outraced by a concurrent higher bid",
			cmd:  PlaceBidCommand{AuctionID: auctionID, UserID: userID, Amount: 200},
			setup: func(f *serviceFixture) {
				f.cache.On("Info", mock.Anything, auctionID).Return(liveInfo, nil)
				f.cache.On("TopBid", mock.Anything, auctionID).Return(nil, nil)
				f.ledger.On("GetBalance", mock.Anything, userID).Return(int64(1000), nil)
				f.cache.On("SubmitBid", mock.Anything, auctionID, userID, int64(200), mock.Anything).
					Return(AdmissionResult{Status: AdmissionTooLow, CurrentMax: 250}, nil)
			},
			wantedMax: 250,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture()
			tt.setup(f)

			bid, err := f.service.PlaceBid(context.Background(), tt.cmd)

			require.Error(t, err)
			assert.Nil(t, bid)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				var tooLow *BidTooLowError
				require.ErrorAs(t, err, &tooLow)
				assert.Equal(t, tt.wantedMax, tooLow.CurrentMax)
			}
			f.cache.AssertExpectations(t)
		})
	}
}

func TestService_PlaceBid_Accepted(t *testing.T) {
	auctionID := uuid.New()
	userID := uuid.New()

	f := newServiceFixture()
	f.cache.On("Info", mock.Anything, auctionID).Return(&CachedAuction{
		AuctionID:     auctionID,
		ItemID:        uuid.New(),
		EndTime:       time.Now().Add(1 * time.Hour),
		StartingPrice: 100,
	}, nil)
	f.cache.On("TopBid", mock.Anything, auctionID).Return(&TopBid{UserID: uuid.New(), Amount: 150}, nil)
	f.ledger.On("GetBalance", mock.Anything, userID).Return(int64(1000), nil)
	f.cache.On("SubmitBid", mock.Anything, auctionID, userID, int64(200), mock.Anything).
		Return(AdmissionResult{Status: AdmissionAccepted, CurrentMax: 200}, nil)
	// The audit row is written from a goroutine that may outlive the test.
	f.repo.On("InsertBid", mock.Anything, mock.AnythingOfType("*auction.Bid")).Return(nil).Maybe()
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	bid, err := f.service.PlaceBid(context.Background(), PlaceBidCommand{
		AuctionID: auctionID,
		UserID:    userID,
		Amount:    200,
	})

	require.NoError(t, err)
	require.NotNil(t, bid)
	assert.Equal(t, auctionID, bid.AuctionID)
	assert.Equal(t, userID, bid.UserID)
	assert.Equal(t, int64(200), bid.Amount)
	assert.NotEqual(t, uuid.Nil, bid.ID)
	f.cache.AssertExpectations(t)
}

func TestService_StartAuction(t *testing.T) {
	itemID := uuid.New()

	t.Run("rejects non-positive duration", func(t *testing.T) {
		f := newServiceFixture()
		au, err := f.service.StartAuction(context.Background(), StartAuctionCommand{ItemID: itemID})
		require.Error(t, err)
		assert.Nil(t, au)
	})

	t.Run("persists then seeds the cache", func(t *testing.T) {
		f := newServiceFixture()
		f.repo.On("CreateAuction", mock.Anything, mock.AnythingOfType("*auction.Auction")).Return(nil)
		f.cache.On("Seed", mock.Anything, mock.AnythingOfType("*auction.Auction")).Return(nil)
		f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		au, err := f.service.StartAuction(context.Background(), StartAuctionCommand{
			ItemID:        itemID,
			Duration:      30 * time.Minute,
			StartingPrice: 100,
		})

		require.NoError(t, err)
		require.NotNil(t, au)
		assert.Equal(t, StatusActive, au.Status)
		assert.Equal(t, int64(100), au.CurrentBid)
		assert.WithinDuration(t, time.Now().Add(30*time.Minute), au.EndTime, 5*time.Second)
		f.repo.AssertExpectations(t)
		f.cache.AssertExpectations(t)
	})
}

func TestService_ResolveAuction_Winner(t *testing.T) {
	auctionID := uuid.New()
	itemID := uuid.New()
	winnerID := uuid.New()

	f := newServiceFixture()
	f.repo.On("GetAuctionForUpdate", mock.Anything, f.tx, auctionID).Return(&Auction{
		ID:     auctionID,
		ItemID: itemID,
		Status: StatusActive,
	}, nil)
	f.cache.On("TopBid", mock.Anything, auctionID).Return(&TopBid{UserID: winnerID, Amount: 500}, nil)
	f.ledger.On("DebitTx", mock.Anything, f.tx, winnerID, int64(500), economy.TxTypeAuctionWin).Return(nil)
	f.repo.On("GrantItem", mock.Anything, f.tx, winnerID, itemID).Return(nil)
	f.repo.On("MarkCompleted", mock.Anything, f.tx, auctionID, &winnerID, mock.AnythingOfType("*int64")).Return(nil)
	f.cache.On("Clear", mock.Anything, auctionID).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	settlement, err := f.service.ResolveAuction(context.Background(), auctionID)

	require.NoError(t, err)
	require.NotNil(t, settlement)
	assert.Equal(t, OutcomeWon, settlement.Outcome)
	require.NotNil(t, settlement.WinnerID)
	assert.Equal(t, winnerID, *settlement.WinnerID)
	assert.Equal(t, int64(500), settlement.Amount)
	assert.True(t, f.tx.committed, "settlement transaction must commit")
	f.repo.AssertExpectations(t)
	f.cache.AssertExpectations(t)
	f.ledger.AssertExpectations(t)
}

func TestService_ResolveAuction_NoBids(t *testing.T) {
	auctionID := uuid.New()

	f := newServiceFixture()
	f.repo.On("GetAuctionForUpdate", mock.Anything, f.tx, auctionID).Return(&Auction{
		ID:     auctionID,
		ItemID: uuid.New(),
		Status: StatusActive,
	}, nil)
	f.cache.On("TopBid", mock.Anything, auctionID).Return(nil, nil)
	f.repo.On("MarkCompleted", mock.Anything, f.tx, auctionID, (*uuid.UUID)(nil), (*int64)(nil)).Return(nil)
	f.cache.On("Clear", mock.Anything, auctionID).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	settlement, err := f.service.ResolveAuction(context.Background(), auctionID)

	require.NoError(t, err)
	assert.Equal(t, OutcomeNoBids, settlement.Outcome)
	assert.Nil(t, settlement.WinnerID)
	assert.True(t, f.tx.committed)
	f.repo.AssertExpectations(t)
}

func TestService_ResolveAuction_UnderfundedWinner(t *testing.T) {
	auctionID := uuid.New()
	winnerID := uuid.New()

	f := newServiceFixture()
	f.repo.On("GetAuctionForUpdate", mock.Anything, f.tx, auctionID).Return(&Auction{
		ID:     auctionID,
		ItemID: uuid.New(),
		Status: StatusActive,
	}, nil)
	f.cache.On("TopBid", mock.Anything, auctionID).Return(&TopBid{UserID: winnerID, Amount: 500}, nil)
	f.ledger.On("DebitTx", mock.Anything, f.tx, winnerID, int64(500), economy.TxTypeAuctionWin).
		Return(economy.ErrInsufficientFunds)
	f.repo.On("MarkCompleted", mock.Anything, f.tx, auctionID, (*uuid.UUID)(nil), (*int64)(nil)).Return(nil)
	f.cache.On("Clear", mock.Anything, auctionID).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	settlement, err := f.service.ResolveAuction(context.Background(), auctionID)

	require.NoError(t, err)
	assert.Equal(t, OutcomeUnderfunded, settlement.Outcome)
	assert.Nil(t, settlement.WinnerID)
	assert.True(t, f.tx.committed, "closing with no winner still commits")
	f.repo.AssertNotCalled(t, "GrantItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_ResolveAuction_AlreadyCompleted(t *testing.T) {
	auctionID := uuid.New()
	winnerID := uuid.New()

	f := newServiceFixture()
	f.repo.On("GetAuctionForUpdate", mock.Anything, f.tx, auctionID).Return(&Auction{
		ID:         auctionID,
		ItemID:     uuid.New(),
		Status:     StatusCompleted,
		WinnerID:   &winnerID,
		CurrentBid: 500,
	}, nil)
	f.cache.On("Clear", mock.Anything, auctionID).Return(nil)

	settlement, err := f.service.ResolveAuction(context.Background(), auctionID)

	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyCompleted, settlement.Outcome)
	assert.False(t, f.tx.committed, "no writes on an already settled auction")
	f.repo.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.ledger.AssertNotCalled(t, "DebitTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.cache.AssertExpectations(t)
}
