//go:build integration

package auction_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammerfall-games/hammerfall/internal/auction"
	"github.com/hammerfall-games/hammerfall/internal/economy"
	"github.com/hammerfall-games/hammerfall/internal/infra/cache"
	infradb "github.com/hammerfall-games/hammerfall/internal/infra/database"
	pkgdb "github.com/hammerfall-games/hammerfall/pkg/database"
	"github.com/hammerfall-games/hammerfall/pkg/testhelpers"
)

// noopPublisher drops events; event delivery is covered elsewhere.
type noopPublisher struct{}

func (noopPublisher) Publish(_ context.Context, _, _ string, _ []byte) error { return nil }

type engineFixture struct {
	service *auction.Service
	repo    *infradb.PostgresAuctionRepository
	cache   *cache.MemoryBidCache
	economy *economy.Service
	pool    *pgxpool.Pool
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	testDB := testhelpers.NewTestDatabase(t, "../../migrations")
	t.Cleanup(testDB.Close)

	pool := testDB.Pool
	txManager := pkgdb.NewPostgresTransactionManager(pool, 5*time.Second)
	repo := infradb.NewPostgresAuctionRepository(pool)
	bidCache := cache.NewMemoryBidCache()
	economySvc := economy.NewService(txManager, infradb.NewPostgresLedgerRepository(pool))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &engineFixture{
		service: auction.NewService(txManager, repo, bidCache, economySvc, noopPublisher{}, logger),
		repo:    repo,
		cache:   bidCache,
		economy: economySvc,
		pool:    pool,
	}
}

func (f *engineFixture) seedUser(t *testing.T, balance int64) uuid.UUID {
	t.Helper()
	userID := uuid.New()
	_, err := f.pool.Exec(context.Background(),
		`INSERT INTO users (id, username, password_hash, balance, created_at)
		 VALUES ($1, $2, 'x', $3, NOW())`,
		userID, "user_"+userID.String()[:8], balance,
	)
	require.NoError(t, err)
	return userID
}

func (f *engineFixture) seedItem(t *testing.T) uuid.UUID {
	t.Helper()
	itemID := uuid.New()
	_, err := f.pool.Exec(context.Background(),
		`INSERT INTO items (id, name, base_price, created_at) VALUES ($1, 'Obsidian Blade', 100, NOW())`,
		itemID,
	)
	require.NoError(t, err)
	return itemID
}

func (f *engineFixture) balance(t *testing.T, userID uuid.UUID) int64 {
	t.Helper()
	var balance int64
	err := f.pool.QueryRow(context.Background(),
		`SELECT balance FROM users WHERE id = $1`, userID).Scan(&balance)
	require.NoError(t, err)
	return balance
}

func (f *engineFixture) ownsItem(t *testing.T, userID, itemID uuid.UUID) bool {
	t.Helper()
	var count int
	err := f.pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM user_items WHERE user_id = $1 AND item_id = $2`,
		userID, itemID).Scan(&count)
	require.NoError(t, err)
	return count > 0
}

func TestAuctionEngine_FullCycle(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	itemID := f.seedItem(t)
	loser := f.seedUser(t, 1000)
	winner := f.seedUser(t, 1000)

	au, err := f.service.StartAuction(ctx, auction.StartAuctionCommand{
		ItemID:        itemID,
		Duration:      time.Hour,
		StartingPrice: 100,
	})
	require.NoError(t, err)

	_, err = f.service.PlaceBid(ctx, auction.PlaceBidCommand{AuctionID: au.ID, UserID: loser, Amount: 200})
	require.NoError(t, err)
	_, err = f.service.PlaceBid(ctx, auction.PlaceBidCommand{AuctionID: au.ID, UserID: winner, Amount: 500})
	require.NoError(t, err)

	// A losing re-bid below the maximum reports the bar to clear.
	_, err = f.service.PlaceBid(ctx, auction.PlaceBidCommand{AuctionID: au.ID, UserID: loser, Amount: 400})
	var tooLow *auction.BidTooLowError
	require.ErrorAs(t, err, &tooLow)
	assert.Equal(t, int64(500), tooLow.CurrentMax)

	settlement, err := f.service.ResolveAuction(ctx, au.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.OutcomeWon, settlement.Outcome)
	require.NotNil(t, settlement.WinnerID)
	assert.Equal(t, winner, *settlement.WinnerID)

	// Only the winner pays; the loser's funds were never held.
	assert.Equal(t, int64(500), f.balance(t, winner))
	assert.Equal(t, int64(1000), f.balance(t, loser))
	assert.True(t, f.ownsItem(t, winner, itemID))
	assert.False(t, f.ownsItem(t, loser, itemID))

	// Live state is gone; late bids are rejected as not found.
	_, err = f.service.PlaceBid(ctx, auction.PlaceBidCommand{AuctionID: au.ID, UserID: loser, Amount: 900})
	assert.ErrorIs(t, err, auction.ErrAuctionNotFound)

	stored, err := f.repo.GetAuctionByID(ctx, au.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.StatusCompleted, stored.Status)
	assert.Equal(t, int64(500), stored.CurrentBid)
}

func TestAuctionEngine_ResolveIsIdempotent(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	itemID := f.seedItem(t)
	winner := f.seedUser(t, 1000)

	au, err := f.service.StartAuction(ctx, auction.StartAuctionCommand{
		ItemID:        itemID,
		Duration:      time.Hour,
		StartingPrice: 100,
	})
	require.NoError(t, err)

	_, err = f.service.PlaceBid(ctx, auction.PlaceBidCommand{AuctionID: au.ID, UserID: winner, Amount: 500})
	require.NoError(t, err)

	first, err := f.service.ResolveAuction(ctx, au.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.OutcomeWon, first.Outcome)

	// A concurrent or repeated trigger settles nothing twice.
	second, err := f.service.ResolveAuction(ctx, au.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.OutcomeAlreadyCompleted, second.Outcome)

	assert.Equal(t, int64(500), f.balance(t, winner))

	var owned int
	err = f.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_items WHERE user_id = $1 AND item_id = $2`,
		winner, itemID).Scan(&owned)
	require.NoError(t, err)
	assert.Equal(t, 1, owned)
}

func TestAuctionEngine_NoBids(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	au, err := f.service.StartAuction(ctx, auction.StartAuctionCommand{
		ItemID:        f.seedItem(t),
		Duration:      time.Hour,
		StartingPrice: 100,
	})
	require.NoError(t, err)

	settlement, err := f.service.ResolveAuction(ctx, au.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.OutcomeNoBids, settlement.Outcome)
	assert.Nil(t, settlement.WinnerID)

	stored, err := f.repo.GetAuctionByID(ctx, au.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.StatusCompleted, stored.Status)
	assert.Nil(t, stored.WinnerID)
}

func TestAuctionEngine_UnderfundedWinnerClosesWithoutSale(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	itemID := f.seedItem(t)
	bidder := f.seedUser(t, 1000)

	au, err := f.service.StartAuction(ctx, auction.StartAuctionCommand{
		ItemID:        itemID,
		Duration:      time.Hour,
		StartingPrice: 100,
	})
	require.NoError(t, err)

	_, err = f.service.PlaceBid(ctx, auction.PlaceBidCommand{AuctionID: au.ID, UserID: bidder, Amount: 800})
	require.NoError(t, err)

	// The balance drains between admission and settlement.
	require.NoError(t, f.economy.Debit(ctx, bidder, 900, economy.TxTypeBuyItem))

	settlement, err := f.service.ResolveAuction(ctx, au.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.OutcomeUnderfunded, settlement.Outcome)

	assert.Equal(t, int64(100), f.balance(t, bidder))
	assert.False(t, f.ownsItem(t, bidder, itemID))

	stored, err := f.repo.GetAuctionByID(ctx, au.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.StatusCompleted, stored.Status)
	assert.Nil(t, stored.WinnerID)
}

func TestAuctionEngine_SchedulerSweepsExpired(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	itemID := f.seedItem(t)
	bidder := f.seedUser(t, 1000)

	au, err := f.service.StartAuction(ctx, auction.StartAuctionCommand{
		ItemID:        itemID,
		Duration:      50 * time.Millisecond,
		StartingPrice: 100,
	})
	require.NoError(t, err)

	_, err = f.service.PlaceBid(ctx, auction.PlaceBidCommand{AuctionID: au.ID, UserID: bidder, Amount: 300})
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	// Past its end time the auction takes no more bids but is still
	// unsettled until a sweep reaches it.
	_, err = f.service.PlaceBid(ctx, auction.PlaceBidCommand{AuctionID: au.ID, UserID: bidder, Amount: 400})
	assert.ErrorIs(t, err, auction.ErrAuctionEnded)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	scheduler := auction.NewScheduler(f.service, f.repo, time.Minute, logger)
	require.NoError(t, scheduler.Sweep(ctx))

	stored, err := f.repo.GetAuctionByID(ctx, au.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.StatusCompleted, stored.Status)
	require.NotNil(t, stored.WinnerID)
	assert.Equal(t, bidder, *stored.WinnerID)
	assert.Equal(t, int64(700), f.balance(t, bidder))

	// The sweep converges: nothing is left to resolve.
	expired, err := f.repo.ListExpiredActive(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, expired)
}
