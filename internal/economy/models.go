package economy

import (
	"time"

	"github.com/google/uuid"
)

// Transaction types recorded in the audit trail.
const (
	TxTypeAuctionWin = "auction_win"
	TxTypeDailyEarn  = "daily_earn"
	TxTypeBuyItem    = "buy_item"
	TxTypeAdminGrant = "admin_grant"
)

// Daily earn reward parameters: base payout plus a growing streak bonus.
const (
	earnBaseAmount  = 100
	earnStreakBonus = 10
)

// Transaction is one append-only ledger audit row. From/To are nil for
// mints and burns respectively.
type Transaction struct {
	ID         uuid.UUID
	FromUserID *uuid.UUID
	ToUserID   *uuid.UUID
	Amount     int64
	Type       string
	CreatedAt  time.Time
}

// EarnState is the per-user daily-reward bookkeeping.
type EarnState struct {
	LastEarnDate *time.Time
	Streak       int
}

// EarnResult reports a successful daily reward claim.
type EarnResult struct {
	Amount int64
	Streak int
}
