package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when a keyed lookup matches nothing.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an idempotency key has already been written.
	ErrDuplicate = errors.New("duplicate record")
	// ErrConflict is returned when a guarded write lost a race, e.g. a lot
	// no longer holds the points a drawdown expected.
	ErrConflict = errors.New("concurrent modification")
	// ErrOutOfStock is returned when a drawdown tries to take a unit of a reward with no stock.
	ErrOutOfStock = errors.New("reward out of stock")
)

// LotDraw takes Amount points out of a single lot.
type LotDraw struct {
	LotID  primitive.ObjectID
	Amount int64
}

// Drawdown is a unit of work that consumes lots. Every draw, the optional
// reward stock decrement and every transaction are committed together or not at all.
type Drawdown struct {
	Draws        []LotDraw
	Transactions []*models.PointTransaction
	// RewardID, when set, decrements that reward's stock by one.
	RewardID *primitive.ObjectID
}

// PointLedgerRepository stores point lots and the transaction history.
type PointLedgerRepository interface {
	// InsertLot writes a lot with its crediting transaction. It assigns ids and
	// links txn to the lot. ErrDuplicate is returned if lot.SourceKey was seen before.
	InsertLot(ctx context.Context, lot *models.PointLot, txn *models.PointTransaction) error
	FindLotsByUserID(ctx context.Context, userID string) ([]*models.PointLot, error)
	// FindExpiredLots returns lots with expiresAt <= asOf that still hold points.
	FindExpiredLots(ctx context.Context, asOf time.Time) ([]*models.PointLot, error)
	CommitDrawdown(ctx context.Context, d *Drawdown) error
	// FindTransactionsByUserID pages through history newest first. page is 1-based.
	FindTransactionsByUserID(ctx context.Context, userID string, page, limit int) ([]*models.PointTransaction, error)
}

// CommissionRepository stores commission records.
type CommissionRepository interface {
	// Create inserts c, returning ErrDuplicate when (orderId, beneficiaryId, level) exists.
	Create(ctx context.Context, c *models.Commission) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Commission, error)
	FindByBeneficiaryID(ctx context.Context, beneficiaryID string, page, limit int) ([]*models.Commission, error)
	SumByBeneficiaryID(ctx context.Context, beneficiaryID string) (int64, error)
	// MarkPaid moves a pending commission to paid. ErrConflict if it is already paid.
	MarkPaid(ctx context.Context, id primitive.ObjectID, paidAt time.Time) error
}

// RewardRepository stores the reward catalog.
type RewardRepository interface {
	Create(ctx context.Context, reward *models.Reward) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Reward, error)
	// FindAll lists rewards by pointsRequired ascending, ties in creation order.
	FindAll(ctx context.Context, activeOnly bool) ([]*models.Reward, error)
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) error
}

// LoyaltyRuleRepository stores the single loyalty rule document.
type LoyaltyRuleRepository interface {
	Get(ctx context.Context) (*models.LoyaltyRule, error)
	// Save writes rule if the stored version is rule.Version-1 (or absent when
	// rule.Version is 1), otherwise ErrConflict.
	Save(ctx context.Context, rule *models.LoyaltyRule) error
}

// MemberRepository reads the external user directory.
type MemberRepository interface {
	Upsert(ctx context.Context, member *models.Member) error
	FindByID(ctx context.Context, id string) (*models.Member, error)
	FindByUplineIDs(ctx context.Context, uplineIDs []string) ([]*models.Member, error)
}

// OrderRepository records which orders have been completed.
type OrderRepository interface {
	// Insert records a completion, returning ErrDuplicate when the order id exists.
	Insert(ctx context.Context, order *models.OrderCompletion) error
	FindByID(ctx context.Context, orderID string) (*models.OrderCompletion, error)
}
