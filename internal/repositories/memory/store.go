// Package memory keeps the ledger in process memory. It backs local
// development and the service tests; state is lost on restart.
package memory

import (
	"sync"

	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store holds every collection behind one lock so that a drawdown touching
// lots, rewards and transactions is applied atomically.
type Store struct {
	mu sync.RWMutex

	lots         map[primitive.ObjectID]*models.PointLot
	lotOrder     []primitive.ObjectID
	sourceKeys   map[string]primitive.ObjectID
	transactions []*models.PointTransaction
	commissions  map[primitive.ObjectID]*models.Commission
	commKeys     map[commissionKey]primitive.ObjectID
	commOrder    []primitive.ObjectID
	rewards      map[primitive.ObjectID]*models.Reward
	rewardOrder  []primitive.ObjectID
	rule         *models.LoyaltyRule
	members      map[string]*models.Member
	orders       map[string]*models.OrderCompletion
}

type commissionKey struct {
	orderID       string
	beneficiaryID string
	level         int
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		lots:        make(map[primitive.ObjectID]*models.PointLot),
		sourceKeys:  make(map[string]primitive.ObjectID),
		commissions: make(map[primitive.ObjectID]*models.Commission),
		commKeys:    make(map[commissionKey]primitive.ObjectID),
		rewards:     make(map[primitive.ObjectID]*models.Reward),
		members:     make(map[string]*models.Member),
		orders:      make(map[string]*models.OrderCompletion),
	}
}

func paginate[T any](items []T, page, limit int) []T {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		return []T{}
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
