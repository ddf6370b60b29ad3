package models

import "time"

// OrderCompletion pins an order id to the buyer and total it was first
// completed with. Later events for the same id must match it.
type OrderCompletion struct {
	OrderID     string    `bson:"_id" json:"orderId"`
	BuyerID     string    `bson:"buyerId" json:"buyerId"`
	TotalAmount int64     `bson:"totalAmount" json:"totalAmount"`
	CompletedAt time.Time `bson:"completedAt" json:"completedAt"`
}

// Matches reports whether another event describes the same order.
func (o *OrderCompletion) Matches(buyerID string, totalAmount int64) bool {
	return o.BuyerID == buyerID && o.TotalAmount == totalAmount
}
