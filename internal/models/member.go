package models

import "time"

// Member is the slice of the external user directory the ledger needs:
// who referred the user and which tier they hold.
type Member struct {
	ID        string    `bson:"_id" json:"id"`
	UplineID  string    `bson:"uplineId,omitempty" json:"uplineId,omitempty"`
	Tier      Tier      `bson:"tier,omitempty" json:"tier,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
