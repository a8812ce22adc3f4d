// Package transfer describes the outcome of moving units between holders.
package transfer

import (
	"time"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/types"
)

// Receipt summarizes a successful transfer. Balances are post-transfer.
// Receipts are returned to the caller and are not persisted.
type Receipt struct {
	ID              id.TransferID `json:"id"`
	Sender          account.ID    `json:"sender"`
	Receiver        account.ID    `json:"receiver"`
	Amount          types.Balance `json:"amount"`
	SenderBalance   types.Balance `json:"sender_balance"`
	ReceiverBalance types.Balance `json:"receiver_balance"`
	CreatedAt       time.Time     `json:"created_at"`
}

// IsSelfTransfer reports whether sender and receiver are the same holder.
func (r *Receipt) IsSelfTransfer() bool {
	return r.Sender == r.Receiver
}
