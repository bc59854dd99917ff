package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies an account transaction.
type TransactionType string

const (
	// TxnDeposit is money a member put into the pool (sender == target).
	TxnDeposit TransactionType = "DEPOSIT"
	// TxnTransfer moves credit from one member to another.
	TxnTransfer TransactionType = "TRANSFER"
	// TxnAdjustment is a manager correction; amount may be negative.
	TxnAdjustment TransactionType = "ADJUSTMENT"
)

// AccountTransaction is a directed monetary movement between members of a room.
// Only the target side accrues balance; spend-down happens through imputed meal
// spend, never through a sender-side debit.
type AccountTransaction struct {
	TransactionID string          `json:"transactionID"` // Primary Key (UUID)
	RoomID        string          `json:"roomID"`        // FK -> rooms.room_id
	PeriodID      *string         `json:"periodID"`
	SenderID      string          `json:"senderID"` // FK -> users.user_id
	TargetID      string          `json:"targetID"` // FK -> users.user_id; receives the credit
	Amount        decimal.Decimal `json:"amount"`   // Signed; negative values are corrections
	Type          TransactionType `json:"type"`
	Description   string          `json:"description"`
	AuditFields
}

// IsDeposit reports whether the transaction is a self-credit rather than a transfer.
func (t AccountTransaction) IsDeposit() bool {
	return t.SenderID == t.TargetID
}

// HistoryAction identifies which mutation a history row snapshots.
type HistoryAction string

const (
	HistoryCreate HistoryAction = "CREATE"
	HistoryUpdate HistoryAction = "UPDATE"
	HistoryDelete HistoryAction = "DELETE"
)

// TransactionHistory is one immutable row per mutation of an AccountTransaction,
// snapshotting the state the transaction had before the mutation (or the initial
// state for CREATE). Rows are append-only.
type TransactionHistory struct {
	HistoryID     string          `json:"historyID"`     // Primary Key (UUID)
	TransactionID string          `json:"transactionID"` // FK -> account_transactions.transaction_id
	Action        HistoryAction   `json:"action"`
	Amount        decimal.Decimal `json:"amount"`
	Type          TransactionType `json:"type"`
	Description   string          `json:"description"`
	ActorID       string          `json:"actorID"`
	ActorName     string          `json:"actorName"` // Populated on read via join
	CreatedAt     time.Time       `json:"createdAt"`
}
