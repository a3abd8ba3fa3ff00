package amqp

import (
	"encoding/json"
	"time"
)

// Ledger operations carried by LedgerChangedMessage.
const (
	OpCreated = "created"
	OpDeleted = "deleted"
)

// LedgerChangedMessage tells consumers that an owner's ledger changed. It
// carries no amounts; consumers re-read the owner's records.
type LedgerChangedMessage struct {
	OwnerID       string    `json:"ownerId"`
	Op            string    `json:"op"`
	TransactionID string    `json:"transactionId"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(ownerID, op, transactionID string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		OwnerID:       ownerID,
		Op:            op,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
