package amqp

import (
	"encoding/json"
	"time"
)

// TransactionExportMessage asks the export worker to append one saved
// transaction to the backup spreadsheet. Only identifiers travel on the
// wire; the worker fetches the row from the database.
type TransactionExportMessage struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionExportMessage(id, userID int64) *TransactionExportMessage {
	return &TransactionExportMessage{
		ID:        id,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

func (m *TransactionExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionExportMessageFromJSON(data []byte) (*TransactionExportMessage, error) {
	var msg TransactionExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
