package amqp

import (
	"encoding/json"
	"time"
)

// EntryRecordedMessage notifies workers that a ledger entry was written.
// It carries only the entry id; consumers fetch the full entry from the
// store so the spreadsheet row always reflects the current record.
type EntryRecordedMessage struct {
	EntryID   string    `json:"entry_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEntryRecordedMessage(entryID, userID string) *EntryRecordedMessage {
	return &EntryRecordedMessage{
		EntryID:   entryID,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

func (m *EntryRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EntryRecordedMessageFromJSON(data []byte) (*EntryRecordedMessage, error) {
	var msg EntryRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
