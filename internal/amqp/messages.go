package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecordKind names the kind of record a change touched.
type RecordKind string

const (
	KindUser       RecordKind = "user"
	KindIncome     RecordKind = "income"
	KindBudget     RecordKind = "budget"
	KindLoan       RecordKind = "loan"
	KindCard       RecordKind = "card"
	KindCardEntry  RecordKind = "card_entry"
	KindThresholds RecordKind = "thresholds"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// RecordChange tells the worker that a user's financial position may have
// moved. It carries identifiers only; consumers reload the records.
// UserID is 0 for global changes such as thresholds.
type RecordChange struct {
	MessageID string     `json:"message_id"`
	UserID    int64      `json:"user_id"`
	Kind      RecordKind `json:"kind"`
	Action    Action     `json:"action"`
	RecordID  int64      `json:"record_id,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

func NewRecordChange(userID int64, kind RecordKind, action Action, recordID int64) *RecordChange {
	return &RecordChange{
		MessageID: uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Action:    action,
		RecordID:  recordID,
		Timestamp: time.Now().UTC(),
	}
}

// Global reports whether the change affects every user.
func (m *RecordChange) Global() bool {
	return m.Kind == KindThresholds
}

func (m *RecordChange) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordChangeFromJSON(data []byte) (*RecordChange, error) {
	var msg RecordChange
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Kind == "" {
		return nil, fmt.Errorf("record change %s has no kind", msg.MessageID)
	}
	if !msg.Global() && msg.UserID <= 0 {
		return nil, fmt.Errorf("record change %s has no user", msg.MessageID)
	}
	return &msg, nil
}
