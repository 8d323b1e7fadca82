package domain

import (
	"encoding/json"
	"time"
)

// FlexID tolerates servers that serialize message ids as JSON numbers.
// The watermark comparison needs the string-normalized form.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

// Message represents an immutable chat exchange item.
// ID is server-assigned; an optimistic local send carries an empty ID
// until the broadcast echo acknowledges it.
type Message struct {
	ID          string    `json:"id,omitempty"`
	SenderID    string    `json:"senderId"`
	RecipientID string    `json:"recipientId"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
}

// Acknowledged reports whether the server has assigned an identifier.
func (m Message) Acknowledged() bool { return m.ID != "" }
