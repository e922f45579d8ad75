package longpoll

import (
	"encoding/json"

	"github.com/vovakirdan/longpoll-sdk-go/longpoll/rest"
)

const (
	TransportHTTP      = "http"
	TransportWebSocket = "websocket"

	IDSchemeClock     = "clock"
	IDSchemeSnowflake = "snowflake"
)

// Message is a single feed entry. Two messages with the same ID are the same
// logical message regardless of Text.
type Message struct {
	ID   int64
	Text string
}

// MarshalJSON encodes the message in wire form ({"id","message"}).
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.record())
}

// UnmarshalJSON decodes the wire form.
func (m *Message) UnmarshalJSON(data []byte) error {
	var rec rest.MessageRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	*m = messageFromRecord(rec)
	return nil
}

func (m Message) record() rest.MessageRecord {
	return rest.MessageRecord{ID: m.ID, Message: m.Text}
}

func messageFromRecord(rec rest.MessageRecord) Message {
	return Message{ID: rec.ID, Text: rec.Message}
}
