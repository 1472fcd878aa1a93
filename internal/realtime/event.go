package realtime

import (
	"time"

	"github.com/scraplink/chatcore/internal/models"
)

// Event is a single frame on a client's push channel. The Type set is
// closed: message, read, typing, connection. Presence is pulled over HTTP,
// not pushed here.
type Event struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

type MessagePayload struct {
	ChatID  int            `json:"chat_id"`
	Message models.Message `json:"message"`
}

type ReadPayload struct {
	ChatID     int   `json:"chat_id"`
	MessageIDs []int `json:"message_ids"`
}

type TypingPayload struct {
	ChatID int `json:"chat_id"`
	UserID int `json:"user_id"`
}

func newEvent(typ string, data any) Event {
	return Event{Type: typ, Data: data, Timestamp: time.Now().UnixMilli()}
}

// MessageEvent carries the plaintext-view message; the recipient can render
// it directly or re-fetch by id (the message is already durable).
func MessageEvent(chatID int, msg models.Message) Event {
	return newEvent("message", MessagePayload{ChatID: chatID, Message: msg})
}

func ReadEvent(chatID int, messageIDs []int) Event {
	return newEvent("read", ReadPayload{ChatID: chatID, MessageIDs: messageIDs})
}

func TypingEvent(chatID, userID int) Event {
	return newEvent("typing", TypingPayload{ChatID: chatID, UserID: userID})
}

func connectionEvent() Event {
	return newEvent("connection", map[string]string{"status": "connected"})
}
